package core

import "github.com/jim1993/zhe/pkg/zhe/types"

// invalidHeapIdx is the "not in heap" sentinel for the reverse index,
// mirroring PEERIDX_INVALID in the original zhe-binheap.c.
const invalidHeapIdx = -1

// MinSeqHeap tracks, for a single reliable mconduit, the minimum
// acknowledged sequence number across its live destination peers.
// hx[j] is the peeridx stored at heap slot j; ix[p] is the heap slot
// holding peeridx p (or invalidHeapIdx). vs[p] is the last sequence
// recorded for peeridx p. Ported from the original's parallel-array
// binary heap (zhe-binheap.c) rather than container/heap, because the
// engine needs O(1) "is this peer present / where" lookups that
// container/heap's interface does not expose.
type MinSeqHeap struct {
	width Width
	hx    []types.PeerIndex
	ix    []int
	vs    []types.Seq
	n     int
}

// NewMinSeqHeap allocates a heap capable of holding up to maxPeers
// distinct peer indices in [0, maxPeers).
func NewMinSeqHeap(maxPeers int, width Width) *MinSeqHeap {
	h := &MinSeqHeap{
		width: width,
		hx:    make([]types.PeerIndex, maxPeers),
		ix:    make([]int, maxPeers),
		vs:    make([]types.Seq, maxPeers),
	}
	for i := range h.ix {
		h.ix[i] = invalidHeapIdx
	}
	return h
}

// Len is the number of peers currently tracked.
func (h *MinSeqHeap) Len() int { return h.n }

// IsEmpty reports whether no peer is tracked.
func (h *MinSeqHeap) IsEmpty() bool { return h.n == 0 }

// Contains reports whether peeridx is currently tracked.
func (h *MinSeqHeap) Contains(peeridx types.PeerIndex) bool {
	return h.ix[peeridx] != invalidHeapIdx
}

// Insert adds peeridx with the given initial sequence base. It is a
// programming error to insert a peeridx already present; callers must
// check Contains first (the original asserts this in debug builds).
func (h *MinSeqHeap) Insert(peeridx types.PeerIndex, seqbase types.Seq) {
	if h.Contains(peeridx) {
		panic("core: minseqheap insert of peeridx already present")
	}
	h.vs[peeridx] = seqbase
	i := h.n
	h.n++
	for i > 0 && SeqLT(seqbase, h.vs[h.hx[(i-1)/2]], h.width) {
		h.hx[i] = h.hx[(i-1)/2]
		h.ix[h.hx[i]] = i
		i = (i - 1) / 2
	}
	h.hx[i] = peeridx
	h.ix[peeridx] = i
}

// Min returns the minimum tracked sequence. Precondition: !IsEmpty().
func (h *MinSeqHeap) Min() types.Seq {
	if h.n == 0 {
		panic("core: minseqheap Min on empty heap")
	}
	return h.vs[h.hx[0]]
}

// Update advances peeridx's sequence to newseq and returns the new
// heap minimum. If peeridx is not tracked, or newseq does not advance
// strictly past the peer's current value, the heap is left unchanged
// and fallback is returned instead.
func (h *MinSeqHeap) Update(peeridx types.PeerIndex, newseq, fallback types.Seq) types.Seq {
	i := h.ix[peeridx]
	if i == invalidHeapIdx || SeqLE(newseq, h.vs[peeridx], h.width) {
		return fallback
	}
	h.vs[peeridx] = newseq
	h.heapify(i)
	return h.vs[h.hx[0]]
}

// Delete removes peeridx if present, returning true, or false if it
// was already absent (idempotent, matching zhe_minseqheap_delete).
func (h *MinSeqHeap) Delete(peeridx types.PeerIndex) bool {
	i := h.ix[peeridx]
	if i == invalidHeapIdx {
		return false
	}
	h.ix[peeridx] = invalidHeapIdx
	h.n--
	if i < h.n {
		// The element moved in from the last slot may be smaller than
		// its new parent, so sift it up before sifting it down.
		last := h.hx[h.n]
		for i > 0 && SeqLT(h.vs[last], h.vs[h.hx[(i-1)/2]], h.width) {
			h.hx[i] = h.hx[(i-1)/2]
			h.ix[h.hx[i]] = i
			i = (i - 1) / 2
		}
		h.hx[i] = last
		h.ix[last] = i
		h.heapify(i)
	}
	return true
}

// heapify sifts the element at slot j down until the heap property
// holds again, exactly mirroring minseqheap_heapify in the original.
func (h *MinSeqHeap) heapify(j int) {
	for k := 2*j + 1; j < h.n/2 && k < h.n; j, k = k, k+k+1 {
		if k+1 < h.n && SeqLT(h.vs[h.hx[k+1]], h.vs[h.hx[k]], h.width) {
			k++
		}
		if SeqLT(h.vs[h.hx[k]], h.vs[h.hx[j]], h.width) {
			h.hx[j], h.hx[k] = h.hx[k], h.hx[j]
			h.ix[h.hx[j]] = j
			h.ix[h.hx[k]] = k
		}
	}
}
