//go:build zhedebug

package core

import "github.com/jim1993/zhe/pkg/zhe/types"

// CheckHeap walks the full heap-consistency invariant (spec §8,
// "for all operations on the min-heap, after each call check_heap
// holds"): the inverse index agrees with the forward index, the
// element count matches, and the wrap-aware heap order holds at every
// internal node. It is compiled only under the zhedebug build tag,
// mirroring the original's #ifndef NDEBUG check_heap. Nothing in this
// repository calls it; heap_test.go runs its own equivalent check,
// checkHeapOrPanic, after heap mutations.
func (h *MinSeqHeap) CheckHeap() error {
	cnt := 0
	for p := 0; p < len(h.ix); p++ {
		i := h.ix[p]
		if i != invalidHeapIdx {
			if i >= h.n || h.hx[i] != types.PeerIndex(p) {
				return errInconsistentIndex
			}
			cnt++
		}
	}
	if cnt != h.n {
		return errCountMismatch
	}
	for j := 0; j < h.n/2; j++ {
		k := 2*j + 1
		if k < h.n && !SeqLE(h.vs[h.hx[j]], h.vs[h.hx[k]], h.width) {
			return errHeapOrder
		}
		if k+1 < h.n && !SeqLE(h.vs[h.hx[j]], h.vs[h.hx[k+1]], h.width) {
			return errHeapOrder
		}
	}
	return nil
}
