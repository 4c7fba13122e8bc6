package core

import "github.com/jim1993/zhe/pkg/zhe/types"

// entry is a single (sequence, offset, length) record into the ring.
type entry struct {
	seq    types.Seq
	offset int
	length int
}

// TxWindow is a per-conduit ring buffer of serialised, unacknowledged
// outgoing messages, retained for retransmission until every live
// destination has acknowledged them (spec §3 invariant 3, §4.3).
// Both the byte storage and the entry index are fixed-size and
// pre-allocated at construction; Write never allocates.
type TxWindow struct {
	width Width

	ring     []byte
	ringHead int // byte offset of the oldest retained message
	ringLen  int // bytes currently occupied, starting at ringHead (mod cap)

	entries   []entry
	entHead   int // index of oldest entry
	entCount  int

	next types.Seq // sequence to assign to the next Write
	base types.Seq // oldest sequence still in the window (== entries[entHead].seq when entCount>0)
}

// NewTxWindow allocates a window with byteCap bytes of ring storage
// and room for up to maxEntries in-flight messages.
func NewTxWindow(byteCap, maxEntries int, width Width) *TxWindow {
	return &TxWindow{
		width:   width,
		ring:    make([]byte, byteCap),
		entries: make([]entry, maxEntries),
	}
}

// NextSeq previews the sequence number the next Write would assign.
func (w *TxWindow) NextSeq() types.Seq { return w.next }

// Base is the oldest (lowest) sequence still retained in the window.
func (w *TxWindow) Base() types.Seq { return w.base }

// Empty reports whether the window currently holds no unacknowledged
// message.
func (w *TxWindow) Empty() bool { return w.entCount == 0 }

func (w *TxWindow) freeBytes() int {
	return len(w.ring) - w.ringLen
}

// Write serialises payload into the ring, assigning it the next
// sequence number. It returns ok=false, leaving the window unchanged,
// when either the entry table or the byte ring has no room — the
// caller (Engine.Write) must then surface this as a failed write per
// spec §4.3/§4.6/§7 "Resource exhaustion".
func (w *TxWindow) Write(payload []byte) (types.Seq, bool) {
	if w.entCount == len(w.entries) {
		return 0, false
	}
	if len(payload) > w.freeBytes() {
		return 0, false
	}
	offset := (w.ringHead + w.ringLen) % len(w.ring)
	for i := 0; i < len(payload); i++ {
		w.ring[(offset+i)%len(w.ring)] = payload[i]
	}
	seq := w.next
	idx := (w.entHead + w.entCount) % len(w.entries)
	w.entries[idx] = entry{seq: seq, offset: offset, length: len(payload)}
	w.entCount++
	w.ringLen += len(payload)
	if w.entCount == 1 {
		w.base = seq
	}
	w.next++
	return seq, true
}

// Lookup returns the payload previously written at seq, copied into
// dst (dst must be at least as large as the original payload) and
// the number of bytes copied, or ok=false if seq has already been
// reclaimed or was never assigned — the NACK handler turns the latter
// into a peer-reset request per spec §4.3.
func (w *TxWindow) Lookup(seq types.Seq, dst []byte) (int, bool) {
	for i := 0; i < w.entCount; i++ {
		e := w.entries[(w.entHead+i)%len(w.entries)]
		if e.seq == seq {
			if len(dst) < e.length {
				return 0, false
			}
			for k := 0; k < e.length; k++ {
				dst[k] = w.ring[(e.offset+k)%len(w.ring)]
			}
			return e.length, true
		}
	}
	return 0, false
}

// Reclaim drops every entry with seq strictly before minAcked
// (i.e. acknowledged by every live destination), freeing its ring
// bytes. It is the caller's responsibility to have first folded in
// every destination's acknowledged sequence (directly for a unicast
// conduit, via the min-heap for an mconduit) before calling this —
// see spec §3 invariant 3.
func (w *TxWindow) Reclaim(minAcked types.Seq) {
	for w.entCount > 0 {
		e := w.entries[w.entHead]
		if !SeqLT(e.seq, minAcked, w.width) {
			break
		}
		w.ringHead = (w.ringHead + e.length) % len(w.ring)
		w.ringLen -= e.length
		w.entHead = (w.entHead + 1) % len(w.entries)
		w.entCount--
		if w.entCount > 0 {
			w.base = w.entries[w.entHead].seq
		}
	}
}

// Entries returns the sequence numbers currently retained, oldest
// first, for callers (e.g. housekeeping re-synch) that need to walk
// the whole window.
func (w *TxWindow) Entries() []types.Seq {
	out := make([]types.Seq, w.entCount)
	for i := 0; i < w.entCount; i++ {
		out[i] = w.entries[(w.entHead+i)%len(w.entries)].seq
	}
	return out
}
