package wire

import "github.com/jim1993/zhe/pkg/zhe/types"

// Writer serialises framed messages into a caller-owned buffer sized
// to the transport MTU. Every PutXxx method either appends a
// complete frame and returns true, or leaves the buffer exactly as it
// was and returns false, so the caller can flush the current datagram
// and retry in a fresh one (spec §4.1).
type Writer struct {
	buf []byte
	pos int
}

// NewWriter wraps buf (typically len(buf) == TransportMTU).
func NewWriter(buf []byte) *Writer {
	return &Writer{buf: buf}
}

// Reset starts a new datagram in the same backing buffer.
func (w *Writer) Reset() {
	w.pos = 0
}

// Len is how many bytes have been written so far.
func (w *Writer) Len() int {
	return w.pos
}

// Bytes returns the datagram written so far.
func (w *Writer) Bytes() []byte {
	return w.buf[:w.pos]
}

// Remaining is how much space is left in the backing buffer.
func (w *Writer) Remaining() int {
	return len(w.buf) - w.pos
}

func (w *Writer) put(k types.Kind, encode func(buf []byte) (int, bool)) bool {
	if w.pos >= len(w.buf) {
		return false
	}
	n, ok := encode(w.buf[w.pos+1:])
	if !ok {
		return false
	}
	w.buf[w.pos] = encodeHeader(k)
	w.pos += 1 + n
	return true
}

func (w *Writer) PutScout(id types.PeerID) bool {
	return w.put(types.KindScout, func(buf []byte) (int, bool) {
		return putBytes(buf, id)
	})
}

func (w *Writer) PutHello(m types.Hello) bool {
	return w.put(types.KindHello, func(buf []byte) (int, bool) {
		n1, ok := putBytes(buf, m.ID)
		if !ok {
			return 0, false
		}
		n2, ok := PutVarint(buf[n1:], uint64(m.Lease))
		if !ok {
			return 0, false
		}
		return n1 + n2, true
	})
}

func (w *Writer) PutOpen(m types.Open) bool {
	return w.put(types.KindOpen, func(buf []byte) (int, bool) {
		n1, ok := putBytes(buf, m.ID)
		if !ok {
			return 0, false
		}
		n2, ok := PutVarint(buf[n1:], uint64(m.Lease))
		if !ok {
			return 0, false
		}
		return n1 + n2, true
	})
}

func (w *Writer) PutAccept(m types.Accept) bool {
	return w.put(types.KindAccept, func(buf []byte) (int, bool) {
		n1, ok := putBytes(buf, m.ID)
		if !ok {
			return 0, false
		}
		n2, ok := putBytes(buf[n1:], m.WhatPeerID)
		if !ok {
			return 0, false
		}
		return n1 + n2, true
	})
}

func (w *Writer) PutClose(m types.Close) bool {
	return w.put(types.KindClose, func(buf []byte) (int, bool) {
		n1, ok := putBytes(buf, m.ID)
		if !ok {
			return 0, false
		}
		if n1 >= len(buf) {
			return 0, false
		}
		buf[n1] = m.Reason
		return n1 + 1, true
	})
}

func (w *Writer) PutSynch(m types.Synch) bool {
	return w.put(types.KindSynch, func(buf []byte) (int, bool) {
		if len(buf) < 1 {
			return 0, false
		}
		buf[0] = byte(m.Conduit)
		n, ok := PutVarint(buf[1:], uint64(m.SeqBase))
		if !ok {
			return 0, false
		}
		return 1 + n, true
	})
}

func (w *Writer) PutAckNack(m types.AckNack) bool {
	return w.put(types.KindAckNack, func(buf []byte) (int, bool) {
		if len(buf) < 1 {
			return 0, false
		}
		buf[0] = byte(m.Conduit)
		n1, ok := PutVarint(buf[1:], uint64(m.SeqBase))
		if !ok {
			return 0, false
		}
		n2, ok := PutVarint(buf[1+n1:], uint64(m.Mask))
		if !ok {
			return 0, false
		}
		return 1 + n1 + n2, true
	})
}

func (w *Writer) PutDeclRes(m types.DeclRes) bool {
	return w.put(types.KindDeclRes, func(buf []byte) (int, bool) {
		n1, ok := PutVarint(buf, uint64(m.RID))
		if !ok {
			return 0, false
		}
		if n1 >= len(buf) {
			return 0, false
		}
		if m.URI == nil {
			buf[n1] = 0
			return n1 + 1, true
		}
		buf[n1] = 1
		n2, ok := putBytes(buf[n1+1:], m.URI)
		if !ok {
			return 0, false
		}
		return n1 + 1 + n2, true
	})
}

func (w *Writer) PutDeclPub(m types.DeclPub) bool {
	return w.put(types.KindDeclPub, func(buf []byte) (int, bool) {
		return PutVarint(buf, uint64(m.RID))
	})
}

func (w *Writer) PutDeclSub(m types.DeclSub) bool {
	return w.put(types.KindDeclSub, func(buf []byte) (int, bool) {
		n1, ok := PutVarint(buf, uint64(m.RID))
		if !ok {
			return 0, false
		}
		if n1 >= len(buf) {
			return 0, false
		}
		buf[n1] = byte(m.Mode)
		return n1 + 1, true
	})
}

func (w *Writer) PutDeclCommit(m types.DeclCommit) bool {
	return w.put(types.KindDeclCommit, func(buf []byte) (int, bool) {
		if len(buf) < 1 {
			return 0, false
		}
		buf[0] = byte(m.Commit)
		return 1, true
	})
}

func (w *Writer) PutDeclResult(m types.DeclResult) bool {
	return w.put(types.KindDeclResult, func(buf []byte) (int, bool) {
		if len(buf) < 2 {
			return 0, false
		}
		buf[0] = byte(m.Commit)
		buf[1] = byte(m.Status)
		n, ok := PutVarint(buf[2:], uint64(m.RID))
		if !ok {
			return 0, false
		}
		if 2+n >= len(buf) {
			return 0, false
		}
		buf[2+n] = m.Errors
		return 2 + n + 1, true
	})
}

func (w *Writer) PutData(m types.Data) bool {
	return w.put(types.KindData, func(buf []byte) (int, bool) {
		n1, ok := PutVarint(buf, uint64(m.RID))
		if !ok {
			return 0, false
		}
		n2, ok := putBytes(buf[n1:], m.Payload)
		if !ok {
			return 0, false
		}
		return n1 + n2, true
	})
}

func (w *Writer) PutMData(m types.MData) bool {
	return w.put(types.KindMData, func(buf []byte) (int, bool) {
		if len(buf) < 1 {
			return 0, false
		}
		buf[0] = byte(m.Conduit)
		n1, ok := PutVarint(buf[1:], uint64(m.Seq))
		if !ok {
			return 0, false
		}
		n2, ok := PutVarint(buf[1+n1:], uint64(m.RID))
		if !ok {
			return 0, false
		}
		n3, ok := putBytes(buf[1+n1+n2:], m.Payload)
		if !ok {
			return 0, false
		}
		return 1 + n1 + n2 + n3, true
	})
}

func (w *Writer) PutWData(m types.WData) bool {
	return w.put(types.KindWData, func(buf []byte) (int, bool) {
		n1, ok := putBytes(buf, m.URI)
		if !ok {
			return 0, false
		}
		n2, ok := putBytes(buf[n1:], m.Payload)
		if !ok {
			return 0, false
		}
		return n1 + n2, true
	})
}

// DataLen returns the wire size of a Data message, useful for a
// caller deciding whether a write will fit before building the
// message (e.g. the transmit window sizing a reclaim).
func DataLen(m types.Data) int {
	return 1 + VarintLen(uint64(m.RID)) + bytesLen(m.Payload)
}

// MDataLen returns the wire size of an MData message.
func MDataLen(m types.MData) int {
	return 1 + 1 + VarintLen(uint64(m.Seq)) + VarintLen(uint64(m.RID)) + bytesLen(m.Payload)
}
