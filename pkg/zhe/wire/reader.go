package wire

import "github.com/jim1993/zhe/pkg/zhe/types"

// Reader iterates the framed (kind, payload) pairs inside a single
// datagram buffer. It never copies the buffer; payload slices it
// returns alias buf and are only valid until the next call to Next,
// or for as long as the caller keeps buf alive.
type Reader struct {
	buf []byte
	pos int
}

// NewReader starts iterating buf from the beginning.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Done reports whether every byte of the datagram has been consumed.
func (r *Reader) Done() bool {
	return r.pos >= len(r.buf)
}

// Next decodes the next framed message. It returns (0, nil, nil) once
// Done(); ErrMalformed is returned, and the packet must be abandoned
// without tearing down the peer, if the header or any subsequent
// length-prefixed field is truncated or overruns the datagram.
func (r *Reader) Next() (types.Kind, []byte, error) {
	if r.Done() {
		return 0, nil, nil
	}
	kind := decodeHeader(r.buf[r.pos])
	rest := r.buf[r.pos+1:]
	n, ok := messageLen(kind, rest)
	if !ok {
		return 0, nil, ErrMalformed
	}
	payload := rest[:n]
	r.pos += 1 + n
	return kind, payload, nil
}

// messageLen returns how many bytes of buf (after the header byte)
// the message of the given kind occupies, without fully decoding it.
// This is what lets Reader stay lazy: the dispatcher only pays for
// decoding a message it actually routes somewhere.
func messageLen(k types.Kind, buf []byte) (int, bool) {
	switch k {
	case types.KindScout, types.KindHello, types.KindOpen, types.KindClose:
		_, n, ok := getBytes(buf)
		if !ok {
			return 0, false
		}
		switch k {
		case types.KindHello, types.KindOpen:
			_, ln, ok := GetVarint(buf[n:])
			if !ok {
				return 0, false
			}
			return n + ln, true
		case types.KindClose:
			if n+1 > len(buf) {
				return 0, false
			}
			return n + 1, true
		default:
			return n, true
		}
	case types.KindAccept:
		_, n1, ok := getBytes(buf)
		if !ok {
			return 0, false
		}
		_, n2, ok := getBytes(buf[n1:])
		if !ok {
			return 0, false
		}
		return n1 + n2, true
	case types.KindSynch:
		if len(buf) < 1 {
			return 0, false
		}
		_, ln, ok := GetVarint(buf[1:])
		if !ok {
			return 0, false
		}
		return 1 + ln, true
	case types.KindAckNack:
		if len(buf) < 1 {
			return 0, false
		}
		_, ln1, ok := GetVarint(buf[1:])
		if !ok {
			return 0, false
		}
		_, ln2, ok := GetVarint(buf[1+ln1:])
		if !ok {
			return 0, false
		}
		return 1 + ln1 + ln2, true
	case types.KindDeclRes:
		_, ln, ok := GetVarint(buf)
		if !ok {
			return 0, false
		}
		if ln >= len(buf) {
			return 0, false
		}
		hasURI := buf[ln]
		n := ln + 1
		if hasURI != 0 {
			_, un, ok := getBytes(buf[n:])
			if !ok {
				return 0, false
			}
			n += un
		}
		return n, true
	case types.KindDeclPub:
		_, ln, ok := GetVarint(buf)
		if !ok {
			return 0, false
		}
		return ln, true
	case types.KindDeclSub:
		_, ln, ok := GetVarint(buf)
		if !ok {
			return 0, false
		}
		if ln+1 > len(buf) {
			return 0, false
		}
		return ln + 1, true
	case types.KindDeclCommit:
		if len(buf) < 1 {
			return 0, false
		}
		return 1, true
	case types.KindDeclResult:
		if len(buf) < 2 {
			return 0, false
		}
		_, ln, ok := GetVarint(buf[2:])
		if !ok {
			return 0, false
		}
		if 2+ln+1 > len(buf) {
			return 0, false
		}
		return 2 + ln + 1, true
	case types.KindData:
		_, ln1, ok := GetVarint(buf)
		if !ok {
			return 0, false
		}
		_, ln2, ok := getBytes(buf[ln1:])
		if !ok {
			return 0, false
		}
		return ln1 + ln2, true
	case types.KindMData:
		if len(buf) < 1 {
			return 0, false
		}
		_, ln1, ok := GetVarint(buf[1:])
		if !ok {
			return 0, false
		}
		_, ln2, ok := GetVarint(buf[1+ln1:])
		if !ok {
			return 0, false
		}
		_, ln3, ok := getBytes(buf[1+ln1+ln2:])
		if !ok {
			return 0, false
		}
		return 1 + ln1 + ln2 + ln3, true
	case types.KindWData:
		_, n1, ok := getBytes(buf)
		if !ok {
			return 0, false
		}
		_, n2, ok := getBytes(buf[n1:])
		if !ok {
			return 0, false
		}
		return n1 + n2, true
	default:
		return 0, false
	}
}
