package wire

import "github.com/jim1993/zhe/pkg/zhe/types"

// header packs a message Kind into the single leading byte of a
// framed message. The top three bits are reserved flags, currently
// always zero; they exist so a future wire revision can extend a
// message without changing every Kind value (see spec REDESIGN FLAGS
// discussion for MaxRID/version growth).
const kindMask = 0x1f

func encodeHeader(k types.Kind) byte {
	return byte(k) & kindMask
}

func decodeHeader(b byte) types.Kind {
	return types.Kind(b & kindMask)
}

// getBytes reads a varint-prefixed byte string from buf, returning
// the string and the number of bytes consumed from buf. Refuses to
// read a declared length that exceeds what remains in buf.
func getBytes(buf []byte) (out []byte, n int, ok bool) {
	l, ln, ok := GetVarint(buf)
	if !ok {
		return nil, 0, false
	}
	if ln+int(l) > len(buf) {
		return nil, 0, false
	}
	return buf[ln : ln+int(l)], ln + int(l), true
}

// putBytes writes a varint-prefixed byte string into buf.
func putBytes(buf []byte, v []byte) (n int, ok bool) {
	ln, ok := PutVarint(buf, uint64(len(v)))
	if !ok {
		return 0, false
	}
	if ln+len(v) > len(buf) {
		return 0, false
	}
	copy(buf[ln:], v)
	return ln + len(v), true
}

func bytesLen(v []byte) int {
	return VarintLen(uint64(len(v))) + len(v)
}
