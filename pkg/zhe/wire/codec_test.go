package wire

import (
	"bytes"
	"testing"

	"github.com/jim1993/zhe/pkg/zhe/types"
)

func TestVarint_RoundTrip(t *testing.T) {
	values := []uint64{0, 1, 126, 127, 128, 16383, 16384, 2097151, 2097152, 1 << 40, ^uint64(0)}
	buf := make([]byte, 16)
	for _, v := range values {
		n, ok := PutVarint(buf, v)
		if !ok {
			t.Fatalf("PutVarint(%d) failed", v)
		}
		got, n2, ok := GetVarint(buf[:n])
		if !ok || n2 != n || got != v {
			t.Errorf("round-trip %d: got=%d n2=%d ok=%v", v, got, n2, ok)
		}
	}
}

func TestRIDWidth_Boundaries(t *testing.T) {
	cases := []struct {
		max  types.RID
		want int
	}{
		{127, 1}, {128, 2},
		{16383, 2}, {16384, 3},
		{2097151, 3}, {2097152, 4},
	}
	for _, c := range cases {
		if got := types.RIDWidth(c.max); got != c.want {
			t.Errorf("RIDWidth(%d) = %d, want %d", c.max, got, c.want)
		}
	}
}

func TestWriterReader_DataRoundTrip(t *testing.T) {
	buf := make([]byte, 256)
	w := NewWriter(buf)
	msg := types.Data{RID: 42, Payload: []byte("sample-payload")}
	if !w.PutData(msg) {
		t.Fatalf("PutData failed")
	}

	r := NewReader(w.Bytes())
	kind, payload, err := r.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if kind != types.KindData {
		t.Fatalf("kind = %v, want KindData", kind)
	}
	got, ok := DecodeData(payload)
	if !ok {
		t.Fatalf("DecodeData failed")
	}
	if got.RID != msg.RID || !bytes.Equal(got.Payload, msg.Payload) {
		t.Errorf("round-trip mismatch: got %+v, want %+v", got, msg)
	}
	if !r.Done() {
		t.Errorf("reader should be done after consuming the only message")
	}
}

func TestWriterReader_MultipleMessagesInOneDatagram(t *testing.T) {
	buf := make([]byte, 512)
	w := NewWriter(buf)
	if !w.PutScout(types.PeerID{0x01, 0x02}) {
		t.Fatalf("PutScout failed")
	}
	if !w.PutDeclPub(types.DeclPub{RID: 7}) {
		t.Fatalf("PutDeclPub failed")
	}
	if !w.PutData(types.Data{RID: 7, Payload: []byte("x")}) {
		t.Fatalf("PutData failed")
	}

	r := NewReader(w.Bytes())
	var kinds []types.Kind
	for !r.Done() {
		k, _, err := r.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		kinds = append(kinds, k)
	}
	want := []types.Kind{types.KindScout, types.KindDeclPub, types.KindData}
	if len(kinds) != len(want) {
		t.Fatalf("got %d messages, want %d", len(kinds), len(want))
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("message %d: got %v, want %v", i, kinds[i], want[i])
		}
	}
}

func TestReader_TruncatedLengthIsMalformed(t *testing.T) {
	buf := make([]byte, 256)
	w := NewWriter(buf)
	w.PutData(types.Data{RID: 1, Payload: []byte("abcdefgh")})
	full := w.Bytes()

	// Truncate mid-payload: the declared length now exceeds what
	// remains in the buffer.
	truncated := full[:len(full)-3]
	r := NewReader(truncated)
	_, _, err := r.Next()
	if err != ErrMalformed {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestWriter_RefusesWhenMTUExceeded(t *testing.T) {
	buf := make([]byte, 4) // too small for any Data message
	w := NewWriter(buf)
	if w.PutData(types.Data{RID: 100000, Payload: []byte("this does not fit")}) {
		t.Fatalf("PutData should fail when buffer is too small")
	}
	if w.Len() != 0 {
		t.Errorf("buffer position must be unchanged after a failed Put, got %d", w.Len())
	}
}

func TestDeclResURIRoundTrip(t *testing.T) {
	buf := make([]byte, 128)
	w := NewWriter(buf)
	msg := types.DeclRes{RID: 99, URI: []byte("/robot/sensor/1")}
	if !w.PutDeclRes(msg) {
		t.Fatalf("PutDeclRes failed")
	}
	r := NewReader(w.Bytes())
	kind, payload, err := r.Next()
	if err != nil || kind != types.KindDeclRes {
		t.Fatalf("Next: kind=%v err=%v", kind, err)
	}
	got, ok := DecodeDeclRes(payload)
	if !ok || got.RID != msg.RID || !bytes.Equal(got.URI, msg.URI) {
		t.Errorf("round-trip mismatch: got %+v", got)
	}
}

func TestAckNackRoundTrip(t *testing.T) {
	buf := make([]byte, 64)
	w := NewWriter(buf)
	msg := types.AckNack{Conduit: 3, SeqBase: 12345, Mask: 0xABCD}
	if !w.PutAckNack(msg) {
		t.Fatalf("PutAckNack failed")
	}
	r := NewReader(w.Bytes())
	_, payload, err := r.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	got, ok := DecodeAckNack(payload)
	if !ok || got != msg {
		t.Errorf("round-trip mismatch: got %+v, want %+v", got, msg)
	}
}
