package core

import (
	"testing"

	"github.com/jim1993/zhe/pkg/zhe/types"
)

func TestSeqLT_WithinHalfModulus(t *testing.T) {
	const w = Width(8) // modulus 256
	cases := []struct {
		a, b types.Seq
		lt   bool
	}{
		{0, 1, true},
		{1, 0, false},
		{0, 0, false},
		{255, 0, true},  // wraps: 255 < 0 (mod 256)
		{0, 255, false},
		{10, 20, true},
		{20, 10, false},
	}
	for _, c := range cases {
		if got := SeqLT(c.a, c.b, w); got != c.lt {
			t.Errorf("SeqLT(%d,%d,w=%d) = %v, want %v", c.a, c.b, w, got, c.lt)
		}
	}
}

func TestSeqLE_ReflexiveAndWrap(t *testing.T) {
	const w = Width(8)
	if !SeqLE(5, 5, w) {
		t.Errorf("SeqLE must be reflexive")
	}
	if !SeqLE(255, 0, w) {
		t.Errorf("expected wrap: 255 <= 0 (mod 256)")
	}
	if SeqLE(0, 255, w) {
		t.Errorf("expected 0 > 255 (mod 256) to be false for <=")
	}
}
