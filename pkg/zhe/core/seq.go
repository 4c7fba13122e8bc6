// Package core holds the reusable, allocation-free data structures
// the engine builds its reliability layer on: wrap-aware sequence
// arithmetic, the per-mconduit minimum-sequence heap, and the
// per-conduit transmit window.
package core

import "github.com/jim1993/zhe/pkg/zhe/types"

// Width is the number of significant bits in a sequence number; it
// governs where the wrap boundary sits for SeqLT/SeqLE. The default
// engine configuration uses a wide value where wrap never practically
// happens; tests exercise a narrow width (8 bits) to force wrap.
type Width uint8

const DefaultWidth Width = 28

func (w Width) mask() types.Seq {
	if w >= 32 {
		return ^types.Seq(0)
	}
	return types.Seq(1)<<uint(w) - 1
}

func (w Width) half() types.Seq {
	return (w.mask() + 1) / 2
}

// SeqLT reports a < b under modular, wrap-aware comparison: the
// difference (a-b), masked to width and interpreted as signed, must
// be negative and non-zero.
func SeqLT(a, b types.Seq, w Width) bool {
	d := (a - b) & w.mask()
	return d != 0 && d > w.half()
}

// SeqLE reports a <= b under the same wrap-aware comparison.
func SeqLE(a, b types.Seq, w Width) bool {
	return a == b || SeqLT(a, b, w)
}
