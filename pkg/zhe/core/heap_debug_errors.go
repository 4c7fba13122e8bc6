//go:build zhedebug

package core

import "errors"

var (
	errInconsistentIndex = errors.New("core: minseqheap forward/reverse index mismatch")
	errCountMismatch      = errors.New("core: minseqheap element count mismatch")
	errHeapOrder          = errors.New("core: minseqheap order violated")
)
