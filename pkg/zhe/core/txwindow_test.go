package core

import "testing"

func TestTxWindow_WriteAssignsIncreasingSeq(t *testing.T) {
	w := NewTxWindow(1024, 16, DefaultWidth)
	s0, ok := w.Write([]byte("hello"))
	if !ok || s0 != 0 {
		t.Fatalf("first write: seq=%d ok=%v", s0, ok)
	}
	s1, ok := w.Write([]byte("world"))
	if !ok || s1 != 1 {
		t.Fatalf("second write: seq=%d ok=%v", s1, ok)
	}
}

func TestTxWindow_LookupRoundTrips(t *testing.T) {
	w := NewTxWindow(1024, 16, DefaultWidth)
	seq, ok := w.Write([]byte("payload-1"))
	if !ok {
		t.Fatalf("write failed")
	}
	dst := make([]byte, 32)
	n, ok := w.Lookup(seq, dst)
	if !ok {
		t.Fatalf("lookup of live seq failed")
	}
	if string(dst[:n]) != "payload-1" {
		t.Errorf("lookup returned %q", dst[:n])
	}
}

func TestTxWindow_FullEntriesRejectsWrite(t *testing.T) {
	w := NewTxWindow(1024, 2, DefaultWidth)
	if _, ok := w.Write([]byte("a")); !ok {
		t.Fatalf("write 1 should succeed")
	}
	if _, ok := w.Write([]byte("b")); !ok {
		t.Fatalf("write 2 should succeed")
	}
	if _, ok := w.Write([]byte("c")); ok {
		t.Fatalf("write 3 should fail: entry table full")
	}
}

func TestTxWindow_FullBytesRejectsWrite(t *testing.T) {
	w := NewTxWindow(8, 16, DefaultWidth)
	if _, ok := w.Write([]byte("12345")); !ok {
		t.Fatalf("write within capacity should succeed")
	}
	if _, ok := w.Write([]byte("1234")); ok {
		t.Fatalf("write exceeding remaining capacity should fail")
	}
}

func TestTxWindow_ReclaimFreesBytesAndEntries(t *testing.T) {
	w := NewTxWindow(16, 4, DefaultWidth)
	seq0, _ := w.Write([]byte("aaaa"))
	_, _ = w.Write([]byte("bbbb"))

	w.Reclaim(seq0) // reclaim strictly-before seq0: nothing acked yet
	if w.Empty() {
		t.Fatalf("nothing should be reclaimed yet")
	}

	w.Reclaim(seq0 + 1) // seq0 now acknowledged
	if w.Base() != seq0+1 {
		t.Fatalf("Base() = %d, want %d", w.Base(), seq0+1)
	}

	// Freed bytes must be reusable.
	if _, ok := w.Write([]byte("cccc")); !ok {
		t.Fatalf("write after reclaim should fit in freed space")
	}
}

func TestTxWindow_LookupMissingReturnsFalse(t *testing.T) {
	w := NewTxWindow(16, 4, DefaultWidth)
	seq, _ := w.Write([]byte("aaaa"))
	w.Reclaim(seq + 1)

	dst := make([]byte, 16)
	if _, ok := w.Lookup(seq, dst); ok {
		t.Fatalf("lookup of a reclaimed sequence must fail")
	}
}

func TestTxWindow_RingWrapsCorrectly(t *testing.T) {
	w := NewTxWindow(10, 8, DefaultWidth)
	for i := 0; i < 20; i++ {
		seq, ok := w.Write([]byte{byte(i), byte(i), byte(i)})
		if !ok {
			t.Fatalf("write %d failed", i)
		}
		dst := make([]byte, 3)
		n, ok := w.Lookup(seq, dst)
		if !ok || n != 3 || dst[0] != byte(i) {
			t.Fatalf("lookup after wrap for iter %d: n=%d ok=%v dst=%v", i, n, ok, dst)
		}
		w.Reclaim(seq + 1)
	}
}
