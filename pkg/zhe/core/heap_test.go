package core

import (
	"math/rand"
	"testing"

	"github.com/jim1993/zhe/pkg/zhe/types"
)

func checkHeapOrPanic(t *testing.T, h *MinSeqHeap) {
	t.Helper()
	cnt := 0
	for p := 0; p < len(h.ix); p++ {
		i := h.ix[p]
		if i != invalidHeapIdx {
			if i >= h.n || h.hx[i] != types.PeerIndex(p) {
				t.Fatalf("forward/reverse index mismatch at peer %d", p)
			}
			cnt++
		}
	}
	if cnt != h.n {
		t.Fatalf("element count mismatch: index says %d, n=%d", cnt, h.n)
	}
	for j := 0; j < h.n/2; j++ {
		k := 2*j + 1
		if k < h.n && SeqLT(h.vs[h.hx[k]], h.vs[h.hx[j]], h.width) {
			t.Fatalf("heap order violated at node %d/%d", j, k)
		}
		if k+1 < h.n && SeqLT(h.vs[h.hx[k+1]], h.vs[h.hx[j]], h.width) {
			t.Fatalf("heap order violated at node %d/%d", j, k+1)
		}
	}
}

func TestMinSeqHeap_InsertGetMin(t *testing.T) {
	h := NewMinSeqHeap(8, DefaultWidth)
	h.Insert(0, 10)
	h.Insert(1, 5)
	h.Insert(2, 20)
	checkHeapOrPanic(t, h)
	if got := h.Min(); got != 5 {
		t.Errorf("Min() = %d, want 5", got)
	}
}

func TestMinSeqHeap_UpdateAdvancesMin(t *testing.T) {
	h := NewMinSeqHeap(8, DefaultWidth)
	h.Insert(0, 10)
	h.Insert(1, 5)
	h.Insert(2, 20)
	checkHeapOrPanic(t, h)

	got := h.Update(1, 30, 999)
	checkHeapOrPanic(t, h)
	if got != 10 {
		t.Errorf("Update returned %d, want new min 10", got)
	}
	if h.Min() != 10 {
		t.Errorf("Min() after update = %d, want 10", h.Min())
	}
}

func TestMinSeqHeap_UpdateAbsentOrNonAdvancingReturnsFallback(t *testing.T) {
	h := NewMinSeqHeap(8, DefaultWidth)
	h.Insert(0, 10)

	if got := h.Update(1, 50, 777); got != 777 {
		t.Errorf("Update of absent peer = %d, want fallback 777", got)
	}
	if got := h.Update(0, 10, 777); got != 777 {
		t.Errorf("Update with non-advancing seq = %d, want fallback 777", got)
	}
	if got := h.Update(0, 5, 777); got != 777 {
		t.Errorf("Update with regressing seq = %d, want fallback 777", got)
	}
}

func TestMinSeqHeap_DeleteIdempotentAndRestoresState(t *testing.T) {
	h := NewMinSeqHeap(8, DefaultWidth)
	h.Insert(0, 10)
	h.Insert(1, 5)
	h.Insert(2, 20)

	if !h.Delete(1) {
		t.Errorf("Delete of present peer should return true")
	}
	checkHeapOrPanic(t, h)
	if h.Delete(1) {
		t.Errorf("Delete of absent peer should return false (idempotent)")
	}
	if h.Min() != 10 {
		t.Errorf("Min() after delete = %d, want 10", h.Min())
	}

	h.Insert(1, 5)
	checkHeapOrPanic(t, h)
	if h.Min() != 5 {
		t.Errorf("Min() after re-insert = %d, want 5", h.Min())
	}
}

func TestMinSeqHeap_InsertThenDeleteLeavesHeapIndistinguishable(t *testing.T) {
	h := NewMinSeqHeap(8, DefaultWidth)
	h.Insert(0, 10)
	h.Insert(2, 20)
	before := h.n

	h.Insert(1, 5)
	h.Delete(1)
	checkHeapOrPanic(t, h)
	if h.n != before {
		t.Errorf("element count changed: got %d, want %d", h.n, before)
	}
	if h.Contains(1) {
		t.Errorf("peer 1 should no longer be contained")
	}
	if h.Min() != 10 {
		t.Errorf("Min() = %d, want 10", h.Min())
	}
}

func TestMinSeqHeap_Fuzz(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	const maxPeers = 16
	h := NewMinSeqHeap(maxPeers, DefaultWidth)
	present := map[types.PeerIndex]types.Seq{}

	for iter := 0; iter < 2000; iter++ {
		p := types.PeerIndex(rng.Intn(maxPeers))
		switch rng.Intn(3) {
		case 0: // insert
			if _, ok := present[p]; !ok {
				v := types.Seq(rng.Intn(1000))
				h.Insert(p, v)
				present[p] = v
			}
		case 1: // update
			if v, ok := present[p]; ok {
				nv := v + types.Seq(rng.Intn(50))
				got := h.Update(p, nv, 424242)
				if nv > v {
					present[p] = nv
					if got == 424242 {
						t.Fatalf("Update should have advanced for strictly greater seq")
					}
				}
			}
		case 2: // delete
			if _, ok := present[p]; ok {
				if !h.Delete(p) {
					t.Fatalf("Delete of present peer returned false")
				}
				delete(present, p)
			}
		}
		checkHeapOrPanic(t, h)
		if len(present) == 0 {
			if !h.IsEmpty() {
				t.Fatalf("heap should be empty")
			}
		} else {
			min := types.Seq(1 << 30)
			for _, v := range present {
				if v < min {
					min = v
				}
			}
			if h.Min() != min {
				t.Fatalf("Min() = %d, want %d (iter %d)", h.Min(), min, iter)
			}
		}
	}
}

func TestMinSeqHeap_InsertDuplicatePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("expected panic inserting an already-present peeridx")
		}
	}()
	h := NewMinSeqHeap(4, DefaultWidth)
	h.Insert(0, 1)
	h.Insert(0, 2)
}

func TestMinSeqHeap_MinOnEmptyPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("expected panic calling Min on an empty heap")
		}
	}()
	h := NewMinSeqHeap(4, DefaultWidth)
	h.Min()
}
