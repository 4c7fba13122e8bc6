package zhe

import (
	"testing"

	"github.com/jim1993/zhe/pkg/zhe/types"
)

// TestDeclTxn_FirstBadTracksChronologicalError guards against firstBad
// being paired with the wrong RID: a transaction that stages an
// out-of-range RID first and a URI-overflowing DECL-RES second must
// report the first (RID-range) RID, not the second.
func TestDeclTxn_FirstBadTracksChronologicalError(t *testing.T) {
	bus := newMemBus()
	trans := bus.register("a")
	e := NewEngine()
	cfg := newTestConfig("a")
	cfg.MaxRID = 10
	cfg.MaxURISpace = 5
	if err := e.Init(cfg, trans, 0); err != nil {
		t.Fatalf("Init: %v", err)
	}
	pidx, ok := e.allocPeer(types.PeerID("b"), memAddr{"b"}, 0)
	if !ok {
		t.Fatalf("allocPeer failed")
	}

	e.stagePub(pidx, types.DeclPub{RID: 999})
	e.stageRes(pidx, types.DeclRes{RID: 3, URI: []byte("too-long-a-uri")})

	t2 := e.declFor(pidx)
	status, badRID, _ := e.precommit(t2)

	if status != types.DeclErrRIDRange {
		t.Fatalf("status = %v, want DeclErrRIDRange", status)
	}
	if badRID != 999 {
		t.Fatalf("firstBad RID = %d, want 999 (the chronologically first error)", badRID)
	}
}
