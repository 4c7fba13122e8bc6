package zhe

import (
	"github.com/jim1993/zhe/pkg/zhe/core"
	"github.com/jim1993/zhe/pkg/zhe/types"
)

// peer is one arena slot's worth of per-remote-peer state. The arena
// is sized once, at Init, to Config.MaxPeers and never grows (spec
// §3 invariant 5: exactly one of free/discovering/operational/
// draining; no dynamic allocation at run time beyond per-slot reuse).
type peer struct {
	phase peerPhase
	id    types.PeerID
	addr  Address

	lastHeard     Time
	leaseMs       uint32
	drainDeadline Time

	// passive is the tie-break outcome on simultaneous OPEN: true if
	// our id sorts lower than this peer's, meaning we are the passive
	// side and leave sending OPEN to the remote (spec §4.4
	// "simultaneous open").
	passive bool

	decl *declTxn

	// scheduledHistDecls is set once Housekeeping has sent a DECL-COMMIT
	// closing this peer's queued declarations (spec §4.5 "has sent full
	// declare batch"). ResetScheduledHistoricalDecls clears it and
	// re-queues every local pub/sub, so the next Housekeeping re-sends
	// the whole batch.
	scheduledHistDecls bool
	pendingPubs        []types.RID
	pendingSubs        []stagedSub
	// commitPending is true from the moment a declaration is queued
	// until a DECL-COMMIT for it has actually been sent, even across
	// Housekeeping calls that only had room to flush part of the
	// batch (spec §4.7 "flushing queued DECL-* batches up to MTU").
	commitPending bool

	// uniWindows holds one independent TxWindow per reliable-unicast
	// conduit id, created lazily the first time a publication on that
	// conduit needs to reach this peer.
	uniWindows map[types.ConduitID]*core.TxWindow
	uniAcked   map[types.ConduitID]types.Seq

	remoteSubs map[types.RID]struct{}
	remotePubs map[types.RID]struct{}
}

func (p *peer) reset() {
	*p = peer{phase: phaseFree}
}

// allocPeer finds a Free arena slot for a newly-discovered address,
// returning PeerIndexInvalid, false if the arena is exhausted (spec
// §7 "Resource exhaustion: no free peeridx").
func (e *Engine) allocPeer(id types.PeerID, addr Address, now Time) (types.PeerIndex, bool) {
	for i := range e.peers {
		if e.peers[i].phase == phaseFree {
			e.peers[i].reset()
			p := &e.peers[i]
			p.id = append(types.PeerID(nil), id...)
			p.addr = addr
			p.lastHeard = now
			p.leaseMs = e.cfg.LeaseDuration
			p.uniWindows = make(map[types.ConduitID]*core.TxWindow)
			p.uniAcked = make(map[types.ConduitID]types.Seq)
			p.remoteSubs = make(map[types.RID]struct{})
			p.remotePubs = make(map[types.RID]struct{})
			pidx := types.PeerIndex(i)
			e.byAddr[addr.String()] = pidx
			return pidx, true
		}
	}
	return types.PeerIndexInvalid, false
}

// lookupPeer resolves a known remote address to its arena slot.
func (e *Engine) lookupPeer(addr Address) (types.PeerIndex, bool) {
	idx, ok := e.byAddr[addr.String()]
	if !ok || e.peers[idx].phase == phaseFree {
		return types.PeerIndexInvalid, false
	}
	return idx, true
}

// freePeer releases peeridx back to the arena: removed from every
// mconduit's heap, its per-conduit windows dropped, its declaration
// transaction discarded.
func (e *Engine) freePeer(pidx types.PeerIndex) {
	p := &e.peers[pidx]
	for i := range e.mconduits {
		if e.mconduits[i].heap.Contains(pidx) {
			e.mconduits[i].heap.Delete(pidx)
			e.reclaimMConduit(i)
		}
	}
	if p.addr != nil {
		delete(e.byAddr, p.addr.String())
	}
	p.reset()
}

// joinMConduits enrolls a newly-Operational peer into every reliable
// multi-destination conduit at the conduit's current tail sequence —
// a late joiner starts acking from where it joined rather than
// requiring retransmission of history it never subscribed to (scenario
// 4: "mconduit with a slow subscriber").
func (e *Engine) joinMConduits(pidx types.PeerIndex) {
	for i := range e.mconduits {
		if !e.mconduits[i].heap.Contains(pidx) {
			e.mconduits[i].heap.Insert(pidx, e.mconduits[i].window.NextSeq())
		}
	}
}
