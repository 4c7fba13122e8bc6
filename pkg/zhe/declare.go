package zhe

import "github.com/jim1993/zhe/pkg/zhe/types"

// declTxn stages declarations received from one peer between the
// first DECL-* message after the previous commit/abort and the next
// DECL-COMMIT: spec §4.5's two-phase engine (stage, precommit,
// commit/abort). Nothing staged here is visible to routing until
// commitDecl succeeds.
type declTxn struct {
	pubs []types.RID
	subs []stagedSub

	errs     byte
	firstBad types.RID
	hasBad   bool
}

type stagedSub struct {
	rid  types.RID
	mode types.SubMode
}

func (e *Engine) declFor(pidx types.PeerIndex) *declTxn {
	p := &e.peers[pidx]
	if p.decl == nil {
		p.decl = &declTxn{}
	}
	return p.decl
}

func (t *declTxn) markBad(bit byte, rid types.RID) {
	if !t.hasBad {
		t.firstBad = rid
	}
	t.hasBad = true
	t.errs |= bit
}

// stagePub records a DECL-PUB, provisional until commit.
func (e *Engine) stagePub(pidx types.PeerIndex, m types.DeclPub) {
	t := e.declFor(pidx)
	if m.RID > e.cfg.MaxRID {
		t.markBad(types.DeclErrBitRIDRange, m.RID)
		return
	}
	t.pubs = append(t.pubs, m.RID)
}

// stageSub records a DECL-SUB, provisional until commit.
func (e *Engine) stageSub(pidx types.PeerIndex, m types.DeclSub) {
	t := e.declFor(pidx)
	if m.RID > e.cfg.MaxRID {
		t.markBad(types.DeclErrBitRIDRange, m.RID)
		return
	}
	t.subs = append(t.subs, stagedSub{rid: m.RID, mode: m.Mode})
}

// stageRes records a DECL-RES (a bare resource, optionally URI-named).
// Routing itself is keyed on RID alone (spec §4.6); the URI, if
// present, only ever needs to be bounds-checked against the
// configured URI space here.
func (e *Engine) stageRes(pidx types.PeerIndex, m types.DeclRes) {
	t := e.declFor(pidx)
	if m.RID > e.cfg.MaxRID {
		t.markBad(types.DeclErrBitRIDRange, m.RID)
		return
	}
	if m.URI != nil && e.cfg.MaxURISpace > 0 && e.uriSpaceUsed+len(m.URI) > e.cfg.MaxURISpace {
		t.markBad(types.DeclErrBitURIOverflow, m.RID)
		return
	}
	if m.URI != nil {
		e.uriSpaceUsed += len(m.URI)
	}
}

// scheduleDeclPub enqueues rid as a DECL-PUB to every currently
// Operational peer (spec §4.6 "On local publish(...): schedule a
// DECL-PUB to all operational peers"). A peer that is not yet
// Operational gets the same declaration as part of its historical
// batch once it becomes Operational; see queueHistoricalDecls.
func (e *Engine) scheduleDeclPub(rid types.RID) {
	for i := range e.peers {
		p := &e.peers[i]
		if p.phase == phaseOperational {
			p.pendingPubs = append(p.pendingPubs, rid)
			p.commitPending = true
		}
	}
}

// scheduleDeclSub enqueues rid/mode as a DECL-SUB to every currently
// Operational peer (spec §4.6 "On local subscribe(...): schedule a
// DECL-SUB").
func (e *Engine) scheduleDeclSub(rid types.RID, mode types.SubMode) {
	for i := range e.peers {
		p := &e.peers[i]
		if p.phase == phaseOperational {
			p.pendingSubs = append(p.pendingSubs, stagedSub{rid: rid, mode: mode})
			p.commitPending = true
		}
	}
}

// queueHistoricalDecls enqueues every currently-registered local
// publication and subscription to pidx: the batch a peer needs before
// it can see any of our traffic, sent once per peer unless reset (spec
// §4.5 "has sent full declare batch").
func (e *Engine) queueHistoricalDecls(pidx types.PeerIndex) {
	p := &e.peers[pidx]
	for i := range e.pubs {
		if e.pubs[i].inUse {
			p.pendingPubs = append(p.pendingPubs, e.pubs[i].rid)
		}
	}
	for i := range e.subs {
		if e.subs[i].inUse {
			p.pendingSubs = append(p.pendingSubs, stagedSub{rid: e.subs[i].rid, mode: types.SubModePush})
		}
	}
	if len(p.pendingPubs) > 0 || len(p.pendingSubs) > 0 {
		p.commitPending = true
	}
}

// ResetScheduledHistoricalDecls clears pidx's "already sent the full
// declare batch" flag and re-queues every current local publication
// and subscription, so the next Housekeeping pass re-emits the
// complete set to it (spec §4.5 last sentence) — used when a peer
// needs to be resynchronized, e.g. after a reconnect is detected at a
// higher layer than this engine.
func (e *Engine) ResetScheduledHistoricalDecls(pidx types.PeerIndex) {
	p := &e.peers[pidx]
	p.scheduledHistDecls = false
	p.pendingPubs = nil
	p.pendingSubs = nil
	e.queueHistoricalDecls(pidx)
}

// curPktAbort discards a peer's in-progress transaction without
// applying it. Declarations are provisional until DECL-COMMIT, so a
// framing error later in the same packet must not leave partial state
// applied.
func (e *Engine) curPktAbort(pidx types.PeerIndex) {
	e.peers[pidx].decl = nil
}

// precommit validates every staged declaration against engine-wide
// state not checkable message-by-message: a peer declaring
// conflicting subscription modes for the same RID within one
// transaction.
func (e *Engine) precommit(t *declTxn) (types.DeclStatus, types.RID, byte) {
	seen := make(map[types.RID]types.SubMode, len(t.subs))
	for _, s := range t.subs {
		if prev, ok := seen[s.rid]; ok && prev != s.mode {
			t.markBad(types.DeclErrBitConflictingMode, s.rid)
		}
		seen[s.rid] = s.mode
	}
	if !t.hasBad {
		return types.DeclOK, 0, 0
	}
	switch {
	case t.errs&types.DeclErrBitRIDRange != 0:
		return types.DeclErrRIDRange, t.firstBad, t.errs
	case t.errs&types.DeclErrBitConflictingMode != 0:
		return types.DeclErrConflictingMode, t.firstBad, t.errs
	default:
		return types.DeclErrURIOverflow, t.firstBad, t.errs
	}
}

// commitDecl applies a precommitted transaction's declarations into
// the peer's remote tables, then clears the transaction. A
// transaction that fails precommit still consumes the DECL-COMMIT
// boundary, it just applies nothing.
func (e *Engine) commitDecl(pidx types.PeerIndex, commit types.CommitID) types.DeclResult {
	p := &e.peers[pidx]
	t := p.decl
	if t == nil {
		return types.DeclResult{Commit: commit, Status: types.DeclOK}
	}
	status, badRID, errs := e.precommit(t)
	if status == types.DeclOK {
		for _, rid := range t.pubs {
			p.remotePubs[rid] = struct{}{}
		}
		for _, s := range t.subs {
			p.remoteSubs[s.rid] = struct{}{}
		}
	}
	p.decl = nil
	return types.DeclResult{Commit: commit, Status: status, RID: badRID, Errors: errs}
}
