package zhe

import (
	"github.com/jim1993/zhe/pkg/zhe/types"
	"github.com/jim1993/zhe/pkg/zhe/wire"
)

// Housekeeping performs all time-driven work the engine needs done
// periodically: re-scouting, SYNCH/keepalive emission, lease expiry
// and drain completion. The driver calls this on its own cadence (a
// few times per SynchInterval is plenty); nothing here blocks.
func (e *Engine) Housekeeping(now Time) {
	if now.Sub(e.lastScout) >= int32(e.cfg.SynchInterval*5) {
		e.emitScout(now)
		e.lastScout = now
	}
	if now.Sub(e.lastSynch) >= int32(e.cfg.SynchInterval) {
		e.emitSynchs(now)
		e.lastSynch = now
	}
	e.flushDecls()
	e.expireLeases(now)
	e.drainClosingPeers(now)
}

// flushDecls sends every Operational peer's queued DECL-PUB/DECL-SUB
// batch, up to what fits in one MTU-sized datagram per peer per call
// (spec §4.7's third responsibility); a batch too large for one
// datagram finishes draining on a later Housekeeping call before its
// DECL-COMMIT is sent, since the declaration engine on the far end
// accumulates staged declarations across packets until commit arrives.
func (e *Engine) flushDecls() {
	for i := range e.peers {
		p := &e.peers[i]
		if p.phase != phaseOperational {
			continue
		}
		e.flushDeclsToPeer(types.PeerIndex(i))
	}
}

func (e *Engine) flushDeclsToPeer(pidx types.PeerIndex) {
	p := &e.peers[pidx]
	if len(p.pendingPubs) == 0 && len(p.pendingSubs) == 0 && !p.commitPending {
		return
	}
	w := wire.NewWriter(e.writeBuf)
	for len(p.pendingPubs) > 0 {
		if !w.PutDeclPub(types.DeclPub{RID: p.pendingPubs[0]}) {
			break
		}
		p.pendingPubs = p.pendingPubs[1:]
	}
	for len(p.pendingSubs) > 0 {
		s := p.pendingSubs[0]
		if !w.PutDeclSub(types.DeclSub{RID: s.rid, Mode: s.mode}) {
			break
		}
		p.pendingSubs = p.pendingSubs[1:]
	}
	committed := false
	if len(p.pendingPubs) == 0 && len(p.pendingSubs) == 0 {
		commit := e.nextCommit + 1
		if w.PutDeclCommit(types.DeclCommit{Commit: commit}) {
			e.nextCommit = commit
			committed = true
		}
	}
	if w.Len() == 0 {
		return
	}
	if _, err := e.trans.Send(w.Bytes(), p.addr); err == nil && committed {
		p.commitPending = false
		p.scheduledHistDecls = true
	}
}

// emitSynchs announces every live window's current tail: one per
// (peer, unicast conduit) plus one per mconduit.
func (e *Engine) emitSynchs(now Time) {
	for i := range e.peers {
		p := &e.peers[i]
		if p.phase != phaseOperational {
			continue
		}
		for cid, win := range p.uniWindows {
			e.sendSynch(p.addr, cid, win.NextSeq())
		}
	}
	for i := range e.mconduits {
		mc := &e.mconduits[i]
		e.sendSynch(mc.dst, mc.id, mc.window.NextSeq())
	}
}

func (e *Engine) sendSynch(dst Address, cid types.ConduitID, seq types.Seq) {
	w := wire.NewWriter(e.writeBuf)
	if w.PutSynch(types.Synch{Conduit: cid, SeqBase: seq}) {
		e.trans.Send(w.Bytes(), dst)
		e.tele.SynchSent.Inc()
	}
}

// expireLeases moves any peer that has gone quiet past its lease into
// Draining (if Operational) or straight back to Free (if it never
// finished Discovering).
func (e *Engine) expireLeases(now Time) {
	for i := range e.peers {
		p := &e.peers[i]
		if p.phase != phaseOperational && p.phase != phaseDiscovering {
			continue
		}
		if now.Sub(p.lastHeard) < int32(p.leaseMs) {
			continue
		}
		idx := types.PeerIndex(i)
		if next, ok := advance(p.phase, evLeaseTimeout); ok {
			wasOperational := p.phase == phaseOperational
			p.phase = next
			if next == phaseFree {
				e.log.Infof("peer %s lease expired while discovering, freed", p.id)
				e.freePeer(idx)
			} else if wasOperational {
				p.drainDeadline = now + Time(p.leaseMs)
				e.log.Infof("peer %s lease expired, draining", p.id)
				for mi := range e.mconduits {
					if e.mconduits[mi].heap.Contains(idx) {
						e.mconduits[mi].heap.Delete(idx)
						e.reclaimMConduit(mi)
					}
				}
			}
		}
	}
}

// drainClosingPeers frees any Draining peer whose transmit windows
// have emptied, or whose drain deadline has simply passed (a stalled
// drain must not hold an arena slot forever).
func (e *Engine) drainClosingPeers(now Time) {
	for i := range e.peers {
		p := &e.peers[i]
		if p.phase != phaseDraining {
			continue
		}
		drained := true
		for _, win := range p.uniWindows {
			if !win.Empty() {
				drained = false
				break
			}
		}
		if drained || !now.Before(p.drainDeadline) {
			if _, ok := advance(p.phase, evDrainComplete); ok {
				e.log.Infof("peer %s drain complete, slot freed", p.id)
				e.freePeer(types.PeerIndex(i))
			}
		}
	}
}
