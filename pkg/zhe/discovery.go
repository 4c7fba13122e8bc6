package zhe

import (
	"github.com/jim1993/zhe/pkg/zhe/types"
	"github.com/jim1993/zhe/pkg/zhe/wire"
)

// emitScout broadcasts a SCOUT to every configured rendezvous point,
// the only message a brand-new engine sends before it has any peer at
// all (spec §4.4 "discovery").
func (e *Engine) emitScout(now Time) {
	w := wire.NewWriter(e.writeBuf)
	if !w.PutScout(e.cfg.ID) {
		return
	}
	if e.cfg.ScoutAddr != nil {
		e.trans.Send(w.Bytes(), e.cfg.ScoutAddr)
	}
	for _, a := range e.cfg.MCGroupsJoin {
		e.trans.Send(w.Bytes(), a)
	}
}

func (e *Engine) sendHello(dst Address) {
	w := wire.NewWriter(e.writeBuf)
	if w.PutHello(types.Hello{ID: e.cfg.ID, Lease: e.cfg.LeaseDuration}) {
		e.trans.Send(w.Bytes(), dst)
	}
}

func (e *Engine) sendOpen(dst Address) {
	w := wire.NewWriter(e.writeBuf)
	if w.PutOpen(types.Open{ID: e.cfg.ID, Lease: e.cfg.LeaseDuration}) {
		e.trans.Send(w.Bytes(), dst)
	}
}

func (e *Engine) sendAccept(dst Address, remoteID types.PeerID) {
	w := wire.NewWriter(e.writeBuf)
	if w.PutAccept(types.Accept{ID: e.cfg.ID, WhatPeerID: remoteID}) {
		e.trans.Send(w.Bytes(), dst)
	}
}

// ensurePeer resolves *pidx/*found to src's arena slot, allocating a
// fresh one via evDiscover if src was unknown. ok is false only on
// resource exhaustion (spec §7 "no free peeridx").
func (e *Engine) ensurePeer(id types.PeerID, src Address, pidx *types.PeerIndex, found *bool, now Time) bool {
	if *found {
		return true
	}
	idx, ok := e.allocPeer(id, src, now)
	if !ok {
		e.log.Warnf("discovery from %s dropped: %v", src, ErrNoFreePeerIndex)
		return false
	}
	if next, ok := advance(phaseFree, evDiscover); ok {
		e.peers[idx].phase = next
	}
	*pidx = idx
	*found = true
	return true
}

func (e *Engine) handleScout(payload []byte, src Address, pidx *types.PeerIndex, found *bool, now Time) {
	m, ok := wire.DecodeScout(payload)
	if !ok {
		return
	}
	if !e.ensurePeer(m.ID, src, pidx, found, now) {
		return
	}
	e.sendHello(src)
	p := &e.peers[*pidx]
	p.passive = e.cfg.ID.Less(m.ID)
	if !p.passive {
		e.sendOpen(src)
	}
}

func (e *Engine) handleHello(payload []byte, src Address, pidx *types.PeerIndex, found *bool, now Time) {
	m, ok := wire.DecodeHello(payload)
	if !ok {
		return
	}
	wasKnown := *found
	if !e.ensurePeer(m.ID, src, pidx, found, now) {
		return
	}
	p := &e.peers[*pidx]
	p.passive = e.cfg.ID.Less(m.ID)
	if !wasKnown && !p.passive {
		// We sort higher: we are the active side, so we initiate OPEN.
		e.sendOpen(src)
	}
}

func (e *Engine) handleOpen(payload []byte, src Address, pidx *types.PeerIndex, found *bool, now Time) {
	m, ok := wire.DecodeOpen(payload)
	if !ok {
		return
	}
	wasKnown := *found
	if !e.ensurePeer(m.ID, src, pidx, found, now) {
		return
	}
	p := &e.peers[*pidx]
	if wasKnown && p.phase == phaseOperational && !p.id.Equal(m.ID) {
		// Same address, already Operational, but a different claimed
		// peer id: the remote end reset without us noticing (spec §7
		// "duplicate OPEN with conflicting ID").
		e.closeForViolation(*pidx, "duplicate OPEN with conflicting peer id")
		return
	}
	p.passive = e.cfg.ID.Less(m.ID)
	p.leaseMs = m.Lease
	e.sendAccept(src, m.ID)
	if p.phase != phaseOperational {
		if next, ok := advance(p.phase, evAccept); ok {
			p.phase = next
			p.lastHeard = now
			e.joinMConduits(*pidx)
			e.queueHistoricalDecls(*pidx)
			e.log.Infof("peer %s operational (received OPEN)", m.ID)
		}
	}
}

func (e *Engine) handleAccept(payload []byte, src Address, pidx *types.PeerIndex, found *bool, now Time) {
	m, ok := wire.DecodeAccept(payload)
	if !ok || !*found {
		return
	}
	p := &e.peers[*pidx]
	if !m.WhatPeerID.Equal(e.cfg.ID) {
		return
	}
	if next, ok := advance(p.phase, evAccept); ok {
		p.phase = next
		p.lastHeard = now
		e.joinMConduits(*pidx)
		e.queueHistoricalDecls(*pidx)
		e.log.Infof("peer %s operational (received ACCEPT)", m.ID)
	}
}

func (e *Engine) handleClose(payload []byte, src Address, pidx *types.PeerIndex, found *bool, now Time) {
	_, ok := wire.DecodeClose(payload)
	if !ok || !*found {
		return
	}
	p := &e.peers[*pidx]
	if next, ok := advance(p.phase, evClose); ok {
		p.phase = next
		p.drainDeadline = now + Time(e.cfg.LeaseDuration)
		e.log.Infof("peer %s closing, draining", p.id)
	}
}
