package zhe

import (
	"github.com/jim1993/zhe/pkg/zhe/core"
	"github.com/jim1993/zhe/pkg/zhe/types"
	"github.com/jim1993/zhe/pkg/zhe/wire"
)

// handleSynch processes a peer's announcement of its own transmit-
// window tail; we reply with an ACKNACK for the matching reliable
// conduit window we keep on the receive side. Since this engine does
// not itself retain a receive-side reorder buffer beyond gap
// detection, the ACKNACK we emit simply acknowledges up to the
// highest contiguous sequence observed so far.
func (e *Engine) handleSynch(pidx types.PeerIndex, payload []byte) {
	m, ok := wire.DecodeSynch(payload)
	if !ok {
		return
	}
	p := &e.peers[pidx]
	acked := p.uniAcked[m.Conduit]
	w := wire.NewWriter(e.writeBuf)
	if w.PutAckNack(types.AckNack{Conduit: m.Conduit, SeqBase: acked}) {
		e.trans.Send(w.Bytes(), p.addr)
	}
}

// handleAckNack folds a destination's acknowledgement into the
// relevant window: a unicast conduit's window is reclaimed directly;
// an mconduit's window is gated through the min-sequence heap so it
// only ever advances past the slowest live participant (spec §3
// invariant 3, §4.3).
func (e *Engine) handleAckNack(pidx types.PeerIndex, payload []byte) {
	m, ok := wire.DecodeAckNack(payload)
	if !ok {
		return
	}
	p := &e.peers[pidx]
	if win, ok := p.uniWindows[m.Conduit]; ok {
		win.Reclaim(m.SeqBase)
		return
	}
	if mi, ok := e.mconduitIndex(m.Conduit); ok {
		mc := &e.mconduits[mi]
		if mc.heap.Contains(pidx) {
			newMin := mc.heap.Update(pidx, m.SeqBase, mc.window.Base())
			mc.window.Reclaim(newMin)
		}
	}
	if m.Mask != 0 {
		e.retransmitMissing(pidx, m)
	}
}

// retransmitMissing re-sends the sequences flagged missing in an
// ACKNACK's bitmask, looked up from whichever window (unicast or
// mconduit) currently holds them.
func (e *Engine) retransmitMissing(pidx types.PeerIndex, m types.AckNack) {
	p := &e.peers[pidx]
	win, ok := p.uniWindows[m.Conduit]
	if !ok {
		if mi, mok := e.mconduitIndex(m.Conduit); mok {
			win = e.mconduits[mi].window
		}
	}
	if win == nil {
		return
	}
	dst := make([]byte, len(e.writeBuf))
	for i := 0; i < 32; i++ {
		if m.Mask&(1<<uint(i)) == 0 {
			continue
		}
		seq := m.SeqBase + types.Seq(i)
		n, ok := win.Lookup(seq, dst)
		if !ok {
			// The peer is nacking a sequence this window has already
			// reclaimed: it has fallen further behind than retransmission
			// can repair (spec §7 "missing sequence beyond the window").
			e.closeForViolation(pidx, "nack for sequence beyond the retransmit window")
			return
		}
		e.trans.Send(dst[:n], p.addr)
	}
}

// closeReasonReliabilityViolation marks a CLOSE this engine sends
// because it is force-closing the peer itself, as opposed to a
// peer-initiated graceful CLOSE.
const closeReasonReliabilityViolation uint8 = 1

// closeForViolation tears pidx down immediately after a reliability
// violation (spec §7: missing sequence beyond the window, or a
// duplicate OPEN with a conflicting peer id). Unlike a graceful CLOSE
// there is no drain period — the peer's own state is already
// inconsistent, so nothing further is owed to it before the peeridx is
// freed.
func (e *Engine) closeForViolation(pidx types.PeerIndex, reason string) {
	p := &e.peers[pidx]
	e.log.Warnf("peer %s: %v: %s", p.id, ErrReliabilityViolation, reason)
	w := wire.NewWriter(e.writeBuf)
	if w.PutClose(types.Close{ID: e.cfg.ID, Reason: closeReasonReliabilityViolation}) {
		e.trans.Send(w.Bytes(), p.addr)
	}
	e.freePeer(pidx)
}

// reclaimMConduit recomputes an mconduit's window reclaim point from
// its heap's current minimum, called after a participant is removed
// (e.g. lease expiry) since that can advance the minimum on its own.
func (e *Engine) reclaimMConduit(mi int) {
	mc := &e.mconduits[mi]
	if mc.heap.IsEmpty() {
		mc.window.Reclaim(mc.window.NextSeq())
		return
	}
	mc.window.Reclaim(mc.heap.Min())
}

func (e *Engine) handleData(payload []byte) {
	m, ok := wire.DecodeData(payload)
	if !ok {
		return
	}
	e.deliverLocal(m.RID, m.Payload)
}

func (e *Engine) handleMData(pidx types.PeerIndex, payload []byte) {
	m, ok := wire.DecodeMData(payload)
	if !ok {
		return
	}
	p := &e.peers[pidx]
	expected := p.uniAcked[m.Conduit]
	if core.SeqLT(expected, m.Seq, e.cfg.SeqnumWidth) {
		e.tele.OutOfOrder.Inc()
	}
	if core.SeqLE(expected, m.Seq, e.cfg.SeqnumWidth) {
		p.uniAcked[m.Conduit] = m.Seq + 1
	}
	e.deliverLocal(m.RID, m.Payload)
}

func (e *Engine) handleWData(payload []byte) {
	m, ok := wire.DecodeWData(payload)
	if !ok {
		return
	}
	// URI-named samples are not routed through the RID table; a
	// driver that cares about them subscribes by URI at a higher
	// layer than this engine (spec §4.6 "Non-goals: URI routing
	// policy").
	e.log.Debugf("wdata uri=%q (%d bytes) received, no URI routing configured", m.URI, len(m.Payload))
}

func (e *Engine) handleDeclRes(pidx types.PeerIndex, payload []byte) {
	m, ok := wire.DecodeDeclRes(payload)
	if !ok {
		return
	}
	e.stageRes(pidx, m)
}

func (e *Engine) handleDeclPub(pidx types.PeerIndex, payload []byte) {
	m, ok := wire.DecodeDeclPub(payload)
	if !ok {
		return
	}
	e.stagePub(pidx, m)
}

func (e *Engine) handleDeclSub(pidx types.PeerIndex, payload []byte) {
	m, ok := wire.DecodeDeclSub(payload)
	if !ok {
		return
	}
	e.stageSub(pidx, m)
}

func (e *Engine) handleDeclCommit(pidx types.PeerIndex, payload []byte, now Time) {
	m, ok := wire.DecodeDeclCommit(payload)
	if !ok {
		return
	}
	result := e.commitDecl(pidx, m.Commit)
	p := &e.peers[pidx]
	w := wire.NewWriter(e.writeBuf)
	if w.PutDeclResult(result) {
		e.trans.Send(w.Bytes(), p.addr)
	}
}

func (e *Engine) handleDeclResult(pidx types.PeerIndex, payload []byte) {
	m, ok := wire.DecodeDeclResult(payload)
	if !ok {
		return
	}
	if m.Status != types.DeclOK {
		e.log.Warnf("peer %s rejected declaration commit %d: status=%d rid=%d errs=0x%x",
			e.peers[pidx].id, m.Commit, m.Status, m.RID, m.Errors)
	}
}
