package zhe

import (
	"github.com/jim1993/zhe/pkg/zhe/types"
	"github.com/jim1993/zhe/pkg/zhe/wire"
)

// SubHandler is invoked, in registration order, for every sample
// delivered to a matching local subscription (spec §4.6: "handlers
// fire in the order they were registered").
type SubHandler func(rid types.RID, payload []byte, arg interface{})

type pubEntry struct {
	inUse bool
	rid   types.RID
	cid   types.ConduitID
	kind  ConduitKind
}

type subEntry struct {
	inUse   bool
	rid     types.RID
	maxSize int
	cidHint types.ConduitID
	handler SubHandler
	arg     interface{}
}

// Publish registers a local publication of rid on conduit cid,
// returning a stable handle for later Write calls, and schedules a
// DECL-PUB to every operational peer (spec §4.6) so remote
// subscribers learn about it on the next Housekeeping flush. reliable
// must agree with cid's static kind (ConduitBestEffort => false,
// anything else => true); a mismatch is logged and the conduit's
// actual kind wins, since reliability is a property of the conduit,
// not of any one publication (spec §3).
func (e *Engine) Publish(rid types.RID, cid types.ConduitID, reliable bool) (types.PubIdx, error) {
	if rid > e.cfg.MaxRID {
		return 0, ErrBadConfig
	}
	kind, ok := e.cfg.conduitKind(cid)
	if !ok {
		return 0, ErrUnknownConduit
	}
	if reliable != (kind != ConduitBestEffort) {
		e.log.Warnf("publish rid=%d cid=%d: reliable=%v ignored, conduit kind is %v", rid, cid, reliable, kind)
	}
	e.scheduleDeclPub(rid)
	for i := range e.pubs {
		if !e.pubs[i].inUse {
			e.pubs[i] = pubEntry{inUse: true, rid: rid, cid: cid, kind: kind}
			return types.PubIdx(i), nil
		}
	}
	e.pubs = append(e.pubs, pubEntry{inUse: true, rid: rid, cid: cid, kind: kind})
	return types.PubIdx(len(e.pubs) - 1), nil
}

// Subscribe registers handler to be called for every sample received
// for rid, regardless of which conduit or peer it arrives on, and
// schedules a DECL-SUB to every operational peer (spec §3/§4.6/§6:
// "subscribe(rid, max_size, cid, handler, arg) -> subidx"). maxSize
// and cidHint are recorded on the handle as declared capability
// metadata; routing itself is keyed on rid alone.
func (e *Engine) Subscribe(rid types.RID, maxSize int, cidHint types.ConduitID, handler SubHandler, arg interface{}) (types.SubIdx, error) {
	if rid > e.cfg.MaxRID {
		return 0, ErrBadConfig
	}
	e.scheduleDeclSub(rid, types.SubModePush)
	for i := range e.subs {
		if !e.subs[i].inUse {
			e.subs[i] = subEntry{inUse: true, rid: rid, maxSize: maxSize, cidHint: cidHint, handler: handler, arg: arg}
			return types.SubIdx(i), nil
		}
	}
	e.subs = append(e.subs, subEntry{inUse: true, rid: rid, maxSize: maxSize, cidHint: cidHint, handler: handler, arg: arg})
	return types.SubIdx(len(e.subs) - 1), nil
}

// Unsubscribe releases a subscription handle.
func (e *Engine) Unsubscribe(idx types.SubIdx) {
	if int(idx) < len(e.subs) {
		e.subs[idx] = subEntry{}
	}
}

// Write publishes payload under pubidx. ok is false, with
// ErrWindowFull, if a reliable conduit's window has no room for a
// destination and the caller should retry after Housekeeping (or a
// peer's ack) has freed space; best-effort conduits never fail this
// way.
func (e *Engine) Write(pubidx types.PubIdx, payload []byte) (bool, error) {
	if int(pubidx) >= len(e.pubs) || !e.pubs[pubidx].inUse {
		return false, ErrUnknownPub
	}
	pub := e.pubs[pubidx]

	// Local loopback: a locally-published RID that is also locally
	// subscribed is delivered directly, bypassing the wire entirely
	// (resolves the spec's open question on local pub/sub loopback).
	e.deliverLocal(pub.rid, payload)

	switch pub.kind {
	case ConduitBestEffort:
		return e.writeBestEffort(pub, payload), nil
	case ConduitReliableUnicast:
		return e.writeReliableUnicast(pub, payload)
	case ConduitReliableMulti:
		return e.writeReliableMulti(pub, payload)
	default:
		return false, ErrUnknownConduit
	}
}

func (e *Engine) writeBestEffort(pub pubEntry, payload []byte) bool {
	w := wire.NewWriter(e.writeBuf)
	msg := types.Data{RID: pub.rid, Payload: payload}
	if !w.PutData(msg) {
		return false
	}
	sent := false
	for i := range e.peers {
		p := &e.peers[i]
		if p.phase != phaseOperational {
			continue
		}
		if _, ok := p.remoteSubs[pub.rid]; !ok {
			continue
		}
		if ok, _ := e.trans.Send(w.Bytes(), p.addr); ok {
			sent = true
		}
	}
	return sent
}

func (e *Engine) writeReliableUnicast(pub pubEntry, payload []byte) (bool, error) {
	allOK := true
	for i := range e.peers {
		p := &e.peers[i]
		if p.phase != phaseOperational {
			continue
		}
		if _, ok := p.remoteSubs[pub.rid]; !ok {
			continue
		}
		win, ok := p.uniWindows[pub.cid]
		if !ok {
			win = newUnicastWindow(e.cfg)
			p.uniWindows[pub.cid] = win
		}
		seq := win.NextSeq()
		w := wire.NewWriter(e.writeBuf)
		msg := types.MData{Conduit: pub.cid, Seq: seq, RID: pub.rid, Payload: payload}
		if !w.PutMData(msg) {
			allOK = false
			continue
		}
		if _, ok := win.Write(w.Bytes()); !ok {
			allOK = false
			continue
		}
		e.trans.Send(w.Bytes(), p.addr)
	}
	if !allOK {
		return false, ErrWindowFull
	}
	return true, nil
}

func (e *Engine) writeReliableMulti(pub pubEntry, payload []byte) (bool, error) {
	mi, ok := e.mconduitIndex(pub.cid)
	if !ok {
		return false, ErrUnknownConduit
	}
	mc := &e.mconduits[mi]
	seq := mc.window.NextSeq()
	w := wire.NewWriter(e.writeBuf)
	msg := types.MData{Conduit: pub.cid, Seq: seq, RID: pub.rid, Payload: payload}
	if !w.PutMData(msg) {
		return false, ErrBadConfig
	}
	if _, ok := mc.window.Write(w.Bytes()); !ok {
		return false, ErrWindowFull
	}
	e.trans.Send(w.Bytes(), mc.dst)
	return true, nil
}

func (e *Engine) mconduitIndex(cid types.ConduitID) (int, bool) {
	for i := range e.mconduits {
		if e.mconduits[i].id == cid {
			return i, true
		}
	}
	return -1, false
}

// deliverLocal invokes every local handler registered for rid, in
// registration order, bumping Delivered/Discarded telemetry.
func (e *Engine) deliverLocal(rid types.RID, payload []byte) {
	matched := false
	for i := range e.subs {
		s := &e.subs[i]
		if !s.inUse || s.rid != rid {
			continue
		}
		matched = true
		s.handler(rid, payload, s.arg)
		e.tele.Delivered.Inc()
	}
	if !matched {
		e.tele.Discarded.Inc()
	}
}
