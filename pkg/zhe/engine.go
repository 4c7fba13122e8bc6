// Package zhe implements a compact, single-threaded peer-to-peer
// publish/subscribe protocol engine: a packet codec, a wrap-aware
// sequence/reliability layer, a peer discovery and session state
// machine, a two-phase declaration engine and RID-keyed pub/sub
// routing, all driven cooperatively through Init/Input/Housekeeping/
// Write — the engine itself never blocks and never starts a
// goroutine.
package zhe

import (
	"github.com/jim1993/zhe/pkg/zhe/core"
	"github.com/jim1993/zhe/pkg/zhe/definition"
	"github.com/jim1993/zhe/pkg/zhe/types"
	"github.com/jim1993/zhe/pkg/zhe/wire"
)

// mconduitState is the shared reliability context for one reliable
// multi-destination conduit: a single TxWindow gated by the minimum
// acknowledged sequence across its live participants, tracked in heap.
type mconduitState struct {
	id     types.ConduitID
	window *core.TxWindow
	heap   *core.MinSeqHeap
	dst    Address
}

// Engine is the whole protocol state for one local peer. Zero value
// is not usable; call Init before anything else.
type Engine struct {
	cfg   *Config
	trans Transport
	log   definition.Logger
	tele  *Telemetry

	peers  []peer
	byAddr map[string]types.PeerIndex

	mconduits []mconduitState

	pubs []pubEntry
	subs []subEntry

	uriSpaceUsed int
	nextCommit   types.CommitID

	lastScout     Time
	lastSynch     Time

	writeBuf []byte // scratch MTU-sized buffer, reused across Write/housekeeping calls
}

// NewEngine returns an uninitialized Engine; call Init before use.
func NewEngine() *Engine {
	return &Engine{}
}

// Telemetry returns the engine's read-only counters view.
func (e *Engine) Telemetry() *Telemetry { return e.tele }

// Init validates cfg, wires trans, and allocates every static table
// (peer arena, mconduit windows/heaps) up front — no table grows
// afterward.
func (e *Engine) Init(cfg *Config, trans Transport, now Time) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if trans == nil {
		return ErrTransportInit
	}
	e.cfg = cfg
	e.trans = trans
	e.log = cfg.Logger
	if e.log == nil {
		e.log = definition.NewDefaultLogger()
	}
	e.tele = newTelemetry(cfg.ID.String())

	e.peers = make([]peer, cfg.MaxPeers)
	e.byAddr = make(map[string]types.PeerIndex, cfg.MaxPeers)

	mcIDs := cfg.mconduitIDs()
	e.mconduits = make([]mconduitState, len(mcIDs))
	for i, id := range mcIDs {
		e.mconduits[i] = mconduitState{
			id:     id,
			window: core.NewTxWindow(windowByteCap(cfg), windowEntryCap(cfg), cfg.SeqnumWidth),
			heap:   core.NewMinSeqHeap(cfg.MaxPeers, cfg.SeqnumWidth),
			dst:    cfg.MConduitDstAddrs[i],
		}
	}

	e.writeBuf = make([]byte, cfg.TransportMTU)
	e.lastScout = now
	e.lastSynch = now
	e.log.Infof("zhe engine initialized: id=%s maxpeers=%d conduits=%d mconduits=%d", cfg.ID, cfg.MaxPeers, len(cfg.Conduits), len(mcIDs))
	return nil
}

func windowByteCap(cfg *Config) int  { return cfg.TransportMTU * 16 }
func windowEntryCap(cfg *Config) int { return 256 }

func newUnicastWindow(cfg *Config) *core.TxWindow {
	return core.NewTxWindow(windowByteCap(cfg), windowEntryCap(cfg), cfg.SeqnumWidth)
}

// Start emits the engine's initial SCOUT, beginning discovery.
func (e *Engine) Start(now Time) {
	e.emitScout(now)
	e.lastScout = now
}

// Input processes one received datagram from src. A codec-level
// framing error aborts the remainder of this datagram only; the peer
// itself is never torn down by a malformed packet (spec §7).
func (e *Engine) Input(buf []byte, src Address, now Time) error {
	pidx, found := e.lookupPeer(src)

	r := wire.NewReader(buf)
	for !r.Done() {
		kind, payload, err := r.Next()
		if err != nil {
			e.log.Warnf("malformed packet from %s: %v", src, err)
			if found {
				e.curPktAbort(pidx)
			}
			return nil
		}
		e.dispatch(kind, payload, src, &pidx, &found, now)
	}
	return nil
}

// dispatch routes one decoded message to the session, declaration or
// pub/sub layer, resolving/allocating the sender's peer index as
// needed. pidx/found are updated in place since a SCOUT/HELLO/OPEN can
// allocate a brand-new peer mid-datagram.
func (e *Engine) dispatch(kind types.Kind, payload []byte, src Address, pidx *types.PeerIndex, found *bool, now Time) {
	switch kind {
	case types.KindScout:
		e.handleScout(payload, src, pidx, found, now)
	case types.KindHello:
		e.handleHello(payload, src, pidx, found, now)
	case types.KindOpen:
		e.handleOpen(payload, src, pidx, found, now)
	case types.KindAccept:
		e.handleAccept(payload, src, pidx, found, now)
	case types.KindClose:
		e.handleClose(payload, src, pidx, found, now)
	default:
		if !*found {
			e.log.Debugf("%v from unknown peer %s, discarded", kind, src)
			return
		}
		e.touchPeer(*pidx, now)
		switch kind {
		case types.KindSynch:
			e.handleSynch(*pidx, payload)
		case types.KindAckNack:
			e.handleAckNack(*pidx, payload)
		case types.KindDeclRes:
			e.handleDeclRes(*pidx, payload)
		case types.KindDeclPub:
			e.handleDeclPub(*pidx, payload)
		case types.KindDeclSub:
			e.handleDeclSub(*pidx, payload)
		case types.KindDeclCommit:
			e.handleDeclCommit(*pidx, payload, now)
		case types.KindDeclResult:
			e.handleDeclResult(*pidx, payload)
		case types.KindData:
			e.handleData(payload)
		case types.KindMData:
			e.handleMData(*pidx, payload)
		case types.KindWData:
			e.handleWData(payload)
		}
	}
}

// touchPeer records "any valid message" traffic, refreshing the lease
// and keeping an Operational peer Operational.
func (e *Engine) touchPeer(pidx types.PeerIndex, now Time) {
	p := &e.peers[pidx]
	p.lastHeard = now
	if p.phase == phaseOperational {
		advance(p.phase, evValidMessage)
	}
}
