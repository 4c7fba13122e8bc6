package zhe

import (
	"testing"

	"github.com/jim1993/zhe/pkg/zhe/types"
)

// memAddr/memBus give the test suite a deterministic, synchronous
// Transport: Send hands the datagram straight to the addressed peer's
// inbox (tagged with its sender), no goroutines or real sockets
// involved.
type memAddr struct{ name string }

func (a memAddr) String() string       { return a.name }
func (a memAddr) Equal(o Address) bool { m, ok := o.(memAddr); return ok && m.name == a.name }

type memDatagram struct {
	src     memAddr
	payload []byte
}

type memBus struct {
	inboxes map[string]*[]memDatagram
}

func newMemBus() *memBus { return &memBus{inboxes: make(map[string]*[]memDatagram)} }

func (b *memBus) register(name string) *memTransport {
	box := &[]memDatagram{}
	b.inboxes[name] = box
	return &memTransport{bus: b, self: memAddr{name}, box: box}
}

type memTransport struct {
	bus  *memBus
	self memAddr
	box  *[]memDatagram
}

func (t *memTransport) Wait(timeoutMs int) bool { return len(*t.box) > 0 }

func (t *memTransport) Recv(buf []byte) (int, Address, error) {
	if len(*t.box) == 0 {
		return 0, nil, nil
	}
	d := (*t.box)[0]
	*t.box = (*t.box)[1:]
	n := copy(buf, d.payload)
	return n, d.src, nil
}

func (t *memTransport) Send(buf []byte, dst Address) (bool, error) {
	d := dst.(memAddr)
	box, ok := t.bus.inboxes[d.name]
	if !ok {
		return false, nil
	}
	cp := append([]byte(nil), buf...)
	*box = append(*box, memDatagram{src: t.self, payload: cp})
	return true, nil
}

func (t *memTransport) ParseAddr(s string) (Address, error) { return memAddr{s}, nil }

func newTestConfig(id string) *Config {
	cfg := DefaultConfig(types.PeerID(id))
	cfg.MConduitDstAddrs = []Address{memAddr{"mcast-1"}}
	return cfg
}

func TestConfig_ValidateRejectsEmptyID(t *testing.T) {
	cfg := DefaultConfig(nil)
	cfg.MConduitDstAddrs = []Address{memAddr{"m"}}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for empty peer id")
	}
}

func TestConfig_ValidateRejectsMConduitMismatch(t *testing.T) {
	cfg := DefaultConfig(types.PeerID("a"))
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error: mconduit dst addr count must match conduit table")
	}
}

func TestEngine_InitRejectsNilTransport(t *testing.T) {
	e := NewEngine()
	cfg := newTestConfig("a")
	if err := e.Init(cfg, nil, 0); err == nil {
		t.Fatalf("expected ErrTransportInit")
	}
}

func TestEngine_PublishSubscribeLocalLoopback(t *testing.T) {
	bus := newMemBus()
	trans := bus.register("a")
	e := NewEngine()
	if err := e.Init(newTestConfig("a"), trans, 0); err != nil {
		t.Fatalf("Init: %v", err)
	}
	var got []byte
	if _, err := e.Subscribe(42, 0, 0, func(rid types.RID, payload []byte, arg interface{}) {
		got = payload
	}, nil); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	pubidx, err := e.Publish(42, 0, true)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if ok, err := e.Write(pubidx, []byte("hello")); !ok || err != nil {
		t.Fatalf("Write: ok=%v err=%v", ok, err)
	}
	if string(got) != "hello" {
		t.Fatalf("loopback delivery: got %q", got)
	}
}

// TestEngine_TwoPeerDiscoveryAndReliableDelivery drives two engines
// over the in-memory bus through scenario 1: discovery handshake,
// real DECL-SUB propagation (via b's Subscribe + Housekeeping flush,
// the documented API end to end, no hand-forged wire bypass), then a
// reliable publish reaching the remote subscriber.
func TestEngine_TwoPeerDiscoveryAndReliableDelivery(t *testing.T) {
	bus := newMemBus()
	transA := bus.register("a")
	transB := bus.register("b")

	cfgA := newTestConfig("a")
	cfgA.ScoutAddr = memAddr{"b"}
	cfgB := newTestConfig("b")

	a, b := NewEngine(), NewEngine()
	if err := a.Init(cfgA, transA, 0); err != nil {
		t.Fatalf("Init a: %v", err)
	}
	if err := b.Init(cfgB, transB, 0); err != nil {
		t.Fatalf("Init b: %v", err)
	}

	var delivered []byte
	if _, err := b.Subscribe(7, 0, 0, func(rid types.RID, payload []byte, arg interface{}) {
		delivered = payload
	}, nil); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	a.Start(0)
	pump(t, bus, a, b, 10)

	if a.peers[0].phase != phaseOperational {
		t.Fatalf("peer a did not reach Operational: %v", a.peers[0].phase)
	}
	if b.peers[0].phase != phaseOperational {
		t.Fatalf("peer b did not reach Operational: %v", b.peers[0].phase)
	}

	// b's subscription was registered before a existed, so it rides
	// the historical-decl batch queued when b's peer entry for a
	// turned Operational; Housekeeping flushes it for real.
	b.Housekeeping(100)
	pump(t, bus, a, b, 5)

	if _, ok := a.peers[0].remoteSubs[7]; !ok {
		t.Fatalf("a never learned b's subscription to rid 7")
	}

	pubidx, err := a.Publish(7, 0, true)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if ok, err := a.Write(pubidx, []byte("payload-1")); !ok || err != nil {
		t.Fatalf("Write: ok=%v err=%v", ok, err)
	}
	pump(t, bus, a, b, 5)

	if string(delivered) != "payload-1" {
		t.Fatalf("expected remote delivery, got %q", delivered)
	}
}

func pump(t *testing.T, bus *memBus, a, b *Engine, rounds int) {
	t.Helper()
	buf := make([]byte, 2048)
	engines := map[string]*Engine{string(a.cfg.ID): a, string(b.cfg.ID): b}
	for i := 0; i < rounds; i++ {
		progressed := false
		for name, e := range engines {
			inbox := bus.inboxes[name]
			for len(*inbox) > 0 {
				d := (*inbox)[0]
				*inbox = (*inbox)[1:]
				n := copy(buf, d.payload)
				if err := e.Input(buf[:n], d.src, Time(i)); err != nil {
					t.Fatalf("Input: %v", err)
				}
				progressed = true
			}
		}
		if !progressed {
			break
		}
	}
}
