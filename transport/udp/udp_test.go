package udp

import (
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/jim1993/zhe/pkg/zhe"
)

func TestTransport_SendRecvRoundTrip(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"))

	a, err := Listen("127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen a: %v", err)
	}
	defer a.Close()
	b, err := Listen("127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen b: %v", err)
	}
	defer b.Close()

	dst, err := a.ParseAddr(a.conn.LocalAddr().String())
	if err != nil {
		t.Fatalf("ParseAddr: %v", err)
	}

	payload := []byte("hello-udp")
	if ok, err := b.Send(payload, dst); !ok || err != nil {
		t.Fatalf("Send: ok=%v err=%v", ok, err)
	}

	if !a.Wait(2000) {
		t.Fatalf("Wait: timed out waiting for datagram")
	}
	buf := make([]byte, 128)
	n, src, err := a.Recv(buf)
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if string(buf[:n]) != string(payload) {
		t.Fatalf("Recv: got %q, want %q", buf[:n], payload)
	}
	if src == nil {
		t.Fatalf("Recv: nil src")
	}
}

func TestTransport_WaitTimesOutWithNoData(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"))

	a, err := Listen("127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer a.Close()

	start := time.Now()
	if a.Wait(50) {
		t.Fatalf("Wait: expected timeout, got data")
	}
	if time.Since(start) < 40*time.Millisecond {
		t.Fatalf("Wait returned too early")
	}
}

func TestDropTransport_DropsAllAtFullPercent(t *testing.T) {
	bus := newFakeTransport()
	d := NewDropTransport(bus, 100, 1)
	ok, err := d.Send([]byte("x"), nil)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !ok {
		t.Fatalf("Send should report ok even when dropped")
	}
	if bus.sent != 0 {
		t.Fatalf("expected 0 forwarded sends at 100%% drop, got %d", bus.sent)
	}
}

func TestDropTransport_ForwardsAllAtZeroPercent(t *testing.T) {
	bus := newFakeTransport()
	d := NewDropTransport(bus, 0, 1)
	for i := 0; i < 10; i++ {
		if _, err := d.Send([]byte("x"), nil); err != nil {
			t.Fatalf("Send: %v", err)
		}
	}
	if bus.sent != 10 {
		t.Fatalf("expected 10 forwarded sends at 0%% drop, got %d", bus.sent)
	}
}

type fakeTransport struct {
	sent int
}

func newFakeTransport() *fakeTransport { return &fakeTransport{} }

func (f *fakeTransport) Wait(timeoutMs int) bool                       { return false }
func (f *fakeTransport) Recv(buf []byte) (int, zhe.Address, error)     { return 0, nil, nil }
func (f *fakeTransport) ParseAddr(s string) (zhe.Address, error)       { return nil, nil }
func (f *fakeTransport) Send(buf []byte, dst zhe.Address) (bool, error) {
	f.sent++
	return true, nil
}
