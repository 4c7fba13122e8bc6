package udp

import (
	"math/rand"

	"github.com/jim1993/zhe/pkg/zhe"
)

// DropTransport wraps another zhe.Transport and drops a configurable
// percentage of outgoing Send calls, simulating the lossy links
// scenario 2 exercises (best-effort delivery under induced loss).
// Grounded on original_source/'s drop_pct demo option: the reference
// C driver injects loss the same way, at Send time, so retransmission
// and SYNCH/ACKNACK behavior can be observed under real packet loss
// without a real lossy network.
type DropTransport struct {
	zhe.Transport
	dropPct int
	rnd     *rand.Rand
}

// NewDropTransport wraps inner, dropping pct percent of Sends (0-100).
func NewDropTransport(inner zhe.Transport, pct int, seed int64) *DropTransport {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	return &DropTransport{Transport: inner, dropPct: pct, rnd: rand.New(rand.NewSource(seed))}
}

// Send randomly discards the datagram instead of forwarding it,
// reporting a successful send either way: from the caller's
// perspective a dropped UDP packet is indistinguishable from one that
// simply never arrived.
func (d *DropTransport) Send(buf []byte, dst zhe.Address) (bool, error) {
	if d.dropPct > 0 && d.rnd.Intn(100) < d.dropPct {
		return true, nil
	}
	return d.Transport.Send(buf, dst)
}
