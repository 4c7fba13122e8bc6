package zhe

import (
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// Telemetry is the read-only view over the engine's observable
// counters (spec §9: global counters become engine-owned fields,
// exposed through a read-only view rather than package-level
// variables). The engine never registers these with the global
// default registry itself — a driver that wants them on its own
// /metrics endpoint calls Register.
type Telemetry struct {
	Delivered  prometheus.Counter
	Discarded  prometheus.Counter
	SynchSent  prometheus.Counter
	OutOfOrder prometheus.Counter
}

func newTelemetry(peerID string) *Telemetry {
	labels := prometheus.Labels{"peer": peerID}
	return &Telemetry{
		Delivered: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "zhe_delivered_total",
			Help:        "samples delivered to a subscriber handler",
			ConstLabels: labels,
		}),
		Discarded: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "zhe_discarded_total",
			Help:        "samples discarded: no local handler registered for the rid",
			ConstLabels: labels,
		}),
		SynchSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "zhe_synch_sent_total",
			Help:        "SYNCH messages emitted during housekeeping",
			ConstLabels: labels,
		}),
		OutOfOrder: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "zhe_out_of_order_total",
			Help:        "sequence gaps observed in received MDATA; best-effort DATA carries no sequence number and is not counted",
			ConstLabels: labels,
		}),
	}
}

// counterValue reads a counter's current value without needing a
// scrape, the same trick client_golang's own testutil uses (Write
// into a dto.Metric and read the Counter field back out).
func counterValue(c prometheus.Counter) float64 {
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		return 0
	}
	return m.GetCounter().GetValue()
}

// DeliveredValue, DiscardedValue, SynchSentValue and OutOfOrderValue
// expose the current counts directly, for a driver that wants to log
// them (main.c's printf of zhe_delivered/zhe_discarded/zhe_synch_sent)
// without standing up a full /metrics scrape.
func (t *Telemetry) DeliveredValue() uint64  { return uint64(counterValue(t.Delivered)) }
func (t *Telemetry) DiscardedValue() uint64  { return uint64(counterValue(t.Discarded)) }
func (t *Telemetry) SynchSentValue() uint64  { return uint64(counterValue(t.SynchSent)) }
func (t *Telemetry) OutOfOrderValue() uint64 { return uint64(counterValue(t.OutOfOrder)) }

// Register adds every counter to reg.
func (t *Telemetry) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{t.Delivered, t.Discarded, t.SynchSent, t.OutOfOrder} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
