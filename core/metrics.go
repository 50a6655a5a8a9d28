package core

import "github.com/prometheus/client_golang/prometheus"

// Metrics tracks engine-wide counters/gauges exposed to an embedder's own
// prometheus registry. Nothing here feeds back into execution determinism;
// it is a pure observability side channel.
var (
	metricTxExecuted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ledgervm",
		Name:      "transactions_total",
		Help:      "Transactions processed by outcome.",
	}, []string{"outcome"})

	metricCostUnitsConsumed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ledgervm",
		Name:      "cost_units_consumed_total",
		Help:      "Cumulative cost units consumed across all executed transactions.",
	})

	metricCallDepth = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "ledgervm",
		Name:      "call_frame_depth",
		Help:      "Observed call-frame depth at invocation time.",
		Buckets:   prometheus.LinearBuckets(1, 2, 10),
	})
)

// RegisterMetrics registers the engine's collectors with reg. Safe to call
// once per registry; registering the same registry twice returns an error
// from reg.Register that callers may ignore if re-registration is expected.
func RegisterMetrics(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{metricTxExecuted, metricCostUnitsConsumed, metricCallDepth} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
