package pulse

import "github.com/prometheus/client_golang/prometheus"

var (
	ticksTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "devwatch",
		Subsystem: "pulse",
		Name:      "ticks_total",
		Help:      "Reconciliation ticks that ran.",
	})
	ticksSkipped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "devwatch",
		Subsystem: "pulse",
		Name:      "ticks_skipped_total",
		Help:      "Ticks skipped because the previous tick was still running.",
	})
	transitionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "devwatch",
		Subsystem: "pulse",
		Name:      "transitions_total",
		Help:      "Persisted liveness transitions, by new state.",
	}, []string{"state"})
	failuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "devwatch",
		Subsystem: "pulse",
		Name:      "failures_total",
		Help:      "Per-device failures during reconciliation, by kind.",
	}, []string{"kind"})
	tickDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "devwatch",
		Subsystem: "pulse",
		Name:      "tick_duration_seconds",
		Help:      "Wall time of a reconciliation tick.",
		Buckets:   prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(ticksTotal, ticksSkipped, transitionsTotal, failuresTotal, tickDuration)
}

func stateLabel(online bool) string {
	if online {
		return "online"
	}
	return "offline"
}
