package dispatch

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors for operation runs.
type Metrics struct {
	runs     *prometheus.CounterVec
	failures *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics registers the operation metrics against registerer. When the
// registerer is nil the default Prometheus registerer is used.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cashflow_operation_runs_total",
			Help: "Operations executed, by operation name.",
		}, []string{"operation"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cashflow_operation_failures_total",
			Help: "Operations that returned an error, by operation name and kind.",
		}, []string{"operation", "kind"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cashflow_operation_duration_seconds",
			Help:    "Operation latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
	}
	registerer.MustRegister(m.runs, m.failures, m.duration)
	return m
}

func (m *Metrics) observe(op string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(op).Inc()
	m.duration.WithLabelValues(op).Observe(elapsed.Seconds())
	if err != nil {
		m.failures.WithLabelValues(op, errorKind(err)).Inc()
	}
}
