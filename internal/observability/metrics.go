// Package observability exposes Prometheus collectors for bridge operations
// and document-store calls.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "pse_bridge"

type Metrics struct {
	Operations      *prometheus.CounterVec
	OperationErrors *prometheus.CounterVec
	StoreCalls      *prometheus.CounterVec
	StoreLatency    *prometheus.HistogramVec
	MatchesFound    prometheus.Counter
	MappingFailures prometheus.Counter
}

// New builds the collectors and registers them with reg. A nil reg skips
// registration, which keeps tests independent of the default registry.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Bridge operations invoked, by operation.",
		}, []string{"operation"}),
		OperationErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operation_errors_total",
			Help:      "Bridge operations that returned an error, by operation and kind.",
		}, []string{"operation", "kind"}),
		StoreCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "calls_total",
			Help:      "Document store calls, by method, table and result.",
		}, []string{"method", "table", "result"}),
		StoreLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "call_duration_seconds",
			Help:      "Document store call latency.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}, []string{"method", "table"}),
		MatchesFound: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "matches_found_total",
			Help:      "Content/keyword pairs accepted by the matcher.",
		}),
		MappingFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mapping_write_failures_total",
			Help:      "Mapping writes that failed during a match run.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Operations, m.OperationErrors, m.StoreCalls, m.StoreLatency, m.MatchesFound, m.MappingFailures)
	}
	return m
}

// ObserveStore implements store.Observer.
func (m *Metrics) ObserveStore(method, table string, d time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.StoreCalls.WithLabelValues(method, table, result).Inc()
	m.StoreLatency.WithLabelValues(method, table).Observe(d.Seconds())
}

func (m *Metrics) ObserveOperation(op string, errKind string) {
	m.Operations.WithLabelValues(op).Inc()
	if errKind != "" {
		m.OperationErrors.WithLabelValues(op, errKind).Inc()
	}
}
