package token

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus metrics for token store lookups.
type Metrics struct {
	lookupsTotal       *prometheus.CounterVec
	lookupDuration     *prometheus.HistogramVec
	breakerTransitions *prometheus.CounterVec
}

// NewMetrics creates token metrics registered with the default registerer.
func NewMetrics(namespace string) *Metrics {
	return NewMetricsWithRegisterer(namespace, prometheus.DefaultRegisterer)
}

// NewMetricsWithRegisterer creates token metrics registered with registerer.
// Registration errors are ignored so metrics survive a configuration reload.
func NewMetricsWithRegisterer(namespace string, registerer prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "authgate"
	}

	m := &Metrics{
		lookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "token",
				Name:      "lookups_total",
				Help:      "Total number of token store lookups",
			},
			[]string{"store", "result"},
		),
		lookupDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "token",
				Name:      "lookup_duration_seconds",
				Help:      "Token store lookup duration in seconds",
				Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"store"},
		),
		breakerTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "token",
				Name:      "circuit_breaker_transitions_total",
				Help:      "Total number of token store circuit breaker state transitions",
			},
			[]string{"name", "from", "to"},
		),
	}

	if registerer != nil {
		for _, c := range []prometheus.Collector{m.lookupsTotal, m.lookupDuration, m.breakerTransitions} {
			_ = registerer.Register(c)
		}
	}

	return m
}

// RecordLookup records a store lookup.
func (m *Metrics) RecordLookup(store, result string, duration time.Duration) {
	m.lookupsTotal.WithLabelValues(store, result).Inc()
	m.lookupDuration.WithLabelValues(store).Observe(duration.Seconds())
}

// RecordBreakerTransition records a circuit breaker state change.
func (m *Metrics) RecordBreakerTransition(name, from, to string) {
	m.breakerTransitions.WithLabelValues(name, from, to).Inc()
}
