package authz

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains authorization metrics.
type Metrics struct {
	registerer prometheus.Registerer

	// decisionTotal counts authorization decisions.
	decisionTotal *prometheus.CounterVec

	// evaluationDuration measures authorization evaluation duration.
	evaluationDuration *prometheus.HistogramVec

	// rulesLoaded tracks the number of routes in the active table.
	rulesLoaded prometheus.Gauge
}

// NewMetrics creates new authorization metrics.
// Metrics are registered with prometheus.DefaultRegisterer so they are
// automatically exposed on the default /metrics endpoint.
func NewMetrics(namespace string) *Metrics {
	return NewMetricsWithRegisterer(namespace, prometheus.DefaultRegisterer)
}

// NewMetricsWithRegisterer creates a new Metrics instance with a custom registerer.
func NewMetricsWithRegisterer(namespace string, registerer prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "authgate"
	}

	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		registerer: registerer,
	}

	m.decisionTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "authz",
			Name:      "decision_total",
			Help:      "Total number of authorization decisions",
		},
		[]string{"transport", "outcome", "rule"},
	)

	m.evaluationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "authz",
			Name:      "evaluation_duration_seconds",
			Help:      "Authorization evaluation duration in seconds",
			Buckets:   []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01},
		},
		[]string{"transport"},
	)

	m.rulesLoaded = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "authz",
			Name:      "rules_loaded",
			Help:      "Number of routes in the active rule table",
		},
	)

	// Duplicate registration (e.g. in tests) is ignored.
	for _, c := range []prometheus.Collector{m.decisionTotal, m.evaluationDuration, m.rulesLoaded} {
		_ = m.registerer.Register(c)
	}

	return m
}

// RecordDecision records an authorization decision.
func (m *Metrics) RecordDecision(transport string, d Decision, duration time.Duration) {
	m.decisionTotal.WithLabelValues(transport, d.Outcome.String(), d.Rule.String()).Inc()
	m.evaluationDuration.WithLabelValues(transport).Observe(duration.Seconds())
}

// SetRulesLoaded records the size of the active table.
func (m *Metrics) SetRulesLoaded(n int) {
	m.rulesLoaded.Set(float64(n))
}
