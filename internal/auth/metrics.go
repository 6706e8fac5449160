package auth

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus metrics for authentication operations.
type Metrics struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	authSuccessTotal *prometheus.CounterVec
	authFailureTotal *prometheus.CounterVec
	registerer       prometheus.Registerer
}

// NewMetrics creates a new Metrics instance.
// Metrics are registered with prometheus.DefaultRegisterer so they are
// automatically exposed on the default /metrics endpoint.
func NewMetrics(namespace string) *Metrics {
	return NewMetricsWithRegisterer(namespace, prometheus.DefaultRegisterer)
}

// NewMetricsWithRegisterer creates a new Metrics instance with a custom registerer.
// This is useful for testing where a private registry is preferred.
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

	m.requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "requests_total",
			Help:      "Total number of authentication requests",
		},
		[]string{"transport", "scheme", "status"},
	)

	m.requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "request_duration_seconds",
			Help:      "Authentication request duration in seconds",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"transport", "scheme"},
	)

	m.authSuccessTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "success_total",
			Help:      "Total number of successful authentications",
		},
		[]string{"scheme"},
	)

	m.authFailureTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "failure_total",
			Help:      "Total number of failed authentications",
		},
		[]string{"scheme", "reason"},
	)

	// Duplicate registration (e.g. in tests) is ignored.
	for _, c := range m.collectors() {
		_ = m.registerer.Register(c)
	}

	return m
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.requestsTotal,
		m.requestDuration,
		m.authSuccessTotal,
		m.authFailureTotal,
	}
}

// Init pre-initializes common label combinations with zero values so that
// metrics appear in /metrics output immediately after startup.
func (m *Metrics) Init() {
	for _, s := range Schemes() {
		scheme := schemeLabel(s)
		for _, transport := range []string{"http", "grpc"} {
			for _, status := range []string{"success", "failure"} {
				m.requestsTotal.WithLabelValues(transport, scheme, status)
			}
			m.requestDuration.WithLabelValues(transport, scheme)
		}
		m.authSuccessTotal.WithLabelValues(scheme)
		for _, reason := range []string{"invalid_credentials", "validator_error"} {
			m.authFailureTotal.WithLabelValues(scheme, reason)
		}
	}
}

// RecordRequest records an authentication request.
func (m *Metrics) RecordRequest(transport, scheme, status string, duration time.Duration) {
	m.requestsTotal.WithLabelValues(transport, scheme, status).Inc()
	m.requestDuration.WithLabelValues(transport, scheme).Observe(duration.Seconds())
}

// RecordSuccess records a successful authentication.
func (m *Metrics) RecordSuccess(scheme string) {
	m.authSuccessTotal.WithLabelValues(scheme).Inc()
}

// RecordFailure records a failed authentication.
func (m *Metrics) RecordFailure(scheme, reason string) {
	m.authFailureTotal.WithLabelValues(scheme, reason).Inc()
}

// MustRegister registers the metrics with the given registry.
func (m *Metrics) MustRegister(registry *prometheus.Registry) {
	registry.MustRegister(m.collectors()...)
}

// schemeLabel returns the metric label for a scheme.
func schemeLabel(s Scheme) string {
	if !s.IsValid() {
		return "unknown"
	}
	return strings.ToLower(s.String())
}
