package health

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records probe activity.
type Metrics struct {
	probesTotal *prometheus.CounterVec
	checkStatus *prometheus.GaugeVec
}

// NewMetrics creates health metrics registered with the default registerer.
func NewMetrics(namespace string) *Metrics {
	return NewMetricsWithRegisterer(namespace, prometheus.DefaultRegisterer)
}

// NewMetricsWithRegisterer creates health metrics registered with registerer.
// Collectors that are already registered are left in place.
func NewMetricsWithRegisterer(namespace string, registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		probesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "health",
				Name:      "probes_total",
				Help:      "Total number of health probes served",
			},
			[]string{"type"},
		),
		checkStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "health",
				Name:      "check_status",
				Help:      "Last readiness check status (1=healthy, 0=unhealthy)",
			},
			[]string{"check"},
		),
	}

	if registerer != nil {
		for _, c := range []prometheus.Collector{m.probesTotal, m.checkStatus} {
			_ = registerer.Register(c)
		}
	}

	for _, probe := range []string{"liveness", "readiness"} {
		m.probesTotal.WithLabelValues(probe)
	}
	return m
}

func (m *Metrics) recordProbe(probe string) {
	if m == nil {
		return
	}
	m.probesTotal.WithLabelValues(probe).Inc()
}

func (m *Metrics) setCheckStatus(check string, healthy bool) {
	if m == nil {
		return
	}
	v := 0.0
	if healthy {
		v = 1
	}
	m.checkStatus.WithLabelValues(check).Set(v)
}
