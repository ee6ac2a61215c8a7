package metrics

import "github.com/prometheus/client_golang/prometheus"

// ProbeMetrics tracks endpoint probes.
//
// Metrics:
//   - warden_probe_outcomes_total{endpoint,outcome}
//   - warden_probe_latency_seconds{endpoint}
//   - warden_probe_rate_limit_remaining{endpoint}
type ProbeMetrics struct {
	outcomes  *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	rateLimit *prometheus.GaugeVec
}

// NewProbeMetrics creates and registers probe metrics.
func NewProbeMetrics(namespace string, registry *prometheus.Registry) *ProbeMetrics {
	m := &ProbeMetrics{
		outcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "probe",
				Name:      "outcomes_total",
				Help:      "Endpoint probes by classified outcome",
			},
			[]string{"endpoint", "outcome"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "probe",
				Name:      "latency_seconds",
				Help:      "Endpoint probe latency in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"endpoint"},
		),
		rateLimit: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "probe",
				Name:      "rate_limit_remaining",
				Help:      "Remaining request allowance reported by the endpoint",
			},
			[]string{"endpoint"},
		),
	}

	registry.MustRegister(m.outcomes, m.latency, m.rateLimit)
	return m
}
