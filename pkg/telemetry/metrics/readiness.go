package metrics

import "github.com/prometheus/client_golang/prometheus"

var checkStatuses = []string{"OK", "WARN", "ERROR", "UNKNOWN"}

// ReadinessMetrics tracks the aggregate verdict and individual failure points.
//
// Metrics:
//   - warden_readiness_level: 0 READY, 1 DEGRADED, 2 BLOCKED
//   - warden_readiness_critical / warden_readiness_warning: current counts
//   - warden_check_status: 1 for the current status of each check
//   - warden_check_duration_seconds
//   - warden_cycles_total, warden_cycle_duration_seconds
type ReadinessMetrics struct {
	level         prometheus.Gauge
	critical      prometheus.Gauge
	warning       prometheus.Gauge
	checkStatus   *prometheus.GaugeVec
	checkDuration *prometheus.HistogramVec
	cycles        *prometheus.CounterVec
	cycleDuration prometheus.Histogram
}

// NewReadinessMetrics creates and registers readiness metrics.
func NewReadinessMetrics(namespace string, registry *prometheus.Registry) *ReadinessMetrics {
	m := &ReadinessMetrics{
		level: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "readiness_level",
			Help:      "Aggregate readiness (0=READY, 1=DEGRADED, 2=BLOCKED)",
		}),
		critical: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "readiness_critical",
			Help:      "Number of failure points in ERROR",
		}),
		warning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "readiness_warning",
			Help:      "Number of failure points in WARN",
		}),
		checkStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "check_status",
				Help:      "Current status of each failure point (1 for the active status)",
			},
			[]string{"check", "category", "status"},
		),
		checkDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "check_duration_seconds",
				Help:      "Failure point evaluation time in seconds",
				Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"check"},
		),
		cycles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cycles_total",
				Help:      "Health cycles by resulting readiness",
			},
			[]string{"readiness"},
		),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "End-to-end health cycle duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 20},
		}),
	}

	registry.MustRegister(
		m.level,
		m.critical,
		m.warning,
		m.checkStatus,
		m.checkDuration,
		m.cycles,
		m.cycleDuration,
	)

	return m
}
