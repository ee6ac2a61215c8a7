package metrics

import "github.com/prometheus/client_golang/prometheus"

// HealingMetrics tracks automatic remediation.
type HealingMetrics struct {
	attempts   *prometheus.CounterVec
	skipped    *prometheus.CounterVec
	queueDepth prometheus.Gauge
	pruned     prometheus.Counter
}

// NewHealingMetrics creates and registers remediation metrics.
func NewHealingMetrics(namespace string, registry *prometheus.Registry) *HealingMetrics {
	m := &HealingMetrics{
		attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "healing",
				Name:      "attempts_total",
				Help:      "Remediation attempts by signal, action and result",
			},
			[]string{"signal", "action", "result"},
		),
		skipped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "healing",
				Name:      "skipped_total",
				Help:      "Remediation issues not attempted, by reason",
			},
			[]string{"signal", "reason"},
		),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "healing",
			Name:      "queue_depth",
			Help:      "Pending remediation tasks",
		}),
		pruned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "healing",
			Name:      "ledger_pruned_total",
			Help:      "Ledger entries removed by retention",
		}),
	}

	registry.MustRegister(m.attempts, m.skipped, m.queueDepth, m.pruned)
	return m
}
