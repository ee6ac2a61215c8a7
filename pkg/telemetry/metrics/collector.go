package metrics

import (
	"time"

	"mercator-hq/warden/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector owns every Warden metric and a private registry.
//
// All Record methods are safe on a nil *Collector and when metrics are
// disabled, so components can be constructed without one in tests.
type Collector struct {
	enabled  bool
	registry *prometheus.Registry

	readiness *ReadinessMetrics
	probes    *ProbeMetrics
	healing   *HealingMetrics
}

// NewCollector creates a collector registering into registry. If registry is
// nil, a fresh one is created.
//
// Example:
//
//	collector := metrics.NewCollector(cfg.Telemetry.Metrics, nil)
//	mux.Handle(cfg.Telemetry.Metrics.Path, collector.Handler())
func NewCollector(cfg config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	namespace := cfg.Namespace
	if namespace == "" {
		namespace = config.DefaultMetricsNamespace
	}

	return &Collector{
		enabled:   config.BoolValue(cfg.Enabled, config.DefaultMetricsEnabled),
		registry:  registry,
		readiness: NewReadinessMetrics(namespace, registry),
		probes:    NewProbeMetrics(namespace, registry),
		healing:   NewHealingMetrics(namespace, registry),
	}
}

// Registry returns the registry the collector writes to.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

func (c *Collector) on() bool {
	return c != nil && c.enabled
}

// RecordCycle records the outcome of one health cycle.
func (c *Collector) RecordCycle(level string, gauge float64, critical, warning int, duration time.Duration) {
	if !c.on() {
		return
	}
	c.readiness.level.Set(gauge)
	c.readiness.critical.Set(float64(critical))
	c.readiness.warning.Set(float64(warning))
	c.readiness.cycles.WithLabelValues(level).Inc()
	c.readiness.cycleDuration.Observe(duration.Seconds())
}

// RecordCheck records the status and duration of one failure point.
func (c *Collector) RecordCheck(id, category, status string, duration time.Duration) {
	if !c.on() {
		return
	}
	for _, s := range checkStatuses {
		v := 0.0
		if s == status {
			v = 1
		}
		c.readiness.checkStatus.WithLabelValues(id, category, s).Set(v)
	}
	c.readiness.checkDuration.WithLabelValues(id).Observe(duration.Seconds())
}

// RecordProbe records one endpoint probe.
func (c *Collector) RecordProbe(endpoint, outcome string, latency time.Duration, rateLimitRemaining int) {
	if !c.on() {
		return
	}
	c.probes.outcomes.WithLabelValues(endpoint, outcome).Inc()
	if latency > 0 {
		c.probes.latency.WithLabelValues(endpoint).Observe(latency.Seconds())
	}
	if rateLimitRemaining >= 0 {
		c.probes.rateLimit.WithLabelValues(endpoint).Set(float64(rateLimitRemaining))
	}
}

// RecordHealingAttempt records one remediation attempt.
func (c *Collector) RecordHealingAttempt(signal, action string, success bool) {
	if !c.on() {
		return
	}
	result := "failure"
	if success {
		result = "success"
	}
	c.healing.attempts.WithLabelValues(signal, action, result).Inc()
}

// RecordHealingSkipped records an issue refused by the rate limiter or
// dropped from a full queue.
func (c *Collector) RecordHealingSkipped(signal, reason string) {
	if !c.on() {
		return
	}
	c.healing.skipped.WithLabelValues(signal, reason).Inc()
}

// SetQueueDepth records the number of pending remediation tasks.
func (c *Collector) SetQueueDepth(n int) {
	if !c.on() {
		return
	}
	c.healing.queueDepth.Set(float64(n))
}

// RecordLedgerPruned records entries removed by retention.
func (c *Collector) RecordLedgerPruned(n int64) {
	if !c.on() || n <= 0 {
		return
	}
	c.healing.pruned.Add(float64(n))
}
