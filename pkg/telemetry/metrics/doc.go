// Package metrics provides Prometheus metrics collection for Warden.
//
// # Metrics Categories
//
//   - Readiness: aggregate level, critical/warning counts, per-check status
//     and duration, cycle counts and duration
//   - Probes: outcomes, latency and remaining rate limit per endpoint
//   - Healing: attempts by result, skipped issues, queue depth, pruned entries
//
// # Usage
//
//	collector := metrics.NewCollector(cfg.Telemetry.Metrics, nil)
//	collector.RecordCycle("DEGRADED", 1, 0, 2, 1200*time.Millisecond)
//	http.Handle("/metrics", collector.Handler())
//
// The collector uses a private registry, so several collectors can coexist
// in one test binary.
package metrics
