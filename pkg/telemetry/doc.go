// Package telemetry groups Warden's observability packages.
//
// # Components
//
//   - logging: slog handler with credential redaction and cycle context fields
//   - metrics: Prometheus collector for readiness, probes and healing
//   - health: HTTP liveness, readiness and version endpoints
package telemetry
