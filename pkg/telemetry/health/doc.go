// Package health provides the HTTP surface of a Warden process.
//
// # Endpoints
//
//   - /health: liveness, the process is running
//   - /ready: trading gate, 503 only when readiness is BLOCKED
//   - /readiness: the full readiness response consumed by the dashboard
//   - /version: build information
//
// # Usage
//
//	handlers := health.NewHandlers(mon, version, commit, buildTime)
//	mux := http.NewServeMux()
//	handlers.Register(mux)
//
// # Liveness vs Readiness
//
// Liveness never depends on the checks. Readiness reports the latest cycle;
// a DEGRADED system is still ready because WARN conditions do not halt
// trading.
package health
