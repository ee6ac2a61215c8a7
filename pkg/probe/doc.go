// Package probe tests reachability, latency and recent error rate of the
// external HTTP endpoints the trading application depends on.
//
// A probe never returns an error. Every failure is classified into exactly one
// status:
//
//	healthy           2xx response
//	rate_limited      429
//	auth_failed       401
//	http_error        any other status
//	timeout           probe deadline or caller cancellation
//	connection_error  DNS, refused, reset, TLS
//	no_credentials    credentials required but not configured; no request is sent
//
// Historical figures (error_rate_1h, avg_latency_ms, last_success_age) come from
// the structured API log written by the trading application, so a single probe
// is combined with the last hour of real traffic.
package probe
