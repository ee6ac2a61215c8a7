// Package supervisor talks to the process manager that owns the ingestion and
// trading processes.
//
// Warden never starts processes itself. It asks the supervisor whether a unit
// is active and, during remediation, requests a restart. Restart requests are
// idempotent: concurrent requests for the same unit are collapsed by Dedup
// and a repeated restart of a healthy unit is harmless.
package supervisor
