// Warden is the operational-health and self-healing supervisor of the
// trading application.
//
// It evaluates a fixed catalog of failure points (processes, the shared
// signal cache, signal freshness, external APIs, the order pipeline and
// safety markers), folds them into a READY / DEGRADED / BLOCKED verdict and
// remediates the issues it finds under a rate-limited healing policy.
//
// Usage:
//
//	# Evaluate once and print the readiness document
//	warden check
//
//	# Run the daemon (scheduler, file watcher, HTTP endpoints)
//	warden run --config /etc/warden/config.yaml
//
//	# Inspect the healing ledger
//	warden heal status
//
//	# Remove ledger entries past retention
//	warden ledger prune
package main

func main() {
	Execute()
}
