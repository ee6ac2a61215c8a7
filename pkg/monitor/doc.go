// Package monitor is the health aggregator.
//
// A Monitor runs one readiness cycle at a time: it executes the failure point
// registry, persists the result set, derives the readiness verdict and hands
// the remediable issues to the healing worker without waiting for it. When
// the remediation finishes the persisted document is annotated with the
// outcome of each related failure point.
//
// Cycles are driven by a cron Scheduler, by a Watcher that reacts to changes
// of the signal cache and freeze markers, or synchronously by the HTTP and
// CLI read paths through Check.
package monitor
