// Package failpoint runs the fixed catalog of failure point checks.
//
// Each failure point is an independent Check producing one
// readiness.CheckResult. The Registry runs every check of a cycle under a
// bounded worker pool with a per-check deadline, isolates panics and errors at
// the check boundary and always returns one result per check in catalog
// order, even when a check overruns its deadline. Aggregation into a
// readiness verdict is left to the caller.
//
// The catalog, in order:
//
//	ingestion_process   process      ingestion unit is active
//	cache_exists        data         cache is present and non-zero size
//	cache_freshness     data         cache age against warn/error thresholds
//	cache_nonempty      data         cache holds at least one entity
//	signal_freshness    signals      tracked signals are healthy
//	adaptive_params     config       parameter store has the expected components
//	freeze_marker       safety       no freeze marker is present
//	broker_api          broker       brokerage API probe
//	endpoint:<name>     market_data  one per market data endpoint
//	order_pipeline      trading      order flow during the session
//	trading_process     process      trading unit is active
package failpoint
