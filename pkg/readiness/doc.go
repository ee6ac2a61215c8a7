// Package readiness defines the failure point result model and the trading
// readiness verdict derived from it.
//
// # Overview
//
// Every health cycle produces one CheckResult per registered failure point.
// The set is aggregated into a Snapshot:
//
//   - BLOCKED: at least one failure point is ERROR
//   - DEGRADED: no ERROR, at least one WARN
//   - READY: everything else (UNKNOWN never blocks or degrades)
//
// A Snapshot is never stored on its own. It is recomputed from the current
// result set, and the persisted Document carries only the results.
//
// # Persisted form
//
//	{
//	    "last_update": 1760457600,
//	    "statuses": {
//	        "cache_exists": {
//	            "id": "cache_exists",
//	            "name": "Signal cache exists",
//	            "category": "data",
//	            "status": "OK",
//	            "last_check": 1760457600,
//	            "last_error": "",
//	            "self_healing_attempted": false,
//	            "self_healing_success": false,
//	            "details": {"size_bytes": 18234}
//	        }
//	    }
//	}
package readiness
