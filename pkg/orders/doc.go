// Package orders reports the health of the order pipeline.
//
// The checker combines a market calendar with the execution-event log. Outside
// the trading session the pipeline is reported as market_closed, which is not
// an error. During the session the most recent execution records are bucketed
// into 1h, 3h and 24h windows and the pipeline is healthy while orders keep
// flowing, degraded once it has been idle for longer than the inactivity
// threshold, and no_recent_orders when no history exists at all.
package orders
