// Package signals determines whether each tracked intelligence signal has
// current, usable data.
//
// Evaluation is strictly two-phase:
//
//  1. Cache presence. The shared cache is read once and every tracked signal
//     is tested over a bounded entity universe (the watch-list plus a capped
//     number of further cache entities, sorted by name). The first entity
//     holding a present value marks the signal healthy; a signal never found
//     becomes no_data. This phase only moves unknown to healthy or no_data.
//
//  2. Recent activity. Signal events from the last hour upgrade no_data or
//     unknown to healthy. A signal still unknown without events becomes
//     no_recent_signals. This phase never downgrades.
//
// Presence is decided by the tagged Value type, so a numeric 0 or a boolean
// false is present while null or a missing key is not.
package signals
