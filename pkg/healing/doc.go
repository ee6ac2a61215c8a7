// Package healing implements rate-limited self-healing.
//
// Every remediation attempt is appended to an immutable ledger, which is the
// only state the remediator consults: a process restart forgets nothing.
// Before acting on an issue the policy counts the ledger entries for the
// issue's signal within the trailing window and the time since the newest
// one. Attempts beyond the hourly budget, or inside the cooldown, are
// recorded as "skipped: rate_limited".
//
// Remediation runs on a Worker so the health-read path never waits for a
// strategy to finish. Strategy failures and panics end up in the ledger's
// error field; they are never returned to the caller.
//
// Ledger backends:
//
//   - FileLedger: JSON lines, one complete record per O_APPEND write
//   - SQLiteLedger: a single table in a SQLite database
//   - MemoryLedger: in-process, for tests and dry runs
package healing
