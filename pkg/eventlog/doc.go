// Package eventlog reads the structured JSON-lines logs written by the
// trading application and answers time-window queries over them.
//
// Three logs share one record shape:
//
//   - the API log (kind api_request / api_error), keyed by endpoint
//   - the execution log (kind order_submitted / order_filled / order_rejected)
//   - the events log (kind signal / error), keyed by signal or component
//
// Each line is one complete JSON object written by a single external writer:
//
//	{"ts": 1760457600.5, "kind": "order_filled", "symbol": "AAPL", "order_id": "o-1"}
//	{"ts": "2026-10-14T13:30:00Z", "kind": "api_error", "endpoint": "polygon", "status_code": 429}
//
// Readers never lock. A torn or malformed line is skipped and counted.
package eventlog
