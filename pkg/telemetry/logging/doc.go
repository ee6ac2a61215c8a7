// Package logging provides structured logging with credential redaction.
//
// # Overview
//
// The logging package wraps Go's standard log/slog package to provide:
//   - JSON and text output
//   - Redaction of API keys, bearer tokens and passwords in messages and fields
//   - Automatic cycle_id, check_id and signal fields taken from the context
//
// # Usage
//
//	logger, err := logging.New(logging.Config{Level: "info", Format: "json", Redact: true})
//	if err != nil {
//	    return err
//	}
//	logger.Install()
//
//	ctx = logging.WithCycleID(ctx, id)
//	slog.InfoContext(ctx, "cycle complete", "readiness", "READY")
//
// Every record, including those written through slog.Default after Install,
// passes through the redacting handler.
package logging
