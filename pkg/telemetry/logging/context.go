package logging

import (
	"context"
	"log/slog"
)

// Context keys for common log fields.
type contextKey string

const (
	// CycleIDKey is the context key for health cycle ids.
	CycleIDKey contextKey = "cycle_id"

	// CheckIDKey is the context key for failure point ids.
	CheckIDKey contextKey = "check_id"

	// SignalKey is the context key for signal names.
	SignalKey contextKey = "signal"
)

// WithCycleID adds a cycle id to the context.
func WithCycleID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, CycleIDKey, id)
}

// GetCycleID retrieves the cycle id from the context.
func GetCycleID(ctx context.Context) string {
	if id, ok := ctx.Value(CycleIDKey).(string); ok {
		return id
	}
	return ""
}

// WithCheckID adds a failure point id to the context.
func WithCheckID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, CheckIDKey, id)
}

// GetCheckID retrieves the failure point id from the context.
func GetCheckID(ctx context.Context) string {
	if id, ok := ctx.Value(CheckIDKey).(string); ok {
		return id
	}
	return ""
}

// WithSignal adds a signal name to the context.
func WithSignal(ctx context.Context, signal string) context.Context {
	return context.WithValue(ctx, SignalKey, signal)
}

// GetSignal retrieves the signal name from the context.
func GetSignal(ctx context.Context) string {
	if s, ok := ctx.Value(SignalKey).(string); ok {
		return s
	}
	return ""
}

// contextAttrs extracts the known fields from ctx.
func contextAttrs(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}

	var attrs []slog.Attr
	if id := GetCycleID(ctx); id != "" {
		attrs = append(attrs, slog.String(string(CycleIDKey), id))
	}
	if id := GetCheckID(ctx); id != "" {
		attrs = append(attrs, slog.String(string(CheckIDKey), id))
	}
	if s := GetSignal(ctx); s != "" {
		attrs = append(attrs, slog.String(string(SignalKey), s))
	}
	return attrs
}
