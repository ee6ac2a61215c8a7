package failpoint

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"mercator-hq/warden/pkg/config"
	"mercator-hq/warden/pkg/readiness"
	"mercator-hq/warden/pkg/telemetry/logging"
	"mercator-hq/warden/pkg/telemetry/metrics"

	"golang.org/x/sync/errgroup"
)

// OutcomeTimeout is the details.outcome value of a check that overran.
const OutcomeTimeout = "timeout"

// Options configures a Registry.
type Options struct {
	// Timeout is the per-check deadline, capped at config.MaxCheckTimeout.
	Timeout time.Duration

	// Workers bounds how many checks run at once.
	Workers int

	Now     func() time.Time
	Metrics *metrics.Collector
	Logger  *slog.Logger
}

// Registry runs an ordered list of checks. It holds no state between runs.
type Registry struct {
	checks  []Check
	timeout time.Duration
	workers int
	now     func() time.Time
	metrics *metrics.Collector
	logger  *slog.Logger
}

// NewRegistry creates a registry over checks.
func NewRegistry(checks []Check, opts Options) *Registry {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = config.DefaultCheckTimeout
	}
	timeout = min(timeout, config.MaxCheckTimeout)

	workers := opts.Workers
	if workers <= 0 {
		workers = config.DefaultWorkers
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Registry{
		checks:  checks,
		timeout: timeout,
		workers: workers,
		now:     opts.Now,
		metrics: opts.Metrics,
		logger:  opts.Logger.With("component", "failpoint"),
	}
}

// IDs returns the check ids in run order.
func (r *Registry) IDs() []string {
	ids := make([]string, len(r.checks))
	for i, c := range r.checks {
		ids[i] = c.ID()
	}
	return ids
}

// Run executes every check and returns one result per check in registry
// order. It returns only after each check has completed or timed out.
func (r *Registry) Run(ctx context.Context) []readiness.CheckResult {
	results := make([]readiness.CheckResult, len(r.checks))

	var g errgroup.Group
	g.SetLimit(r.workers)
	for i, c := range r.checks {
		i, c := i, c
		g.Go(func() error {
			results[i] = r.runCheck(ctx, c)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// runCheck executes a single check with its own deadline.
func (r *Registry) runCheck(ctx context.Context, c Check) readiness.CheckResult {
	ctx = logging.WithCheckID(ctx, c.ID())
	checkCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()

	// Run the check in a goroutine so a check ignoring ctx cannot stall the
	// cycle.
	resultCh := make(chan readiness.CheckResult, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				r.logger.ErrorContext(ctx, "failure point panicked", "panic", p, "stack", string(debug.Stack()))
				resultCh <- r.failed(c, fmt.Sprintf("panic: %v", p), nil)
			}
		}()
		resultCh <- c.Run(checkCtx)
	}()

	var res readiness.CheckResult
	select {
	case res = <-resultCh:
		res.ID, res.Name, res.Category = c.ID(), c.Name(), c.Category()
		if res.Status == "" {
			res.Status = readiness.StatusUnknown
		}
	case <-checkCtx.Done():
		msg := fmt.Sprintf("check timed out after %s", r.timeout)
		if !errors.Is(checkCtx.Err(), context.DeadlineExceeded) || ctx.Err() != nil {
			msg = fmt.Sprintf("check aborted: %v", context.Cause(checkCtx))
		}
		res = r.failed(c, msg, map[string]any{"outcome": OutcomeTimeout})
	}

	duration := time.Since(start)
	res.LastCheckedAt = r.now()
	r.metrics.RecordCheck(res.ID, res.Category, string(res.Status), duration)

	switch res.Status {
	case readiness.StatusError:
		r.logger.WarnContext(ctx, "failure point error", "error", res.LastError, "duration", duration)
	case readiness.StatusWarn:
		r.logger.InfoContext(ctx, "failure point warning", "error", res.LastError, "duration", duration)
	default:
		r.logger.DebugContext(ctx, "failure point checked", "status", res.Status, "duration", duration)
	}
	return res
}

func (r *Registry) failed(c Check, msg string, details map[string]any) readiness.CheckResult {
	return readiness.CheckResult{
		ID:        c.ID(),
		Name:      c.Name(),
		Category:  c.Category(),
		Status:    readiness.StatusError,
		LastError: msg,
		Details:   details,
	}
}
