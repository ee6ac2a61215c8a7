package failpoint

import (
	"context"
	"time"

	"mercator-hq/warden/pkg/readiness"
)

// Check is one failure point.
type Check interface {
	ID() string
	Name() string
	Category() string

	// Run evaluates the failure point. Implementations should honor ctx.
	Run(ctx context.Context) readiness.CheckResult
}

// Outcome is what a check function observed.
type Outcome struct {
	Status  readiness.Status
	Message string
	Details map[string]any
}

// Func evaluates a failure point. A returned error is recorded as ERROR with
// the error text as last_error.
type Func func(ctx context.Context) (Outcome, error)

type funcCheck struct {
	id       string
	name     string
	category string
	fn       Func
}

// New creates a Check from a function.
func New(id, name, category string, fn Func) Check {
	return &funcCheck{id: id, name: name, category: category, fn: fn}
}

func (c *funcCheck) ID() string       { return c.id }
func (c *funcCheck) Name() string     { return c.name }
func (c *funcCheck) Category() string { return c.category }

func (c *funcCheck) Run(ctx context.Context) readiness.CheckResult {
	res := readiness.CheckResult{ID: c.id, Name: c.name, Category: c.category}
	out, err := c.fn(ctx)
	if err != nil {
		res.Status = readiness.StatusError
		res.LastError = err.Error()
		res.Details = out.Details
		return res
	}
	res.Status = out.Status
	res.LastError = out.Message
	res.Details = out.Details
	return res
}

func ok(details map[string]any) (Outcome, error) {
	return Outcome{Status: readiness.StatusOK, Details: details}, nil
}

func warn(msg string, details map[string]any) (Outcome, error) {
	return Outcome{Status: readiness.StatusWarn, Message: msg, Details: details}, nil
}

func fail(msg string, details map[string]any) (Outcome, error) {
	return Outcome{Status: readiness.StatusError, Message: msg, Details: details}, nil
}

func seconds(d time.Duration) float64 {
	return d.Round(time.Millisecond).Seconds()
}
