package healing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"mercator-hq/warden/pkg/telemetry/logging"
	"mercator-hq/warden/pkg/telemetry/metrics"
)

// Outcomes recorded per issue.
const (
	OutcomeHealed      = "healed"
	OutcomeFailed      = "failed"
	OutcomeRateLimited = "skipped: rate_limited"
	OutcomeNoStrategy  = "skipped: no_strategy"
)

// IssueOutcome is what a cycle did with one issue.
type IssueOutcome struct {
	Issue   Issue    `json:"issue"`
	Outcome string   `json:"outcome"`
	Attempt *Attempt `json:"attempt,omitempty"`
}

// CycleResult summarizes one remediation cycle.
type CycleResult struct {
	Healed   int            `json:"healed"`
	Failed   int            `json:"failed"`
	Skipped  int            `json:"skipped"`
	Outcomes []IssueOutcome `json:"outcomes"`
}

// Options configures a Remediator.
type Options struct {
	Strategies []Strategy

	// ActionTimeout bounds each strategy call.
	ActionTimeout time.Duration

	Now     func() time.Time
	Metrics *metrics.Collector
	Logger  *slog.Logger
}

// Remediator decides and performs remediation. Its only state is the ledger.
type Remediator struct {
	ledger     Ledger
	gate       *Gate
	strategies map[string]Strategy
	timeout    time.Duration
	now        func() time.Time
	metrics    *metrics.Collector
	logger     *slog.Logger
}

// NewRemediator creates a remediator.
func NewRemediator(ledger Ledger, policy Policy, opts Options) *Remediator {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	strategies := make(map[string]Strategy, len(opts.Strategies))
	for _, s := range opts.Strategies {
		strategies[s.Name()] = s
	}
	return &Remediator{
		ledger:     ledger,
		gate:       NewGate(ledger, policy, opts.Now),
		strategies: strategies,
		timeout:    opts.ActionTimeout,
		now:        opts.Now,
		metrics:    opts.Metrics,
		logger:     opts.Logger.With("component", "healing"),
	}
}

// Gate returns the rate-limit gate.
func (r *Remediator) Gate() *Gate {
	return r.gate
}

// Ledger returns the attempt ledger.
func (r *Remediator) Ledger() Ledger {
	return r.ledger
}

// ShouldAttempt reports whether issue id may be remediated now.
func (r *Remediator) ShouldAttempt(ctx context.Context, id string) bool {
	return r.gate.ShouldAttempt(ctx, id)
}

// Heal runs the issue's strategy and appends the attempt to the ledger,
// whatever the outcome. It does not consult the policy.
func (r *Remediator) Heal(ctx context.Context, issue Issue) Attempt {
	ctx = logging.WithSignal(ctx, issue.ID)

	err := r.invoke(ctx, issue)
	attempt := NewAttempt(issue.ID, issue.Strategy, err == nil, "", r.now())
	if err != nil {
		attempt.Error = err.Error()
	}

	// The append must survive a cancelled cycle.
	if lerr := r.ledger.Append(context.WithoutCancel(ctx), attempt); lerr != nil {
		r.logger.ErrorContext(ctx, "failed to record healing attempt", "error", lerr)
	}
	r.metrics.RecordHealingAttempt(issue.ID, issue.Strategy, attempt.Success)

	if attempt.Success {
		r.logger.InfoContext(ctx, "remediation succeeded", "action", issue.Strategy, "target", issue.Target)
	} else {
		r.logger.WarnContext(ctx, "remediation failed", "action", issue.Strategy, "target", issue.Target, "error", attempt.Error)
	}
	return attempt
}

// invoke calls the strategy, converting panics into errors.
func (r *Remediator) invoke(ctx context.Context, issue Issue) (err error) {
	s, found := r.strategies[issue.Strategy]
	if !found {
		return fmt.Errorf("no strategy %q", issue.Strategy)
	}
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("strategy %s panicked: %v", issue.Strategy, p)
		}
	}()
	return s.Heal(ctx, issue)
}

// RunCycle remediates issues in priority order. Issues whose status is not
// no_data, stale or down are dropped. Issues over their budget are skipped
// as rate_limited.
func (r *Remediator) RunCycle(ctx context.Context, issues []Issue) CycleResult {
	res := CycleResult{Outcomes: []IssueOutcome{}}

	for _, issue := range Prioritize(issues) {
		out := IssueOutcome{Issue: issue}

		switch {
		case r.strategies[issue.Strategy] == nil:
			out.Outcome = OutcomeNoStrategy
			res.Skipped++
		case !r.gate.ShouldAttempt(ctx, issue.ID):
			out.Outcome = OutcomeRateLimited
			res.Skipped++
			r.metrics.RecordHealingSkipped(issue.ID, ReasonRateLimited)
			r.logger.InfoContext(ctx, "remediation skipped", "signal", issue.ID, "reason", ReasonRateLimited)
		default:
			attempt := r.Heal(ctx, issue)
			out.Attempt = &attempt
			if attempt.Success {
				out.Outcome = OutcomeHealed
				res.Healed++
			} else {
				out.Outcome = OutcomeFailed
				res.Failed++
			}
		}
		res.Outcomes = append(res.Outcomes, out)
	}
	return res
}
