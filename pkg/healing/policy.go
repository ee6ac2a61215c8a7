package healing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"mercator-hq/warden/pkg/config"
)

// Policy is the per-signal attempt budget.
type Policy struct {
	MaxPerHour int
	Cooldown   time.Duration
	Window     time.Duration
}

// DefaultPolicy returns the default budget: 3 attempts per hour at least
// 300s apart.
func DefaultPolicy() Policy {
	return Policy{
		MaxPerHour: config.DefaultMaxPerHour,
		Cooldown:   config.DefaultCooldown,
		Window:     config.DefaultWindow,
	}
}

// PolicyFromConfig builds a policy from the healing configuration.
func PolicyFromConfig(cfg config.HealingConfig) Policy {
	p := DefaultPolicy()
	if cfg.MaxPerHour > 0 {
		p.MaxPerHour = cfg.MaxPerHour
	}
	if cfg.Cooldown > 0 {
		p.Cooldown = cfg.Cooldown
	}
	if cfg.Window > 0 {
		p.Window = cfg.Window
	}
	return p
}

// Decision explains a ShouldAttempt verdict.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`

	// InWindow is the number of attempts within the policy window.
	InWindow int `json:"in_window"`

	// LastAttempt is the newest attempt in the window, zero if none.
	LastAttempt time.Time `json:"last_attempt,omitempty"`
}

// Skip reasons.
const (
	ReasonRateLimited = "rate_limited"
	ReasonCooldown    = "cooldown"
	ReasonLedgerError = "ledger_error"
)

// Gate answers ShouldAttempt from the ledger alone.
type Gate struct {
	ledger Ledger
	policy Policy
	now    func() time.Time
	logger *slog.Logger
}

// NewGate creates a gate over ledger.
func NewGate(ledger Ledger, policy Policy, now func() time.Time) *Gate {
	if now == nil {
		now = time.Now
	}
	return &Gate{
		ledger: ledger,
		policy: policy,
		now:    now,
		logger: slog.Default().With("component", "healing.policy"),
	}
}

// Policy returns the gate's policy.
func (g *Gate) Policy() Policy {
	return g.policy
}

// Decide evaluates the policy for signal. Attempts inside the window at or
// above MaxPerHour refuse; otherwise a newest attempt less than Cooldown ago
// refuses. Exactly Cooldown elapsed permits.
func (g *Gate) Decide(ctx context.Context, signal string) (Decision, error) {
	now := g.now()
	recent, err := g.ledger.Since(ctx, signal, now.Add(-g.policy.Window))
	if err != nil {
		return Decision{Reason: ReasonLedgerError}, fmt.Errorf("failed to read ledger for %s: %w", signal, err)
	}

	d := Decision{InWindow: len(recent)}
	for _, a := range recent {
		if a.At().After(d.LastAttempt) {
			d.LastAttempt = a.At()
		}
	}

	switch {
	case len(recent) >= g.policy.MaxPerHour:
		d.Reason = ReasonRateLimited
	case !d.LastAttempt.IsZero() && now.Sub(d.LastAttempt) < g.policy.Cooldown:
		d.Reason = ReasonCooldown
	default:
		d.Allowed = true
	}
	return d, nil
}

// ShouldAttempt reports whether a remediation for signal may run now. A
// ledger read error refuses.
func (g *Gate) ShouldAttempt(ctx context.Context, signal string) bool {
	d, err := g.Decide(ctx, signal)
	if err != nil {
		g.logger.ErrorContext(ctx, "refusing remediation, ledger unreadable", "signal", signal, "error", err)
		return false
	}
	return d.Allowed
}
