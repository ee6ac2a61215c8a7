package readiness

import "time"

// Status is the state of a single failure point.
type Status string

const (
	StatusOK      Status = "OK"
	StatusWarn    Status = "WARN"
	StatusError   Status = "ERROR"
	StatusUnknown Status = "UNKNOWN"
)

// Level is the aggregate trading-permission verdict.
type Level string

const (
	LevelReady    Level = "READY"
	LevelDegraded Level = "DEGRADED"
	LevelBlocked  Level = "BLOCKED"
)

// Color returns the dashboard color for a readiness level.
func (l Level) Color() string {
	switch l {
	case LevelReady:
		return "green"
	case LevelDegraded:
		return "yellow"
	case LevelBlocked:
		return "red"
	default:
		return "gray"
	}
}

// Gauge maps a level onto the numeric value exported as a metric.
func (l Level) Gauge() float64 {
	switch l {
	case LevelReady:
		return 0
	case LevelDegraded:
		return 1
	default:
		return 2
	}
}

// Categories used by the built-in failure points.
const (
	CategoryProcess    = "process"
	CategoryData       = "data"
	CategorySignals    = "signals"
	CategoryConfig     = "config"
	CategorySafety     = "safety"
	CategoryBroker     = "broker"
	CategoryMarketData = "market_data"
	CategoryTrading    = "trading"
)

// CheckResult is the outcome of one failure point for one cycle.
type CheckResult struct {
	// ID is the stable failure point identifier (e.g. "cache_freshness").
	ID string `json:"id"`

	// Name is a human-readable label.
	Name string `json:"name"`

	// Category groups related failure points.
	Category string `json:"category"`

	Status Status `json:"status"`

	// LastCheckedAt is when the check finished.
	LastCheckedAt time.Time `json:"-"`

	// LastError is the only diagnostic surfaced to operators.
	LastError string `json:"last_error"`

	// Details carries check-specific observations.
	Details map[string]any `json:"details,omitempty"`

	// SelfHealingAttempted is set after a remediation for this failure
	// point completes.
	SelfHealingAttempted bool `json:"self_healing_attempted"`

	// SelfHealingSuccess reports the remediation outcome.
	SelfHealingSuccess bool `json:"self_healing_success"`
}

// Snapshot is the readiness verdict derived from one result set.
type Snapshot struct {
	Readiness     Level         `json:"readiness"`
	CriticalCount int           `json:"critical_count"`
	WarningCount  int           `json:"warning_count"`
	TotalChecked  int           `json:"total_checked"`
	FailurePoints []CheckResult `json:"failure_points"`
}

// Response is the readiness query payload served to the dashboard.
type Response struct {
	Readiness     Level         `json:"readiness"`
	Color         string        `json:"color"`
	CriticalCount int           `json:"critical_count"`
	WarningCount  int           `json:"warning_count"`
	TotalChecked  int           `json:"total_checked"`
	FailurePoints []CheckResult `json:"failure_points"`
	CriticalFPs   []string      `json:"critical_fps"`
	WarningFPs    []string      `json:"warning_fps"`
}
