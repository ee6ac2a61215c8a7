package healing

import (
	"time"

	"mercator-hq/warden/pkg/eventlog"
)

// Attempt is one immutable ledger entry.
type Attempt struct {
	Signal  string `json:"signal"`
	Action  string `json:"action"`
	Success bool   `json:"success"`
	Error   string `json:"error"`

	// Timestamp is serialized as epoch seconds.
	Timestamp eventlog.Timestamp `json:"_ts"`
}

// NewAttempt creates an attempt stamped with at.
func NewAttempt(signal, action string, success bool, errText string, at time.Time) Attempt {
	return Attempt{
		Signal:    signal,
		Action:    action,
		Success:   success,
		Error:     errText,
		Timestamp: eventlog.NewTimestamp(at),
	}
}

// At returns the attempt time.
func (a Attempt) At() time.Time {
	return a.Timestamp.Time
}
