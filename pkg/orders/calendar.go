package orders

import (
	"fmt"
	"time"

	"mercator-hq/warden/pkg/config"
)

// Calendar decides whether the exchange session is open.
type Calendar struct {
	loc      *time.Location
	open     time.Duration
	close    time.Duration
	holidays map[string]bool
}

// NewCalendar builds a calendar from the orders configuration.
func NewCalendar(cfg config.OrdersConfig) (*Calendar, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}
	open, err := config.ParseClock(cfg.SessionOpen)
	if err != nil {
		return nil, fmt.Errorf("invalid session_open: %w", err)
	}
	closeAt, err := config.ParseClock(cfg.SessionClose)
	if err != nil {
		return nil, fmt.Errorf("invalid session_close: %w", err)
	}
	if closeAt <= open {
		return nil, fmt.Errorf("session_close %s is not after session_open %s", cfg.SessionClose, cfg.SessionOpen)
	}

	holidays := make(map[string]bool, len(cfg.Holidays))
	for _, h := range cfg.Holidays {
		holidays[h] = true
	}
	return &Calendar{loc: loc, open: open, close: closeAt, holidays: holidays}, nil
}

// Location returns the exchange time zone.
func (c *Calendar) Location() *time.Location {
	return c.loc
}

// IsOpen reports whether t falls inside a trading session. Weekends and
// holidays are always closed. The session is [open, close).
func (c *Calendar) IsOpen(t time.Time) bool {
	local := t.In(c.loc)
	switch local.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	if c.holidays[local.Format(time.DateOnly)] {
		return false
	}

	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, c.loc)
	offset := local.Sub(midnight)
	return offset >= c.open && offset < c.close
}
