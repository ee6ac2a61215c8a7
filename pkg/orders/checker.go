package orders

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"mercator-hq/warden/pkg/config"
	"mercator-hq/warden/pkg/eventlog"
)

// Status is the order pipeline state.
type Status string

const (
	StatusMarketClosed   Status = "market_closed"
	StatusNoRecentOrders Status = "no_recent_orders"
	StatusHealthy        Status = "healthy"
	StatusDegraded       Status = "degraded"
)

// Counts holds order activity in one window.
type Counts struct {
	Submitted int `json:"submitted"`
	Filled    int `json:"filled"`
	Rejected  int `json:"rejected"`
}

// Total is the number of order events in the window.
func (c Counts) Total() int {
	return c.Submitted + c.Filled + c.Rejected
}

// Health is one evaluation of the order pipeline.
type Health struct {
	Status     Status `json:"status"`
	MarketOpen bool   `json:"market_open"`

	Window1h  Counts `json:"window_1h"`
	Window3h  Counts `json:"window_3h"`
	Window24h Counts `json:"window_24h"`

	// FillRate is filled / submitted over every scanned record.
	FillRate float64 `json:"fill_rate"`

	// LastOrderAge is seconds since the newest order event, -1 when none.
	LastOrderAge float64 `json:"last_order_age"`

	// OrderErrors1h counts order-related error records in the last hour.
	// It never changes Status.
	OrderErrors1h int `json:"order_errors_1h"`

	LogMissing bool `json:"log_missing,omitempty"`
}

// Details flattens the evaluation for a failure point result.
func (h Health) Details() map[string]any {
	d := map[string]any{
		"status":          string(h.Status),
		"market_open":     h.MarketOpen,
		"orders_1h":       h.Window1h.Total(),
		"orders_3h":       h.Window3h.Total(),
		"orders_24h":      h.Window24h.Total(),
		"fills_1h":        h.Window1h.Filled,
		"fill_rate":       h.FillRate,
		"last_order_age":  h.LastOrderAge,
		"order_errors_1h": h.OrderErrors1h,
	}
	if h.LogMissing {
		d["log_missing"] = true
	}
	return d
}

// Options configures a Checker.
type Options struct {
	ExecutionLog string
	ErrorLog     string
	TailRecords  int
	Now          func() time.Time
	Logger       *slog.Logger
}

// Checker evaluates the order pipeline from the execution log.
type Checker struct {
	calendar   *Calendar
	execLog    string
	errorLog   string
	scan       int
	tail       int
	inactivity time.Duration
	now        func() time.Time
	logger     *slog.Logger
}

// NewChecker creates a checker.
func NewChecker(cfg config.OrdersConfig, opts Options) (*Checker, error) {
	cal, err := NewCalendar(cfg)
	if err != nil {
		return nil, err
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	scan := cfg.ScanRecords
	if scan <= 0 {
		scan = config.DefaultScanRecords
	}
	inactivity := cfg.InactivityAfter
	if inactivity <= 0 {
		inactivity = config.DefaultInactivityAfter
	}
	return &Checker{
		calendar:   cal,
		execLog:    opts.ExecutionLog,
		errorLog:   opts.ErrorLog,
		scan:       scan,
		tail:       opts.TailRecords,
		inactivity: inactivity,
		now:        opts.Now,
		logger:     opts.Logger.With("component", "orders"),
	}, nil
}

// Calendar returns the checker's market calendar.
func (c *Checker) Calendar() *Calendar {
	return c.calendar
}

// Check evaluates the pipeline at the current time.
func (c *Checker) Check(ctx context.Context) Health {
	now := c.now()
	h := Health{
		MarketOpen:   c.calendar.IsOpen(now),
		LastOrderAge: -1,
	}

	orders, err := c.readOrders()
	switch {
	case errors.Is(err, eventlog.ErrLogMissing):
		h.LogMissing = true
	case err != nil:
		c.logger.WarnContext(ctx, "failed to read execution log", "path", c.execLog, "error", err)
	}
	c.bucket(&h, orders, now)
	h.OrderErrors1h = c.countOrderErrors(ctx, now)

	switch {
	case !h.MarketOpen:
		h.Status = StatusMarketClosed
	case len(orders) == 0:
		h.Status = StatusNoRecentOrders
	case h.Window1h.Total() > 0:
		h.Status = StatusHealthy
	case h.LastOrderAge > c.inactivity.Seconds():
		h.Status = StatusDegraded
	default:
		h.Status = StatusHealthy
	}
	return h
}

// readOrders returns the order events among the last scan execution records.
func (c *Checker) readOrders() ([]eventlog.Record, error) {
	if c.execLog == "" {
		return nil, eventlog.ErrLogMissing
	}
	res, err := eventlog.ReadTail(c.execLog, c.scan)
	if err != nil {
		return nil, err
	}
	out := make([]eventlog.Record, 0, len(res.Records))
	for _, rec := range res.Records {
		if rec.Kind.IsOrder() {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (c *Checker) bucket(h *Health, orders []eventlog.Record, now time.Time) {
	var submitted, filled int
	var newest time.Time
	for _, rec := range orders {
		at := rec.At()
		if at.After(newest) {
			newest = at
		}
		switch rec.Kind {
		case eventlog.KindOrderSubmitted:
			submitted++
		case eventlog.KindOrderFilled:
			filled++
		}

		age := now.Sub(at)
		if age <= time.Hour {
			add(&h.Window1h, rec.Kind)
		}
		if age <= 3*time.Hour {
			add(&h.Window3h, rec.Kind)
		}
		if age <= 24*time.Hour {
			add(&h.Window24h, rec.Kind)
		}
	}

	if submitted > 0 {
		h.FillRate = float64(filled) / float64(submitted)
	}
	if !newest.IsZero() {
		h.LastOrderAge = max(now.Sub(newest).Seconds(), 0)
	}
}

func add(c *Counts, kind eventlog.Kind) {
	switch kind {
	case eventlog.KindOrderSubmitted:
		c.Submitted++
	case eventlog.KindOrderFilled:
		c.Filled++
	case eventlog.KindOrderRejected:
		c.Rejected++
	}
}

// countOrderErrors counts error records from the order component, or whose
// message mentions an order, in the last hour.
func (c *Checker) countOrderErrors(ctx context.Context, now time.Time) int {
	if c.errorLog == "" {
		return 0
	}
	res, err := eventlog.ReadTail(c.errorLog, c.tail)
	if err != nil {
		if !errors.Is(err, eventlog.ErrLogMissing) {
			c.logger.WarnContext(ctx, "failed to read error log", "path", c.errorLog, "error", err)
		}
		return 0
	}

	n := 0
	for _, rec := range eventlog.NewIndex(res.Records).Window(now.Add(-time.Hour), eventlog.Filter{}) {
		if rec.Component == "order" || strings.Contains(strings.ToLower(rec.Message), "order") {
			n++
		}
	}
	return n
}
