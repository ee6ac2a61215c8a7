package orders

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"mercator-hq/warden/pkg/config"
)

func ordersConfig() config.OrdersConfig {
	return config.OrdersConfig{
		Timezone:        "America/New_York",
		SessionOpen:     "09:30",
		SessionClose:    "16:00",
		Holidays:        []string{"2026-07-03"},
		ScanRecords:     500,
		InactivityAfter: time.Hour,
	}
}

func nyTime(t *testing.T, value string) time.Time {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	ts, err := time.ParseInLocation("2006-01-02 15:04", value, loc)
	if err != nil {
		t.Fatal(err)
	}
	return ts
}

func TestCalendar_IsOpen(t *testing.T) {
	cal, err := NewCalendar(ordersConfig())
	if err != nil {
		t.Skipf("calendar unavailable: %v", err)
	}

	tests := []struct {
		name string
		at   string
		want bool
	}{
		{"tuesday midday", "2026-03-10 12:00", true},
		{"at open", "2026-03-10 09:30", true},
		{"before open", "2026-03-10 09:29", false},
		{"at close", "2026-03-10 16:00", false},
		{"saturday", "2026-03-14 12:00", false},
		{"sunday", "2026-03-15 12:00", false},
		{"holiday", "2026-07-03 12:00", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cal.IsOpen(nyTime(t, tt.at)); got != tt.want {
				t.Errorf("IsOpen(%s) = %v, want %v", tt.at, got, tt.want)
			}
		})
	}
}

func TestNewCalendar_Errors(t *testing.T) {
	cfg := ordersConfig()
	cfg.Timezone = "Mars/Olympus"
	if _, err := NewCalendar(cfg); err == nil {
		t.Error("expected error for unknown timezone")
	}

	cfg = ordersConfig()
	cfg.SessionClose = "09:00"
	if _, err := NewCalendar(cfg); err == nil {
		t.Error("expected error when close precedes open")
	}
}

// writeLog writes one JSON record per entry; each entry is "kind@minutesAgo".
func writeLog(t *testing.T, dir, name string, now time.Time, entries ...string) string {
	t.Helper()
	var b strings.Builder
	for _, e := range entries {
		kind, ago, _ := strings.Cut(e, "@")
		minutes, err := strconv.Atoi(ago)
		if err != nil {
			t.Fatalf("bad entry %q", e)
		}
		ts := now.Add(-time.Duration(minutes) * time.Minute).Unix()
		fmt.Fprintf(&b, `{"ts": %d, "kind": %q, "component": "order", "message": "order event"}`+"\n", ts, kind)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newChecker(t *testing.T, now time.Time, execLog, errorLog string) *Checker {
	t.Helper()
	c, err := NewChecker(ordersConfig(), Options{
		ExecutionLog: execLog,
		ErrorLog:     errorLog,
		Now:          func() time.Time { return now },
	})
	if err != nil {
		t.Skipf("checker unavailable: %v", err)
	}
	return c
}

func TestChecker_Statuses(t *testing.T) {
	open := nyTime(t, "2026-03-10 14:00")
	saturday := nyTime(t, "2026-03-14 14:00")

	tests := []struct {
		name    string
		now     time.Time
		entries []string
		want    Status
	}{
		{"open with recent orders", open, []string{"order_submitted@90", "order_submitted@10", "order_filled@9"}, StatusHealthy},
		{"open and idle", open, []string{"order_submitted@180", "order_filled@170"}, StatusDegraded},
		{"open without history", open, nil, StatusNoRecentOrders},
		{"saturday ignores history", saturday, []string{"order_submitted@5"}, StatusMarketClosed},
		{"saturday ignores idleness", saturday, []string{"order_submitted@600"}, StatusMarketClosed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeLog(t, t.TempDir(), "executions.jsonl", tt.now, tt.entries...)
			h := newChecker(t, tt.now, path, "").Check(context.Background())
			if h.Status != tt.want {
				t.Errorf("Status = %s, want %s", h.Status, tt.want)
			}
		})
	}
}

func TestChecker_WindowsAndFillRate(t *testing.T) {
	now := nyTime(t, "2026-03-10 14:00")
	path := writeLog(t, t.TempDir(), "executions.jsonl", now,
		"order_submitted@600",
		"order_filled@599",
		"order_submitted@120",
		"order_rejected@119",
		"order_submitted@30",
		"order_filled@29",
		"signal@5",
	)

	h := newChecker(t, now, path, "").Check(context.Background())
	if h.Window1h.Total() != 2 || h.Window3h.Total() != 4 || h.Window24h.Total() != 6 {
		t.Errorf("windows = %+v %+v %+v", h.Window1h, h.Window3h, h.Window24h)
	}
	if want := 2.0 / 3.0; h.FillRate != want {
		t.Errorf("FillRate = %v, want %v", h.FillRate, want)
	}
	if h.LastOrderAge != 29*60 {
		t.Errorf("LastOrderAge = %v, want %v", h.LastOrderAge, 29*60)
	}
}

func TestChecker_NoSubmissionsFillRateZero(t *testing.T) {
	now := nyTime(t, "2026-03-10 14:00")
	path := writeLog(t, t.TempDir(), "executions.jsonl", now, "order_filled@5")

	h := newChecker(t, now, path, "").Check(context.Background())
	if h.FillRate != 0 {
		t.Errorf("FillRate = %v, want 0", h.FillRate)
	}
}

func TestChecker_MissingLog(t *testing.T) {
	now := nyTime(t, "2026-03-10 14:00")
	h := newChecker(t, now, filepath.Join(t.TempDir(), "absent.jsonl"), "").Check(context.Background())

	if h.Status != StatusNoRecentOrders || !h.LogMissing {
		t.Errorf("Health = %+v, want no_recent_orders with log_missing", h)
	}
	if h.Details()["log_missing"] != true {
		t.Error("details missing log_missing")
	}
}

func TestChecker_OrderErrorsDoNotChangeStatus(t *testing.T) {
	now := nyTime(t, "2026-03-10 14:00")
	dir := t.TempDir()
	execLog := writeLog(t, dir, "executions.jsonl", now, "order_submitted@5")
	errorLog := writeLog(t, dir, "errors.jsonl", now, "error@10", "error@20", "error@120")

	h := newChecker(t, now, execLog, errorLog).Check(context.Background())
	if h.OrderErrors1h != 2 {
		t.Errorf("OrderErrors1h = %d, want 2", h.OrderErrors1h)
	}
	if h.Status != StatusHealthy {
		t.Errorf("Status = %s, want healthy", h.Status)
	}
}
