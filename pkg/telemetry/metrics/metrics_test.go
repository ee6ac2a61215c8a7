package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"mercator-hq/warden/pkg/config"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func testCollector() *Collector {
	return NewCollector(config.MetricsConfig{Enabled: config.Bool(true), Namespace: "test"}, nil)
}

func TestCollector_RecordCycle(t *testing.T) {
	c := testCollector()
	c.RecordCycle("BLOCKED", 2, 1, 3, time.Second)

	if got := testutil.ToFloat64(c.readiness.level); got != 2 {
		t.Errorf("readiness_level = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.readiness.warning); got != 3 {
		t.Errorf("readiness_warning = %v, want 3", got)
	}
	if got := testutil.ToFloat64(c.readiness.cycles.WithLabelValues("BLOCKED")); got != 1 {
		t.Errorf("cycles_total{BLOCKED} = %v, want 1", got)
	}
}

func TestCollector_RecordCheck(t *testing.T) {
	c := testCollector()
	c.RecordCheck("cache_exists", "data", "ERROR", 10*time.Millisecond)
	c.RecordCheck("cache_exists", "data", "OK", 10*time.Millisecond)

	if got := testutil.ToFloat64(c.readiness.checkStatus.WithLabelValues("cache_exists", "data", "OK")); got != 1 {
		t.Errorf("OK gauge = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.readiness.checkStatus.WithLabelValues("cache_exists", "data", "ERROR")); got != 0 {
		t.Errorf("ERROR gauge = %v, want 0 after recovery", got)
	}
}

func TestCollector_ProbeAndHealing(t *testing.T) {
	c := testCollector()
	c.RecordProbe("quotes", "rate_limited", 200*time.Millisecond, 0)
	c.RecordProbe("quotes", "rate_limited", 0, -1)
	c.RecordHealingAttempt("quote", "restart", true)
	c.RecordHealingSkipped("quote", "rate_limited")
	c.RecordLedgerPruned(4)

	if got := testutil.ToFloat64(c.probes.outcomes.WithLabelValues("quotes", "rate_limited")); got != 2 {
		t.Errorf("probe outcomes = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.probes.rateLimit.WithLabelValues("quotes")); got != 0 {
		t.Errorf("rate_limit_remaining = %v, want 0", got)
	}
	if got := testutil.ToFloat64(c.healing.attempts.WithLabelValues("quote", "restart", "success")); got != 1 {
		t.Errorf("attempts = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.healing.pruned); got != 4 {
		t.Errorf("pruned = %v, want 4", got)
	}
}

func TestCollector_NilAndDisabled(t *testing.T) {
	var nilCollector *Collector
	nilCollector.RecordCycle("READY", 0, 0, 0, time.Second)
	nilCollector.RecordHealingAttempt("s", "a", false)

	c := NewCollector(config.MetricsConfig{Enabled: config.Bool(false)}, nil)
	c.RecordCycle("BLOCKED", 2, 1, 0, time.Second)
	if got := testutil.ToFloat64(c.readiness.level); got != 0 {
		t.Errorf("disabled collector recorded %v", got)
	}
}

func TestCollector_Handler(t *testing.T) {
	c := testCollector()
	c.RecordCycle("DEGRADED", 1, 0, 1, time.Second)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "test_readiness_level 1") {
		t.Errorf("body missing readiness gauge:\n%s", rec.Body.String())
	}
}
