package monitor

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"mercator-hq/warden/pkg/config"
	"mercator-hq/warden/pkg/failpoint"
	"mercator-hq/warden/pkg/healing"
	"mercator-hq/warden/pkg/readiness"
	"mercator-hq/warden/pkg/signals"
	"mercator-hq/warden/pkg/supervisor"
)

func testConfig() *config.Config {
	return &config.Config{
		Signals: config.SignalsConfig{
			Watchlist: []string{"SPY", "QQQ"},
			Tracked: []config.SignalSpec{
				{Name: "sentiment", Tier: config.TierComputed, Strategy: healing.StrategyRecompute},
				{Name: "options_flow", Tier: config.TierAuxiliary, Strategy: healing.StrategyRefetch, Endpoint: "options"},
			},
		},
		Supervisor: config.SupervisorConfig{IngestionUnit: "ingest", TradingUnit: "trader"},
	}
}

func TestDeriveIssues(t *testing.T) {
	results := []readiness.CheckResult{
		{ID: failpoint.IDIngestionProcess, Status: readiness.StatusError, Details: map[string]any{"unit": "ingest", "active": false}},
		{ID: failpoint.IDCacheFreshness, Status: readiness.StatusError, Details: map[string]any{"stale": true}},
		{ID: failpoint.IDSignalFreshness, Status: readiness.StatusWarn, Details: map[string]any{"no_data": []string{"options_flow", "unlisted"}}},
		// Supervisor unreachable: no restart.
		{ID: failpoint.IDTradingProcess, Status: readiness.StatusError, Details: map[string]any{"unit": "trader"}},
	}

	issues := DeriveIssues(testConfig(), results)
	if len(issues) != 4 {
		t.Fatalf("got %d issues: %+v", len(issues), issues)
	}

	want := []struct {
		id, status, strategy, target string
	}{
		{failpoint.IDIngestionProcess, healing.IssueDown, healing.StrategyRestart, "ingest"},
		{failpoint.IDCacheFreshness, healing.IssueStale, healing.StrategyRestart, "ingest"},
		{"options_flow", healing.IssueNoData, healing.StrategyRefetch, "options"},
		{"unlisted", healing.IssueNoData, healing.StrategyNone, ""},
	}
	for i, w := range want {
		is := issues[i]
		if is.ID != w.id || is.Status != w.status || is.Strategy != w.strategy || is.Target != w.target {
			t.Errorf("issues[%d] = %+v, want %+v", i, is, w)
		}
	}
	if issues[2].Tier != config.TierAuxiliary || len(issues[2].Entities) != 2 {
		t.Errorf("signal issue = %+v", issues[2])
	}
}

func TestDeriveIssues_CacheFreshness(t *testing.T) {
	tests := []struct {
		name    string
		status  readiness.Status
		details map[string]any
		want    int
	}{
		{"stale", readiness.StatusError, map[string]any{"stale": true}, 1},
		{"warn", readiness.StatusWarn, map[string]any{"age_seconds": 900.0}, 0},
		{"timed out", readiness.StatusError, map[string]any{"outcome": failpoint.OutcomeTimeout}, 0},
		{"timed out while stale", readiness.StatusError, map[string]any{"stale": true, "outcome": failpoint.OutcomeTimeout}, 0},
		{"error without staleness", readiness.StatusError, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results := []readiness.CheckResult{{ID: failpoint.IDCacheFreshness, Status: tt.status, Details: tt.details}}
			if got := DeriveIssues(testConfig(), results); len(got) != tt.want {
				t.Errorf("got %d issues, want %d: %+v", len(got), tt.want, got)
			}
		})
	}
}

// stallingSource blocks until the context ends.
type stallingSource struct{}

func (stallingSource) Stat(ctx context.Context) (signals.Meta, error) {
	<-ctx.Done()
	return signals.Meta{}, ctx.Err()
}

func (stallingSource) Load(ctx context.Context) (signals.Snapshot, error) {
	<-ctx.Done()
	return signals.Snapshot{}, ctx.Err()
}

func TestMonitor_InterruptedCacheCheckRaisesNoIssue(t *testing.T) {
	now := time.Now()
	path := filepath.Join(t.TempDir(), "signal_cache.json")
	if err := os.WriteFile(path, []byte(`{"SPY":{"quote":{"p":1}}}`), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		src  signals.Source
	}{
		{"fresh file", &signals.FileSource{Path: path, Now: func() time.Time { return now }}},
		{"stalled backend", stallingSource{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checks := []failpoint.Check{
				failpoint.CacheFreshnessCheck(tt.src, 10*time.Minute, 30*time.Minute, func() time.Time { return now }),
			}
			m := New(Options{
				Config:   testConfig(),
				Registry: failpoint.NewRegistry(checks, failpoint.Options{Timeout: 50 * time.Millisecond}),
			})

			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			if cycle := m.RunCycle(ctx); len(cycle.Issues) != 0 {
				t.Errorf("issues = %+v", cycle.Issues)
			}
		})
	}
}

func processCheck(sup supervisor.Supervisor) []failpoint.Check {
	return []failpoint.Check{
		failpoint.ProcessCheck(failpoint.IDIngestionProcess, "Ingestion process", sup, "ingest"),
		failpoint.New("cache_exists", "cache", readiness.CategoryData, func(ctx context.Context) (failpoint.Outcome, error) {
			return failpoint.Outcome{Status: readiness.StatusOK}, nil
		}),
	}
}

func TestMonitor_RunCycleHealsAndAnnotates(t *testing.T) {
	sup := supervisor.NewMemory()
	store := readiness.NewFileStore(filepath.Join(t.TempDir(), "health_state.json"))

	remediator := healing.NewRemediator(healing.NewMemoryLedger(), healing.DefaultPolicy(), healing.Options{
		Strategies: []healing.Strategy{&healing.RestartStrategy{Supervisor: sup}},
	})
	worker := healing.NewWorker(remediator, 4, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	worker.Start(ctx)
	defer worker.Stop()

	m := New(Options{
		Config:   testConfig(),
		Registry: failpoint.NewRegistry(processCheck(sup), failpoint.Options{}),
		Store:    store,
		Worker:   worker,
	})

	cycle := m.RunCycle(ctx)
	if cycle.ID == "" {
		t.Error("cycle has no id")
	}
	if cycle.Response.Readiness != readiness.LevelBlocked {
		t.Errorf("Readiness = %s, want BLOCKED", cycle.Response.Readiness)
	}
	if cycle.Task == nil {
		t.Fatal("no remediation submitted")
	}

	waitCtx, waitCancel := context.WithTimeout(ctx, 5*time.Second)
	defer waitCancel()
	res, err := cycle.Task.Wait(waitCtx)
	if err != nil {
		t.Fatal(err)
	}
	if res.Healed != 1 {
		t.Errorf("Healed = %d, want 1", res.Healed)
	}
	m.Wait()

	doc, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}
	var found bool
	for _, r := range doc.Results() {
		if r.ID == failpoint.IDIngestionProcess {
			found = true
			if !r.SelfHealingAttempted || !r.SelfHealingSuccess {
				t.Errorf("annotation = %+v", r)
			}
		}
	}
	if !found {
		t.Error("ingestion_process missing from snapshot")
	}

	// The restart brought the unit back.
	if resp := m.Check(ctx); resp.Readiness != readiness.LevelReady {
		t.Errorf("second cycle Readiness = %s, want READY", resp.Readiness)
	}
}

func TestMonitor_WithoutHealing(t *testing.T) {
	m := New(Options{
		Config:   testConfig(),
		Registry: failpoint.NewRegistry(processCheck(supervisor.NewMemory()), failpoint.Options{}),
	})
	cycle := m.RunCycle(context.Background())
	if cycle.Task != nil {
		t.Error("task submitted without a worker")
	}
	if len(cycle.Issues) != 1 {
		t.Errorf("issues = %+v", cycle.Issues)
	}
}

func TestMonitor_PersistFailureKeepsVerdict(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	m := New(Options{
		Config:   testConfig(),
		Registry: failpoint.NewRegistry(processCheck(supervisor.NewMemory("ingest")), failpoint.Options{}),
		// A path below a regular file cannot be written.
		Store: readiness.NewFileStore(filepath.Join(blocker, "health_state.json")),
	})
	if resp := m.Check(context.Background()); resp.Readiness != readiness.LevelReady {
		t.Errorf("Readiness = %s, want READY", resp.Readiness)
	}
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func countingCheck(calls *atomic.Int32, release <-chan struct{}) failpoint.Check {
	return failpoint.New("counted", "Counted", readiness.CategoryProcess, func(ctx context.Context) (failpoint.Outcome, error) {
		calls.Add(1)
		if release != nil {
			<-release
		}
		return failpoint.Outcome{Status: readiness.StatusOK}, nil
	})
}

func TestMonitor_ConcurrentReadsShareOneCycle(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	m := New(Options{
		Config:   testConfig(),
		Registry: failpoint.NewRegistry([]failpoint.Check{countingCheck(&calls, release)}, failpoint.Options{}),
	})

	const readers = 5
	var wg sync.WaitGroup
	responses := make([]readiness.Response, readers)
	for i := 0; i < readers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			responses[i] = m.Check(context.Background())
		}()
	}

	deadline := time.Now().Add(5 * time.Second)
	for calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	// Let the remaining readers join the cycle in flight.
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Errorf("check ran %d times for %d concurrent reads, want 1", got, readers)
	}
	for i, resp := range responses {
		if resp.Readiness != readiness.LevelReady {
			t.Errorf("responses[%d].Readiness = %s, want READY", i, resp.Readiness)
		}
	}
}

func TestMonitor_CheckServesRecentCycle(t *testing.T) {
	var calls atomic.Int32
	clock := &fakeClock{now: time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC)}
	m := New(Options{
		Config:   testConfig(),
		Registry: failpoint.NewRegistry([]failpoint.Check{countingCheck(&calls, nil)}, failpoint.Options{}),
		MaxAge:   time.Minute,
		Now:      clock.Now,
	})

	m.RunCycle(context.Background())
	m.Check(context.Background())
	m.Check(context.Background())
	if got := calls.Load(); got != 1 {
		t.Errorf("calls = %d after cached reads, want 1", got)
	}

	clock.Advance(2 * time.Minute)
	m.Check(context.Background())
	if got := calls.Load(); got != 2 {
		t.Errorf("calls = %d after the cycle aged out, want 2", got)
	}
}

func TestMonitor_CheckOutlivesCancelledReader(t *testing.T) {
	m := New(Options{
		Config:   testConfig(),
		Registry: failpoint.NewRegistry(processCheck(supervisor.NewMemory("ingest")), failpoint.Options{}),
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if resp := m.Check(ctx); resp.Readiness != readiness.LevelReady {
		t.Errorf("Readiness = %s, want READY", resp.Readiness)
	}
}

func TestMonitor_RefreshHonorsMinGap(t *testing.T) {
	var calls atomic.Int32
	clock := &fakeClock{now: time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC)}
	m := New(Options{
		Config:   testConfig(),
		Registry: failpoint.NewRegistry([]failpoint.Check{countingCheck(&calls, nil)}, failpoint.Options{}),
		Now:      clock.Now,
	})

	steps := []struct {
		advance time.Duration
		wantRan bool
	}{
		{0, true},
		{10 * time.Second, false},
		{10 * time.Second, false},
		{15 * time.Second, true},
	}
	for i, step := range steps {
		clock.Advance(step.advance)
		if _, ran := m.Refresh(context.Background(), 30*time.Second); ran != step.wantRan {
			t.Errorf("step %d: ran = %v, want %v", i, ran, step.wantRan)
		}
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("calls = %d, want 2", got)
	}
}

func TestMonitor_TriggerCoalescesBursts(t *testing.T) {
	var calls atomic.Int32
	m := New(Options{
		Config:   testConfig(),
		Registry: failpoint.NewRegistry([]failpoint.Check{countingCheck(&calls, nil)}, failpoint.Options{}),
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	onChange := m.Trigger(ctx, 50*time.Millisecond)
	for i := 0; i < 4; i++ {
		onChange()
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("calls = %d right after the burst, want 1", got)
	}

	deadline := time.Now().Add(5 * time.Second)
	for calls.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	// Give a stray extra cycle time to show up.
	time.Sleep(100 * time.Millisecond)
	if got := calls.Load(); got != 2 {
		t.Errorf("calls = %d, want 2 (one immediate, one deferred)", got)
	}
}

func TestScheduleSpec(t *testing.T) {
	if got := ScheduleSpec(config.ScheduleConfig{Interval: 300 * time.Second}); got != "@every 5m0s" {
		t.Errorf("ScheduleSpec = %q", got)
	}
	if got := ScheduleSpec(config.ScheduleConfig{Interval: time.Minute, Cron: "*/2 * * * *"}); got != "*/2 * * * *" {
		t.Errorf("ScheduleSpec = %q", got)
	}
}

type countingRunner struct{ n atomic.Int32 }

func (c *countingRunner) RunCycle(context.Context) Cycle {
	c.n.Add(1)
	return Cycle{}
}

func TestScheduler(t *testing.T) {
	if err := NewScheduler(&countingRunner{}, "every minute").Start(context.Background()); err == nil {
		t.Error("expected error for invalid spec")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := NewScheduler(&countingRunner{}, "@every 5m")
	if err := s.Start(ctx); err != nil {
		t.Fatal(err)
	}
	next := s.NextRun()
	if next == nil || time.Until(*next) > 5*time.Minute+time.Second {
		t.Errorf("NextRun = %v", next)
	}
	s.Stop()
}

func TestDebouncer(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	var calls atomic.Int32
	for i := 0; i < 5; i++ {
		d.Trigger(func() { calls.Add(1) })
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(150 * time.Millisecond)
	if n := calls.Load(); n != 1 {
		t.Errorf("calls = %d, want 1", n)
	}

	d.Trigger(func() { calls.Add(1) })
	d.Stop()
	time.Sleep(60 * time.Millisecond)
	if n := calls.Load(); n != 1 {
		t.Errorf("callback ran after Stop: %d", n)
	}
}

func TestWatcher_TriggersOnWatchedFile(t *testing.T) {
	dir := t.TempDir()
	marker := filepath.Join(dir, "TRADING_FROZEN")

	w, err := NewWatcher([]string{marker}, 20*time.Millisecond, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	fired := make(chan struct{}, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Watch(ctx, func() { fired <- struct{}{} })

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(dir, "unrelated.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(marker, []byte("halt"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-fired:
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not fire for the marker file")
	}
}
