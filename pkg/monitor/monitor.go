package monitor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"mercator-hq/warden/pkg/config"
	"mercator-hq/warden/pkg/failpoint"
	"mercator-hq/warden/pkg/healing"
	"mercator-hq/warden/pkg/readiness"
	"mercator-hq/warden/pkg/telemetry/logging"
	"mercator-hq/warden/pkg/telemetry/metrics"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// Cycle is the outcome of one readiness cycle.
type Cycle struct {
	ID       string             `json:"cycle_id"`
	Started  time.Time          `json:"started"`
	Duration time.Duration      `json:"duration"`
	Response readiness.Response `json:"readiness"`
	Issues   []healing.Issue    `json:"issues"`

	// Task is the submitted remediation, nil when healing is disabled or
	// there was nothing to remediate.
	Task *healing.Task `json:"-"`
}

// Options configures a Monitor.
type Options struct {
	Config   *config.Config
	Registry *failpoint.Registry

	// Store persists the result set. Nil disables persistence.
	Store *readiness.FileStore

	// Worker receives remediation issues. Nil disables healing.
	Worker *healing.Worker

	// MaxAge is how long Check serves the latest cycle before running a new
	// one. Zero runs a cycle on every read.
	MaxAge time.Duration

	Now     func() time.Time
	Metrics *metrics.Collector
	Logger  *slog.Logger
}

// Monitor aggregates failure points into a readiness verdict.
type Monitor struct {
	cfg      *config.Config
	registry *failpoint.Registry
	store    *readiness.FileStore
	worker   *healing.Worker
	now      func() time.Time
	metrics  *metrics.Collector
	logger   *slog.Logger
	maxAge   time.Duration

	// reads collapses concurrent Check calls onto one cycle.
	reads singleflight.Group

	latestMu sync.RWMutex
	latest   *Cycle

	// mu serializes cycles so the persisted document follows cycle order.
	mu sync.Mutex

	// annotating tracks outstanding annotation goroutines.
	annotating sync.WaitGroup
}

// New creates a monitor.
func New(opts Options) *Monitor {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Monitor{
		cfg:      opts.Config,
		registry: opts.Registry,
		store:    opts.Store,
		worker:   opts.Worker,
		now:      opts.Now,
		metrics:  opts.Metrics,
		logger:   opts.Logger.With("component", "monitor"),
		maxAge:   opts.MaxAge,
	}
}

// RunCycle runs every failure point, persists the results, derives the
// verdict and submits remediation. It never waits for remediation.
func (m *Monitor) RunCycle(ctx context.Context) Cycle {
	m.mu.Lock()
	defer m.mu.Unlock()

	cycle := Cycle{ID: uuid.NewString(), Started: m.now()}
	ctx = logging.WithCycleID(ctx, cycle.ID)
	start := time.Now()

	results := m.registry.Run(ctx)
	m.persist(ctx, results, cycle.Started)

	snap := readiness.Aggregate(results)
	cycle.Response = snap.Response()
	cycle.Issues = DeriveIssues(m.cfg, results)
	cycle.Duration = time.Since(start)

	m.metrics.RecordCycle(string(snap.Readiness), snap.Readiness.Gauge(), snap.CriticalCount, snap.WarningCount, cycle.Duration)
	m.logger.InfoContext(ctx, "readiness cycle completed",
		"readiness", snap.Readiness,
		"critical", snap.CriticalCount,
		"warning", snap.WarningCount,
		"issues", len(cycle.Issues),
		"duration", cycle.Duration,
	)

	if m.worker != nil && len(cycle.Issues) > 0 {
		cycle.Task = m.worker.Submit(cycle.Issues)
		m.annotating.Add(1)
		go m.annotateWhenDone(context.WithoutCancel(ctx), cycle.Task)
	}

	m.latestMu.Lock()
	m.latest = &cycle
	m.latestMu.Unlock()
	return cycle
}

// Check is the read path. It serves the latest cycle while it is younger
// than MaxAge; otherwise concurrent callers share one new cycle, which is
// not cancelled when a caller goes away.
func (m *Monitor) Check(ctx context.Context) readiness.Response {
	if cycle, ok := m.Latest(); ok && m.maxAge > 0 && m.now().Sub(cycle.Started) < m.maxAge {
		return cycle.Response
	}

	v, _, _ := m.reads.Do("cycle", func() (any, error) {
		return m.RunCycle(context.WithoutCancel(ctx)), nil
	})
	return v.(Cycle).Response
}

// Refresh runs a cycle unless the latest one started less than minGap ago.
// It reports whether a cycle ran.
func (m *Monitor) Refresh(ctx context.Context, minGap time.Duration) (Cycle, bool) {
	if cycle, ok := m.Latest(); ok && m.now().Sub(cycle.Started) < minGap {
		return cycle, false
	}
	return m.RunCycle(ctx), true
}

// Trigger returns a change callback for the file watcher. A change inside
// minGap of the latest cycle is held back and folded into one cycle once
// the gap has passed.
func (m *Monitor) Trigger(ctx context.Context, minGap time.Duration) func() {
	var pending atomic.Bool
	return func() {
		if _, ran := m.Refresh(ctx, minGap); ran || !pending.CompareAndSwap(false, true) {
			return
		}
		time.AfterFunc(minGap, func() {
			pending.Store(false)
			if ctx.Err() == nil {
				m.Refresh(ctx, minGap)
			}
		})
	}
}

// Latest returns the most recent completed cycle.
func (m *Monitor) Latest() (Cycle, bool) {
	m.latestMu.RLock()
	defer m.latestMu.RUnlock()
	if m.latest == nil {
		return Cycle{}, false
	}
	return *m.latest, true
}

// Wait blocks until pending annotations have been written.
func (m *Monitor) Wait() {
	m.annotating.Wait()
}

func (m *Monitor) persist(ctx context.Context, results []readiness.CheckResult, at time.Time) {
	if m.store == nil {
		return
	}
	if err := m.store.Save(readiness.NewDocument(results, at)); err != nil {
		m.logger.ErrorContext(ctx, "failed to persist readiness snapshot", "path", m.store.Path(), "error", err)
	}
}

func (m *Monitor) annotateWhenDone(ctx context.Context, task *healing.Task) {
	defer m.annotating.Done()

	<-task.Done()
	res, err := task.Result()
	if err != nil {
		if errors.Is(err, healing.ErrQueueFull) || errors.Is(err, healing.ErrWorkerStopped) {
			m.logger.WarnContext(ctx, "remediation not run", "error", err)
			return
		}
		m.logger.ErrorContext(ctx, "remediation failed", "error", err)
		return
	}

	m.logger.InfoContext(ctx, "remediation cycle completed", "healed", res.Healed, "failed", res.Failed, "skipped", res.Skipped)
	if m.store == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for id, success := range annotations(res) {
		if err := m.store.Annotate(id, true, success); err != nil {
			m.logger.ErrorContext(ctx, "failed to annotate readiness snapshot", "check_id", id, "error", err)
		}
	}
}
