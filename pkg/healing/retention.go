package healing

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"mercator-hq/warden/pkg/telemetry/metrics"

	"github.com/robfig/cron/v3"
)

// Pruner removes ledger attempts older than the retention period.
type Pruner struct {
	ledger    Ledger
	retention time.Duration
	now       func() time.Time
	metrics   *metrics.Collector
	logger    *slog.Logger
}

// NewPruner creates a pruner keeping days of attempts. The retention must
// cover the policy window, otherwise rate limiting would forget attempts
// still inside it.
func NewPruner(ledger Ledger, days int, policy Policy, m *metrics.Collector) (*Pruner, error) {
	retention := time.Duration(days) * 24 * time.Hour
	if days <= 0 || retention < policy.Window {
		return nil, fmt.Errorf("retention of %d days is shorter than the healing window %s", days, policy.Window)
	}
	return &Pruner{
		ledger:    ledger,
		retention: retention,
		now:       time.Now,
		metrics:   m,
		logger:    slog.Default().With("component", "healing.retention"),
	}, nil
}

// Prune deletes expired attempts and returns how many were removed.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	cutoff := p.now().Add(-p.retention)
	deleted, err := p.ledger.Prune(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune ledger: %w", err)
	}
	p.metrics.RecordLedgerPruned(deleted)
	if deleted > 0 {
		p.logger.Info("pruned healing ledger", "deleted_count", deleted, "cutoff_time", cutoff)
	} else {
		p.logger.Debug("no ledger entries pruned", "cutoff_time", cutoff)
	}
	return deleted, nil
}

// Scheduler runs the pruner on a cron schedule.
type Scheduler struct {
	pruner   *Pruner
	schedule string
	cron     *cron.Cron
	mu       sync.Mutex
	logger   *slog.Logger
	running  bool
}

// NewScheduler creates a retention scheduler.
func NewScheduler(pruner *Pruner, schedule string) *Scheduler {
	return &Scheduler{
		pruner:   pruner,
		schedule: schedule,
		cron:     cron.New(),
		logger:   slog.Default().With("component", "healing.scheduler"),
	}
}

// Start schedules pruning. An empty schedule disables it.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.schedule == "" {
		s.logger.Info("prune schedule not configured, skipping scheduler")
		return nil
	}
	if _, err := cron.ParseStandard(s.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", s.schedule, err)
	}
	if _, err := s.cron.AddFunc(s.schedule, func() { s.runPruning(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule pruning: %w", err)
	}

	s.cron.Start()
	s.running = true
	s.logger.Info("retention scheduler started", "schedule", s.schedule)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

func (s *Scheduler) runPruning(ctx context.Context) {
	if _, err := s.pruner.Prune(ctx); err != nil {
		s.logger.Error("scheduled pruning failed", "error", err)
	}
}

// Stop stops the scheduler and waits for a running prune to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		<-s.cron.Stop().Done()
		s.running = false
		s.logger.Info("retention scheduler stopped")
	}
}

// IsRunning reports whether the scheduler is running.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun returns the next scheduled prune, nil when not scheduled.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.cron.Entries()
	if len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}
