package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"mercator-hq/warden/pkg/config"

	"github.com/robfig/cron/v3"
)

// Runner runs one readiness cycle.
type Runner interface {
	RunCycle(ctx context.Context) Cycle
}

// ScheduleSpec returns the cron spec for cfg: Cron when set, otherwise
// "@every <Interval>".
func ScheduleSpec(cfg config.ScheduleConfig) string {
	if cfg.Cron != "" {
		return cfg.Cron
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = config.DefaultInterval
	}
	return "@every " + interval.String()
}

// Scheduler runs cycles on a cron schedule. A tick that fires while the
// previous cycle is still running is skipped.
type Scheduler struct {
	runner  Runner
	spec    string
	cron    *cron.Cron
	mu      sync.Mutex
	logger  *slog.Logger
	running bool
}

// NewScheduler creates a scheduler for spec.
func NewScheduler(runner Runner, spec string) *Scheduler {
	logger := slog.Default().With("component", "monitor.scheduler")
	return &Scheduler{
		runner: runner,
		spec:   spec,
		cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		logger: logger,
	}
}

// Start schedules cycles until ctx is done or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}
	if _, err := cron.ParseStandard(s.spec); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", s.spec, err)
	}
	if _, err := s.cron.AddFunc(s.spec, func() { s.runner.RunCycle(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule cycles: %w", err)
	}

	s.cron.Start()
	s.running = true
	s.logger.Info("readiness scheduler started", "schedule", s.spec)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

// Stop stops the scheduler and waits for a running cycle.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		<-s.cron.Stop().Done()
		s.running = false
		s.logger.Info("readiness scheduler stopped")
	}
}

// NextRun returns the next scheduled cycle, nil when not scheduled.
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
