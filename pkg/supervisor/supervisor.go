package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"mercator-hq/warden/pkg/config"

	"golang.org/x/sync/singleflight"
)

// Supervisor queries and restarts managed units.
type Supervisor interface {
	// IsActive reports whether unit is running. An error means the
	// supervisor itself could not be asked.
	IsActive(ctx context.Context, unit string) (bool, error)

	// Restart requests a restart of unit.
	Restart(ctx context.Context, unit string) error
}

// New creates the configured supervisor wrapped in Dedup.
func New(cfg config.SupervisorConfig) (Supervisor, error) {
	switch cfg.Backend {
	case "", "systemd":
		return NewDedup(NewSystemd(cfg)), nil
	case "noop":
		return NewDedup(NewNoop()), nil
	default:
		return nil, fmt.Errorf("unknown supervisor backend %q", cfg.Backend)
	}
}

// Dedup collapses concurrent Restart calls for the same unit into one
// request. Every caller receives the shared result.
type Dedup struct {
	next  Supervisor
	group singleflight.Group
}

// NewDedup wraps next.
func NewDedup(next Supervisor) *Dedup {
	return &Dedup{next: next}
}

// IsActive implements Supervisor.
func (d *Dedup) IsActive(ctx context.Context, unit string) (bool, error) {
	return d.next.IsActive(ctx, unit)
}

// Restart implements Supervisor.
func (d *Dedup) Restart(ctx context.Context, unit string) error {
	_, err, _ := d.group.Do(unit, func() (any, error) {
		return nil, d.next.Restart(ctx, unit)
	})
	return err
}

// Noop reports every unit as active and ignores restarts. It is used for dry
// runs on hosts without a service manager.
type Noop struct {
	logger *slog.Logger
}

// NewNoop creates a Noop supervisor.
func NewNoop() *Noop {
	return &Noop{logger: slog.Default().With("component", "supervisor")}
}

// IsActive implements Supervisor.
func (n *Noop) IsActive(ctx context.Context, unit string) (bool, error) {
	return true, nil
}

// Restart implements Supervisor.
func (n *Noop) Restart(ctx context.Context, unit string) error {
	n.logger.InfoContext(ctx, "restart requested on noop supervisor", "unit", unit)
	return nil
}

// Memory is an in-process supervisor for tests.
type Memory struct {
	mu       sync.Mutex
	active   map[string]bool
	restarts map[string]int

	// RestartErr is returned by Restart when set.
	RestartErr error

	// ActiveErr is returned by IsActive when set.
	ActiveErr error
}

// NewMemory creates a Memory supervisor with the given units active.
func NewMemory(active ...string) *Memory {
	m := &Memory{active: make(map[string]bool), restarts: make(map[string]int)}
	for _, u := range active {
		m.active[u] = true
	}
	return m
}

// SetActive marks unit as running or stopped.
func (m *Memory) SetActive(unit string, active bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active[unit] = active
}

// Restarts returns how many restarts were requested for unit.
func (m *Memory) Restarts(unit string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.restarts[unit]
}

// IsActive implements Supervisor.
func (m *Memory) IsActive(ctx context.Context, unit string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ActiveErr != nil {
		return false, m.ActiveErr
	}
	return m.active[unit], nil
}

// Restart implements Supervisor. A successful restart leaves the unit active.
func (m *Memory) Restart(ctx context.Context, unit string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.restarts[unit]++
	if m.RestartErr != nil {
		return m.RestartErr
	}
	m.active[unit] = true
	return nil
}
