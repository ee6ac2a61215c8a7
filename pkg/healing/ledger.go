package healing

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"mercator-hq/warden/pkg/config"
)

// Ledger is the append-only attempt log.
type Ledger interface {
	// Append records one attempt as a single complete write.
	Append(ctx context.Context, a Attempt) error

	// Since returns the attempts for signal at or after t, oldest first.
	Since(ctx context.Context, signal string, t time.Time) ([]Attempt, error)

	// All returns every attempt, oldest first.
	All(ctx context.Context) ([]Attempt, error)

	// Prune removes attempts older than before and returns how many were
	// removed.
	Prune(ctx context.Context, before time.Time) (int64, error)

	Close() error
}

// NewLedger opens the configured ledger backend.
func NewLedger(cfg config.LedgerConfig) (Ledger, error) {
	switch cfg.Backend {
	case "", "file":
		return NewFileLedger(cfg.Path), nil
	case "sqlite":
		return NewSQLiteLedger(cfg.Path, cfg.BusyTimeout)
	case "memory":
		return NewMemoryLedger(), nil
	default:
		return nil, fmt.Errorf("unknown ledger backend %q", cfg.Backend)
	}
}

// MemoryLedger keeps attempts in memory.
type MemoryLedger struct {
	mu       sync.RWMutex
	attempts []Attempt
}

// NewMemoryLedger creates an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{}
}

// Append implements Ledger.
func (m *MemoryLedger) Append(ctx context.Context, a Attempt) error {
	if err := ctx.Err(); err != nil {
		return NewLedgerError("memory", "append", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts = append(m.attempts, a)
	return nil
}

// Since implements Ledger.
func (m *MemoryLedger) Since(ctx context.Context, signal string, t time.Time) ([]Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return filterSince(m.attempts, signal, t), nil
}

// All implements Ledger.
func (m *MemoryLedger) All(ctx context.Context) ([]Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Attempt, len(m.attempts))
	copy(out, m.attempts)
	sortAttempts(out)
	return out, nil
}

// Prune implements Ledger.
func (m *MemoryLedger) Prune(ctx context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept, removed := partition(m.attempts, before)
	m.attempts = kept
	return removed, nil
}

// Close implements Ledger.
func (m *MemoryLedger) Close() error { return nil }

func filterSince(attempts []Attempt, signal string, t time.Time) []Attempt {
	var out []Attempt
	for _, a := range attempts {
		if a.Signal == signal && !a.At().Before(t) {
			out = append(out, a)
		}
	}
	sortAttempts(out)
	return out
}

func partition(attempts []Attempt, before time.Time) ([]Attempt, int64) {
	kept := attempts[:0:0]
	var removed int64
	for _, a := range attempts {
		if a.At().Before(before) {
			removed++
			continue
		}
		kept = append(kept, a)
	}
	return kept, removed
}

func sortAttempts(attempts []Attempt) {
	sort.SliceStable(attempts, func(i, j int) bool {
		return attempts[i].At().Before(attempts[j].At())
	})
}
