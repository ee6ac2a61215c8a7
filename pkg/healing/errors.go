package healing

import (
	"errors"
	"fmt"
)

// ErrQueueFull is reported by a Task rejected because the worker queue is
// full.
var ErrQueueFull = errors.New("remediation queue full")

// ErrWorkerStopped is reported by a Task submitted after the worker stopped.
var ErrWorkerStopped = errors.New("remediation worker stopped")

// LedgerError is an error from a ledger backend.
type LedgerError struct {
	Backend   string // "file", "sqlite" or "memory"
	Operation string // "append", "read", "prune", ...
	Cause     error
}

// Error implements the error interface.
func (e *LedgerError) Error() string {
	return fmt.Sprintf("ledger error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *LedgerError) Unwrap() error {
	return e.Cause
}

// NewLedgerError creates a new LedgerError.
func NewLedgerError(backend, operation string, cause error) *LedgerError {
	return &LedgerError{
		Backend:   backend,
		Operation: operation,
		Cause:     cause,
	}
}
