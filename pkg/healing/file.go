package healing

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// maxLineSize bounds a single ledger line.
const maxLineSize = 64 * 1024

// FileLedger stores attempts as JSON lines. Each Append is one write of one
// complete line to a file opened with O_APPEND, so concurrent readers never
// observe a partial record.
type FileLedger struct {
	path   string
	mu     sync.Mutex
	logger *slog.Logger
}

// NewFileLedger creates a ledger at path. The file is created on first
// append.
func NewFileLedger(path string) *FileLedger {
	return &FileLedger{
		path:   path,
		logger: slog.Default().With("component", "healing.ledger"),
	}
}

// Path returns the ledger file path.
func (l *FileLedger) Path() string {
	return l.path
}

// Append implements Ledger.
func (l *FileLedger) Append(ctx context.Context, a Attempt) error {
	line, err := json.Marshal(a)
	if err != nil {
		return NewLedgerError("file", "encode", err)
	}
	line = append(line, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return NewLedgerError("file", "append", err)
	}
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return NewLedgerError("file", "append", err)
	}
	if _, err := f.Write(line); err != nil {
		f.Close()
		return NewLedgerError("file", "append", err)
	}
	if err := f.Close(); err != nil {
		return NewLedgerError("file", "append", err)
	}
	return nil
}

// Since implements Ledger.
func (l *FileLedger) Since(ctx context.Context, signal string, t time.Time) ([]Attempt, error) {
	all, err := l.read()
	if err != nil {
		return nil, err
	}
	return filterSince(all, signal, t), nil
}

// All implements Ledger.
func (l *FileLedger) All(ctx context.Context) ([]Attempt, error) {
	all, err := l.read()
	if err != nil {
		return nil, err
	}
	sortAttempts(all)
	return all, nil
}

// read decodes every line. A missing file is an empty ledger; malformed lines
// are skipped.
func (l *FileLedger) read() ([]Attempt, error) {
	f, err := os.Open(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, NewLedgerError("file", "read", err)
	}
	defer f.Close()

	var (
		out     []Attempt
		skipped int
	)
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 4096), maxLineSize)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var a Attempt
		if err := json.Unmarshal(line, &a); err != nil {
			skipped++
			continue
		}
		out = append(out, a)
	}
	if err := sc.Err(); err != nil {
		return nil, NewLedgerError("file", "read", err)
	}
	if skipped > 0 {
		l.logger.Warn("skipped malformed ledger lines", "path", l.path, "skipped", skipped)
	}
	return out, nil
}

// Prune rewrites the ledger without attempts older than before. The new file
// replaces the old one with a rename.
func (l *FileLedger) Prune(ctx context.Context, before time.Time) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	all, err := l.read()
	if err != nil {
		return 0, err
	}
	kept, removed := partition(all, before)
	if removed == 0 {
		return 0, nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, a := range kept {
		if err := enc.Encode(a); err != nil {
			return 0, NewLedgerError("file", "prune", err)
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(l.path), filepath.Base(l.path)+".*.tmp")
	if err != nil {
		return 0, NewLedgerError("file", "prune", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return 0, NewLedgerError("file", "prune", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return 0, NewLedgerError("file", "prune", err)
	}
	if err := os.Rename(tmpName, l.path); err != nil {
		os.Remove(tmpName)
		return 0, NewLedgerError("file", "prune", fmt.Errorf("replace ledger: %w", err))
	}
	return removed, nil
}

// Close implements Ledger.
func (l *FileLedger) Close() error { return nil }
