package healing

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	"mercator-hq/warden/pkg/eventlog"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS healing_attempts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    signal TEXT NOT NULL,
    action TEXT NOT NULL,
    success INTEGER NOT NULL,
    error TEXT NOT NULL DEFAULT '',
    ts REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_healing_attempts_signal_ts ON healing_attempts(signal, ts);
CREATE INDEX IF NOT EXISTS idx_healing_attempts_ts ON healing_attempts(ts);
`

// SQLiteLedger stores attempts in a SQLite database.
type SQLiteLedger struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteLedger opens (and if needed creates) the database at path.
func NewSQLiteLedger(path string, busyTimeout time.Duration) (*SQLiteLedger, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, NewLedgerError("sqlite", "open", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, NewLedgerError("sqlite", "open", err)
	}
	// A single connection keeps ":memory:" databases shared and serializes
	// writers.
	db.SetMaxOpenConns(1)

	l := &SQLiteLedger{
		db:     db,
		logger: slog.Default().With("component", "healing.ledger.sqlite"),
	}
	if err := l.initialize(busyTimeout); err != nil {
		db.Close()
		return nil, err
	}
	l.logger.Debug("SQLite ledger initialized", "path", path)
	return l, nil
}

func (l *SQLiteLedger) initialize(busyTimeout time.Duration) error {
	if _, err := l.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", busyTimeout.Milliseconds())); err != nil {
		return NewLedgerError("sqlite", "set_busy_timeout", err)
	}
	if _, err := l.db.Exec(sqliteSchema); err != nil {
		return NewLedgerError("sqlite", "create_schema", err)
	}
	return nil
}

// Append implements Ledger.
func (l *SQLiteLedger) Append(ctx context.Context, a Attempt) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO healing_attempts (signal, action, success, error, ts) VALUES (?, ?, ?, ?, ?)`,
		a.Signal, a.Action, a.Success, a.Error, epoch(a.At()),
	)
	if err != nil {
		return NewLedgerError("sqlite", "append", err)
	}
	return nil
}

// Since implements Ledger.
func (l *SQLiteLedger) Since(ctx context.Context, signal string, t time.Time) ([]Attempt, error) {
	return l.query(ctx, "since",
		`SELECT signal, action, success, error, ts FROM healing_attempts WHERE signal = ? AND ts >= ? ORDER BY ts, id`,
		signal, epoch(t),
	)
}

// All implements Ledger.
func (l *SQLiteLedger) All(ctx context.Context) ([]Attempt, error) {
	return l.query(ctx, "all",
		`SELECT signal, action, success, error, ts FROM healing_attempts ORDER BY ts, id`,
	)
}

func (l *SQLiteLedger) query(ctx context.Context, op, q string, args ...any) ([]Attempt, error) {
	rows, err := l.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, NewLedgerError("sqlite", op, err)
	}
	defer rows.Close()

	var out []Attempt
	for rows.Next() {
		var (
			a  Attempt
			ts float64
		)
		if err := rows.Scan(&a.Signal, &a.Action, &a.Success, &a.Error, &ts); err != nil {
			return nil, NewLedgerError("sqlite", op, err)
		}
		a.Timestamp = eventlog.NewTimestamp(fromEpoch(ts))
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, NewLedgerError("sqlite", op, err)
	}
	return out, nil
}

// Prune implements Ledger.
func (l *SQLiteLedger) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := l.db.ExecContext(ctx, `DELETE FROM healing_attempts WHERE ts < ?`, epoch(before))
	if err != nil {
		return 0, NewLedgerError("sqlite", "prune", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, NewLedgerError("sqlite", "prune", err)
	}
	return n, nil
}

// Close implements Ledger.
func (l *SQLiteLedger) Close() error {
	return l.db.Close()
}

func epoch(t time.Time) float64 {
	return float64(t.UnixMilli()) / 1000
}

func fromEpoch(sec float64) time.Time {
	return time.UnixMilli(int64(math.Round(sec * 1000)))
}
