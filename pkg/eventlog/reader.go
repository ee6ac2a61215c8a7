package eventlog

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrLogMissing is returned when a log file does not exist. Callers treat it
// as "not configured yet" rather than as a read failure.
var ErrLogMissing = errors.New("event log missing")

// maxLineBytes bounds a single record.
const maxLineBytes = 256 * 1024

// ReadResult is the outcome of reading a log.
type ReadResult struct {
	Records []Record

	// Skipped counts malformed lines.
	Skipped int
}

// ReadTail returns the last n well-formed records of the file at path.
// n <= 0 returns every record.
func ReadTail(path string, n int) (ReadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ReadResult{}, fmt.Errorf("%w: %s", ErrLogMissing, path)
		}
		return ReadResult{}, fmt.Errorf("failed to open log %q: %w", path, err)
	}
	defer f.Close()

	res, err := Decode(f, n)
	if err != nil {
		return res, fmt.Errorf("failed to read log %q: %w", path, err)
	}
	return res, nil
}

// Decode reads JSON-lines records from r keeping at most the last n.
func Decode(r io.Reader, n int) (ReadResult, error) {
	var res ReadResult
	ring := newRing(n)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil || rec.Time.IsZero() || rec.Kind == "" {
			res.Skipped++
			continue
		}
		ring.push(rec)
	}

	res.Records = ring.items()
	if err := scanner.Err(); err != nil {
		return res, err
	}
	return res, nil
}

// ring keeps the most recent records in a fixed-capacity circular buffer.
type ring struct {
	buf   []Record
	limit int
	head  int
	full  bool
}

func newRing(limit int) *ring {
	return &ring{limit: limit}
}

func (r *ring) push(rec Record) {
	if r.limit <= 0 {
		r.buf = append(r.buf, rec)
		return
	}
	if len(r.buf) < r.limit {
		r.buf = append(r.buf, rec)
		return
	}
	r.buf[r.head] = rec
	r.head = (r.head + 1) % r.limit
	r.full = true
}

func (r *ring) items() []Record {
	if !r.full {
		return r.buf
	}
	out := make([]Record, 0, len(r.buf))
	out = append(out, r.buf[r.head:]...)
	out = append(out, r.buf[:r.head]...)
	return out
}
