package readiness

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// ErrNoSnapshot is returned when no snapshot has been persisted yet.
var ErrNoSnapshot = errors.New("no persisted readiness snapshot")

// Document is the persisted form of one cycle's result set.
type Document struct {
	LastUpdate float64                  `json:"last_update"`
	Statuses   map[string]DocumentEntry `json:"statuses"`
}

// DocumentEntry is the persisted form of a CheckResult.
type DocumentEntry struct {
	ID                   string         `json:"id"`
	Name                 string         `json:"name"`
	Category             string         `json:"category"`
	Status               Status         `json:"status"`
	LastCheck            float64        `json:"last_check"`
	LastError            string         `json:"last_error"`
	SelfHealingAttempted bool           `json:"self_healing_attempted"`
	SelfHealingSuccess   bool           `json:"self_healing_success"`
	Details              map[string]any `json:"details"`
}

// NewDocument builds the persisted form of a result set.
func NewDocument(results []CheckResult, now time.Time) *Document {
	doc := &Document{
		LastUpdate: epochSeconds(now),
		Statuses:   make(map[string]DocumentEntry, len(results)),
	}
	for _, r := range results {
		details := r.Details
		if details == nil {
			details = map[string]any{}
		}
		doc.Statuses[r.ID] = DocumentEntry{
			ID:                   r.ID,
			Name:                 r.Name,
			Category:             r.Category,
			Status:               r.Status,
			LastCheck:            epochSeconds(r.LastCheckedAt),
			LastError:            r.LastError,
			SelfHealingAttempted: r.SelfHealingAttempted,
			SelfHealingSuccess:   r.SelfHealingSuccess,
			Details:              details,
		}
	}
	return doc
}

// Results returns the stored results sorted by id.
func (d *Document) Results() []CheckResult {
	return d.ResultsInOrder(nil)
}

// ResultsInOrder returns the stored results with the ids in order first,
// followed by any others sorted by id. Ids in order that are not stored are
// skipped.
func (d *Document) ResultsInOrder(order []string) []CheckResult {
	seen := make(map[string]bool, len(order))
	ids := make([]string, 0, len(d.Statuses))
	for _, id := range order {
		if _, ok := d.Statuses[id]; ok && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	var rest []string
	for id := range d.Statuses {
		if !seen[id] {
			rest = append(rest, id)
		}
	}
	sort.Strings(rest)
	ids = append(ids, rest...)

	results := make([]CheckResult, 0, len(ids))
	for _, id := range ids {
		e := d.Statuses[id]
		results = append(results, CheckResult{
			ID:                   e.ID,
			Name:                 e.Name,
			Category:             e.Category,
			Status:               e.Status,
			LastCheckedAt:        fromEpoch(e.LastCheck),
			LastError:            e.LastError,
			Details:              e.Details,
			SelfHealingAttempted: e.SelfHealingAttempted,
			SelfHealingSuccess:   e.SelfHealingSuccess,
		})
	}
	return results
}

// Snapshot aggregates the stored results.
func (d *Document) Snapshot() Snapshot {
	return Aggregate(d.Results())
}

// UpdatedAt returns the time the document was written.
func (d *Document) UpdatedAt() time.Time {
	return fromEpoch(d.LastUpdate)
}

// FileStore persists the document as a single JSON file that is replaced
// wholesale on every save.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a store writing to path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the snapshot file path.
func (s *FileStore) Path() string {
	return s.path
}

// Save overwrites the snapshot with doc.
func (s *FileStore) Save(doc *Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked(doc)
}

// Load reads the current snapshot.
func (s *FileStore) Load() (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readLocked()
}

// Annotate records a remediation outcome on the stored entry for id.
// Unknown ids are ignored.
func (s *FileStore) Annotate(id string, attempted, success bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.readLocked()
	if err != nil {
		return err
	}
	entry, ok := doc.Statuses[id]
	if !ok {
		return nil
	}
	entry.SelfHealingAttempted = attempted
	entry.SelfHealingSuccess = success
	doc.Statuses[id] = entry

	return s.writeLocked(doc)
}

func (s *FileStore) readLocked() (*Document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoSnapshot
		}
		return nil, fmt.Errorf("failed to read snapshot %q: %w", s.path, err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot %q: %w", s.path, err)
	}
	if doc.Statuses == nil {
		doc.Statuses = map[string]DocumentEntry{}
	}
	return &doc, nil
}

// writeLocked writes to a temp file in the same directory and renames it
// over the target so readers never observe a partial document.
func (s *FileStore) writeLocked(doc *Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create snapshot directory %q: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".snapshot-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp snapshot: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace snapshot %q: %w", s.path, err)
	}
	return nil
}

func epochSeconds(t time.Time) float64 {
	if t.IsZero() {
		return 0
	}
	return float64(t.UnixMilli()) / 1000
}

func fromEpoch(sec float64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.UnixMilli(int64(math.Round(sec * 1000)))
}
