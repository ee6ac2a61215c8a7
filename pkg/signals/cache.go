package signals

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"mercator-hq/warden/pkg/eventlog"
)

// ErrCacheMissing is returned when the shared cache does not exist.
var ErrCacheMissing = errors.New("signal cache missing")

// Entities maps entity to signal to value.
type Entities map[string]map[string]Value

// Snapshot is one read of the shared cache.
type Snapshot struct {
	UpdatedAt time.Time
	Age       time.Duration
	Entities  Entities
}

// Meta describes the cache without decoding it.
type Meta struct {
	Size      int64
	UpdatedAt time.Time
}

// Source reads the shared cache.
type Source interface {
	// Stat returns size and last update time. A missing cache returns
	// ErrCacheMissing.
	Stat(ctx context.Context) (Meta, error)

	// Load decodes the cache. A missing cache returns ErrCacheMissing.
	Load(ctx context.Context) (Snapshot, error)
}

// document is the wrapped cache layout.
type document struct {
	UpdatedAt eventlog.Timestamp         `json:"updated_at"`
	Entities  map[string]json.RawMessage `json:"entities"`
}

// decode accepts {"updated_at":..., "entities":{...}} or a bare
// {entity:{signal:value}} object. Entity values that are not objects are
// ignored, and a signal that cannot be decoded is skipped without dropping
// the rest of its entity. The returned time is zero when the document
// carries none.
func decode(data []byte) (Entities, time.Time, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, time.Time{}, fmt.Errorf("invalid cache document: %w", err)
	}

	raw := top
	var updated time.Time
	if ents, ok := top["entities"]; ok && len(ents) > 0 && ents[0] == '{' {
		var doc document
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, time.Time{}, fmt.Errorf("invalid cache document: %w", err)
		}
		raw = doc.Entities
		updated = doc.UpdatedAt.Time
	}

	out := make(Entities, len(raw))
	for entity, body := range raw {
		if len(body) == 0 || body[0] != '{' {
			continue
		}
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(body, &fields); err != nil {
			slog.Warn("skipping undecodable cache entity", "component", "signals", "entity", entity, "error", err)
			continue
		}
		sigs := make(map[string]Value, len(fields))
		for name, field := range fields {
			var v Value
			if err := json.Unmarshal(field, &v); err != nil {
				slog.Warn("skipping undecodable signal value", "component", "signals", "entity", entity, "signal", name, "error", err)
				continue
			}
			sigs[name] = v
		}
		out[entity] = sigs
	}
	return out, updated, nil
}

// FileSource reads the cache file written by the ingestion process. Age is
// taken from the file modification time.
type FileSource struct {
	Path string
	Now  func() time.Time
}

// NewFileSource creates a FileSource for path.
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path, Now: time.Now}
}

// Stat implements Source.
func (s *FileSource) Stat(ctx context.Context) (Meta, error) {
	info, err := os.Stat(s.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Meta{}, fmt.Errorf("%w: %s", ErrCacheMissing, s.Path)
		}
		return Meta{}, fmt.Errorf("failed to stat cache %q: %w", s.Path, err)
	}
	return Meta{Size: info.Size(), UpdatedAt: info.ModTime()}, nil
}

// Load implements Source.
func (s *FileSource) Load(ctx context.Context) (Snapshot, error) {
	meta, err := s.Stat(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Snapshot{}, fmt.Errorf("%w: %s", ErrCacheMissing, s.Path)
		}
		return Snapshot{}, fmt.Errorf("failed to read cache %q: %w", s.Path, err)
	}
	ents, _, err := decode(data)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{
		UpdatedAt: meta.UpdatedAt,
		Age:       age(s.now(), meta.UpdatedAt),
		Entities:  ents,
	}, nil
}

func (s *FileSource) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func age(now, updated time.Time) time.Duration {
	if d := now.Sub(updated); d > 0 {
		return d
	}
	return 0
}
