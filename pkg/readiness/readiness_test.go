package readiness

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func results(statuses ...Status) []CheckResult {
	out := make([]CheckResult, len(statuses))
	for i, s := range statuses {
		out[i] = CheckResult{
			ID:       string(rune('a'+i)) + "_check",
			Name:     "check",
			Category: CategoryData,
			Status:   s,
		}
	}
	return out
}

func TestAggregate(t *testing.T) {
	tests := []struct {
		name         string
		statuses     []Status
		wantLevel    Level
		wantCritical int
		wantWarning  int
	}{
		{
			name:      "empty set is ready",
			statuses:  nil,
			wantLevel: LevelReady,
		},
		{
			name:      "all ok",
			statuses:  []Status{StatusOK, StatusOK, StatusOK},
			wantLevel: LevelReady,
		},
		{
			name:        "one warn degrades",
			statuses:    []Status{StatusOK, StatusWarn, StatusOK},
			wantLevel:   LevelDegraded,
			wantWarning: 1,
		},
		{
			name:         "single error blocks",
			statuses:     []Status{StatusError},
			wantLevel:    LevelBlocked,
			wantCritical: 1,
		},
		{
			name:         "error blocks regardless of warnings",
			statuses:     []Status{StatusWarn, StatusWarn, StatusError, StatusOK},
			wantLevel:    LevelBlocked,
			wantCritical: 1,
			wantWarning:  2,
		},
		{
			name:      "unknown does not degrade",
			statuses:  []Status{StatusOK, StatusUnknown},
			wantLevel: LevelReady,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := Aggregate(results(tt.statuses...))

			if snap.Readiness != tt.wantLevel {
				t.Errorf("Readiness = %s, want %s", snap.Readiness, tt.wantLevel)
			}
			if snap.CriticalCount != tt.wantCritical {
				t.Errorf("CriticalCount = %d, want %d", snap.CriticalCount, tt.wantCritical)
			}
			if snap.WarningCount != tt.wantWarning {
				t.Errorf("WarningCount = %d, want %d", snap.WarningCount, tt.wantWarning)
			}
			if snap.TotalChecked != len(tt.statuses) {
				t.Errorf("TotalChecked = %d, want %d", snap.TotalChecked, len(tt.statuses))
			}
		})
	}
}

func TestSnapshotResponse(t *testing.T) {
	snap := Aggregate([]CheckResult{
		{ID: "cache_exists", Status: StatusError, LastError: "missing"},
		{ID: "cache_freshness", Status: StatusWarn},
		{ID: "broker_api", Status: StatusOK},
	})

	resp := snap.Response()

	if resp.Color != "red" {
		t.Errorf("Color = %q, want red", resp.Color)
	}
	if len(resp.CriticalFPs) != 1 || resp.CriticalFPs[0] != "cache_exists" {
		t.Errorf("CriticalFPs = %v, want [cache_exists]", resp.CriticalFPs)
	}
	if len(resp.WarningFPs) != 1 || resp.WarningFPs[0] != "cache_freshness" {
		t.Errorf("WarningFPs = %v, want [cache_freshness]", resp.WarningFPs)
	}

	// Empty lists must encode as [] for the dashboard.
	data, err := json.Marshal(Aggregate(nil).Response())
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	for _, field := range []string{"readiness", "color", "critical_count", "warning_count", "total_checked", "failure_points", "critical_fps", "warning_fps"} {
		v, ok := raw[field]
		if !ok {
			t.Errorf("missing field %q", field)
			continue
		}
		if v == nil {
			t.Errorf("field %q encoded as null", field)
		}
	}
}

func TestLevelColor(t *testing.T) {
	tests := map[Level]string{
		LevelReady:    "green",
		LevelDegraded: "yellow",
		LevelBlocked:  "red",
		Level("x"):    "gray",
	}
	for level, want := range tests {
		if got := level.Color(); got != want {
			t.Errorf("%s.Color() = %q, want %q", level, got, want)
		}
	}
}

func TestFileStore_RoundTrip(t *testing.T) {
	now := time.Unix(1760457600, 250_000_000)
	in := []CheckResult{
		{ID: "cache_exists", Name: "Signal cache exists", Category: CategoryData, Status: StatusOK, LastCheckedAt: now},
		{ID: "cache_freshness", Name: "Signal cache freshness", Category: CategoryData, Status: StatusWarn, LastCheckedAt: now, Details: map[string]any{"age_seconds": 900.0}},
		{ID: "freeze_marker", Name: "No freeze marker", Category: CategorySafety, Status: StatusError, LastCheckedAt: now, LastError: "frozen by operator"},
	}
	want := Aggregate(in)

	store := NewFileStore(filepath.Join(t.TempDir(), "state", "health.json"))
	if err := store.Save(NewDocument(in, now)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	doc, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	got := doc.Snapshot()

	if got.Readiness != want.Readiness {
		t.Errorf("Readiness = %s, want %s", got.Readiness, want.Readiness)
	}
	if got.CriticalCount != want.CriticalCount || got.WarningCount != want.WarningCount {
		t.Errorf("counts = %d/%d, want %d/%d", got.CriticalCount, got.WarningCount, want.CriticalCount, want.WarningCount)
	}
	for _, w := range in {
		g, ok := got.Find(w.ID)
		if !ok {
			t.Fatalf("result %q missing after round trip", w.ID)
		}
		if g.Status != w.Status {
			t.Errorf("%s status = %s, want %s", w.ID, g.Status, w.Status)
		}
		if g.LastError != w.LastError {
			t.Errorf("%s last_error = %q, want %q", w.ID, g.LastError, w.LastError)
		}
		if !g.LastCheckedAt.Equal(now) {
			t.Errorf("%s last_check = %v, want %v", w.ID, g.LastCheckedAt, now)
		}
	}
	if !doc.UpdatedAt().Equal(now) {
		t.Errorf("UpdatedAt() = %v, want %v", doc.UpdatedAt(), now)
	}

	if ids := got.Response().CriticalFPs; len(ids) != 1 || ids[0] != "freeze_marker" {
		t.Errorf("CriticalFPs = %v, want [freeze_marker]", ids)
	}
}

func TestFileStore_Overwrites(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "health.json"))
	now := time.Now()

	if err := store.Save(NewDocument(results(StatusError, StatusError), now)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := store.Save(NewDocument([]CheckResult{{ID: "only", Status: StatusOK}}, now)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	doc, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(doc.Statuses) != 1 {
		t.Errorf("expected 1 status after overwrite, got %d", len(doc.Statuses))
	}

	entries, err := os.ReadDir(filepath.Dir(store.Path()))
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected temp files to be cleaned up, found %d entries", len(entries))
	}
}

func TestFileStore_Annotate(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "health.json"))

	if err := store.Annotate("cache_freshness", true, true); !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("Annotate() before save error = %v, want ErrNoSnapshot", err)
	}

	in := []CheckResult{{ID: "cache_freshness", Status: StatusError}}
	if err := store.Save(NewDocument(in, time.Now())); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := store.Annotate("cache_freshness", true, false); err != nil {
		t.Fatalf("Annotate() error = %v", err)
	}
	if err := store.Annotate("not_registered", true, true); err != nil {
		t.Fatalf("Annotate() unknown id error = %v", err)
	}

	doc, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	entry := doc.Statuses["cache_freshness"]
	if !entry.SelfHealingAttempted || entry.SelfHealingSuccess {
		t.Errorf("entry = %+v, want attempted=true success=false", entry)
	}
	if _, ok := doc.Statuses["not_registered"]; ok {
		t.Error("Annotate() must not create entries")
	}
}

func TestDocument_ResultsInOrder(t *testing.T) {
	doc := NewDocument([]CheckResult{
		{ID: "process", Status: StatusOK},
		{ID: "cache", Status: StatusOK},
		{ID: "zeta", Status: StatusWarn},
		{ID: "alpha", Status: StatusOK},
	}, time.Now())

	tests := []struct {
		name  string
		order []string
		want  []string
	}{
		{"no order sorts by id", nil, []string{"alpha", "cache", "process", "zeta"}},
		{"run order", []string{"process", "cache", "zeta", "alpha"}, []string{"process", "cache", "zeta", "alpha"}},
		{"partial order", []string{"zeta", "process"}, []string{"zeta", "process", "alpha", "cache"}},
		{"unknown and repeated ids", []string{"gone", "cache", "cache"}, []string{"cache", "alpha", "process", "zeta"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := doc.ResultsInOrder(tt.order)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d results, want %d", len(got), len(tt.want))
			}
			for i, id := range tt.want {
				if got[i].ID != id {
					t.Errorf("results[%d] = %s, want %s", i, got[i].ID, id)
				}
			}
		})
	}
}
