package signals

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"mercator-hq/warden/pkg/config"
	"mercator-hq/warden/pkg/eventlog"
)

// Status is the freshness state of one signal.
type Status string

const (
	StatusUnknown         Status = "unknown"
	StatusHealthy         Status = "healthy"
	StatusNoData          Status = "no_data"
	StatusNoRecentSignals Status = "no_recent_signals"
)

// SignalHealth is the evaluation of one tracked signal.
type SignalHealth struct {
	Name   string `json:"name"`
	Status Status `json:"status"`

	// LastUpdateAge is seconds since the newest signal event, or the cache age
	// when the signal is only known from the cache. -1 when unknown.
	LastUpdateAge float64 `json:"last_update_age"`

	// DataFreshnessAge is the cache age in seconds, -1 when unreadable.
	DataFreshnessAge float64 `json:"data_freshness_age"`

	ErrorRate1h float64        `json:"error_rate_1h"`
	Details     map[string]any `json:"details"`
}

// Evaluation is the result of one tracker pass.
type Evaluation struct {
	Signals []SignalHealth

	// Universe is the entity list inspected in the cache-presence phase.
	Universe []string

	// CacheErr is set when the cache could not be read.
	CacheErr error
}

// Unhealthy returns the signals whose status is not healthy.
func (e Evaluation) Unhealthy() []SignalHealth {
	var out []SignalHealth
	for _, s := range e.Signals {
		if s.Status != StatusHealthy {
			out = append(out, s)
		}
	}
	return out
}

// Logs locates the event and error logs read by the activity phase.
type Logs struct {
	EventsLog   string
	ErrorLog    string
	TailRecords int
}

// Tracker evaluates signal freshness. It keeps no state between calls.
type Tracker struct {
	source    Source
	specs     []config.SignalSpec
	watchlist []string
	extra     int
	window    time.Duration
	logs      Logs
	now       func() time.Time
	logger    *slog.Logger
}

// NewTracker creates a tracker.
func NewTracker(source Source, cfg config.SignalsConfig, logs Logs, now func() time.Time) *Tracker {
	if now == nil {
		now = time.Now
	}
	window := cfg.ActivityWindow
	if window <= 0 {
		window = config.DefaultActivityWindow
	}
	return &Tracker{
		source:    source,
		specs:     cfg.Tracked,
		watchlist: cfg.Watchlist,
		extra:     cfg.ExtraEntities,
		window:    window,
		logs:      logs,
		now:       now,
		logger:    slog.Default().With("component", "signals"),
	}
}

// Specs returns the tracked signal specs.
func (t *Tracker) Specs() []config.SignalSpec {
	return t.specs
}

// Universe returns the bounded entity list: the watch-list in order followed
// by at most extra additional cache entities sorted by name.
func Universe(watchlist []string, entities Entities, extra int) []string {
	seen := make(map[string]bool, len(watchlist))
	out := make([]string, 0, len(watchlist)+extra)
	for _, e := range watchlist {
		if !seen[e] {
			seen[e] = true
			out = append(out, e)
		}
	}

	others := make([]string, 0, len(entities))
	for e := range entities {
		if !seen[e] {
			others = append(others, e)
		}
	}
	sort.Strings(others)
	if extra < len(others) {
		others = others[:max(extra, 0)]
	}
	return append(out, others...)
}

// Evaluate runs both phases.
func (t *Tracker) Evaluate(ctx context.Context) Evaluation {
	now := t.now()
	eval := Evaluation{Signals: make([]SignalHealth, len(t.specs))}
	for i, spec := range t.specs {
		eval.Signals[i] = SignalHealth{
			Name:             spec.Name,
			Status:           StatusUnknown,
			LastUpdateAge:    -1,
			DataFreshnessAge: -1,
			Details:          map[string]any{"tier": spec.Tier},
		}
	}

	snap, err := t.source.Load(ctx)
	if err != nil {
		eval.CacheErr = err
		if !errors.Is(err, ErrCacheMissing) {
			t.logger.WarnContext(ctx, "failed to load signal cache", "error", err)
		}
	} else {
		eval.Universe = Universe(t.watchlist, snap.Entities, t.extra)
		t.presencePhase(&eval, snap)
	}

	t.activityPhase(ctx, &eval, now)
	return eval
}

// presencePhase moves unknown to healthy or no_data only.
func (t *Tracker) presencePhase(eval *Evaluation, snap Snapshot) {
	ageSec := snap.Age.Seconds()
	for i, spec := range t.specs {
		sh := &eval.Signals[i]
		sh.DataFreshnessAge = ageSec
		want, typed := ParseKind(spec.Kind)

		contributors := []string{}
		mismatched := 0
		for _, entity := range eval.Universe {
			v, ok := snap.Entities[entity][spec.Name]
			if !ok || !v.Present() {
				continue
			}
			if typed && v.Kind() != want {
				mismatched++
			}
			if sh.Status == StatusUnknown {
				sh.Status = StatusHealthy
				sh.LastUpdateAge = ageSec
			}
			contributors = append(contributors, entity)
		}
		if sh.Status == StatusUnknown {
			sh.Status = StatusNoData
		}
		sh.Details["contributors"] = contributors
		sh.Details["entities_checked"] = len(eval.Universe)
		if mismatched > 0 {
			sh.Details["kind_mismatch"] = mismatched
		}
	}
}

// activityPhase moves no_data or unknown to healthy when events exist, and
// unknown to no_recent_signals otherwise.
func (t *Tracker) activityPhase(ctx context.Context, eval *Evaluation, now time.Time) {
	events := t.readIndex(ctx, t.logs.EventsLog)
	errs := t.readIndex(ctx, t.logs.ErrorLog)
	since := now.Add(-t.window)

	for i := range eval.Signals {
		sh := &eval.Signals[i]

		filter := eventlog.Filter{Kinds: []eventlog.Kind{eventlog.KindSignal}, Signal: sh.Name}
		n := events.Count(since, filter)
		sh.Details["events_1h"] = n

		if n > 0 {
			errCount := errs.Count(since, eventlog.Filter{Kinds: []eventlog.Kind{eventlog.KindError}, Signal: sh.Name})
			sh.ErrorRate1h = float64(errCount) / float64(n)
			if sh.Status == StatusNoData || sh.Status == StatusUnknown {
				sh.Status = StatusHealthy
			}
		} else if sh.Status == StatusUnknown {
			sh.Status = StatusNoRecentSignals
		}

		if last, ok := events.Last(filter); ok {
			if d := now.Sub(last.At()); d >= 0 {
				sh.LastUpdateAge = d.Seconds()
			} else {
				sh.LastUpdateAge = 0
			}
		}
	}
}

// readIndex returns nil for a missing or unreadable log; a nil *Index
// answers every query with zero.
func (t *Tracker) readIndex(ctx context.Context, path string) *eventlog.Index {
	if path == "" {
		return nil
	}
	res, err := eventlog.ReadTail(path, t.logs.TailRecords)
	if err != nil {
		if !errors.Is(err, eventlog.ErrLogMissing) {
			t.logger.WarnContext(ctx, "failed to read event log", "path", path, "error", err)
		}
		return nil
	}
	return eventlog.NewIndex(res.Records)
}
