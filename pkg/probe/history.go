package probe

import (
	"errors"
	"time"

	"mercator-hq/warden/pkg/eventlog"
)

// historyWindow is the trailing period of API log records considered.
const historyWindow = time.Hour

// history summarizes one endpoint's API log records in the trailing hour.
type history struct {
	requests    int64
	failed      int64
	latencySum  float64
	latencyN    int
	lastSuccess time.Time
	now         time.Time
}

// loadHistory replays the endpoint's API log into time-bucketed counters.
// A missing or unreadable log yields an empty history.
func (p *Prober) loadHistory(name string) history {
	now := p.now()
	h := history{now: now}
	if p.apiLog.Path == "" {
		return h
	}

	res, err := eventlog.ReadTail(p.apiLog.Path, p.apiLog.TailRecords)
	if err != nil {
		if !errors.Is(err, eventlog.ErrLogMissing) {
			p.logger.Warn("failed to read api log", "path", p.apiLog.Path, "error", err)
		}
		return h
	}
	ix := eventlog.NewIndex(res.Records)

	requests := eventlog.NewBucketCounter(historyWindow, time.Minute)
	failures := eventlog.NewBucketCounter(historyWindow, time.Minute)

	filter := eventlog.Filter{
		Kinds:    []eventlog.Kind{eventlog.KindAPIRequest, eventlog.KindAPIError},
		Endpoint: name,
	}
	for _, rec := range ix.Window(now.Add(-historyWindow), filter) {
		switch rec.Kind {
		case eventlog.KindAPIError:
			failures.AddAt(rec.At(), 1)
		default:
			requests.AddAt(rec.At(), 1)
		}
		if rec.LatencyMs > 0 {
			h.latencySum += rec.LatencyMs
			h.latencyN++
		}
	}
	h.requests = requests.SumAt(now)
	h.failed = failures.SumAt(now)

	success := eventlog.Filter{Kinds: []eventlog.Kind{eventlog.KindAPIRequest}, Endpoint: name}
	for _, rec := range ix.Window(time.Time{}, success) {
		if rec.StatusCode == 0 || (rec.StatusCode >= 200 && rec.StatusCode < 300) {
			if rec.At().After(h.lastSuccess) {
				h.lastSuccess = rec.At()
			}
		}
	}
	return h
}

func (h history) apply(eh *EndpointHealth) {
	if total := h.requests + h.failed; total > 0 {
		eh.ErrorRate1h = float64(h.failed) / float64(total)
	}
	eh.AvgLatencyMs = h.avgLatency()
	if !h.lastSuccess.IsZero() {
		age := h.now.Sub(h.lastSuccess).Seconds()
		if age < 0 {
			age = 0
		}
		eh.LastSuccessAge = age
	}
}

func (h history) avgLatency() float64 {
	if h.latencyN == 0 {
		return 0
	}
	return h.latencySum / float64(h.latencyN)
}
