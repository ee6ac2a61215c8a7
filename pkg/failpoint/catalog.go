package failpoint

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"mercator-hq/warden/pkg/config"
	"mercator-hq/warden/pkg/orders"
	"mercator-hq/warden/pkg/probe"
	"mercator-hq/warden/pkg/readiness"
	"mercator-hq/warden/pkg/signals"
	"mercator-hq/warden/pkg/supervisor"
)

// Failure point ids.
const (
	IDIngestionProcess = "ingestion_process"
	IDCacheExists      = "cache_exists"
	IDCacheFreshness   = "cache_freshness"
	IDCacheNonEmpty    = "cache_nonempty"
	IDSignalFreshness  = "signal_freshness"
	IDAdaptiveParams   = "adaptive_params"
	IDFreezeMarker     = "freeze_marker"
	IDBrokerAPI        = "broker_api"
	IDOrderPipeline    = "order_pipeline"
	IDTradingProcess   = "trading_process"

	// EndpointPrefix prefixes the ids of market data endpoint checks.
	EndpointPrefix = "endpoint:"
)

// EndpointProber probes a configured endpoint.
type EndpointProber interface {
	Probe(ctx context.Context, name string, params map[string]string) probe.EndpointHealth
}

// SignalEvaluator evaluates tracked signal freshness.
type SignalEvaluator interface {
	Evaluate(ctx context.Context) signals.Evaluation
}

// OrderChecker evaluates the order pipeline.
type OrderChecker interface {
	Check(ctx context.Context) orders.Health
}

// Deps are the collaborators of the built-in catalog.
type Deps struct {
	Config     *config.Config
	Supervisor supervisor.Supervisor
	Cache      signals.Source
	Signals    SignalEvaluator
	Prober     EndpointProber
	Orders     OrderChecker
	Now        func() time.Time
}

// Catalog returns the built-in checks in their fixed order.
func Catalog(d Deps) []Check {
	if d.Now == nil {
		d.Now = time.Now
	}
	cfg := d.Config

	checks := []Check{
		ProcessCheck(IDIngestionProcess, "Ingestion process", d.Supervisor, cfg.Supervisor.IngestionUnit),
		CacheExistsCheck(d.Cache),
		CacheFreshnessCheck(d.Cache, cfg.Cache.WarnAfter, cfg.Cache.ErrorAfter, d.Now),
		CacheNonEmptyCheck(d.Cache),
		SignalFreshnessCheck(d.Signals),
		AdaptiveParamsCheck(cfg.Checks.AdaptiveParamsPath, cfg.Checks.ExpectedComponents),
		FreezeMarkerCheck(cfg.Checks.FreezeMarkers),
	}

	broker, hasBroker := cfg.Broker()
	checks = append(checks, BrokerCheck(d.Prober, broker.Name, hasBroker))
	for _, ep := range cfg.Endpoints {
		if ep.Role == config.RoleBroker {
			continue
		}
		checks = append(checks, EndpointCheck(d.Prober, ep))
	}

	return append(checks,
		OrderPipelineCheck(d.Orders),
		ProcessCheck(IDTradingProcess, "Trading process", d.Supervisor, cfg.Supervisor.TradingUnit),
	)
}

// ProcessCheck reports OK while the supervisor reports unit active.
func ProcessCheck(id, name string, sup supervisor.Supervisor, unit string) Check {
	return New(id, name, readiness.CategoryProcess, func(ctx context.Context) (Outcome, error) {
		details := map[string]any{"unit": unit}
		active, err := sup.IsActive(ctx, unit)
		if err != nil {
			return Outcome{Details: details}, fmt.Errorf("failed to query %s: %w", unit, err)
		}
		details["active"] = active
		if !active {
			return fail(fmt.Sprintf("%s is not running", unit), details)
		}
		return ok(details)
	})
}

// CacheExistsCheck reports ERROR when the cache is missing or zero bytes.
func CacheExistsCheck(src signals.Source) Check {
	return New(IDCacheExists, "Signal cache present", readiness.CategoryData, func(ctx context.Context) (Outcome, error) {
		meta, err := src.Stat(ctx)
		if errors.Is(err, signals.ErrCacheMissing) {
			return fail("signal cache missing", nil)
		}
		if err != nil {
			return Outcome{}, err
		}
		details := map[string]any{"size_bytes": meta.Size}
		if meta.Size == 0 {
			return fail("signal cache is empty (0 bytes)", details)
		}
		return ok(details)
	})
}

// CacheFreshnessCheck grades the cache age: below warnAfter OK, below
// errorAfter WARN, otherwise ERROR.
func CacheFreshnessCheck(src signals.Source, warnAfter, errorAfter time.Duration, now func() time.Time) Check {
	return New(IDCacheFreshness, "Signal cache freshness", readiness.CategoryData, func(ctx context.Context) (Outcome, error) {
		meta, err := src.Stat(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return Outcome{}, fmt.Errorf("cache age unavailable: %w", err)
			}
			return Outcome{Details: map[string]any{"stale": true}}, fmt.Errorf("cache age unavailable: %w", err)
		}
		age := max(now().Sub(meta.UpdatedAt), 0)
		details := map[string]any{
			"age_seconds":   seconds(age),
			"warn_after_s":  warnAfter.Seconds(),
			"error_after_s": errorAfter.Seconds(),
		}
		switch {
		case age < warnAfter:
			return ok(details)
		case age < errorAfter:
			return warn(fmt.Sprintf("signal cache is %s old", age.Round(time.Second)), details)
		default:
			details["stale"] = true
			return fail(fmt.Sprintf("signal cache is stale (%s old)", age.Round(time.Second)), details)
		}
	})
}

// CacheNonEmptyCheck reports ERROR when the cache holds no entities.
func CacheNonEmptyCheck(src signals.Source) Check {
	return New(IDCacheNonEmpty, "Signal cache populated", readiness.CategoryData, func(ctx context.Context) (Outcome, error) {
		snap, err := src.Load(ctx)
		if err != nil {
			return Outcome{}, err
		}
		details := map[string]any{"entities": len(snap.Entities)}
		if len(snap.Entities) == 0 {
			return fail("signal cache has no entities", details)
		}
		return ok(details)
	})
}

// SignalFreshnessCheck reports WARN when some tracked signals are unhealthy
// and ERROR when all are.
func SignalFreshnessCheck(eval SignalEvaluator) Check {
	return New(IDSignalFreshness, "Signal freshness", readiness.CategorySignals, func(ctx context.Context) (Outcome, error) {
		res := eval.Evaluate(ctx)

		statuses := make(map[string]any, len(res.Signals))
		noData := []string{}
		for _, s := range res.Signals {
			statuses[s.Name] = string(s.Status)
			if s.Status == signals.StatusNoData {
				noData = append(noData, s.Name)
			}
		}
		unhealthy := res.Unhealthy()
		details := map[string]any{
			"tracked":   len(res.Signals),
			"unhealthy": len(unhealthy),
			"signals":   statuses,
			"no_data":   noData,
		}
		if res.CacheErr != nil {
			details["cache_error"] = res.CacheErr.Error()
		}

		switch {
		case len(unhealthy) == 0:
			return ok(details)
		case len(unhealthy) == len(res.Signals):
			return fail(fmt.Sprintf("all %d tracked signals unhealthy", len(unhealthy)), details)
		default:
			names := make([]string, len(unhealthy))
			for i, s := range unhealthy {
				names[i] = s.Name
			}
			return warn("unhealthy signals: "+strings.Join(names, ", "), details)
		}
	})
}

// AdaptiveParamsCheck verifies the parameter store holds exactly expected
// components. The store is a JSON object keyed by component, optionally
// wrapped as {"components": {...}}.
func AdaptiveParamsCheck(path string, expected int) Check {
	return New(IDAdaptiveParams, "Adaptive parameters", readiness.CategoryConfig, func(ctx context.Context) (Outcome, error) {
		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			return fail("adaptive parameter store missing", map[string]any{"path": path})
		}
		if err != nil {
			return Outcome{}, fmt.Errorf("failed to read adaptive parameters: %w", err)
		}

		n, err := countComponents(data)
		if err != nil {
			return Outcome{}, fmt.Errorf("invalid adaptive parameter store: %w", err)
		}
		details := map[string]any{"components": n, "expected": expected}
		if n != expected {
			return warn(fmt.Sprintf("adaptive parameter store has %d components, expected %d", n, expected), details)
		}
		return ok(details)
	})
}

func countComponents(data []byte) (int, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return 0, err
	}
	if inner, found := top["components"]; found && len(top) == 1 {
		var list []json.RawMessage
		if err := json.Unmarshal(inner, &list); err == nil {
			return len(list), nil
		}
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(inner, &obj); err != nil {
			return 0, err
		}
		return len(obj), nil
	}
	return len(top), nil
}

// FreezeMarkerCheck reports ERROR while any marker file exists. The first
// line of the marker becomes last_error.
func FreezeMarkerCheck(markers []string) Check {
	return New(IDFreezeMarker, "Freeze marker", readiness.CategorySafety, func(ctx context.Context) (Outcome, error) {
		active := []string{}
		var reason string
		for _, path := range markers {
			line, present, err := firstLine(path)
			if err != nil {
				return Outcome{}, err
			}
			if !present {
				continue
			}
			active = append(active, path)
			if reason == "" {
				reason = fmt.Sprintf("trading frozen by %s", path)
				if line != "" {
					reason = fmt.Sprintf("%s: %s", reason, line)
				}
			}
		}

		details := map[string]any{"active": active}
		if len(active) > 0 {
			return fail(reason, details)
		}
		return ok(details)
	})
}

func firstLine(path string) (string, bool, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read freeze marker %s: %w", path, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	if sc.Scan() {
		return strings.TrimSpace(sc.Text()), true, nil
	}
	return "", true, nil
}

// BrokerCheck maps the brokerage probe: healthy OK, rate_limited WARN,
// anything else ERROR.
func BrokerCheck(p EndpointProber, name string, configured bool) Check {
	return New(IDBrokerAPI, "Brokerage API", readiness.CategoryBroker, func(ctx context.Context) (Outcome, error) {
		if !configured {
			return Outcome{Status: readiness.StatusUnknown, Message: "no broker endpoint configured"}, nil
		}
		h := p.Probe(ctx, name, nil)
		details := h.Details()
		details["endpoint"] = name
		switch h.Status {
		case probe.StatusHealthy:
			return ok(details)
		case probe.StatusRateLimited:
			return warn(probeMessage(h), details)
		default:
			return fail(probeMessage(h), details)
		}
	})
}

// EndpointCheck maps a market data probe: healthy OK, no_credentials
// UNKNOWN, rate_limited WARN, failures WARN or ERROR for critical endpoints.
func EndpointCheck(p EndpointProber, ep config.EndpointConfig) Check {
	return New(EndpointPrefix+ep.Name, ep.Name+" API", readiness.CategoryMarketData, func(ctx context.Context) (Outcome, error) {
		h := p.Probe(ctx, ep.Name, nil)
		details := h.Details()
		details["critical"] = ep.Critical
		switch h.Status {
		case probe.StatusHealthy:
			return ok(details)
		case probe.StatusNoCredentials:
			return Outcome{Status: readiness.StatusUnknown, Message: "not configured", Details: details}, nil
		case probe.StatusRateLimited:
			return warn(probeMessage(h), details)
		default:
			if ep.Critical {
				return fail(probeMessage(h), details)
			}
			return warn(probeMessage(h), details)
		}
	})
}

func probeMessage(h probe.EndpointHealth) string {
	if h.LastError != "" {
		return fmt.Sprintf("%s: %s", h.Status, h.LastError)
	}
	return string(h.Status)
}

// OrderPipelineCheck maps the order pipeline: healthy or market_closed OK,
// otherwise WARN.
func OrderPipelineCheck(c OrderChecker) Check {
	return New(IDOrderPipeline, "Order pipeline", readiness.CategoryTrading, func(ctx context.Context) (Outcome, error) {
		h := c.Check(ctx)
		details := h.Details()
		switch h.Status {
		case orders.StatusHealthy, orders.StatusMarketClosed:
			return ok(details)
		case orders.StatusNoRecentOrders:
			return warn("no recent orders during the session", details)
		default:
			return warn(fmt.Sprintf("no orders for %.0f minutes", h.LastOrderAge/60), details)
		}
	})
}
