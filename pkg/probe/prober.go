package probe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"mercator-hq/warden/pkg/config"
	"mercator-hq/warden/pkg/telemetry/logging"
	"mercator-hq/warden/pkg/telemetry/metrics"

	"golang.org/x/sync/errgroup"
)

// maxBodyDrain bounds how much of a probe response is read before closing.
const maxBodyDrain = 64 << 10

// APILog locates the structured API log used for historical figures.
type APILog struct {
	Path        string
	TailRecords int
}

// Options configures a Prober. Zero values select defaults.
type Options struct {
	// Client performs the requests. Its own Timeout is not used; each probe
	// carries a context deadline.
	Client *http.Client

	Now     func() time.Time
	Getenv  func(string) string
	Metrics *metrics.Collector
	Logger  *slog.Logger
}

// Prober probes the configured endpoints.
type Prober struct {
	endpoints map[string]config.EndpointConfig
	order     []string
	apiLog    APILog

	client   *http.Client
	now      func() time.Time
	getenv   func(string) string
	redactor *logging.Redactor
	metrics  *metrics.Collector
	logger   *slog.Logger
}

// New creates a prober for endpoints. Endpoint order is preserved by ProbeAll.
func New(endpoints []config.EndpointConfig, apiLog APILog, opts Options) *Prober {
	p := &Prober{
		endpoints: make(map[string]config.EndpointConfig, len(endpoints)),
		apiLog:    apiLog,
		client:    opts.Client,
		now:       opts.Now,
		getenv:    opts.Getenv,
		redactor:  logging.NewRedactor(),
		metrics:   opts.Metrics,
		logger:    opts.Logger,
	}
	for _, ep := range endpoints {
		p.endpoints[ep.Name] = ep
		p.order = append(p.order, ep.Name)
	}
	if p.client == nil {
		p.client = &http.Client{}
	}
	if p.now == nil {
		p.now = time.Now
	}
	if p.getenv == nil {
		p.getenv = os.Getenv
	}
	if p.logger == nil {
		p.logger = slog.Default().With("component", "probe")
	}
	return p
}

// Names returns the endpoint names in configuration order.
func (p *Prober) Names() []string {
	return append([]string(nil), p.order...)
}

// Lookup returns the configuration of an endpoint.
func (p *Prober) Lookup(name string) (config.EndpointConfig, error) {
	ep, ok := p.endpoints[name]
	if !ok {
		return config.EndpointConfig{}, fmt.Errorf("%w: %q", ErrUnknownEndpoint, name)
	}
	return ep, nil
}

// ProbeAll probes every endpoint concurrently and returns results in
// configuration order.
func (p *Prober) ProbeAll(ctx context.Context) []EndpointHealth {
	results := make([]EndpointHealth, len(p.order))
	var g errgroup.Group
	for i, name := range p.order {
		i, name := i, name
		g.Go(func() error {
			results[i] = p.Probe(ctx, name, nil)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Probe sends one bounded GET to the endpoint with params merged over the
// configured test parameters.
func (p *Prober) Probe(ctx context.Context, name string, params map[string]string) EndpointHealth {
	h := EndpointHealth{Name: name, LastSuccessAge: -1, RateLimitRemaining: -1}

	ep, err := p.Lookup(name)
	if err != nil {
		h.Status = StatusNoCredentials
		h.LastError = err.Error()
		return h
	}

	hist := p.loadHistory(name)
	hist.apply(&h)

	key := p.credential(ep)
	if ep.Auth.Mode != config.AuthNone && key == "" {
		h.Status = StatusNoCredentials
		h.LastError = "credentials not configured"
		p.record(ctx, h, 0)
		return h
	}

	latency, status, code, remaining, perr := p.do(ctx, ep, key, params)
	h.Status = status
	h.StatusCode = code
	h.RateLimitRemaining = remaining
	if perr != nil {
		h.LastError = p.redactor.Scrub(perr.Error(), key)
	}
	if code != 0 {
		hist.latencySum += float64(latency) / float64(time.Millisecond)
		hist.latencyN++
		h.AvgLatencyMs = hist.avgLatency()
	}
	if status == StatusHealthy {
		h.LastSuccessAge = 0
	}

	p.record(ctx, h, latency)
	return h
}

func (p *Prober) do(ctx context.Context, ep config.EndpointConfig, key string, params map[string]string) (time.Duration, Status, int, int, error) {
	timeout := ep.Timeout
	if timeout <= 0 || timeout > config.MaxEndpointTimeout {
		timeout = config.MaxEndpointTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := p.buildRequest(ctx, ep, key, params)
	if err != nil {
		return 0, StatusConnectionError, 0, -1, err
	}

	start := time.Now()
	resp, err := p.client.Do(req)
	latency := time.Since(start)
	if err != nil {
		if isTimeout(ctx, err) {
			return latency, StatusTimeout, 0, -1, fmt.Errorf("probe timed out after %s", latency.Round(time.Millisecond))
		}
		return latency, StatusConnectionError, 0, -1, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyDrain))

	remaining := parseRemaining(resp.Header.Get(ep.RateLimitHeader))
	status, perr := classify(resp.StatusCode)
	return latency, status, resp.StatusCode, remaining, perr
}

func (p *Prober) buildRequest(ctx context.Context, ep config.EndpointConfig, key string, params map[string]string) (*http.Request, error) {
	u, err := url.Parse(ep.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint url: %w", err)
	}
	q := u.Query()
	for k, v := range ep.Params {
		q.Set(k, v)
	}
	for k, v := range params {
		q.Set(k, v)
	}
	if ep.Auth.Mode == config.AuthQuery {
		q.Set(ep.Auth.Param, key)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	switch ep.Auth.Mode {
	case config.AuthHeader:
		req.Header.Set(ep.Auth.Header, key)
	case config.AuthBearer:
		req.Header.Set("Authorization", "Bearer "+key)
	}
	req.Header.Set("User-Agent", "warden-probe")
	return req, nil
}

func (p *Prober) credential(ep config.EndpointConfig) string {
	if ep.Auth.APIKey != "" {
		return ep.Auth.APIKey
	}
	if ep.Auth.APIKeyEnv != "" {
		return strings.TrimSpace(p.getenv(ep.Auth.APIKeyEnv))
	}
	return ""
}

func (p *Prober) record(ctx context.Context, h EndpointHealth, latency time.Duration) {
	p.metrics.RecordProbe(h.Name, string(h.Status), latency, h.RateLimitRemaining)

	level := slog.LevelDebug
	if !h.Healthy() {
		level = slog.LevelWarn
	}
	p.logger.Log(ctx, level, "endpoint probed",
		"endpoint", h.Name,
		"status", h.Status,
		"status_code", h.StatusCode,
		"latency_ms", latency.Milliseconds(),
		"error_rate_1h", h.ErrorRate1h,
		"last_error", h.LastError,
	)
}

func classify(code int) (Status, error) {
	switch {
	case code >= 200 && code < 300:
		return StatusHealthy, nil
	case code == http.StatusTooManyRequests:
		return StatusRateLimited, fmt.Errorf("rate limited (HTTP %d)", code)
	case code == http.StatusUnauthorized:
		return StatusAuthFailed, fmt.Errorf("authentication failed (HTTP %d)", code)
	default:
		return StatusHTTPError, fmt.Errorf("HTTP %d %s", code, http.StatusText(code))
	}
}

func isTimeout(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func parseRemaining(v string) int {
	if v == "" {
		return -1
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 0 {
		return -1
	}
	return n
}
