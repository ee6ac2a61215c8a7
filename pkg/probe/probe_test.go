package probe

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mercator-hq/warden/pkg/config"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func endpoint(name, url string) config.EndpointConfig {
	ep := config.EndpointConfig{Name: name, URL: url}
	cfg := &config.Config{Endpoints: []config.EndpointConfig{ep}}
	config.ApplyDefaults(cfg)
	return cfg.Endpoints[0]
}

func newProber(eps []config.EndpointConfig, log APILog, now time.Time) *Prober {
	return New(eps, log, Options{
		Now:    func() time.Time { return now },
		Getenv: func(string) string { return "" },
		Logger: quietLogger,
	})
}

func TestProbe_Classification(t *testing.T) {
	tests := []struct {
		name       string
		code       int
		want       Status
		wantErrSub string
	}{
		{name: "ok", code: http.StatusOK, want: StatusHealthy},
		{name: "no content", code: http.StatusNoContent, want: StatusHealthy},
		{name: "rate limited", code: http.StatusTooManyRequests, want: StatusRateLimited, wantErrSub: "429"},
		{name: "unauthorized", code: http.StatusUnauthorized, want: StatusAuthFailed, wantErrSub: "401"},
		{name: "forbidden", code: http.StatusForbidden, want: StatusHTTPError, wantErrSub: "403"},
		{name: "server error", code: http.StatusBadGateway, want: StatusHTTPError, wantErrSub: "502"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.code)
			}))
			defer srv.Close()

			p := newProber([]config.EndpointConfig{endpoint("quotes", srv.URL)}, APILog{}, time.Now())
			h := p.Probe(context.Background(), "quotes", nil)

			if h.Status != tt.want {
				t.Errorf("Status = %s, want %s", h.Status, tt.want)
			}
			if h.StatusCode != tt.code {
				t.Errorf("StatusCode = %d, want %d", h.StatusCode, tt.code)
			}
			if tt.wantErrSub == "" && h.LastError != "" {
				t.Errorf("LastError = %q, want empty", h.LastError)
			}
			if tt.wantErrSub != "" && !strings.Contains(h.LastError, tt.wantErrSub) {
				t.Errorf("LastError = %q, want substring %q", h.LastError, tt.wantErrSub)
			}
		})
	}
}

func TestProbe_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	ep := endpoint("slow", srv.URL)
	ep.Timeout = 50 * time.Millisecond
	p := newProber([]config.EndpointConfig{ep}, APILog{}, time.Now())

	h := p.Probe(context.Background(), "slow", nil)
	if h.Status != StatusTimeout {
		t.Errorf("Status = %s, want timeout (last_error %q)", h.Status, h.LastError)
	}
}

func TestProbe_CallerCancellationIsTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	p := newProber([]config.EndpointConfig{endpoint("slow", srv.URL)}, APILog{}, time.Now())
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	if h := p.Probe(ctx, "slow", nil); h.Status != StatusTimeout {
		t.Errorf("Status = %s, want timeout", h.Status)
	}
}

func TestProbe_ConnectionErrorRedactsCredential(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	ep := endpoint("dead", url)
	ep.Auth = config.AuthConfig{Mode: config.AuthQuery, Param: "apiKey", APIKey: "supersecretkey"}
	p := newProber([]config.EndpointConfig{ep}, APILog{}, time.Now())

	h := p.Probe(context.Background(), "dead", nil)
	if h.Status != StatusConnectionError {
		t.Fatalf("Status = %s, want connection_error", h.Status)
	}
	if strings.Contains(h.LastError, "supersecretkey") {
		t.Errorf("credential leaked into last_error: %q", h.LastError)
	}
}

func TestProbe_NoCredentialsShortCircuits(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	ep := endpoint("news", srv.URL)
	ep.Auth = config.AuthConfig{Mode: config.AuthHeader, Header: "X-Key", APIKeyEnv: "NEWS_KEY"}
	p := newProber([]config.EndpointConfig{ep}, APILog{}, time.Now())

	h := p.Probe(context.Background(), "news", nil)
	if h.Status != StatusNoCredentials {
		t.Errorf("Status = %s, want no_credentials", h.Status)
	}
	if called {
		t.Error("request sent without credentials")
	}
}

func TestProbe_CredentialsAndParams(t *testing.T) {
	var gotKey, gotHeader, gotSymbol, gotLimit string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.URL.Query().Get("apiKey")
		gotSymbol = r.URL.Query().Get("symbol")
		gotLimit = r.URL.Query().Get("limit")
		gotHeader = r.Header.Get("Authorization")
		w.Header().Set("X-RateLimit-Remaining", "42")
	}))
	defer srv.Close()

	query := endpoint("aggs", srv.URL)
	query.Params = map[string]string{"symbol": "SPY", "limit": "1"}
	query.Auth = config.AuthConfig{Mode: config.AuthQuery, Param: "apiKey", APIKeyEnv: "AGGS_KEY"}

	bearer := endpoint("acct", srv.URL)
	bearer.Auth = config.AuthConfig{Mode: config.AuthBearer, APIKey: "tok"}

	p := New([]config.EndpointConfig{query, bearer}, APILog{}, Options{
		Getenv: func(k string) string {
			if k == "AGGS_KEY" {
				return "k-123"
			}
			return ""
		},
		Logger: quietLogger,
	})

	h := p.Probe(context.Background(), "aggs", map[string]string{"symbol": "QQQ"})
	if h.Status != StatusHealthy {
		t.Fatalf("Status = %s (%s)", h.Status, h.LastError)
	}
	if gotKey != "k-123" || gotSymbol != "QQQ" || gotLimit != "1" {
		t.Errorf("query = key %q symbol %q limit %q", gotKey, gotSymbol, gotLimit)
	}
	if h.RateLimitRemaining != 42 {
		t.Errorf("RateLimitRemaining = %d, want 42", h.RateLimitRemaining)
	}

	p.Probe(context.Background(), "acct", nil)
	if gotHeader != "Bearer tok" {
		t.Errorf("Authorization = %q", gotHeader)
	}
}

func TestProbe_RateLimitHeaderAbsent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	p := newProber([]config.EndpointConfig{endpoint("q", srv.URL)}, APILog{}, time.Now())
	if h := p.Probe(context.Background(), "q", nil); h.RateLimitRemaining != -1 {
		t.Errorf("RateLimitRemaining = %d, want -1", h.RateLimitRemaining)
	}
}

func TestProbe_HistoryFromAPILog(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	dir := t.TempDir()
	path := filepath.Join(dir, "api.jsonl")

	var lines []string
	add := func(ago time.Duration, kind, endpoint string, code int, latency float64) {
		ts := float64(now.Add(-ago).UnixMilli()) / 1000
		lines = append(lines, fmt.Sprintf(`{"ts":%.3f,"kind":%q,"endpoint":%q,"status_code":%d,"latency_ms":%g}`, ts, kind, endpoint, code, latency))
	}
	add(2*time.Hour, "api_error", "quotes", 500, 0) // outside the window
	add(40*time.Minute, "api_request", "quotes", 200, 100)
	add(30*time.Minute, "api_request", "quotes", 200, 200)
	add(20*time.Minute, "api_request", "quotes", 200, 300)
	add(10*time.Minute, "api_error", "quotes", 503, 0)
	add(5*time.Minute, "api_request", "other", 200, 999)
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := newProber([]config.EndpointConfig{endpoint("quotes", srv.URL)}, APILog{Path: path, TailRecords: 100}, now)
	h := p.Probe(context.Background(), "quotes", nil)

	if h.ErrorRate1h != 0.25 {
		t.Errorf("ErrorRate1h = %v, want 0.25", h.ErrorRate1h)
	}
	if h.LastSuccessAge != (20 * time.Minute).Seconds() {
		t.Errorf("LastSuccessAge = %v, want 1200", h.LastSuccessAge)
	}
	if h.AvgLatencyMs <= 0 {
		t.Errorf("AvgLatencyMs = %v, want > 0", h.AvgLatencyMs)
	}
}

func TestProbe_NoHistory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := newProber([]config.EndpointConfig{endpoint("q", srv.URL)},
		APILog{Path: filepath.Join(t.TempDir(), "missing.jsonl")}, time.Now())
	h := p.Probe(context.Background(), "q", nil)

	if h.ErrorRate1h != 0 {
		t.Errorf("ErrorRate1h = %v, want 0 without data", h.ErrorRate1h)
	}
	if h.LastSuccessAge != -1 {
		t.Errorf("LastSuccessAge = %v, want -1", h.LastSuccessAge)
	}
}

func TestProbeAll_PreservesOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	eps := []config.EndpointConfig{endpoint("c", srv.URL), endpoint("a", srv.URL), endpoint("b", srv.URL)}
	p := newProber(eps, APILog{}, time.Now())

	got := p.ProbeAll(context.Background())
	if len(got) != 3 {
		t.Fatalf("len = %d", len(got))
	}
	for i, want := range []string{"c", "a", "b"} {
		if got[i].Name != want || got[i].Status != StatusHealthy {
			t.Errorf("result %d = %s/%s, want %s/healthy", i, got[i].Name, got[i].Status, want)
		}
	}
}

func TestLookup_Unknown(t *testing.T) {
	p := newProber(nil, APILog{}, time.Now())
	if _, err := p.Lookup("nope"); err == nil {
		t.Error("expected ErrUnknownEndpoint")
	}
	if h := p.Probe(context.Background(), "nope", nil); h.Status != StatusNoCredentials {
		t.Errorf("Status = %s", h.Status)
	}
}
