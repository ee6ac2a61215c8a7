package health

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"mercator-hq/warden/pkg/readiness"
)

// Source answers readiness queries. *monitor.Monitor implements it.
type Source interface {
	Check(ctx context.Context) readiness.Response
}

// VersionInfo contains build and version information.
type VersionInfo struct {
	// Version is the semantic version (e.g., "1.0.0")
	Version string `json:"version"`

	// Commit is the git commit hash
	Commit string `json:"commit"`

	// BuildTime is when the binary was built
	BuildTime string `json:"build_time"`

	// GoVersion is the Go version used to build
	GoVersion string `json:"go_version"`
}

// Liveness is the body of the /health endpoint.
type Liveness struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// Handlers serves the health endpoints of a Warden process.
type Handlers struct {
	source  Source
	version VersionInfo
	now     func() time.Time
}

// NewHandlers creates the handlers for source.
func NewHandlers(source Source, version, commit, buildTime string) *Handlers {
	return &Handlers{
		source: source,
		version: VersionInfo{
			Version:   version,
			Commit:    commit,
			BuildTime: buildTime,
			GoVersion: runtime.Version(),
		},
		now: time.Now,
	}
}

// Register mounts the standard paths on mux:
//   - /health: liveness
//   - /ready: 200 unless BLOCKED, 503 otherwise
//   - /readiness: the full readiness response
//   - /version: build information
func (h *Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.LivenessHandler())
	mux.HandleFunc("/ready", h.ReadyHandler())
	mux.HandleFunc("/readiness", h.ReadinessHandler())
	mux.HandleFunc("/version", h.VersionHandler())
}

// LivenessHandler reports that the process is running. It never consults
// the readiness source.
//
// Example response:
//
//	{
//	    "status": "ok",
//	    "timestamp": "2025-11-20T10:30:00Z"
//	}
func (h *Handlers) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowRead(w, r) {
			return
		}
		writeJSON(w, r, http.StatusOK, Liveness{Status: "ok", Timestamp: h.now().UTC()})
	}
}

// ReadyHandler is the trading gate used by orchestrators.
//
// Returns:
//   - 200 OK: READY or DEGRADED
//   - 503 Service Unavailable: BLOCKED
func (h *Handlers) ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowRead(w, r) {
			return
		}
		resp := h.source.Check(r.Context())
		code := http.StatusOK
		if resp.Readiness == readiness.LevelBlocked {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, r, code, map[string]any{
			"readiness":      resp.Readiness,
			"critical_count": resp.CriticalCount,
			"critical_fps":   resp.CriticalFPs,
		})
	}
}

// ReadinessHandler returns the full readiness response with 200 for every
// verdict; BLOCKED is data, not a failure of the endpoint.
//
// Example response:
//
//	{
//	    "readiness": "DEGRADED",
//	    "color": "yellow",
//	    "critical_count": 0,
//	    "warning_count": 1,
//	    "total_checked": 11,
//	    "failure_points": [...],
//	    "critical_fps": [],
//	    "warning_fps": ["cache_freshness"]
//	}
func (h *Handlers) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowRead(w, r) {
			return
		}
		writeJSON(w, r, http.StatusOK, h.source.Check(r.Context()))
	}
}

// VersionHandler returns build information.
func (h *Handlers) VersionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowRead(w, r) {
			return
		}
		writeJSON(w, r, http.StatusOK, h.version)
	}
}

func allowRead(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, r *http.Request, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if r.Method != http.MethodHead {
		_ = json.NewEncoder(w).Encode(v)
	}
}
