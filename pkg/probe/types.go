package probe

import "errors"

// Status is the classified outcome of a probe.
type Status string

const (
	StatusHealthy         Status = "healthy"
	StatusRateLimited     Status = "rate_limited"
	StatusAuthFailed      Status = "auth_failed"
	StatusHTTPError       Status = "http_error"
	StatusTimeout         Status = "timeout"
	StatusConnectionError Status = "connection_error"
	StatusNoCredentials   Status = "no_credentials"
)

// ErrUnknownEndpoint is returned by Lookup for names missing from config.
var ErrUnknownEndpoint = errors.New("unknown endpoint")

// EndpointHealth is the ephemeral result of one probe.
type EndpointHealth struct {
	Name   string `json:"endpoint_name"`
	Status Status `json:"status"`

	// LastSuccessAge is seconds since the latest successful call, -1 if none
	// is known.
	LastSuccessAge float64 `json:"last_success_age"`

	// ErrorRate1h is errors / calls for the endpoint over the trailing hour.
	ErrorRate1h float64 `json:"error_rate_1h"`

	AvgLatencyMs float64 `json:"avg_latency_ms"`

	// RateLimitRemaining is -1 when the endpoint does not report it.
	RateLimitRemaining int `json:"rate_limit_remaining"`

	// StatusCode of the probe response, 0 when none was received.
	StatusCode int `json:"status_code,omitempty"`

	LastError string `json:"last_error,omitempty"`
}

// Healthy reports whether the probe succeeded.
func (h EndpointHealth) Healthy() bool {
	return h.Status == StatusHealthy
}

// Details flattens the result for a failure point's details map.
func (h EndpointHealth) Details() map[string]any {
	d := map[string]any{
		"outcome":              string(h.Status),
		"last_success_age":     h.LastSuccessAge,
		"error_rate_1h":        h.ErrorRate1h,
		"avg_latency_ms":       h.AvgLatencyMs,
		"rate_limit_remaining": h.RateLimitRemaining,
	}
	if h.StatusCode != 0 {
		d["status_code"] = h.StatusCode
	}
	return d
}
