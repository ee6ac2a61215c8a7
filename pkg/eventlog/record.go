package eventlog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// Kind identifies what a record describes.
type Kind string

const (
	KindAPIRequest     Kind = "api_request"
	KindAPIError       Kind = "api_error"
	KindOrderSubmitted Kind = "order_submitted"
	KindOrderFilled    Kind = "order_filled"
	KindOrderRejected  Kind = "order_rejected"
	KindSignal         Kind = "signal"
	KindError          Kind = "error"
)

// IsOrder reports whether the kind belongs to the execution log.
func (k Kind) IsOrder() bool {
	return k == KindOrderSubmitted || k == KindOrderFilled || k == KindOrderRejected
}

// IsAPI reports whether the kind belongs to the API log.
func (k Kind) IsAPI() bool {
	return k == KindAPIRequest || k == KindAPIError
}

// Record is one structured log line.
type Record struct {
	Time      Timestamp `json:"ts"`
	Kind      Kind      `json:"kind"`
	Endpoint  string    `json:"endpoint,omitempty"`
	Signal    string    `json:"signal,omitempty"`
	Symbol    string    `json:"symbol,omitempty"`
	Component string    `json:"component,omitempty"`
	Level     string    `json:"level,omitempty"`
	Message   string    `json:"message,omitempty"`
	OrderID   string    `json:"order_id,omitempty"`

	// StatusCode is the HTTP status of an API call, 0 when none was received.
	StatusCode int `json:"status_code,omitempty"`

	LatencyMs float64 `json:"latency_ms,omitempty"`
}

// At returns the record time.
func (r Record) At() time.Time {
	return r.Time.Time
}

// Timestamp accepts epoch seconds (integer or fractional) or an RFC3339
// string and always encodes as epoch seconds.
type Timestamp struct {
	time.Time
}

// NewTimestamp wraps t.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t}
}

// MarshalJSON encodes the timestamp as fractional epoch seconds.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("0"), nil
	}
	sec := float64(t.UnixMilli()) / 1000
	return []byte(strconv.FormatFloat(sec, 'f', -1, 64)), nil
}

// UnmarshalJSON decodes epoch seconds or an RFC3339 string.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		parsed, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return fmt.Errorf("invalid timestamp %q: %w", s, err)
		}
		t.Time = parsed
		return nil
	}

	sec, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("invalid timestamp %s: %w", data, err)
	}
	if sec == 0 {
		t.Time = time.Time{}
		return nil
	}
	t.Time = time.UnixMilli(int64(math.Round(sec * 1000)))
	return nil
}
