package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

type report struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

func (r report) Text() string { return "status: " + r.Status + "\n" }

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"", FormatJSON, false},
		{"json", FormatJSON, false},
		{"text", FormatText, false},
		{"csv", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(FormatJSON)
	if err := f.FormatTo(&buf, report{Status: "READY", Count: 2}); err != nil {
		t.Fatalf("FormatTo: %v", err)
	}
	var got report
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if got.Status != "READY" || got.Count != 2 {
		t.Errorf("decoded = %+v", got)
	}
	if !strings.Contains(buf.String(), "\n  ") {
		t.Error("expected indented output")
	}
}

func TestTextFormatter(t *testing.T) {
	f := NewFormatter(FormatText)

	b, err := f.Format(report{Status: "DEGRADED"})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "status: DEGRADED\n" {
		t.Errorf("Texter rendering = %q", b)
	}

	b, err = f.Format(42)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "42\n" {
		t.Errorf("fallback rendering = %q", b)
	}
}
