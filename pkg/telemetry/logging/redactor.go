package logging

import (
	"log/slog"
	"regexp"
	"strings"
)

// Redactor masks credentials in log messages, attribute values and error text.
type Redactor struct {
	patterns []redactPattern
}

// redactPattern contains a compiled regex and replacement string.
type redactPattern struct {
	name        string
	regex       *regexp.Regexp
	replacement string
}

// Built-in pattern names.
const (
	PatternQueryCredential = "query_credential"
	PatternBearerToken     = "bearer_token"
	PatternKeyValue        = "key_value"
)

// NewRedactor creates a Redactor with the built-in credential patterns.
func NewRedactor() *Redactor {
	return &Redactor{
		patterns: []redactPattern{
			{
				// apiKey=..., api_key=..., token=... in URLs and query strings
				name:        PatternQueryCredential,
				regex:       regexp.MustCompile(`(?i)([?&](?:api[-_]?key|apikey|token|access_token|secret|key)=)[^&\s"]+`),
				replacement: "${1}***",
			},
			{
				name:        PatternBearerToken,
				regex:       regexp.MustCompile(`(?i)Bearer\s+[a-zA-Z0-9\-._~+/]+=*`),
				replacement: "Bearer ***",
			},
			{
				// "api_key: xyz", "password=xyz" in free text
				name:        PatternKeyValue,
				regex:       regexp.MustCompile(`(?i)\b(api[-_]?key|apikey|password|secret|token)(\s*[:=]\s*)[^\s,;&"]+`),
				replacement: "${1}${2}***",
			},
		},
	}
}

// RedactString masks credential patterns in s.
func (r *Redactor) RedactString(s string) string {
	if r == nil || s == "" {
		return s
	}
	for _, p := range r.patterns {
		s = p.regex.ReplaceAllString(s, p.replacement)
	}
	return s
}

// RedactAttr masks the value of a sensitive key or any credential pattern
// inside a string value. Groups are handled recursively.
func (r *Redactor) RedactAttr(a slog.Attr) slog.Attr {
	if r == nil {
		return a
	}
	v := a.Value.Resolve()
	switch v.Kind() {
	case slog.KindGroup:
		group := v.Group()
		out := make([]any, len(group))
		for i, ga := range group {
			out[i] = r.RedactAttr(ga)
		}
		return slog.Group(a.Key, out...)
	case slog.KindString:
		if isSensitiveKey(a.Key) {
			return slog.String(a.Key, RedactSecret(v.String()))
		}
		return slog.String(a.Key, r.RedactString(v.String()))
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return slog.String(a.Key, r.RedactString(err.Error()))
		}
		if isSensitiveKey(a.Key) {
			return slog.String(a.Key, "***")
		}
	}
	return a
}

// isSensitiveKey checks if a key name indicates credential material.
func isSensitiveKey(key string) bool {
	lowerKey := strings.ToLower(key)

	sensitiveKeys := []string{
		"password", "passwd", "secret", "token",
		"api_key", "apikey", "authorization",
	}
	for _, sensitive := range sensitiveKeys {
		if strings.Contains(lowerKey, sensitive) {
			return true
		}
	}
	return false
}

// RedactSecret masks a credential, keeping a short prefix for identification.
func RedactSecret(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 8 {
		return "***"
	}
	return secret[:4] + "***"
}

// Scrub removes every occurrence of the given secrets from s and then applies
// the built-in patterns. Used for error text that leaves the process.
func (r *Redactor) Scrub(s string, secrets ...string) string {
	for _, secret := range secrets {
		if secret != "" {
			s = strings.ReplaceAll(s, secret, "***")
		}
	}
	return r.RedactString(s)
}
