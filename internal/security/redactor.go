// Package security keeps the bot credential out of log output. The file
// download URL embeds the token, so any log line that renders a URL or a
// transport error is a potential leak.
package security

import (
	"regexp"
	"strings"
	"sync"
)

// RedactPlaceholder is the replacement string for redacted secrets.
const RedactPlaceholder = "***REDACTED***"

// tokenPattern matches the Telegram bot token wire format wherever it
// appears, including inside file-download URLs.
var tokenPattern = regexp.MustCompile(`\b\d+:[A-Za-z0-9_-]{25,}`)

// Redactor replaces secret values in strings with a redaction placeholder.
// It combines pattern matching for the token format with literal matching
// for the configured credential. Safe for concurrent use.
type Redactor struct {
	mu       sync.RWMutex
	literals []string
}

func NewRedactor() *Redactor {
	return &Redactor{}
}

// AddLiteral adds a literal secret value that should be redacted on sight.
// Empty strings are ignored.
func (r *Redactor) AddLiteral(secret string) {
	if secret == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.literals = append(r.literals, secret)
}

// Redact replaces the token pattern and all literal values in s with
// RedactPlaceholder.
func (r *Redactor) Redact(s string) string {
	if s == "" {
		return s
	}

	r.mu.RLock()
	literals := r.literals
	r.mu.RUnlock()

	// Literals first: a configured token that fails the length heuristic
	// must still never surface.
	for _, lit := range literals {
		if strings.Contains(s, lit) {
			s = strings.ReplaceAll(s, lit, RedactPlaceholder)
		}
	}

	return tokenPattern.ReplaceAllString(s, RedactPlaceholder)
}
