// Package logging builds the diagnostic slog logger. Attribute values that
// may carry secrets are replaced before they reach the output.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

const redactedValue = "[REDACTED]"

var (
	sensitiveKeyParts = []string{"password", "passphrase", "secret", "private", "mnemonic", "token"}
	sensitiveKeys     = map[string]struct{}{
		"key":       {},
		"kek":       {},
		"plaintext": {},
		"seed":      {},
	}
)

// RedactingHandler wraps a handler and redacts sensitive attributes
type RedactingHandler struct {
	next slog.Handler
}

// WrapHandler returns next wrapped in a RedactingHandler
func WrapHandler(next slog.Handler) slog.Handler {
	if next == nil {
		return nil
	}
	return &RedactingHandler{next: next}
}

func (h *RedactingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *RedactingHandler) Handle(ctx context.Context, rec slog.Record) error {
	out := slog.NewRecord(rec.Time, rec.Level, rec.Message, rec.PC)
	rec.Attrs(func(attr slog.Attr) bool {
		out.AddAttrs(RedactAttr(attr))
		return true
	})
	return h.next.Handle(ctx, out)
}

func (h *RedactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	redacted := make([]slog.Attr, 0, len(attrs))
	for _, attr := range attrs {
		redacted = append(redacted, RedactAttr(attr))
	}
	return &RedactingHandler{next: h.next.WithAttrs(redacted)}
}

func (h *RedactingHandler) WithGroup(name string) slog.Handler {
	return &RedactingHandler{next: h.next.WithGroup(name)}
}

// RedactAttr replaces the value of a sensitive attribute, descending into groups
func RedactAttr(attr slog.Attr) slog.Attr {
	if IsSensitiveKey(attr.Key) {
		return slog.String(attr.Key, redactedValue)
	}
	if attr.Value.Kind() == slog.KindGroup {
		group := attr.Value.Group()
		redacted := make([]any, 0, len(group))
		for _, a := range group {
			redacted = append(redacted, RedactAttr(a))
		}
		return slog.Group(attr.Key, redacted...)
	}
	return attr
}

// IsSensitiveKey reports whether values logged under key are redacted
func IsSensitiveKey(key string) bool {
	lower := strings.ToLower(strings.TrimSpace(key))
	if _, ok := sensitiveKeys[lower]; ok {
		return true
	}
	for _, part := range sensitiveKeyParts {
		if strings.Contains(lower, part) {
			return true
		}
	}
	return false
}

// ParseLevel maps a level name to a slog.Level
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelWarn, fmt.Errorf("unknown log level %q", name)
	}
	return level, nil
}

// New returns a text logger writing to w at level, with redaction
func New(w io.Writer, level string) (*slog.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	base := slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})
	return slog.New(WrapHandler(base)), nil
}
