package logging

import (
	"context"
	"log/slog"
	"regexp"
)

// Credential shapes that must never appear in log output.
var redactPatterns = []*regexp.Regexp{
	// Authorization header values
	regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9\-._~+/]+=*`),
	// Classic personal access tokens
	regexp.MustCompile(`ghp_[a-zA-Z0-9]{20,}`),
	// Fine-grained personal access tokens
	regexp.MustCompile(`github_pat_[a-zA-Z0-9_]{20,}`),
	// OAuth and app tokens
	regexp.MustCompile(`gh[ours]_[a-zA-Z0-9]{20,}`),
}

const redactedPlaceholder = "[REDACTED]"

// Redact scrubs credential shapes from a string.
func Redact(s string) string {
	for _, p := range redactPatterns {
		s = p.ReplaceAllString(s, redactedPlaceholder)
	}
	return s
}

// RedactingHandler wraps a slog.Handler and scrubs credential shapes from
// the message and all string attribute values before the record is written.
type RedactingHandler struct {
	inner slog.Handler
}

// NewRedactingHandler wraps the given handler.
func NewRedactingHandler(inner slog.Handler) *RedactingHandler {
	return &RedactingHandler{inner: inner}
}

// Enabled implements slog.Handler.
func (h *RedactingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *RedactingHandler) Handle(ctx context.Context, record slog.Record) error {
	clean := slog.NewRecord(record.Time, record.Level, Redact(record.Message), record.PC)
	record.Attrs(func(attr slog.Attr) bool {
		clean.AddAttrs(redactAttr(attr))
		return true
	})
	return h.inner.Handle(ctx, clean)
}

// WithAttrs implements slog.Handler.
func (h *RedactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	scrubbed := make([]slog.Attr, len(attrs))
	for i, attr := range attrs {
		scrubbed[i] = redactAttr(attr)
	}
	return &RedactingHandler{inner: h.inner.WithAttrs(scrubbed)}
}

// WithGroup implements slog.Handler.
func (h *RedactingHandler) WithGroup(name string) slog.Handler {
	return &RedactingHandler{inner: h.inner.WithGroup(name)}
}

func redactAttr(attr slog.Attr) slog.Attr {
	switch attr.Value.Kind() {
	case slog.KindString:
		attr.Value = slog.StringValue(Redact(attr.Value.String()))
	case slog.KindGroup:
		group := attr.Value.Group()
		scrubbed := make([]slog.Attr, len(group))
		for i, g := range group {
			scrubbed[i] = redactAttr(g)
		}
		attr.Value = slog.GroupValue(scrubbed...)
	case slog.KindAny:
		// Errors commonly smuggle URLs or header dumps.
		if err, ok := attr.Value.Any().(error); ok {
			attr.Value = slog.StringValue(Redact(err.Error()))
		}
	}
	return attr
}
