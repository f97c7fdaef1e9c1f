package logger

import (
	"context"
	"log/slog"
	"strings"
)

// RedactedValue replaces the value of any redacted attribute.
const RedactedValue = "[REDACTED]"

// RedactingHandler wraps an slog.Handler and replaces the values of
// sensitive attributes before they reach the underlying handler. A key
// matches when it equals or contains a configured field name, so "token"
// also covers "authorization_token".
type RedactingHandler struct {
	handler slog.Handler
	fields  map[string]struct{}
}

// NewRedactingHandler creates a handler that redacts the given fields.
func NewRedactingHandler(handler slog.Handler, fields []string) *RedactingHandler {
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[strings.ToLower(f)] = struct{}{}
	}
	return &RedactingHandler{handler: handler, fields: set}
}

func (h *RedactingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *RedactingHandler) Handle(ctx context.Context, r slog.Record) error {
	clean := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		clean.AddAttrs(h.redact(a))
		return true
	})
	return h.handler.Handle(ctx, clean)
}

func (h *RedactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	redacted := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		redacted[i] = h.redact(a)
	}
	return &RedactingHandler{handler: h.handler.WithAttrs(redacted), fields: h.fields}
}

func (h *RedactingHandler) WithGroup(name string) slog.Handler {
	return &RedactingHandler{handler: h.handler.WithGroup(name), fields: h.fields}
}

func (h *RedactingHandler) redact(a slog.Attr) slog.Attr {
	if h.shouldRedact(strings.ToLower(a.Key)) {
		return slog.String(a.Key, RedactedValue)
	}

	if a.Value.Kind() == slog.KindGroup {
		group := a.Value.Group()
		args := make([]any, 0, len(group))
		for _, ga := range group {
			args = append(args, h.redact(ga))
		}
		return slog.Group(a.Key, args...)
	}

	return a
}

func (h *RedactingHandler) shouldRedact(key string) bool {
	if _, ok := h.fields[key]; ok {
		return true
	}
	for field := range h.fields {
		if strings.Contains(key, field) {
			return true
		}
	}
	return false
}
