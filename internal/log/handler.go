// Package log adapts slog so that records are stamped with the request ID
// travelling in the context, without every call site threading it by hand.
package log

import (
	"context"
	"log/slog"

	"github.com/daniyarbek/magic-link-auth/internal/requestid"
)

// ContextHandler decorates an slog.Handler with context-derived attributes.
type ContextHandler struct {
	inner slog.Handler
}

// NewContextHandler wraps inner; each record passing through gains a
// request_id attribute when the context carries one.
func NewContextHandler(inner slog.Handler) *ContextHandler {
	return &ContextHandler{inner: inner}
}

func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if id := requestid.FromContext(ctx); id != "" {
		r.AddAttrs(slog.String("request_id", id))
	}
	return h.inner.Handle(ctx, r)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{inner: h.inner.WithAttrs(attrs)}
}

func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{inner: h.inner.WithGroup(name)}
}
