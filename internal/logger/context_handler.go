package logger

import (
	"context"
	"log/slog"

	"github.com/omamori-dev/omamori-linebot-go/internal/ctxutil"
)

// ContextHandler adds tracing values stored by ctxutil (user_id, chat_id,
// request_id, event_id) to every record logged with a context, so call sites
// can use slog.InfoContext without repeating them.
type ContextHandler struct {
	next slog.Handler
}

// NewContextHandler wraps next.
func NewContextHandler(next slog.Handler) *ContextHandler {
	return &ContextHandler{next: next}
}

// Enabled implements slog.Handler.
func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	addIfSet := func(key, value string) {
		if value != "" {
			r.AddAttrs(slog.String(key, value))
		}
	}
	addIfSet("user_id", ctxutil.GetUserID(ctx))
	addIfSet("chat_id", ctxutil.GetChatID(ctx))
	if id, ok := ctxutil.GetRequestID(ctx); ok {
		addIfSet("request_id", id)
	}
	addIfSet("event_id", ctxutil.GetEventID(ctx))

	return h.next.Handle(ctx, r)
}

// WithAttrs implements slog.Handler.
func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{next: h.next.WithAttrs(attrs)}
}

// WithGroup implements slog.Handler.
func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{next: h.next.WithGroup(name)}
}
