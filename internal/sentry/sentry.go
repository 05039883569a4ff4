// Package sentry wraps the Sentry SDK for error reporting.
//
// Initialize is a no-op without a DSN, and every capture helper is safe to
// call when Sentry is disabled.
package sentry

import (
	"context"
	"errors"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/omamori-dev/omamori-linebot-go/internal/ctxutil"
)

// Config holds Sentry settings.
type Config struct {
	DSN              string
	Environment      string
	Release          string
	SampleRate       float64 // 0 means 1.0
	TracesSampleRate float64 // 0 disables tracing
	Debug            bool
}

// Initialize sets up the global Sentry client. An empty DSN leaves Sentry
// disabled and returns nil.
func Initialize(cfg Config) error {
	if cfg.DSN == "" {
		return nil
	}

	sampleRate := cfg.SampleRate
	if sampleRate <= 0 {
		sampleRate = 1.0
	}

	return sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		Release:          cfg.Release,
		SampleRate:       sampleRate,
		EnableTracing:    cfg.TracesSampleRate > 0,
		TracesSampleRate: cfg.TracesSampleRate,
		Debug:            cfg.Debug,
		AttachStacktrace: true,
		BeforeSend:       dropCanceled,
	})
}

// dropCanceled filters client disconnects and shutdown cancellations, which
// are not actionable.
func dropCanceled(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
	if hint != nil && hint.OriginalException != nil && errors.Is(hint.OriginalException, context.Canceled) {
		return nil
	}
	return event
}

// Flush waits for buffered events. It reports whether all were sent, and
// false when Sentry was never initialised.
func Flush(timeout time.Duration) bool {
	return sentry.Flush(timeout)
}

// IsEnabled reports whether a client is configured.
func IsEnabled() bool {
	return sentry.CurrentHub().Client() != nil
}

// CaptureError reports err with the chat identifiers found in ctx as tags.
func CaptureError(ctx context.Context, err error) {
	if err == nil {
		return
	}
	hub := hubFor(ctx)
	if hub.Client() == nil {
		return
	}
	hub.WithScope(func(scope *sentry.Scope) {
		applyContext(ctx, scope)
		hub.CaptureException(err)
	})
}

// CaptureMessage reports a plain message.
func CaptureMessage(ctx context.Context, message string) {
	hub := hubFor(ctx)
	if hub.Client() == nil {
		return
	}
	hub.WithScope(func(scope *sentry.Scope) {
		applyContext(ctx, scope)
		hub.CaptureMessage(message)
	})
}

// hubFor prefers the request hub set by the gin middleware.
func hubFor(ctx context.Context) *sentry.Hub {
	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		return hub
	}
	return sentry.CurrentHub().Clone()
}

func applyContext(ctx context.Context, scope *sentry.Scope) {
	if userID := ctxutil.GetUserID(ctx); userID != "" {
		scope.SetUser(sentry.User{ID: userID})
	}
	if chatID := ctxutil.GetChatID(ctx); chatID != "" {
		scope.SetTag("chat_id", chatID)
	}
	if requestID, ok := ctxutil.GetRequestID(ctx); ok {
		scope.SetTag("request_id", requestID)
	}
	if eventID := ctxutil.GetEventID(ctx); eventID != "" {
		scope.SetTag("event_id", eventID)
	}
}
