package bot

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"

	"github.com/omamori-dev/omamori-linebot-go/internal/logger"
	"github.com/omamori-dev/omamori-linebot-go/internal/sentry"
)

// HandlerRecorder receives per-module outcomes. *metrics.Metrics satisfies it.
type HandlerRecorder interface {
	RecordHandler(module, status string, duration time.Duration)
}

// LoggingMiddleware logs each handler run at debug level, and failures at warn.
func LoggingMiddleware(log *logger.Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, h Handler, req Request) ([]messaging_api.MessageInterface, error) {
			start := time.Now()
			l := log.WithModule(h.Name()).WithField("intent", string(req.Intent.Kind))
			l.DebugContext(ctx, "Handler started")

			msgs, err := next(ctx, h, req)

			l = l.WithField("duration_ms", time.Since(start).Milliseconds()).
				WithField("msg_count", len(msgs))
			if err != nil {
				l.WithError(err).WarnContext(ctx, "Handler failed")
			} else {
				l.DebugContext(ctx, "Handler completed")
			}
			return msgs, err
		}
	}
}

// MetricsMiddleware records handler duration and status.
func MetricsMiddleware(rec HandlerRecorder) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, h Handler, req Request) ([]messaging_api.MessageInterface, error) {
			start := time.Now()
			msgs, err := next(ctx, h, req)
			if rec != nil {
				status := "success"
				if err != nil {
					status = "error"
				}
				rec.RecordHandler(h.Name(), status, time.Since(start))
			}
			return msgs, err
		}
	}
}

// RecoveryMiddleware turns a handler panic into an error and reports it to
// Sentry.
func RecoveryMiddleware(log *logger.Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, h Handler, req Request) (msgs []messaging_api.MessageInterface, err error) {
			defer func() {
				if r := recover(); r != nil {
					log.WithModule(h.Name()).
						WithField("panic", r).
						WithField("stack", string(debug.Stack())).
						ErrorContext(ctx, "Handler panicked")
					msgs = nil
					err = fmt.Errorf("handler %s panicked: %v", h.Name(), r)
					sentry.CaptureError(ctx, err)
				}
			}()
			return next(ctx, h, req)
		}
	}
}
