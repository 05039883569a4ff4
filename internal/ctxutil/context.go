// Package ctxutil carries tracing values (user, chat, request and webhook
// event IDs) through context.Context with private key types.
package ctxutil

import (
	"context"
)

type contextKey int

const (
	userIDKey contextKey = iota
	chatIDKey
	requestIDKey
	eventIDKey
)

var keyNames = map[contextKey]string{
	userIDKey:    "userID",
	chatIDKey:    "chatID",
	requestIDKey: "requestID",
	eventIDKey:   "eventID",
}

func with(ctx context.Context, key contextKey, v string) context.Context {
	return context.WithValue(ctx, key, v)
}

func get(ctx context.Context, key contextKey) string {
	v, _ := ctx.Value(key).(string)
	return v
}

func mustGet(ctx context.Context, key contextKey) string {
	v := get(ctx, key)
	if v == "" {
		panic("ctxutil: " + keyNames[key] + " not found")
	}
	return v
}

// WithUserID adds the LINE user ID of the message sender.
func WithUserID(ctx context.Context, userID string) context.Context {
	return with(ctx, userIDKey, userID)
}

// GetUserID returns the user ID, or "" when absent.
func GetUserID(ctx context.Context) string { return get(ctx, userIDKey) }

// MustGetUserID returns the user ID and panics when it is absent.
func MustGetUserID(ctx context.Context) string { return mustGet(ctx, userIDKey) }

// WithChatID adds the chat ID (user, group or room) the reply goes to.
func WithChatID(ctx context.Context, chatID string) context.Context {
	return with(ctx, chatIDKey, chatID)
}

// GetChatID returns the chat ID, or "" when absent.
func GetChatID(ctx context.Context) string { return get(ctx, chatIDKey) }

// MustGetChatID returns the chat ID and panics when it is absent.
func MustGetChatID(ctx context.Context) string { return mustGet(ctx, chatIDKey) }

// WithRequestID adds a request ID for log correlation.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return with(ctx, requestIDKey, requestID)
}

// GetRequestID returns the request ID and whether one is set.
func GetRequestID(ctx context.Context) (string, bool) {
	v := get(ctx, requestIDKey)
	return v, v != ""
}

// MustGetRequestID returns the request ID and panics when it is absent.
func MustGetRequestID(ctx context.Context) string { return mustGet(ctx, requestIDKey) }

// WithEventID adds the LINE webhook event ID.
func WithEventID(ctx context.Context, eventID string) context.Context {
	return with(ctx, eventIDKey, eventID)
}

// GetEventID returns the webhook event ID, or "" when absent.
func GetEventID(ctx context.Context) string { return get(ctx, eventIDKey) }

// PreserveTracing returns a fresh context carrying only the tracing values
// of ctx. It is not canceled with ctx and holds no reference to it, so async
// work can outlive the HTTP request that started it.
func PreserveTracing(ctx context.Context) context.Context {
	out := context.Background()
	for key := range keyNames {
		if v := get(ctx, key); v != "" {
			out = with(out, key, v)
		}
	}
	return out
}
