package sentry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/omamori-dev/omamori-linebot-go/internal/ctxutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureHub returns a hub whose client records events instead of sending them.
func captureHub(t *testing.T) (*sentry.Hub, func() []*sentry.Event) {
	t.Helper()

	var (
		mu     sync.Mutex
		events []*sentry.Event
	)
	client, err := sentry.NewClient(sentry.ClientOptions{
		BeforeSend: func(e *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			mu.Lock()
			events = append(events, e)
			mu.Unlock()
			return nil
		},
	})
	require.NoError(t, err)

	return sentry.NewHub(client, sentry.NewScope()), func() []*sentry.Event {
		mu.Lock()
		defer mu.Unlock()
		return events
	}
}

func TestInitialize_EmptyDSN(t *testing.T) {
	t.Parallel()
	assert.NoError(t, Initialize(Config{}))
}

func TestInitialize_InvalidDSN(t *testing.T) {
	t.Parallel()
	assert.Error(t, Initialize(Config{DSN: "::not a dsn::"}))
}

func TestCaptureError_TagsFromContext(t *testing.T) {
	t.Parallel()

	hub, events := captureHub(t)
	ctx := ctxutil.WithUserID(context.Background(), "U123")
	ctx = ctxutil.WithChatID(ctx, "G456")
	ctx = ctxutil.WithRequestID(ctx, "req-1")
	ctx = ctxutil.WithEventID(ctx, "ev-1")
	ctx = sentry.SetHubOnContext(ctx, hub)

	CaptureError(ctx, errors.New("save profile: disk full"))
	CaptureError(ctx, nil)

	got := events()
	require.Len(t, got, 1)
	assert.Equal(t, "U123", got[0].User.ID)
	assert.Equal(t, "G456", got[0].Tags["chat_id"])
	assert.Equal(t, "req-1", got[0].Tags["request_id"])
	assert.Equal(t, "ev-1", got[0].Tags["event_id"])
}

func TestCaptureMessage(t *testing.T) {
	t.Parallel()

	hub, events := captureHub(t)
	ctx := sentry.SetHubOnContext(context.Background(), hub)
	CaptureMessage(ctx, "snapshot upload skipped")

	got := events()
	require.Len(t, got, 1)
	assert.Equal(t, "snapshot upload skipped", got[0].Message)
	assert.Empty(t, got[0].User.ID)
}

func TestCaptureWithoutClientIsNoop(t *testing.T) {
	t.Parallel()

	hub := sentry.NewHub(nil, sentry.NewScope())
	ctx := sentry.SetHubOnContext(context.Background(), hub)
	assert.NotPanics(t, func() {
		CaptureError(ctx, errors.New("x"))
		CaptureMessage(ctx, "x")
	})
}

func TestDropCanceled(t *testing.T) {
	t.Parallel()

	event := &sentry.Event{}
	assert.Nil(t, dropCanceled(event, &sentry.EventHint{OriginalException: fmt.Errorf("reply: %w", context.Canceled)}))
	assert.Same(t, event, dropCanceled(event, &sentry.EventHint{OriginalException: errors.New("boom")}))
	assert.Same(t, event, dropCanceled(event, nil))
}

func TestFlush_WithoutClient(t *testing.T) {
	t.Parallel()
	require.False(t, IsEnabled())
	assert.False(t, Flush(100*time.Millisecond))
}
