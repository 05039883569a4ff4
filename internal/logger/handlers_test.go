package logger

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/omamori-dev/omamori-linebot-go/internal/ctxutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureHandler records everything it handles.
type captureHandler struct {
	mu      sync.Mutex
	level   slog.Level
	attrs   []slog.Attr
	group   string
	records []slog.Record
	err     error
	delay   time.Duration
}

func (h *captureHandler) Enabled(_ context.Context, l slog.Level) bool { return l >= h.level }

func (h *captureHandler) Handle(_ context.Context, r slog.Record) error {
	if h.delay > 0 {
		time.Sleep(h.delay)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, r)
	return h.err
}

func (h *captureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.attrs = append(h.attrs, attrs...)
	return h
}

func (h *captureHandler) WithGroup(name string) slog.Handler {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.group = name
	return h
}

func (h *captureHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.records)
}

func recordAttrs(r slog.Record) map[string]string {
	out := map[string]string{}
	r.Attrs(func(a slog.Attr) bool {
		out[a.Key] = a.Value.String()
		return true
	})
	return out
}

func newRecord(level slog.Level, msg string) slog.Record {
	return slog.NewRecord(time.Now(), level, msg, 0)
}

func TestContextHandler(t *testing.T) {
	t.Parallel()

	next := &captureHandler{}
	h := NewContextHandler(next)

	ctx := ctxutil.WithUserID(context.Background(), "U1")
	ctx = ctxutil.WithChatID(ctx, "C1")
	require.NoError(t, h.Handle(ctx, newRecord(slog.LevelInfo, "a")))
	require.NoError(t, h.Handle(context.Background(), newRecord(slog.LevelInfo, "b")))

	require.Len(t, next.records, 2)
	assert.Equal(t, map[string]string{"user_id": "U1", "chat_id": "C1"}, recordAttrs(next.records[0]))
	assert.Empty(t, recordAttrs(next.records[1]))

	assert.IsType(t, &ContextHandler{}, h.WithAttrs([]slog.Attr{slog.String("k", "v")}))
	assert.IsType(t, &ContextHandler{}, h.WithGroup("g"))
	assert.Equal(t, "g", next.group)
	assert.Len(t, next.attrs, 1)
}

func TestMultiHandler(t *testing.T) {
	t.Parallel()

	info := &captureHandler{level: slog.LevelInfo}
	errOnly := &captureHandler{level: slog.LevelError, err: errors.New("sink down")}
	m := NewMultiHandler(info, nil, errOnly)
	require.Len(t, m.handlers, 2)

	ctx := context.Background()
	assert.False(t, m.Enabled(ctx, slog.LevelDebug))
	assert.True(t, m.Enabled(ctx, slog.LevelInfo))

	require.NoError(t, m.Handle(ctx, newRecord(slog.LevelInfo, "info")))
	err := m.Handle(ctx, newRecord(slog.LevelError, "error"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sink down")

	assert.Equal(t, 2, info.count())
	assert.Equal(t, 1, errOnly.count())

	derived := m.WithAttrs([]slog.Attr{slog.Int("n", 1)}).WithGroup("grp")
	assert.IsType(t, &MultiHandler{}, derived)
	assert.Equal(t, "grp", info.group)
	assert.Equal(t, "grp", errOnly.group)
}

func TestAsyncHandler_DeliversOnShutdown(t *testing.T) {
	t.Parallel()

	next := &captureHandler{delay: time.Millisecond}
	h := NewAsyncHandler(next, AsyncOptions{BufferSize: 64})

	for range 10 {
		require.NoError(t, h.Handle(context.Background(), newRecord(slog.LevelInfo, "x")))
	}
	require.NoError(t, h.Shutdown(context.Background()))
	assert.Equal(t, 10, next.count())
	assert.Zero(t, h.Dropped())

	// Records after shutdown are dropped, and a second shutdown is a no-op.
	require.NoError(t, h.Handle(context.Background(), newRecord(slog.LevelInfo, "late")))
	assert.Equal(t, uint64(1), h.Dropped())
	assert.NoError(t, h.Shutdown(context.Background()))
}

func TestAsyncHandler_DropsWhenFull(t *testing.T) {
	t.Parallel()

	next := &captureHandler{delay: 20 * time.Millisecond}
	h := NewAsyncHandler(next, AsyncOptions{BufferSize: 1})

	for range 20 {
		_ = h.Handle(context.Background(), newRecord(slog.LevelInfo, "burst"))
	}
	assert.Positive(t, h.Dropped())
	require.NoError(t, h.Shutdown(context.Background()))
	assert.Less(t, next.count(), 20)
}

func TestAsyncHandler_ShutdownTimeout(t *testing.T) {
	t.Parallel()

	next := &captureHandler{delay: 200 * time.Millisecond}
	h := NewAsyncHandler(next, AsyncOptions{BufferSize: 8})
	for range 4 {
		_ = h.Handle(context.Background(), newRecord(slog.LevelInfo, "slow"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, h.Shutdown(ctx), context.DeadlineExceeded)
}

func TestAsyncHandler_DerivedShareQueue(t *testing.T) {
	t.Parallel()

	next := &captureHandler{}
	h := NewAsyncHandler(next, AsyncOptions{})
	derived, ok := h.WithAttrs(nil).(*AsyncHandler)
	require.True(t, ok)
	assert.Same(t, h.queue, derived.queue)

	require.NoError(t, derived.Handle(context.Background(), newRecord(slog.LevelInfo, "via derived")))
	require.NoError(t, h.Shutdown(context.Background()))
	assert.Equal(t, 1, next.count())

	var nilHandler *AsyncHandler
	assert.NoError(t, nilHandler.Shutdown(context.Background()))
	assert.Zero(t, nilHandler.Dropped())
}
