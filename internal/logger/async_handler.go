package logger

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// AsyncOptions configures the async log queue.
type AsyncOptions struct {
	BufferSize   int           // queued records before new ones are dropped (default 1024)
	FlushTimeout time.Duration // Shutdown wait when ctx has no deadline (default 5s)
}

func (o AsyncOptions) withDefaults() AsyncOptions {
	if o.BufferSize <= 0 {
		o.BufferSize = 1024
	}
	if o.FlushTimeout <= 0 {
		o.FlushTimeout = 5 * time.Second
	}
	return o
}

type queuedRecord struct {
	ctx     context.Context
	handler slog.Handler
	record  slog.Record
}

// logQueue is shared by an AsyncHandler and every handler derived from it.
type logQueue struct {
	records chan queuedRecord
	done    chan struct{}
	mu      sync.RWMutex // guards closed against sends on a closed channel
	closed  bool
	dropped atomic.Uint64
	opts    AsyncOptions
}

func newLogQueue(opts AsyncOptions) *logQueue {
	q := &logQueue{
		records: make(chan queuedRecord, opts.BufferSize),
		done:    make(chan struct{}),
		opts:    opts,
	}
	go q.drain()
	return q
}

func (q *logQueue) drain() {
	defer close(q.done)
	for r := range q.records {
		_ = r.handler.Handle(r.ctx, r.record)
	}
}

func (q *logQueue) push(r queuedRecord) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		q.dropped.Add(1)
		return
	}
	select {
	case q.records <- r:
	default:
		q.dropped.Add(1)
	}
}

func (q *logQueue) close(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.records)
	}
	q.mu.Unlock()
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.opts.FlushTimeout)
		defer cancel()
	}
	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// AsyncHandler hands records to a background goroutine so a slow sink (such
// as an HTTP log shipper) never blocks the caller. When the queue is full,
// records are dropped and counted.
type AsyncHandler struct {
	next  slog.Handler
	queue *logQueue
}

// NewAsyncHandler wraps next with a bounded queue drained by one goroutine.
func NewAsyncHandler(next slog.Handler, opts AsyncOptions) *AsyncHandler {
	return &AsyncHandler{next: next, queue: newLogQueue(opts.withDefaults())}
}

// Enabled implements slog.Handler.
func (h *AsyncHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// Handle implements slog.Handler. The record is cloned because slog reuses
// attribute storage after Handle returns. The context is detached so a
// canceled request does not abort shipping.
func (h *AsyncHandler) Handle(ctx context.Context, r slog.Record) error {
	h.queue.push(queuedRecord{
		ctx:     context.WithoutCancel(ctx),
		handler: h.next,
		record:  r.Clone(),
	})
	return nil
}

// WithAttrs implements slog.Handler.
func (h *AsyncHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &AsyncHandler{next: h.next.WithAttrs(attrs), queue: h.queue}
}

// WithGroup implements slog.Handler.
func (h *AsyncHandler) WithGroup(name string) slog.Handler {
	return &AsyncHandler{next: h.next.WithGroup(name), queue: h.queue}
}

// Dropped returns how many records were discarded.
func (h *AsyncHandler) Dropped() uint64 {
	if h == nil {
		return 0
	}
	return h.queue.dropped.Load()
}

// Shutdown stops accepting records and waits for queued ones to be handled.
// It is safe to call more than once and on a nil handler.
func (h *AsyncHandler) Shutdown(ctx context.Context) error {
	if h == nil {
		return nil
	}
	return h.queue.close(ctx)
}
