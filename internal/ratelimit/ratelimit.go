// Package ratelimit throttles chat users and outbound calls.
//
// Limiter is a plain token bucket. SlidingWindowCounter caps requests over a
// rolling window. KeyedLimiter combines both per key (user ID, chat ID).
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter is a token bucket. It is safe for concurrent use.
type Limiter struct {
	mu         sync.Mutex
	now        func() time.Time
	tokens     float64
	burst      float64
	perSecond  float64
	lastRefill time.Time
}

// New returns a full bucket holding burst tokens, refilled at perSecond.
func New(burst, perSecond float64) *Limiter {
	return newLimiter(burst, perSecond, time.Now)
}

func newLimiter(burst, perSecond float64, now func() time.Time) *Limiter {
	return &Limiter{
		now:        now,
		tokens:     burst,
		burst:      burst,
		perSecond:  perSecond,
		lastRefill: now(),
	}
}

// refill must be called with mu held.
func (l *Limiter) refill() {
	t := l.now()
	if elapsed := t.Sub(l.lastRefill).Seconds(); elapsed > 0 {
		l.tokens = min(l.burst, l.tokens+elapsed*l.perSecond)
	}
	l.lastRefill = t
}

// Allow takes one token if available.
func (l *Limiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.refill()
	if l.tokens < 1 {
		return false
	}
	l.tokens--
	return true
}

// Check reports whether a token is available without taking it. Callers
// pairing Check with Consume must hold their own lock across both.
func (l *Limiter) Check() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.refill()
	return l.tokens >= 1
}

// Consume takes one token if available.
func (l *Limiter) Consume() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.refill()
	if l.tokens >= 1 {
		l.tokens--
	}
}

// Wait blocks until a token is taken or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	for {
		l.mu.Lock()
		l.refill()
		if l.tokens >= 1 {
			l.tokens--
			l.mu.Unlock()
			return nil
		}
		var delay time.Duration
		if l.perSecond > 0 {
			delay = time.Duration((1 - l.tokens) / l.perSecond * float64(time.Second))
		} else {
			delay = time.Second
		}
		l.mu.Unlock()

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Available returns the current token count.
func (l *Limiter) Available() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.refill()
	return l.tokens
}

// IsFull reports whether the bucket has refilled to burst, meaning the key
// has been idle.
func (l *Limiter) IsFull() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.refill()
	return l.tokens >= l.burst
}

// Reset refills the bucket.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.tokens = l.burst
	l.lastRefill = l.now()
}
