package ratelimit

import (
	"sync"
	"time"
)

// SlidingWindowCounter approximates a rolling window with two fixed windows.
// The previous window's count is weighted by how much of it still overlaps
// the rolling window:
//
//	effective = current + previous * (window - elapsed) / window
//
// A nil counter is disabled and allows everything.
type SlidingWindowCounter struct {
	mu       sync.Mutex
	now      func() time.Time
	limit    int
	window   time.Duration
	start    time.Time
	current  int
	previous int
}

// NewSlidingWindowCounter returns nil when limit <= 0.
func NewSlidingWindowCounter(limit int, window time.Duration) *SlidingWindowCounter {
	return newSlidingWindowCounter(limit, window, time.Now)
}

func newSlidingWindowCounter(limit int, window time.Duration, now func() time.Time) *SlidingWindowCounter {
	if limit <= 0 || window <= 0 {
		return nil
	}
	return &SlidingWindowCounter{
		now:    now,
		limit:  limit,
		window: window,
		start:  now(),
	}
}

// Allow counts one request if under the limit.
func (c *SlidingWindowCounter) Allow() bool {
	if c == nil {
		return true
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.effective() >= float64(c.limit) {
		return false
	}
	c.current++
	return true
}

// Check reports whether a request would be counted.
func (c *SlidingWindowCounter) Check() bool {
	if c == nil {
		return true
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.effective() < float64(c.limit)
}

// Consume counts one request if under the limit.
func (c *SlidingWindowCounter) Consume() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.effective() < float64(c.limit) {
		c.current++
	}
}

// Remaining returns the whole requests left, or -1 when disabled.
func (c *SlidingWindowCounter) Remaining() int {
	if c == nil {
		return -1
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	return max(0, int(float64(c.limit)-c.effective()))
}

// effective rotates expired windows and returns the weighted count.
// Must be called with mu held.
func (c *SlidingWindowCounter) effective() float64 {
	elapsed := c.now().Sub(c.start)
	if elapsed >= c.window {
		passed := int64(elapsed / c.window)
		if passed == 1 {
			c.previous = c.current
		} else {
			c.previous = 0
		}
		c.current = 0
		c.start = c.start.Add(time.Duration(passed) * c.window)
		elapsed -= time.Duration(passed) * c.window
	}

	overlap := float64(c.window-elapsed) / float64(c.window)
	overlap = min(1, max(0, overlap))
	return float64(c.current) + float64(c.previous)*overlap
}
