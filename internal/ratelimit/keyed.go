package ratelimit

import (
	"sync"
	"time"
)

// Limiter names used as metric labels.
const (
	NameUser = "user"
	NameLLM  = "llm"
)

// Observer receives limiter events. *metrics.Metrics satisfies it.
type Observer interface {
	RecordRateLimiterDrop(limiter string)
	SetRateLimiterActive(limiter string, count int)
}

// KeyedConfig configures a KeyedLimiter.
type KeyedConfig struct {
	Name string

	Burst      float64 // bucket capacity
	RefillRate float64 // tokens per second

	// DailyLimit caps requests per key over a rolling 24h. 0 disables it.
	DailyLimit int

	// CleanupPeriod is how often idle keys are dropped. 0 disables cleanup.
	CleanupPeriod time.Duration

	Observer Observer
}

// KeyedLimiter keeps one bucket and optional daily counter per key.
// Keys whose bucket has refilled are dropped on the next cleanup tick.
type KeyedLimiter struct {
	cfg  KeyedConfig
	now  func() time.Time
	mu   sync.RWMutex
	keys map[string]*keyState

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// keyState.mu makes the two-layer check-then-consume atomic per key.
type keyState struct {
	mu     sync.Mutex
	bucket *Limiter
	daily  *SlidingWindowCounter
}

// NewKeyedLimiter starts the cleanup goroutine when CleanupPeriod > 0.
// Call Stop to release it.
func NewKeyedLimiter(cfg KeyedConfig) *KeyedLimiter {
	return newKeyedLimiter(cfg, time.Now)
}

func newKeyedLimiter(cfg KeyedConfig, now func() time.Time) *KeyedLimiter {
	kl := &KeyedLimiter{
		cfg:  cfg,
		now:  now,
		keys: make(map[string]*keyState),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	if cfg.CleanupPeriod > 0 {
		go kl.cleanupLoop()
	} else {
		close(kl.done)
	}
	return kl
}

// Name returns the configured limiter name.
func (kl *KeyedLimiter) Name() string { return kl.cfg.Name }

// Allow reports whether key may make a request and, if so, charges it.
// The empty key is never limited.
func (kl *KeyedLimiter) Allow(key string) bool {
	if key == "" {
		return true
	}

	st := kl.state(key)
	st.mu.Lock()
	defer st.mu.Unlock()

	if !st.daily.Check() || !st.bucket.Check() {
		if kl.cfg.Observer != nil {
			kl.cfg.Observer.RecordRateLimiterDrop(kl.cfg.Name)
		}
		return false
	}
	st.daily.Consume()
	st.bucket.Consume()
	return true
}

func (kl *KeyedLimiter) state(key string) *keyState {
	kl.mu.RLock()
	st, ok := kl.keys[key]
	kl.mu.RUnlock()
	if ok {
		return st
	}

	kl.mu.Lock()
	defer kl.mu.Unlock()
	if st, ok = kl.keys[key]; ok {
		return st
	}
	st = &keyState{
		bucket: newLimiter(kl.cfg.Burst, kl.cfg.RefillRate, kl.now),
		daily:  newSlidingWindowCounter(kl.cfg.DailyLimit, 24*time.Hour, kl.now),
	}
	kl.keys[key] = st
	return st
}

func (kl *KeyedLimiter) lookup(key string) (*keyState, bool) {
	kl.mu.RLock()
	defer kl.mu.RUnlock()
	st, ok := kl.keys[key]
	return st, ok
}

// Available returns the tokens left for key.
func (kl *KeyedLimiter) Available(key string) float64 {
	if st, ok := kl.lookup(key); ok {
		return st.bucket.Available()
	}
	return kl.cfg.Burst
}

// DailyRemaining returns the daily quota left for key, or -1 when there is
// no daily limit.
func (kl *KeyedLimiter) DailyRemaining(key string) int {
	if kl.cfg.DailyLimit <= 0 {
		return -1
	}
	if st, ok := kl.lookup(key); ok {
		return st.daily.Remaining()
	}
	return kl.cfg.DailyLimit
}

// ActiveCount returns the number of tracked keys.
func (kl *KeyedLimiter) ActiveCount() int {
	kl.mu.RLock()
	defer kl.mu.RUnlock()
	return len(kl.keys)
}

// Cleanup drops idle keys and reports the remaining count.
// Keys with daily usage are kept so the rolling quota survives.
func (kl *KeyedLimiter) Cleanup() int {
	kl.mu.Lock()
	for key, st := range kl.keys {
		if st.bucket.IsFull() && (st.daily == nil || st.daily.Remaining() == kl.cfg.DailyLimit) {
			delete(kl.keys, key)
		}
	}
	n := len(kl.keys)
	kl.mu.Unlock()

	if kl.cfg.Observer != nil {
		kl.cfg.Observer.SetRateLimiterActive(kl.cfg.Name, n)
	}
	return n
}

func (kl *KeyedLimiter) cleanupLoop() {
	defer close(kl.done)
	ticker := time.NewTicker(kl.cfg.CleanupPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-kl.stop:
			return
		case <-ticker.C:
			kl.Cleanup()
		}
	}
}

// Stop ends the cleanup goroutine and waits for it. Safe to call twice.
func (kl *KeyedLimiter) Stop() {
	kl.stopOnce.Do(func() { close(kl.stop) })
	<-kl.done
}
