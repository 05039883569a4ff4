package storage

import (
	"context"
	"fmt"
	"time"

	domerrors "github.com/omamori-dev/omamori-linebot-go/internal/errors"
)

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Options selects and configures a Store backend.
type Options struct {
	Backend    string
	SQLitePath string
	RedisURL   string
}

// Open creates the Store described by opts.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case "", BackendMemory:
		return NewMemoryStore(), nil
	case BackendSQLite:
		return New(ctx, opts.SQLitePath)
	case BackendRedis:
		return NewRedisStore(ctx, opts.RedisURL)
	default:
		return nil, fmt.Errorf("unknown store backend %q", opts.Backend)
	}
}

// OpRecorder receives the outcome of every store call.
type OpRecorder interface {
	RecordStoreOp(op, status string, duration time.Duration)
}

// Instrumented wraps a Store and reports latency and status per operation.
type Instrumented struct {
	Store
	rec OpRecorder
}

// Instrument wraps s. A nil recorder returns s unchanged.
func Instrument(s Store, rec OpRecorder) Store {
	if rec == nil {
		return s
	}
	return &Instrumented{Store: s, rec: rec}
}

// Unwrap returns the underlying store.
func (s *Instrumented) Unwrap() Store { return s.Store }

// GetProfile implements ProfileRepository.
func (s *Instrumented) GetProfile(ctx context.Context, userID string) (*UserProfile, error) {
	start := time.Now()
	p, err := s.Store.GetProfile(ctx, userID)
	s.observe("get_profile", start, err)
	return p, err
}

// SaveProfile implements ProfileRepository.
func (s *Instrumented) SaveProfile(ctx context.Context, profile *UserProfile) error {
	start := time.Now()
	err := s.Store.SaveProfile(ctx, profile)
	s.observe("save_profile", start, err)
	return err
}

// GetFamily implements FamilyRepository.
func (s *Instrumented) GetFamily(ctx context.Context, groupID string) (*FamilyGroup, error) {
	start := time.Now()
	g, err := s.Store.GetFamily(ctx, groupID)
	s.observe("get_family", start, err)
	return g, err
}

// SaveFamily implements FamilyRepository.
func (s *Instrumented) SaveFamily(ctx context.Context, family *FamilyGroup) error {
	start := time.Now()
	err := s.Store.SaveFamily(ctx, family)
	s.observe("save_family", start, err)
	return err
}

func (s *Instrumented) observe(op string, start time.Time, err error) {
	status := "success"
	switch {
	case err == nil:
	case domerrors.IsNotFound(err):
		status = "not_found"
	default:
		status = "error"
	}
	s.rec.RecordStoreOp(op, status, time.Since(start))
}
