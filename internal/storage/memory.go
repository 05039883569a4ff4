package storage

import (
	"context"
	"fmt"
	"sync"

	domerrors "github.com/omamori-dev/omamori-linebot-go/internal/errors"
)

// MemoryStore keeps all state in process memory. State is lost on restart.
// Records are copied on the way in and out so callers never share them.
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]*UserProfile
	families map[string]*FamilyGroup
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		profiles: make(map[string]*UserProfile),
		families: make(map[string]*FamilyGroup),
	}
}

// GetProfile implements ProfileRepository.
func (s *MemoryStore) GetProfile(_ context.Context, userID string) (*UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[userID]
	if !ok {
		return nil, fmt.Errorf("profile %s: %w", userID, domerrors.ErrNotFound)
	}
	return p.Clone(), nil
}

// SaveProfile implements ProfileRepository.
func (s *MemoryStore) SaveProfile(_ context.Context, profile *UserProfile) error {
	if profile == nil || profile.UserID == "" {
		return domerrors.NewValidationError("user_id", "required")
	}

	s.mu.Lock()
	s.profiles[profile.UserID] = profile.Clone()
	s.mu.Unlock()
	return nil
}

// GetFamily implements FamilyRepository.
func (s *MemoryStore) GetFamily(_ context.Context, groupID string) (*FamilyGroup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.families[groupID]
	if !ok {
		return nil, fmt.Errorf("family %s: %w", groupID, domerrors.ErrNotFound)
	}
	return g.Clone(), nil
}

// SaveFamily implements FamilyRepository.
func (s *MemoryStore) SaveFamily(_ context.Context, family *FamilyGroup) error {
	if family == nil || family.GroupID == "" {
		return domerrors.NewValidationError("group_id", "required")
	}

	s.mu.Lock()
	s.families[family.GroupID] = family.Clone()
	s.mu.Unlock()
	return nil
}

// Stats implements Store.
func (s *MemoryStore) Stats(_ context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{Profiles: len(s.profiles), Families: len(s.families)}, nil
}

// Ping implements Store.
func (s *MemoryStore) Ping(context.Context) error { return nil }

// Close implements Store.
func (s *MemoryStore) Close() error { return nil }
