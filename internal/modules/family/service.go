// Package family implements shared savings pots bound to LINE group chats.
package family

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	domerrors "github.com/omamori-dev/omamori-linebot-go/internal/errors"
	"github.com/omamori-dev/omamori-linebot-go/internal/storage"
)

// Service applies family mutations. Writes to one group are serialised
// within the process; the store itself is last-write-wins.
type Service struct {
	repo  storage.FamilyRepository
	locks sync.Map // groupID -> *sync.Mutex
	now   func() time.Time
}

// NewService creates a Service backed by repo.
func NewService(repo storage.FamilyRepository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Get returns the family of groupID, or errors.ErrNotFound.
func (s *Service) Get(ctx context.Context, groupID string) (*storage.FamilyGroup, error) {
	return s.repo.GetFamily(ctx, groupID)
}

// Create starts a family in groupID with creator as the first member.
// It fails with errors.ErrFamilyExists when the group already has one.
func (s *Service) Create(ctx context.Context, groupID, creator string) (*storage.FamilyGroup, error) {
	unlock := s.lock(groupID)
	defer unlock()

	existing, err := s.repo.GetFamily(ctx, groupID)
	switch {
	case err == nil:
		return existing, domerrors.ErrFamilyExists
	case !errors.Is(err, domerrors.ErrNotFound):
		return nil, err
	}

	group := storage.NewFamilyGroup(groupID, creator, s.now())
	if err := s.repo.SaveFamily(ctx, group); err != nil {
		return nil, err
	}
	return group, nil
}

// Join adds userID to the family. It reports whether the user was new.
func (s *Service) Join(ctx context.Context, groupID, userID string) (*storage.FamilyGroup, bool, error) {
	var added bool
	group, err := s.update(ctx, groupID, func(g *storage.FamilyGroup) error {
		added = g.AddMember(userID)
		return nil
	})
	return group, added, err
}

// SetGoal replaces the family savings goal.
func (s *Service) SetGoal(ctx context.Context, groupID, userID string, amount int64) (*storage.FamilyGroup, error) {
	if amount <= 0 {
		return nil, domerrors.NewValidationError("amount", "must be positive")
	}
	return s.update(ctx, groupID, func(g *storage.FamilyGroup) error {
		g.SavingsGoal = amount
		if userID != "" {
			g.AddMember(userID)
		}
		return nil
	})
}

// Deposit adds amount to the family total and makes the depositor a member.
// reached is true only for the deposit that first meets the goal.
func (s *Service) Deposit(ctx context.Context, groupID, userID string, amount int64) (*storage.FamilyGroup, bool, error) {
	if amount <= 0 {
		return nil, false, domerrors.NewValidationError("amount", "must be positive")
	}
	var reached bool
	group, err := s.update(ctx, groupID, func(g *storage.FamilyGroup) error {
		before := g.GoalReached()
		g.TotalSaved += amount
		if userID != "" {
			g.AddMember(userID)
		}
		reached = !before && g.GoalReached()
		return nil
	})
	return group, reached, err
}

func (s *Service) update(ctx context.Context, groupID string, mutate func(*storage.FamilyGroup) error) (*storage.FamilyGroup, error) {
	unlock := s.lock(groupID)
	defer unlock()

	group, err := s.repo.GetFamily(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if err := mutate(group); err != nil {
		return nil, err
	}
	group.UpdatedAt = s.now()
	if err := s.repo.SaveFamily(ctx, group); err != nil {
		return nil, fmt.Errorf("save family %s: %w", groupID, err)
	}
	return group, nil
}

func (s *Service) lock(groupID string) func() {
	v, _ := s.locks.LoadOrStore(groupID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
