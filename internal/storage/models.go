package storage

import (
	"slices"
	"time"
)

// SavingsTarget is one savings goal registered by a user.
type SavingsTarget struct {
	ID          string    `json:"id"`
	Amount      int64     `json:"amount"`
	Goal        string    `json:"goal"`
	CreatedAt   time.Time `json:"created_at"`
	TargetDate  time.Time `json:"target_date"`
	DailyTarget int64     `json:"daily_target"`
}

// UserProfile holds the savings state of one chat user.
type UserProfile struct {
	UserID      string          `json:"user_id"`
	Targets     []SavingsTarget `json:"targets"` // oldest first
	HeirAddress string          `json:"heir_address,omitempty"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// NewUserProfile returns an empty profile for userID.
func NewUserProfile(userID string) *UserProfile {
	return &UserProfile{UserID: userID}
}

// AddTarget appends a savings target.
func (p *UserProfile) AddTarget(t SavingsTarget) {
	p.Targets = append(p.Targets, t)
}

// Clone returns a deep copy of p.
func (p *UserProfile) Clone() *UserProfile {
	if p == nil {
		return nil
	}
	c := *p
	c.Targets = slices.Clone(p.Targets)
	return &c
}

// FamilyGroup is a shared savings pot bound to a LINE group or room.
type FamilyGroup struct {
	GroupID     string    `json:"group_id"`
	Members     []string  `json:"members"` // sorted, unique
	SavingsGoal int64     `json:"savings_goal"`
	TotalSaved  int64     `json:"total_saved"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewFamilyGroup returns a family for groupID with creator as the first member.
func NewFamilyGroup(groupID, creator string, now time.Time) *FamilyGroup {
	g := &FamilyGroup{
		GroupID:   groupID,
		CreatedBy: creator,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if creator != "" {
		g.AddMember(creator)
	}
	return g
}

// AddMember adds userID to the member set. It reports whether the member was new.
func (g *FamilyGroup) AddMember(userID string) bool {
	i, found := slices.BinarySearch(g.Members, userID)
	if found {
		return false
	}
	g.Members = slices.Insert(g.Members, i, userID)
	return true
}

// HasMember reports whether userID belongs to the family.
func (g *FamilyGroup) HasMember(userID string) bool {
	_, found := slices.BinarySearch(g.Members, userID)
	return found
}

// GoalReached reports whether a savings goal is set and met.
func (g *FamilyGroup) GoalReached() bool {
	return g.SavingsGoal > 0 && g.TotalSaved >= g.SavingsGoal
}

// Clone returns a deep copy of g.
func (g *FamilyGroup) Clone() *FamilyGroup {
	if g == nil {
		return nil
	}
	c := *g
	c.Members = slices.Clone(g.Members)
	return &c
}

// Stats summarises store contents for metrics and readiness checks.
type Stats struct {
	Profiles int `json:"profiles"`
	Families int `json:"families"`
}
