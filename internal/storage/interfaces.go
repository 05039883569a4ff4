// Package storage persists user savings profiles and family groups.
//
// Three backends implement Store: an in-process map (the default), SQLite for
// a single durable instance, and Redis for state shared across instances.
// Every Save replaces the whole record, so concurrent writers to the same key
// resolve as last-write-wins.
package storage

import (
	"context"
)

// ProfileRepository stores user profiles keyed by LINE user ID.
type ProfileRepository interface {
	// GetProfile returns errors.ErrNotFound when the user has no profile.
	GetProfile(ctx context.Context, userID string) (*UserProfile, error)
	SaveProfile(ctx context.Context, profile *UserProfile) error
}

// FamilyRepository stores family groups keyed by LINE group or room ID.
type FamilyRepository interface {
	// GetFamily returns errors.ErrNotFound when the group has no family.
	GetFamily(ctx context.Context, groupID string) (*FamilyGroup, error)
	SaveFamily(ctx context.Context, family *FamilyGroup) error
}

// Store is the full persistence surface used by the application.
type Store interface {
	ProfileRepository
	FamilyRepository

	Stats(ctx context.Context) (Stats, error)
	Ping(ctx context.Context) error
	Close() error
}

// Snapshotter is implemented by stores that can write a consistent copy of
// themselves to a local file.
type Snapshotter interface {
	CreateSnapshot(ctx context.Context, destPath string) error
}
