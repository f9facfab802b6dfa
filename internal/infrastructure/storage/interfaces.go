package storage

import (
	"context"
	"errors"
)

var (
	// ErrParticipantNotFound is returned when a commit names an unknown participant
	ErrParticipantNotFound = errors.New("participant not found")
)

// Repository is the participant store the allocation engine reads from and
// writes back to. The engine itself never calls it; callers fetch a snapshot,
// run a session over it and apply the resulting commit.
type Repository interface {
	// Fetch returns a copy of the current store state
	Fetch(ctx context.Context) (*Snapshot, error)

	// Update replaces the store state
	Update(ctx context.Context, snapshot *Snapshot) error

	// ApplyCommit moves work items according to a submitted allocation and
	// returns the resulting state
	ApplyCommit(ctx context.Context, commit Commit) (*Snapshot, error)
}
