package storage

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/taskalloc/internal/domain/allocator"
)

var fixedNow = func() time.Time { return time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC) }

// sequentialItems mints items with predictable IDs
func sequentialItems() ItemGenerator {
	n := 0
	return func() WorkItem {
		n++
		return WorkItem{ID: fmt.Sprintf("item-%d", n), CustomerFirstName: "John", GeneratedAt: fixedNow(), ScreenType: "Good Report"}
	}
}

func seedRepo(t *testing.T) *MemoryRepository {
	t.Helper()
	gen := sequentialItems()
	seed := Seed(3, []allocator.Participant{
		{ID: 1, Name: "Alice", CurrentLoad: 2},
		{ID: 2, Name: "Bob", CurrentLoad: 1},
	}, gen)
	return NewMemoryRepository(seed, gen)
}

func TestSeed(t *testing.T) {
	snap := seedRepo(t).state

	require.Len(t, snap.Participants, 2)
	assert.Equal(t, 2, snap.Participants[0].Load())
	assert.Equal(t, 1, snap.Participants[1].Load())
	assert.Len(t, snap.Unassigned, 3)
	assert.Equal(t, 3, snap.AssignableTasks)

	engine := snap.EngineParticipants()
	assert.Equal(t, []allocator.Participant{
		{ID: 1, Name: "Alice", CurrentLoad: 2},
		{ID: 2, Name: "Bob", CurrentLoad: 1},
	}, engine)
}

func TestRandomItems(t *testing.T) {
	gen := RandomItems(rand.New(rand.NewSource(7)), fixedNow)

	a, b := gen(), gen()
	assert.NotEqual(t, a.ID, b.ID)
	assert.Len(t, a.ID, 36)
	assert.Contains(t, sampleNames, a.CustomerFirstName)
	assert.Contains(t, sampleScreenTypes, a.ScreenType)
	assert.Equal(t, fixedNow(), a.GeneratedAt)
}

func TestMemoryRepository_FetchReturnsCopy(t *testing.T) {
	repo := seedRepo(t)
	ctx := context.Background()

	snap, err := repo.Fetch(ctx)
	require.NoError(t, err)
	assert.True(t, repo.FetchCalled)

	snap.Participants[0].Tasks = nil
	snap.Unassigned = nil

	again, err := repo.Fetch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, again.Participants[0].Load())
	assert.Len(t, again.Unassigned, 3)
}

func TestMemoryRepository_Update(t *testing.T) {
	repo := seedRepo(t)
	ctx := context.Background()

	err := repo.Update(ctx, &Snapshot{AssignableTasks: 9, Participants: []ParticipantRecord{{ID: 5, Name: "Eve"}}})
	require.NoError(t, err)
	assert.True(t, repo.UpdateCalled)

	snap, err := repo.Fetch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 9, snap.AssignableTasks)
	require.Len(t, snap.Participants, 1)
	assert.Equal(t, "Eve", snap.Participants[0].Name)
}

func TestMemoryRepository_ApplyCommit(t *testing.T) {
	t.Run("additions draw from the unassigned pool first", func(t *testing.T) {
		repo := seedRepo(t)

		snap, err := repo.ApplyCommit(context.Background(), Commit{
			Changes:         []Change{{ParticipantID: 2, Action: allocator.ActionAdd, Units: 2}},
			AssignableTasks: 1,
		})
		require.NoError(t, err)
		assert.True(t, repo.ApplyCommitCalled)

		assert.Equal(t, 3, snap.Participants[1].Load())
		assert.Equal(t, "item-4", snap.Participants[1].Tasks[1].ID)
		assert.Equal(t, "item-5", snap.Participants[1].Tasks[2].ID)
		require.Len(t, snap.Unassigned, 1)
		assert.Equal(t, "item-6", snap.Unassigned[0].ID)
		assert.Equal(t, 1, snap.AssignableTasks)
	})

	t.Run("shortfall is minted", func(t *testing.T) {
		repo := seedRepo(t)

		snap, err := repo.ApplyCommit(context.Background(), Commit{
			Changes: []Change{{ParticipantID: 1, Action: allocator.ActionAdd, Units: 5}},
		})
		require.NoError(t, err)

		assert.Equal(t, 7, snap.Participants[0].Load())
		assert.Empty(t, snap.Unassigned)
		assert.Equal(t, "item-7", snap.Participants[0].Tasks[5].ID)
	})

	t.Run("subtractions return the latest items", func(t *testing.T) {
		repo := seedRepo(t)

		snap, err := repo.ApplyCommit(context.Background(), Commit{
			Changes:         []Change{{ParticipantID: 1, Action: allocator.ActionSubtract, Units: 1}},
			AssignableTasks: 4,
		})
		require.NoError(t, err)

		assert.Equal(t, 1, snap.Participants[0].Load())
		assert.Equal(t, "item-1", snap.Participants[0].Tasks[0].ID)
		require.Len(t, snap.Unassigned, 4)
		assert.Equal(t, "item-2", snap.Unassigned[3].ID)
		assert.Equal(t, 4, snap.AssignableTasks)
	})

	t.Run("subtraction never goes below zero", func(t *testing.T) {
		repo := seedRepo(t)

		snap, err := repo.ApplyCommit(context.Background(), Commit{
			Changes: []Change{{ParticipantID: 2, Action: allocator.ActionSubtract, Units: 10}},
		})
		require.NoError(t, err)
		assert.Equal(t, 0, snap.Participants[1].Load())
		assert.Len(t, snap.Unassigned, 4)
	})

	t.Run("returned items are reassigned before minting", func(t *testing.T) {
		repo := seedRepo(t)

		snap, err := repo.ApplyCommit(context.Background(), Commit{
			Changes: []Change{
				{ParticipantID: 2, Action: allocator.ActionAdd, Units: 5},
				{ParticipantID: 1, Action: allocator.ActionSubtract, Units: 2},
			},
		})
		require.NoError(t, err)

		assert.Equal(t, 0, snap.Participants[0].Load())
		assert.Equal(t, 6, snap.Participants[1].Load())
		assert.Empty(t, snap.Unassigned)
		ids := make([]string, 0, 6)
		for _, item := range snap.Participants[1].Tasks {
			ids = append(ids, item.ID)
		}
		assert.Equal(t, []string{"item-3", "item-4", "item-5", "item-6", "item-1", "item-2"}, ids)
	})

	t.Run("negative units move nothing", func(t *testing.T) {
		repo := seedRepo(t)

		snap, err := repo.ApplyCommit(context.Background(), Commit{
			Changes: []Change{
				{ParticipantID: 1, Action: allocator.ActionSubtract, Units: -4},
				{ParticipantID: 2, Action: allocator.ActionAdd, Units: -2},
			},
			AssignableTasks: 3,
		})
		require.NoError(t, err)
		assert.Equal(t, 2, snap.Participants[0].Load())
		assert.Equal(t, 1, snap.Participants[1].Load())
		assert.Len(t, snap.Unassigned, 3)
	})

	t.Run("unknown participant leaves state untouched", func(t *testing.T) {
		repo := seedRepo(t)

		_, err := repo.ApplyCommit(context.Background(), Commit{
			Changes: []Change{
				{ParticipantID: 1, Action: allocator.ActionAdd, Units: 1},
				{ParticipantID: 99, Action: allocator.ActionAdd, Units: 1},
			},
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrParticipantNotFound))

		snap, err := repo.Fetch(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 2, snap.Participants[0].Load())
		assert.Len(t, snap.Unassigned, 3)
	})
}

func TestMemoryRepository_ErrorInjection(t *testing.T) {
	repo := seedRepo(t)
	ctx := context.Background()
	boom := errors.New("store unavailable")

	repo.FetchErr = boom
	_, err := repo.Fetch(ctx)
	assert.ErrorIs(t, err, boom)

	repo.UpdateErr = boom
	assert.ErrorIs(t, repo.Update(ctx, &Snapshot{}), boom)

	repo.ApplyCommitErr = boom
	_, err = repo.ApplyCommit(ctx, Commit{})
	assert.ErrorIs(t, err, boom)
}

func TestMemoryRepository_CanceledContext(t *testing.T) {
	repo := seedRepo(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.Fetch(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, repo.FetchCalled)
}
