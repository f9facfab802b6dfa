package cli

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/taskalloc/internal/application/allocation"
	"github.com/eshaffer321/taskalloc/internal/domain/allocator"
	"github.com/eshaffer321/taskalloc/internal/infrastructure/storage"
)

func newTestRunner(t *testing.T, base int, policy allocator.Policy, participants []allocator.Participant) (*Runner, *allocation.Session, *storage.MemoryRepository) {
	t.Helper()
	gen := func() storage.WorkItem { return storage.WorkItem{ID: "generated", CustomerFirstName: "Tom"} }
	repo := storage.NewMemoryRepository(storage.Seed(base, participants, gen), gen)

	session, err := allocation.NewSession(allocation.Options{
		BaseCapacity: base,
		Participants: participants,
		Policy:       policy,
	}, nil, nil)
	require.NoError(t, err)

	return NewRunner(session, repo, nil), session, repo
}

func threeParticipants() []allocator.Participant {
	return []allocator.Participant{
		{ID: 1, Name: "Alice", CurrentLoad: 3},
		{ID: 2, Name: "Bob", CurrentLoad: 5},
		{ID: 3, Name: "Charlie", CurrentLoad: 2},
	}
}

func TestRunner_ProportionalSubmitUpdatesStore(t *testing.T) {
	runner, session, repo := newTestRunner(t, 10, allocator.PolicyProportionalEven, threeParticipants())

	result, err := runner.Run(context.Background(), []Step{
		{Op: "pool", Value: "10"},
		{Op: "apply"},
		{Op: "percent", Index: 0, Value: "70"},
		{Op: "submit"},
	})
	require.NoError(t, err)
	assert.Empty(t, result.Errors)
	assert.Equal(t, 4, result.StepCount)
	require.Len(t, result.Submissions, 1)

	sub := result.Submissions[0]
	assert.Equal(t, 10, sub.Totals.Added)
	assert.Equal(t, 0, sub.BaseCapacity)

	snap, err := repo.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, snap.Participants[0].Load())
	assert.Equal(t, 7, snap.Participants[1].Load())
	assert.Equal(t, 3, snap.Participants[2].Load())
	assert.Empty(t, snap.Unassigned)
	assert.Equal(t, 0, snap.AssignableTasks)

	assert.Equal(t, 0, session.State().BaseCapacity)
}

func TestRunner_UnconstrainedSubtractAndFill(t *testing.T) {
	runner, _, repo := newTestRunner(t, 2, allocator.PolicyUnconstrained, threeParticipants())

	result, err := runner.Run(context.Background(), []Step{
		{Op: "action", Index: 1, Action: "subtract"},
		{Op: "set", Index: 1, Value: "3"},
		{Op: "fill", Index: 0},
		{Op: "submit"},
	})
	require.NoError(t, err)
	assert.Empty(t, result.Errors)
	require.Len(t, result.Submissions, 1)

	sub := result.Submissions[0]
	assert.Equal(t, allocator.Totals{Added: 5, Subtracted: 3}, sub.Totals)
	assert.Equal(t, 0, sub.BaseCapacity)

	snap, err := repo.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 8, snap.Participants[0].Load())
	assert.Equal(t, 2, snap.Participants[1].Load())
	assert.Equal(t, 2, snap.Participants[2].Load())
	assert.Empty(t, snap.Unassigned)
}

func TestRunner_RecordsRejectedStepsAndContinues(t *testing.T) {
	runner, session, _ := newTestRunner(t, 10, allocator.PolicyFixedPerParticipant, threeParticipants())

	result, err := runner.Run(context.Background(), []Step{
		{Op: "action", Index: 0, Action: "subtract"},
		{Op: "percent", Index: 0, Value: "50"},
		{Op: "teleport"},
		{Op: "set", Index: 9, Value: "1"},
		{Op: "pool", Value: "9"},
		{Op: "apply"},
		{Op: "chunk", Value: "4"},
	})
	require.NoError(t, err)
	assert.Equal(t, 7, result.StepCount)
	require.Len(t, result.Errors, 4)
	assert.True(t, errors.Is(result.Errors[1], allocation.ErrPolicyMismatch))
	assert.True(t, errors.Is(result.Errors[2], ErrUnknownStep))

	assert.Equal(t, []int{4, 4, 1}, session.State().Allocation())
}

func TestRunner_StopsOnStoreFailure(t *testing.T) {
	runner, _, repo := newTestRunner(t, 10, allocator.PolicyUnconstrained, threeParticipants())
	repo.ApplyCommitErr = errors.New("store offline")

	result, err := runner.Run(context.Background(), []Step{
		{Op: "set", Index: 0, Value: "1"},
		{Op: "submit"},
		{Op: "set", Index: 0, Value: "1"},
	})
	require.Error(t, err)
	assert.Equal(t, 2, result.StepCount)
}

func TestRunner_CanceledContext(t *testing.T) {
	runner, _, _ := newTestRunner(t, 10, allocator.PolicyUnconstrained, threeParticipants())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := runner.Run(ctx, []Step{{Op: "submit"}})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, result.StepCount)
}
