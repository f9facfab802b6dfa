package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/eshaffer321/taskalloc/internal/application/allocation"
	"github.com/eshaffer321/taskalloc/internal/domain/allocator"
	"github.com/eshaffer321/taskalloc/internal/infrastructure/storage"
)

// RunResult summarizes a scenario run
type RunResult struct {
	StepCount   int
	Errors      []error
	Submissions []*allocation.Result
}

// Runner drives a session through scenario steps and writes submissions
// back to the store
type Runner struct {
	session *allocation.Session
	repo    storage.Repository
	logger  *slog.Logger
}

// NewRunner creates a runner
func NewRunner(session *allocation.Session, repo storage.Repository, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Runner{session: session, repo: repo, logger: logger}
}

// Run applies steps in order. A failing edit is recorded and the run
// continues; only store failures and cancellation stop it.
func (r *Runner) Run(ctx context.Context, steps []Step) (*RunResult, error) {
	result := &RunResult{}

	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.StepCount++

		submitted, err := r.apply(step)
		if err != nil {
			r.logger.Warn("Step rejected",
				"step", i,
				"op", step.String(),
				"error", err,
			)
			result.Errors = append(result.Errors, fmt.Errorf("step %d (%s): %w", i, step, err))
			continue
		}
		r.logger.Debug("Step applied", "step", i, "op", step.String())

		if submitted == nil {
			continue
		}
		result.Submissions = append(result.Submissions, submitted)
		if _, err := r.repo.ApplyCommit(ctx, toCommit(submitted)); err != nil {
			return result, fmt.Errorf("apply commit: %w", err)
		}
	}

	return result, nil
}

func (r *Runner) apply(step Step) (*allocation.Result, error) {
	s := r.session
	switch step.Op {
	case "policy":
		policy, err := allocator.ParsePolicy(step.Value)
		if err != nil {
			return nil, err
		}
		return nil, s.SelectPolicy(policy)
	case "set":
		_, err := s.SetChange(step.Index, step.Value)
		return nil, err
	case "fill":
		_, err := s.FillRemaining(step.Index)
		return nil, err
	case "action":
		action, err := allocator.ParseAction(step.Action)
		if err != nil {
			return nil, err
		}
		return nil, s.SetAction(step.Index, action)
	case "percent":
		_, err := s.SetPercent(step.Index, step.Value)
		return nil, err
	case "lock":
		return nil, s.SetLocked(step.Index, true)
	case "unlock":
		return nil, s.SetLocked(step.Index, false)
	case "pool":
		s.SetRequestedPool(allocator.ParseQuantity(step.Value))
		return nil, nil
	case "apply":
		_, err := s.ApplyPool()
		return nil, err
	case "chunk":
		_, err := s.SetChunk(allocator.ParseQuantity(step.Value))
		return nil, err
	case "submit":
		return s.Submit()
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownStep, strconv.Quote(step.Op))
}

func toCommit(res *allocation.Result) storage.Commit {
	commit := storage.Commit{AssignableTasks: res.BaseCapacity}
	for _, ch := range res.Changes {
		commit.Changes = append(commit.Changes, storage.Change{
			ParticipantID: ch.ParticipantID,
			Action:        ch.Action,
			Units:         ch.Units,
		})
	}
	return commit
}
