// Package allocation drives the allocation engine in response to discrete
// edit events and owns the pending state between submits.
package allocation

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/eshaffer321/taskalloc/internal/domain/allocator"
)

// Session holds the pending allocation for one set of participants. All
// methods are safe for concurrent use; edits are serialized so each one sees
// the state left by the previous edit.
type Session struct {
	mu sync.Mutex

	id           string
	baseCapacity int
	participants []allocator.Participant
	policy       allocator.Policy

	pending []int
	actions []allocator.Action
	weights []allocator.Weight

	requestedPool int
	appliedPool   int
	chunk         int

	logger   *slog.Logger
	recorder Recorder
}

// NewSession creates a session over a snapshot of participants.
// A nil logger discards output and a nil recorder drops events.
func NewSession(opts Options, logger *slog.Logger, recorder Recorder) (*Session, error) {
	if opts.BaseCapacity < 0 {
		return nil, fmt.Errorf("%w: base capacity %d is negative", ErrInvalidOptions, opts.BaseCapacity)
	}
	for _, p := range opts.Participants {
		if p.CurrentLoad < 0 {
			return nil, fmt.Errorf("%w: participant %d has negative load %d", ErrInvalidOptions, p.ID, p.CurrentLoad)
		}
	}
	switch opts.Policy {
	case allocator.PolicyUnconstrained, allocator.PolicyProportionalEven, allocator.PolicyFixedPerParticipant:
	default:
		return nil, fmt.Errorf("%w: %w", ErrInvalidOptions, allocator.ErrUnknownPolicy)
	}

	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}

	participants := make([]allocator.Participant, len(opts.Participants))
	copy(participants, opts.Participants)

	s := &Session{
		id:           uuid.NewString(),
		baseCapacity: opts.BaseCapacity,
		participants: participants,
		chunk:        max(0, opts.Chunk),
		logger:       logger,
		recorder:     recorder,
	}
	s.reset(opts.Policy)

	s.logger.Debug("Session created",
		"session_id", s.id,
		"policy", s.policy.String(),
		"participants", len(participants),
		"base_capacity", s.baseCapacity,
	)
	return s, nil
}

// reset clears every per-row field and both pools. Partial edits never
// survive a policy change or a submit.
func (s *Session) reset(policy allocator.Policy) {
	n := len(s.participants)
	s.policy = policy
	s.pending = make([]int, n)
	s.actions = make([]allocator.Action, n)
	s.weights = make([]allocator.Weight, n)
	s.requestedPool = 0
	s.appliedPool = 0
	if policy == allocator.PolicyProportionalEven {
		// All rows are unlocked, so this cannot overflow
		s.weights, _ = allocator.NormalizeWeights(s.actions, s.weights)
	}
}

// SelectPolicy switches policy and starts from a fresh state.
func (s *Session) SelectPolicy(policy allocator.Policy) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch policy {
	case allocator.PolicyUnconstrained, allocator.PolicyProportionalEven, allocator.PolicyFixedPerParticipant:
	default:
		return allocator.ErrUnknownPolicy
	}
	s.reset(policy)
	s.recorder.RecordEdit(policy.String(), "policy")
	s.logger.Info("Policy selected", "session_id", s.id, "policy", policy.String())
	return nil
}

// SetChange parses a raw field value and applies it as row i's pending
// change. Malformed input counts as zero.
func (s *Session) SetChange(i int, raw string) (int, error) {
	return s.SetChangeValue(i, allocator.ParseQuantity(raw))
}

// SetChangeValue applies a pending change to row i under the unconstrained
// policy, clamped so the pool and the participant's load are respected. It
// returns the value actually stored.
func (s *Session) SetChangeValue(i, value int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkRow(i); err != nil {
		return 0, err
	}
	if s.policy != allocator.PolicyUnconstrained {
		return 0, fmt.Errorf("%w: manual change under %s", ErrPolicyMismatch, s.policy)
	}
	return s.applyChange(i, value), nil
}

// FillRemaining raises row i's pending change by its full headroom.
func (s *Session) FillRemaining(i int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkRow(i); err != nil {
		return 0, err
	}
	if s.policy != allocator.PolicyUnconstrained {
		return 0, fmt.Errorf("%w: fill under %s", ErrPolicyMismatch, s.policy)
	}
	totals := allocator.ComputeTotals(s.pending, s.actions)
	pool := allocator.PoolForAddition(s.policy, s.baseCapacity, s.appliedPool, totals)
	headroom := allocator.Headroom(s.actions[i], s.pending[i], totals, pool, s.participants[i].CurrentLoad)
	return s.applyChange(i, s.pending[i]+headroom), nil
}

func (s *Session) applyChange(i, value int) int {
	action := s.actions[i]
	if action == allocator.ActionExclude {
		s.pending[i] = 0
		return 0
	}

	old := s.pending[i]
	totals := allocator.ComputeTotals(s.pending, s.actions)

	candidate := make([]int, len(s.pending))
	copy(candidate, s.pending)
	candidate[i] = max(0, value)
	newTotals := allocator.ComputeTotals(candidate, s.actions)

	pool := allocator.PoolForAddition(s.policy, s.baseCapacity, s.appliedPool, newTotals)
	stored := allocator.ClampUnconstrained(action, max(0, value), old, totals, newTotals, pool, s.participants[i].CurrentLoad)
	s.pending[i] = stored

	if stored != value {
		s.recorder.RecordRejection(s.policy.String(), "clamped")
	}
	s.recorder.RecordEdit(s.policy.String(), "change")
	s.logger.Debug("Pending change applied",
		"session_id", s.id,
		"index", i,
		"action", action.String(),
		"requested", value,
		"stored", stored,
	)
	return stored
}

// SetAction changes row i's action. Under the unconstrained policy the switch
// is refused while the row's value lies outside the window for the opposite
// action; a subtracting row is held to that window even when switching to
// exclude. Under the distributed policies the row restarts from zero and
// unlocked, and the allocation is recomputed.
func (s *Session) SetAction(i int, action allocator.Action) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkRow(i); err != nil {
		return err
	}
	if !s.policy.Allows(action) {
		return fmt.Errorf("%w: %s under %s", ErrPolicyMismatch, action, s.policy)
	}
	if action == s.actions[i] {
		return nil
	}

	if s.policy == allocator.PolicyUnconstrained {
		totals := allocator.ComputeTotals(s.pending, s.actions)
		// Dropping an addition is always safe; dropping a subtraction takes
		// back the capacity it freed and must pass the same window check
		dropsAddition := s.actions[i] == allocator.ActionAdd && action == allocator.ActionExclude
		if s.actions[i] != allocator.ActionExclude && !dropsAddition &&
			allocator.ActionLocked(s.policy, s.actions[i], s.pending[i], totals, s.baseCapacity, s.participants[i].CurrentLoad) {
			s.recorder.RecordRejection(s.policy.String(), "action_locked")
			return ErrActionLocked
		}
		s.actions[i] = action
		if action == allocator.ActionExclude {
			s.pending[i] = 0
		}
	} else {
		s.actions[i] = action
		s.pending[i] = 0
		s.weights[i] = allocator.Weight{}
		if err := s.recompute(); err != nil {
			return err
		}
	}

	s.recorder.RecordEdit(s.policy.String(), "action")
	s.logger.Debug("Action changed", "session_id", s.id, "index", i, "action", action.String())
	return nil
}

// SetPercent parses a raw percentage and locks it on row i.
func (s *Session) SetPercent(i int, raw string) (int, error) {
	return s.SetPercentValue(i, allocator.ParsePercent(raw))
}

// SetPercentValue locks row i at the given percentage, clamped so the locked
// total of active rows never exceeds 100, then renormalizes and reallocates.
// Excluded rows are left untouched. It returns the stored percentage.
func (s *Session) SetPercentValue(i, percent int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkRow(i); err != nil {
		return 0, err
	}
	if s.policy != allocator.PolicyProportionalEven {
		return 0, fmt.Errorf("%w: percent under %s", ErrPolicyMismatch, s.policy)
	}
	if s.actions[i] == allocator.ActionExclude {
		return 0, nil
	}

	clamped := allocator.ClampLockedPercent(s.actions, s.weights, i, percent)
	if clamped != percent {
		s.recorder.RecordRejection(s.policy.String(), "weight_overflow")
		s.logger.Warn("Locked percent clamped",
			"session_id", s.id,
			"index", i,
			"requested", percent,
			"stored", clamped,
		)
	}
	s.weights[i] = allocator.Weight{Percent: clamped, Locked: true}
	if err := s.recompute(); err != nil {
		return 0, err
	}
	s.recorder.RecordEdit(s.policy.String(), "percent")
	return clamped, nil
}

// SetLocked toggles the lock on row i. Locking keeps the row's current
// implicit percentage as its explicit share; unlocking drops it back into
// the implicit pool.
func (s *Session) SetLocked(i int, locked bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkRow(i); err != nil {
		return err
	}
	if s.policy != allocator.PolicyProportionalEven {
		return fmt.Errorf("%w: lock under %s", ErrPolicyMismatch, s.policy)
	}
	if s.actions[i] == allocator.ActionExclude || s.weights[i].Locked == locked {
		return nil
	}

	if locked {
		p := allocator.ClampLockedPercent(s.actions, s.weights, i, s.weights[i].Percent)
		s.weights[i] = allocator.Weight{Percent: p, Locked: true}
	} else {
		s.weights[i] = allocator.Weight{}
	}
	if err := s.recompute(); err != nil {
		return err
	}
	s.recorder.RecordEdit(s.policy.String(), "lock")
	s.logger.Debug("Lock toggled", "session_id", s.id, "index", i, "locked", locked)
	return nil
}

// SetRequestedPool records the raw pool input clamped to [0, base capacity].
// It takes effect on ApplyPool.
func (s *Session) SetRequestedPool(pool int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requestedPool = max(0, min(pool, s.baseCapacity))
	return s.requestedPool
}

// ApplyPool confirms the requested pool and reallocates against it.
func (s *Session) ApplyPool() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.appliedPool = s.requestedPool
	if err := s.recompute(); err != nil {
		return 0, err
	}
	s.recorder.RecordEdit(s.policy.String(), "apply_pool")
	s.recorder.RecordAllocation(s.policy.String(), s.appliedPool)
	s.logger.Debug("Pool applied", "session_id", s.id, "pool", s.appliedPool)
	return s.appliedPool, nil
}

// PoolDirty reports whether the requested pool differs from the applied one.
func (s *Session) PoolDirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requestedPool != s.appliedPool
}

// SetChunk sets the per-participant quantity for the fixed policy and
// reallocates. Negative values are treated as zero.
func (s *Session) SetChunk(chunk int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.policy != allocator.PolicyFixedPerParticipant {
		return 0, fmt.Errorf("%w: chunk under %s", ErrPolicyMismatch, s.policy)
	}
	s.chunk = max(0, chunk)
	if err := s.recompute(); err != nil {
		return 0, err
	}
	s.recorder.RecordEdit(s.policy.String(), "chunk")
	return s.chunk, nil
}

// recompute reruns the active policy's allocator over the current state.
// The caller must hold mu.
func (s *Session) recompute() error {
	switch s.policy {
	case allocator.PolicyProportionalEven:
		weights, err := allocator.NormalizeWeights(s.actions, s.weights)
		if err != nil {
			s.recorder.RecordRejection(s.policy.String(), "weight_overflow")
			return fmt.Errorf("normalize weights: %w", err)
		}
		s.weights = weights
		alloc, err := allocator.AllocateProportional(s.actions, s.weights, s.appliedPool)
		if err != nil {
			return fmt.Errorf("allocate proportional: %w", err)
		}
		s.pending = alloc
	case allocator.PolicyFixedPerParticipant:
		s.pending = allocator.AllocateFixedChunk(s.actions, s.appliedPool, s.chunk)
	}
	return nil
}

// Submit runs a final allocation pass, folds pending changes into each
// participant's load, recomputes the base capacity and resets the session.
func (s *Session) Submit() (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.recompute(); err != nil {
		return nil, fmt.Errorf("final allocation pass: %w", err)
	}

	totals := allocator.ComputeTotals(s.pending, s.actions)
	pool := allocator.PoolForAddition(s.policy, s.baseCapacity, s.appliedPool, totals)
	if totals.Added > pool {
		s.recorder.RecordRejection(s.policy.String(), "pool_exceeded")
		return nil, fmt.Errorf("%w: %d added, %d available", ErrPoolExceeded, totals.Added, pool)
	}

	var changes []Change
	for i, p := range s.participants {
		if s.pending[i] == 0 || s.actions[i] == allocator.ActionExclude {
			continue
		}
		changes = append(changes, Change{ParticipantID: p.ID, Action: s.actions[i], Units: s.pending[i]})
	}

	updated := allocator.Commit(s.participants, s.pending, s.actions)
	capacity := allocator.EffectivePool(s.baseCapacity, totals)

	result := &Result{
		Policy:       s.policy,
		Totals:       totals,
		Changes:      changes,
		Participants: make([]allocator.Participant, len(updated)),
		BaseCapacity: capacity,
	}
	copy(result.Participants, updated)

	s.recorder.RecordSubmit(s.policy.String())
	s.logger.Info("Allocation submitted",
		"session_id", s.id,
		"policy", s.policy.String(),
		"added", totals.Added,
		"subtracted", totals.Subtracted,
		"base_capacity", capacity,
	)

	s.participants = updated
	s.baseCapacity = capacity
	s.reset(s.policy)
	return result, nil
}

// State returns a copy of the current session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	totals := allocator.ComputeTotals(s.pending, s.actions)
	pool := allocator.PoolForAddition(s.policy, s.baseCapacity, s.appliedPool, totals)

	rows := make([]Row, len(s.participants))
	for i, p := range s.participants {
		rows[i] = Row{
			Participant:  p,
			Action:       s.actions[i],
			Pending:      s.pending[i],
			Weight:       s.weights[i],
			Headroom:     allocator.Headroom(s.actions[i], s.pending[i], totals, pool, p.CurrentLoad),
			PendingTotal: allocator.PendingTotal(p.CurrentLoad, s.pending[i], s.actions[i]),
			ActionLocked: allocator.ActionLocked(s.policy, s.actions[i], s.pending[i], totals, s.baseCapacity, p.CurrentLoad),
		}
	}

	return State{
		ID:              s.id,
		Policy:          s.policy,
		BaseCapacity:    s.baseCapacity,
		RequestedPool:   s.requestedPool,
		AppliedPool:     s.appliedPool,
		Chunk:           s.chunk,
		Totals:          totals,
		EffectivePool:   allocator.EffectivePool(s.baseCapacity, totals),
		PoolForAddition: pool,
		LockedTotal:     allocator.LockedTotal(s.actions, s.weights),
		Rows:            rows,
	}
}

func (s *Session) checkRow(i int) error {
	if i < 0 || i >= len(s.participants) {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, i)
	}
	return nil
}
