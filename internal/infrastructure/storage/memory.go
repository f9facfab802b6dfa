package storage

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/eshaffer321/taskalloc/internal/domain/allocator"
)

// ItemGenerator mints a new work item
type ItemGenerator func() WorkItem

var (
	sampleNames       = []string{"John", "Mary", "Alex", "Sara", "Tom", "Lily"}
	sampleScreenTypes = []string{"Good Report", "Bad Report", "Meritorious", "HR Tracking"}
)

// RandomItems returns a generator producing work items with random customer
// names and screen types, stamped with now()
func RandomItems(rng *rand.Rand, now func() time.Time) ItemGenerator {
	var mu sync.Mutex
	return func() WorkItem {
		mu.Lock()
		name := sampleNames[rng.Intn(len(sampleNames))]
		screen := sampleScreenTypes[rng.Intn(len(sampleScreenTypes))]
		mu.Unlock()
		return WorkItem{
			ID:                uuid.NewString(),
			CustomerFirstName: name,
			GeneratedAt:       now().UTC(),
			ScreenType:        screen,
		}
	}
}

// Seed builds a snapshot whose participants hold as many items as their
// current load and whose unassigned pool holds assignable items
func Seed(assignable int, participants []allocator.Participant, gen ItemGenerator) *Snapshot {
	snap := &Snapshot{
		AssignableTasks: assignable,
		Participants:    make([]ParticipantRecord, len(participants)),
	}
	for i, p := range participants {
		rec := ParticipantRecord{ID: p.ID, Name: p.Name}
		for n := 0; n < p.CurrentLoad; n++ {
			rec.Tasks = append(rec.Tasks, gen())
		}
		snap.Participants[i] = rec
	}
	for n := 0; n < assignable; n++ {
		snap.Unassigned = append(snap.Unassigned, gen())
	}
	return snap
}

// MemoryRepository is an in-memory implementation of Repository.
// It is the stand-in for the external participant store.
type MemoryRepository struct {
	mu      sync.RWMutex
	state   *Snapshot
	newItem ItemGenerator

	// Hooks for test assertions
	FetchCalled       bool
	UpdateCalled      bool
	ApplyCommitCalled bool

	// Error injection for testing error paths
	FetchErr       error
	UpdateErr      error
	ApplyCommitErr error
}

// NewMemoryRepository creates a repository holding a copy of seed. gen mints
// items when an addition needs more than the unassigned pool holds.
func NewMemoryRepository(seed *Snapshot, gen ItemGenerator) *MemoryRepository {
	if seed == nil {
		seed = &Snapshot{}
	}
	if gen == nil {
		gen = RandomItems(rand.New(rand.NewSource(time.Now().UnixNano())), time.Now)
	}
	return &MemoryRepository{state: seed.Clone(), newItem: gen}
}

// Compile-time check that MemoryRepository implements Repository
var _ Repository = (*MemoryRepository)(nil)

// Fetch returns a copy of the current state
func (m *MemoryRepository) Fetch(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.FetchCalled = true
	if m.FetchErr != nil {
		return nil, m.FetchErr
	}
	return m.state.Clone(), nil
}

// Update replaces the current state with a copy of snapshot
func (m *MemoryRepository) Update(ctx context.Context, snapshot *Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.UpdateCalled = true
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	m.state = snapshot.Clone()
	return nil
}

// ApplyCommit moves work items per change. Subtractions return the
// participant's most recent items to the pool; additions then draw from the
// front of the pool and mint new items for any shortfall. The state is left
// untouched if any change names an unknown participant. Negative unit counts
// move nothing.
func (m *MemoryRepository) ApplyCommit(ctx context.Context, commit Commit) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ApplyCommitCalled = true
	if m.ApplyCommitErr != nil {
		return nil, m.ApplyCommitErr
	}

	next := m.state.Clone()
	index := make(map[int]int, len(next.Participants))
	for i, p := range next.Participants {
		index[p.ID] = i
	}

	for _, ch := range commit.Changes {
		if _, ok := index[ch.ParticipantID]; !ok {
			return nil, fmt.Errorf("%w: %d", ErrParticipantNotFound, ch.ParticipantID)
		}
	}

	// Subtractions run before additions
	for _, ch := range commit.Changes {
		if ch.Action != allocator.ActionSubtract {
			continue
		}
		rec := &next.Participants[index[ch.ParticipantID]]
		give := min(max(0, ch.Units), len(rec.Tasks))
		cut := len(rec.Tasks) - give
		next.Unassigned = append(next.Unassigned, rec.Tasks[cut:]...)
		rec.Tasks = rec.Tasks[:cut]
	}

	for _, ch := range commit.Changes {
		if ch.Action != allocator.ActionAdd {
			continue
		}
		rec := &next.Participants[index[ch.ParticipantID]]
		units := max(0, ch.Units)
		take := min(units, len(next.Unassigned))
		rec.Tasks = append(rec.Tasks, next.Unassigned[:take]...)
		next.Unassigned = next.Unassigned[take:]
		for n := take; n < units; n++ {
			rec.Tasks = append(rec.Tasks, m.newItem())
		}
	}

	next.AssignableTasks = commit.AssignableTasks
	m.state = next
	return next.Clone(), nil
}
