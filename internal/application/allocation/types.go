package allocation

import (
	"errors"

	"github.com/eshaffer321/taskalloc/internal/domain/allocator"
)

var (
	// ErrIndexOutOfRange is returned when an edit names a row that does not exist.
	ErrIndexOutOfRange = errors.New("participant index out of range")

	// ErrPolicyMismatch is returned when an edit does not apply to the active policy.
	ErrPolicyMismatch = errors.New("edit not supported by active policy")

	// ErrActionLocked is returned when a row's action selector is disabled.
	ErrActionLocked = errors.New("action cannot be switched for this row")

	// ErrPoolExceeded is returned on submit if additions exceed the pool.
	ErrPoolExceeded = errors.New("pending additions exceed the pool")

	// ErrInvalidOptions is returned when a session cannot be built from its options.
	ErrInvalidOptions = errors.New("invalid session options")
)

// Options configures a new Session.
type Options struct {
	BaseCapacity int
	Participants []allocator.Participant
	Policy       allocator.Policy
	Chunk        int
}

// Row is a read-only view of one participant's pending state.
type Row struct {
	Participant  allocator.Participant
	Action       allocator.Action
	Pending      int
	Weight       allocator.Weight
	Headroom     int
	PendingTotal int
	ActionLocked bool
}

// State is a point-in-time copy of the session.
type State struct {
	ID              string
	Policy          allocator.Policy
	BaseCapacity    int
	RequestedPool   int
	AppliedPool     int
	Chunk           int
	Totals          allocator.Totals
	EffectivePool   int
	PoolForAddition int
	LockedTotal     int
	Rows            []Row
}

// Allocation returns the pending change vector.
func (s State) Allocation() []int {
	out := make([]int, len(s.Rows))
	for i, r := range s.Rows {
		out[i] = r.Pending
	}
	return out
}

// Change is the committed delta for one participant.
type Change struct {
	ParticipantID int
	Action        allocator.Action
	Units         int
}

// Result describes a submitted allocation.
type Result struct {
	Policy       allocator.Policy
	Totals       allocator.Totals
	Changes      []Change
	Participants []allocator.Participant
	BaseCapacity int
}

// Recorder receives engine events. Implementations must be safe for
// concurrent use.
type Recorder interface {
	RecordEdit(policy, kind string)
	RecordRejection(policy, reason string)
	RecordAllocation(policy string, units int)
	RecordSubmit(policy string)
}

type nopRecorder struct{}

func (nopRecorder) RecordEdit(string, string)      {}
func (nopRecorder) RecordRejection(string, string) {}
func (nopRecorder) RecordAllocation(string, int)   {}
func (nopRecorder) RecordSubmit(string)            {}
