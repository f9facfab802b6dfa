package storage

import (
	"time"

	"github.com/eshaffer321/taskalloc/internal/domain/allocator"
)

// WorkItem is a single unit of work held by a participant or waiting in the
// unassigned pool
type WorkItem struct {
	ID                string    `json:"id"`
	CustomerFirstName string    `json:"customer_first_name"`
	GeneratedAt       time.Time `json:"generated_at"`
	ScreenType        string    `json:"screen_type"`
}

// ParticipantRecord is a participant together with the work items it holds
type ParticipantRecord struct {
	ID    int        `json:"id"`
	Name  string     `json:"name"`
	Tasks []WorkItem `json:"tasks"`
}

// Load is the participant's current unit count
func (p ParticipantRecord) Load() int {
	return len(p.Tasks)
}

// Snapshot is the full store state handed to the engine
type Snapshot struct {
	AssignableTasks int                 `json:"assignable_tasks"`
	Participants    []ParticipantRecord `json:"participants"`
	Unassigned      []WorkItem          `json:"unassigned"`
}

// EngineParticipants converts the snapshot into the engine's participant view
func (s *Snapshot) EngineParticipants() []allocator.Participant {
	out := make([]allocator.Participant, len(s.Participants))
	for i, p := range s.Participants {
		out[i] = allocator.Participant{ID: p.ID, Name: p.Name, CurrentLoad: p.Load()}
	}
	return out
}

// Clone returns a deep copy so callers never share slices with the store
func (s *Snapshot) Clone() *Snapshot {
	c := &Snapshot{
		AssignableTasks: s.AssignableTasks,
		Participants:    make([]ParticipantRecord, len(s.Participants)),
		Unassigned:      append([]WorkItem(nil), s.Unassigned...),
	}
	for i, p := range s.Participants {
		c.Participants[i] = ParticipantRecord{
			ID:    p.ID,
			Name:  p.Name,
			Tasks: append([]WorkItem(nil), p.Tasks...),
		}
	}
	return c
}

// Change is one committed per-participant delta
type Change struct {
	ParticipantID int
	Action        allocator.Action
	Units         int
}

// Commit is the outcome of a submitted allocation
type Commit struct {
	Changes         []Change
	AssignableTasks int
}
