package allocator

// Totals aggregates pending changes by action.
type Totals struct {
	Added      int
	Subtracted int
}

// ComputeTotals sums pending changes into added and subtracted aggregates.
// Excluded rows and positions without an action are ignored.
func ComputeTotals(pending []int, actions []Action) Totals {
	var t Totals
	for i, v := range pending {
		if i >= len(actions) {
			break
		}
		switch actions[i] {
		case ActionAdd:
			t.Added += v
		case ActionSubtract:
			t.Subtracted += v
		}
	}
	return t
}

// EffectivePool is the capacity left once pending changes are folded in.
func EffectivePool(baseCapacity int, t Totals) int {
	return max(0, baseCapacity+t.Subtracted-t.Added)
}

// Commit folds pending changes into each participant's current load.
// Add increases the load, Subtract decreases it floored at zero, and Exclude
// leaves it unchanged. The input slice is not modified.
func Commit(participants []Participant, pending []int, actions []Action) []Participant {
	out := make([]Participant, len(participants))
	copy(out, participants)
	for i := range out {
		if i >= len(pending) || i >= len(actions) {
			continue
		}
		delta := max(0, pending[i])
		switch actions[i] {
		case ActionAdd:
			out[i].CurrentLoad += delta
		case ActionSubtract:
			out[i].CurrentLoad = max(0, out[i].CurrentLoad-delta)
		}
	}
	return out
}

// PendingTotal is the load a participant would have after commit.
func PendingTotal(currentLoad, pending int, action Action) int {
	switch action {
	case ActionAdd:
		return currentLoad + pending
	case ActionSubtract:
		return max(0, currentLoad-pending)
	default:
		return currentLoad
	}
}
