package allocator

// PoolForAddition is the ceiling on the added total. In the unconstrained
// policy units freed by subtractions become available for addition; the
// distributed policies are bounded by the applied pool alone.
func PoolForAddition(policy Policy, baseCapacity, appliedPool int, t Totals) int {
	if policy == PolicyUnconstrained {
		return baseCapacity + t.Subtracted
	}
	return appliedPool
}

// ClampUnconstrained clamps a single-participant edit so the added total never
// exceeds poolForAddition and a subtraction never exceeds the participant's
// own load. totals reflects the state before the edit and newTotals the state
// with newVal substituted.
//
// A subtraction is refused outright (oldVal is returned) while the added side
// is already oversubscribed.
func ClampUnconstrained(action Action, newVal, oldVal int, totals, newTotals Totals, poolForAddition, currentLoad int) int {
	newVal = max(0, newVal)
	switch action {
	case ActionAdd:
		if newTotals.Added > poolForAddition {
			return max(0, newVal-(newTotals.Added-poolForAddition))
		}
		return newVal
	case ActionSubtract:
		if poolForAddition < totals.Added {
			return oldVal
		}
		v := min(newVal, max(0, currentLoad))
		floor := max(0, totals.Added-poolForAddition)
		return max(v, floor)
	default:
		return 0
	}
}

// SwitchWindow returns the legal [lo, hi] range a row's current value must lie
// in for the row to switch to the opposite action.
func SwitchWindow(action Action, current int, t Totals, baseCapacity, currentLoad int) (lo, hi int) {
	switch action {
	case ActionAdd:
		return max(0, t.Added-current-baseCapacity-t.Subtracted), currentLoad
	case ActionSubtract:
		return 0, baseCapacity + t.Subtracted - current - t.Added
	default:
		return 0, 0
	}
}

// ActionLocked reports whether a row's action selector must be disabled
// because its value falls outside the window for the opposite action. Only the
// unconstrained policy restricts switching.
func ActionLocked(policy Policy, action Action, current int, t Totals, baseCapacity, currentLoad int) bool {
	if policy != PolicyUnconstrained {
		return false
	}
	lo, hi := SwitchWindow(action, current, t, baseCapacity, currentLoad)
	return current < lo || current > hi
}

// Headroom is how many more units a row could take before hitting its bound:
// the unclaimed pool for additions, or the rest of the participant's load for
// subtractions.
func Headroom(action Action, current int, t Totals, poolForAddition, currentLoad int) int {
	switch action {
	case ActionAdd:
		addMax := max(0, poolForAddition-(t.Added-current))
		return max(0, addMax-current)
	case ActionSubtract:
		return max(0, currentLoad-current)
	default:
		return 0
	}
}
