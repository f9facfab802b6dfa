package allocator

// LockedTotal sums the locked percentages of active participants.
func LockedTotal(actions []Action, weights []Weight) int {
	total := 0
	for i, w := range weights {
		if i < len(actions) && isActive(actions[i]) && w.Locked {
			total += max(0, w.Percent)
		}
	}
	return total
}

// ClampLockedPercent bounds a candidate locked percentage for row idx to
// [0, 100 - sum of the other active locked percentages]. Excluded rows always
// clamp to zero. Use it before storing an edit so the locked total can never
// exceed 100.
func ClampLockedPercent(actions []Action, weights []Weight, idx, candidate int) int {
	if idx < 0 || idx >= len(actions) || !isActive(actions[idx]) {
		return 0
	}
	others := 0
	for i, w := range weights {
		if i == idx || i >= len(actions) || !isActive(actions[i]) || !w.Locked {
			continue
		}
		others += max(0, w.Percent)
	}
	available := max(0, 100-others)
	return max(0, min(available, candidate))
}

// NormalizeWeights returns a copy of weights in which unlocked active rows
// share whatever the locked rows leave of 100 as evenly as integers allow.
// The first rows (by position) absorb the remainder one point each. Excluded
// rows are forced to an unlocked zero. When every active row is locked the
// locked values stand as-is.
//
// ErrWeightOverflow is returned if the active locked percentages exceed 100.
func NormalizeWeights(actions []Action, weights []Weight) ([]Weight, error) {
	if len(actions) != len(weights) {
		return nil, ErrLengthMismatch
	}

	out := make([]Weight, len(weights))
	var unlocked []int
	locked := 0
	for i, w := range weights {
		switch {
		case !isActive(actions[i]):
			out[i] = Weight{}
		case w.Locked:
			out[i] = Weight{Percent: max(0, w.Percent), Locked: true}
			locked += out[i].Percent
		default:
			unlocked = append(unlocked, i)
		}
	}

	remaining := 100 - locked
	if remaining < 0 {
		return nil, ErrWeightOverflow
	}
	if len(unlocked) == 0 {
		return out, nil
	}

	base := remaining / len(unlocked)
	extra := remaining % len(unlocked)
	for n, i := range unlocked {
		p := base
		if n < extra {
			p++
		}
		out[i] = Weight{Percent: p}
	}
	return out, nil
}
