package allocator

import "sort"

// AllocateProportional converts percentage shares into an integer allocation
// vector for active participants. The vector sums to exactly pool whenever an
// eligible participant exists, and to zero otherwise.
//
// Weights are normalized first, so unlocked rows may carry stale percents.
// Two regimes apply depending on the locked total:
//
//	below 100   locked rows get floor(share) with a minimum of one unit and a
//	            ceiling of ceil(share); unlocked rows are reserved one unit each
//	            when the pool can cover them and share whatever is left
//	            otherwise; the remainder is dealt one unit at a time in order
//	at 100      only locked rows participate, using largest-remainder
//	            apportionment with ties going to the earlier row
//
// ErrWeightOverflow is returned if the locked total exceeds 100.
func AllocateProportional(actions []Action, weights []Weight, pool int) ([]int, error) {
	norm, err := NormalizeWeights(actions, weights)
	if err != nil {
		return nil, err
	}

	alloc := make([]int, len(actions))
	if pool <= 0 {
		return alloc, nil
	}

	var explicit, implicit []int
	explicitTotal := 0
	for i, w := range norm {
		if !isActive(actions[i]) {
			continue
		}
		switch {
		case w.Locked && w.Percent > 0:
			explicit = append(explicit, i)
			explicitTotal += w.Percent
		case !w.Locked:
			implicit = append(implicit, i)
		}
	}

	if explicitTotal >= 100 {
		apportionLargestRemainder(alloc, explicit, norm, pool)
		return alloc, nil
	}
	apportionWithMinimums(alloc, explicit, implicit, norm, pool)
	return alloc, nil
}

func floorShare(percent, pool int) int {
	return percent * pool / 100
}

func ceilShare(percent, pool int) int {
	return (percent*pool + 99) / 100
}

// apportionLargestRemainder floors every share and hands the leftover units to
// the rows with the largest fractional parts.
func apportionLargestRemainder(alloc, rows []int, weights []Weight, pool int) {
	if len(rows) == 0 {
		return
	}

	type fraction struct {
		row int
		rem int
	}
	fractions := make([]fraction, 0, len(rows))
	assigned := 0
	for _, i := range rows {
		p := weights[i].Percent
		alloc[i] = floorShare(p, pool)
		assigned += alloc[i]
		fractions = append(fractions, fraction{row: i, rem: p * pool % 100})
	}

	sort.SliceStable(fractions, func(a, b int) bool {
		return fractions[a].rem > fractions[b].rem
	})
	for k := 0; assigned < pool; k++ {
		alloc[fractions[k%len(fractions)].row]++
		assigned++
	}
}

func apportionWithMinimums(alloc, explicit, implicit []int, weights []Weight, pool int) {
	caps := make([]int, len(alloc))
	reserveImplicit := pool >= len(implicit)

	for _, i := range explicit {
		p := weights[i].Percent
		alloc[i] = max(1, floorShare(p, pool))
		caps[i] = ceilShare(p, pool)
	}
	if reserveImplicit {
		for _, i := range implicit {
			p := weights[i].Percent
			alloc[i] = max(1, floorShare(p, pool))
			caps[i] = max(1, ceilShare(p, pool))
		}
	}

	trimExcess(alloc, explicit, implicit, sum(alloc)-pool)
	leftover := pool - sum(alloc)

	if !reserveImplicit {
		spreadEvenly(alloc, implicit, leftover)
		return
	}

	leftover = dealInOrder(alloc, mergeRows(explicit, implicit), caps, leftover)
	if leftover > 0 {
		// Caps are exhausted only when no unlocked row exists to absorb the
		// remainder of a locked total below 100.
		target := implicit
		if len(target) == 0 {
			target = explicit
		}
		dealInOrder(alloc, target, nil, leftover)
	}
}

// trimExcess takes back units once minimum bumps overshoot the pool. Units
// above one go first, largest allocation first; after that locked rows lose
// their minimum before unlocked rows do, later rows first.
func trimExcess(alloc, explicit, implicit []int, excess int) {
	rows := mergeRows(explicit, implicit)
	for excess > 0 {
		best := -1
		for _, i := range rows {
			if alloc[i] > 1 && (best < 0 || alloc[i] >= alloc[best]) {
				best = i
			}
		}
		if best < 0 {
			break
		}
		alloc[best]--
		excess--
	}
	for _, group := range [][]int{explicit, implicit} {
		for k := len(group) - 1; k >= 0 && excess > 0; k-- {
			if alloc[group[k]] > 0 {
				alloc[group[k]]--
				excess--
			}
		}
	}
}

// spreadEvenly gives each row floor(units/len(rows)), the first rows taking
// one extra unit each until the remainder is gone.
func spreadEvenly(alloc, rows []int, units int) {
	if len(rows) == 0 || units <= 0 {
		return
	}
	base := units / len(rows)
	extra := units % len(rows)
	for n, i := range rows {
		alloc[i] += base
		if n < extra {
			alloc[i]++
		}
	}
}

// dealInOrder hands out units one at a time in row order, skipping rows that
// have reached their cap. A nil caps slice means uncapped. It returns the
// units that could not be placed.
func dealInOrder(alloc, rows, caps []int, units int) int {
	for units > 0 {
		placed := false
		for _, i := range rows {
			if units == 0 {
				break
			}
			if caps != nil && alloc[i] >= caps[i] {
				continue
			}
			alloc[i]++
			units--
			placed = true
		}
		if !placed {
			break
		}
	}
	return units
}

// mergeRows merges two ascending index lists.
func mergeRows(a, b []int) []int {
	out := make([]int, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if a[i] < b[j] {
			out = append(out, a[i])
			i++
		} else {
			out = append(out, b[j])
			j++
		}
	}
	out = append(out, a[i:]...)
	return append(out, b[j:]...)
}

func sum(values []int) int {
	total := 0
	for _, v := range values {
		total += v
	}
	return total
}
