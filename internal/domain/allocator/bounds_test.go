package allocator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClampUnconstrained_AddWithinPool(t *testing.T) {
	got := ClampUnconstrained(ActionAdd, 3, 0, Totals{Added: 1}, Totals{Added: 4}, 5, 0)
	assert.Equal(t, 3, got)
}

func TestClampUnconstrained_AddOverPoolIsClamped(t *testing.T) {
	// Capacity 5, first row already holds 5, second row asks for 3 more
	totals := ComputeTotals([]int{5, 0}, []Action{ActionAdd, ActionAdd})
	newTotals := ComputeTotals([]int{5, 3}, []Action{ActionAdd, ActionAdd})
	pool := PoolForAddition(PolicyUnconstrained, 5, 0, newTotals)

	got := ClampUnconstrained(ActionAdd, 3, 0, totals, newTotals, pool, 0)

	assert.Equal(t, 0, got)
	assert.LessOrEqual(t, ComputeTotals([]int{5, got}, []Action{ActionAdd, ActionAdd}).Added, 5)
}

func TestClampUnconstrained_AddPartiallyClamped(t *testing.T) {
	// Capacity 5, row 0 holds 2, row 1 asks for 6: only 3 fit
	got := ClampUnconstrained(ActionAdd, 6, 0, Totals{Added: 2}, Totals{Added: 8}, 5, 0)
	assert.Equal(t, 3, got)
}

func TestClampUnconstrained_SubtractCappedAtLoad(t *testing.T) {
	got := ClampUnconstrained(ActionSubtract, 10, 0, Totals{}, Totals{Subtracted: 10}, 15, 4)
	assert.Equal(t, 4, got)
}

func TestClampUnconstrained_SubtractRejectedWhenOversubscribed(t *testing.T) {
	// The added side already exceeds the pool, so the edit is refused
	got := ClampUnconstrained(ActionSubtract, 3, 1, Totals{Added: 6, Subtracted: 1}, Totals{Added: 6, Subtracted: 3}, 4, 5)
	assert.Equal(t, 1, got)
}

func TestClampUnconstrained_NegativeAndExclude(t *testing.T) {
	assert.Equal(t, 0, ClampUnconstrained(ActionAdd, -4, 0, Totals{}, Totals{}, 5, 0))
	assert.Equal(t, 0, ClampUnconstrained(ActionExclude, 4, 2, Totals{}, Totals{}, 5, 9))
}

func TestActionLocked(t *testing.T) {
	tests := []struct {
		name    string
		action  Action
		current int
		totals  Totals
		base    int
		load    int
		want    bool
	}{
		{"add row within load can switch", ActionAdd, 2, Totals{Added: 2}, 5, 2, false},
		{"add row above load cannot become a subtraction", ActionAdd, 3, Totals{Added: 3}, 5, 2, true},
		{"subtract row that fits the pool can switch", ActionSubtract, 2, Totals{Added: 1, Subtracted: 2}, 5, 4, false},
		{"subtract row too large for the pool is locked", ActionSubtract, 4, Totals{Added: 3, Subtracted: 4}, 5, 4, true},
		{"zero rows always switch", ActionAdd, 0, Totals{}, 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ActionLocked(PolicyUnconstrained, tt.action, tt.current, tt.totals, tt.base, tt.load)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestActionLocked_OnlyUnconstrained(t *testing.T) {
	assert.False(t, ActionLocked(PolicyProportionalEven, ActionAdd, 30, Totals{Added: 30}, 5, 0))
	assert.False(t, ActionLocked(PolicyFixedPerParticipant, ActionAdd, 30, Totals{Added: 30}, 5, 0))
}

func TestHeadroom(t *testing.T) {
	assert.Equal(t, 2, Headroom(ActionAdd, 2, Totals{Added: 3}, 5, 0))
	assert.Equal(t, 0, Headroom(ActionAdd, 2, Totals{Added: 9}, 5, 0))
	assert.Equal(t, 3, Headroom(ActionSubtract, 1, Totals{Subtracted: 1}, 5, 4))
	assert.Equal(t, 0, Headroom(ActionExclude, 0, Totals{}, 5, 4))
}

func TestPoolForAddition(t *testing.T) {
	totals := Totals{Added: 2, Subtracted: 3}
	assert.Equal(t, 23, PoolForAddition(PolicyUnconstrained, 20, 7, totals))
	assert.Equal(t, 7, PoolForAddition(PolicyProportionalEven, 20, 7, totals))
	assert.Equal(t, 7, PoolForAddition(PolicyFixedPerParticipant, 20, 7, totals))
}
