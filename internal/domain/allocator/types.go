// Package allocator distributes a finite pool of integer work units across a
// fixed set of participants.
//
// Three policies are supported:
//
//	Unconstrained         free-form add/subtract edits clamped against capacity
//	ProportionalEven      percentage shares, locked or implicit, summing to 100
//	FixedPerParticipant   a fixed chunk handed out in order until the pool runs dry
//
// Every function in this package is pure: inputs are never mutated and no I/O
// is performed. Allocation vectors are indexed by participant position.
package allocator

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrWeightOverflow is returned when locked percentages of active
	// participants add up to more than 100.
	ErrWeightOverflow = errors.New("locked weights exceed 100 percent")

	// ErrLengthMismatch is returned when parallel slices differ in length.
	ErrLengthMismatch = errors.New("parallel slices differ in length")

	// ErrUnknownAction is returned when an action name cannot be parsed.
	ErrUnknownAction = errors.New("unknown action")

	// ErrUnknownPolicy is returned when a policy name cannot be parsed.
	ErrUnknownPolicy = errors.New("unknown policy")
)

// Action determines eligibility and the sign of a participant's pending change.
type Action int

const (
	ActionAdd Action = iota
	ActionSubtract
	ActionExclude
)

func (a Action) String() string {
	switch a {
	case ActionAdd:
		return "add"
	case ActionSubtract:
		return "subtract"
	case ActionExclude:
		return "exclude"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// ParseAction converts a user-facing name into an Action.
// "reassign" is accepted as an alias for subtract.
func ParseAction(s string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "add":
		return ActionAdd, nil
	case "subtract", "reassign":
		return ActionSubtract, nil
	case "exclude":
		return ActionExclude, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownAction, s)
}

// Policy selects the allocation strategy.
type Policy int

const (
	PolicyUnconstrained Policy = iota
	PolicyProportionalEven
	PolicyFixedPerParticipant
)

func (p Policy) String() string {
	switch p {
	case PolicyUnconstrained:
		return "unconstrained"
	case PolicyProportionalEven:
		return "proportional"
	case PolicyFixedPerParticipant:
		return "fixed"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ParsePolicy converts a policy name into a Policy. The names used by the
// original form ("normal", "evenly", "perUser") are accepted as aliases.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "unconstrained", "normal":
		return PolicyUnconstrained, nil
	case "proportional", "proportional_even", "evenly":
		return PolicyProportionalEven, nil
	case "fixed", "fixed_per_participant", "peruser", "per_user":
		return PolicyFixedPerParticipant, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
}

// Allows reports whether an action can be selected under the policy.
// Subtraction only exists in the unconstrained policy; the distributed
// policies use exclusion instead.
func (p Policy) Allows(a Action) bool {
	switch a {
	case ActionAdd, ActionExclude:
		return true
	case ActionSubtract:
		return p == PolicyUnconstrained
	}
	return false
}

// Participant is an entity that can receive or give up units.
type Participant struct {
	ID          int
	Name        string
	CurrentLoad int
}

// Weight is a participant's percentage share in the proportional policy.
// Percent is meaningful when Locked, or as the last normalized value otherwise.
type Weight struct {
	Percent int
	Locked  bool
}

func isActive(a Action) bool {
	return a != ActionExclude
}
