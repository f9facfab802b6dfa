package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/eshaffer321/taskalloc/internal/application/allocation"
	"github.com/eshaffer321/taskalloc/internal/domain/allocator"
	"github.com/eshaffer321/taskalloc/internal/infrastructure/storage"
)

// PrintHeader prints the application header
func PrintHeader(w io.Writer, name string, policy allocator.Policy) {
	if name == "" {
		name = "session"
	}
	fmt.Fprintf(w, "allocate: %s (%s policy)\n", name, policy)
}

// PrintState prints the session's pool figures and one line per row
func PrintState(w io.Writer, st allocation.State) {
	fmt.Fprintf(w, "Base: %d | Effective: %d | Added: %d | Subtracted: %d",
		st.BaseCapacity, st.EffectivePool, st.Totals.Added, st.Totals.Subtracted)
	switch st.Policy {
	case allocator.PolicyProportionalEven:
		fmt.Fprintf(w, " | Pool: %d (requested %d) | Locked: %d%%", st.AppliedPool, st.RequestedPool, st.LockedTotal)
	case allocator.PolicyFixedPerParticipant:
		fmt.Fprintf(w, " | Pool: %d (requested %d) | Chunk: %d", st.AppliedPool, st.RequestedPool, st.Chunk)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, strings.Repeat("-", 60))
	fmt.Fprintf(w, "%-3s %-12s %5s %-9s %6s %8s %6s\n", "#", "Name", "Load", "Action", "Change", "Percent", "Total")
	for i, row := range st.Rows {
		percent := "-"
		if st.Policy == allocator.PolicyProportionalEven && row.Action != allocator.ActionExclude {
			percent = fmt.Sprintf("%d%%", row.Weight.Percent)
			if row.Weight.Locked {
				percent += "*"
			}
		}
		action := row.Action.String()
		if row.ActionLocked {
			action += "!"
		}
		fmt.Fprintf(w, "%-3d %-12s %5d %-9s %6d %8s %6d\n",
			i, row.Participant.Name, row.Participant.CurrentLoad, action, row.Pending, percent, row.PendingTotal)
	}
}

// PrintRunSummary prints the scenario result summary
func PrintRunSummary(w io.Writer, result *RunResult) {
	fmt.Fprintln(w, strings.Repeat("-", 60))
	fmt.Fprintf(w, "Summary: Steps=%d Submitted=%d Errors=%d\n",
		result.StepCount,
		len(result.Submissions),
		len(result.Errors))

	if len(result.Errors) > 0 {
		fmt.Fprintln(w, "\nErrors:")
		for _, err := range result.Errors {
			fmt.Fprintf(w, "  - %v\n", err)
		}
	}

	for i, sub := range result.Submissions {
		fmt.Fprintf(w, "\nSubmission %d: policy=%s added=%d subtracted=%d base=%d\n",
			i+1, sub.Policy, sub.Totals.Added, sub.Totals.Subtracted, sub.BaseCapacity)
		for _, ch := range sub.Changes {
			fmt.Fprintf(w, "  participant %d: %s %d\n", ch.ParticipantID, ch.Action, ch.Units)
		}
	}
}

// PrintStore prints the store's participants and their work items
func PrintStore(w io.Writer, snap *storage.Snapshot) {
	fmt.Fprintf(w, "Assignable: %d | Unassigned items: %d\n", snap.AssignableTasks, len(snap.Unassigned))
	fmt.Fprintln(w, strings.Repeat("-", 60))
	for _, p := range snap.Participants {
		fmt.Fprintf(w, "%-4d %-12s %3d tasks\n", p.ID, p.Name, p.Load())
	}
}
