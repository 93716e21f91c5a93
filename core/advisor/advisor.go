// Package advisor proposes a human-readable decision when no automatic
// placement is possible, optionally consulting an external LLM. The LLM
// transport lives in infra/advisor; this package defines the contract and
// the non-fatal baseline fallback.
package advisor

import (
	"context"
	"fmt"
	"time"

	"github.com/kilianp07/diaguru/core/model"
)

// Action is the advisor's proposed course of action.
type Action string

const (
	ActionSuggestSlot Action = "suggest_slot"
	ActionAskOverlap  Action = "ask_overlap"
	ActionDefer       Action = "defer"
)

// Context is the structured input handed to an Advisor implementation.
type Context struct {
	Target       *model.Capture
	Preferred    *model.Window
	Conflicts    []*model.Capture
	Suggestion   *model.Window
	Timezone     string
	BusySummary  string
	ReferenceNow time.Time
}

// Decision is the advisor's output contract: `{action, message, slot?}`.
type Decision struct {
	Action  Action
	Message string
	Slot    *model.Window
}

// Advisor proposes a Decision for a conflicted scheduling request. Failure
// is non-fatal at the call site — callers fall back to Baseline.
type Advisor interface {
	Advise(ctx context.Context, in Context) (Decision, error)
}

// Baseline is the non-fatal fallback used when no LLM endpoint is
// configured or the call fails: a deterministic, human-readable message
// derived from the suggestion already computed by the orchestrator.
type Baseline struct{}

// Advise never returns an error.
func (Baseline) Advise(_ context.Context, in Context) (Decision, error) {
	if in.Suggestion != nil {
		return Decision{
			Action:  ActionSuggestSlot,
			Message: fmt.Sprintf("The preferred slot is unavailable; the next open slot is %s to %s.", in.Suggestion.Start.Format(time.RFC3339), in.Suggestion.End.Format(time.RFC3339)),
			Slot:    in.Suggestion,
		}, nil
	}
	return Decision{
		Action:  ActionDefer,
		Message: "No automatic placement was found; please choose a different time or allow overlap.",
	}, nil
}

// ValidateSlot reports whether a proposed slot from an advisor is usable:
// within the working window (if enforced) and free against busyIntervals.
// The orchestrator must call this before including any advisor-proposed
// slot in a response.
func ValidateSlot(slot model.Window, busyFree func(s, e time.Time) bool, withinWorkingWindow func(s, e time.Time) (bool, error)) (bool, error) {
	if withinWorkingWindow != nil {
		ok, err := withinWorkingWindow(slot.Start, slot.End)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	if busyFree != nil && !busyFree(slot.Start, slot.End) {
		return false, nil
	}
	return true, nil
}
