// Package audit accumulates before/after snapshots per mutation within a
// scheduling request and produces the run summary.
package audit

import (
	"fmt"
	"time"

	"github.com/kilianp07/diaguru/core/model"
)

// Ledger accumulates PlanActions for one PlanRun. It is request-scoped and
// discarded on return; the owning orchestrator persists it on finalize.
type Ledger struct {
	run     model.PlanRun
	started bool
	actions []model.PlanAction
	newID   func() string
}

// New returns an empty ledger for owner, lazily creating its PlanRun on the
// first recorded mutation. newID mints action/run ids (typically uuid.New).
func New(ownerID string, newID func() string) *Ledger {
	return &Ledger{
		run:   model.PlanRun{OwnerID: ownerID},
		newID: newID,
	}
}

func (l *Ledger) ensureStarted(now time.Time) {
	if l.started {
		return
	}
	l.run.ID = l.newID()
	l.run.CreatedAt = now
	l.started = true
}

// EnsureStarted creates the run eagerly, returning its id. The orchestrator
// calls it at the start of each run so the run id exists before any
// calendar mutation and can be stamped onto the event's PlanIDPropertyKey.
func (l *Ledger) EnsureStarted(now time.Time) string {
	l.ensureStarted(now)
	return l.run.ID
}

// NewActionID mints an id from the same generator used for the run id,
// without creating the run.
func (l *Ledger) NewActionID() string {
	return l.newID()
}

// Record appends one PlanAction, creating the run lazily on first call.
// Ordering is preserved: callers control the order by calling Record in the
// order mutations occur — specifically, preemption reclaim must record its
// "unscheduled" actions before the target's "scheduled" action.
func (l *Ledger) Record(now time.Time, captureID, captureContent string, kind model.PlanActionKind, before, after model.CaptureSnapshot) model.PlanAction {
	l.ensureStarted(now)
	action := model.PlanAction{
		ID:             l.newID(),
		PlanID:         l.run.ID,
		CaptureID:      captureID,
		CaptureContent: captureContent,
		Kind:           kind,
		Before:         before,
		After:          after,
		CreatedAt:      now,
	}
	l.actions = append(l.actions, action)
	return action
}

// RecordWithID appends one PlanAction using a pre-minted id, for callers
// that must stamp the same id onto a calendar event's ActionIDPropertyKey
// before recording the audit entry.
func (l *Ledger) RecordWithID(id string, now time.Time, captureID, captureContent string, kind model.PlanActionKind, before, after model.CaptureSnapshot) model.PlanAction {
	l.ensureStarted(now)
	action := model.PlanAction{
		ID:             id,
		PlanID:         l.run.ID,
		CaptureID:      captureID,
		CaptureContent: captureContent,
		Kind:           kind,
		Before:         before,
		After:          after,
		CreatedAt:      now,
	}
	l.actions = append(l.actions, action)
	return action
}

// RunID returns the lazily-created run id, or "" if no mutation occurred.
func (l *Ledger) RunID() string {
	return l.run.ID
}

// Actions returns the accumulated actions in insertion order.
func (l *Ledger) Actions() []model.PlanAction {
	return l.actions
}

// Started reports whether any mutation has been recorded.
func (l *Ledger) Started() bool {
	return l.started
}

// Summary produces the "scheduled:x moved:y unscheduled:z" run summary.
func (l *Ledger) Summary() string {
	var scheduled, moved, unscheduled int
	for _, a := range l.actions {
		switch a.Kind {
		case model.ActionScheduled:
			scheduled++
		case model.ActionRescheduled:
			moved++
		case model.ActionUnscheduled:
			unscheduled++
		}
	}
	return fmt.Sprintf("scheduled:%d moved:%d unscheduled:%d", scheduled, moved, unscheduled)
}

// Run returns the run record with Summary populated, ready for persistence.
func (l *Ledger) Run() model.PlanRun {
	r := l.run
	r.Summary = l.Summary()
	return r
}
