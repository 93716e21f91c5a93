package scheduler

import (
	"context"
	"time"

	"github.com/kilianp07/diaguru/core/advisor"
	"github.com/kilianp07/diaguru/core/busy"
	"github.com/kilianp07/diaguru/core/events"
	"github.com/kilianp07/diaguru/core/metrics"
	"github.com/kilianp07/diaguru/core/model"
	"github.com/kilianp07/diaguru/core/slotsearch"
)

// capacityConflict builds the structured 409 for the two terminal
// failure reasons ("slot_exceeds_deadline" and "no_slot"): the caller has no
// automatic placement and late placement was either disallowed or itself
// infeasible.
func (o *Orchestrator) capacityConflict(ctx context.Context, sc *scheduleCtx, reason string) error {
	needed := sc.cap.DurationMinutes()
	free := sc.freeMinutesInRange()

	var diaguruMinutes, externalMinutes int
	for _, b := range sc.busyIntervals {
		if !b.Overlaps(sc.rangeStart, sc.rangeEnd) {
			continue
		}
		s, e := maxTime(b.Start, sc.rangeStart), minTime(b.End, sc.rangeEnd)
		minutes := int(e.Sub(s).Minutes())
		if minutes <= 0 {
			continue
		}
		if b.External {
			externalMinutes += minutes
		} else {
			diaguruMinutes += minutes
		}
	}

	details := map[string]any{
		"capture_id":             sc.cap.ID,
		"needed_minutes":         needed,
		"available_free_minutes": free,
		"diaguru_minutes":        diaguruMinutes,
		"external_minutes":       externalMinutes,
	}
	if deadline, ok := sc.effectiveDeadline(); ok {
		details["deadline"] = deadline
	}
	if sc.plan.Mode == model.PlanWindow {
		details["window_start"] = sc.plan.Window.Start
		details["window_end"] = sc.plan.Window.End
	}

	if late, ok := o.lateCandidate(sc); ok {
		details["late_candidate"] = late
	}
	if s := o.suggestions(sc); len(s) > 0 {
		details["suggestions"] = s
	}

	if rec, ok := o.metrics.(metrics.ConflictRecorder); ok {
		_ = rec.RecordConflict(metrics.ConflictEvent{CaptureID: sc.cap.ID, OwnerID: sc.cap.OwnerID, Reason: reason, Time: sc.now})
	}
	o.bus.Publish(events.ConflictEvent{CaptureID: sc.cap.ID, OwnerID: sc.cap.OwnerID, Reason: reason})

	return newConflictError(reason, "no automatic placement is available for this capture", details)
}

// lateCandidate computes the earliest feasible placement ignoring the
// deadline, for inclusion in a capacity_conflict response body and as the
// suggestion of a preferred-slot conflict decision.
func (o *Orchestrator) lateCandidate(sc *scheduleCtx) (model.Window, bool) {
	duration := time.Duration(sc.cap.DurationMinutes()) * time.Minute
	start, err := slotsearch.FindNextAvailable(sc.busyIntervals, duration, sc.slotOptions())
	if err != nil {
		return model.Window{}, false
	}
	return model.Window{Start: start, End: start.Add(duration)}, true
}

// suggestions computes the single next-available-slot suggestion for
// capacityConflict.
func (o *Orchestrator) suggestions(sc *scheduleCtx) []model.Window {
	w, ok := o.lateCandidate(sc)
	if !ok {
		return nil
	}
	return []model.Window{w}
}

// preferredConflict handles the terminal decision when the preferred slot
// could not be committed directly, via overlap, or via preemption. This is
// a 200 response carrying a `preferred_conflict` decision, not an error —
// the caller asked for a specific slot and got a structured alternative
// instead of a 409, so the HTTP layer must not translate this into an error
// status.
func (o *Orchestrator) preferredConflict(ctx context.Context, sc *scheduleCtx, preferred model.Window, conflicts []*model.Capture) (*Result, error) {
	suggestion, hasSuggestion := o.lateCandidate(sc)

	decision := &ConflictDecision{
		Type:      "preferred_conflict",
		Message:   "the preferred slot is unavailable",
		Preferred: &preferred,
		Conflicts: conflicts,
	}
	if hasSuggestion {
		decision.Suggestion = &suggestion
	}

	advised, err := o.advisor.Advise(ctx, advisor.Context{
		Target:       sc.cap,
		Preferred:    &preferred,
		Conflicts:    conflicts,
		Suggestion:   decision.Suggestion,
		Timezone:     sc.tz,
		BusySummary:  string(sc.plan.Mode),
		ReferenceNow: sc.now,
	})
	if err != nil {
		o.log.Warnf("advisor consult failed, falling back to baseline: %v", err)
		advised, _ = advisor.Baseline{}.Advise(ctx, advisor.Context{Suggestion: decision.Suggestion})
	}

	if advised.Slot != nil {
		ok, verr := advisor.ValidateSlot(*advised.Slot,
			func(s, e time.Time) bool { return busy.IsSlotFree(s, e, sc.busyIntervals) },
			func(s, e time.Time) (bool, error) { return o.withinWorkingWindow(sc, model.Window{Start: s, End: e}) },
		)
		if verr != nil || !ok {
			advised.Slot = nil
		}
	}
	decision.Advisor = &advised

	if rec, ok := o.metrics.(metrics.ConflictRecorder); ok {
		_ = rec.RecordConflict(metrics.ConflictEvent{CaptureID: sc.cap.ID, OwnerID: sc.cap.OwnerID, Reason: "preferred_conflict", Time: sc.now})
	}
	o.bus.Publish(events.ConflictEvent{CaptureID: sc.cap.ID, OwnerID: sc.cap.OwnerID, Reason: "preferred_conflict"})

	return &Result{
		Message:     advised.Message,
		Capture:     sc.cap,
		PlanSummary: sc.plan,
		Decision:    decision,
	}, nil
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

func maxTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return b
	}
	return a
}
