package scheduler

import (
	"context"
	"time"

	"github.com/kilianp07/diaguru/core/model"
	"github.com/kilianp07/diaguru/core/overlap"
	"github.com/kilianp07/diaguru/core/preemption"
	"github.com/kilianp07/diaguru/core/priority"
	"github.com/kilianp07/diaguru/core/timez"
)

// tryPreferredSlot handles the rule that a preferred slot is always
// terminal — it either commits (directly, via overlap, or via preemption)
// or resolves to a structured preferred_conflict decision.
func (o *Orchestrator) tryPreferredSlot(ctx context.Context, sc *scheduleCtx, preferred model.Window) (*Result, error) {
	withinWorking, err := o.withinWorkingWindow(sc, preferred)
	if err != nil {
		return nil, newValidationError("check working window: " + err.Error())
	}
	withinPlan := o.withinPlanBounds(sc, preferred)

	external, ownedIDs := splitConflicts(sc.busyIntervals, preferred.Start, preferred.End)

	if withinWorking && withinPlan && len(external) == 0 && len(ownedIDs) == 0 {
		return o.commitSlot(ctx, sc, []model.Chunk{{Start: preferred.Start, End: preferred.End}}, false, "preferred slot")
	}

	owned, err := o.resolveCaptures(ctx, ownedIDs)
	if err != nil {
		return nil, newInternalError("resolve conflicting captures: " + err.Error())
	}

	if sc.req.AllowOverlap && len(external) == 0 && overlapEligible(sc.cap, owned) {
		usage := overlap.NewUsage()
		decision := overlap.Evaluate(o.cfg.Overlap, usage, sc.cap, owned, preferred.Start, preferred.End, sc.now, o.weights)
		if decision.Allowed {
			return o.commitOverlap(ctx, sc, preferred, owned, decision, usage)
		}
	}

	if sc.req.AllowRebalance && len(external) == 0 && len(owned) > 0 {
		movable := movableCaptures(owned, sc.now, sc.plan.Mode == model.PlanDeadline)
		if combo, found := preemption.SelectMinimalSet(preferred, sc.events, sc.busyIntervals, idsOf(movable), true); found {
			selected, err := o.resolveCaptures(ctx, combo)
			if err != nil {
				return nil, newInternalError("resolve displaced captures: " + err.Error())
			}
			if outranksAll(sc.cap, selected, sc.now, o.weights) {
				net := preemption.EvaluateNetGain(sc.cap, displacementsOf(selected, preferred), int(preferred.End.Sub(preferred.Start).Minutes()), sc.now, o.weights, o.cfg.OverlapCost)
				if net.Allow(o.cfg.Preemption, len(selected), totalMinutes(selected, preferred)) {
					return o.commitPreemption(ctx, sc, preferred, selected, net)
				}
			}
		}
	}

	return o.preferredConflict(ctx, sc, preferred, owned)
}

func (o *Orchestrator) withinWorkingWindow(sc *scheduleCtx, w model.Window) (bool, error) {
	if sc.cap.IsRoutine() {
		// routine windows (sleep/meal) fall outside 08:00-22:00 by design.
		return true, nil
	}
	return timez.WithinWorkingWindow(sc.tz, w.Start, w.End, sc.startHour, sc.endHour)
}

func (o *Orchestrator) withinPlanBounds(sc *scheduleCtx, w model.Window) bool {
	switch sc.plan.Mode {
	case model.PlanWindow:
		return sc.plan.Window.Contains(w.Start, w.End)
	case model.PlanDeadline:
		return !w.End.After(sc.plan.Deadline)
	default:
		return true
	}
}

// splitConflicts partitions the busy intervals overlapping [s, e) into
// external event ids and owned capture ids.
func splitConflicts(intervals []model.BusyInterval, s, e time.Time) (external []string, ownedCaptureIDs []string) {
	seen := map[string]bool{}
	for _, b := range intervals {
		if !b.Overlaps(s, e) {
			continue
		}
		if b.External {
			external = append(external, b.EventID)
			continue
		}
		if b.OwnerCaptureID != "" && !seen[b.OwnerCaptureID] {
			seen[b.OwnerCaptureID] = true
			ownedCaptureIDs = append(ownedCaptureIDs, b.OwnerCaptureID)
		}
	}
	return external, ownedCaptureIDs
}

func (o *Orchestrator) resolveCaptures(ctx context.Context, ids []string) ([]*model.Capture, error) {
	out := make([]*model.Capture, 0, len(ids))
	for _, id := range ids {
		c, err := o.store.GetCapture(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func overlapEligible(target *model.Capture, conflicts []*model.Capture) bool {
	if !model.CanOverlapEligible(target) {
		return false
	}
	for _, c := range conflicts {
		if !model.CanOverlapEligible(c) {
			return false
		}
	}
	return true
}

// movableCaptures filters out any capture that cannot currently be
// displaced, per preemption.IsMovable.
func movableCaptures(captures []*model.Capture, now time.Time, bypassStability bool) []*model.Capture {
	out := make([]*model.Capture, 0, len(captures))
	for _, c := range captures {
		if preemption.IsMovable(c, now, bypassStability) {
			out = append(out, c)
		}
	}
	return out
}

func outranksAll(target *model.Capture, conflicts []*model.Capture, now time.Time, w priority.Weights) bool {
	targetScore := priority.Score(target, now, w)
	for _, c := range conflicts {
		if priority.Score(c, now, w) >= targetScore {
			return false
		}
	}
	return true
}

func displacementsOf(captures []*model.Capture, slot model.Window) []preemption.Displacement {
	minutes := int(slot.End.Sub(slot.Start).Minutes())
	out := make([]preemption.Displacement, 0, len(captures))
	for _, c := range captures {
		out = append(out, preemption.Displacement{Capture: c, MinutesClaimed: minutes})
	}
	return out
}

func totalMinutes(captures []*model.Capture, slot model.Window) int {
	return int(slot.End.Sub(slot.Start).Minutes()) * len(captures)
}
