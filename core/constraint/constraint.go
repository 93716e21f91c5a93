// Package constraint resolves a capture's declared constraint into a
// SchedulingPlan.
package constraint

import (
	"time"

	"github.com/kilianp07/diaguru/core/model"
	"github.com/kilianp07/diaguru/core/timez"
)

// Resolver computes scheduling plans against a configured timezone.
type Resolver struct {
	TZ string
}

// New returns a Resolver for the given timezone (empty means UTC).
func New(tz string) Resolver {
	return Resolver{TZ: tz}
}

// ComputePlan derives the SchedulingPlan for c relative to now, applying
// the constraint-kind precedence rules below.
func (r Resolver) ComputePlan(c *model.Capture, now time.Time) (model.SchedulingPlan, error) {
	kind := model.NormalizeConstraintKind(string(c.ConstraintKind))

	switch kind {
	case model.ConstraintDeadlineTime, model.ConstraintDeadlineDate:
		deadline, err := r.resolveDeadline(c, now, kind)
		if err != nil {
			return model.SchedulingPlan{}, err
		}
		return model.SchedulingPlan{Mode: model.PlanDeadline, Deadline: deadline}, nil

	case model.ConstraintStartTime:
		start := now
		if c.ConstraintTime != nil {
			start = *c.ConstraintTime
		} else if c.OriginalTargetTime != nil {
			start = *c.OriginalTargetTime
		}
		if start.Before(now) {
			start = now
		}
		end := start.Add(time.Duration(c.DurationMinutes()) * time.Minute)
		return model.SchedulingPlan{Mode: model.PlanStart, PreferredSlot: model.Window{Start: start, End: end}}, nil

	case model.ConstraintWindow:
		if c.WindowStart != nil && c.WindowEnd != nil && c.WindowEnd.After(*c.WindowStart) {
			return model.SchedulingPlan{Mode: model.PlanWindow, Window: model.Window{Start: *c.WindowStart, End: *c.WindowEnd}}, nil
		}
		return model.SchedulingPlan{Mode: model.PlanFlexible}, nil

	default:
		return model.SchedulingPlan{Mode: model.PlanFlexible}, nil
	}
}

// resolveDeadline applies the precedence: deadline_at > constraint-specific
// rule > window_end > null.
func (r Resolver) resolveDeadline(c *model.Capture, now time.Time, kind model.ConstraintKind) (time.Time, error) {
	if c.DeadlineAt != nil {
		return *c.DeadlineAt, nil
	}
	if kind == model.ConstraintDeadlineTime && c.ConstraintTime != nil {
		return *c.ConstraintTime, nil
	}
	if kind == model.ConstraintDeadlineDate {
		ref := now
		if c.ConstraintDate != nil {
			ref = *c.ConstraintDate
		}
		return timez.EndOfLocalDay(r.TZ, ref)
	}
	if c.WindowEnd != nil {
		return *c.WindowEnd, nil
	}
	return time.Time{}, nil
}
