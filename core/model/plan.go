package model

import "time"

// PlanMode is the tag of the SchedulingPlan sum type: represented as a
// tagged variant rather than a "mode + optional fields" struct, so slot
// search can pattern-match instead of branching on nil checks across
// unrelated fields.
type PlanMode string

const (
	PlanFlexible PlanMode = "flexible"
	PlanStart    PlanMode = "start"
	PlanWindow   PlanMode = "window"
	PlanDeadline PlanMode = "deadline"
)

// Window is an inclusive-start/exclusive-end time range.
type Window struct {
	Start time.Time
	End   time.Time
}

// Duration returns the window's length.
func (w Window) Duration() time.Duration { return w.End.Sub(w.Start) }

// Contains reports whether [s, e] fits within the window (end inclusive: a
// preferred slot whose end equals window.End is within window).
func (w Window) Contains(s, e time.Time) bool {
	return !s.Before(w.Start) && !e.After(w.End)
}

// SchedulingPlan is the resolved plan for a capture. Only the
// fields relevant to Mode are populated; callers must switch on Mode rather
// than probe for non-zero fields.
type SchedulingPlan struct {
	Mode PlanMode

	// PlanStart
	PreferredSlot Window

	// PlanWindow
	Window Window

	// PlanDeadline
	Deadline time.Time
}
