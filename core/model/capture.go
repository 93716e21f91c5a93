// Package model defines the data types shared across the scheduling engine:
// captures, calendar events, busy intervals, scheduling plans, chunks and the
// audit ledger. None of these types perform I/O; they are pure data plus the
// small accessor helpers that express the model's invariants.
package model

import (
	"encoding/json"
	"time"
)

// ConstraintKind is the declared temporal constraint on a capture.
type ConstraintKind string

const (
	ConstraintFlexible     ConstraintKind = "flexible"
	ConstraintDeadlineTime ConstraintKind = "deadline_time"
	ConstraintDeadlineDate ConstraintKind = "deadline_date"
	ConstraintStartTime    ConstraintKind = "start_time"
	ConstraintWindow       ConstraintKind = "window"
)

// NormalizeConstraintKind resolves known aliases to their canonical kind.
func NormalizeConstraintKind(k string) ConstraintKind {
	switch ConstraintKind(k) {
	case "deadline", "end_time":
		return ConstraintDeadlineTime
	case ConstraintDeadlineTime, ConstraintDeadlineDate, ConstraintStartTime, ConstraintWindow, ConstraintFlexible:
		return ConstraintKind(k)
	default:
		return ConstraintFlexible
	}
}

// StartFlexibility controls whether a capture's start may be nudged by the
// scheduler (overlap, preemption).
type StartFlexibility string

const (
	StartFlexSoft StartFlexibility = "soft"
	StartFlexHard StartFlexibility = "hard"
)

// DurationFlexibility controls whether a capture's duration may be split
// across multiple chunks.
type DurationFlexibility string

const (
	DurationFixed        DurationFlexibility = "fixed"
	DurationSplitAllowed DurationFlexibility = "split_allowed"
)

// TimeOfDay is a preferred placement band, used by the slot search.
type TimeOfDay string

const (
	TimeOfDayMorning   TimeOfDay = "morning"
	TimeOfDayAfternoon TimeOfDay = "afternoon"
	TimeOfDayEvening   TimeOfDay = "evening"
	TimeOfDayNight     TimeOfDay = "night"
)

// RoutineHint identifies a capture produced by routine extraction.
type RoutineHint string

const (
	RoutineSleep RoutineHint = "routine.sleep"
	RoutineMeal  RoutineHint = "routine.meal"
)

// CaptureStatus is the lifecycle state of a capture.
type CaptureStatus string

const (
	StatusPending   CaptureStatus = "pending"
	StatusScheduled CaptureStatus = "scheduled"
	StatusCompleted CaptureStatus = "completed"
)

// TimePrefDay disambiguates "tonight" vs "tomorrow night" for routine
// normalization's base-date resolution.
type TimePrefDay string

const (
	TimePrefDayToday    TimePrefDay = "today"
	TimePrefDayTomorrow TimePrefDay = "tomorrow"
)

// SchedulingNotes is the narrow typed projection of the heterogeneous
// "scheduling_notes" blob: an overlap flag, a human-readable explanation,
// and an escape hatch for whatever unstructured note preceded this run.
type SchedulingNotes struct {
	Overlapped   bool            `json:"overlapped,omitempty"`
	Explanation  string          `json:"explanation,omitempty"`
	PreviousNote json.RawMessage `json:"previous_note,omitempty"`
}

// Capture is the unit of scheduling.
type Capture struct {
	ID      string `json:"id"`
	OwnerID string `json:"owner_id"`
	Content string `json:"content"`

	EstimatedMinutes  int     `json:"estimated_minutes"`
	Importance        int     `json:"importance"`
	Urgency           *float64 `json:"urgency,omitempty"`
	Impact            *float64 `json:"impact,omitempty"`
	ReschedulePenalty *float64 `json:"reschedule_penalty,omitempty"`

	ConstraintKind ConstraintKind `json:"constraint_type"`
	ConstraintTime *time.Time     `json:"constraint_time,omitempty"`
	ConstraintEnd  *time.Time     `json:"constraint_end,omitempty"`
	ConstraintDate *time.Time     `json:"constraint_date,omitempty"`

	OriginalTargetTime *time.Time `json:"original_target_time,omitempty"`
	DeadlineAt         *time.Time `json:"deadline_at,omitempty"`
	WindowStart        *time.Time `json:"window_start,omitempty"`
	WindowEnd          *time.Time `json:"window_end,omitempty"`
	StartTargetAt      *time.Time `json:"start_target_at,omitempty"`

	IsSoftStart bool `json:"is_soft_start"`

	CannotOverlap       bool                `json:"cannot_overlap"`
	StartFlexibility    StartFlexibility    `json:"start_flexibility"`
	DurationFlexibility DurationFlexibility `json:"duration_flexibility"`

	MinChunkMinutes *int `json:"min_chunk_minutes,omitempty"`
	MaxSplits       *int `json:"max_splits,omitempty"`

	ExtractionKind    string      `json:"extraction_kind,omitempty"`
	TaskTypeHint      string      `json:"task_type_hint,omitempty"`
	TimePrefTimeOfDay *TimeOfDay  `json:"time_pref_time_of_day,omitempty"`
	TimePrefDay       TimePrefDay `json:"time_pref_day,omitempty"`

	Status CaptureStatus `json:"status"`

	PlannedStart *time.Time `json:"planned_start,omitempty"`
	PlannedEnd   *time.Time `json:"planned_end,omitempty"`
	ScheduledFor *time.Time `json:"scheduled_for,omitempty"`

	ExternalityScore float64 `json:"externality_score"`
	RescheduleCount  int     `json:"reschedule_count"`

	CalendarEventID   string `json:"calendar_event_id,omitempty"`
	CalendarEventETag string `json:"calendar_event_etag,omitempty"`

	FreezeUntil   *time.Time `json:"freeze_until,omitempty"`
	PlanID        string     `json:"plan_id,omitempty"`
	ManualTouchAt *time.Time `json:"manual_touch_at,omitempty"`

	SchedulingNotes *SchedulingNotes `json:"scheduling_notes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsRoutine reports whether the capture originates from routine extraction:
// either hint begins with "routine.".
func (c *Capture) IsRoutine() bool {
	return hasRoutinePrefix(c.TaskTypeHint) || hasRoutinePrefix(c.ExtractionKind)
}

func hasRoutinePrefix(s string) bool {
	const prefix = "routine."
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

// RoutineKind returns the routine hint (sleep/meal) or "" if not a routine.
func (c *Capture) RoutineKind() RoutineHint {
	if hasRoutinePrefix(c.TaskTypeHint) {
		return RoutineHint(c.TaskTypeHint)
	}
	if hasRoutinePrefix(c.ExtractionKind) {
		return RoutineHint(c.ExtractionKind)
	}
	return ""
}

// IsFrozen reports whether freeze_until is in the future relative to now.
func (c *Capture) IsFrozen(now time.Time) bool {
	return c.FreezeUntil != nil && c.FreezeUntil.After(now)
}

// IsLocked reports whether the user has manually touched or frozen this
// capture, which routine normalization must treat as idempotent.
func (c *Capture) IsLocked() bool {
	return c.ManualTouchAt != nil || c.FreezeUntil != nil
}

// DurationMinutes clamps EstimatedMinutes to the valid [5, 480] range.
func (c *Capture) DurationMinutes() int {
	d := c.EstimatedMinutes
	if d < 5 {
		return 5
	}
	if d > 480 {
		return 480
	}
	return d
}

// MinChunk returns the configured minimum chunk size, defaulting to
// defaultMin.
func (c *Capture) MinChunk(defaultMin int) int {
	if c.MinChunkMinutes != nil && *c.MinChunkMinutes > 0 {
		return *c.MinChunkMinutes
	}
	return defaultMin
}

// MaxSplit returns the configured max split count, or 1 if duration
// splitting is disallowed, or a large default otherwise.
func (c *Capture) MaxSplit(defaultMax int) int {
	if c.DurationFlexibility != DurationSplitAllowed {
		return 1
	}
	if c.MaxSplits != nil && *c.MaxSplits > 0 {
		return *c.MaxSplits
	}
	return defaultMax
}

// CanOverlapEligible reports whether a capture is overlap-eligible: it must
// allow overlap and not have a hard start flexibility.
func CanOverlapEligible(c *Capture) bool {
	return !c.CannotOverlap && c.StartFlexibility != StartFlexHard
}
