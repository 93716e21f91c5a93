package model

import "time"

// PlanActionKind is the kind of mutation recorded in one PlanAction.
type PlanActionKind string

const (
	ActionScheduled   PlanActionKind = "scheduled"
	ActionRescheduled PlanActionKind = "rescheduled"
	ActionUnscheduled PlanActionKind = "unscheduled"
)

// CaptureSnapshot is the narrow before/after projection recorded on a
// PlanAction: status, placement, external event identity, freeze state and
// the plan that produced it.
type CaptureSnapshot struct {
	Status            CaptureStatus `json:"status"`
	PlannedStart      *time.Time    `json:"planned_start,omitempty"`
	PlannedEnd        *time.Time    `json:"planned_end,omitempty"`
	CalendarEventID   string        `json:"calendar_event_id,omitempty"`
	CalendarEventETag string        `json:"calendar_event_etag,omitempty"`
	FreezeUntil       *time.Time    `json:"freeze_until,omitempty"`
	PlanID            string        `json:"plan_id,omitempty"`
}

// SnapshotOf captures the audited projection of a capture's current state.
func SnapshotOf(c *Capture) CaptureSnapshot {
	return CaptureSnapshot{
		Status:            c.Status,
		PlannedStart:      c.PlannedStart,
		PlannedEnd:        c.PlannedEnd,
		CalendarEventID:   c.CalendarEventID,
		CalendarEventETag: c.CalendarEventETag,
		FreezeUntil:       c.FreezeUntil,
		PlanID:            c.PlanID,
	}
}

// PlanAction records the before/after snapshot of one capture mutation
// within a PlanRun.
type PlanAction struct {
	ID             string         `json:"id"`
	PlanID         string         `json:"plan_id"`
	CaptureID      string         `json:"capture_id"`
	CaptureContent string         `json:"capture_content"`
	Kind           PlanActionKind `json:"action_type"`
	Before         CaptureSnapshot `json:"before"`
	After          CaptureSnapshot `json:"after"`
	CreatedAt      time.Time      `json:"created_at"`
}

// PlanRun is the audit scope of one scheduling request.
type PlanRun struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Summary   string    `json:"summary,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
