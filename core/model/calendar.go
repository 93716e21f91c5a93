package model

import "time"

// CalendarEvent is an opaque event on the external calendar provider.
// Start/End may each be a wall-datetime or an all-day date; AllDay
// distinguishes the two so timez helpers know whether to treat the bound as
// local-midnight-anchored.
type CalendarEvent struct {
	ID         string            `json:"id"`
	Summary    string            `json:"summary,omitempty"`
	VersionTag string            `json:"version_tag,omitempty"`
	Start      time.Time         `json:"start"`
	End        time.Time         `json:"end"`
	AllDay     bool              `json:"all_day,omitempty"`
	Properties map[string]string `json:"properties,omitempty"`
}

// DiaGuruPropertyKey marks an event this system created.
const DiaGuruPropertyKey = "diaGuru"

// CaptureIDPropertyKey carries the capture a diaGuru event represents.
const CaptureIDPropertyKey = "capture_id"

// ActionIDPropertyKey carries the PlanAction id that created the event, used
// for idempotent reconciliation after a commit-ordering failure.
const ActionIDPropertyKey = "action_id"

// PrioritySnapshotPropertyKey carries the priority score at commit time.
const PrioritySnapshotPropertyKey = "priority_snapshot"

// PlanIDPropertyKey carries the plan run id that produced the event.
const PlanIDPropertyKey = "plan_id"

// IsOwned reports whether the event was created by this system.
func (e CalendarEvent) IsOwned() bool {
	return e.Properties[DiaGuruPropertyKey] == "true"
}

// CaptureID returns the capture id carried on an owned event, or "".
func (e CalendarEvent) CaptureID() string {
	return e.Properties[CaptureIDPropertyKey]
}

// MaxSummaryLen is the provider's summary truncation limit.
const MaxSummaryLen = 200

// BuildSummary constructs the "[DG] "+content summary, truncated to
// MaxSummaryLen runes.
func BuildSummary(content string) string {
	const prefix = "[DG] "
	s := prefix + content
	runes := []rune(s)
	if len(runes) > MaxSummaryLen {
		runes = runes[:MaxSummaryLen]
	}
	return string(runes)
}

// BusyInterval is a half-open [Start, End) interval produced by expanding a
// calendar event with a symmetric buffer. OwnerCaptureID is set
// when the interval originates from an owned event, empty for external ones.
type BusyInterval struct {
	Start          time.Time
	End            time.Time
	OwnerCaptureID string
	EventID        string
	External       bool
}

// Overlaps reports whether the interval overlaps [s, e) (half-open).
func (b BusyInterval) Overlaps(s, e time.Time) bool {
	return b.Start.Before(e) && s.Before(b.End)
}
