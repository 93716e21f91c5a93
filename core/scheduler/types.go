package scheduler

import (
	"time"

	"github.com/kilianp07/diaguru/core/advisor"
	"github.com/kilianp07/diaguru/core/model"
)

// Request is one /schedule-capture invocation.
type Request struct {
	CaptureID string
	OwnerID   string
	Action    string // schedule | reschedule | complete

	Timezone              string
	TimezoneOffsetMinutes *int

	PreferredStart *time.Time
	PreferredEnd   *time.Time

	AllowOverlap       bool
	AllowRebalance     bool
	AllowLatePlacement bool
}

// preferredSlot resolves the user-supplied preferred slot, if any.
func (r Request) preferredSlot() (model.Window, bool) {
	if r.PreferredStart == nil || r.PreferredEnd == nil {
		return model.Window{}, false
	}
	return model.Window{Start: *r.PreferredStart, End: *r.PreferredEnd}, true
}

// OverlapInfo is returned on a committed overlap admission.
type OverlapInfo struct {
	PrimeID       string
	DailyUsed     int
	SlotMinutes   int
	ParticipantID []string
}

// ConflictDecision is the `decision` payload of a `preferred_conflict`
// response.
type ConflictDecision struct {
	Type       string
	Message    string
	Preferred  *model.Window
	Conflicts  []*model.Capture
	Suggestion *model.Window
	Advisor    *advisor.Decision
	Metadata   map[string]any
}

// Result is the outcome of one Schedule call.
type Result struct {
	Message     string
	Capture     *model.Capture
	PlanSummary model.SchedulingPlan
	Chunks      []model.Chunk
	Explanation string
	Overlap     *OverlapInfo
	Decision    *ConflictDecision
}
