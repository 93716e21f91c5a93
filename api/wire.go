package api

import (
	"time"

	"github.com/kilianp07/diaguru/core/advisor"
	"github.com/kilianp07/diaguru/core/model"
	"github.com/kilianp07/diaguru/core/scheduler"
)

// scheduleRequestBody is the wire shape of the POST /schedule-capture body;
// field names are camelCase, distinct from core/model's persisted
// snake_case json tags.
type scheduleRequestBody struct {
	CaptureID             string     `json:"captureId"`
	Action                string     `json:"action"`
	Timezone              string     `json:"timezone,omitempty"`
	TimezoneOffsetMinutes *int       `json:"timezoneOffsetMinutes,omitempty"`
	PreferredStart        *time.Time `json:"preferredStart,omitempty"`
	PreferredEnd          *time.Time `json:"preferredEnd,omitempty"`
	AllowOverlap          bool       `json:"allowOverlap,omitempty"`
	AllowRebalance        bool       `json:"allowRebalance,omitempty"`
	AllowPreemption       bool       `json:"allowPreemption,omitempty"`
	AllowLatePlacement    bool       `json:"allowLatePlacement,omitempty"`
	AllowLate             bool       `json:"allowLate,omitempty"`
	ScheduleLate          bool       `json:"scheduleLate,omitempty"`
}

func (b scheduleRequestBody) toRequest(ownerID string) scheduler.Request {
	return scheduler.Request{
		CaptureID:             b.CaptureID,
		OwnerID:               ownerID,
		Action:                b.Action,
		Timezone:              b.Timezone,
		TimezoneOffsetMinutes: b.TimezoneOffsetMinutes,
		PreferredStart:        b.PreferredStart,
		PreferredEnd:          b.PreferredEnd,
		AllowOverlap:          b.AllowOverlap,
		AllowRebalance:        b.AllowRebalance || b.AllowPreemption,
		AllowLatePlacement:    b.AllowLatePlacement || b.AllowLate || b.ScheduleLate,
	}
}

type chunkWire struct {
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	Prime      bool      `json:"prime,omitempty"`
	Late       bool      `json:"late,omitempty"`
	Overlapped bool      `json:"overlapped,omitempty"`
}

func chunksWire(chunks []model.Chunk) []chunkWire {
	out := make([]chunkWire, 0, len(chunks))
	for _, c := range chunks {
		out = append(out, chunkWire{Start: c.Start, End: c.End, Prime: c.Prime, Late: c.Late, Overlapped: c.Overlapped})
	}
	return out
}

type overlapWire struct {
	PrimeID       string   `json:"primeId,omitempty"`
	DailyUsed     int      `json:"dailyUsed"`
	SlotMinutes   int      `json:"slotMinutes"`
	ParticipantID []string `json:"participantId,omitempty"`
}

type decisionWire struct {
	Type       string           `json:"type"`
	Message    string           `json:"message,omitempty"`
	Preferred  *model.Window    `json:"preferred,omitempty"`
	Conflicts  []*model.Capture `json:"conflicts,omitempty"`
	Suggestion *model.Window    `json:"suggestion,omitempty"`
	Advisor    *advisor.Decision `json:"advisor,omitempty"`
	Metadata   map[string]any   `json:"metadata,omitempty"`
}

// scheduleResponseBody is the wire shape of both 200 response variants: a
// commit (chunks/explanation/overlap populated) or a preferred_conflict
// decision (decision populated, everything else empty).
type scheduleResponseBody struct {
	Message     string          `json:"message,omitempty"`
	Capture     *model.Capture  `json:"capture,omitempty"`
	PlanSummary *planSummaryWire `json:"planSummary,omitempty"`
	Chunks      []chunkWire     `json:"chunks,omitempty"`
	Explanation string          `json:"explanation,omitempty"`
	Overlap     *overlapWire    `json:"overlap,omitempty"`
	Decision    *decisionWire   `json:"decision,omitempty"`
}

type planSummaryWire struct {
	Mode     string     `json:"mode"`
	Start    *time.Time `json:"start,omitempty"`
	End      *time.Time `json:"end,omitempty"`
	Deadline *time.Time `json:"deadline,omitempty"`
}

func planSummaryOf(p model.SchedulingPlan) *planSummaryWire {
	w := &planSummaryWire{Mode: string(p.Mode)}
	switch p.Mode {
	case model.PlanStart:
		w.Start, w.End = &p.PreferredSlot.Start, &p.PreferredSlot.End
	case model.PlanWindow:
		w.Start, w.End = &p.Window.Start, &p.Window.End
	case model.PlanDeadline:
		w.Deadline = &p.Deadline
	}
	return w
}

func toResponseBody(res *scheduler.Result) scheduleResponseBody {
	body := scheduleResponseBody{
		Message:     res.Message,
		Capture:     res.Capture,
		Explanation: res.Explanation,
	}
	if res.Chunks != nil {
		body.PlanSummary = planSummaryOf(res.PlanSummary)
		body.Chunks = chunksWire(res.Chunks)
	}
	if res.Overlap != nil {
		body.Overlap = &overlapWire{
			PrimeID:       res.Overlap.PrimeID,
			DailyUsed:     res.Overlap.DailyUsed,
			SlotMinutes:   res.Overlap.SlotMinutes,
			ParticipantID: res.Overlap.ParticipantID,
		}
	}
	if res.Decision != nil {
		body.PlanSummary = nil
		d := res.Decision
		body.Decision = &decisionWire{
			Type:       d.Type,
			Message:    d.Message,
			Preferred:  d.Preferred,
			Conflicts:  d.Conflicts,
			Suggestion: d.Suggestion,
			Advisor:    d.Advisor,
			Metadata:   d.Metadata,
		}
	}
	return body
}
