package events

import (
	"time"

	"github.com/kilianp07/diaguru/core/model"
)

// CommitEvent is published when the orchestrator commits a capture to a
// slot (scheduled, rescheduled, or late).
type CommitEvent struct {
	Capture *model.Capture
	Chunks  []model.Chunk
	Action  model.PlanActionKind
	Time    time.Time
}
