package events

import "github.com/kilianp07/diaguru/core/model"

// ConflictEvent is published when the orchestrator returns a structured
// conflict decision instead of committing.
type ConflictEvent struct {
	CaptureID string
	OwnerID   string
	Reason    string
}

// PreemptionEvent is published when the orchestrator selects a displacement
// set and reclaims it on behalf of a higher-priority target.
type PreemptionEvent struct {
	TargetCaptureID string
	Displaced       []*model.Capture
	NetGain         float64
}
