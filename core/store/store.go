// Package store defines the persistence abstraction the orchestrator uses
// for captures, plan runs, plan actions and chunks.
package store

import (
	"context"
	"time"

	"github.com/kilianp07/diaguru/core/model"
)

// Store is the Go-idiomatic counterpart of a capture_entries/plan_runs/
// plan_actions/capture_chunks schema: transactional per-entity reads and
// updates, with no multi-table transaction surfaced to callers (the
// orchestrator sequences calendar then store mutations itself).
type Store interface {
	GetCapture(ctx context.Context, id string) (*model.Capture, error)
	UpdateCapture(ctx context.Context, c *model.Capture) error
	ListCapturesByOwner(ctx context.Context, ownerID string, from, to time.Time) ([]*model.Capture, error)
	AppendPlanActions(ctx context.Context, actions []model.PlanAction) error
	SaveChunks(ctx context.Context, captureID string, chunks []model.Chunk) error
	SaveRunSummary(ctx context.Context, run model.PlanRun) error
}

// NotFoundError signals a missing capture; GetCapture returns it as a
// *NotFoundError so callers can match with errors.As.
type NotFoundError struct{ ID string }

func (e *NotFoundError) Error() string { return "capture not found: " + e.ID }
