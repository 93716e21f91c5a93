// Package notify declares the real-time fan-out capability used to push
// PlanAction events to companion clients.
package notify

import (
	"context"

	"github.com/kilianp07/diaguru/core/model"
)

// Publisher pushes a committed PlanAction to any subscribed companion
// clients. Implementations must not block the orchestrator on delivery
// failure — publishing is best-effort telemetry, not part of the commit.
type Publisher interface {
	Publish(ctx context.Context, ownerID string, action model.PlanAction) error
	Close() error
}

// NopPublisher discards every event; used when no transport is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, model.PlanAction) error { return nil }
func (NopPublisher) Close() error                                           { return nil }
