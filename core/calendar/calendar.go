// Package calendar declares the external calendar provider abstraction.
// Concrete transports live in infra/calendar.
package calendar

import (
	"context"
	"time"

	"github.com/kilianp07/diaguru/core/model"
)

// Gateway is the calendar provider capability the orchestrator depends on.
// Authentication and token refresh are assumed handled by the
// implementation.
type Gateway interface {
	List(ctx context.Context, owner string, from, to time.Time) ([]model.CalendarEvent, error)
	Create(ctx context.Context, owner string, ev model.CalendarEvent) (model.CalendarEvent, error)
	Delete(ctx context.Context, owner, id, versionTag string) error
	Get(ctx context.Context, owner, id string) (model.CalendarEvent, error)
}

// ReconnectError is returned by a Gateway when the owner's account requires
// re-authentication: a persistent 401 after the refresh retry marks
// needs_reconnect and returns 400 to the caller.
type ReconnectError struct {
	Owner string
}

func (e *ReconnectError) Error() string {
	return "calendar account needs reconnect: " + e.Owner
}

// PreconditionFailedError is returned on a 412 from a stale version tag; the
// caller is expected to refetch and retry once.
type PreconditionFailedError struct {
	ID string
}

func (e *PreconditionFailedError) Error() string {
	return "precondition failed (stale version tag) for event " + e.ID
}
