package mqtt

import (
	"context"
	"fmt"
	"sync"

	"github.com/kilianp07/diaguru/core/model"
)

// MockPublisher is a simple notify.Publisher used in tests.
type MockPublisher struct {
	Published map[string]model.PlanAction // action id -> action
	FailIDs   map[string]bool             // action id -> force failure
	mu        sync.Mutex
	closed    bool
}

// NewMockPublisher creates a new MockPublisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{
		Published: make(map[string]model.PlanAction),
		FailIDs:   make(map[string]bool),
	}
}

// Publish records the action or returns an error if configured to fail.
func (m *MockPublisher) Publish(_ context.Context, ownerID string, action model.PlanAction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailIDs[action.ID] {
		return fmt.Errorf("publish failed for action %s", action.ID)
	}
	m.Published[action.ID] = action
	return nil
}

// Close marks the publisher closed.
func (m *MockPublisher) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
