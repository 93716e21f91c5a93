package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kilianp07/diaguru/core/model"
)

// MemoryStore is an in-process Store used by tests and the scenario harness,
// a mutex-guarded map keyed by capture ID.
type MemoryStore struct {
	mu       sync.Mutex
	captures map[string]*model.Capture
	actions  []model.PlanAction
	chunks   map[string][]model.Chunk
	runs     []model.PlanRun
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		captures: map[string]*model.Capture{},
		chunks:   map[string][]model.Chunk{},
	}
}

// Seed inserts captures directly, for test setup.
func (s *MemoryStore) Seed(captures ...*model.Capture) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range captures {
		cp := *c
		s.captures[c.ID] = &cp
	}
}

func (s *MemoryStore) GetCapture(_ context.Context, id string) (*model.Capture, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.captures[id]
	if !ok {
		return nil, &NotFoundError{ID: id}
	}
	cp := *c
	return &cp, nil
}

func (s *MemoryStore) UpdateCapture(_ context.Context, c *model.Capture) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.captures[c.ID] = &cp
	return nil
}

func (s *MemoryStore) ListCapturesByOwner(_ context.Context, ownerID string, from, to time.Time) ([]*model.Capture, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Capture
	for _, c := range s.captures {
		if c.OwnerID != ownerID {
			continue
		}
		if !from.IsZero() && c.PlannedStart != nil && c.PlannedStart.Before(from) {
			continue
		}
		if !to.IsZero() && c.PlannedEnd != nil && c.PlannedEnd.After(to) {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) AppendPlanActions(_ context.Context, actions []model.PlanAction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actions = append(s.actions, actions...)
	return nil
}

func (s *MemoryStore) SaveChunks(_ context.Context, captureID string, chunks []model.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]model.Chunk, len(chunks))
	copy(cp, chunks)
	s.chunks[captureID] = cp
	return nil
}

func (s *MemoryStore) SaveRunSummary(_ context.Context, run model.PlanRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, run)
	return nil
}

// Actions returns a snapshot of all appended plan actions, for assertions.
func (s *MemoryStore) Actions() []model.PlanAction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.PlanAction, len(s.actions))
	copy(out, s.actions)
	return out
}

// Chunks returns the chunks saved for a capture, for assertions.
func (s *MemoryStore) Chunks(captureID string) []model.Chunk {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Chunk(nil), s.chunks[captureID]...)
}

// Runs returns a snapshot of all saved plan runs, for assertions.
func (s *MemoryStore) Runs() []model.PlanRun {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.PlanRun, len(s.runs))
	copy(out, s.runs)
	return out
}
