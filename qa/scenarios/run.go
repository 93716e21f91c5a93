package scenarios

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kilianp07/diaguru/core/calendar"
	"github.com/kilianp07/diaguru/core/model"
	"github.com/kilianp07/diaguru/core/routine"
	"github.com/kilianp07/diaguru/core/scheduler"
	"github.com/kilianp07/diaguru/core/store"
)

// memCalendar is a Gateway backed by a fixed, pre-seeded event set, mirroring
// the api package's in-memory test double.
type memCalendar struct {
	mu     sync.Mutex
	events map[string]model.CalendarEvent
	seq    int
}

func newMemCalendar(events ...model.CalendarEvent) *memCalendar {
	c := &memCalendar{events: map[string]model.CalendarEvent{}}
	for _, ev := range events {
		if ev.ID == "" {
			c.seq++
			ev.ID = "seed-ev-" + string(rune('0'+c.seq))
		}
		c.events[ev.ID] = ev
	}
	return c
}

func (c *memCalendar) List(_ context.Context, _ string, from, to time.Time) ([]model.CalendarEvent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []model.CalendarEvent
	for _, ev := range c.events {
		if ev.Start.Before(to) && ev.End.After(from) {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (c *memCalendar) Create(_ context.Context, _ string, ev model.CalendarEvent) (model.CalendarEvent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	ev.ID = "ev-" + string(rune('0'+c.seq))
	ev.VersionTag = "v1"
	c.events[ev.ID] = ev
	return ev, nil
}

func (c *memCalendar) Delete(_ context.Context, _ string, id, _ string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.events, id)
	return nil
}

func (c *memCalendar) Get(_ context.Context, _ string, id string) (model.CalendarEvent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ev, ok := c.events[id]
	if !ok {
		return model.CalendarEvent{}, errors.New("event not found: " + id)
	}
	return ev, nil
}

var _ calendar.Gateway = (*memCalendar)(nil)

// RunScenario drives sc through the harness its Kind selects and fails t on
// any mismatch against sc.Expected.
func RunScenario(t *testing.T, sc *Scenario) {
	t.Helper()
	switch sc.Kind {
	case "routine_normalize":
		runRoutineNormalize(t, sc)
	default:
		runSchedule(t, sc)
	}
}

func runRoutineNormalize(t *testing.T, sc *Scenario) {
	t.Helper()
	if len(sc.Captures) != 1 {
		t.Fatalf("routine_normalize scenario %s needs exactly one capture, got %d", sc.Name, len(sc.Captures))
	}
	cap := sc.Captures[0].ToModel()

	n := routine.New(sc.Timezone)
	if err := n.Normalize(cap, sc.ReferenceNow); err != nil {
		t.Fatalf("scenario %s: normalize: %v", sc.Name, err)
	}

	exp := sc.Expected
	if exp.ConstraintType != "" && cap.ConstraintKind != model.NormalizeConstraintKind(exp.ConstraintType) {
		t.Errorf("scenario %s: constraint_type = %s, want %s", sc.Name, cap.ConstraintKind, exp.ConstraintType)
	}
	if exp.CannotOverlap != nil && cap.CannotOverlap != *exp.CannotOverlap {
		t.Errorf("scenario %s: cannot_overlap = %v, want %v", sc.Name, cap.CannotOverlap, *exp.CannotOverlap)
	}
	if exp.WindowStart != nil {
		if cap.WindowStart == nil || !cap.WindowStart.Equal(*exp.WindowStart) {
			t.Errorf("scenario %s: window_start = %v, want %v", sc.Name, cap.WindowStart, exp.WindowStart)
		}
	}
	if exp.WindowEnd != nil {
		if cap.WindowEnd == nil || !cap.WindowEnd.Equal(*exp.WindowEnd) {
			t.Errorf("scenario %s: window_end = %v, want %v", sc.Name, cap.WindowEnd, exp.WindowEnd)
		}
	}
}

func runSchedule(t *testing.T, sc *Scenario) {
	t.Helper()
	st := store.NewMemoryStore()
	for _, cf := range sc.Captures {
		st.Seed(cf.ToModel())
	}

	events := make([]model.CalendarEvent, 0, len(sc.Events))
	for _, ef := range sc.Events {
		events = append(events, ef.ToModel())
	}
	cal := newMemCalendar(events...)

	cfg := scheduler.DefaultSchedulerConfig()
	if sc.Timezone != "" {
		cfg.Timezone = sc.Timezone
	}
	referenceNow := sc.ReferenceNow
	orch := scheduler.New(cfg, cal, st, scheduler.WithClock(func() time.Time { return referenceNow }))

	req := sc.Request.toRequest()
	res, err := orch.Schedule(context.Background(), req)

	exp := sc.Expected
	if exp.Status != 0 {
		var schedErr *scheduler.ScheduleError
		if !errors.As(err, &schedErr) {
			t.Fatalf("scenario %s: expected *scheduler.ScheduleError, got %v", sc.Name, err)
		}
		if schedErr.Status != exp.Status {
			t.Errorf("scenario %s: status = %d, want %d", sc.Name, schedErr.Status, exp.Status)
		}
		if exp.Reason != "" && schedErr.Reason != exp.Reason {
			t.Errorf("scenario %s: reason = %s, want %s", sc.Name, schedErr.Reason, exp.Reason)
		}
		return
	}

	if err != nil {
		t.Fatalf("scenario %s: unexpected error: %v", sc.Name, err)
	}

	if exp.DecisionType != "" {
		if res.Decision == nil {
			t.Fatalf("scenario %s: expected decision %q, got none", sc.Name, exp.DecisionType)
		}
		if res.Decision.Type != exp.DecisionType {
			t.Errorf("scenario %s: decision type = %s, want %s", sc.Name, res.Decision.Type, exp.DecisionType)
		}
		return
	}

	if exp.ChunkCount != 0 && len(res.Chunks) != exp.ChunkCount {
		t.Errorf("scenario %s: chunk count = %d, want %d", sc.Name, len(res.Chunks), exp.ChunkCount)
	}
	if exp.ChunkStart != nil || exp.ChunkEnd != nil {
		if len(res.Chunks) == 0 {
			t.Fatalf("scenario %s: expected a chunk to check start/end, got none", sc.Name)
		}
		first := res.Chunks[0]
		if exp.ChunkStart != nil && !first.Start.Equal(*exp.ChunkStart) {
			t.Errorf("scenario %s: chunk start = %v, want %v", sc.Name, first.Start, exp.ChunkStart)
		}
		if exp.ChunkEnd != nil && !first.End.Equal(*exp.ChunkEnd) {
			t.Errorf("scenario %s: chunk end = %v, want %v", sc.Name, first.End, exp.ChunkEnd)
		}
	}
	if exp.AnyChunkLate {
		if !anyChunk(res.Chunks, func(c model.Chunk) bool { return c.Late }) {
			t.Errorf("scenario %s: expected at least one late chunk", sc.Name)
		}
	}
	if exp.AnyOverlapped {
		if !anyChunk(res.Chunks, func(c model.Chunk) bool { return c.Overlapped }) {
			t.Errorf("scenario %s: expected at least one overlapped chunk", sc.Name)
		}
	}
	if exp.PrimeCaptureID != "" {
		if res.Overlap == nil {
			t.Fatalf("scenario %s: expected overlap info, got none", sc.Name)
		}
		if res.Overlap.PrimeID != exp.PrimeCaptureID {
			t.Errorf("scenario %s: prime id = %s, want %s", sc.Name, res.Overlap.PrimeID, exp.PrimeCaptureID)
		}
	}
}

func anyChunk(chunks []model.Chunk, pred func(model.Chunk) bool) bool {
	for _, c := range chunks {
		if pred(c) {
			return true
		}
	}
	return false
}

func (f RequestFixture) toRequest() scheduler.Request {
	action := f.Action
	if action == "" {
		action = "schedule"
	}
	return scheduler.Request{
		CaptureID:             f.CaptureID,
		OwnerID:               f.OwnerID,
		Action:                action,
		Timezone:              f.Timezone,
		TimezoneOffsetMinutes: f.TimezoneOffsetMinutes,
		PreferredStart:        f.PreferredStart,
		PreferredEnd:          f.PreferredEnd,
		AllowOverlap:          f.AllowOverlap,
		AllowRebalance:        f.AllowRebalance,
		AllowLatePlacement:    f.AllowLatePlacement,
	}
}
