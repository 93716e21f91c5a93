package routine

import (
	"testing"
	"time"

	"github.com/kilianp07/diaguru/core/model"
)

func TestNormalizeIgnoresNonRoutineCapture(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	c := &model.Capture{TaskTypeHint: "other"}
	if err := New("UTC").Normalize(c, now); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if c.ConstraintKind != "" {
		t.Fatalf("expected a non-routine capture to be left untouched, got %+v", c)
	}
}

func TestNormalizeSleepSetsOvernightWindow(t *testing.T) {
	now := time.Date(2026, 3, 2, 18, 0, 0, 0, time.UTC)
	c := &model.Capture{TaskTypeHint: string(model.RoutineSleep)}
	if err := New("UTC").Normalize(c, now); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if c.ConstraintKind != model.ConstraintWindow {
		t.Fatalf("expected ConstraintWindow, got %v", c.ConstraintKind)
	}
	wantStart := time.Date(2026, 3, 2, 22, 0, 0, 0, time.UTC)
	wantEnd := time.Date(2026, 3, 3, 7, 30, 0, 0, time.UTC)
	if c.WindowStart == nil || !c.WindowStart.Equal(wantStart) {
		t.Fatalf("expected window start %v, got %v", wantStart, c.WindowStart)
	}
	if c.WindowEnd == nil || !c.WindowEnd.Equal(wantEnd) {
		t.Fatalf("expected window end %v, got %v", wantEnd, c.WindowEnd)
	}
	if !c.CannotOverlap {
		t.Fatalf("expected sleep to be non-overlappable")
	}
	if c.DeadlineAt == nil || !c.DeadlineAt.Equal(wantEnd) {
		t.Fatalf("expected deadline_at defaulted to window end, got %v", c.DeadlineAt)
	}
}

func TestNormalizeSleepIsIdempotent(t *testing.T) {
	now := time.Date(2026, 3, 2, 18, 0, 0, 0, time.UTC)
	c := &model.Capture{TaskTypeHint: string(model.RoutineSleep)}
	n := New("UTC")
	if err := n.Normalize(c, now); err != nil {
		t.Fatalf("first normalize: %v", err)
	}
	firstStart, firstEnd := *c.WindowStart, *c.WindowEnd
	if err := n.Normalize(c, now); err != nil {
		t.Fatalf("second normalize: %v", err)
	}
	if !c.WindowStart.Equal(firstStart) || !c.WindowEnd.Equal(firstEnd) {
		t.Fatalf("expected re-normalization to be idempotent, got [%v,%v) vs [%v,%v)", firstStart, firstEnd, c.WindowStart, c.WindowEnd)
	}
}

func TestNormalizeSleepHonorsStartTargetAt(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	anchor := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	c := &model.Capture{
		TaskTypeHint:  string(model.RoutineSleep),
		StartTargetAt: &anchor,
	}
	if err := New("UTC").Normalize(c, now); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	wantStart := time.Date(2026, 3, 5, 22, 0, 0, 0, time.UTC)
	if !c.WindowStart.Equal(wantStart) {
		t.Fatalf("expected window anchored to start_target_at, got %v", c.WindowStart)
	}
}

func TestNormalizeMealSetsMiddayWindow(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	c := &model.Capture{TaskTypeHint: string(model.RoutineMeal)}
	if err := New("UTC").Normalize(c, now); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	wantStart := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	wantEnd := time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC)
	if !c.WindowStart.Equal(wantStart) || !c.WindowEnd.Equal(wantEnd) {
		t.Fatalf("expected [%v,%v), got [%v,%v)", wantStart, wantEnd, c.WindowStart, c.WindowEnd)
	}
	if c.CannotOverlap {
		t.Fatalf("expected meals to allow overlap")
	}
}

func TestNormalizeMealPreservesExplicitWindow(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	explicitStart := time.Date(2026, 3, 2, 13, 0, 0, 0, time.UTC)
	explicitEnd := time.Date(2026, 3, 2, 13, 30, 0, 0, time.UTC)
	c := &model.Capture{
		TaskTypeHint: string(model.RoutineMeal),
		WindowStart:  &explicitStart,
		WindowEnd:    &explicitEnd,
	}
	if err := New("UTC").Normalize(c, now); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if !c.WindowStart.Equal(explicitStart) || !c.WindowEnd.Equal(explicitEnd) {
		t.Fatalf("expected the explicit window to survive normalization, got [%v,%v)", c.WindowStart, c.WindowEnd)
	}
}

func TestApplyFreezeRuleTreatsFreezeAsLock(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	freeze := now.Add(time.Hour)
	c := &model.Capture{TaskTypeHint: string(model.RoutineMeal), FreezeUntil: &freeze}
	if err := New("UTC").Normalize(c, now); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if c.FreezeUntil == nil || !c.FreezeUntil.Equal(freeze) {
		t.Fatalf("expected freeze_until to survive on a frozen capture without a manual touch, got %v", c.FreezeUntil)
	}
}

func TestApplyFreezeRulePreservesManuallyTouchedFreeze(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	freeze := now.Add(time.Hour)
	touch := now
	c := &model.Capture{
		TaskTypeHint:  string(model.RoutineMeal),
		FreezeUntil:   &freeze,
		ManualTouchAt: &touch,
	}
	if err := New("UTC").Normalize(c, now); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if c.FreezeUntil == nil || !c.FreezeUntil.Equal(freeze) {
		t.Fatalf("expected freeze_until to survive on a manually touched capture, got %v", c.FreezeUntil)
	}
}
