package busy

import (
	"testing"
	"time"

	"github.com/kilianp07/diaguru/core/model"
)

func event(id string, start, end time.Time, owned bool) model.CalendarEvent {
	ev := model.CalendarEvent{ID: id, Start: start, End: end}
	if owned {
		ev.Properties = map[string]string{
			model.DiaGuruPropertyKey:   "true",
			model.CaptureIDPropertyKey: "cap-" + id,
		}
	}
	return ev
}

func TestComputeAppliesSymmetricBuffer(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	start := now.Add(time.Hour)
	end := start.Add(30 * time.Minute)
	out := Compute([]model.CalendarEvent{event("ev-1", start, end, false)}, DefaultBuffer, now)
	if len(out) != 1 {
		t.Fatalf("expected one interval, got %d", len(out))
	}
	if !out[0].Start.Equal(start.Add(-DefaultBuffer)) {
		t.Fatalf("expected buffered start %v, got %v", start.Add(-DefaultBuffer), out[0].Start)
	}
	if !out[0].End.Equal(end.Add(DefaultBuffer)) {
		t.Fatalf("expected buffered end %v, got %v", end.Add(DefaultBuffer), out[0].End)
	}
}

func TestComputeZeroesBufferForInProgressEvent(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	start := now.Add(-10 * time.Minute)
	end := now.Add(20 * time.Minute)
	out := Compute([]model.CalendarEvent{event("ev-1", start, end, false)}, DefaultBuffer, now)
	if !out[0].Start.Equal(start) || !out[0].End.Equal(end) {
		t.Fatalf("expected no buffer on an in-progress event, got [%v,%v]", out[0].Start, out[0].End)
	}
}

func TestComputeMarksExternalVersusOwned(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	owned := event("ev-owned", now.Add(time.Hour), now.Add(2*time.Hour), true)
	external := event("ev-ext", now.Add(3*time.Hour), now.Add(4*time.Hour), false)
	out := Compute([]model.CalendarEvent{owned, external}, DefaultBuffer, now)

	var sawOwned, sawExternal bool
	for _, b := range out {
		if b.EventID == "ev-owned" {
			sawOwned = true
			if b.External {
				t.Fatalf("owned event should not be marked external")
			}
			if b.OwnerCaptureID != "cap-ev-owned" {
				t.Fatalf("expected owner capture id to carry through, got %q", b.OwnerCaptureID)
			}
		}
		if b.EventID == "ev-ext" {
			sawExternal = true
			if !b.External {
				t.Fatalf("unowned event should be marked external")
			}
		}
	}
	if !sawOwned || !sawExternal {
		t.Fatalf("expected both intervals present, got %v", out)
	}
}

func TestComputeSortsByStart(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	later := event("later", now.Add(5*time.Hour), now.Add(6*time.Hour), false)
	earlier := event("earlier", now.Add(time.Hour), now.Add(2*time.Hour), false)
	out := Compute([]model.CalendarEvent{later, earlier}, 0, now)
	if out[0].EventID != "earlier" || out[1].EventID != "later" {
		t.Fatalf("expected sorted order, got %v", out)
	}
}

func TestIsSlotFree(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	intervals := []model.BusyInterval{
		{Start: now, End: now.Add(time.Hour)},
	}
	if IsSlotFree(now.Add(30*time.Minute), now.Add(90*time.Minute), intervals) {
		t.Fatalf("expected overlapping slot to be reported busy")
	}
	if !IsSlotFree(now.Add(2*time.Hour), now.Add(3*time.Hour), intervals) {
		t.Fatalf("expected non-overlapping slot to be reported free")
	}
}

func TestRegisterInsertsAndResorts(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	existing := []model.BusyInterval{
		{Start: now.Add(3 * time.Hour), End: now.Add(4 * time.Hour)},
	}
	updated := Register(existing, model.BusyInterval{Start: now, End: now.Add(time.Hour)})
	if len(updated) != 2 {
		t.Fatalf("expected 2 intervals, got %d", len(updated))
	}
	if !updated[0].Start.Equal(now) {
		t.Fatalf("expected the newly registered interval to sort first, got %v", updated[0].Start)
	}
	if len(existing) != 1 {
		t.Fatalf("expected Register not to mutate the input slice, got len %d", len(existing))
	}
}

func TestWithoutEventsRemovesByEventID(t *testing.T) {
	intervals := []model.BusyInterval{
		{EventID: "keep"},
		{EventID: "drop"},
	}
	out := WithoutEvents(intervals, map[string]bool{"drop": true})
	if len(out) != 1 || out[0].EventID != "keep" {
		t.Fatalf("expected only the kept interval to remain, got %v", out)
	}
}
