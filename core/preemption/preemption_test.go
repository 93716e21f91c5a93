package preemption

import (
	"testing"
	"time"

	"github.com/kilianp07/diaguru/core/busy"
	"github.com/kilianp07/diaguru/core/model"
	"github.com/kilianp07/diaguru/core/priority"
)

func ownedEvent(id, captureID string, start, end time.Time) model.CalendarEvent {
	return model.CalendarEvent{
		ID:    id,
		Start: start,
		End:   end,
		Properties: map[string]string{
			model.DiaGuruPropertyKey:   "true",
			model.CaptureIDPropertyKey: captureID,
		},
	}
}

func TestSelectMinimalSetFindsSmallestFeasibleCombo(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	slot := model.Window{Start: now.Add(time.Hour), End: now.Add(2 * time.Hour)}

	events := []model.CalendarEvent{
		ownedEvent("ev-a", "cap-a", slot.Start, slot.End),
		ownedEvent("ev-b", "cap-b", now.Add(5*time.Hour), now.Add(6*time.Hour)),
	}
	intervals := busy.Compute(events, busy.DefaultBuffer, now)

	combo, found := SelectMinimalSet(slot, events, intervals, []string{"cap-a", "cap-b"}, false)
	if !found {
		t.Fatalf("expected a feasible combination to be found")
	}
	if len(combo) != 1 || combo[0] != "cap-a" {
		t.Fatalf("expected the minimal set to be [cap-a], got %v", combo)
	}
}

func TestSelectMinimalSetReturnsFalseWhenNoCandidatesClearTheSlot(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	slot := model.Window{Start: now.Add(time.Hour), End: now.Add(2 * time.Hour)}

	// The slot is blocked by an external event, which no owned candidate's
	// exclusion can remove, plus an owned event whose capture isn't a
	// candidate here.
	events := []model.CalendarEvent{
		{ID: "ev-ext", Start: slot.Start, End: slot.End},
		ownedEvent("ev-b", "cap-b", now.Add(5*time.Hour), now.Add(6*time.Hour)),
	}
	intervals := busy.Compute(events, busy.DefaultBuffer, now)

	_, found := SelectMinimalSet(slot, events, intervals, []string{"cap-b"}, false)
	if found {
		t.Fatalf("expected no feasible combination")
	}
}

func TestSelectMinimalSetRetriesWithCompressedBuffer(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	slot := model.Window{Start: now.Add(time.Hour), End: now.Add(2 * time.Hour)}

	// The candidate's event sits in the slot itself. A non-candidate event
	// ends 7 minutes before the slot starts: the default 10-minute buffer
	// still overlaps the slot, but the 5-minute compressed buffer clears it.
	evEnd := slot.Start.Add(-7 * time.Minute)
	events := []model.CalendarEvent{
		ownedEvent("ev-a", "cap-a", slot.Start, slot.End),
		ownedEvent("ev-x", "cap-x", evEnd.Add(-30*time.Minute), evEnd),
	}
	intervals := busy.Compute(events, busy.DefaultBuffer, now)

	if busy.IsSlotFree(slot.Start, slot.End, intervals) {
		t.Fatalf("test setup invalid: slot should not be free under the default buffer")
	}

	_, found := SelectMinimalSet(slot, events, intervals, []string{"cap-a"}, false)
	if found {
		t.Fatalf("expected the default-buffer search to fail without compression")
	}

	combo, found := SelectMinimalSet(slot, events, intervals, []string{"cap-a"}, true)
	if !found {
		t.Fatalf("expected the compressed-buffer retry to find a feasible combination")
	}
	if len(combo) != 1 || combo[0] != "cap-a" {
		t.Fatalf("expected [cap-a], got %v", combo)
	}
}

func TestSelectMinimalSetRespectsMaxCombinationSize(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	slot := model.Window{Start: now.Add(time.Hour), End: now.Add(2 * time.Hour)}

	// Five owned events all overlapping the slot; freeing it requires
	// excluding all five, which exceeds MaxCombinationSize.
	var events []model.CalendarEvent
	var candidateIDs []string
	for i := 0; i < 5; i++ {
		id := string(rune('a' + i))
		events = append(events, ownedEvent("ev-"+id, "cap-"+id, slot.Start, slot.End))
		candidateIDs = append(candidateIDs, "cap-"+id)
	}
	intervals := busy.Compute(events, busy.DefaultBuffer, now)

	_, found := SelectMinimalSet(slot, events, intervals, candidateIDs, false)
	if found {
		t.Fatalf("expected no combination within MaxCombinationSize to clear the slot")
	}
}

func TestEvaluateNetGainFavorsHigherPriorityTarget(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	w := priority.DefaultWeights()

	target := &model.Capture{Importance: 9, EstimatedMinutes: 60, CreatedAt: now}
	displaced := &model.Capture{Importance: 1, EstimatedMinutes: 60, CreatedAt: now}

	result := EvaluateNetGain(target, []Displacement{{Capture: displaced, MinutesClaimed: 60}}, 60, now, w, 0)
	if result.Net <= 0 {
		t.Fatalf("expected a positive net gain displacing a much lower priority capture, got %+v", result)
	}
}

func TestEvaluateNetGainPenalizesDisplacingHigherPriority(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	w := priority.DefaultWeights()

	target := &model.Capture{Importance: 1, EstimatedMinutes: 60, CreatedAt: now}
	displaced := &model.Capture{Importance: 9, EstimatedMinutes: 60, CreatedAt: now}

	result := EvaluateNetGain(target, []Displacement{{Capture: displaced, MinutesClaimed: 60}}, 60, now, w, 0)
	if result.Net >= 0 {
		t.Fatalf("expected a negative net gain displacing a much higher priority capture, got %+v", result)
	}
}

func TestNetGainResultAllow(t *testing.T) {
	thresholds := DefaultThresholds()

	good := NetGainResult{Net: 20, PerMinuteGain: 1}
	if !good.Allow(thresholds, 1, 30) {
		t.Fatalf("expected a result clearing both floors to be allowed")
	}

	belowFloor := NetGainResult{Net: 1, PerMinuteGain: 1}
	if belowFloor.Allow(thresholds, 1, 30) {
		t.Fatalf("expected a result below the net-gain floor to be rejected")
	}

	tooManyTasks := NetGainResult{Net: 20, PerMinuteGain: 1}
	if tooManyTasks.Allow(thresholds, thresholds.MaxDisplacedTasks+1, 30) {
		t.Fatalf("expected a result exceeding MaxDisplacedTasks to be rejected")
	}

	tooManyMinutes := NetGainResult{Net: 20, PerMinuteGain: 1}
	if tooManyMinutes.Allow(thresholds, 1, thresholds.MaxDisplacedMinutes+1) {
		t.Fatalf("expected a result exceeding MaxDisplacedMinutes to be rejected")
	}
}

func TestIsMovableRejectsFrozenCapture(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	freezeUntil := now.Add(time.Hour)
	c := &model.Capture{FreezeUntil: &freezeUntil}
	if IsMovable(c, now, false) {
		t.Fatalf("expected a frozen capture to be immovable")
	}
}

func TestIsMovableRejectsWithinStabilityWindow(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	plannedStart := now.Add(15 * time.Minute)
	c := &model.Capture{PlannedStart: &plannedStart}
	if IsMovable(c, now, false) {
		t.Fatalf("expected a capture inside the stability window to be immovable")
	}
}

func TestIsMovableAllowsOutsideStabilityWindow(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	plannedStart := now.Add(2 * time.Hour)
	c := &model.Capture{PlannedStart: &plannedStart}
	if !IsMovable(c, now, false) {
		t.Fatalf("expected a capture outside the stability window to be movable")
	}
}

func TestIsMovableBypassStabilityIgnoresPlannedStart(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	plannedStart := now.Add(5 * time.Minute)
	c := &model.Capture{PlannedStart: &plannedStart}
	if !IsMovable(c, now, true) {
		t.Fatalf("expected bypassStability to ignore the stability window")
	}
}
