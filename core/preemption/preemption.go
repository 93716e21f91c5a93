// Package preemption selects minimal displacement sets and scores their
// net-gain.
package preemption

import (
	"time"

	"github.com/kilianp07/diaguru/core/busy"
	"github.com/kilianp07/diaguru/core/model"
	"github.com/kilianp07/diaguru/core/priority"
)

// MaxCombinationSize and MaxCombinations bound the combinatorial search so
// it stays cheap even against a busy calendar.
const (
	MaxCombinationSize = 4
	MaxCombinations    = 64
)

// StabilityWindow is the interval before a planned start during which a
// capture is immune to displacement, unless plan.mode=deadline.
const StabilityWindow = 30 * time.Minute

// SelectMinimalSet tries every combination of size 1..MaxCombinationSize
// (capped at MaxCombinations) over candidateIDs, recomputing busy intervals
// with the remaining events, and returns the smallest combination whose
// removal makes slot feasible. allowCompressedBuffer additionally retries
// each combination with the compressed buffer.
func SelectMinimalSet(slot model.Window, events []model.CalendarEvent, intervals []model.BusyInterval, candidateIDs []string, allowCompressedBuffer bool) ([]string, bool) {
	n := len(candidateIDs)
	tried := 0

	for size := 1; size <= MaxCombinationSize && size <= n; size++ {
		found := false
		var result []string
		forEachCombination(candidateIDs, size, func(combo []string) bool {
			tried++
			if tried > MaxCombinations {
				return false
			}
			excluded := map[string]bool{}
			for _, id := range combo {
				excluded[id] = true
			}
			remaining := excludeByCaptureID(intervals, events, excluded)
			if busy.IsSlotFree(slot.Start, slot.End, remaining) {
				found = true
				result = append([]string(nil), combo...)
				return false
			}
			if allowCompressedBuffer {
				remaining = busy.Compute(eventsExcluding(events, excluded), busy.CompressedBuffer, slot.Start)
				if busy.IsSlotFree(slot.Start, slot.End, remaining) {
					found = true
					result = append([]string(nil), combo...)
					return false
				}
			}
			return tried <= MaxCombinations
		})
		if found {
			return result, true
		}
		if tried > MaxCombinations {
			break
		}
	}
	return nil, false
}

func excludeByCaptureID(intervals []model.BusyInterval, events []model.CalendarEvent, excluded map[string]bool) []model.BusyInterval {
	eventIDs := map[string]bool{}
	for _, ev := range events {
		if excluded[ev.CaptureID()] {
			eventIDs[ev.ID] = true
		}
	}
	return busy.WithoutEvents(intervals, eventIDs)
}

func eventsExcluding(events []model.CalendarEvent, excludedCaptureIDs map[string]bool) []model.CalendarEvent {
	out := make([]model.CalendarEvent, 0, len(events))
	for _, ev := range events {
		if excludedCaptureIDs[ev.CaptureID()] {
			continue
		}
		out = append(out, ev)
	}
	return out
}

// forEachCombination calls fn with every size-sized combination of items, in
// lexicographic order, stopping early if fn returns false.
func forEachCombination(items []string, size int, fn func(combo []string) bool) {
	n := len(items)
	if size > n {
		return
	}
	idx := make([]int, size)
	for i := range idx {
		idx[i] = i
	}
	for {
		combo := make([]string, size)
		for i, v := range idx {
			combo[i] = items[v]
		}
		if !fn(combo) {
			return
		}
		i := size - 1
		for i >= 0 && idx[i] == n-size+i {
			i--
		}
		if i < 0 {
			return
		}
		idx[i]++
		for j := i + 1; j < size; j++ {
			idx[j] = idx[j-1] + 1
		}
	}
}

// Displacement describes one owned event selected for removal.
type Displacement struct {
	Capture        *model.Capture
	MinutesClaimed int
}

// NetGainResult is the outcome of evaluating a candidate preemption.
type NetGainResult struct {
	Benefit       float64
	Cost          float64
	Net           float64
	PerMinuteGain float64
}

// Thresholds gates net-gain acceptance.
type Thresholds struct {
	NetGainFloor       float64
	PerMinuteGainFloor float64
	MaxDisplacedMinutes int
	MaxDisplacedTasks   int
}

// DefaultThresholds returns conservative defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		NetGainFloor:        10,
		PerMinuteGainFloor:  0.2,
		MaxDisplacedMinutes: 240,
		MaxDisplacedTasks:   4,
	}
}

// EvaluateNetGain computes benefit, cost and net gain for displacing
// displacements in favor of target claiming minutesClaimed.
func EvaluateNetGain(target *model.Capture, displacements []Displacement, minutesClaimed int, referenceNow time.Time, w priority.Weights, overlapCostPerMinute float64) NetGainResult {
	targetPerMinute := priority.Score(target, referenceNow, w) / float64(maxInt(target.DurationMinutes(), 1))
	benefit := targetPerMinute * float64(minutesClaimed)

	cost := 0.0
	for _, d := range displacements {
		perMinute := priority.Score(d.Capture, referenceNow, w) / float64(maxInt(d.Capture.DurationMinutes(), 1))
		cost += perMinute*float64(d.MinutesClaimed) + overlapCostPerMinute*float64(d.MinutesClaimed)
	}

	net := benefit - cost
	perMinuteGain := 0.0
	if minutesClaimed > 0 {
		perMinuteGain = net / float64(minutesClaimed)
	}
	return NetGainResult{Benefit: benefit, Cost: cost, Net: net, PerMinuteGain: perMinuteGain}
}

// Allow reports whether a NetGainResult clears the configured thresholds and
// displacement-count/minute limits.
func (r NetGainResult) Allow(t Thresholds, displacedCount, displacedMinutes int) bool {
	return r.Net >= t.NetGainFloor &&
		r.PerMinuteGain >= t.PerMinuteGainFloor &&
		displacedCount <= t.MaxDisplacedTasks &&
		displacedMinutes <= t.MaxDisplacedMinutes
}

// IsMovable reports whether a candidate capture may be displaced: not
// frozen, and not within the stability window before its planned start —
// unless bypassStability is set (plan.mode=deadline).
func IsMovable(c *model.Capture, now time.Time, bypassStability bool) bool {
	if c.IsFrozen(now) {
		return false
	}
	if bypassStability {
		return true
	}
	if c.PlannedStart == nil {
		return true
	}
	return c.PlannedStart.Sub(now) > StabilityWindow || c.PlannedStart.Before(now)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
