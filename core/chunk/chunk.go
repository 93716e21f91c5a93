// Package chunk splits a duration into segments and places them within a
// range.
package chunk

import (
	"fmt"
	"time"

	"github.com/kilianp07/diaguru/core/busy"
	"github.com/kilianp07/diaguru/core/model"
	"github.com/kilianp07/diaguru/core/timez"
)

// SlotIncrement is the rounding granularity for total duration.
const SlotIncrement = 15 * time.Minute

// DefaultTargetChunk is the default preferred chunk length.
const DefaultTargetChunk = 50

// GenerateDurations computes the ordered list of chunk minute-lengths for a
// total duration, honoring minChunk and maxSplits. Every returned chunk is
// at least minChunk minutes; if no split count achieves that, the whole
// duration is returned as a single chunk.
func GenerateDurations(total, minChunk, maxSplits int, allowSplit bool, targetChunk int) []int {
	rounded := roundUp15(total)
	if !allowSplit || maxSplits <= 1 {
		return []int{rounded}
	}
	if targetChunk <= 0 {
		targetChunk = DefaultTargetChunk
	}
	if minChunk <= 0 {
		minChunk = 1
	}

	byTarget := rounded / targetChunk
	if rounded%targetChunk != 0 {
		byTarget++
	}
	byMinChunk := rounded / minChunk

	start := minInt(maxSplits, byTarget)
	start = minInt(start, byMinChunk)
	if start < 1 {
		start = 1
	}

	// Try decreasing split counts until every resulting chunk clears
	// minChunk; count=1 always works since it has no per-chunk floor to
	// clear beyond the capture's own duration.
	for count := start; count >= 1; count-- {
		base := (rounded / count / 15) * 15
		if base <= 0 || (base < minChunk && count > 1) {
			continue
		}

		durations := make([]int, count)
		for i := range durations {
			durations[i] = base
		}
		remainder := rounded - base*count
		for i := 0; remainder > 0; i = (i + 1) % count {
			step := minInt(15, remainder)
			durations[i] += step
			remainder -= step
		}
		return durations
	}
	return []int{rounded}
}

func roundUp15(total int) int {
	inc := int(SlotIncrement.Minutes())
	if total%inc == 0 {
		return total
	}
	return (total/inc + 1) * inc
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// Placement is one placed chunk's (start, end).
type Placement struct {
	Start time.Time
	End   time.Time
}

// PlaceWithinRange greedily places each duration in the earliest free
// sub-slot after the previous chunk's end, rejecting the whole plan if any
// chunk cannot fit before re.
func PlaceWithinRange(durations []int, busyIntervals []model.BusyInterval, rs, re time.Time, enforceWorkingWindow bool, startHour, endHour int, tz string) ([]Placement, []model.BusyInterval, error) {
	placements := make([]Placement, 0, len(durations))
	cursor := rs
	working := busyIntervals

	for _, minutes := range durations {
		start, err := nextFreeSlot(cursor, time.Duration(minutes)*time.Minute, re, working, enforceWorkingWindow, startHour, endHour, tz)
		if err != nil {
			return nil, nil, err
		}
		end := start.Add(time.Duration(minutes) * time.Minute)
		if end.After(re) {
			return nil, nil, fmt.Errorf("chunk of %d minutes cannot fit before %s", minutes, re)
		}
		placements = append(placements, Placement{Start: start, End: end})
		working = busy.Register(working, model.BusyInterval{Start: start, End: end})
		cursor = end
	}
	return placements, working, nil
}

func nextFreeSlot(from time.Time, dur time.Duration, upTo time.Time, busyIntervals []model.BusyInterval, enforceWorkingWindow bool, startHour, endHour int, tz string) (time.Time, error) {
	step := 15 * time.Minute
	for t := from; !t.Add(dur).After(upTo); t = t.Add(step) {
		if enforceWorkingWindow {
			ok, err := withinWindowLocal(tz, t, t.Add(dur), startHour, endHour)
			if err != nil {
				return time.Time{}, err
			}
			if !ok {
				continue
			}
		}
		if busy.IsSlotFree(t, t.Add(dur), busyIntervals) {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("no free slot of %s found before %s", dur, upTo)
}

func withinWindowLocal(tz string, s, e time.Time, startHour, endHour int) (bool, error) {
	return timez.WithinWorkingWindow(tz, s, e, startHour, endHour)
}
