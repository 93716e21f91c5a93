// Package busy expands calendar events into buffered intervals and answers
// slot-freedom queries over them.
package busy

import (
	"sort"
	"time"

	"github.com/kilianp07/diaguru/core/model"
)

// DefaultBuffer and CompressedBuffer are the symmetric paddings applied to
// each event.
const (
	DefaultBuffer    = 10 * time.Minute
	CompressedBuffer = 5 * time.Minute
)

// Compute expands events into a sorted slice of buffered intervals. An
// in-progress event (start <= now < end) uses zero buffer on both sides.
// The result is permutation-invariant in events and monotone in buffer.
func Compute(events []model.CalendarEvent, buffer time.Duration, now time.Time) []model.BusyInterval {
	out := make([]model.BusyInterval, 0, len(events))
	for _, ev := range events {
		b := buffer
		if !ev.Start.After(now) && ev.End.After(now) {
			b = 0
		}
		out = append(out, model.BusyInterval{
			Start:          ev.Start.Add(-b),
			End:            ev.End.Add(b),
			OwnerCaptureID: ev.CaptureID(),
			EventID:        ev.ID,
			External:       !ev.IsOwned(),
		})
	}
	sortIntervals(out)
	return out
}

func sortIntervals(intervals []model.BusyInterval) {
	sort.Slice(intervals, func(i, j int) bool {
		if intervals[i].Start.Equal(intervals[j].Start) {
			return intervals[i].End.Before(intervals[j].End)
		}
		return intervals[i].Start.Before(intervals[j].Start)
	})
}

// IsSlotFree reports whether [s, e) overlaps none of intervals.
func IsSlotFree(s, e time.Time, intervals []model.BusyInterval) bool {
	for _, b := range intervals {
		if b.Overlaps(s, e) {
			return false
		}
	}
	return true
}

// Register inserts a newly committed interval and returns the re-sorted
// slice.
func Register(intervals []model.BusyInterval, slot model.BusyInterval) []model.BusyInterval {
	out := make([]model.BusyInterval, len(intervals), len(intervals)+1)
	copy(out, intervals)
	out = append(out, slot)
	sortIntervals(out)
	return out
}

// WithoutEvents returns intervals with any entry whose EventID is in
// excluded removed, preserving order — used by preemption's combinatorial
// re-evaluation.
func WithoutEvents(intervals []model.BusyInterval, excluded map[string]bool) []model.BusyInterval {
	out := make([]model.BusyInterval, 0, len(intervals))
	for _, b := range intervals {
		if excluded[b.EventID] {
			continue
		}
		out = append(out, b)
	}
	return out
}
