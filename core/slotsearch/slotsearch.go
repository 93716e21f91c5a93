// Package slotsearch finds the earliest feasible placement for a duration
// against a busy set, under working-window, deadline, window and
// preferred-time-of-day constraints. Tie-break is always "earliest start".
package slotsearch

import (
	"fmt"
	"time"

	"github.com/kilianp07/diaguru/core/busy"
	"github.com/kilianp07/diaguru/core/model"
	"github.com/kilianp07/diaguru/core/timez"
)

// SearchDays bounds how many days ahead the sweep runs.
const SearchDays = 7

// Step is the sweep granularity.
const Step = 15 * time.Minute

// Options configures a next-available search.
type Options struct {
	StartFrom            time.Time
	ReferenceNow         time.Time
	EnforceWorkingWindow bool
	PreferredTimeOfDay   []model.TimeOfDay
	TZ                   string
	StartHour, EndHour   int
}

var timeOfDayBands = map[model.TimeOfDay][2]int{
	model.TimeOfDayMorning:   {8, 12},
	model.TimeOfDayAfternoon: {12, 17},
	model.TimeOfDayEvening:   {17, 21},
	model.TimeOfDayNight:     {21, 24},
}

// FindNextAvailable sweeps forward from opts.StartFrom (or ReferenceNow)
// for the earliest slot that fits duration and the configured constraints.
func FindNextAvailable(busyIntervals []model.BusyInterval, duration time.Duration, opts Options) (time.Time, error) {
	start := opts.StartFrom
	if start.IsZero() {
		start = opts.ReferenceNow
	}

	if len(opts.PreferredTimeOfDay) > 0 {
		for day := 0; day < SearchDays; day++ {
			for _, band := range opts.PreferredTimeOfDay {
				bounds, ok := timeOfDayBands[band]
				if !ok {
					continue
				}
				loc, err := timez.LoadLocation(opts.TZ)
				if err != nil {
					return time.Time{}, err
				}
				dayLocal := start.In(loc).AddDate(0, 0, day)
				bandStart := time.Date(dayLocal.Year(), dayLocal.Month(), dayLocal.Day(), bounds[0], 0, 0, 0, loc)
				bandEnd := time.Date(dayLocal.Year(), dayLocal.Month(), dayLocal.Day(), bounds[1], 0, 0, 0, loc)
				if bandStart.Before(start) {
					bandStart = start
				}
				if slot, ok := sweep(bandStart, bandEnd.Add(-duration), duration, busyIntervals, false, opts); ok {
					return slot, nil
				}
			}
		}
		return time.Time{}, fmt.Errorf("no preferred-time-of-day slot found within %d days", SearchDays)
	}

	if opts.EnforceWorkingWindow {
		loc, err := timez.LoadLocation(opts.TZ)
		if err != nil {
			return time.Time{}, err
		}
		for day := 0; day < SearchDays; day++ {
			dayLocal := start.In(loc).AddDate(0, 0, day)
			dayStart := timez.StartOfWorkingDay(dayLocal, opts.StartHour)
			dayEnd := timez.EndOfWorkingDay(dayLocal, opts.EndHour)
			if dayStart.Before(start) {
				dayStart = start
			}
			if slot, ok := sweep(dayStart, dayEnd.Add(-duration), duration, busyIntervals, false, opts); ok {
				return slot, nil
			}
		}
		return time.Time{}, fmt.Errorf("no working-window slot found within %d days", SearchDays)
	}

	end := start.Add(time.Duration(SearchDays) * 24 * time.Hour)
	if slot, ok := sweep(start, end.Add(-duration), duration, busyIntervals, false, opts); ok {
		return slot, nil
	}
	return time.Time{}, fmt.Errorf("no slot found within %d days", SearchDays)
}

// FindBeforeDeadline sweeps confined to [now, deadline-duration].
func FindBeforeDeadline(busyIntervals []model.BusyInterval, duration time.Duration, deadline, now time.Time, opts Options) (time.Time, error) {
	latestStart := deadline.Add(-duration)
	if latestStart.Before(now) {
		return time.Time{}, fmt.Errorf("deadline %s leaves no room for a %s slot", deadline, duration)
	}
	if slot, ok := sweep(now, latestStart, duration, busyIntervals, opts.EnforceWorkingWindow, opts); ok {
		return slot, nil
	}
	return time.Time{}, fmt.Errorf("no slot before deadline %s", deadline)
}

// FindWithinWindow sweeps confined to [max(ws, now), we-duration].
func FindWithinWindow(busyIntervals []model.BusyInterval, duration time.Duration, ws, we, now time.Time, opts Options) (time.Time, error) {
	from := ws
	if now.After(from) {
		from = now
	}
	latestStart := we.Add(-duration)
	if latestStart.Before(from) {
		return time.Time{}, fmt.Errorf("window [%s,%s] leaves no room for a %s slot", ws, we, duration)
	}
	if slot, ok := sweep(from, latestStart, duration, busyIntervals, opts.EnforceWorkingWindow, opts); ok {
		return slot, nil
	}
	return time.Time{}, fmt.Errorf("no slot within window [%s,%s]", ws, we)
}

// FindLatePlacement behaves like FindNextAvailable, starting strictly after
// the missed deadline.
func FindLatePlacement(busyIntervals []model.BusyInterval, duration time.Duration, startFrom time.Time, opts Options) (time.Time, error) {
	o := opts
	o.StartFrom = startFrom.Add(time.Minute)
	return FindNextAvailable(busyIntervals, duration, o)
}

func sweep(from, latestStart time.Time, duration time.Duration, busyIntervals []model.BusyInterval, enforceWorkingWindow bool, opts Options) (time.Time, bool) {
	for t := roundUpToStep(from); !t.After(latestStart); t = t.Add(Step) {
		end := t.Add(duration)
		if enforceWorkingWindow {
			ok, err := timez.WithinWorkingWindow(opts.TZ, t, end, opts.StartHour, opts.EndHour)
			if err != nil || !ok {
				continue
			}
		}
		if busy.IsSlotFree(t, end, busyIntervals) {
			return t, true
		}
	}
	return time.Time{}, false
}

func roundUpToStep(t time.Time) time.Time {
	trunc := t.Truncate(Step)
	if trunc.Before(t) {
		return trunc.Add(Step)
	}
	return trunc
}
