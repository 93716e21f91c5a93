// Package routine rewrites sleep/meal captures into explicit local windows.
package routine

import (
	"time"

	"github.com/kilianp07/diaguru/core/model"
	"github.com/kilianp07/diaguru/core/timez"
)

const (
	sleepStartHour = 22
	sleepStartMin  = 0
	sleepEndHour   = 7
	sleepEndMin    = 30

	mealStartHour = 12
	mealEndHour   = 14
)

// Normalizer rewrites routine captures against a configured timezone.
type Normalizer struct {
	TZ string
}

// New returns a Normalizer for the given timezone.
func New(tz string) Normalizer {
	return Normalizer{TZ: tz}
}

// Normalize mutates c in place when it is a routine capture.
// Non-routine captures are left untouched. Normalization is idempotent:
// re-invoking with the same fields (and the same "now" for unanchored
// captures) yields identical results.
func (n Normalizer) Normalize(c *model.Capture, now time.Time) error {
	if !c.IsRoutine() {
		return nil
	}
	switch c.RoutineKind() {
	case model.RoutineSleep:
		return n.normalizeSleep(c, now)
	case model.RoutineMeal:
		return n.normalizeMeal(c, now)
	}
	return nil
}

// baseReference resolves the anchor date for a routine capture: prefer
// start_target_at, then original_target_time, then the bedtime-day implied
// by time_pref_day. "tomorrow" names the wake date, so the bedtime (the
// date nightStart anchors to) is today; "today" names a same-day nap/bedtime
// reference a day ahead of that, i.e. tomorrow's bedtime day.
func (n Normalizer) baseReference(c *model.Capture, now time.Time) time.Time {
	if c.StartTargetAt != nil {
		return *c.StartTargetAt
	}
	if c.OriginalTargetTime != nil {
		return *c.OriginalTargetTime
	}
	if c.TimePrefDay == model.TimePrefDayToday {
		return timez.AddDays(now, 1)
	}
	return now
}

func (n Normalizer) normalizeSleep(c *model.Capture, now time.Time) error {
	base := n.baseReference(c, now)

	nightStart, err := timez.BuildZonedDateTime(n.TZ, base, sleepStartHour, sleepStartMin, false)
	if err != nil {
		return err
	}
	nightEnd, err := timez.BuildZonedDateTime(n.TZ, base, sleepEndHour, sleepEndMin, true)
	if err != nil {
		return err
	}

	c.ConstraintKind = model.ConstraintWindow
	c.WindowStart = &nightStart
	c.WindowEnd = &nightEnd
	c.ConstraintTime = &nightStart
	c.ConstraintEnd = &nightEnd
	c.CannotOverlap = true
	c.DurationFlexibility = model.DurationFixed
	c.StartFlexibility = model.StartFlexSoft
	if c.TimePrefTimeOfDay == nil {
		night := model.TimeOfDayNight
		c.TimePrefTimeOfDay = &night
	}
	if c.DeadlineAt == nil {
		c.DeadlineAt = &nightEnd
	}
	n.applyFreezeRule(c)
	return nil
}

func (n Normalizer) normalizeMeal(c *model.Capture, now time.Time) error {
	base := n.baseReference(c, now)

	if c.WindowStart == nil || c.WindowEnd == nil {
		start, err := timez.BuildZonedDateTime(n.TZ, base, mealStartHour, 0, false)
		if err != nil {
			return err
		}
		end, err := timez.BuildZonedDateTime(n.TZ, base, mealEndHour, 0, false)
		if err != nil {
			return err
		}
		c.WindowStart = &start
		c.WindowEnd = &end
	}

	c.ConstraintKind = model.ConstraintWindow
	c.ConstraintTime = c.WindowStart
	c.ConstraintEnd = c.WindowEnd
	c.CannotOverlap = false
	c.DurationFlexibility = model.DurationFixed
	c.StartFlexibility = model.StartFlexSoft
	if c.TimePrefTimeOfDay == nil {
		night := model.TimeOfDayNight
		c.TimePrefTimeOfDay = &night
	}
	if c.DeadlineAt == nil {
		c.DeadlineAt = c.WindowEnd
	}
	n.applyFreezeRule(c)
	return nil
}

// applyFreezeRule leaves freeze_until untouched for a locked capture;
// clears it otherwise.
func (n Normalizer) applyFreezeRule(c *model.Capture) {
	if c.IsLocked() {
		return
	}
	c.FreezeUntil = nil
}
