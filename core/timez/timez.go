// Package timez implements the local/UTC conversion and working-window
// predicates. All functions are pure: they take a reference instant and a
// timezone name and return instants or booleans, never reading the wall
// clock themselves.
package timez

import (
	"fmt"
	"time"
)

// DefaultWorkingStartHour and DefaultWorkingEndHour bound the working
// window.
const (
	DefaultWorkingStartHour = 8
	DefaultWorkingEndHour   = 22
)

// LoadLocation loads the named timezone, defaulting to UTC for an empty
// name so callers never need a nil check.
func LoadLocation(tz string) (*time.Location, error) {
	if tz == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("load location %q: %w", tz, err)
	}
	return loc, nil
}

// BuildZonedDateTime constructs the absolute instant corresponding to
// hour:minute on the local date of ref (or ref+1 day when nextDay is true),
// in the named timezone. The offset is resolved *at the tentative instant*
// rather than at ref, so DST transitions between ref and the target day are
// handled correctly.
func BuildZonedDateTime(tz string, ref time.Time, hour, minute int, nextDay bool) (time.Time, error) {
	loc, err := LoadLocation(tz)
	if err != nil {
		return time.Time{}, err
	}
	local := ref.In(loc)
	day := local
	if nextDay {
		day = local.AddDate(0, 0, 1)
	}
	// time.Date resolves the offset for the given (Y,M,D,h,m) in loc itself,
	// which is exactly "offset at the tentative instant" — not at ref.
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, loc), nil
}

// IsBeforeWorkingStart reports whether t, converted into tz, falls before
// the working day's start hour.
func IsBeforeWorkingStart(tz string, t time.Time, startHour int) (bool, error) {
	loc, err := LoadLocation(tz)
	if err != nil {
		return false, err
	}
	local := t.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), startHour, 0, 0, 0, loc)
	return local.Before(start), nil
}

// IsAfterWorkingEnd reports whether t, converted into tz, falls at or after
// the working day's end hour.
func IsAfterWorkingEnd(tz string, t time.Time, endHour int) (bool, error) {
	loc, err := LoadLocation(tz)
	if err != nil {
		return false, err
	}
	local := t.In(loc)
	end := time.Date(local.Year(), local.Month(), local.Day(), endHour, 0, 0, 0, loc)
	return !local.Before(end), nil
}

// WithinWorkingWindow reports whether [s, e) falls entirely within
// [startHour, endHour) local time on the same local day.
func WithinWorkingWindow(tz string, s, e time.Time, startHour, endHour int) (bool, error) {
	loc, err := LoadLocation(tz)
	if err != nil {
		return false, err
	}
	// [s, e) is half-open, so the last occupied instant is just before e.
	ls, le := s.In(loc), e.Add(-time.Nanosecond).In(loc)
	if ls.Year() != le.Year() || ls.YearDay() != le.YearDay() {
		return false, nil
	}
	before, err := IsBeforeWorkingStart(tz, s, startHour)
	if err != nil {
		return false, err
	}
	if before {
		return false, nil
	}
	after, err := IsAfterWorkingEnd(tz, e, endHour)
	if err != nil {
		return false, err
	}
	return !after, nil
}

// AddMinutes is a pure helper retained for readability at call sites.
func AddMinutes(t time.Time, minutes int) time.Time {
	return t.Add(time.Duration(minutes) * time.Minute)
}

// AddDays is a pure helper retained for readability at call sites.
func AddDays(t time.Time, days int) time.Time {
	return t.AddDate(0, 0, days)
}

// StartOfWorkingDay returns startHour:00 local time on local's calendar day.
func StartOfWorkingDay(local time.Time, startHour int) time.Time {
	return time.Date(local.Year(), local.Month(), local.Day(), startHour, 0, 0, 0, local.Location())
}

// EndOfWorkingDay returns endHour:00 local time on local's calendar day.
func EndOfWorkingDay(local time.Time, endHour int) time.Time {
	return time.Date(local.Year(), local.Month(), local.Day(), endHour, 0, 0, 0, local.Location())
}

// EndOfLocalDay returns 22:00 local time on local's calendar day — the
// "end of the local day" deadline rule used by date-based deadlines.
func EndOfLocalDay(tz string, ref time.Time) (time.Time, error) {
	return BuildZonedDateTime(tz, ref, DefaultWorkingEndHour, 0, false)
}
