package timez

import (
	"testing"
	"time"
)

func TestLoadLocationDefaultsToUTCForEmptyName(t *testing.T) {
	loc, err := LoadLocation("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loc != time.UTC {
		t.Fatalf("expected time.UTC, got %v", loc)
	}
}

func TestLoadLocationRejectsUnknownZone(t *testing.T) {
	if _, err := LoadLocation("Not/AZone"); err == nil {
		t.Fatalf("expected an error for an unknown timezone")
	}
}

func TestBuildZonedDateTimeSameDay(t *testing.T) {
	ref := time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC)
	got, err := BuildZonedDateTime("UTC", ref, 14, 30, false)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	want := time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestBuildZonedDateTimeNextDay(t *testing.T) {
	ref := time.Date(2026, 3, 2, 23, 0, 0, 0, time.UTC)
	got, err := BuildZonedDateTime("UTC", ref, 7, 0, true)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	want := time.Date(2026, 3, 3, 7, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestIsBeforeWorkingStart(t *testing.T) {
	before := time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC)
	got, err := IsBeforeWorkingStart("UTC", before, DefaultWorkingStartHour)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !got {
		t.Fatalf("expected 06:00 to be before the 08:00 working start")
	}

	during := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	got, err = IsBeforeWorkingStart("UTC", during, DefaultWorkingStartHour)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if got {
		t.Fatalf("expected 09:00 not to be before the 08:00 working start")
	}
}

func TestIsAfterWorkingEnd(t *testing.T) {
	after := time.Date(2026, 3, 2, 23, 0, 0, 0, time.UTC)
	got, err := IsAfterWorkingEnd("UTC", after, DefaultWorkingEndHour)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !got {
		t.Fatalf("expected 23:00 to be at or after the 22:00 working end")
	}

	exactly := time.Date(2026, 3, 2, 22, 0, 0, 0, time.UTC)
	got, err = IsAfterWorkingEnd("UTC", exactly, DefaultWorkingEndHour)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !got {
		t.Fatalf("expected exactly 22:00 to count as at-or-after the working end")
	}
}

func TestWithinWorkingWindow(t *testing.T) {
	s := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	e := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	ok, err := WithinWorkingWindow("UTC", s, e, DefaultWorkingStartHour, DefaultWorkingEndHour)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !ok {
		t.Fatalf("expected [09:00,10:00) to fall within the working window")
	}

	lateEnd := time.Date(2026, 3, 2, 23, 0, 0, 0, time.UTC)
	ok, err = WithinWorkingWindow("UTC", s, lateEnd, DefaultWorkingStartHour, DefaultWorkingEndHour)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if ok {
		t.Fatalf("expected a window ending at 23:00 to fall outside the working window")
	}
}

func TestStartAndEndOfWorkingDay(t *testing.T) {
	local := time.Date(2026, 3, 2, 13, 45, 0, 0, time.UTC)
	start := StartOfWorkingDay(local, 8)
	end := EndOfWorkingDay(local, 22)
	wantStart := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	wantEnd := time.Date(2026, 3, 2, 22, 0, 0, 0, time.UTC)
	if !start.Equal(wantStart) {
		t.Fatalf("start: got %v, want %v", start, wantStart)
	}
	if !end.Equal(wantEnd) {
		t.Fatalf("end: got %v, want %v", end, wantEnd)
	}
}

func TestEndOfLocalDay(t *testing.T) {
	ref := time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC)
	got, err := EndOfLocalDay("UTC", ref)
	if err != nil {
		t.Fatalf("end of day: %v", err)
	}
	want := time.Date(2026, 3, 2, DefaultWorkingEndHour, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestAddMinutesAndAddDays(t *testing.T) {
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	if got := AddMinutes(base, 90); !got.Equal(base.Add(90 * time.Minute)) {
		t.Fatalf("AddMinutes: got %v", got)
	}
	if got := AddDays(base, 3); !got.Equal(base.AddDate(0, 0, 3)) {
		t.Fatalf("AddDays: got %v", got)
	}
}
