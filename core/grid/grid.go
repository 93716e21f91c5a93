// Package grid builds the fixed-resolution occupancy grid and answers
// window-candidate scans over it.
package grid

import (
	"sort"
	"time"

	"github.com/kilianp07/diaguru/core/model"
	"github.com/kilianp07/diaguru/core/timez"
)

// CellMinutes is the grid's fixed resolution.
const CellMinutes = 15

// MaxDays bounds the search horizon.
const MaxDays = 7

// Grid is a sequence of fixed-resolution cells across the working hours of
// the search horizon, in chronological order.
type Grid struct {
	Cells []model.Cell
	TZ    string
}

// Build constructs the grid from now through now+days of working-window
// hours, labeling each cell from events. A cell overlapping both an owned
// and an external interval is "owned" (owned beats external); otherwise it
// takes the label of whichever event covers more of the cell.
func Build(tz string, now time.Time, days, startHour, endHour int, busyIntervals []model.BusyInterval) (*Grid, error) {
	if days <= 0 {
		days = MaxDays
	}
	if days > MaxDays {
		days = MaxDays
	}
	loc, err := timez.LoadLocation(tz)
	if err != nil {
		return nil, err
	}
	local := now.In(loc)

	g := &Grid{TZ: tz}
	for d := 0; d < days; d++ {
		day := local.AddDate(0, 0, d)
		dayStart := timez.StartOfWorkingDay(day, startHour)
		dayEnd := timez.EndOfWorkingDay(day, endHour)
		if d == 0 && dayStart.Before(local) {
			dayStart = roundUpToCell(local)
		}
		for t := dayStart; t.Before(dayEnd); t = t.Add(CellMinutes * time.Minute) {
			cellEnd := t.Add(CellMinutes * time.Minute)
			if cellEnd.After(dayEnd) {
				cellEnd = dayEnd
			}
			g.Cells = append(g.Cells, labelCell(t, cellEnd, busyIntervals))
		}
	}
	return g, nil
}

func roundUpToCell(t time.Time) time.Time {
	rem := t.Minute() % CellMinutes
	if rem == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t
	}
	add := CellMinutes - rem
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, t.Location()).Add(time.Duration(add) * time.Minute)
}

func labelCell(start, end time.Time, intervals []model.BusyInterval) model.Cell {
	var ownedMinutes, externalMinutes float64
	var ownedID string
	for _, b := range intervals {
		overlap := overlapMinutes(start, end, b.Start, b.End)
		if overlap <= 0 {
			continue
		}
		if b.External {
			externalMinutes += overlap
		} else {
			if overlap > ownedMinutes {
				ownedID = b.OwnerCaptureID
			}
			ownedMinutes += overlap
		}
	}
	cell := model.Cell{Start: start, End: end, State: model.CellFree}
	switch {
	case ownedMinutes > 0 && externalMinutes > 0:
		cell.State = model.CellOwned
		cell.CaptureID = ownedID
	case ownedMinutes > externalMinutes:
		cell.State = model.CellOwned
		cell.CaptureID = ownedID
	case externalMinutes > 0:
		cell.State = model.CellExternal
	}
	return cell
}

func overlapMinutes(aStart, aEnd, bStart, bEnd time.Time) float64 {
	s := aStart
	if bStart.After(s) {
		s = bStart
	}
	e := aEnd
	if bEnd.Before(e) {
		e = bEnd
	}
	if !e.After(s) {
		return 0
	}
	return e.Sub(s).Minutes()
}

// DayStats computes per-day minute breakdowns for reporting.
func (g *Grid) DayStats() []model.DayStats {
	byDay := map[string]*model.DayStats{}
	var order []string
	for _, c := range g.Cells {
		key := c.Start.Format("2006-01-02")
		ds, ok := byDay[key]
		if !ok {
			ds = &model.DayStats{Day: time.Date(c.Start.Year(), c.Start.Month(), c.Start.Day(), 0, 0, 0, 0, c.Start.Location())}
			byDay[key] = ds
			order = append(order, key)
		}
		mins := int(c.End.Sub(c.Start).Minutes())
		switch c.State {
		case model.CellFree:
			ds.FreeMinutes += mins
		case model.CellOwned:
			ds.OwnedMinutes += mins
		case model.CellExternal:
			ds.ExternalMinutes += mins
		}
	}
	sort.Strings(order)
	out := make([]model.DayStats, 0, len(order))
	for _, k := range order {
		out = append(out, *byDay[k])
	}
	return out
}

// CollectWindowCandidates returns every run of ⌈duration/CellMinutes⌉
// consecutive non-external cells within [ws, we], each annotated with its
// minute breakdown, up to limit results. Candidates containing any external
// cell are excluded outright — preemption only ever targets owned or free
// space.
func (g *Grid) CollectWindowCandidates(duration time.Duration, ws, we time.Time, limit int) []model.WindowCandidate {
	needCells := int(duration.Minutes()) / CellMinutes
	if int(duration.Minutes())%CellMinutes != 0 {
		needCells++
	}
	if needCells < 1 {
		needCells = 1
	}

	inRange := make([]model.Cell, 0, len(g.Cells))
	for _, c := range g.Cells {
		if !c.Start.Before(ws) && !c.End.After(we) {
			inRange = append(inRange, c)
		}
	}

	var out []model.WindowCandidate
	for i := 0; i+needCells <= len(inRange); i++ {
		window := inRange[i : i+needCells]
		if !contiguous(window) {
			continue
		}
		if anyExternal(window) {
			continue
		}
		cand := model.WindowCandidate{
			Start:        window[0].Start,
			End:          window[len(window)-1].End,
			OwnerMinutes: map[string]int{},
		}
		for _, c := range window {
			mins := int(c.End.Sub(c.Start).Minutes())
			switch c.State {
			case model.CellFree:
				cand.FreeMinutes += mins
			case model.CellOwned:
				cand.OwnedMinutes += mins
				if c.CaptureID != "" {
					cand.OwnerMinutes[c.CaptureID] += mins
				}
			}
		}
		out = append(out, cand)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

func contiguous(cells []model.Cell) bool {
	for i := 1; i < len(cells); i++ {
		if !cells[i].Start.Equal(cells[i-1].End) {
			return false
		}
	}
	return true
}

func anyExternal(cells []model.Cell) bool {
	for _, c := range cells {
		if c.State == model.CellExternal {
			return true
		}
	}
	return false
}
