package model

import "time"

// CellState tags an occupancy grid cell.
type CellState string

const (
	CellFree     CellState = "free"
	CellExternal CellState = "external"
	CellOwned    CellState = "owned"
)

// Cell is one fixed-resolution slot in the OccupancyGrid.
type Cell struct {
	Start     time.Time
	End       time.Time
	State     CellState
	CaptureID string // set when State == CellOwned
}

// DayStats summarizes one working day's cells.
type DayStats struct {
	Day           time.Time
	FreeMinutes   int
	OwnedMinutes  int
	ExternalMinutes int
}

// WindowCandidate is a contiguous run of non-external cells within a scan
// window, annotated with the minute breakdown used by the preemption
// evaluator.
type WindowCandidate struct {
	Start           time.Time
	End             time.Time
	FreeMinutes     int
	OwnedMinutes    int
	ExternalMinutes int
	// OwnerMinutes breaks the owned minutes down per capture id.
	OwnerMinutes map[string]int
}
