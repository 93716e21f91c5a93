// Package metrics declares the scheduling engine's observability surface:
// a sink recording commits, conflicts, preemptions and overlaps, one narrow
// Record* method per event kind, composed via optional interfaces.
package metrics

import "time"

// CommitEvent records one successful placement.
type CommitEvent struct {
	CaptureID string
	OwnerID   string
	Mode      string // scheduling plan mode at commit time
	Late      bool
	Overlap   bool
	Chunks    int
	Minutes   int
	Time      time.Time
}

// CommitRecorder records successful placements.
type CommitRecorder interface {
	RecordCommit(ev CommitEvent) error
}

// ConflictEvent records a rejected placement returned to the caller.
type ConflictEvent struct {
	CaptureID string
	OwnerID   string
	Reason    string // "slot_exceeds_deadline" | "no_slot" | "preferred_conflict"
	Time      time.Time
}

// ConflictRecorder records conflicts.
type ConflictRecorder interface {
	RecordConflict(ev ConflictEvent) error
}

// PreemptionEvent records one preemption reclaim cycle.
type PreemptionEvent struct {
	TargetCaptureID string
	OwnerID         string
	DisplacedCount  int
	DisplacedMinutes int
	NetGain         float64
	Time            time.Time
}

// PreemptionRecorder records preemption cycles.
type PreemptionRecorder interface {
	RecordPreemption(ev PreemptionEvent) error
}

// OverlapEvent records one overlap admission.
type OverlapEvent struct {
	OwnerID      string
	CaptureIDs   []string
	PrimeID      string
	SlotMinutes  int
	DailyUsed    int
	Time         time.Time
}

// OverlapRecorder records overlap admissions.
type OverlapRecorder interface {
	RecordOverlap(ev OverlapEvent) error
}

// MetricsSink is the minimal sink every implementation must satisfy;
// optional interfaces above are detected via type assertion by fan-out
// sinks (MultiSink).
type MetricsSink interface {
	CommitRecorder
}

// NopSink discards every event; the default when no sink is configured.
type NopSink struct{}

func (NopSink) RecordCommit(CommitEvent) error         { return nil }
func (NopSink) RecordConflict(ConflictEvent) error     { return nil }
func (NopSink) RecordPreemption(PreemptionEvent) error { return nil }
func (NopSink) RecordOverlap(OverlapEvent) error       { return nil }
