package scenarios

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/diaguru/core/model"
)

// CaptureFixture is the YAML projection of the model.Capture fields a
// scenario needs to seed.
type CaptureFixture struct {
	ID      string `yaml:"id"`
	OwnerID string `yaml:"owner_id"`
	Content string `yaml:"content"`

	EstimatedMinutes int      `yaml:"estimated_minutes"`
	Importance       int      `yaml:"importance"`
	Urgency          *float64 `yaml:"urgency,omitempty"`
	Impact           *float64 `yaml:"impact,omitempty"`

	ConstraintType string     `yaml:"constraint_type,omitempty"`
	ConstraintTime *time.Time `yaml:"constraint_time,omitempty"`
	ConstraintEnd  *time.Time `yaml:"constraint_end,omitempty"`
	WindowStart    *time.Time `yaml:"window_start,omitempty"`
	WindowEnd      *time.Time `yaml:"window_end,omitempty"`
	DeadlineAt     *time.Time `yaml:"deadline_at,omitempty"`
	StartTargetAt  *time.Time `yaml:"start_target_at,omitempty"`

	CannotOverlap       bool   `yaml:"cannot_overlap,omitempty"`
	StartFlexibility    string `yaml:"start_flexibility,omitempty"`
	DurationFlexibility string `yaml:"duration_flexibility,omitempty"`

	TaskTypeHint   string `yaml:"task_type_hint,omitempty"`
	ExtractionKind string `yaml:"extraction_kind,omitempty"`
	RawContent     string `yaml:"raw_content,omitempty"`

	PlannedStart *time.Time `yaml:"planned_start,omitempty"`
	PlannedEnd   *time.Time `yaml:"planned_end,omitempty"`
	CreatedAt    *time.Time `yaml:"created_at,omitempty"`
}

// ToModel builds the model.Capture this fixture describes.
func (f CaptureFixture) ToModel() *model.Capture {
	c := &model.Capture{
		ID:                  f.ID,
		OwnerID:             f.OwnerID,
		Content:             f.Content,
		EstimatedMinutes:    f.EstimatedMinutes,
		Importance:          f.Importance,
		Urgency:             f.Urgency,
		Impact:              f.Impact,
		ConstraintKind:      model.NormalizeConstraintKind(f.ConstraintType),
		ConstraintTime:      f.ConstraintTime,
		ConstraintEnd:       f.ConstraintEnd,
		WindowStart:         f.WindowStart,
		WindowEnd:           f.WindowEnd,
		DeadlineAt:          f.DeadlineAt,
		StartTargetAt:       f.StartTargetAt,
		CannotOverlap:       f.CannotOverlap,
		StartFlexibility:    model.StartFlexibility(f.StartFlexibility),
		DurationFlexibility: model.DurationFlexibility(f.DurationFlexibility),
		TaskTypeHint:        f.TaskTypeHint,
		ExtractionKind:      f.ExtractionKind,
		PlannedStart:        f.PlannedStart,
		PlannedEnd:          f.PlannedEnd,
		Status:              model.StatusPending,
	}
	if c.StartFlexibility == "" {
		c.StartFlexibility = model.StartFlexSoft
	}
	if c.DurationFlexibility == "" {
		c.DurationFlexibility = model.DurationFixed
	}
	if f.CreatedAt != nil {
		c.CreatedAt = *f.CreatedAt
	}
	if f.RawContent != "" {
		c.Content = f.RawContent
	}
	return c
}

// EventFixture seeds a calendar event, used to represent either a
// third-party busy block or an already-scheduled capture (Owned: true,
// CaptureID set).
type EventFixture struct {
	ID        string    `yaml:"id"`
	CaptureID string    `yaml:"capture_id,omitempty"`
	Summary   string    `yaml:"summary,omitempty"`
	Start     time.Time `yaml:"start"`
	End       time.Time `yaml:"end"`
	Owned     bool      `yaml:"owned,omitempty"`
}

// ToModel builds the model.CalendarEvent this fixture describes.
func (f EventFixture) ToModel() model.CalendarEvent {
	ev := model.CalendarEvent{
		ID:      f.ID,
		Summary: f.Summary,
		Start:   f.Start,
		End:     f.End,
	}
	if f.Owned {
		ev.Properties = map[string]string{model.DiaGuruPropertyKey: "true"}
		if f.CaptureID != "" {
			ev.Properties[model.CaptureIDPropertyKey] = f.CaptureID
		}
	}
	return ev
}

// RequestFixture is the YAML projection of scheduler.Request.
type RequestFixture struct {
	CaptureID             string     `yaml:"capture_id"`
	OwnerID               string     `yaml:"owner_id"`
	Action                string     `yaml:"action,omitempty"`
	PreferredStart        *time.Time `yaml:"preferred_start,omitempty"`
	PreferredEnd          *time.Time `yaml:"preferred_end,omitempty"`
	AllowOverlap          bool       `yaml:"allow_overlap,omitempty"`
	AllowRebalance        bool       `yaml:"allow_rebalance,omitempty"`
	AllowLatePlacement    bool       `yaml:"allow_late_placement,omitempty"`
	Timezone              string     `yaml:"timezone,omitempty"`
	TimezoneOffsetMinutes *int       `yaml:"timezone_offset_minutes,omitempty"`
}

// Expected is the assertion set checked against the Schedule outcome.
type Expected struct {
	// Status, when non-zero, means Schedule must fail with a
	// *scheduler.ScheduleError carrying this status and Reason.
	Status int    `yaml:"status,omitempty"`
	Reason string `yaml:"reason,omitempty"`

	DecisionType string `yaml:"decision_type,omitempty"`

	ChunkCount     int        `yaml:"chunk_count,omitempty"`
	ChunkStart     *time.Time `yaml:"chunk_start,omitempty"`
	ChunkEnd       *time.Time `yaml:"chunk_end,omitempty"`
	AnyChunkLate   bool       `yaml:"any_chunk_late,omitempty"`
	AnyOverlapped  bool       `yaml:"any_overlapped,omitempty"`
	PrimeCaptureID string     `yaml:"prime_capture_id,omitempty"`

	// WindowStart/WindowEnd/ConstraintType/CannotOverlap are only checked
	// for kind: routine_normalize scenarios.
	WindowStart    *time.Time `yaml:"window_start,omitempty"`
	WindowEnd      *time.Time `yaml:"window_end,omitempty"`
	ConstraintType string     `yaml:"constraint_type,omitempty"`
	CannotOverlap  *bool      `yaml:"cannot_overlap,omitempty"`
}

// Scenario is one end-to-end fixture: a seeded store and calendar, a single
// request issued against them, and the expected outcome.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`

	// Kind selects the harness: "schedule" (default) drives a full
	// scheduler.Orchestrator.Schedule call; "routine_normalize" drives
	// routine.Normalizer.Normalize directly against Captures[0].
	Kind string `yaml:"kind,omitempty"`

	ReferenceNow time.Time `yaml:"reference_now"`
	Timezone     string    `yaml:"timezone,omitempty"`

	Captures []CaptureFixture `yaml:"captures"`
	Events   []EventFixture   `yaml:"events,omitempty"`

	Request RequestFixture `yaml:"request"`

	Expected Expected `yaml:"expected"`
}

// Load reads and parses a scenario fixture from path.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	return &sc, nil
}
