package scheduler

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/diaguru/core/overlap"
	"github.com/kilianp07/diaguru/core/preemption"
)

// SchedulerConfig is the state passed into the orchestrator instead of
// ambient globals: buffers, windows, thresholds, overlap knobs and routine
// rules. Calendar gateway, store, clock and advisor are injected separately
// as polymorphic capabilities on Orchestrator.
type SchedulerConfig struct {
	Timezone string `json:"timezone" yaml:"timezone"`

	WorkingStartHour int `json:"working_start_hour" yaml:"working_start_hour"`
	WorkingEndHour   int `json:"working_end_hour" yaml:"working_end_hour"`

	BufferMinutes           int `json:"buffer_minutes" yaml:"buffer_minutes"`
	CompressedBufferMinutes int `json:"compressed_buffer_minutes" yaml:"compressed_buffer_minutes"`

	SearchDays int `json:"search_days" yaml:"search_days"`

	MinChunkMinutes int `json:"min_chunk_minutes" yaml:"min_chunk_minutes"`
	MaxSplits       int `json:"max_splits" yaml:"max_splits"`
	TargetChunk     int `json:"target_chunk" yaml:"target_chunk"`

	Overlap     overlap.Config        `json:"overlap" yaml:"overlap"`
	Preemption  preemption.Thresholds `json:"preemption" yaml:"preemption"`
	OverlapCost float64               `json:"overlap_cost_per_minute" yaml:"overlap_cost_per_minute"`
}

// Buffer returns BufferMinutes as a time.Duration, defaulting to 10 minutes.
func (c SchedulerConfig) Buffer() time.Duration {
	if c.BufferMinutes <= 0 {
		return 10 * time.Minute
	}
	return time.Duration(c.BufferMinutes) * time.Minute
}

// CompressedBuffer returns CompressedBufferMinutes, defaulting to 5 minutes.
func (c SchedulerConfig) CompressedBuffer() time.Duration {
	if c.CompressedBufferMinutes <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.CompressedBufferMinutes) * time.Minute
}

// SearchDaysOrDefault returns SearchDays, defaulting to grid.MaxDays/
// slotsearch.SearchDays (7) when unset.
func (c SchedulerConfig) SearchDaysOrDefault() int {
	if c.SearchDays <= 0 {
		return 7
	}
	return c.SearchDays
}

// WorkingHours returns (WorkingStartHour, WorkingEndHour), defaulting to
// timez.DefaultWorkingStartHour/EndHour when unset.
func (c SchedulerConfig) WorkingHours() (int, int) {
	start, end := c.WorkingStartHour, c.WorkingEndHour
	if start <= 0 && end <= 0 {
		return 8, 22
	}
	if end <= start {
		end = start + 14
	}
	return start, end
}

// MinChunkOrDefault returns MinChunkMinutes, defaulting to 15.
func (c SchedulerConfig) MinChunkOrDefault() int {
	if c.MinChunkMinutes <= 0 {
		return 15
	}
	return c.MinChunkMinutes
}

// TargetChunkOrDefault returns TargetChunk, defaulting to 50.
func (c SchedulerConfig) TargetChunkOrDefault() int {
	if c.TargetChunk <= 0 {
		return 50
	}
	return c.TargetChunk
}

// MaxSplitsOrDefault returns MaxSplits, defaulting to 4.
func (c SchedulerConfig) MaxSplitsOrDefault() int {
	if c.MaxSplits <= 0 {
		return 4
	}
	return c.MaxSplits
}

// DefaultSchedulerConfig returns the engine's documented default constants.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Timezone:                "UTC",
		WorkingStartHour:        8,
		WorkingEndHour:          22,
		BufferMinutes:           10,
		CompressedBufferMinutes: 5,
		SearchDays:              7,
		MinChunkMinutes:         15,
		MaxSplits:               4,
		TargetChunk:             50,
		Overlap:                 overlap.DefaultConfig(),
		Preemption:              preemption.DefaultThresholds(),
		OverlapCost:             0.1,
	}
}

// LoadConfig loads a SchedulerConfig from a JSON or YAML file.
func LoadConfig(path string) (SchedulerConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return SchedulerConfig{}, err
	}
	ext := strings.ToLower(filepath.Ext(path))
	cfg := DefaultSchedulerConfig()
	switch ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &cfg)
	case ".json":
		err = json.Unmarshal(b, &cfg)
	default:
		return SchedulerConfig{}, fmt.Errorf("unsupported config format: %s", ext)
	}
	return cfg, err
}

// DecodeConfig reads from r to decode a SchedulerConfig in the given format.
func DecodeConfig(r io.Reader, format string) (SchedulerConfig, error) {
	cfg := DefaultSchedulerConfig()
	switch strings.ToLower(format) {
	case "yaml", "yml":
		dec := yaml.NewDecoder(r)
		if err := dec.Decode(&cfg); err != nil {
			return cfg, err
		}
	case "json":
		dec := json.NewDecoder(r)
		if err := dec.Decode(&cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported format: %s", format)
	}
	return cfg, nil
}
