// Package overlap decides whether a co-scheduled slot is permitted and
// tracks the daily overlap budget.
package overlap

import (
	"time"

	"github.com/kilianp07/diaguru/core/model"
	"github.com/kilianp07/diaguru/core/priority"
)

// Config holds the overlap policy knobs.
type Config struct {
	Enabled               bool
	MaxConcurrency        int
	PerTaskOverlapFraction float64
	DailyBudgetMinutes    int
	SoftCostPerMinute     float64
}

// DefaultConfig returns conservative defaults.
func DefaultConfig() Config {
	return Config{
		Enabled:                true,
		MaxConcurrency:         2,
		PerTaskOverlapFraction: 0.5,
		DailyBudgetMinutes:     60,
		SoftCostPerMinute:      0.2,
	}
}

// Usage tracks per-day overlap minutes consumed, keyed by UTC ISO date
// (YYYY-MM-DD). It is request-local, not persisted.
type Usage struct {
	minutesByDay map[string]int
}

// NewUsage returns an empty per-request usage tracker.
func NewUsage() *Usage {
	return &Usage{minutesByDay: map[string]int{}}
}

func dayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// Used returns the overlap minutes already consumed on the UTC day of t.
func (u *Usage) Used(t time.Time) int {
	return u.minutesByDay[dayKey(t)]
}

// Add records slotMinutes of overlap usage against t's UTC day.
func (u *Usage) Add(t time.Time, slotMinutes int) {
	u.minutesByDay[dayKey(t)] += slotMinutes
}

// Decision is the outcome of an overlap evaluation.
type Decision struct {
	Allowed bool
	Reason  string
	Prime   string // capture id flagged prime=true, if Allowed
}

// Evaluate decides whether target may be co-scheduled with conflicts at
// [start, end), applying the overlap policy's conjunction of checks.
func Evaluate(cfg Config, usage *Usage, target *model.Capture, conflicts []*model.Capture, start, end time.Time, referenceNow time.Time, w priority.Weights) Decision {
	if !cfg.Enabled {
		return Decision{Reason: "overlap disabled"}
	}
	if !model.CanOverlapEligible(target) {
		return Decision{Reason: "target not overlap-eligible"}
	}
	for _, c := range conflicts {
		if !model.CanOverlapEligible(c) {
			return Decision{Reason: "conflicting capture not overlap-eligible"}
		}
	}

	concurrency := 1 + len(conflicts)
	if concurrency > cfg.MaxConcurrency {
		return Decision{Reason: "exceeds max concurrency"}
	}

	slotMinutes := int(end.Sub(start).Minutes())
	limit := cfg.PerTaskOverlapFraction * float64(target.DurationMinutes())
	if float64(slotMinutes) > limit {
		return Decision{Reason: "slot exceeds per-task overlap fraction"}
	}

	if usage.Used(start)+slotMinutes > cfg.DailyBudgetMinutes {
		return Decision{Reason: "daily overlap budget exceeded"}
	}

	benefit := priority.PerMinute(target, referenceNow, w) * float64(slotMinutes)
	softCost := cfg.SoftCostPerMinute * float64(slotMinutes)
	if benefit <= softCost {
		return Decision{Reason: "benefit does not exceed soft cost"}
	}

	prime := target.ID
	primeScore := priority.Score(target, referenceNow, w)
	for _, c := range conflicts {
		if s := priority.Score(c, referenceNow, w); s > primeScore {
			primeScore = s
			prime = c.ID
		}
	}

	usage.Add(start, slotMinutes)
	return Decision{Allowed: true, Prime: prime}
}
