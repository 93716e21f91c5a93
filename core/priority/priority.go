// Package priority implements the pure scoring function: a capture plus a
// reference time maps to a non-negative score, with routine captures
// dampened afterward.
package priority

import (
	"math"
	"time"

	"github.com/kilianp07/diaguru/core/model"
)

// Weights holds the scoring coefficients. The zero value is invalid; use
// DefaultWeights.
type Weights struct {
	ImportanceWeight       float64
	UrgencyWeight          float64
	ImpactWeight           float64
	ReschedulePenaltyWeight float64
	DeadlineProximityWeight float64
	DeadlineProximityWindow time.Duration
	AgeWeightPerHour       float64
	AgeCap                 float64
	ExternalityFactor      float64
	RescheduleCountFactor  float64
}

// DefaultWeights sets the scoring magnitudes: importance dominates,
// deadline proximity and age are secondary pressure signals.
func DefaultWeights() Weights {
	return Weights{
		ImportanceWeight:        10,
		UrgencyWeight:           5,
		ImpactWeight:            5,
		ReschedulePenaltyWeight: 3,
		DeadlineProximityWeight: 20,
		DeadlineProximityWindow: 24 * time.Hour,
		AgeWeightPerHour:        0.1,
		AgeCap:                  10,
		ExternalityFactor:       0.1,
		RescheduleCountFactor:   0.05,
	}
}

const (
	sleepScale = 0.7
	sleepCap   = 70
	mealScale  = 0.5
	mealCap    = 55
)

// Score computes the capture's priority score at referenceNow, applying
// routine dampening last.
func Score(c *model.Capture, referenceNow time.Time, w Weights) float64 {
	base := float64(c.Importance) * w.ImportanceWeight
	base += ptrOr(c.Urgency, 0) * w.UrgencyWeight
	base += ptrOr(c.Impact, 0) * w.ImpactWeight
	base += ptrOr(c.ReschedulePenalty, 0) * w.ReschedulePenaltyWeight

	if dl := c.DeadlineAt; dl != nil {
		remaining := dl.Sub(referenceNow)
		proximity := 1 - clamp01(float64(remaining)/float64(w.DeadlineProximityWindow))
		base += proximity * w.DeadlineProximityWeight
	}

	if !c.CreatedAt.IsZero() {
		ageHours := referenceNow.Sub(c.CreatedAt).Hours()
		if ageHours > 0 {
			base += math.Min(ageHours*w.AgeWeightPerHour, w.AgeCap)
		}
	}

	base *= 1 + c.ExternalityScore*w.ExternalityFactor
	base *= 1 + float64(c.RescheduleCount)*w.RescheduleCountFactor

	if base < 0 {
		base = 0
	}

	switch c.RoutineKind() {
	case model.RoutineSleep:
		base = math.Min(base*sleepScale, sleepCap)
	case model.RoutineMeal:
		base = math.Min(base*mealScale, mealCap)
	}

	return base
}

// PerMinute is the per-minute priority used to compare displacement
// candidates of differing duration.
func PerMinute(c *model.Capture, referenceNow time.Time, w Weights) float64 {
	duration := c.DurationMinutes()
	if duration < 1 {
		duration = 1
	}
	return Score(c, referenceNow, w) / float64(duration)
}

func ptrOr(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
