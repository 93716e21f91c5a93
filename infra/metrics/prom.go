package metrics

import (
	"strconv"

	coremetrics "github.com/kilianp07/diaguru/core/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// PromSink records scheduling events as Prometheus metrics.
type PromSink struct {
	commits     *prometheus.CounterVec
	conflicts   *prometheus.CounterVec
	preemptions prometheus.Counter
	displaced   prometheus.Histogram
	overlaps    prometheus.Counter
}

// NewPromSink registers scheduling metrics on the default Prometheus
// registerer.
func NewPromSink() (coremetrics.MetricsSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer. A
// nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (coremetrics.MetricsSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	commits := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "schedule_commits_total",
		Help: "Total number of committed capture placements",
	}, []string{"mode", "late", "overlap"})
	conflicts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "schedule_conflicts_total",
		Help: "Total number of rejected placements",
	}, []string{"reason"})
	preemptions := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "schedule_preemptions_total",
		Help: "Total number of preemption reclaim cycles",
	})
	displaced := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "schedule_preempted_minutes",
		Help:    "Minutes displaced per preemption cycle",
		Buckets: prometheus.LinearBuckets(15, 30, 8),
	})
	overlaps := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "schedule_overlap_admissions_total",
		Help: "Total number of overlap admissions",
	})

	if err := registerOrReuseCounterVec(reg, &commits); err != nil {
		return nil, err
	}
	if err := registerOrReuseCounterVec(reg, &conflicts); err != nil {
		return nil, err
	}
	if err := reg.Register(preemptions); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			preemptions = are.ExistingCollector.(prometheus.Counter)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(displaced); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			displaced = are.ExistingCollector.(prometheus.Histogram)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(overlaps); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			overlaps = are.ExistingCollector.(prometheus.Counter)
		} else {
			return nil, err
		}
	}

	return &PromSink{commits: commits, conflicts: conflicts, preemptions: preemptions, displaced: displaced, overlaps: overlaps}, nil
}

func registerOrReuseCounterVec(reg prometheus.Registerer, cv **prometheus.CounterVec) error {
	if err := reg.Register(*cv); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			*cv = are.ExistingCollector.(*prometheus.CounterVec)
			return nil
		}
		return err
	}
	return nil
}

// RecordCommit increments the commits counter.
func (s *PromSink) RecordCommit(ev coremetrics.CommitEvent) error {
	s.commits.WithLabelValues(ev.Mode, strconv.FormatBool(ev.Late), strconv.FormatBool(ev.Overlap)).Inc()
	return nil
}

// RecordConflict increments the conflicts counter.
func (s *PromSink) RecordConflict(ev coremetrics.ConflictEvent) error {
	s.conflicts.WithLabelValues(ev.Reason).Inc()
	return nil
}

// RecordPreemption increments the preemptions counter and observes the
// displaced-minutes histogram.
func (s *PromSink) RecordPreemption(ev coremetrics.PreemptionEvent) error {
	s.preemptions.Inc()
	s.displaced.Observe(float64(ev.DisplacedMinutes))
	return nil
}

// RecordOverlap increments the overlap admissions counter.
func (s *PromSink) RecordOverlap(coremetrics.OverlapEvent) error {
	s.overlaps.Inc()
	return nil
}
