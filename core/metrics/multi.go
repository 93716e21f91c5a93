package metrics

// MultiSink fans events out to every configured sink, skipping sinks that
// don't implement the optional recorder interface for a given event kind.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink combines sinks into one MetricsSink.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

func (m *MultiSink) RecordCommit(ev CommitEvent) error {
	var firstErr error
	for _, s := range m.Sinks {
		if err := s.RecordCommit(ev); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (m *MultiSink) RecordConflict(ev ConflictEvent) error {
	var firstErr error
	for _, s := range m.Sinks {
		if r, ok := s.(ConflictRecorder); ok {
			if err := r.RecordConflict(ev); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (m *MultiSink) RecordPreemption(ev PreemptionEvent) error {
	var firstErr error
	for _, s := range m.Sinks {
		if r, ok := s.(PreemptionRecorder); ok {
			if err := r.RecordPreemption(ev); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (m *MultiSink) RecordOverlap(ev OverlapEvent) error {
	var firstErr error
	for _, s := range m.Sinks {
		if r, ok := s.(OverlapRecorder); ok {
			if err := r.RecordOverlap(ev); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
