package metrics

// Package metrics defines interfaces and implementations for collecting
// scheduling engine metrics. Sinks like PromSink and InfluxSink record
// commits, conflicts, preemptions and overlaps, and can be combined with
// NewMultiSink. The factory helpers return a MultiSink automatically when
// multiple sinks are configured.
