package metrics

import (
	"context"
	"time"

	"github.com/kilianp07/diaguru/core/events"
	coremetrics "github.com/kilianp07/diaguru/core/metrics"
	"github.com/kilianp07/diaguru/core/model"
	"github.com/kilianp07/diaguru/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and records metrics for
// scheduling events. It stops when the context is canceled.
func StartEventCollector(ctx context.Context, bus eventbus.EventBus, sink coremetrics.MetricsSink) {
	if bus == nil || sink == nil {
		return
	}
	sub := bus.Subscribe()
	go func() {
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				handleEvent(sink, ev)
			}
		}
	}()
}

func handleEvent(sink coremetrics.MetricsSink, ev eventbus.Event) {
	switch e := ev.(type) {
	case events.CommitEvent:
		_ = sink.RecordCommit(coremetrics.CommitEvent{
			CaptureID: e.Capture.ID,
			OwnerID:   e.Capture.OwnerID,
			Chunks:    len(e.Chunks),
			Minutes:   model.TotalMinutes(e.Chunks),
			Late:      hasLateChunk(e.Chunks),
			Overlap:   hasOverlappedChunk(e.Chunks),
			Time:      e.Time,
		})
	case events.ConflictEvent:
		if r, ok := sink.(coremetrics.ConflictRecorder); ok {
			_ = r.RecordConflict(coremetrics.ConflictEvent{CaptureID: e.CaptureID, OwnerID: e.OwnerID, Reason: e.Reason, Time: time.Now()})
		}
	case events.PreemptionEvent:
		if r, ok := sink.(coremetrics.PreemptionRecorder); ok {
			_ = r.RecordPreemption(coremetrics.PreemptionEvent{
				TargetCaptureID:  e.TargetCaptureID,
				DisplacedCount:   len(e.Displaced),
				DisplacedMinutes: sumDisplacedMinutes(e.Displaced),
				NetGain:          e.NetGain,
				Time:             time.Now(),
			})
		}
	case events.OverlapEvent:
		if r, ok := sink.(coremetrics.OverlapRecorder); ok {
			_ = r.RecordOverlap(coremetrics.OverlapEvent{
				OwnerID:     e.OwnerID,
				CaptureIDs:  e.CaptureIDs,
				PrimeID:     e.PrimeID,
				SlotMinutes: e.SlotMinutes,
				Time:        time.Now(),
			})
		}
	}
}

func hasLateChunk(chunks []model.Chunk) bool {
	for _, c := range chunks {
		if c.Late {
			return true
		}
	}
	return false
}

func hasOverlappedChunk(chunks []model.Chunk) bool {
	for _, c := range chunks {
		if c.Overlapped {
			return true
		}
	}
	return false
}

func sumDisplacedMinutes(displaced []*model.Capture) int {
	total := 0
	for _, c := range displaced {
		total += c.DurationMinutes()
	}
	return total
}
