package scheduler

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"time"

	"github.com/kilianp07/diaguru/core/calendar"
	"github.com/kilianp07/diaguru/core/events"
	"github.com/kilianp07/diaguru/core/metrics"
	"github.com/kilianp07/diaguru/core/model"
	"github.com/kilianp07/diaguru/core/overlap"
	"github.com/kilianp07/diaguru/core/preemption"
	"github.com/kilianp07/diaguru/core/priority"
	"github.com/kilianp07/diaguru/core/slotsearch"
)

// commitSlot is the single persistence path every successful placement goes
// through: create the calendar event, mutate and persist the capture, save
// its chunks, record the audit action and fan out notify/metrics/bus events.
// The calendar event is created before the capture is persisted, and the
// action id is minted before either so it can be stamped onto the event's
// ActionIDPropertyKey ahead of the audit record that names it — this way a
// crash mid-commit leaves a reconcilable trace rather than an orphan event.
func (o *Orchestrator) commitSlot(ctx context.Context, sc *scheduleCtx, chunks []model.Chunk, late bool, explanation string) (*Result, error) {
	c := sc.cap
	before := model.SnapshotOf(c)
	kind := model.ActionScheduled
	if before.Status == model.StatusScheduled {
		kind = model.ActionRescheduled
	}
	actionID := sc.ledger.NewActionID()

	for i := range chunks {
		chunks[i].Late = late
	}
	envStart, envEnd := chunks[0].Start, chunks[len(chunks)-1].End

	ev := model.CalendarEvent{
		Summary: model.BuildSummary(c.Content),
		Start:   envStart,
		End:     envEnd,
		Properties: map[string]string{
			model.DiaGuruPropertyKey:          "true",
			model.CaptureIDPropertyKey:        c.ID,
			model.ActionIDPropertyKey:         actionID,
			model.PrioritySnapshotPropertyKey: strconv.FormatFloat(priority.Score(c, sc.now, o.weights), 'f', 2, 64),
			model.PlanIDPropertyKey:           sc.ledger.RunID(),
		},
	}
	created, err := o.calendar.Create(ctx, c.OwnerID, ev)
	if err != nil {
		return nil, newUpstreamError("create calendar event: " + err.Error())
	}

	c.Status = model.StatusScheduled
	c.PlannedStart = &envStart
	c.PlannedEnd = &envEnd
	c.ScheduledFor = &envStart
	c.CalendarEventID = created.ID
	c.CalendarEventETag = created.VersionTag
	c.PlanID = sc.ledger.RunID()
	c.UpdatedAt = sc.now
	if late {
		c.FreezeUntil = nil
	}

	if err := o.store.UpdateCapture(ctx, c); err != nil {
		o.monitor.CaptureException(err, map[string]string{"module": "scheduler", "capture_id": c.ID})
		return nil, newInternalError("persist committed capture: " + err.Error())
	}

	if err := o.store.SaveChunks(ctx, c.ID, chunks); err != nil {
		o.log.Errorf("save chunks for capture %s: %v", c.ID, err)
		o.monitor.CaptureException(err, map[string]string{"module": "scheduler", "capture_id": c.ID})
	}

	after := model.SnapshotOf(c)
	action := sc.ledger.RecordWithID(actionID, sc.now, c.ID, c.Content, kind, before, after)
	o.finalizeLedger(ctx, sc.ledger)

	if err := o.notify.Publish(ctx, c.OwnerID, action); err != nil {
		o.log.Warnf("notify publish for capture %s: %v", c.ID, err)
	}

	if err := o.metrics.RecordCommit(metrics.CommitEvent{
		CaptureID: c.ID,
		OwnerID:   c.OwnerID,
		Mode:      string(sc.plan.Mode),
		Late:      late,
		Overlap:   chunksOverlapped(chunks),
		Chunks:    len(chunks),
		Minutes:   model.TotalMinutes(chunks),
		Time:      sc.now,
	}); err != nil {
		o.log.Warnf("record commit metric for capture %s: %v", c.ID, err)
	}

	o.bus.Publish(events.CommitEvent{Capture: c, Chunks: chunks, Action: kind, Time: sc.now})

	return &Result{
		Message:     commitMessage(kind, late),
		Capture:     c,
		PlanSummary: sc.plan,
		Chunks:      chunks,
		Explanation: explanation,
	}, nil
}

func chunksOverlapped(chunks []model.Chunk) bool {
	for _, c := range chunks {
		if c.Overlapped {
			return true
		}
	}
	return false
}

func commitMessage(kind model.PlanActionKind, late bool) string {
	switch {
	case late:
		return "capture scheduled after its deadline"
	case kind == model.ActionRescheduled:
		return "capture rescheduled"
	default:
		return "capture scheduled"
	}
}

// commitOverlap commits the preferred slot as a co-scheduled placement: the
// target's own chunk is marked overlapped and flagged prime when the
// decision named it, and the overlap admission is recorded.
func (o *Orchestrator) commitOverlap(ctx context.Context, sc *scheduleCtx, slot model.Window, conflicts []*model.Capture, decision overlap.Decision, usage *overlap.Usage) (*Result, error) {
	chunks := []model.Chunk{{
		Start:      slot.Start,
		End:        slot.End,
		Overlapped: true,
		Prime:      decision.Prime == sc.cap.ID,
	}}
	res, err := o.commitSlot(ctx, sc, chunks, false, "overlap commit")
	if err != nil {
		return nil, err
	}

	slotMinutes := int(slot.End.Sub(slot.Start).Minutes())
	ids := append([]string{sc.cap.ID}, idsOf(conflicts)...)
	res.Overlap = &OverlapInfo{
		PrimeID:       decision.Prime,
		DailyUsed:     usage.Used(slot.Start),
		SlotMinutes:   slotMinutes,
		ParticipantID: ids,
	}

	if rec, ok := o.metrics.(metrics.OverlapRecorder); ok {
		if err := rec.RecordOverlap(metrics.OverlapEvent{
			OwnerID:     sc.cap.OwnerID,
			CaptureIDs:  ids,
			PrimeID:     decision.Prime,
			SlotMinutes: slotMinutes,
			DailyUsed:   res.Overlap.DailyUsed,
			Time:        sc.now,
		}); err != nil {
			o.log.Warnf("record overlap metric: %v", err)
		}
	}

	o.bus.Publish(events.OverlapEvent{
		OwnerID:     sc.cap.OwnerID,
		CaptureIDs:  ids,
		PrimeID:     decision.Prime,
		SlotMinutes: slotMinutes,
	})

	return res, nil
}

// commitPreemption handles the preferred-slot preemption path: reclaim the
// owned conflicts, commit the target at the preferred slot, then reschedule
// each displaced capture without further cascading preemption.
func (o *Orchestrator) commitPreemption(ctx context.Context, sc *scheduleCtx, slot model.Window, displaced []*model.Capture, net preemption.NetGainResult) (*Result, error) {
	chunks := []model.Chunk{{Start: slot.Start, End: slot.End}}
	return o.runPreemption(ctx, sc, chunks, displaced, net)
}

// commitPreemptiveTarget handles the grid-preemption path; chunks is
// already placed by the caller's window candidate scan.
func (o *Orchestrator) commitPreemptiveTarget(ctx context.Context, sc *scheduleCtx, chunks []model.Chunk, displaced []*model.Capture, net preemption.NetGainResult) (*Result, error) {
	return o.runPreemption(ctx, sc, chunks, displaced, net)
}

func (o *Orchestrator) runPreemption(ctx context.Context, sc *scheduleCtx, chunks []model.Chunk, displaced []*model.Capture, net preemption.NetGainResult) (*Result, error) {
	if err := o.reclaim(ctx, sc, displaced); err != nil {
		return nil, newInternalError("reclaim displaced captures: " + err.Error())
	}

	res, err := o.commitSlot(ctx, sc, chunks, false, "preemption commit")
	if err != nil {
		return nil, err
	}

	if rec, ok := o.metrics.(metrics.PreemptionRecorder); ok {
		if err := rec.RecordPreemption(metrics.PreemptionEvent{
			TargetCaptureID:  sc.cap.ID,
			OwnerID:          sc.cap.OwnerID,
			DisplacedCount:   len(displaced),
			DisplacedMinutes: model.TotalMinutes(chunks) * len(displaced),
			NetGain:          net.Net,
			Time:             sc.now,
		}); err != nil {
			o.log.Warnf("record preemption metric: %v", err)
		}
	}

	o.bus.Publish(events.PreemptionEvent{TargetCaptureID: sc.cap.ID, Displaced: displaced, NetGain: net.Net})

	if !sc.noCascade {
		o.rescheduleDisplaced(ctx, displaced)
	}

	return res, nil
}

// reclaim deletes the calendar events owned by displaced captures (retrying
// once on a stale version tag), marks each capture pending and bumps its
// reschedule count, and records an "unscheduled" action per capture. Callers
// must invoke this before committing the target so the ledger's
// unscheduled-before-scheduled ordering guarantee holds.
func (o *Orchestrator) reclaim(ctx context.Context, sc *scheduleCtx, displaced []*model.Capture) error {
	for _, d := range displaced {
		before := model.SnapshotOf(d)

		if d.CalendarEventID != "" {
			if err := o.deleteEventWithRetry(ctx, d.OwnerID, d.CalendarEventID, d.CalendarEventETag); err != nil {
				return err
			}
		}

		d.Status = model.StatusPending
		d.RescheduleCount++
		d.PlannedStart = nil
		d.PlannedEnd = nil
		d.ScheduledFor = nil
		d.CalendarEventID = ""
		d.CalendarEventETag = ""
		d.UpdatedAt = sc.now

		if err := o.store.UpdateCapture(ctx, d); err != nil {
			return err
		}

		sc.ledger.Record(sc.now, d.ID, d.Content, model.ActionUnscheduled, before, model.SnapshotOf(d))
	}
	return nil
}

func (o *Orchestrator) deleteEventWithRetry(ctx context.Context, owner, id, versionTag string) error {
	err := o.calendar.Delete(ctx, owner, id, versionTag)
	if err == nil {
		return nil
	}
	var pf *calendar.PreconditionFailedError
	if errors.As(err, &pf) {
		ev, gerr := o.calendar.Get(ctx, owner, id)
		if gerr != nil {
			return gerr
		}
		return o.calendar.Delete(ctx, owner, id, ev.VersionTag)
	}
	return err
}

// rescheduleDisplaced re-enters the full decision precedence for each
// displaced capture, one request per capture with cascading preemption
// disabled, so displaced captures never trigger a further round of
// preemption. This restarts from the top of the decision precedence rather
// than resuming partway through: routine normalization is idempotent and
// reloading the calendar is cheap next to the risk of scheduling a displaced
// capture against busy intervals that no longer reflect the reclaim that
// just happened. Failures are logged, not propagated — the primary response
// already committed the higher-priority target.
func (o *Orchestrator) rescheduleDisplaced(ctx context.Context, displaced []*model.Capture) {
	ordered := append([]*model.Capture(nil), displaced...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	for _, d := range ordered {
		req := Request{
			CaptureID:          d.ID,
			OwnerID:            d.OwnerID,
			Action:             "reschedule",
			AllowLatePlacement: true,
		}
		if _, err := o.scheduleNoCascade(ctx, req); err != nil {
			o.log.Warnf("reschedule displaced capture %s: %v", d.ID, err)
			o.monitor.CaptureException(err, map[string]string{"module": "scheduler", "capture_id": d.ID})
		}
	}
}

// commitLate places the capture at the earliest free slot at or after
// max(deadline, now), tagging its chunk late and clearing any freeze so a
// subsequent manual move isn't blocked by a stale freeze.
func (o *Orchestrator) commitLate(ctx context.Context, sc *scheduleCtx, deadline time.Time) (*Result, error) {
	duration := time.Duration(sc.cap.DurationMinutes()) * time.Minute
	startFrom := deadline
	if sc.now.After(startFrom) {
		startFrom = sc.now
	}

	start, err := slotsearch.FindLatePlacement(sc.busyIntervals, duration, startFrom, sc.slotOptions())
	if err != nil {
		return nil, err
	}

	chunks := []model.Chunk{{Start: start, End: start.Add(duration)}}
	return o.commitSlot(ctx, sc, chunks, true, "late placement after missed deadline")
}

func idsOf(captures []*model.Capture) []string {
	out := make([]string, 0, len(captures))
	for _, c := range captures {
		out = append(out, c.ID)
	}
	return out
}
