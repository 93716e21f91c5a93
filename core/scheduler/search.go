package scheduler

import (
	"context"
	"sort"
	"time"

	"github.com/kilianp07/diaguru/core/chunk"
	"github.com/kilianp07/diaguru/core/model"
	"github.com/kilianp07/diaguru/core/preemption"
	"github.com/kilianp07/diaguru/core/slotsearch"
)

// tryPlanCandidate runs the plan-mode-specific slot search, committing a
// single unsplit chunk on success.
func (o *Orchestrator) tryPlanCandidate(ctx context.Context, sc *scheduleCtx) (*Result, error) {
	duration := time.Duration(sc.cap.DurationMinutes()) * time.Minute
	opts := sc.slotOptions()

	var start time.Time
	var err error
	switch sc.plan.Mode {
	case model.PlanDeadline:
		start, err = slotsearch.FindBeforeDeadline(sc.busyIntervals, duration, sc.plan.Deadline, sc.now, opts)
	case model.PlanWindow:
		start, err = slotsearch.FindWithinWindow(sc.busyIntervals, duration, sc.plan.Window.Start, sc.plan.Window.End, sc.now, opts)
	case model.PlanStart:
		opts.StartFrom = sc.plan.PreferredSlot.Start
		start, err = slotsearch.FindNextAvailable(sc.busyIntervals, duration, opts)
	default:
		start, err = slotsearch.FindNextAvailable(sc.busyIntervals, duration, opts)
	}
	if err != nil {
		return nil, err
	}

	chunks := []model.Chunk{{Start: start, End: start.Add(duration)}}
	return o.commitSlot(ctx, sc, chunks, false, "plan candidate")
}

// slotOptions builds the slotsearch.Options shared by the plan-candidate and
// late-placement searches.
func (sc *scheduleCtx) slotOptions() slotsearch.Options {
	enforce := !sc.cap.IsRoutine()
	var bands []model.TimeOfDay
	if sc.cap.TimePrefTimeOfDay != nil {
		bands = []model.TimeOfDay{*sc.cap.TimePrefTimeOfDay}
	}
	return slotsearch.Options{
		ReferenceNow:         sc.now,
		EnforceWorkingWindow: enforce,
		PreferredTimeOfDay:   bands,
		TZ:                   sc.tz,
		StartHour:            sc.startHour,
		EndHour:              sc.endHour,
	}
}

// tryChunkedDeadline splits the duration and places the chunks consecutively
// across [now, deadline], committing the spanning placement on success.
func (o *Orchestrator) tryChunkedDeadline(ctx context.Context, sc *scheduleCtx, deadline time.Time) (*Result, error) {
	cap := sc.cap
	durations := chunk.GenerateDurations(
		cap.DurationMinutes(),
		cap.MinChunk(o.cfg.MinChunkOrDefault()),
		cap.MaxSplit(o.cfg.MaxSplitsOrDefault()),
		cap.DurationFlexibility == model.DurationSplitAllowed,
		o.cfg.TargetChunkOrDefault(),
	)

	placements, _, err := chunk.PlaceWithinRange(durations, sc.busyIntervals, sc.now, deadline, !cap.IsRoutine(), sc.startHour, sc.endHour, sc.tz)
	if err != nil {
		return nil, err
	}

	chunks := make([]model.Chunk, 0, len(placements))
	for _, p := range placements {
		chunks = append(chunks, model.Chunk{Start: p.Start, End: p.End})
	}
	return o.commitSlot(ctx, sc, chunks, false, "chunked deadline placement")
}

// tryGridPreemption scans owned-only window candidates and picks the
// highest net-gain one whose constituent owned captures are all outranked,
// unfrozen and outside the stability window.
func (o *Orchestrator) tryGridPreemption(ctx context.Context, sc *scheduleCtx) (*Result, error) {
	cap := sc.cap
	duration := time.Duration(cap.DurationMinutes()) * time.Minute

	candidates := sc.grid.CollectWindowCandidates(duration, sc.rangeStart, sc.rangeEnd, 32)
	if len(candidates) == 0 {
		return nil, errNoCandidates
	}

	type scored struct {
		cand model.WindowCandidate
		net  preemption.NetGainResult
		disp []*model.Capture
	}
	var best *scored
	for _, cand := range candidates {
		if cand.OwnedMinutes == 0 {
			continue // no displacement needed — step 6 would have found it
		}
		slot := model.Window{Start: cand.Start, End: cand.Start.Add(duration)}

		ids := make([]string, 0, len(cand.OwnerMinutes))
		for id := range cand.OwnerMinutes {
			ids = append(ids, id)
		}
		owners, err := o.resolveCaptures(ctx, ids)
		if err != nil {
			continue
		}
		movable := movableCaptures(owners, sc.now, sc.plan.Mode == model.PlanDeadline)
		if len(movable) == 0 {
			continue
		}
		combo, found := preemption.SelectMinimalSet(slot, sc.events, sc.busyIntervals, idsOf(movable), true)
		if !found {
			continue
		}
		selected, err := o.resolveCaptures(ctx, combo)
		if err != nil {
			continue
		}
		if !outranksAll(cap, selected, sc.now, o.weights) {
			continue
		}
		displacements := make([]preemption.Displacement, 0, len(selected))
		for _, owner := range selected {
			displacements = append(displacements, preemption.Displacement{Capture: owner, MinutesClaimed: cand.OwnerMinutes[owner.ID]})
		}
		net := preemption.EvaluateNetGain(cap, displacements, int(duration.Minutes()), sc.now, o.weights, o.cfg.OverlapCost)
		if !net.Allow(o.cfg.Preemption, len(selected), displacedMinutes(displacements)) {
			continue
		}
		if best == nil || net.Net > best.net.Net {
			best = &scored{cand: cand, net: net, disp: selected}
		}
	}
	if best == nil {
		return nil, errNoCandidates
	}

	sort.Slice(best.disp, func(i, j int) bool { return best.disp[i].ID < best.disp[j].ID })

	start := best.cand.Start
	chunks := []model.Chunk{{Start: start, End: start.Add(duration)}}
	return o.commitPreemptiveTarget(ctx, sc, chunks, best.disp, best.net)
}

func displacedMinutes(d []preemption.Displacement) int {
	total := 0
	for _, x := range d {
		total += x.MinutesClaimed
	}
	return total
}

var errNoCandidates = errGridExhausted{}

type errGridExhausted struct{}

func (errGridExhausted) Error() string { return "no feasible grid-preemption candidate" }
