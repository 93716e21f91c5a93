package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/diaguru/core/advisor"
	"github.com/kilianp07/diaguru/core/audit"
	"github.com/kilianp07/diaguru/core/busy"
	"github.com/kilianp07/diaguru/core/calendar"
	"github.com/kilianp07/diaguru/core/constraint"
	"github.com/kilianp07/diaguru/core/grid"
	"github.com/kilianp07/diaguru/core/logger"
	"github.com/kilianp07/diaguru/core/metrics"
	"github.com/kilianp07/diaguru/core/model"
	"github.com/kilianp07/diaguru/core/monitoring"
	"github.com/kilianp07/diaguru/core/notify"
	"github.com/kilianp07/diaguru/core/priority"
	"github.com/kilianp07/diaguru/core/routine"
	"github.com/kilianp07/diaguru/core/store"
	"github.com/kilianp07/diaguru/internal/eventbus"
)

// nopLogger discards everything; used when no logger is injected.
type nopLogger struct{}

func (nopLogger) Debugf(string, ...any)         {}
func (nopLogger) Debugw(string, map[string]any) {}
func (nopLogger) Infof(string, ...any)          {}
func (nopLogger) Warnf(string, ...any)          {}
func (nopLogger) Errorf(string, ...any)         {}

// Orchestrator composes the leaf scheduling packages into the commit
// decision. All collaborators are injected rather than ambient, which is
// what makes this testable against a MemoryStore and a calendar mock
// instead of real infrastructure.
type Orchestrator struct {
	cfg      SchedulerConfig
	calendar calendar.Gateway
	store    store.Store
	advisor  advisor.Advisor
	notify   notify.Publisher
	metrics  metrics.MetricsSink
	log      logger.Logger
	monitor  monitoring.Monitor
	bus      eventbus.EventBus
	clock    func() time.Time
	newID    func() string
	weights  priority.Weights
}

// Option configures an Orchestrator at construction time.
type Option func(*Orchestrator)

// WithAdvisor injects a conflict advisor. Defaults to advisor.Baseline.
func WithAdvisor(a advisor.Advisor) Option { return func(o *Orchestrator) { o.advisor = a } }

// WithNotify injects the real-time fan-out publisher. Defaults to NopPublisher.
func WithNotify(n notify.Publisher) Option { return func(o *Orchestrator) { o.notify = n } }

// WithMetrics injects the metrics sink. Defaults to metrics.NopSink.
func WithMetrics(m metrics.MetricsSink) Option { return func(o *Orchestrator) { o.metrics = m } }

// WithLogger injects the structured logger. Defaults to a no-op logger.
func WithLogger(l logger.Logger) Option { return func(o *Orchestrator) { o.log = l } }

// WithMonitor injects the error monitor. Defaults to monitoring.NopMonitor.
func WithMonitor(m monitoring.Monitor) Option { return func(o *Orchestrator) { o.monitor = m } }

// WithBus injects the event bus used to publish commit/conflict/preemption
// events for observers. Defaults to a fresh eventbus.Bus.
func WithBus(b eventbus.EventBus) Option { return func(o *Orchestrator) { o.bus = b } }

// WithClock overrides the orchestrator's notion of "now", for deterministic
// tests. Defaults to time.Now.
func WithClock(fn func() time.Time) Option { return func(o *Orchestrator) { o.clock = fn } }

// WithNewID overrides id generation, for deterministic tests. Defaults to
// uuid.NewString.
func WithNewID(fn func() string) Option { return func(o *Orchestrator) { o.newID = fn } }

// WithWeights overrides the priority scoring weights. Defaults to
// priority.DefaultWeights.
func WithWeights(w priority.Weights) Option { return func(o *Orchestrator) { o.weights = w } }

// New builds an Orchestrator over the given config, calendar gateway and
// store, applying any options.
func New(cfg SchedulerConfig, cal calendar.Gateway, st store.Store, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg:      cfg,
		calendar: cal,
		store:    st,
		advisor:  advisor.Baseline{},
		notify:   notify.NopPublisher{},
		metrics:  metrics.NopSink{},
		log:      nopLogger{},
		monitor:  monitoring.NopMonitor{},
		bus:      eventbus.New(),
		clock:    time.Now,
		newID:    uuid.NewString,
		weights:  priority.DefaultWeights(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Schedule executes one /schedule-capture invocation. It loads the capture,
// checks ownership and freeze state, and handles the terminal "complete"
// action before delegating to scheduleInternal for the full decision
// precedence.
func (o *Orchestrator) Schedule(ctx context.Context, req Request) (*Result, error) {
	return o.doSchedule(ctx, req, false)
}

// scheduleNoCascade re-enters Schedule for a displaced capture with
// cascading preemption disabled.
func (o *Orchestrator) scheduleNoCascade(ctx context.Context, req Request) (*Result, error) {
	return o.doSchedule(ctx, req, true)
}

func (o *Orchestrator) doSchedule(ctx context.Context, req Request, noCascade bool) (*Result, error) {
	cap, err := o.store.GetCapture(ctx, req.CaptureID)
	if err != nil {
		var nf *store.NotFoundError
		if errors.As(err, &nf) {
			return nil, newNotFoundError(req.CaptureID)
		}
		return nil, newInternalError("load capture: " + err.Error())
	}
	if cap.OwnerID != req.OwnerID {
		return nil, newAuthError(403, "capture not owned by caller")
	}

	now := o.clock()
	if cap.IsFrozen(now) {
		return nil, newConflictError("frozen", "capture is frozen until "+cap.FreezeUntil.Format(time.RFC3339), nil)
	}

	if req.Action == "complete" {
		return o.completeCapture(ctx, cap, now)
	}

	tz := req.Timezone
	if tz == "" {
		tz = o.cfg.Timezone
	}
	return o.scheduleInternal(ctx, req, cap, tz, now, noCascade)
}

func (o *Orchestrator) completeCapture(ctx context.Context, cap *model.Capture, now time.Time) (*Result, error) {
	before := model.SnapshotOf(cap)
	cap.Status = model.StatusCompleted
	cap.UpdatedAt = now
	if err := o.store.UpdateCapture(ctx, cap); err != nil {
		return nil, newInternalError("persist completion: " + err.Error())
	}
	ledger := audit.New(cap.OwnerID, o.newID)
	ledger.Record(now, cap.ID, cap.Content, model.ActionUnscheduled, before, model.SnapshotOf(cap))
	o.finalizeLedger(ctx, ledger)
	return &Result{Message: "capture marked completed", Capture: cap}, nil
}

// scheduleInternal runs the ten-step decision precedence: normalize,
// load the calendar, compute a plan, and attempt placements in order of
// preference until one commits or every avenue is exhausted.
func (o *Orchestrator) scheduleInternal(ctx context.Context, req Request, cap *model.Capture, tz string, now time.Time, noCascade bool) (*Result, error) {
	ledger := audit.New(cap.OwnerID, o.newID)
	ledger.EnsureStarted(now)

	// Step 1: normalize routines.
	rn := routine.New(tz)
	if err := rn.Normalize(cap, now); err != nil {
		return nil, newValidationError("normalize routine: " + err.Error())
	}

	// Step 2: load calendar, build busy intervals + grid.
	horizon := now.AddDate(0, 0, o.cfg.SearchDaysOrDefault())
	events, err := o.calendar.List(ctx, cap.OwnerID, now, horizon)
	if err != nil {
		var reconnect *calendar.ReconnectError
		if errors.As(err, &reconnect) {
			return nil, newValidationError("calendar account needs reconnect")
		}
		return nil, newUpstreamError("list calendar events: " + err.Error())
	}

	con := constraint.New(tz)
	plan, err := con.ComputePlan(cap, now)
	if err != nil {
		return nil, newValidationError("compute plan: " + err.Error())
	}

	buffer := o.bufferFor(plan, now)
	busyIntervals := busy.Compute(events, buffer, now)

	startHour, endHour := o.cfg.WorkingHours()
	g, err := grid.Build(tz, now, o.cfg.SearchDaysOrDefault(), startHour, endHour, busyIntervals)
	if err != nil {
		return nil, newValidationError("build occupancy grid: " + err.Error())
	}

	rs, re := o.planWindow(plan, now, horizon)

	sc := &scheduleCtx{
		owner: o,
		req:   req, cap: cap, tz: tz, now: now,
		events: events, busyIntervals: busyIntervals, grid: g,
		plan: plan, rangeStart: rs, rangeEnd: re,
		startHour: startHour, endHour: endHour,
		ledger:    ledger,
		noCascade: noCascade,
	}

	// Step 4: deadline elapsed?
	if deadline, ok := sc.effectiveDeadline(); ok && !deadline.After(now) {
		if req.AllowLatePlacement {
			if res, err := o.commitLate(ctx, sc, deadline); err == nil {
				return res, nil
			}
		}
		return nil, o.capacityConflict(ctx, sc, "slot_exceeds_deadline")
	}

	// Step 5: preferred slot path — always terminal when a preferred slot
	// exists (either user-supplied or the plan's own preferred start).
	if preferred, ok := sc.preferred(); ok {
		return o.tryPreferredSlot(ctx, sc, preferred)
	}

	// Step 6: plan candidate.
	if res, err := o.tryPlanCandidate(ctx, sc); err == nil {
		return res, nil
	}

	// Step 7: deadline direct chunked placement.
	if deadline, ok := sc.effectiveDeadline(); ok {
		if res, err := o.tryChunkedDeadline(ctx, sc, deadline); err == nil {
			return res, nil
		}
	}

	// Step 8: grid preemption.
	if req.AllowRebalance {
		if res, err := o.tryGridPreemption(ctx, sc); err == nil {
			return res, nil
		}
	}

	// Step 9/10: soft-deadline / final late-or-fail.
	if deadline, ok := sc.effectiveDeadline(); ok {
		if req.AllowLatePlacement {
			if res, err := o.commitLate(ctx, sc, deadline); err == nil {
				return res, nil
			}
		}
		return nil, o.capacityConflict(ctx, sc, "slot_exceeds_deadline")
	}

	return nil, o.capacityConflict(ctx, sc, "no_slot")
}

// scheduleCtx carries the per-request state threaded through the
// orchestrator's decision steps, avoiding a long positional parameter list
// across scheduler.go/preferred.go/search.go/commit.go/decision.go.
type scheduleCtx struct {
	owner         *Orchestrator
	req           Request
	cap           *model.Capture
	tz            string
	now           time.Time
	events        []model.CalendarEvent
	busyIntervals []model.BusyInterval
	grid          *grid.Grid
	plan          model.SchedulingPlan
	rangeStart    time.Time
	rangeEnd      time.Time
	startHour     int
	endHour       int
	ledger        *audit.Ledger

	// noCascade disables recursive preemption when rescheduling a displaced
	// capture.
	noCascade bool
}

// preferred resolves the terminal-path preferred slot: the request body's
// explicit slot takes precedence, falling back to the plan's own preferred
// start in start-constraint mode.
func (sc *scheduleCtx) preferred() (model.Window, bool) {
	if w, ok := sc.req.preferredSlot(); ok {
		return w, true
	}
	if sc.plan.Mode == model.PlanStart {
		return sc.plan.PreferredSlot, true
	}
	return model.Window{}, false
}

// effectiveDeadline resolves the deadline governing steps 4/7/9/10: the
// plan's own deadline in deadline mode, else the capture's raw deadline_at
// (routine normalization often attaches one even in window mode).
func (sc *scheduleCtx) effectiveDeadline() (time.Time, bool) {
	if sc.plan.Mode == model.PlanDeadline {
		return sc.plan.Deadline, true
	}
	if sc.cap.DeadlineAt != nil {
		return *sc.cap.DeadlineAt, true
	}
	return time.Time{}, false
}

func (sc *scheduleCtx) freeMinutesInRange() int {
	total := 0
	for _, c := range sc.grid.Cells {
		if c.State != model.CellFree {
			continue
		}
		if c.Start.Before(sc.rangeStart) || c.End.After(sc.rangeEnd) {
			continue
		}
		total += int(c.End.Sub(c.Start).Minutes())
	}
	return total
}

// bufferFor applies the compressed buffer under deadline pressure: a
// deadline-mode plan whose deadline is within 2 hours of now. The exact
// pressure threshold is a documented simplification (see DESIGN.md).
func (o *Orchestrator) bufferFor(plan model.SchedulingPlan, now time.Time) time.Duration {
	const pressureWindow = 2 * time.Hour
	if plan.Mode == model.PlanDeadline && plan.Deadline.Sub(now) <= pressureWindow {
		return o.cfg.CompressedBuffer()
	}
	return o.cfg.Buffer()
}

// planWindow derives the scheduling window:
// [max(plan.window.start, now), plan.window.end ∪ deadline ∪ grid.end].
func (o *Orchestrator) planWindow(plan model.SchedulingPlan, now, gridEnd time.Time) (time.Time, time.Time) {
	switch plan.Mode {
	case model.PlanWindow:
		start := plan.Window.Start
		if now.After(start) {
			start = now
		}
		return start, plan.Window.End
	case model.PlanDeadline:
		return now, plan.Deadline
	case model.PlanStart:
		return now, gridEnd
	default:
		return now, gridEnd
	}
}

func (o *Orchestrator) finalizeLedger(ctx context.Context, ledger *audit.Ledger) {
	if !ledger.Started() {
		return
	}
	if err := o.store.AppendPlanActions(ctx, ledger.Actions()); err != nil {
		o.log.Errorf("append plan actions: %v", err)
		o.monitor.CaptureException(err, map[string]string{"module": "scheduler"})
	}
	if err := o.store.SaveRunSummary(ctx, ledger.Run()); err != nil {
		o.log.Errorf("save run summary: %v", err)
		o.monitor.CaptureException(err, map[string]string{"module": "scheduler"})
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
