// Package scheduler implements the request-level state machine that
// composes the leaf scheduling packages (timez, priority, busy, grid,
// constraint, routine, chunk, slotsearch, overlap, preemption, audit) into
// the commit decision: normalize, load the calendar, compute a plan, attempt
// a preferred slot, a plan candidate, chunked deadline placement, grid
// preemption, and finally late placement or a structured conflict.
package scheduler
