package windowloader

import (
	"context"

	"github.com/AntonStoeckl/trace-window-loader-go/tracestore"
)

// sliceResult is what one read produced. A cancelled result holds partial events that must not be pushed.
type sliceResult struct {
	events      tracestore.ReducedEvents
	bounds      tracestore.ObservedBounds
	latestStart int64
	rows        int
	cancelled   bool
}

func newSliceResult(latestStart int64) sliceResult {
	return sliceResult{
		events:      make(tracestore.ReducedEvents, 0),
		bounds:      tracestore.EmptyBounds(),
		latestStart: latestStart,
	}
}

func (r *sliceResult) add(ev tracestore.ReducedEvent) {
	r.events = append(r.events, ev)
	r.bounds = r.bounds.Extend(ev)
}

// cancelCheck is consulted after every decoded row and looks at the context every n rows.
func (l *Loader) cancelCheck(ctx context.Context, result *sliceResult) bool {
	result.rows++
	if result.rows%l.cancelCheckInterval != 0 {
		return false
	}

	if ctx.Err() != nil {
		result.cancelled = true
		return true
	}

	return false
}

// readSlice reads all events starting inside the window.
// The upper bound is exclusive unless the window is the last one of the load.
func (l *Loader) readSlice(
	ctx context.Context,
	session tracestore.Session,
	window tracestore.TimeWindow,
	latestStart int64,
) (sliceResult, error) {

	result := newSliceResult(latestStart)
	query := tracestore.SliceQuery{From: window.Start, To: window.End, ToInclusive: window.EndInclusive}

	err := session.ReadSlice(ctx, query, func(ev tracestore.ReducedEvent) error {
		result.add(ev)

		if ev.Start() > result.latestStart {
			result.latestStart = ev.Start()
		}

		if l.cancelCheck(ctx, &result) {
			return tracestore.ErrStopScan
		}

		return nil
	})

	if err != nil {
		if ctx.Err() != nil {
			// the driver gave up because the context ended
			result.cancelled = true
			return result, nil
		}

		return sliceResult{}, err
	}

	return result, nil
}

// readBoundarySlice reads the State and Link events that start before the first window of a load
// and are still running at its start. Instant and Variable events are dropped after decoding, and so
// are duration events that ended before windowStart.
func (l *Loader) readBoundarySlice(
	ctx context.Context,
	session tracestore.Session,
	traceMin int64,
	windowStart int64,
) (sliceResult, error) {

	result := newSliceResult(windowStart)
	query := tracestore.BoundaryQuery{TraceMin: traceMin, WindowStart: windowStart, DurationOnly: true}

	err := session.ReadBoundary(ctx, query, func(ev tracestore.ReducedEvent) error {
		if overlapsBoundary(ev, windowStart) {
			result.add(ev)
		}

		if l.cancelCheck(ctx, &result) {
			return tracestore.ErrStopScan
		}

		return nil
	})

	if err != nil {
		if ctx.Err() != nil {
			result.cancelled = true
			return result, nil
		}

		return sliceResult{}, err
	}

	return result, nil
}

// overlapsBoundary reports whether a duration event started before windowStart and is still running at it.
// Events starting at or after windowStart belong to the sweep and are never taken here.
func overlapsBoundary(ev tracestore.ReducedEvent, windowStart int64) bool {
	return tracestore.IsDurationBearing(ev) && ev.Start() < windowStart && ev.EffectiveEnd() >= windowStart
}
