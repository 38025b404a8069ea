// Package tracestore provides the core abstractions and types for reading recorded traces
// from a time-ordered event store.
//
// This package defines the model shared by the store implementations and the window loader:
// trace summaries, reduced events, time windows, observed bounds, producer and type
// descriptors, the two read shapes a store has to support, and common error definitions.
//
// A store has to support two range scans on the start timestamp of events:
//   - SliceQuery: start >= From AND start < To (or start <= To for the last slice)
//   - BoundaryQuery: start < WindowStart AND (start, end) >= (TraceMin, WindowStart)
//
// Key types:
//   - Trace: Immutable summary of one recorded session
//   - ReducedEvent: Minimal event record, one of Instant, Interval, Link, Variable
//   - Session: Trace-scoped, single-owner connection to the event store
//
// Common usage pattern:
//
//	session, err := opener.OpenSession(ctx, trace)
//	if err != nil {
//		// handle error
//	}
//	defer session.Close()
//
//	err = session.ReadSlice(ctx, SliceQuery{From: 0, To: 100}, func(ev ReducedEvent) error {
//		// consume ev
//		return nil
//	})
package tracestore
