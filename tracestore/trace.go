package tracestore

import (
	"math"

	"github.com/google/uuid"
)

// Trace is the immutable summary of a recorded session.
// It is owned by the metadata store; readers and loaders only read it.
type Trace struct {
	ID             uuid.UUID
	Alias          string
	MinTimestamp   int64
	MaxTimestamp   int64
	NumberOfEvents int64
	Locator        string // prefix of the trace's tables in the backing store
}

// Span returns the time extent of the trace (max - min).
func (t Trace) Span() int64 {
	return t.MaxTimestamp - t.MinTimestamp
}

// Validate checks the fields a loader relies on.
func (t Trace) Validate() error {
	if t.Locator == "" {
		return ErrEmptyLocator
	}

	if t.Span() <= 0 {
		return ErrEmptyTraceSpan
	}

	return nil
}

// TimeWindow is a half-open timestamp range [Start, End).
// The last window of a load is closed on the right, signaled by EndInclusive.
type TimeWindow struct {
	Start        int64
	End          int64
	EndInclusive bool
}

// Contains reports whether the timestamp falls inside the window.
func (w TimeWindow) Contains(ts int64) bool {
	if ts < w.Start {
		return false
	}

	if w.EndInclusive {
		return ts <= w.End
	}

	return ts < w.End
}

// Duration returns End - Start.
func (w TimeWindow) Duration() int64 {
	return w.End - w.Start
}

// ObservedBounds is the tightest [Min, Max] interval covered by a set of events:
// Min is the smallest start timestamp, Max the largest effective end timestamp.
type ObservedBounds struct {
	Min int64
	Max int64
}

// EmptyBounds returns bounds that cover nothing; extending them with the first event makes them tight.
func EmptyBounds() ObservedBounds {
	return ObservedBounds{Min: math.MaxInt64, Max: math.MinInt64}
}

// IsEmpty reports whether no event has been recorded in the bounds.
func (b ObservedBounds) IsEmpty() bool {
	return b.Min > b.Max
}

// Extend widens the bounds so that they cover the event.
func (b ObservedBounds) Extend(ev ReducedEvent) ObservedBounds {
	if ev.Start() < b.Min {
		b.Min = ev.Start()
	}

	if end := ev.EffectiveEnd(); end > b.Max {
		b.Max = end
	}

	return b
}
