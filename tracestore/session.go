package tracestore

import (
	"context"
	"slices"

	"github.com/google/uuid"
)

// SliceQuery selects all events with From <= start < To, or From <= start <= To when ToInclusive is set.
type SliceQuery struct {
	From        int64
	To          int64
	ToInclusive bool
}

// BoundaryQuery selects events with start < WindowStart AND (start, end) >= (TraceMin, WindowStart),
// compared as row values in the store's natural (start, end) ordering.
//
// DurationOnly allows a store to push the category restriction (State, Link) into the query.
// Callers must still filter after decoding, since not every store can express both predicates at once.
type BoundaryQuery struct {
	TraceMin     int64
	WindowStart  int64
	DurationOnly bool
}

// CategoryQuery selects all events of the trace whose category is one of Categories.
// An empty Categories list selects every event.
type CategoryQuery struct {
	Categories []Category
}

// Matches reports whether an event of category c is selected by the query.
func (q CategoryQuery) Matches(c Category) bool {
	return len(q.Categories) == 0 || slices.Contains(q.Categories, c)
}

// VisitFunc receives decoded events in the store's row order.
// Returning ErrStopScan ends the scan early without an error, any other error aborts the scan and is returned.
type VisitFunc func(ev ReducedEvent) error

// Session is a trace-scoped connection to the event store.
// It is not safe for concurrent use: one loader worker owns it for the duration of a load.
type Session interface {
	ReadSlice(ctx context.Context, query SliceQuery, visit VisitFunc) error
	ReadBoundary(ctx context.Context, query BoundaryQuery, visit VisitFunc) error
	ReadCategories(ctx context.Context, query CategoryQuery, visit VisitFunc) error
	Producers(ctx context.Context) ([]Producer, error)
	Types(ctx context.Context) ([]EventType, error)
	Close() error
}

// SessionOpener opens sessions on the backing store of a trace.
type SessionOpener interface {
	OpenSession(ctx context.Context, trace Trace) (Session, error)
}

// TraceRepository gives read and write access to trace summaries.
type TraceRepository interface {
	LoadTrace(ctx context.Context, id uuid.UUID) (Trace, error)
	ListTraces(ctx context.Context) ([]Trace, error)
	SaveTrace(ctx context.Context, trace Trace) error
}
