package sqlengine

import (
	"context"
	"sync/atomic"

	"github.com/AntonStoeckl/trace-window-loader-go/tracestore"
)

// TraceSession is a trace-scoped read session on an EventStore.
// It resolves the trace's tables once and renders all reads against them.
type TraceSession struct {
	es     *EventStore
	trace  tracestore.Trace
	tables traceTables
	closed atomic.Bool
}

// OpenSession validates the trace and returns a session reading its tables.
func (es *EventStore) OpenSession(_ context.Context, trace tracestore.Trace) (tracestore.Session, error) {
	tables, err := tablesFor(trace.Locator)
	if err != nil {
		return nil, err
	}

	return &TraceSession{es: es, trace: trace, tables: tables}, nil
}

// Trace returns the trace this session reads.
func (s *TraceSession) Trace() tracestore.Trace {
	return s.trace
}

// ReadSlice streams all events with a start timestamp inside the query range, ordered by (start, end).
func (s *TraceSession) ReadSlice(ctx context.Context, query tracestore.SliceQuery, visit tracestore.VisitFunc) error {
	if s.closed.Load() {
		return tracestore.ErrSessionClosed
	}

	sqlQuery, err := s.es.buildSliceQuery(s.tables.event, query)
	if err != nil {
		s.es.logError(ctx, logMsgBuildQueryFailed, err, logAttrTable, s.tables.event)
		s.es.recordErrorMetrics(ctx, operationReadSlice, errorTypeBuildQuery)

		return err
	}

	return s.es.scanEvents(ctx, spanNameReadSlice, operationReadSlice, s.tables.event, query.From, query.To, sqlQuery, visit)
}

// ReadBoundary streams the events that start before the window and end at or after it, ordered by (start, end).
func (s *TraceSession) ReadBoundary(ctx context.Context, query tracestore.BoundaryQuery, visit tracestore.VisitFunc) error {
	if s.closed.Load() {
		return tracestore.ErrSessionClosed
	}

	sqlQuery, err := s.es.buildBoundaryQuery(s.tables.event, query)
	if err != nil {
		s.es.logError(ctx, logMsgBuildQueryFailed, err, logAttrTable, s.tables.event)
		s.es.recordErrorMetrics(ctx, operationReadBoundary, errorTypeBuildQuery)

		return err
	}

	return s.es.scanEvents(ctx, spanNameReadBoundary, operationReadBoundary, s.tables.event, query.TraceMin, query.WindowStart, sqlQuery, visit)
}

// ReadCategories streams every event of the selected categories over the whole trace, ordered by (start, end).
func (s *TraceSession) ReadCategories(ctx context.Context, query tracestore.CategoryQuery, visit tracestore.VisitFunc) error {
	if s.closed.Load() {
		return tracestore.ErrSessionClosed
	}

	sqlQuery, err := s.es.buildCategoryQuery(s.tables.event, query)
	if err != nil {
		s.es.logError(ctx, logMsgBuildQueryFailed, err, logAttrTable, s.tables.event)
		s.es.recordErrorMetrics(ctx, operationReadCategory, errorTypeBuildQuery)

		return err
	}

	return s.es.scanEvents(ctx, spanNameReadCategory, operationReadCategory, s.tables.event,
		s.trace.MinTimestamp, s.trace.MaxTimestamp, sqlQuery, visit)
}

// Producers reads the producer catalog of the trace.
func (s *TraceSession) Producers(ctx context.Context) ([]tracestore.Producer, error) {
	if s.closed.Load() {
		return nil, tracestore.ErrSessionClosed
	}

	return s.es.readProducers(ctx, s.tables.producer)
}

// Types reads the event type catalog of the trace.
func (s *TraceSession) Types(ctx context.Context) ([]tracestore.EventType, error) {
	if s.closed.Load() {
		return nil, tracestore.ErrSessionClosed
	}

	return s.es.readTypes(ctx, s.tables.typ)
}

// Close marks the session as closed. The underlying connection pool stays owned by the caller.
func (s *TraceSession) Close() error {
	s.closed.Store(true)
	return nil
}
