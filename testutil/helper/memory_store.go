package helper

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/AntonStoeckl/trace-window-loader-go/tracestore"
)

// MemoryStore is an in-memory tracestore.SessionOpener for one trace.
//
// It answers slice and boundary queries like the SQL store does, records every query it
// receives and can be told to fail or to run a hook before a read.
type MemoryStore struct {
	mu              sync.Mutex
	events          tracestore.ReducedEvents
	producers       []tracestore.Producer
	types           []tracestore.EventType
	sliceQueries    []tracestore.SliceQuery
	boundaryQueries []tracestore.BoundaryQuery
	categoryQueries []tracestore.CategoryQuery
	opened          int
	closed          int
	catalogReads    int

	openErr      error
	sliceErrAt   int
	sliceErr     error
	boundaryErr  error
	categoryErr  error
	catalogErr   error
	ignoreCtx    bool
	beforeSlice  func(call int, query tracestore.SliceQuery)
	beforeBounds func(query tracestore.BoundaryQuery)
}

// NewMemoryStore creates a store holding the given events in (start, end) order.
func NewMemoryStore(events tracestore.ReducedEvents) *MemoryStore {
	sorted := slices.Clone(events)
	slices.SortStableFunc(sorted, func(a, b tracestore.ReducedEvent) int {
		if c := cmp.Compare(a.Start(), b.Start()); c != 0 {
			return c
		}

		return cmp.Compare(a.EffectiveEnd(), b.EffectiveEnd())
	})

	return &MemoryStore{
		events:     sorted,
		producers:  GivenProducers(4),
		types:      GivenEventTypes(),
		sliceErrAt: -1,
	}
}

// WithCatalog replaces the default producers and types.
func (s *MemoryStore) WithCatalog(producers []tracestore.Producer, types []tracestore.EventType) *MemoryStore {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.producers = producers
	s.types = types

	return s
}

// FailOpenWith makes OpenSession fail with err.
func (s *MemoryStore) FailOpenWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.openErr = err
}

// FailSliceReadAt makes the slice read with the given zero-based call number fail with err.
func (s *MemoryStore) FailSliceReadAt(call int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sliceErrAt = call
	s.sliceErr = err
}

// FailBoundaryReadWith makes every boundary read fail with err.
func (s *MemoryStore) FailBoundaryReadWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.boundaryErr = err
}

// FailCategoryReadWith makes every category read fail with err.
func (s *MemoryStore) FailCategoryReadWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.categoryErr = err
}

// FailCatalogWith makes producer and type reads fail with err.
func (s *MemoryStore) FailCatalogWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.catalogErr = err
}

// IgnoreContext makes reads stream all rows even after the context ended,
// like a driver that already holds the result set in memory.
func (s *MemoryStore) IgnoreContext() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ignoreCtx = true
}

// BeforeReadSlice registers a hook that runs when a slice read starts, before any row is visited.
func (s *MemoryStore) BeforeReadSlice(hook func(call int, query tracestore.SliceQuery)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.beforeSlice = hook
}

// BeforeReadBoundary registers a hook that runs when a boundary read starts.
func (s *MemoryStore) BeforeReadBoundary(hook func(query tracestore.BoundaryQuery)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.beforeBounds = hook
}

// SliceQueries returns the slice queries received so far, in order.
func (s *MemoryStore) SliceQueries() []tracestore.SliceQuery {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.sliceQueries)
}

// BoundaryQueries returns the boundary queries received so far, in order.
func (s *MemoryStore) BoundaryQueries() []tracestore.BoundaryQuery {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.boundaryQueries)
}

// CategoryQueries returns the category queries received so far, in order.
func (s *MemoryStore) CategoryQueries() []tracestore.CategoryQuery {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.categoryQueries)
}

// OpenedSessions returns how many sessions were opened.
func (s *MemoryStore) OpenedSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.opened
}

// ClosedSessions returns how many sessions were closed.
func (s *MemoryStore) ClosedSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.closed
}

// CatalogReads returns how many producer reads were served.
func (s *MemoryStore) CatalogReads() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.catalogReads
}

// OpenSession implements tracestore.SessionOpener.
func (s *MemoryStore) OpenSession(_ context.Context, trace tracestore.Trace) (tracestore.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.openErr != nil {
		return nil, s.openErr
	}

	if trace.Locator == "" {
		return nil, tracestore.ErrEmptyLocator
	}

	s.opened++

	return &memorySession{store: s}, nil
}

type memorySession struct {
	store  *MemoryStore
	closed bool
}

func (m *memorySession) ReadSlice(ctx context.Context, query tracestore.SliceQuery, visit tracestore.VisitFunc) error {
	if m.closed {
		return tracestore.ErrSessionClosed
	}

	s := m.store

	s.mu.Lock()
	call := len(s.sliceQueries)
	s.sliceQueries = append(s.sliceQueries, query)
	hook := s.beforeSlice
	failErr := s.sliceErr
	failAt := s.sliceErrAt
	ignoreCtx := s.ignoreCtx
	s.mu.Unlock()

	if hook != nil {
		hook(call, query)
	}

	if !ignoreCtx && ctx.Err() != nil {
		return ctx.Err()
	}

	if failErr != nil && call == failAt {
		return failErr
	}

	return scan(s.snapshot(), visit, func(ev tracestore.ReducedEvent) bool {
		if ev.Start() < query.From {
			return false
		}

		if query.ToInclusive {
			return ev.Start() <= query.To
		}

		return ev.Start() < query.To
	})
}

func (m *memorySession) ReadBoundary(ctx context.Context, query tracestore.BoundaryQuery, visit tracestore.VisitFunc) error {
	if m.closed {
		return tracestore.ErrSessionClosed
	}

	s := m.store

	s.mu.Lock()
	s.boundaryQueries = append(s.boundaryQueries, query)
	hook := s.beforeBounds
	failErr := s.boundaryErr
	ignoreCtx := s.ignoreCtx
	s.mu.Unlock()

	if hook != nil {
		hook(query)
	}

	if !ignoreCtx && ctx.Err() != nil {
		return ctx.Err()
	}

	if failErr != nil {
		return failErr
	}

	// DurationOnly is left to the caller, which must filter after decoding anyway.
	return scan(s.snapshot(), visit, func(ev tracestore.ReducedEvent) bool {
		if ev.Start() >= query.WindowStart {
			return false
		}

		return ev.Start() > query.TraceMin || (ev.Start() == query.TraceMin && ev.EffectiveEnd() >= query.WindowStart)
	})
}

func (m *memorySession) ReadCategories(ctx context.Context, query tracestore.CategoryQuery, visit tracestore.VisitFunc) error {
	if m.closed {
		return tracestore.ErrSessionClosed
	}

	s := m.store

	s.mu.Lock()
	s.categoryQueries = append(s.categoryQueries, query)
	failErr := s.categoryErr
	ignoreCtx := s.ignoreCtx
	s.mu.Unlock()

	if !ignoreCtx && ctx.Err() != nil {
		return ctx.Err()
	}

	if failErr != nil {
		return failErr
	}

	return scan(s.snapshot(), visit, func(ev tracestore.ReducedEvent) bool {
		return query.Matches(ev.Category())
	})
}

func (m *memorySession) Producers(_ context.Context) ([]tracestore.Producer, error) {
	if m.closed {
		return nil, tracestore.ErrSessionClosed
	}

	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	if m.store.catalogErr != nil {
		return nil, m.store.catalogErr
	}

	m.store.catalogReads++

	return slices.Clone(m.store.producers), nil
}

func (m *memorySession) Types(_ context.Context) ([]tracestore.EventType, error) {
	if m.closed {
		return nil, tracestore.ErrSessionClosed
	}

	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	if m.store.catalogErr != nil {
		return nil, m.store.catalogErr
	}

	return slices.Clone(m.store.types), nil
}

func (m *memorySession) Close() error {
	if m.closed {
		return nil
	}

	m.closed = true

	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	m.store.closed++

	return nil
}

func (s *MemoryStore) snapshot() tracestore.ReducedEvents {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.events
}

func scan(events tracestore.ReducedEvents, visit tracestore.VisitFunc, match func(tracestore.ReducedEvent) bool) error {
	for _, ev := range events {
		if !match(ev) {
			continue
		}

		if err := visit(ev); err != nil {
			if errors.Is(err, tracestore.ErrStopScan) {
				return nil
			}

			return err
		}
	}

	return nil
}
