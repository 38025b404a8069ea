package windowloader

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/AntonStoeckl/trace-window-loader-go/tracestore"
)

const (
	defaultEventsPerWindow     = int64(100000)
	defaultCancelCheckInterval = 256
)

// LoaderState is the phase a Loader is in.
type LoaderState int32

const (
	StateIdle LoaderState = iota
	StatePlanning
	StateSweeping
	StateBoundaryPass
	StateCompleted
	StateCancelled
	StateFailed
)

// String provides a string representation of LoaderState for logging and debugging.
func (s LoaderState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePlanning:
		return "planning"
	case StateSweeping:
		return "sweeping"
	case StateBoundaryPass:
		return "boundary_pass"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Loader streams time windows of one trace through a Queue.
//
// One load runs at a time: LoadWindow and Stream fail with ErrLoadInProgress while another load runs.
// The store session is opened on the first load and kept until the trace changes or Release is called.
type Loader struct {
	opener              tracestore.SessionOpener
	eventsPerWindow     int64
	queueCapacity       int
	cancelCheckInterval int
	preloadCatalog      bool
	progress            ProgressMonitor
	logger              tracestore.Logger
	contextualLogger    tracestore.ContextualLogger
	metricsCollector    tracestore.MetricsCollector
	tracingCollector    tracestore.TracingCollector

	mu      sync.Mutex // guards trace, session and lastErr
	trace   *tracestore.Trace
	session tracestore.Session
	lastErr error

	catalog catalogCache
	state   atomic.Int32
	running atomic.Bool
	workers sync.WaitGroup
}

// NewLoader creates a Loader reading through sessions of the given opener.
func NewLoader(opener tracestore.SessionOpener, options ...Option) (*Loader, error) {
	if opener == nil {
		return nil, ErrNilSessionOpener
	}

	l := &Loader{
		opener:              opener,
		eventsPerWindow:     defaultEventsPerWindow,
		queueCapacity:       defaultQueueCapacity,
		cancelCheckInterval: defaultCancelCheckInterval,
		preloadCatalog:      true,
	}

	for _, option := range options {
		if err := option(l); err != nil {
			return nil, err
		}
	}

	return l, nil
}

// SetTrace selects the trace to load. Switching to a trace with another id closes the
// store session and drops the catalog of the previous trace.
func (l *Loader) SetTrace(trace tracestore.Trace) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.running.Load() {
		return ErrLoadInProgress
	}

	if l.trace == nil || l.trace.ID != trace.ID {
		l.closeSessionLocked()
		l.catalog.clear()
	}

	l.trace = &trace

	return nil
}

// Trace returns the current trace and whether one is set.
func (l *Loader) Trace() (tracestore.Trace, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.trace == nil {
		return tracestore.Trace{}, false
	}

	return *l.trace, true
}

// Release drops the trace, closes the store session and clears the catalog.
func (l *Loader) Release() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.running.Load() {
		return ErrLoadInProgress
	}

	l.trace = nil
	l.closeSessionLocked()
	l.catalog.clear()
	l.setState(StateIdle)

	return nil
}

// State returns the phase of the current or last load.
func (l *Loader) State() LoaderState {
	return LoaderState(l.state.Load())
}

func (l *Loader) setState(state LoaderState) {
	l.state.Store(int32(state))
}

// LastError returns the error of the last load, nil if it completed or was cancelled.
func (l *Loader) LastError() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.lastErr
}

func (l *Loader) setLastError(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.lastErr = err
}

// Wait blocks until all loads started with Stream have returned.
func (l *Loader) Wait() {
	l.workers.Wait()
}

// LoadWindow loads [start, end] of the current trace into the queue, on the calling goroutine.
//
// Configuration errors (no trace, nil queue, empty trace, empty range, a running load) are returned
// before the queue is touched. Otherwise the queue is terminal when LoadWindow returns: Complete after
// the sweep and the boundary pass, Stopped after cancellation (nil error) or a store error (the error,
// also available from queue.Err and LastError).
func (l *Loader) LoadWindow(ctx context.Context, start, end int64, queue *Queue) error {
	if queue == nil {
		return ErrNilQueue
	}

	plan, err := l.begin(start, end)
	if err != nil {
		return err
	}

	return l.run(ctx, plan, queue)
}

// Stream validates the request like LoadWindow and then loads into a new queue on its own goroutine.
// The load ends with ctx, with a store error or when the consumer stops the queue.
func (l *Loader) Stream(ctx context.Context, start, end int64) (*Queue, error) {
	plan, err := l.begin(start, end)
	if err != nil {
		return nil, err
	}

	queue := NewQueue(l.queueCapacity)

	l.workers.Add(1)
	go func() {
		defer l.workers.Done()
		_ = l.run(ctx, plan, queue) // surfaces through queue.Err and LastError
	}()

	return queue, nil
}

// loadPlan is a validated load request, clamped to the trace.
type loadPlan struct {
	trace tracestore.Trace
	start int64
	end   int64
}

// begin claims the loader for one load and validates the request.
func (l *Loader) begin(start, end int64) (loadPlan, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.running.CompareAndSwap(false, true) {
		return loadPlan{}, ErrLoadInProgress
	}

	plan, err := l.planLocked(start, end)
	if err != nil {
		l.running.Store(false)
		return loadPlan{}, err
	}

	return plan, nil
}

func (l *Loader) planLocked(start, end int64) (loadPlan, error) {
	if l.trace == nil {
		return loadPlan{}, ErrNoTrace
	}

	trace := *l.trace
	if err := trace.Validate(); err != nil {
		return loadPlan{}, err
	}

	start = max(start, trace.MinTimestamp)
	end = min(end, trace.MaxTimestamp)

	if start >= end {
		return loadPlan{}, ErrEmptyRange
	}

	return loadPlan{trace: trace, start: start, end: end}, nil
}

// run executes a claimed load. Every return path leaves the queue terminal.
func (l *Loader) run(ctx context.Context, plan loadPlan, queue *Queue) error {
	defer l.running.Store(false)

	l.setState(StatePlanning)
	l.setLastError(nil)

	interval := PlanInterval(plan.trace, l.eventsPerWindow)
	ctx = tracestore.WithReplicaReads(ctx)
	ctx, observer := l.startLoadObservation(ctx, plan, interval)
	progress := newProgressTracker(l.progress, plan.start, interval, TotalWork(plan.trace, interval))
	stats := loadStats{}

	defer func() {
		if queue.State() == QueueOpen {
			queue.Stop()
		}

		progress.done()
	}()

	if l.preloadCatalog {
		if _, err := l.loadCatalog(ctx, plan.trace); err != nil {
			return l.fail(queue, observer, stats, err)
		}
	}

	session, err := l.ensureSession(ctx, plan.trace)
	if err != nil {
		return l.fail(queue, observer, stats, err)
	}

	l.setState(StateSweeping)

	latestStart := plan.start
	firstStart := plan.start

	for t0 := plan.start; t0 < plan.end; {
		if ctx.Err() != nil {
			return l.cancel(queue, observer, stats)
		}

		t1 := plan.end
		if plan.end-t0 > interval {
			t1 = t0 + interval
		}

		window := tracestore.TimeWindow{Start: t0, End: t1, EndInclusive: t1 >= plan.end}

		result, err := l.readSlice(ctx, session, window, latestStart)
		if err != nil {
			return l.fail(queue, observer, stats, errors.Join(ErrReadingSliceFailed, err))
		}

		if result.cancelled || ctx.Err() != nil {
			return l.cancel(queue, observer, stats)
		}

		latestStart = result.latestStart
		stats.events += len(result.events)
		observer.sliceRead(window, len(result.events), stats.events)
		progress.advance(latestStart)

		batch := Batch{Events: result.events, Window: window, Observed: result.bounds}
		if err := queue.Push(ctx, batch); err != nil {
			return l.cancel(queue, observer, stats)
		}

		stats.windows++
		t0 = t1
	}

	if firstStart > plan.trace.MinTimestamp {
		l.setState(StateBoundaryPass)

		if ctx.Err() != nil {
			return l.cancel(queue, observer, stats)
		}

		window := tracestore.TimeWindow{Start: plan.trace.MinTimestamp, End: firstStart}

		result, err := l.readBoundarySlice(ctx, session, plan.trace.MinTimestamp, firstStart)
		if err != nil {
			return l.fail(queue, observer, stats, errors.Join(ErrReadingBoundaryFailed, err))
		}

		if result.cancelled || ctx.Err() != nil {
			return l.cancel(queue, observer, stats)
		}

		stats.boundaryEvents = len(result.events)
		observer.boundaryRead(window, len(result.events), stats.events+stats.boundaryEvents)

		batch := Batch{Events: result.events, Window: window, Observed: result.bounds, Boundary: true}
		if err := queue.Push(ctx, batch); err != nil {
			return l.cancel(queue, observer, stats)
		}
	}

	queue.Complete()
	l.setState(StateCompleted)
	observer.finish(statusSuccess, stats, nil)

	return nil
}

// cancel ends a load without error. Push failures land here as well: the consumer stopped the queue
// or the context ended while the queue was full.
func (l *Loader) cancel(queue *Queue, observer *loadObserver, stats loadStats) error {
	queue.Stop()
	l.setState(StateCancelled)
	observer.finish(statusCancelled, stats, nil)

	return nil
}

func (l *Loader) fail(queue *Queue, observer *loadObserver, stats loadStats, err error) error {
	queue.Fail(err)
	l.setLastError(err)
	l.setState(StateFailed)
	observer.finish(statusError, stats, err)

	return err
}

// ensureSession returns the session of the trace, opening it on first use.
func (l *Loader) ensureSession(ctx context.Context, trace tracestore.Trace) (tracestore.Session, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.session != nil {
		return l.session, nil
	}

	session, err := l.opener.OpenSession(ctx, trace)
	if err != nil {
		return nil, errors.Join(ErrOpeningSessionFailed, err)
	}

	l.session = session

	return session, nil
}

func (l *Loader) closeSessionLocked() {
	if l.session == nil {
		return
	}

	if err := l.session.Close(); err != nil {
		l.logWarn(context.Background(), logMsgCloseSessionFailed, err)
	}

	l.session = nil
}

// Catalog returns the producer and type catalog of the current trace, loading it on first use.
func (l *Loader) Catalog(ctx context.Context) (*Catalog, error) {
	trace, ok := l.Trace()
	if !ok {
		return nil, ErrNoTrace
	}

	return l.loadCatalog(ctx, trace)
}

// Producers returns the producers of the current trace ordered by id.
func (l *Loader) Producers(ctx context.Context) ([]tracestore.Producer, error) {
	catalog, err := l.Catalog(ctx)
	if err != nil {
		return nil, err
	}

	return catalog.Producers(), nil
}

// Types returns the event types of the current trace ordered by id.
func (l *Loader) Types(ctx context.Context) ([]tracestore.EventType, error) {
	catalog, err := l.Catalog(ctx)
	if err != nil {
		return nil, err
	}

	return catalog.Types(), nil
}

// loadCatalog fetches through a short-lived session of its own, so that the load session
// stays exclusive to the load and consumers can resolve ids while a load runs.
func (l *Loader) loadCatalog(ctx context.Context, trace tracestore.Trace) (*Catalog, error) {
	return l.catalog.get(trace.ID, func() (*Catalog, error) {
		session, err := l.opener.OpenSession(ctx, trace)
		if err != nil {
			return nil, errors.Join(ErrLoadingCatalogFailed, ErrOpeningSessionFailed, err)
		}

		defer func() {
			if closeErr := session.Close(); closeErr != nil {
				l.logWarn(ctx, logMsgCloseSessionFailed, closeErr)
			}
		}()

		producers, err := session.Producers(ctx)
		if err != nil {
			return nil, errors.Join(ErrLoadingCatalogFailed, err)
		}

		types, err := session.Types(ctx)
		if err != nil {
			return nil, errors.Join(ErrLoadingCatalogFailed, err)
		}

		return NewCatalog(trace.ID, producers, types), nil
	})
}
