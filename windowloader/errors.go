package windowloader

import "errors"

var (
	// ErrNilSessionOpener is returned by NewLoader when no session opener is given.
	ErrNilSessionOpener = errors.New("session opener must not be nil")

	// ErrNoTrace is returned when a load is requested before a trace was set.
	ErrNoTrace = errors.New("no trace set on the loader")

	// ErrNilQueue is returned when LoadWindow is called without a queue.
	ErrNilQueue = errors.New("queue must not be nil")

	// ErrEmptyRange is returned when the requested window does not overlap the trace.
	ErrEmptyRange = errors.New("requested window is empty after clamping to the trace")

	// ErrLoadInProgress is returned when a load, SetTrace or Release is called while a load is running.
	ErrLoadInProgress = errors.New("a load is already running on this loader")

	// ErrInvalidEventsPerWindow is returned for a non-positive events per window target.
	ErrInvalidEventsPerWindow = errors.New("events per window must be positive")

	// ErrInvalidQueueCapacity is returned for a non-positive queue capacity.
	ErrInvalidQueueCapacity = errors.New("queue capacity must be positive")

	// ErrInvalidCancelCheckInterval is returned for a non-positive cancel check interval.
	ErrInvalidCancelCheckInterval = errors.New("cancel check interval must be positive")

	// ErrOpeningSessionFailed is returned when the store session for a trace cannot be opened.
	ErrOpeningSessionFailed = errors.New("opening store session failed")

	// ErrReadingSliceFailed is returned when a window slice cannot be read from the store.
	ErrReadingSliceFailed = errors.New("reading window slice failed")

	// ErrReadingBoundaryFailed is returned when the boundary pass cannot be read from the store.
	ErrReadingBoundaryFailed = errors.New("reading boundary events failed")

	// ErrReadingCategoriesFailed is returned when the events of a grouped load cannot be read from the store.
	ErrReadingCategoriesFailed = errors.New("reading events by category failed")

	// ErrLoadingCatalogFailed is returned when producers or event types cannot be loaded.
	ErrLoadingCatalogFailed = errors.New("loading producer and type catalog failed")

	// ErrQueueClosed is returned by Push after the queue reached a terminal state.
	ErrQueueClosed = errors.New("queue is closed")

	// ErrQueueStopped is returned by Next once a stopped queue is drained.
	ErrQueueStopped = errors.New("queue was stopped")

	// ErrQueueComplete is returned by Next once a completed queue is drained.
	ErrQueueComplete = errors.New("queue is complete")
)
