package tracestore

import "errors"

var (
	// ErrTraceNotFound is returned when no trace exists for the requested identifier.
	ErrTraceNotFound = errors.New("trace not found")

	// ErrEmptyTraceSpan is returned when a trace has no time extent to load.
	ErrEmptyTraceSpan = errors.New("trace has an empty time span")

	// ErrEmptyLocator is returned when a trace does not name its backing tables.
	ErrEmptyLocator = errors.New("trace locator must not be empty")

	// ErrUnknownEventCategory is returned when a stored event carries a category code this package does not know.
	ErrUnknownEventCategory = errors.New("unknown event category")

	// ErrInvalidEventSpan is returned when a duration-bearing event ends before it starts.
	ErrInvalidEventSpan = errors.New("event ends before it starts")

	// ErrStopScan can be returned by a VisitFunc to end a scan early without an error.
	ErrStopScan = errors.New("stop scan")

	// ErrSessionClosed is returned when a read is issued on a closed session.
	ErrSessionClosed = errors.New("session is closed")
)
