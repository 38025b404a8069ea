package bench

import "errors"

var (
	// ErrNilSource is returned when a Runner is created without a trace source.
	ErrNilSource = errors.New("trace source must not be nil")

	// ErrInvalidTraceID is returned when an experiment names a trace id that is not a UUID.
	ErrInvalidTraceID = errors.New("invalid trace id")

	// ErrNoIntervals is returned when there is no interval level to measure.
	ErrNoIntervals = errors.New("no interval levels configured")

	// ErrInvalidInterval is returned for a negative interval level.
	ErrInvalidInterval = errors.New("interval level must not be negative")

	// ErrEventCountMismatch is returned when a run loads a different number of events than the trace holds.
	ErrEventCountMismatch = errors.New("loaded event count does not match the trace")
)
