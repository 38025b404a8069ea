package tracegen

import "errors"

var (
	// ErrNilStore is returned when a Generator is created without a store.
	ErrNilStore = errors.New("store must not be nil")

	// ErrInvalidChunkSize is returned for a chunk size that is not positive.
	ErrInvalidChunkSize = errors.New("chunk size must be positive")

	// ErrInvalidGeneratorSettings is returned when the generator settings describe no valid trace.
	ErrInvalidGeneratorSettings = errors.New("invalid generator settings")

	// ErrWritingTraceFailed wraps store errors during generation.
	ErrWritingTraceFailed = errors.New("writing generated trace failed")
)
