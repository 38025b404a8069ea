package tracegen

import (
	"github.com/AntonStoeckl/trace-window-loader-go/tracestore"
)

// Option defines a functional option for configuring a Generator.
type Option func(*Generator) error

// WithChunkSize sets how many events are generated and appended to the store at once. Default is 10000.
func WithChunkSize(size int) Option {
	return func(g *Generator) error {
		if size <= 0 {
			return ErrInvalidChunkSize
		}

		g.chunkSize = size

		return nil
	}
}

// WithLogger sets the logger for generation progress.
func WithLogger(logger tracestore.Logger) Option {
	return func(g *Generator) error {
		g.logger = logger
		return nil
	}
}
