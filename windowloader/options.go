package windowloader

import (
	"github.com/AntonStoeckl/trace-window-loader-go/tracestore"
)

// Option defines a functional option for configuring a Loader.
type Option func(*Loader) error

// WithEventsPerWindow sets the number of events a slice is planned to hold. Default is 100000.
func WithEventsPerWindow(events int64) Option {
	return func(l *Loader) error {
		if events <= 0 {
			return ErrInvalidEventsPerWindow
		}

		l.eventsPerWindow = events

		return nil
	}
}

// WithQueueCapacity sets the buffer size of the queues created by Stream. Default is 4.
func WithQueueCapacity(capacity int) Option {
	return func(l *Loader) error {
		if capacity <= 0 {
			return ErrInvalidQueueCapacity
		}

		l.queueCapacity = capacity

		return nil
	}
}

// WithCancelCheckInterval sets after how many decoded rows a running read checks for cancellation.
// 1 checks on every row. Default is 256.
func WithCancelCheckInterval(rows int) Option {
	return func(l *Loader) error {
		if rows <= 0 {
			return ErrInvalidCancelCheckInterval
		}

		l.cancelCheckInterval = rows

		return nil
	}
}

// WithCatalogPreload controls whether a load fetches the producer and type catalog before the sweep.
// With preloading a catalog failure fails the load, and consumers resolving ids never wait on the store.
// Enabled by default.
func WithCatalogPreload(enabled bool) Option {
	return func(l *Loader) error {
		l.preloadCatalog = enabled
		return nil
	}
}

// WithProgressMonitor sets the monitor that receives progress of every load.
func WithProgressMonitor(monitor ProgressMonitor) Option {
	return func(l *Loader) error {
		l.progress = monitor
		return nil
	}
}

// WithLogger sets the logger for the Loader.
//
// Debug level: every slice with its event count and the running total
// Info level: one summary per load (windows, events, duration)
// Warn level: session close failures
// Error level: failed loads.
func WithLogger(logger tracestore.Logger) Option {
	return func(l *Loader) error {
		l.logger = logger
		return nil
	}
}

// WithContextualLogger sets the contextual logger for the Loader.
func WithContextualLogger(logger tracestore.ContextualLogger) Option {
	return func(l *Loader) error {
		l.contextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the Loader.
func WithMetrics(collector tracestore.MetricsCollector) Option {
	return func(l *Loader) error {
		l.metricsCollector = collector
		return nil
	}
}

// WithTracing sets the tracing collector for the Loader.
func WithTracing(collector tracestore.TracingCollector) Option {
	return func(l *Loader) error {
		l.tracingCollector = collector
		return nil
	}
}
