package sqlengine

import (
	"github.com/AntonStoeckl/trace-window-loader-go/tracestore"
)

// Dialect names the SQL dialect queries are rendered in.
type Dialect string

const (
	// DialectPostgres renders PostgreSQL queries.
	DialectPostgres Dialect = "postgres"

	// DialectSQLite renders SQLite queries.
	DialectSQLite Dialect = "sqlite3"
)

// Option defines a functional option for configuring EventStore.
type Option func(*EventStore) error

// WithDialect sets the SQL dialect. The pgx constructor always uses DialectPostgres.
func WithDialect(dialect Dialect) Option {
	return func(es *EventStore) error {
		switch dialect {
		case DialectPostgres, DialectSQLite:
			es.dialect = dialect
			return nil
		default:
			return ErrUnsupportedDialect
		}
	}
}

// WithTracesTableName sets the name of the table holding the trace summaries.
func WithTracesTableName(tableName string) Option {
	return func(es *EventStore) error {
		if tableName == "" {
			return ErrEmptyTableName
		}

		es.tracesTableName = tableName

		return nil
	}
}

// WithInsertBatchSize sets how many rows AppendEvents writes per INSERT statement.
func WithInsertBatchSize(size int) Option {
	return func(es *EventStore) error {
		if size <= 0 {
			return ErrInvalidBatchSize
		}

		es.insertBatchSize = size

		return nil
	}
}

// WithLogger sets the logger for the EventStore.
// The logger will receive messages at different levels based on the logger's configured level:
//
// Debug level: SQL queries with execution timing (development use)
// Info level: Event counts and durations of writes (production-safe)
// Warn level: Non-critical issues like cleanup failures
// Error level: Critical failures that cause operation failures.
func WithLogger(logger tracestore.Logger) Option {
	return func(es *EventStore) error {
		es.logger = logger
		return nil
	}
}

// WithContextualLogger sets the contextual logger for the EventStore.
func WithContextualLogger(logger tracestore.ContextualLogger) Option {
	return func(es *EventStore) error {
		es.contextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the EventStore.
func WithMetrics(collector tracestore.MetricsCollector) Option {
	return func(es *EventStore) error {
		es.metricsCollector = collector
		return nil
	}
}

// WithTracing sets the tracing collector for the EventStore.
func WithTracing(collector tracestore.TracingCollector) Option {
	return func(es *EventStore) error {
		es.tracingCollector = collector
		return nil
	}
}
