package sqlengine

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/AntonStoeckl/trace-window-loader-go/tracestore"
)

const (
	metricReadDuration   = "tracestore_query_duration_seconds"
	metricEventsRead     = "tracestore_query_events_total"
	metricDatabaseErrors = "tracestore_database_errors_total"
	metricWriteDuration  = "tracestore_write_duration_seconds"

	spanNameReadSlice    = "tracestore.read_slice"
	spanNameReadBoundary = "tracestore.read_boundary"
	spanNameReadCategory = "tracestore.read_categories"

	spanAttrOperation  = "operation"
	spanAttrTable      = "table"
	spanAttrEventCount = "event_count"
	spanAttrDurationMS = "duration_ms"
	spanAttrErrorType  = "error_type"
	spanAttrFrom       = "range_from"
	spanAttrTo         = "range_to"

	labelStatus = "status"

	statusSuccess = "success"
	statusError   = "error"
)

// logQueryWithDuration logs SQL queries with execution time at debug level if a logger is configured.
func (es *EventStore) logQueryWithDuration(ctx context.Context, sqlQuery string, action string, duration time.Duration) {
	if es.logger != nil {
		es.logger.Debug(logMsgSQLExecuted+action, logAttrDurationMS, es.toMilliseconds(duration), logAttrQuery, sqlQuery)
	}

	if es.contextualLogger != nil {
		es.contextualLogger.DebugContext(ctx, logMsgSQLExecuted+action, logAttrDurationMS, es.toMilliseconds(duration), logAttrQuery, sqlQuery)
	}
}

// logOperation logs operational information at info level if a logger is configured.
func (es *EventStore) logOperation(ctx context.Context, action string, args ...any) {
	if es.logger != nil {
		es.logger.Info(logMsgOperation+action, args...)
	}

	if es.contextualLogger != nil {
		es.contextualLogger.InfoContext(ctx, logMsgOperation+action, args...)
	}
}

// logWarn logs non-critical failures like cleanup errors.
func (es *EventStore) logWarn(ctx context.Context, message string, err error) {
	if es.logger != nil {
		es.logger.Warn(message, logAttrError, err.Error())
	}

	if es.contextualLogger != nil {
		es.contextualLogger.WarnContext(ctx, message, logAttrError, err.Error())
	}
}

// logError logs error information at the error level if a logger is configured.
func (es *EventStore) logError(ctx context.Context, message string, err error, args ...any) {
	allArgs := []any{logAttrError, err.Error()}
	allArgs = append(allArgs, args...)

	if es.logger != nil {
		es.logger.Error(message, allArgs...)
	}

	if es.contextualLogger != nil {
		es.contextualLogger.ErrorContext(ctx, message, allArgs...)
	}
}

// toMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func (es *EventStore) toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}

// recordDurationMetrics records duration metrics with context if the collector supports it.
func (es *EventStore) recordDurationMetrics(ctx context.Context, metricName string, duration time.Duration, operation, status string) {
	if es.metricsCollector == nil {
		return
	}

	labels := map[string]string{spanAttrOperation: operation, labelStatus: status}

	if contextualCollector, ok := es.metricsCollector.(tracestore.ContextualMetricsCollector); ok {
		contextualCollector.RecordDurationContext(ctx, metricName, duration, labels)
		return
	}

	es.metricsCollector.RecordDuration(metricName, duration, labels)
}

// recordValueMetrics records value metrics with context if the collector supports it.
func (es *EventStore) recordValueMetrics(ctx context.Context, metricName string, value float64, operation, status string) {
	if es.metricsCollector == nil {
		return
	}

	labels := map[string]string{spanAttrOperation: operation, labelStatus: status}

	if contextualCollector, ok := es.metricsCollector.(tracestore.ContextualMetricsCollector); ok {
		contextualCollector.RecordValueContext(ctx, metricName, value, labels)
		return
	}

	es.metricsCollector.RecordValue(metricName, value, labels)
}

// recordErrorMetrics records error metrics with context if the collector supports it.
func (es *EventStore) recordErrorMetrics(ctx context.Context, operation, errorType string) {
	if es.metricsCollector == nil {
		return
	}

	labels := map[string]string{spanAttrOperation: operation, labelStatus: statusError, spanAttrErrorType: errorType}

	if contextualCollector, ok := es.metricsCollector.(tracestore.ContextualMetricsCollector); ok {
		contextualCollector.IncrementCounterContext(ctx, metricDatabaseErrors, labels)
		return
	}

	es.metricsCollector.IncrementCounter(metricDatabaseErrors, labels)
}

// === Read Observer Pattern ===
// readObserver bundles the span and metrics bookkeeping of one range scan.

type readObserver struct {
	es        *EventStore
	ctx       context.Context
	span      tracestore.SpanContext
	operation string
	start     time.Time
}

// startReadObservation starts a tracing span (if configured) and the timer for a range scan.
func (es *EventStore) startReadObservation(
	ctx context.Context,
	spanName string,
	operation string,
	table string,
	from, to int64,
) (context.Context, *readObserver) {
	observer := &readObserver{es: es, ctx: ctx, operation: operation, start: time.Now()}

	if es.tracingCollector != nil {
		attrs := map[string]string{
			spanAttrOperation: operation,
			spanAttrTable:     table,
			spanAttrFrom:      fmt.Sprintf("%d", from),
			spanAttrTo:        fmt.Sprintf("%d", to),
		}
		ctx, observer.span = es.tracingCollector.StartSpan(ctx, spanName, attrs)
		observer.ctx = ctx
	}

	return ctx, observer
}

// finishSuccess records the duration and the number of decoded events of a completed scan.
func (o *readObserver) finishSuccess(eventCount int) {
	duration := time.Since(o.start)

	o.es.recordDurationMetrics(o.ctx, metricReadDuration, duration, o.operation, statusSuccess)
	o.es.recordValueMetrics(o.ctx, metricEventsRead, float64(eventCount), o.operation, statusSuccess)

	if o.es.tracingCollector != nil && o.span != nil {
		o.span.SetStatus(statusSuccess)
		o.es.tracingCollector.FinishSpan(o.span, statusSuccess, map[string]string{
			spanAttrEventCount: fmt.Sprintf("%d", eventCount),
			spanAttrDurationMS: fmt.Sprintf("%.2f", float64(duration.Nanoseconds())/1e6),
		})
	}
}

// finishError records the failure of a scan with its error type.
func (o *readObserver) finishError(errorType string) {
	duration := time.Since(o.start)

	o.es.recordDurationMetrics(o.ctx, metricReadDuration, duration, o.operation, statusError)
	o.es.recordErrorMetrics(o.ctx, o.operation, errorType)

	if o.es.tracingCollector != nil && o.span != nil {
		o.span.SetStatus(statusError)
		o.es.tracingCollector.FinishSpan(o.span, statusError, map[string]string{spanAttrErrorType: errorType})
	}
}
