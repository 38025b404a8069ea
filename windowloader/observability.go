package windowloader

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/AntonStoeckl/trace-window-loader-go/tracestore"
)

const (
	metricLoadDuration  = "windowloader_load_duration_seconds"
	metricWindows       = "windowloader_windows_total"
	metricEvents        = "windowloader_events_total"
	metricCancellations = "windowloader_cancellations_total"

	spanNameLoadWindow = "windowloader.load_window"

	spanAttrTraceID     = "trace_id"
	spanAttrStart       = "window_start"
	spanAttrEnd         = "window_end"
	spanAttrInterval    = "interval"
	spanAttrWindows     = "windows"
	spanAttrEventCount  = "event_count"
	spanAttrBoundary    = "boundary_events"
	spanAttrDurationMS  = "duration_ms"
	spanAttrErrorReason = "error"

	labelTrace  = "trace"
	labelStatus = "status"

	statusSuccess   = "success"
	statusCancelled = "cancelled"
	statusError     = "error"

	logMsgSliceRead          = "windowloader slice read"
	logMsgBoundaryRead       = "windowloader boundary pass read"
	logMsgLoadCompleted      = "windowloader load completed"
	logMsgLoadCancelled      = "windowloader load cancelled"
	logMsgLoadFailed         = "windowloader load failed"
	logMsgCloseSessionFailed = "windowloader failed to close store session"
	logMsgGroupedLoaded      = "windowloader grouped load completed"
	logMsgGroupedLoadFailed  = "windowloader grouped load failed"
	logAttrTraceID           = "trace_id"
	logAttrWindowStart       = "window_start"
	logAttrWindowEnd         = "window_end"
	logAttrEventsRead        = "events_read"
	logAttrTotalEvents       = "total_events"
	logAttrWindows           = "windows"
	logAttrBoundaryEvents    = "boundary_events"
	logAttrProducers         = "producers"
	logAttrDurationMS        = "duration_ms"
	logAttrError             = "error"
)

// loadStats accumulates the counters of one load.
type loadStats struct {
	windows        int
	events         int
	boundaryEvents int
}

func (l *Loader) logDebug(ctx context.Context, msg string, args ...any) {
	if l.logger != nil {
		l.logger.Debug(msg, args...)
	}

	if l.contextualLogger != nil {
		l.contextualLogger.DebugContext(ctx, msg, args...)
	}
}

func (l *Loader) logInfo(ctx context.Context, msg string, args ...any) {
	if l.logger != nil {
		l.logger.Info(msg, args...)
	}

	if l.contextualLogger != nil {
		l.contextualLogger.InfoContext(ctx, msg, args...)
	}
}

func (l *Loader) logWarn(ctx context.Context, msg string, err error) {
	if l.logger != nil {
		l.logger.Warn(msg, logAttrError, err.Error())
	}

	if l.contextualLogger != nil {
		l.contextualLogger.WarnContext(ctx, msg, logAttrError, err.Error())
	}
}

func (l *Loader) logError(ctx context.Context, msg string, err error, args ...any) {
	allArgs := append([]any{logAttrError, err.Error()}, args...)

	if l.logger != nil {
		l.logger.Error(msg, allArgs...)
	}

	if l.contextualLogger != nil {
		l.contextualLogger.ErrorContext(ctx, msg, allArgs...)
	}
}

func toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}

func (l *Loader) recordDuration(ctx context.Context, duration time.Duration, labels map[string]string) {
	if l.metricsCollector == nil {
		return
	}

	if contextualCollector, ok := l.metricsCollector.(tracestore.ContextualMetricsCollector); ok {
		contextualCollector.RecordDurationContext(ctx, metricLoadDuration, duration, labels)
		return
	}

	l.metricsCollector.RecordDuration(metricLoadDuration, duration, labels)
}

func (l *Loader) recordValue(ctx context.Context, metric string, value float64, labels map[string]string) {
	if l.metricsCollector == nil {
		return
	}

	if contextualCollector, ok := l.metricsCollector.(tracestore.ContextualMetricsCollector); ok {
		contextualCollector.RecordValueContext(ctx, metric, value, labels)
		return
	}

	l.metricsCollector.RecordValue(metric, value, labels)
}

func (l *Loader) incrementCounter(ctx context.Context, metric string, labels map[string]string) {
	if l.metricsCollector == nil {
		return
	}

	if contextualCollector, ok := l.metricsCollector.(tracestore.ContextualMetricsCollector); ok {
		contextualCollector.IncrementCounterContext(ctx, metric, labels)
		return
	}

	l.metricsCollector.IncrementCounter(metric, labels)
}

// loadObserver bundles span, timer and summary logging of one load.
type loadObserver struct {
	l       *Loader
	ctx     context.Context
	span    tracestore.SpanContext
	traceID string
	start   time.Time
}

func (l *Loader) startLoadObservation(ctx context.Context, plan loadPlan, interval int64) (context.Context, *loadObserver) {
	observer := &loadObserver{l: l, ctx: ctx, traceID: plan.trace.ID.String(), start: time.Now()}

	if l.tracingCollector != nil {
		ctx, observer.span = l.tracingCollector.StartSpan(ctx, spanNameLoadWindow, map[string]string{
			spanAttrTraceID:  observer.traceID,
			spanAttrStart:    fmt.Sprintf("%d", plan.start),
			spanAttrEnd:      fmt.Sprintf("%d", plan.end),
			spanAttrInterval: fmt.Sprintf("%d", interval),
		})
		observer.ctx = ctx
	}

	return ctx, observer
}

func (o *loadObserver) sliceRead(window tracestore.TimeWindow, eventsRead, totalEvents int) {
	o.l.logDebug(o.ctx, logMsgSliceRead,
		logAttrTraceID, o.traceID,
		logAttrWindowStart, window.Start,
		logAttrWindowEnd, window.End,
		logAttrEventsRead, eventsRead,
		logAttrTotalEvents, totalEvents)
}

func (o *loadObserver) boundaryRead(window tracestore.TimeWindow, eventsRead, totalEvents int) {
	o.l.logDebug(o.ctx, logMsgBoundaryRead,
		logAttrTraceID, o.traceID,
		logAttrWindowStart, window.Start,
		logAttrWindowEnd, window.End,
		logAttrEventsRead, eventsRead,
		logAttrTotalEvents, totalEvents)
}

func (o *loadObserver) finish(status string, stats loadStats, err error) {
	duration := time.Since(o.start)
	labels := map[string]string{labelTrace: o.traceID, labelStatus: status}

	o.l.recordDuration(o.ctx, duration, labels)
	o.l.recordValue(o.ctx, metricWindows, float64(stats.windows), labels)
	o.l.recordValue(o.ctx, metricEvents, float64(stats.events+stats.boundaryEvents), labels)

	logArgs := []any{
		logAttrTraceID, o.traceID,
		logAttrWindows, stats.windows,
		logAttrTotalEvents, stats.events,
		logAttrBoundaryEvents, stats.boundaryEvents,
		logAttrDurationMS, toMilliseconds(duration),
	}

	switch status {
	case statusCancelled:
		o.l.incrementCounter(o.ctx, metricCancellations, map[string]string{labelTrace: o.traceID})
		o.l.logInfo(o.ctx, logMsgLoadCancelled, logArgs...)
	case statusError:
		o.l.logError(o.ctx, logMsgLoadFailed, err, logArgs...)
	default:
		o.l.logInfo(o.ctx, logMsgLoadCompleted, logArgs...)
	}

	if o.l.tracingCollector != nil && o.span != nil {
		attrs := map[string]string{
			spanAttrWindows:    fmt.Sprintf("%d", stats.windows),
			spanAttrEventCount: fmt.Sprintf("%d", stats.events),
			spanAttrBoundary:   fmt.Sprintf("%d", stats.boundaryEvents),
			spanAttrDurationMS: fmt.Sprintf("%.2f", float64(duration.Nanoseconds())/1e6),
		}
		if err != nil {
			attrs[spanAttrErrorReason] = err.Error()
		}

		o.l.tracingCollector.FinishSpan(o.span, status, attrs)
	}
}
