package oteladapters

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/AntonStoeckl/trace-window-loader-go/tracestore"
)

// DurationBuckets are the histogram bounds in seconds. Single slice reads land in the low
// millisecond buckets, full loads of large traces in the upper ones.
var DurationBuckets = []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

var descriptions = map[string]string{
	"tracestore_query_duration_seconds":  "Duration of one slice or boundary read",
	"tracestore_query_events_total":      "Events returned by one slice or boundary read",
	"tracestore_database_errors_total":   "Failed trace store operations by error type",
	"tracestore_write_duration_seconds":  "Duration of one event append",
	"windowloader_load_duration_seconds": "Duration of one window load",
	"windowloader_windows_total":         "Slices read by one window load",
	"windowloader_events_total":          "Events pushed by one window load",
	"windowloader_cancellations_total":   "Window loads stopped by cancellation",
}

func describe(name string) string {
	if description, ok := descriptions[name]; ok {
		return description
	}

	return name
}

// MetricsCollector implements tracestore.ContextualMetricsCollector on an OpenTelemetry meter.
// Durations are recorded on second histograms, counters on Int64Counters and values on
// Float64Gauges. Instruments are created on first use of a metric name.
//
// It is safe for concurrent use by a store and several loaders.
type MetricsCollector struct {
	meter      metric.Meter
	histograms instruments[metric.Float64Histogram]
	counters   instruments[metric.Int64Counter]
	gauges     instruments[metric.Float64Gauge]
}

// NewMetricsCollector creates a new OpenTelemetry metrics collector on the given meter.
func NewMetricsCollector(meter metric.Meter) *MetricsCollector {
	return &MetricsCollector{meter: meter}
}

func (m *MetricsCollector) RecordDuration(metricName string, duration time.Duration, labels map[string]string) {
	m.RecordDurationContext(context.Background(), metricName, duration, labels)
}

func (m *MetricsCollector) RecordDurationContext(ctx context.Context, metricName string, duration time.Duration, labels map[string]string) {
	histogram, ok := m.histograms.get(metricName, func(name string) (metric.Float64Histogram, error) {
		return m.meter.Float64Histogram(name,
			metric.WithDescription(describe(name)),
			metric.WithUnit("s"),
			metric.WithExplicitBucketBoundaries(DurationBuckets...))
	})
	if ok {
		histogram.Record(ctx, duration.Seconds(), metric.WithAttributes(toAttributes(labels)...))
	}
}

func (m *MetricsCollector) IncrementCounter(metricName string, labels map[string]string) {
	m.IncrementCounterContext(context.Background(), metricName, labels)
}

func (m *MetricsCollector) IncrementCounterContext(ctx context.Context, metricName string, labels map[string]string) {
	counter, ok := m.counters.get(metricName, func(name string) (metric.Int64Counter, error) {
		return m.meter.Int64Counter(name, metric.WithDescription(describe(name)))
	})
	if ok {
		counter.Add(ctx, 1, metric.WithAttributes(toAttributes(labels)...))
	}
}

func (m *MetricsCollector) RecordValue(metricName string, value float64, labels map[string]string) {
	m.RecordValueContext(context.Background(), metricName, value, labels)
}

func (m *MetricsCollector) RecordValueContext(ctx context.Context, metricName string, value float64, labels map[string]string) {
	gauge, ok := m.gauges.get(metricName, func(name string) (metric.Float64Gauge, error) {
		return m.meter.Float64Gauge(name, metric.WithDescription(describe(name)))
	})
	if ok {
		gauge.Record(ctx, value, metric.WithAttributes(toAttributes(labels)...))
	}
}

// instruments caches one instrument per metric name. A name the meter rejects is retried on the next use.
type instruments[T any] struct {
	mu     sync.Mutex
	byName map[string]T
}

func (c *instruments[T]) get(name string, create func(name string) (T, error)) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if instrument, ok := c.byName[name]; ok {
		return instrument, true
	}

	instrument, err := create(name)
	if err != nil {
		var zero T
		return zero, false
	}

	if c.byName == nil {
		c.byName = make(map[string]T)
	}

	c.byName[name] = instrument

	return instrument, true
}

func toAttributes(labels map[string]string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(labels))
	for key, value := range labels {
		attrs = append(attrs, attribute.String(key, value))
	}

	return attrs
}

var _ tracestore.ContextualMetricsCollector = (*MetricsCollector)(nil)
