package helper

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"
)

type metricKind int

const (
	durationMetric metricKind = iota
	counterMetric
	valueMetric
)

type metricRecord struct {
	kind   metricKind
	metric string
	value  float64 // seconds for durations, 1 for counter increments
	labels map[string]string
}

// MetricsCollectorSpy captures collector calls for assertions. It implements
// tracestore.ContextualMetricsCollector and counts the calls made through the context-aware methods.
type MetricsCollectorSpy struct {
	mu              sync.Mutex
	enabled         bool
	records         []metricRecord
	contextualCalls int
}

// NewMetricsCollectorSpy creates a spy. With recordCalls false it swallows every call.
func NewMetricsCollectorSpy(recordCalls bool) *MetricsCollectorSpy {
	return &MetricsCollectorSpy{enabled: recordCalls}
}

func (s *MetricsCollectorSpy) record(kind metricKind, metric string, value float64, labels map[string]string) {
	if !s.enabled {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, metricRecord{kind: kind, metric: metric, value: value, labels: maps.Clone(labels)})
}

func (s *MetricsCollectorSpy) RecordDuration(metric string, duration time.Duration, labels map[string]string) {
	s.record(durationMetric, metric, duration.Seconds(), labels)
}

func (s *MetricsCollectorSpy) IncrementCounter(metric string, labels map[string]string) {
	s.record(counterMetric, metric, 1, labels)
}

func (s *MetricsCollectorSpy) RecordValue(metric string, value float64, labels map[string]string) {
	s.record(valueMetric, metric, value, labels)
}

func (s *MetricsCollectorSpy) RecordDurationContext(_ context.Context, metric string, duration time.Duration, labels map[string]string) {
	s.countContextualCall()
	s.RecordDuration(metric, duration, labels)
}

func (s *MetricsCollectorSpy) IncrementCounterContext(_ context.Context, metric string, labels map[string]string) {
	s.countContextualCall()
	s.IncrementCounter(metric, labels)
}

func (s *MetricsCollectorSpy) RecordValueContext(_ context.Context, metric string, value float64, labels map[string]string) {
	s.countContextualCall()
	s.RecordValue(metric, value, labels)
}

func (s *MetricsCollectorSpy) countContextualCall() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.contextualCalls++
}

// GetContextualCallCount returns how many calls went through the context-aware methods.
func (s *MetricsCollectorSpy) GetContextualCallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.contextualCalls
}

func (s *MetricsCollectorSpy) matching(kind metricKind, metric string) []metricRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	var found []metricRecord
	for _, r := range s.records {
		if r.kind == kind && r.metric == metric {
			found = append(found, r)
		}
	}

	return found
}

// HasDurationRecordForMetric starts a fluent chain over the duration records of metric.
func (s *MetricsCollectorSpy) HasDurationRecordForMetric(metric string) *MetricRecordMatcher {
	return &MetricRecordMatcher{candidates: s.matching(durationMetric, metric)}
}

// HasCounterRecordForMetric starts a fluent chain over the counter records of metric.
func (s *MetricsCollectorSpy) HasCounterRecordForMetric(metric string) *MetricRecordMatcher {
	return &MetricRecordMatcher{candidates: s.matching(counterMetric, metric)}
}

// HasValueRecordForMetric starts a fluent chain over the value records of metric.
func (s *MetricsCollectorSpy) HasValueRecordForMetric(metric string) *MetricRecordMatcher {
	return &MetricRecordMatcher{candidates: s.matching(valueMetric, metric)}
}

// CountCounterRecordsForMetric counts the increments of a counter.
func (s *MetricsCollectorSpy) CountCounterRecordsForMetric(metric string) int {
	return len(s.matching(counterMetric, metric))
}

// MetricRecordMatcher narrows the captured records down, Assert reports whether any record is left.
type MetricRecordMatcher struct {
	candidates []metricRecord
}

func (m *MetricRecordMatcher) keep(pred func(metricRecord) bool) *MetricRecordMatcher {
	m.candidates = slices.DeleteFunc(m.candidates, func(r metricRecord) bool { return !pred(r) })
	return m
}

// WithLabel keeps the records carrying the label with the given value.
func (m *MetricRecordMatcher) WithLabel(key, value string) *MetricRecordMatcher {
	return m.keep(func(r metricRecord) bool {
		v, ok := r.labels[key]
		return ok && v == value
	})
}

func (m *MetricRecordMatcher) WithOperation(operation string) *MetricRecordMatcher {
	return m.WithLabel("operation", operation)
}

func (m *MetricRecordMatcher) WithStatus(status string) *MetricRecordMatcher {
	return m.WithLabel("status", status)
}

func (m *MetricRecordMatcher) WithErrorType(errorType string) *MetricRecordMatcher {
	return m.WithLabel("error_type", errorType)
}

// WithValue keeps the value records carrying exactly value.
func (m *MetricRecordMatcher) WithValue(value float64) *MetricRecordMatcher {
	return m.keep(func(r metricRecord) bool { return r.value == value })
}

// Assert returns true if at least one record met every condition of the chain.
func (m *MetricRecordMatcher) Assert() bool {
	return len(m.candidates) > 0
}
