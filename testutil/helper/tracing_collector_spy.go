package helper

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/AntonStoeckl/trace-window-loader-go/tracestore"
)

// spySpan is the span handed out by TracingCollectorSpy. Its fields are guarded by the spy's mutex.
type spySpan struct {
	spy        *TracingCollectorSpy
	name       string
	startAttrs map[string]string
	endAttrs   map[string]string
	status     string
	finished   bool
}

func (s *spySpan) SetStatus(status string) {
	s.spy.mu.Lock()
	defer s.spy.mu.Unlock()

	s.status = status
}

func (s *spySpan) AddAttribute(key, value string) {
	s.spy.mu.Lock()
	defer s.spy.mu.Unlock()

	s.endAttrs[key] = value
}

// TracingCollectorSpy captures started and finished spans for assertions.
type TracingCollectorSpy struct {
	mu      sync.Mutex
	enabled bool
	spans   []*spySpan
}

// NewTracingCollectorSpy creates a spy. With recordCalls false it starts no spans.
func NewTracingCollectorSpy(recordCalls bool) *TracingCollectorSpy {
	return &TracingCollectorSpy{enabled: recordCalls}
}

func (s *TracingCollectorSpy) StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, tracestore.SpanContext) {
	if !s.enabled {
		return ctx, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	span := &spySpan{spy: s, name: name, startAttrs: maps.Clone(attrs), endAttrs: make(map[string]string)}
	s.spans = append(s.spans, span)

	return ctx, span
}

// FinishSpan records status and end attributes. Spans of other collectors are ignored.
func (s *TracingCollectorSpy) FinishSpan(spanCtx tracestore.SpanContext, status string, attrs map[string]string) {
	span, ok := spanCtx.(*spySpan)
	if !ok || span.spy != s {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	span.status = status
	span.finished = true
	maps.Copy(span.endAttrs, attrs)
}

// spanSnapshot is a copy of a span taken under the spy's mutex.
type spanSnapshot struct {
	startAttrs map[string]string
	endAttrs   map[string]string
	status     string
	finished   bool
}

// HasSpanRecordForName starts a fluent chain over the spans with the given name.
func (s *TracingCollectorSpy) HasSpanRecordForName(name string) *SpanRecordMatcher {
	s.mu.Lock()
	defer s.mu.Unlock()

	matcher := &SpanRecordMatcher{}
	for _, span := range s.spans {
		if span.name == name {
			matcher.candidates = append(matcher.candidates, spanSnapshot{
				startAttrs: maps.Clone(span.startAttrs),
				endAttrs:   maps.Clone(span.endAttrs),
				status:     span.status,
				finished:   span.finished,
			})
		}
	}

	return matcher
}

// SpanRecordMatcher narrows the captured spans down, Assert reports whether any span is left.
type SpanRecordMatcher struct {
	candidates []spanSnapshot
}

func (m *SpanRecordMatcher) keep(pred func(spanSnapshot) bool) *SpanRecordMatcher {
	m.candidates = slices.DeleteFunc(m.candidates, func(s spanSnapshot) bool { return !pred(s) })
	return m
}

// WithStatus keeps the finished spans with the given status.
func (m *SpanRecordMatcher) WithStatus(status string) *SpanRecordMatcher {
	return m.keep(func(s spanSnapshot) bool { return s.finished && s.status == status })
}

func (m *SpanRecordMatcher) WithStartAttribute(key, value string) *SpanRecordMatcher {
	return m.keep(func(s spanSnapshot) bool {
		v, ok := s.startAttrs[key]
		return ok && v == value
	})
}

func (m *SpanRecordMatcher) WithEndAttribute(key, value string) *SpanRecordMatcher {
	return m.keep(func(s spanSnapshot) bool {
		v, ok := s.endAttrs[key]
		return ok && v == value
	})
}

// WithEndAttributeKey keeps the spans that were finished with an attribute named key.
func (m *SpanRecordMatcher) WithEndAttributeKey(key string) *SpanRecordMatcher {
	return m.keep(func(s spanSnapshot) bool {
		_, ok := s.endAttrs[key]
		return ok
	})
}

// Assert returns true if at least one span met every condition of the chain.
func (m *SpanRecordMatcher) Assert() bool {
	return len(m.candidates) > 0
}
