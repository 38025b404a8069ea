package oteladapters

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AntonStoeckl/trace-window-loader-go/tracestore"
)

// storeSpanPrefix marks spans around database reads. They are recorded as client spans.
const storeSpanPrefix = "tracestore."

// TracingCollector implements tracestore.TracingCollector with an OpenTelemetry tracer.
// A window load is an internal span, the slice and boundary reads below it are client spans.
type TracingCollector struct {
	tracer trace.Tracer
}

// NewTracingCollector creates a new OpenTelemetry tracing collector.
func NewTracingCollector(tracer trace.Tracer) *TracingCollector {
	return &TracingCollector{tracer: tracer}
}

func (t *TracingCollector) StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, tracestore.SpanContext) {
	kind := trace.SpanKindInternal
	if strings.HasPrefix(name, storeSpanPrefix) {
		kind = trace.SpanKindClient
	}

	spanCtx, s := t.tracer.Start(ctx, name, trace.WithSpanKind(kind), trace.WithAttributes(toAttributes(attrs)...))

	return spanCtx, &span{span: s}
}

// FinishSpan adds the final attributes, sets the status and ends the span.
// Spans not started by a TracingCollector are ignored.
func (t *TracingCollector) FinishSpan(spanCtx tracestore.SpanContext, status string, attrs map[string]string) {
	s, ok := spanCtx.(*span)
	if !ok {
		return
	}

	s.span.SetAttributes(toAttributes(attrs)...)
	s.SetStatus(status)
	s.span.End()
}

type span struct {
	span trace.Span
}

// SetStatus maps the store and loader status values. A cancelled load is not an error.
func (s *span) SetStatus(status string) {
	switch status {
	case "success", "ok":
		s.span.SetStatus(codes.Ok, "")
	case "error":
		s.span.SetStatus(codes.Error, "trace read failed")
	case "cancelled":
		s.span.SetAttributes(attribute.Bool("cancelled", true))
	default:
		s.span.SetAttributes(attribute.String("status", status))
	}
}

func (s *span) AddAttribute(key, value string) {
	s.span.SetAttributes(attribute.String(key, value))
}

var _ tracestore.TracingCollector = (*TracingCollector)(nil)
