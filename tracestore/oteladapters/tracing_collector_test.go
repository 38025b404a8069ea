package oteladapters_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/AntonStoeckl/trace-window-loader-go/tracestore/oteladapters"
)

func newTracingCollector() (*oteladapters.TracingCollector, *tracetest.InMemoryExporter) {
	exporter := tracetest.NewInMemoryExporter()
	provider := trace.NewTracerProvider(trace.WithSyncer(exporter))

	return oteladapters.NewTracingCollector(provider.Tracer("test")), exporter
}

func Test_TracingCollector_StartAndFinishSpan(t *testing.T) {
	collector, exporter := newTracingCollector()

	_, spanCtx := collector.StartSpan(context.Background(), "tracestore.read_slice", map[string]string{
		"table":      "t1_event",
		"range_from": "0",
	})
	collector.FinishSpan(spanCtx, "success", map[string]string{"event_count": "12"})

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)

	span := spans[0]
	assert.Equal(t, "tracestore.read_slice", span.Name)
	assert.Equal(t, codes.Ok, span.Status.Code)
	assertSpanHasAttribute(t, span, "table", "t1_event")
	assertSpanHasAttribute(t, span, "range_from", "0")
	assertSpanHasAttribute(t, span, "event_count", "12")
}

func Test_TracingCollector_ErrorStatus(t *testing.T) {
	collector, exporter := newTracingCollector()

	_, spanCtx := collector.StartSpan(context.Background(), "windowloader.load_window", nil)
	collector.FinishSpan(spanCtx, "error", map[string]string{"error_type": "database_query"})

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assertSpanHasAttribute(t, spans[0], "error_type", "database_query")
}

func Test_TracingCollector_CancelledIsNotAnError(t *testing.T) {
	collector, exporter := newTracingCollector()

	_, spanCtx := collector.StartSpan(context.Background(), "windowloader.load_window", nil)
	collector.FinishSpan(spanCtx, "cancelled", nil)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.NotEqual(t, codes.Error, spans[0].Status.Code)

	found := false
	for _, attr := range spans[0].Attributes {
		if attr.Key == "cancelled" && attr.Value.AsBool() {
			found = true
		}
	}
	assert.True(t, found, "cancelled attribute expected")
}

func Test_TracingCollector_ChildSpansShareTheTrace(t *testing.T) {
	collector, exporter := newTracingCollector()

	ctx, parent := collector.StartSpan(context.Background(), "windowloader.load_window", nil)
	_, child := collector.StartSpan(ctx, "tracestore.read_slice", nil)
	collector.FinishSpan(child, "success", nil)
	collector.FinishSpan(parent, "success", nil)

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, spans[1].SpanContext.TraceID(), spans[0].SpanContext.TraceID())
	assert.Equal(t, spans[1].SpanContext.SpanID(), spans[0].Parent.SpanID())
}

func Test_TracingCollector_StoreReads_Are_ClientSpans(t *testing.T) {
	collector, exporter := newTracingCollector()

	ctx, load := collector.StartSpan(context.Background(), "windowloader.load_window", nil)
	_, read := collector.StartSpan(ctx, "tracestore.read_boundary", nil)
	collector.FinishSpan(read, "success", nil)
	collector.FinishSpan(load, "success", nil)

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, oteltrace.SpanKindClient, spans[0].SpanKind)
	assert.Equal(t, oteltrace.SpanKindInternal, spans[1].SpanKind)
}

func Test_TracingCollector_FinishSpan_IgnoresForeignSpanContext(t *testing.T) {
	collector, exporter := newTracingCollector()

	assert.NotPanics(t, func() {
		collector.FinishSpan(nil, "success", nil)
	})
	assert.Empty(t, exporter.GetSpans())
}

func Test_Span_AddAttribute_And_CustomStatus(t *testing.T) {
	collector, exporter := newTracingCollector()

	_, spanCtx := collector.StartSpan(context.Background(), "op", nil)
	spanCtx.AddAttribute("window", "3")
	spanCtx.SetStatus("ok")
	collector.FinishSpan(spanCtx, "custom", nil)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assertSpanHasAttribute(t, spans[0], "window", "3")
	assertSpanHasAttribute(t, spans[0], "status", "custom")
}

func assertSpanHasAttribute(t *testing.T, span tracetest.SpanStub, key, value string) {
	t.Helper()

	for _, attr := range span.Attributes {
		if attr.Key == attribute.Key(key) {
			assert.Equal(t, value, attr.Value.AsString(), "attribute %s", key)
			return
		}
	}

	t.Errorf("attribute %s not found on span %s", key, span.Name)
}
