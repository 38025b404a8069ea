// Package oteladapters implements the tracestore observability interfaces on OpenTelemetry.
//
// MetricsCollector and TracingCollector plug the store and the window loader into a
// MeterProvider and TracerProvider. SlogBridgeLogger emits through the otelslog bridge into
// a LoggerProvider, so log records of a load are correlated with its spans.
package oteladapters
