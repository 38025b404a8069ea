package config

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/AntonStoeckl/trace-window-loader-go/tracestore"
	"github.com/AntonStoeckl/trace-window-loader-go/tracestore/oteladapters"
)

const instrumentationName = "github.com/AntonStoeckl/trace-window-loader-go"

// ErrInvalidLogLevel is returned for a log level slog does not know.
var ErrInvalidLogLevel = errors.New("invalid log level")

// Telemetry bundles the logger and the optional OpenTelemetry collectors of a tool run.
// ContextualLogger is set only with stdout logs, its records carry trace and span ids.
type Telemetry struct {
	Logger           *slog.Logger
	ContextualLogger tracestore.ContextualLogger
	Metrics          tracestore.MetricsCollector
	Tracing          tracestore.TracingCollector

	shutdownFuncs []func(context.Context) error
}

// Shutdown flushes and stops all providers.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	for _, fn := range t.shutdownFuncs {
		if err := fn(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// NewTelemetry creates a text logger on w and, if enabled, stdout trace, metric and log providers writing to w.
// Collectors that are not enabled stay nil, which switches the instrumentation off.
func NewTelemetry(settings TelemetrySettings, serviceName string, w io.Writer) (*Telemetry, error) {
	level, err := ParseLogLevel(settings.LogLevel)
	if err != nil {
		return nil, err
	}

	telemetry := &Telemetry{
		Logger: slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})),
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
	)

	if settings.StdoutTraces {
		exporter, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, err
		}

		tp := sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(res),
		)
		telemetry.Tracing = oteladapters.NewTracingCollector(tp.Tracer(instrumentationName))
		telemetry.shutdownFuncs = append(telemetry.shutdownFuncs, tp.Shutdown)
	}

	if settings.StdoutMetrics {
		exporter, err := stdoutmetric.New(stdoutmetric.WithWriter(w), stdoutmetric.WithPrettyPrint())
		if err != nil {
			return nil, err
		}

		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)),
			sdkmetric.WithResource(res),
		)
		telemetry.Metrics = oteladapters.NewMetricsCollector(mp.Meter(instrumentationName))
		telemetry.shutdownFuncs = append(telemetry.shutdownFuncs, mp.Shutdown)
	}

	if settings.StdoutLogs {
		exporter, err := stdoutlog.New(stdoutlog.WithWriter(w), stdoutlog.WithPrettyPrint())
		if err != nil {
			return nil, err
		}

		lp := sdklog.NewLoggerProvider(
			sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)),
			sdklog.WithResource(res),
		)
		telemetry.ContextualLogger = oteladapters.NewSlogBridgeLogger(instrumentationName, lp)
		telemetry.shutdownFuncs = append(telemetry.shutdownFuncs, lp.Shutdown)
	}

	return telemetry, nil
}

// ParseLogLevel parses debug, info, warn or error. Empty means info.
func ParseLogLevel(s string) (slog.Level, error) {
	if strings.TrimSpace(s) == "" {
		return slog.LevelInfo, nil
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, errors.Join(ErrInvalidLogLevel, err)
	}

	return level, nil
}
