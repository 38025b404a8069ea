package windowloader_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/AntonStoeckl/trace-window-loader-go/testutil/helper"
	"github.com/AntonStoeckl/trace-window-loader-go/tracestore"
	. "github.com/AntonStoeckl/trace-window-loader-go/windowloader"
)

const (
	metricLoadDuration  = "windowloader_load_duration_seconds"
	metricWindows       = "windowloader_windows_total"
	metricEvents        = "windowloader_events_total"
	metricCancellations = "windowloader_cancellations_total"
	spanNameLoadWindow  = "windowloader.load_window"
)

func Test_Observability_Of_ACompletedLoad(t *testing.T) {
	// setup
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logHandler := NewLogHandlerSpy(false)
	metricsSpy := NewMetricsCollectorSpy(true)
	tracingSpy := NewTracingCollectorSpy(true)

	// arrange
	trace, store := givenUniformTrace(t, GivenState(1, 150, 250))
	loader := givenLoader(t, store, trace,
		WithLogger(slog.New(logHandler)),
		WithMetrics(metricsSpy),
		WithTracing(tracingSpy))

	// act
	err := loader.LoadWindow(ctx, 200, 1000, NewQueue(16))

	// assert
	require.NoError(t, err)

	assert.True(t, logHandler.HasInfoLogWithMessage("windowloader load completed").
		WithStringAttr("trace_id", trace.ID.String()).
		WithIntAttr("windows", 8).
		WithIntAttr("total_events", 80).
		WithIntAttr("boundary_events", 1).
		WithDurationMS().
		Assert())
	assert.Equal(t, 8, logHandler.CountLogsWithMessage(slog.LevelDebug, "windowloader slice read"))
	assert.True(t, logHandler.HasDebugLogWithMessage("windowloader boundary pass read").
		WithIntAttr("window_start", 0).
		WithIntAttr("window_end", 200).
		WithIntAttr("events_read", 1).
		Assert())

	assert.True(t, metricsSpy.HasDurationRecordForMetric(metricLoadDuration).WithStatus("success").Assert())
	assert.True(t, metricsSpy.HasValueRecordForMetric(metricWindows).WithValue(8).Assert())
	assert.True(t, metricsSpy.HasValueRecordForMetric(metricEvents).WithValue(81).Assert())
	assert.Equal(t, 0, metricsSpy.CountCounterRecordsForMetric(metricCancellations))
	assert.Positive(t, metricsSpy.GetContextualCallCount(), "the contextual collector variant is preferred")

	assert.True(t, tracingSpy.HasSpanRecordForName(spanNameLoadWindow).
		WithStartAttribute("trace_id", trace.ID.String()).
		WithStartAttribute("window_start", "200").
		WithStartAttribute("window_end", "1000").
		WithStartAttribute("interval", "100").
		WithStatus("success").
		WithEndAttribute("windows", "8").
		WithEndAttribute("boundary_events", "1").
		Assert())
}

func Test_Observability_Of_ACancelledLoad(t *testing.T) {
	// setup
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	logHandler := NewLogHandlerSpy(false)
	metricsSpy := NewMetricsCollectorSpy(true)
	tracingSpy := NewTracingCollectorSpy(true)

	// arrange
	trace, store := givenUniformTrace(t)
	loader := givenLoader(t, store, trace,
		WithContextualLogger(slog.New(logHandler)),
		WithMetrics(metricsSpy),
		WithTracing(tracingSpy))

	// act
	err := loader.LoadWindow(ctx, 0, 1000, NewQueue(16))

	// assert
	require.NoError(t, err)
	assert.True(t, logHandler.HasInfoLogWithMessage("windowloader load cancelled").WithIntAttr("windows", 0).Assert())
	assert.True(t, metricsSpy.HasCounterRecordForMetric(metricCancellations).WithLabel("trace", trace.ID.String()).Assert())
	assert.True(t, metricsSpy.HasDurationRecordForMetric(metricLoadDuration).WithStatus("cancelled").Assert())
	assert.True(t, tracingSpy.HasSpanRecordForName(spanNameLoadWindow).WithStatus("cancelled").Assert())
}

func Test_Observability_Of_AFailedLoad(t *testing.T) {
	// setup
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logHandler := NewLogHandlerSpy(false)
	metricsSpy := NewMetricsCollectorSpy(true)
	tracingSpy := NewTracingCollectorSpy(true)

	// arrange
	trace, store := givenUniformTrace(t)
	store.FailSliceReadAt(1, errors.New("broken pipe"))
	loader := givenLoader(t, store, trace,
		WithLogger(slog.New(logHandler)),
		WithMetrics(metricsSpy),
		WithTracing(tracingSpy))

	// act
	err := loader.LoadWindow(ctx, 0, 1000, NewQueue(16))

	// assert
	require.Error(t, err)
	assert.True(t, logHandler.HasErrorLogWithMessage("windowloader load failed").
		WithAttr("error").
		WithIntAttr("windows", 1).
		Assert())
	assert.True(t, metricsSpy.HasDurationRecordForMetric(metricLoadDuration).WithStatus("error").Assert())
	assert.True(t, tracingSpy.HasSpanRecordForName(spanNameLoadWindow).
		WithStatus("error").
		WithEndAttributeKey("error").
		Assert())
}

func Test_Observability_IsOptional(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	trace, store := givenUniformTrace(t)
	store.FailSliceReadAt(5, errors.New("boom"))
	loader := givenLoader(t, store, trace, WithTracing(NewTracingCollectorSpy(false)))

	assert.NotPanics(t, func() {
		_ = loader.LoadWindow(ctx, 0, 1000, NewQueue(16))
	})
}

func Test_Loader_Routes_TheWindowReads_ToTheReplica(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	trace, store := givenUniformTrace(t)

	var seen tracestore.ReadRoute
	recorder := &routeRecordingOpener{MemoryStore: store, seen: &seen}
	loader, err := NewLoader(recorder, WithEventsPerWindow(10))
	require.NoError(t, err)
	require.NoError(t, loader.SetTrace(trace))

	require.NoError(t, loader.LoadWindow(ctx, 0, 1000, NewQueue(16)))

	assert.Equal(t, tracestore.ReplicaReads, seen)
}

type routeRecordingOpener struct {
	*MemoryStore
	seen *tracestore.ReadRoute
}

func (o *routeRecordingOpener) OpenSession(ctx context.Context, trace tracestore.Trace) (tracestore.Session, error) {
	*o.seen = tracestore.ReadRouteFrom(ctx)
	return o.MemoryStore.OpenSession(ctx, trace)
}
