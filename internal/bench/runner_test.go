package bench_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/AntonStoeckl/trace-window-loader-go/internal/bench"
	"github.com/AntonStoeckl/trace-window-loader-go/internal/config"
	. "github.com/AntonStoeckl/trace-window-loader-go/testutil/helper"
	"github.com/AntonStoeckl/trace-window-loader-go/tracestore"
	"github.com/AntonStoeckl/trace-window-loader-go/windowloader"
)

type memorySource struct {
	*MemoryStore
	traces map[uuid.UUID]tracestore.Trace
}

func (s memorySource) LoadTrace(_ context.Context, id uuid.UUID) (tracestore.Trace, error) {
	trace, ok := s.traces[id]
	if !ok {
		return tracestore.Trace{}, tracestore.ErrTraceNotFound
	}

	return trace, nil
}

func givenSource(t *testing.T, numberOfEvents int64) (memorySource, tracestore.Trace) {
	trace := GivenTrace(t, 0, 1000, numberOfEvents)
	store := NewMemoryStore(GivenConsecutiveStates(0, 100, 10, 9))

	return memorySource{MemoryStore: store, traces: map[uuid.UUID]tracestore.Trace{trace.ID: trace}}, trace
}

func Test_NewRunner_Rejects_NilSource_And_InvalidOptions(t *testing.T) {
	_, err := NewRunner(nil)
	assert.ErrorIs(t, err, ErrNilSource)

	source, _ := givenSource(t, 100)
	_, err = NewRunner(source, WithQueueCapacity(0))
	assert.ErrorIs(t, err, windowloader.ErrInvalidQueueCapacity)
}

func Test_Measure_Reads_TheWholeTrace_WithThePlannedSlices(t *testing.T) {
	// setup
	source, trace := givenSource(t, 100)
	runner, err := NewRunner(source, WithQueueCapacity(1))
	require.NoError(t, err)

	// act
	fine, err := runner.Measure(context.Background(), trace, 10)
	require.NoError(t, err)

	coarse, err := runner.Measure(context.Background(), trace, 100)
	require.NoError(t, err)

	// assert
	assert.Equal(t, trace.ID.String(), fine.TraceID)
	assert.Equal(t, int64(100), fine.Size)
	assert.Equal(t, int64(10), fine.Interval)
	assert.Equal(t, 10, fine.Slices)
	assert.GreaterOrEqual(t, fine.IntervalTime, 0.0)
	assert.GreaterOrEqual(t, fine.TotalTime, fine.IntervalTime)

	assert.Equal(t, 1, coarse.Slices)
	assert.Len(t, source.SliceQueries(), 11)
}

func Test_Measure_With_TheWholeTraceInterval_Reads_OneSlice(t *testing.T) {
	// setup
	source, trace := givenSource(t, 100)
	runner, err := NewRunner(source)
	require.NoError(t, err)

	// act
	row, err := runner.Measure(context.Background(), trace, WholeTrace)

	// assert
	require.NoError(t, err)
	assert.Equal(t, int64(0), row.Interval)
	assert.Equal(t, int64(100), row.Size)
	assert.Equal(t, 1, row.Slices)
	assert.Equal(t, []tracestore.SliceQuery{{From: 0, To: 1000, ToInclusive: true}}, source.SliceQueries())
}

func Test_Measure_Rejects_ANegativeInterval(t *testing.T) {
	source, trace := givenSource(t, 100)
	runner, err := NewRunner(source)
	require.NoError(t, err)

	_, err = runner.Measure(context.Background(), trace, -1)

	assert.ErrorIs(t, err, ErrInvalidInterval)
	assert.Empty(t, source.SliceQueries())
}

func Test_Measure_When_TheEventCountDiffers(t *testing.T) {
	source, trace := givenSource(t, 101)
	runner, err := NewRunner(source)
	require.NoError(t, err)

	_, err = runner.Measure(context.Background(), trace, 10)

	assert.ErrorIs(t, err, ErrEventCountMismatch)
}

func Test_Measure_When_TheStoreFails(t *testing.T) {
	storeErr := errors.New("connection reset")
	source, trace := givenSource(t, 100)
	source.FailSliceReadAt(3, storeErr)

	runner, err := NewRunner(source)
	require.NoError(t, err)

	_, err = runner.Measure(context.Background(), trace, 10)

	assert.ErrorIs(t, err, windowloader.ErrReadingSliceFailed)
	assert.ErrorIs(t, err, storeErr)
}

func Test_Run_Emits_OneRow_PerRun_AndInterval(t *testing.T) {
	// setup
	source, trace := givenSource(t, 100)
	runner, err := NewRunner(source, WithLoaderOptions(windowloader.WithCancelCheckInterval(8)))
	require.NoError(t, err)

	settings := config.BenchSettings{
		Intervals:   []int64{10, 50},
		Experiments: []config.ExperimentSettings{{TraceID: trace.ID.String(), Runs: 2}},
	}

	var out bytes.Buffer

	// act
	err = runner.Run(context.Background(), settings, JSONLines(&out))

	// assert
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 4)

	intervals := make([]int64, 0, len(lines))
	for _, line := range lines {
		var row Row
		require.NoError(t, jsoniter.ConfigFastest.UnmarshalFromString(line, &row))
		assert.Equal(t, int64(100), row.Size)
		intervals = append(intervals, row.Interval)
	}

	assert.Equal(t, []int64{10, 10, 50, 50}, intervals)
}

func Test_Run_Rejects_InvalidExperiments(t *testing.T) {
	source, _ := givenSource(t, 100)
	runner, err := NewRunner(source)
	require.NoError(t, err)

	noop := func(Row) error { return nil }

	err = runner.Run(context.Background(), config.BenchSettings{}, noop)
	assert.ErrorIs(t, err, ErrNoIntervals)

	err = runner.Run(context.Background(), config.BenchSettings{
		Intervals:   []int64{10},
		Experiments: []config.ExperimentSettings{{TraceID: "not-a-uuid"}},
	}, noop)
	assert.ErrorIs(t, err, ErrInvalidTraceID)

	err = runner.Run(context.Background(), config.BenchSettings{
		Intervals:   []int64{10},
		Experiments: []config.ExperimentSettings{{TraceID: uuid.NewString()}},
	}, noop)
	assert.ErrorIs(t, err, tracestore.ErrTraceNotFound)
}

func Test_Run_Stops_When_EmitFails(t *testing.T) {
	source, trace := givenSource(t, 100)
	runner, err := NewRunner(source)
	require.NoError(t, err)

	emitErr := errors.New("broken pipe")
	emitted := 0

	err = runner.Run(context.Background(), config.BenchSettings{
		Intervals:   []int64{10, 20},
		Experiments: []config.ExperimentSettings{{TraceID: trace.ID.String(), Runs: 3}},
	}, func(Row) error {
		emitted++
		return emitErr
	})

	assert.ErrorIs(t, err, emitErr)
	assert.Equal(t, 1, emitted)
}
