package windowloader_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/trace-window-loader-go/internal/config"
	"github.com/AntonStoeckl/trace-window-loader-go/internal/tracegen"
	"github.com/AntonStoeckl/trace-window-loader-go/testutil/helper/storewrapper"
	. "github.com/AntonStoeckl/trace-window-loader-go/windowloader"
)

func Benchmark_Stream_TheWholeTrace_At_IntervalLevels(b *testing.B) {
	// setup
	ctx := context.Background()
	wrapper := storewrapper.CreateWrapperWithTestConfig(b)
	es := wrapper.GetEventStore()

	// arrange
	generator, err := tracegen.NewGenerator(es)
	require.NoError(b, err)

	result, err := generator.Generate(ctx, config.GeneratorSettings{
		Alias:        "benchmark",
		Locator:      "bench_trace",
		Producers:    16,
		Types:        8,
		Events:       20000,
		LinkRatio:    0.1,
		InstantRatio: 0.1,
		MaxLinkSpan:  500,
		Seed:         1,
	})
	require.NoError(b, err)

	for _, eventsPerWindow := range []int64{1000, 5000, 20000} {
		b.Run(fmt.Sprintf("%d events per window", eventsPerWindow), func(b *testing.B) {
			loader, err := NewLoader(es, WithEventsPerWindow(eventsPerWindow))
			require.NoError(b, err)
			require.NoError(b, loader.SetTrace(result.Trace))
			defer func() { _ = loader.Release() }()

			var (
				loadTime time.Duration
				windows  int
			)

			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				start := time.Now()

				queue, streamErr := loader.Stream(ctx, result.Trace.MinTimestamp, result.Trace.MaxTimestamp)
				require.NoError(b, streamErr)

				batches, events := drainCount(ctx, queue)
				loader.Wait()

				loadTime += time.Since(start)
				windows += batches

				assert.Equal(b, result.Trace.NumberOfEvents, events)
			}

			b.ReportMetric(float64(loadTime.Milliseconds())/float64(b.N), "ms/load-op")
			b.ReportMetric(float64(loadTime.Microseconds())/float64(max(windows, 1)), "µs/window")
		})
	}
}

func drainCount(ctx context.Context, queue *Queue) (batches int, events int64) {
	for {
		batch, err := queue.Next(ctx)
		if err != nil {
			return batches, events
		}

		batches++
		events += int64(len(batch.Events))
	}
}
