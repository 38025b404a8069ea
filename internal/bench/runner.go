package bench

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/AntonStoeckl/trace-window-loader-go/internal/config"
	"github.com/AntonStoeckl/trace-window-loader-go/tracestore"
	"github.com/AntonStoeckl/trace-window-loader-go/windowloader"
)

const (
	defaultQueueCapacity = 4

	// WholeTrace is the interval level reading a trace in a single slice.
	WholeTrace = int64(0)
)

// Source opens sessions on traces and loads their summaries.
// *sqlengine.EventStore satisfies it.
type Source interface {
	tracestore.SessionOpener
	LoadTrace(ctx context.Context, id uuid.UUID) (tracestore.Trace, error)
}

// Row is the result of one run.
type Row struct {
	TraceID string `json:"trace_id"`

	// Size is the number of events in the trace.
	Size int64 `json:"size"`

	// Interval is the planned number of events per slice, 0 for the whole trace in one slice.
	Interval int64 `json:"interval"`

	// IntervalTime is the average time in milliseconds between two slices, the last slice excluded.
	IntervalTime float64 `json:"interval_time"`

	// TotalTime is the time in milliseconds of the whole run.
	TotalTime float64 `json:"total_time"`

	Slices int `json:"slices"`
}

// Option defines a functional option for configuring a Runner.
type Option func(*Runner) error

// WithLoaderOptions adds options to every loader a run creates. The events per window option is always
// overridden by the interval level.
func WithLoaderOptions(options ...windowloader.Option) Option {
	return func(r *Runner) error {
		r.loaderOptions = append(r.loaderOptions, options...)
		return nil
	}
}

// WithQueueCapacity sets the capacity of the queue between the loader and the counting consumer. Default is 4.
func WithQueueCapacity(capacity int) Option {
	return func(r *Runner) error {
		if capacity <= 0 {
			return windowloader.ErrInvalidQueueCapacity
		}

		r.queueCapacity = capacity

		return nil
	}
}

// WithLogger sets the logger for run progress.
func WithLogger(logger tracestore.Logger) Option {
	return func(r *Runner) error {
		r.logger = logger
		return nil
	}
}

// Runner executes interval read experiments.
type Runner struct {
	source        Source
	loaderOptions []windowloader.Option
	queueCapacity int
	logger        tracestore.Logger
}

// NewRunner creates a Runner reading from source.
func NewRunner(source Source, options ...Option) (*Runner, error) {
	if source == nil {
		return nil, ErrNilSource
	}

	r := &Runner{source: source, queueCapacity: defaultQueueCapacity}

	for _, option := range options {
		if err := option(r); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// Run executes every experiment at every interval level and hands each row to emit as soon as it is measured.
// An experiment without runs is run once.
func (r *Runner) Run(ctx context.Context, settings config.BenchSettings, emit func(Row) error) error {
	if len(settings.Intervals) == 0 {
		return ErrNoIntervals
	}

	for _, experiment := range settings.Experiments {
		id, err := uuid.Parse(experiment.TraceID)
		if err != nil {
			return errors.Join(ErrInvalidTraceID, err)
		}

		trace, err := r.source.LoadTrace(ctx, id)
		if err != nil {
			return err
		}

		runs := max(experiment.Runs, 1)

		for _, interval := range settings.Intervals {
			for run := range runs {
				row, err := r.Measure(ctx, trace, interval)
				if err != nil {
					return err
				}

				r.logInfo("bench run finished", "trace_id", row.TraceID, "interval", interval,
					"run", run, "total_time_ms", row.TotalTime)

				if err := emit(row); err != nil {
					return err
				}
			}
		}
	}

	return nil
}

// Measure streams the whole trace once with interval planned events per slice.
// Interval 0 reads the whole trace in one slice.
func (r *Runner) Measure(ctx context.Context, trace tracestore.Trace, interval int64) (Row, error) {
	if interval < 0 {
		return Row{}, fmt.Errorf("%w: %d", ErrInvalidInterval, interval)
	}

	eventsPerWindow := interval
	if interval == WholeTrace {
		eventsPerWindow = max(trace.NumberOfEvents, 1)
	}

	options := append(append([]windowloader.Option{}, r.loaderOptions...), windowloader.WithEventsPerWindow(eventsPerWindow))

	loader, err := windowloader.NewLoader(r.source, options...)
	if err != nil {
		return Row{}, err
	}

	if err := loader.SetTrace(trace); err != nil {
		return Row{}, err
	}
	defer func() { _ = loader.Release() }()

	queue := windowloader.NewQueue(r.queueCapacity)
	group, groupCtx := errgroup.WithContext(ctx)

	var (
		loaded int64
		gaps   []time.Duration
	)

	start := time.Now()

	group.Go(func() error {
		return loader.LoadWindow(groupCtx, trace.MinTimestamp, trace.MaxTimestamp, queue)
	})

	group.Go(func() error {
		last := start

		for {
			batch, err := queue.Next(groupCtx)
			if errors.Is(err, windowloader.ErrQueueComplete) {
				return nil
			}

			if errors.Is(err, windowloader.ErrQueueStopped) && queue.Err() != nil {
				return nil // the loader returns the cause
			}

			if err != nil {
				return err
			}

			now := time.Now()
			gaps = append(gaps, now.Sub(last))
			last = now
			loaded += int64(len(batch.Events))
		}
	})

	if err := group.Wait(); err != nil {
		return Row{}, err
	}

	total := time.Since(start)

	if loaded != trace.NumberOfEvents {
		return Row{}, fmt.Errorf("%w: expected %d, loaded %d", ErrEventCountMismatch, trace.NumberOfEvents, loaded)
	}

	return Row{
		TraceID:      trace.ID.String(),
		Size:         trace.NumberOfEvents,
		Interval:     interval,
		IntervalTime: averageMilliseconds(gaps),
		TotalTime:    toMilliseconds(total),
		Slices:       len(gaps),
	}, nil
}

// averageMilliseconds leaves out the last gap, which belongs to the possibly shorter last slice.
func averageMilliseconds(gaps []time.Duration) float64 {
	if len(gaps) > 1 {
		gaps = gaps[:len(gaps)-1]
	}

	if len(gaps) == 0 {
		return 0
	}

	var sum time.Duration
	for _, gap := range gaps {
		sum += gap
	}

	return toMilliseconds(sum) / float64(len(gaps))
}

func toMilliseconds(d time.Duration) float64 {
	return float64(d.Nanoseconds()) / 1e6
}

func (r *Runner) logInfo(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Info(msg, args...)
	}
}
