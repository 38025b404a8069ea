package main

import (
	"bufio"

	"github.com/spf13/cobra"

	"github.com/AntonStoeckl/trace-window-loader-go/internal/bench"
	"github.com/AntonStoeckl/trace-window-loader-go/internal/config"
)

// NewBenchCommand creates the command running interval read experiments and printing one JSON row per run.
func NewBenchCommand(opts *rootOptions) *cobra.Command {
	var (
		traceIDs  []string
		runs      int
		intervals []int64
	)

	command := &cobra.Command{
		Use:   "bench",
		Short: "Read traces window by window at several interval levels and report the timings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			defer env.close()

			settings := env.settings.Bench

			if cmd.Flags().Changed("interval") {
				settings.Intervals = intervals
			}

			if len(traceIDs) > 0 {
				settings.Experiments = settings.Experiments[:0]
				for _, id := range traceIDs {
					settings.Experiments = append(settings.Experiments, config.ExperimentSettings{TraceID: id, Runs: runs})
				}
			}

			runner, err := bench.NewRunner(env.store,
				bench.WithLoaderOptions(env.loaderOptions()...),
				bench.WithQueueCapacity(env.settings.Loader.QueueCapacity),
				bench.WithLogger(env.telemetry.Logger),
			)
			if err != nil {
				return err
			}

			out := bufio.NewWriter(cmd.OutOrStdout())
			if err := runner.Run(cmd.Context(), settings, bench.JSONLines(out)); err != nil {
				_ = out.Flush()
				return err
			}

			return out.Flush()
		},
	}

	command.Flags().StringSliceVar(&traceIDs, "trace", nil, "trace id to benchmark, replaces the experiments of the settings file")
	command.Flags().IntVar(&runs, "runs", 1, "runs per interval level for the traces given with --trace")
	command.Flags().Int64SliceVar(&intervals, "interval", nil, "planned events per slice, replaces the settings file levels")

	return command
}
