package main

import (
	"errors"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/AntonStoeckl/trace-window-loader-go/windowloader"
)

// NewLoadCommand creates the command streaming a time window of a trace as JSON lines, one event per line.
func NewLoadCommand(opts *rootOptions) *cobra.Command {
	var start, end int64

	command := &cobra.Command{
		Use:   "load TRACE_ID",
		Short: "Stream the events of a time window of a trace as JSON lines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return err
			}

			env, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			defer env.close()

			ctx := cmd.Context()

			trace, err := env.store.LoadTrace(ctx, id)
			if err != nil {
				return err
			}

			if !cmd.Flags().Changed("start") {
				start = trace.MinTimestamp
			}

			if !cmd.Flags().Changed("end") {
				end = trace.MaxTimestamp
			}

			loader, err := windowloader.NewLoader(env.store, env.loaderOptions()...)
			if err != nil {
				return err
			}

			if err := loader.SetTrace(trace); err != nil {
				return err
			}
			defer func() { _ = loader.Release() }()

			catalog, err := loader.Catalog(ctx)
			if err != nil {
				return err
			}

			queue := windowloader.NewQueue(env.settings.Loader.QueueCapacity)
			out := newJSONLines(cmd.OutOrStdout())
			group, groupCtx := errgroup.WithContext(ctx)

			group.Go(func() error {
				return loader.LoadWindow(groupCtx, start, end, queue)
			})

			group.Go(func() error {
				for {
					batch, err := queue.Next(groupCtx)
					if errors.Is(err, windowloader.ErrQueueComplete) {
						return nil
					}

					if errors.Is(err, windowloader.ErrQueueStopped) {
						if queue.Err() != nil {
							return nil // the loader returns the cause
						}

						return ctx.Err()
					}

					if err != nil {
						return err
					}

					for _, ev := range batch.Events {
						if err := out.write(toEventRecord(batch, ev, catalog)); err != nil {
							queue.Stop()
							return err
						}
					}
				}
			})

			if err := group.Wait(); err != nil {
				return err
			}

			return out.flush()
		},
	}

	command.Flags().Int64Var(&start, "start", 0, "window start, defaults to the trace start")
	command.Flags().Int64Var(&end, "end", 0, "window end, defaults to the trace end")

	return command
}
