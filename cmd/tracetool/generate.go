package main

import (
	"github.com/spf13/cobra"

	"github.com/AntonStoeckl/trace-window-loader-go/internal/tracegen"
)

// NewGenerateCommand creates the command writing a synthetic trace into the store.
func NewGenerateCommand(opts *rootOptions) *cobra.Command {
	var (
		alias      string
		locator    string
		events     int64
		producers  int
		leaves     int
		onlyLeaves bool
		types      int
		seed       int64
		chunkSize  int
	)

	command := &cobra.Command{
		Use:   "generate",
		Short: "Write a synthetic trace into the store and print its summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			defer env.close()

			settings := env.settings.Generator
			flags := cmd.Flags()

			if flags.Changed("alias") {
				settings.Alias = alias
			}

			if flags.Changed("locator") {
				settings.Locator = locator
			}

			if flags.Changed("events") {
				settings.Events = events
			}

			if flags.Changed("producers") {
				settings.Producers = producers
			}

			if flags.Changed("leaves") {
				settings.Leaves = leaves
			}

			if flags.Changed("only-leaves") {
				settings.OnlyLeavesAsProducers = onlyLeaves
			}

			if flags.Changed("types") {
				settings.Types = types
			}

			if flags.Changed("seed") {
				settings.Seed = seed
			}

			generator, err := tracegen.NewGenerator(env.store,
				tracegen.WithChunkSize(chunkSize),
				tracegen.WithLogger(env.telemetry.Logger),
			)
			if err != nil {
				return err
			}

			result, err := generator.Generate(cmd.Context(), settings)
			if err != nil {
				return err
			}

			record := toTraceRecord(result.Trace)
			record.Categories = make(map[string]int64, len(result.Categories))
			for category, count := range result.Categories {
				record.Categories[category.String()] = count
			}

			out := newJSONLines(cmd.OutOrStdout())
			if err := out.write(record); err != nil {
				return err
			}

			return out.flush()
		},
	}

	command.Flags().StringVar(&alias, "alias", "", "human readable trace name")
	command.Flags().StringVar(&locator, "locator", "", "table prefix of the trace")
	command.Flags().Int64Var(&events, "events", 0, "number of events")
	command.Flags().IntVar(&producers, "producers", 0, "number of producers")
	command.Flags().IntVar(&leaves, "leaves", 0, "number of leaf producers below the inner producers")
	command.Flags().BoolVar(&onlyLeaves, "only-leaves", false, "draw events for leaf producers only")
	command.Flags().IntVar(&types, "types", 0, "number of event types, at least 4")
	command.Flags().Int64Var(&seed, "seed", 0, "seed of the category and producer draws")
	command.Flags().IntVar(&chunkSize, "chunk-size", 10000, "events generated and appended at once")

	return command
}
