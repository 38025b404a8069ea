package main

import (
	"cmp"
	"slices"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/AntonStoeckl/trace-window-loader-go/tracestore"
	"github.com/AntonStoeckl/trace-window-loader-go/windowloader"
)

// NewGroupCommand creates the command printing the events of a trace grouped by producer and type,
// one JSON line per group.
func NewGroupCommand(opts *rootOptions) *cobra.Command {
	var categoryNames []string

	command := &cobra.Command{
		Use:   "group TRACE_ID",
		Short: "Group the events of selected categories of a trace by producer and type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return err
			}

			categories := make([]tracestore.Category, 0, len(categoryNames))
			for _, name := range categoryNames {
				category, err := tracestore.ParseCategory(name)
				if err != nil {
					return err
				}

				categories = append(categories, category)
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

			grouped, err := loader.LoadGrouped(ctx, categories...)
			if err != nil {
				return err
			}

			out := newJSONLines(cmd.OutOrStdout())
			for _, record := range toGroupRecords(grouped, catalog) {
				if err := out.write(record); err != nil {
					return err
				}
			}

			return out.flush()
		},
	}

	command.Flags().StringSliceVar(&categoryNames, "category", []string{"variable"},
		"categories to group: instant, state, link or variable")

	return command
}

// toGroupRecords returns one record per producer and type, ordered by producer id, then type id.
func toGroupRecords(grouped windowloader.GroupedEvents, catalog *windowloader.Catalog) []groupRecord {
	records := make([]groupRecord, 0, len(grouped))

	for producerID, byType := range grouped {
		for typeID, events := range byType {
			records = append(records, groupRecord{
				Producer:     producerID,
				ProducerName: catalog.ProducerName(producerID),
				Type:         typeID,
				TypeName:     catalog.TypeName(typeID),
				Category:     events[0].Category().String(),
				Events:       len(events),
				First:        events[0].Start(),
				Last:         events[len(events)-1].Start(),
			})
		}
	}

	slices.SortFunc(records, func(a, b groupRecord) int {
		if c := cmp.Compare(a.Producer, b.Producer); c != 0 {
			return c
		}

		return cmp.Compare(a.Type, b.Type)
	})

	return records
}
