package main

import (
	"github.com/spf13/cobra"
)

// NewListCommand creates the command printing the summaries of all stored traces.
func NewListCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print the summaries of all stored traces",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			defer env.close()

			traces, err := env.store.ListTraces(cmd.Context())
			if err != nil {
				return err
			}

			out := newJSONLines(cmd.OutOrStdout())
			for _, trace := range traces {
				if err := out.write(toTraceRecord(trace)); err != nil {
					return err
				}
			}

			return out.flush()
		},
	}
}
