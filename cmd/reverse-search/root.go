package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "reverse-search",
		Short: "Resolve raw device locations into administrative addresses",
		Long: `
reverse-search selects session-start events whose location has not been
resolved yet, geocodes their raw location, writes locality, district, state
and country back onto the event, and records a derived device document.

Without a subcommand it performs a single run.
`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runOnce(cmd.Context())
		},
	}

	root.AddCommand(newRunCmd(), newServeCmd(), newSeedCmd())
	return root
}
