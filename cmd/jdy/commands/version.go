package commands

import (
	"github.com/spf13/cobra"
)

func newVersionCommand(a *app, info BuildInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Display version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.render(cmd.OutOrStdout(), info, &tableData{
				header: []string{"Property", "Value"},
				rows: [][]string{
					{"Version", info.Version},
					{"Commit", info.Commit},
					{"Built", info.Date},
				},
			})
		},
	}
}
