package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/mk/internal/adapters/report"
)

func (c *CLI) newTargetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "targets",
		Short: "List declared targets and whether they are up to date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rows, err := c.app.Targets(cmd.Context(), runOptions(cmd))
			if err != nil {
				return err
			}
			format, _ := cmd.Flags().GetString("format")
			return report.Render(cmd.OutOrStdout(), rows, report.ParseFormat(format))
		},
	}
	cmd.Flags().String("format", string(report.FormatTable), "Table format: table, markdown or plain")
	return cmd
}
