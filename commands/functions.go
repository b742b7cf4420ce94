package commands

import (
	"github.com/spf13/cobra"

	"classconnect-scraper/services"
	"classconnect-scraper/utils"
)

func newFunctionsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "functions",
		Short: "List the pipelines --function accepts.",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			services.NewSummaryService(utils.NewNopLogger()).PrintPipelines(cmd.OutOrStdout(), services.Pipelines)
		},
	}
}
