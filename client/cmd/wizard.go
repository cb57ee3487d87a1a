package cmd

import (
	"github.com/spf13/cobra"

	"github.com/tably-dev/tably/client/hctx"
	"github.com/tably-dev/tably/client/lib"
	"github.com/tably-dev/tably/client/tui"
)

var wizardParseDates *bool

var wizardCmd = &cobra.Command{
	Use:     "wizard FILE",
	Short:   "Interactively pick a format, tweak options, and convert a file",
	GroupID: GROUP_ID_CONVERSION,
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := hctx.MakeContext()
		lib.CheckFatalError(tui.RunWizard(ctx, args[0], *wizardParseDates))
	},
}

func init() {
	rootCmd.AddCommand(wizardCmd)
	wizardParseDates = wizardCmd.Flags().Bool("parse-dates", false, "Normalize date-looking values to RFC3339")
}
