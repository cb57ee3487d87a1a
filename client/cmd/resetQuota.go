package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tably-dev/tably/client/hctx"
	"github.com/tably-dev/tably/client/lib"
)

// Debug/test helper, hidden from the help output.
var resetQuotaCmd = &cobra.Command{
	Use:    "reset-quota",
	Hidden: true,
	Short:  "Reset the local daily usage counter",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := hctx.MakeContext()
		lib.CheckFatalError(lib.NewQuotaTracker(ctx).Reset())
		fmt.Println("Usage counter reset.")
	},
}

func init() {
	rootCmd.AddCommand(resetQuotaCmd)
}
