package cmd

import (
	"os"

	"github.com/tably-dev/tably/client/lib"

	"github.com/spf13/cobra"
)

const (
	GROUP_ID_CONVERSION = "conversion"
	GROUP_ID_ACCOUNT    = "account"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tably",
	Short: "tably: Convert tabular data files into ten output formats",
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddGroup(&cobra.Group{ID: GROUP_ID_CONVERSION, Title: "Conversion"})
	rootCmd.AddGroup(&cobra.Group{ID: GROUP_ID_ACCOUNT, Title: "Account"})
	rootCmd.Version = "v0." + lib.Version
}
