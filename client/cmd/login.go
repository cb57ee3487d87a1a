package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tably-dev/tably/client/hctx"
	"github.com/tably-dev/tably/client/lib"
)

var loginCmd = &cobra.Command{
	Use:     "login API_KEY",
	Short:   "Log in with an API key to remove the daily conversion limit",
	GroupID: GROUP_ID_ACCOUNT,
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := hctx.MakeContext()
		apiKey := strings.TrimSpace(args[0])
		if len(apiKey) < 8 {
			lib.CheckFatalError(fmt.Errorf("the provided API key looks malformed (too short)"))
		}
		config := hctx.GetConf(ctx)
		config.ApiKey = apiKey
		lib.CheckFatalError(hctx.SetConfig(config))
		lib.TrackEvent(ctx, "login", nil)
		fmt.Println("Logged in. Conversions are now unlimited on this device.")
	},
}

var logoutCmd = &cobra.Command{
	Use:     "logout",
	Short:   "Log out and return to the metered free tier",
	GroupID: GROUP_ID_ACCOUNT,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := hctx.MakeContext()
		config := hctx.GetConf(ctx)
		config.ApiKey = ""
		lib.CheckFatalError(hctx.SetConfig(config))
		fmt.Println("Logged out.")
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
}
