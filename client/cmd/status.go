package cmd

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tably-dev/tably/client/hctx"
	"github.com/tably-dev/tably/client/lib"
	"github.com/tably-dev/tably/client/quota"
)

var (
	verbose    *bool
	configFlag *bool
)

var statusCmd = &cobra.Command{
	Use:     "status",
	Short:   "View status info including how many free conversions are left today",
	GroupID: GROUP_ID_ACCOUNT,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := hctx.MakeContext()
		config := hctx.GetConf(ctx)
		fmt.Printf("tably: v0.%s\n", lib.Version)
		if config.IsAuthenticated() {
			fmt.Println("Account: logged in")
		} else {
			fmt.Println("Account: anonymous (free tier)")
		}

		tracker := lib.NewQuotaTracker(ctx)
		status := tracker.GetStatus(config.IsAuthenticated())
		switch status.Kind {
		case quota.StatusLimitReached:
			color.Red(status.Message)
		case quota.StatusWarning:
			color.Yellow(status.Message)
		default:
			fmt.Println(status.Message)
		}
		if status.Kind != quota.StatusUnlimited {
			reset := tracker.GetRemainingTime()
			fmt.Printf("Resets in %d hour(s) (at %s)\n", reset.HoursUntilReset, reset.ResetTimeLabel)
		}

		if *verbose {
			fmt.Printf("Device ID: %s\n", config.DeviceId)
			fmt.Printf("Server: %s\n", lib.GetServerHostname())
			fmt.Printf("Default Format: %s\n", config.DefaultFormat)
		}
		fmt.Printf("Commit Hash: %s\n", lib.GitCommit)
		if *configFlag {
			y, err := yaml.Marshal(config)
			if err != nil {
				lib.CheckFatalError(fmt.Errorf("failed to marshal config to yaml: %w", err))
			}
			indented := "\t" + strings.ReplaceAll(string(y), "\n", "\n\t")
			fmt.Printf("Full Config:\n%s\n", indented)
		}
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
	verbose = statusCmd.Flags().BoolP("verbose", "v", false, "Display verbose tably information")
	configFlag = statusCmd.Flags().Bool("full-config", false, "Display tably's full config")
}
