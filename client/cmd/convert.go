package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/tably-dev/tably/client/convert"
	"github.com/tably-dev/tably/client/data"
	"github.com/tably-dev/tably/client/hctx"
	"github.com/tably-dev/tably/client/lib"
	"github.com/tably-dev/tably/client/quota"
)

var (
	convertTo         *string
	convertOut        *string
	convertToStdout   *bool
	convertParseDates *bool
	convertOpts       *map[string]string
)

var convertCmd = &cobra.Command{
	Use:     "convert FILE [FILE...]",
	Short:   "Convert one or more tabular data files to another format",
	GroupID: GROUP_ID_CONVERSION,
	Args:    cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := hctx.MakeContext()
		lib.CheckFatalError(runConvert(ctx, args))
	},
}

func runConvert(ctx context.Context, inputs []string) error {
	config := hctx.GetConf(ctx)
	formatID := *convertTo
	if formatID == "" {
		formatID = config.DefaultFormat
	}
	format, ok := convert.Lookup(formatID)
	if !ok {
		return fmt.Errorf("%w: %q (run `tably formats` to list supported formats)", convert.ErrUnsupportedFormat, formatID)
	}
	opts := convert.DefaultOptions(formatID)
	for key, value := range *convertOpts {
		opts[key] = parseOptionValue(value)
	}

	tracker := lib.NewQuotaTracker(ctx)
	authed := config.IsAuthenticated()

	var bar *progressbar.ProgressBar
	if len(inputs) > 1 && !*convertToStdout {
		bar = progressbar.Default(int64(len(inputs)), "Converting")
	}
	for _, input := range inputs {
		if limit := tracker.CheckLimit(authed); !limit.Allowed {
			printLimitReached(tracker)
			return fmt.Errorf("daily conversion limit reached")
		}
		ds, err := data.LoadFile(input, *convertParseDates, config.TimestampFormat)
		if err != nil {
			return err
		}
		content, err := convert.Convert(formatID, ds, opts)
		if err != nil {
			return err
		}
		if *convertToStdout {
			fmt.Print(content)
		} else {
			stem := outputStem(input, len(inputs))
			outputPath, err := lib.WriteOutputFile(content, stem, formatID)
			if err != nil {
				return err
			}
			fmt.Printf("Wrote %s\n", outputPath)
		}
		tracker.IncrementCount(authed)
		lib.TrackEvent(ctx, "conversion_completed", map[string]any{
			"format": format.ID,
			"rows":   len(ds.Rows),
		})
		if bar != nil {
			_ = bar.Add(1)
		}
	}
	if status := tracker.GetStatus(authed); status.Kind == quota.StatusWarning {
		color.Yellow(status.Message)
	}
	return nil
}

// outputStem picks where converted content lands: --out wins for a single
// input, otherwise the output sits next to the input file.
func outputStem(input string, numInputs int) string {
	if *convertOut != "" && numInputs == 1 {
		return *convertOut
	}
	return strings.TrimSuffix(input, filepath.Ext(input))
}

// parseOptionValue coerces --opt values: bools and ints become typed, the rest
// stay strings.
func parseOptionValue(value string) any {
	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}
	if n, err := strconv.ParseInt(value, 10, 64); err == nil {
		return n
	}
	return value
}

func printLimitReached(tracker *quota.Tracker) {
	status := tracker.GetStatus(false)
	reset := tracker.GetRemainingTime()
	color.Red(status.Message)
	color.Red("Your free conversions reset in %d hour(s) (at %s).", reset.HoursUntilReset, reset.ResetTimeLabel)
	fmt.Println("Run `tably login YOUR_API_KEY` to remove the limit.")
}

func init() {
	rootCmd.AddCommand(convertCmd)
	convertTo = convertCmd.Flags().StringP("to", "t", "", "Target format id (see `tably formats`)")
	convertOut = convertCmd.Flags().StringP("out", "o", "", "Output file stem (extension is derived from the format)")
	convertToStdout = convertCmd.Flags().Bool("stdout", false, "Print the converted output instead of writing a file")
	convertParseDates = convertCmd.Flags().Bool("parse-dates", false, "Normalize date-looking values to RFC3339")
	convertOpts = convertCmd.Flags().StringToString("opt", nil, "Format-specific option as key=value (repeatable)")
}
