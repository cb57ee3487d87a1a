package cmd

import (
	"github.com/fatih/color"
	"github.com/rodaine/table"
	"github.com/spf13/cobra"

	"github.com/tably-dev/tably/client/convert"
)

var formatsCmd = &cobra.Command{
	Use:     "formats",
	Short:   "List the supported output formats",
	GroupID: GROUP_ID_CONVERSION,
	Run: func(cmd *cobra.Command, args []string) {
		headerFmt := color.New(color.FgGreen, color.Underline).SprintfFunc()
		tbl := table.New("ID", "Name", "Category", "Extension", "MIME Type", "Description")
		tbl.WithHeaderFormatter(headerFmt)
		for _, format := range convert.Catalog() {
			tbl.AddRow(format.ID, format.DisplayName, format.Category, "."+format.Extension, format.MimeType, format.Description)
		}
		tbl.Print()
	},
}

func init() {
	rootCmd.AddCommand(formatsCmd)
}
