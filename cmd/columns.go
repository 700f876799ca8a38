// =============================================================================
// IATI Activity Export - Columns Command
// =============================================================================
//
// This file defines the 'columns' command, which lists the column names
// accepted by --columns and by the "columns" configuration setting.
//
// COMMAND USAGE:
//   iati-export columns
//
// OUTPUT:
//   Default columns (in order):
//     iati-identifier
//     ...
//
//   All columns:
//     iati-identifier
//     ...
//     reporting-org
//
// =============================================================================

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/iati-export/internal/serializer"
)

// columnsCmd lists the column names accepted by --columns.
var columnsCmd = &cobra.Command{
	Use:   "columns",
	Short: "List exportable columns",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Default columns (in order):")
		for _, name := range serializer.ColumnNames(serializer.DefaultColumns()) {
			fmt.Fprintf(out, "  %s\n", name)
		}
		fmt.Fprintln(out, "\nAll columns:")
		for _, name := range serializer.AvailableColumns() {
			fmt.Fprintf(out, "  %s\n", name)
		}
	},
}

func init() {
	rootCmd.AddCommand(columnsCmd)
}
