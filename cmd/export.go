// =============================================================================
// IATI Activity Export - Export Command
// =============================================================================
//
// This file defines the 'export' command, which is the main command for
// flattening IATI activity XML.
//
// COMMAND USAGE:
//   iati-export export --input <file|dir|-> [flags]
//
// FLAGS:
//   --input         : IATI XML file, directory of *.xml files, or "-" for stdin
//   --format        : csv, xlsx or xml (overrides config)
//   --by            : activity, country or sector (overrides config)
//   --output        : Output directory, or "-" to write to stdout
//   --columns       : Comma-separated column names (see 'iati-export columns')
//   --bom           : Prefix CSV output with a UTF-8 byte order mark
//   --skip-invalid  : Leave activities with validation errors out
//
// PROCESSING:
//   Each input document is exported by its own converter in its own
//   goroutine. A failing document does not stop the others. Ctrl-C cancels
//   every export and leaves no partial files behind.
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/iati-export/internal/converter"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	exportInput       string
	exportFormat      string
	exportVariant     string
	exportOutput      string
	exportColumns     []string
	exportBOM         bool
	exportSkipInvalid bool
)

// =============================================================================
// EXPORT COMMAND DEFINITION
// =============================================================================

// exportCmd represents the 'export' command.
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export IATI activities to CSV, XLSX or XML",
	Long: `The export command reads IATI activity XML and writes one output file per
input document into the output directory.

Row variants (CSV and XLSX):
  activity  one row per activity, multi-valued fields joined with ";"
  country   one row per recipient country of each activity
  sector    one row per sector of each activity

The XML format copies each activity's original markup verbatim into a new
<iati-activities> document.

On success the output file appears under its final name, together with a
validation log when any activity had findings. On error nothing is left in
the output directory.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		if err := applyExportFlags(cmd); err != nil {
			return err
		}
		return runExport(cmd.Context())
	},
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVarP(&exportInput, "input", "i", "",
		"IATI XML file, directory of *.xml files, or - for stdin")
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "",
		"Output format: csv, xlsx or xml")
	exportCmd.Flags().StringVar(&exportVariant, "by", "",
		"Row variant: activity, country or sector")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "",
		"Output directory, or - for stdout")
	exportCmd.Flags().StringSliceVar(&exportColumns, "columns", nil,
		"Comma-separated list of columns to export")
	exportCmd.Flags().BoolVar(&exportBOM, "bom", false,
		"Prefix CSV output with a UTF-8 byte order mark")
	exportCmd.Flags().BoolVar(&exportSkipInvalid, "skip-invalid", false,
		"Leave activities with validation errors out of the export")

	exportCmd.MarkFlagRequired("input")
}

// applyExportFlags overrides configuration with explicitly set flags.
func applyExportFlags(cmd *cobra.Command) error {
	flags := cmd.Flags()
	if flags.Changed("format") {
		mainConfig.Format = exportFormat
	}
	if flags.Changed("by") {
		mainConfig.Variant = exportVariant
	}
	if flags.Changed("output") && exportOutput != converter.StdoutPath {
		mainConfig.OutputDir = exportOutput
	}
	if flags.Changed("columns") {
		mainConfig.Columns = exportColumns
	}
	if flags.Changed("bom") {
		mainConfig.CSVBOM = exportBOM
	}
	if flags.Changed("skip-invalid") {
		mainConfig.SkipInvalid = exportSkipInvalid
	}

	if err := mainConfig.Validate(); err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}
	return nil
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// runExport exports every input document.
func runExport(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt)
	defer stop()

	startTime := time.Now()

	inputs, err := converter.DiscoverInputs(exportInput, mainConfig.OutputDir)
	if err != nil {
		return err
	}

	// =========================================================================
	// STDOUT: SINGLE DOCUMENT
	// =========================================================================

	if exportOutput == converter.StdoutPath {
		if len(inputs) != 1 {
			return fmt.Errorf("--output - needs a single input document, got %d", len(inputs))
		}
		conv := converter.New(inputs[0], mainConfig, codelists, logger)
		conv.SetOutput(os.Stdout)
		result := conv.Run(ctx)
		return result.Error
	}

	// =========================================================================
	// FILES: ONE GOROUTINE PER DOCUMENT
	// =========================================================================

	var wg sync.WaitGroup
	results := make(chan converter.Result, len(inputs))

	for _, input := range inputs {
		wg.Add(1)
		go func(path string) {
			defer wg.Done()
			results <- converter.New(path, mainConfig, codelists, logger).Run(ctx)
		}(input)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	// =========================================================================
	// COLLECT RESULTS AND PRINT SUMMARY
	// =========================================================================

	var successCount, errorCount, rowCount int
	for result := range results {
		if result.Success {
			successCount++
			rowCount += result.Stats.RowsWritten
			fmt.Fprintf(os.Stderr, "  ✓ %s -> %s (%d rows, %d skipped)\n",
				filepath.Base(result.InputFile), result.OutputFile,
				result.Stats.RowsWritten, result.Stats.ActivitiesSkipped)
		} else {
			errorCount++
			fmt.Fprintf(os.Stderr, "  ✗ %s: %v\n", filepath.Base(result.InputFile), result.Error)
		}
	}

	fmt.Fprintln(os.Stderr, "\n=== Export Complete ===")
	fmt.Fprintf(os.Stderr, "Total files:     %d\n", len(inputs))
	fmt.Fprintf(os.Stderr, "Successful:      %d\n", successCount)
	fmt.Fprintf(os.Stderr, "Errors:          %d\n", errorCount)
	fmt.Fprintf(os.Stderr, "Rows written:    %d\n", rowCount)
	fmt.Fprintf(os.Stderr, "Time elapsed:    %s\n", time.Since(startTime))

	if errorCount > 0 {
		return fmt.Errorf("%d of %d exports failed", errorCount, len(inputs))
	}
	return nil
}
