// =============================================================================
// IATI Activity Export - Validate Command
// =============================================================================
//
// COMMAND USAGE:
//   iati-export validate --input <file|dir|->
//
// Parses and validates every activity without writing an export. Findings
// are printed one per line; the command fails when any finding is an error.
//
// =============================================================================

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/iati-export/internal/converter"
)

var validateInput string

// validateCmd represents the 'validate' command.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate IATI activities without exporting them",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runValidate(cmd)
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVarP(&validateInput, "input", "i", "",
		"IATI XML file, directory of *.xml files, or - for stdin")
	validateCmd.MarkFlagRequired("input")
}

func runValidate(cmd *cobra.Command) error {
	inputs, err := converter.DiscoverInputs(validateInput, mainConfig.OutputDir)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	var errorCount, warningCount, activityCount int

	for _, input := range inputs {
		result, err := converter.New(input, mainConfig, codelists, logger).Validate(cmd.Context())
		if err != nil {
			fmt.Fprintf(os.Stderr, "  ✗ %s: %v\n", input, err)
			errorCount++
			continue
		}
		for _, finding := range result.Errors {
			fmt.Fprintf(out, "%s: %s\n", input, finding.Error())
		}
		errorCount += result.ErrorCount
		warningCount += result.WarningCount
		activityCount += result.ActivitiesValidated
	}

	fmt.Fprintf(out, "\nActivities: %d  Errors: %d  Warnings: %d\n",
		activityCount, errorCount, warningCount)

	if errorCount > 0 {
		return fmt.Errorf("validation failed with %d errors", errorCount)
	}
	return nil
}
