// =============================================================================
// IATI Activity Export - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. The root command is
// the base command that all other commands are attached to.
//
// COBRA CLI STRUCTURE:
//   rootCmd (iati-export)
//   ├── exportCmd   (iati-export export)
//   ├── validateCmd (iati-export validate)
//   ├── columnsCmd  (iati-export columns)
//   └── versionCmd  (iati-export version)
//
// CONFIGURATION:
//   Before any subcommand runs, the root command:
//   1. Loads the main configuration file (--config)
//   2. Sets up structured logging on stderr (--verbose forces debug)
//   3. Loads codelists (built-in tables, then codelists_dir, then
//      codelists_workbook)
//
// =============================================================================

package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/iati-export/internal/codelist"
	"github.com/ginjaninja78/iati-export/internal/config"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
var cfgFile string

// verbose enables debug logging when set to true.
var verbose bool

// Loaded by the root command before a subcommand runs.
var (
	mainConfig *config.MainConfig
	codelists  *codelist.Codelists
	logger     *slog.Logger
)

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "iati-export",
	Short: "IATI Activity Export - Flatten IATI activities into CSV, XLSX or XML",
	Long: `IATI Activity Export reads IATI activity XML and writes it out as flat
tables for spreadsheets and reporting, or as a re-wrapped XML document.

Key Features:
  - One row per activity, per recipient country or per sector
  - Aggregated multi-valued fields (codes, names, percentages)
  - Per-type transaction totals with mixed-currency detection
  - Lazy CSV output that never holds the whole export in memory
  - Verbatim XML passthrough of the original activity markup

Example Usage:
  iati-export export --input activities.xml                # CSV, one row per activity
  iati-export export --input activities.xml --by country   # one row per country
  iati-export export --input ./data --format xlsx          # every *.xml in ./data
  iati-export validate --input activities.xml              # report problems only`,

	SilenceUsage: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initialize()
	},

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the root command. It is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the main configuration file (missing file uses defaults)",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable verbose output for debugging",
	)
}

// initialize loads configuration, logging and codelists.
func initialize() error {
	var err error
	mainConfig, err = config.LoadMainConfig(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load main config: %w", err)
	}

	level := mainConfig.LogLevel
	if verbose {
		level = "debug"
	}
	logger = newLogger(level)
	slog.SetDefault(logger)

	codelists, err = loadCodelists(mainConfig)
	if err != nil {
		return err
	}

	logger.Debug("configuration loaded",
		slog.String("config", cfgFile),
		slog.String("format", mainConfig.Format),
		slog.String("variant", mainConfig.Variant))
	return nil
}

// newLogger builds a text logger on stderr; stdout may carry the export.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// loadCodelists layers configured codelists over the built-in tables.
func loadCodelists(cfg *config.MainConfig) (*codelist.Codelists, error) {
	cl := codelist.Default()

	if cfg.CodelistsDir != "" {
		if err := cl.LoadDir(cfg.CodelistsDir); err != nil {
			return nil, fmt.Errorf("failed to load codelists: %w", err)
		}
	}

	if cfg.CodelistsWorkbook != "" {
		wb, err := codelist.LoadWorkbook(cfg.CodelistsWorkbook)
		if err != nil {
			return nil, fmt.Errorf("failed to load codelist workbook: %w", err)
		}
		cl.Merge(wb)
	}

	return cl, nil
}
