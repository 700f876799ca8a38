// =============================================================================
// IATI Activity Export - Configuration Module
// =============================================================================
//
// This module loads the application configuration from a YAML file. Every
// setting has a default, so a missing configuration file is not an error.
//
// EXAMPLE (config.yaml):
//   output_dir: ./output
//   output_file_format: "{variant}_{timestamp}_{uuid}"
//   format: csv
//   variant: country
//   columns: [iati-identifier, title, recipient-country-code]
//   csv_bom: true
//   xml_root_element: iati-activities
//   xml_version: "2.03"
//   codelists_dir: ./codelists
//   log_level: info
//   skip_invalid: false
//   write_summary: true
//
// Command-line flags override the file (see cmd/export.go).
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Output formats.
const (
	FormatCSV  = "csv"
	FormatXML  = "xml"
	FormatXLSX = "xlsx"
)

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the global application configuration.
type MainConfig struct {
	// =========================================================================
	// OUTPUT SETTINGS
	// =========================================================================

	// OutputDir is where export files are written.
	// Default: "./output"
	OutputDir string `yaml:"output_dir" validate:"required"`

	// OutputFileFormat names export files. The extension is added
	// automatically.
	// Placeholders:
	//   {uuid}      - A random UUID
	//   {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
	//   {format}    - Output format (csv, xml, xlsx)
	//   {variant}   - Row variant (activity, country, sector)
	// Default: "{variant}_{timestamp}_{uuid}"
	OutputFileFormat string `yaml:"output_file_format" validate:"required"`

	// Format is the export format.
	// Valid values: "csv", "xml", "xlsx"
	// Default: "csv"
	Format string `yaml:"format" validate:"oneof=csv xml xlsx"`

	// Variant selects one row per activity, per country or per sector.
	// Ignored for XML.
	// Valid values: "activity", "country", "sector"
	// Default: "activity"
	Variant string `yaml:"variant" validate:"oneof=activity country sector"`

	// Columns overrides the exported columns and their order.
	// Empty selects the standard column list.
	Columns []string `yaml:"columns" validate:"dive,required"`

	// CSVBOM prefixes CSV output with a UTF-8 byte order mark.
	CSVBOM bool `yaml:"csv_bom"`

	// =========================================================================
	// XML SETTINGS
	// =========================================================================

	// XMLRootElement wraps the exported activities.
	// Default: "iati-activities"
	XMLRootElement string `yaml:"xml_root_element" validate:"required"`

	// XMLVersion is written as the root version attribute when set.
	XMLVersion string `yaml:"xml_version"`

	// =========================================================================
	// CODELIST SETTINGS
	// =========================================================================

	// CodelistsDir holds country.yaml, sector.yaml and currency.yaml.
	// Optional.
	CodelistsDir string `yaml:"codelists_dir"`

	// CodelistsWorkbook is an XLSX workbook with one sheet per codelist.
	// Optional; applied after CodelistsDir.
	CodelistsWorkbook string `yaml:"codelists_workbook"`

	// =========================================================================
	// PROCESSING SETTINGS
	// =========================================================================

	// LogLevel controls the verbosity of logging.
	// Valid values: "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `yaml:"log_level" validate:"oneof=debug info warn error"`

	// SkipInvalid drops activities with validation errors from the export.
	// Default: false (invalid activities are exported and logged)
	SkipInvalid bool `yaml:"skip_invalid"`

	// StrictValidation treats validation warnings as errors.
	StrictValidation bool `yaml:"strict_validation"`

	// WriteSummary writes an export summary file next to each export.
	WriteSummary bool `yaml:"write_summary"`
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// Default returns a configuration with every default applied.
func Default() *MainConfig {
	var config MainConfig
	applyMainConfigDefaults(&config)
	return &config
}

// LoadMainConfig loads the main configuration from a YAML file.
//
// PARAMETERS:
//   - configPath: The path to the configuration file. A missing file yields
//     the defaults.
//
// RETURNS:
//   - A pointer to the MainConfig struct.
//   - An error if the file cannot be read, parsed or validated.
func LoadMainConfig(configPath string) (*MainConfig, error) {
	var config MainConfig

	data, err := os.ReadFile(configPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// Defaults only.
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyMainConfigDefaults(&config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// applyMainConfigDefaults sets default values for any unset configuration options.
func applyMainConfigDefaults(config *MainConfig) {
	if config.OutputDir == "" {
		config.OutputDir = "./output"
	}
	if config.OutputFileFormat == "" {
		config.OutputFileFormat = "{variant}_{timestamp}_{uuid}"
	}
	if config.Format == "" {
		config.Format = FormatCSV
	}
	if config.Variant == "" {
		config.Variant = "activity"
	}
	if config.XMLRootElement == "" {
		config.XMLRootElement = "iati-activities"
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
}

// Validate checks field values. It does not touch the filesystem.
func (c *MainConfig) Validate() error {
	return validator.New().Struct(c)
}

// Extension returns the file extension for the configured format.
func (c *MainConfig) Extension() string {
	return "." + c.Format
}
