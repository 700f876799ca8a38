// =============================================================================
// IATI Activity Export - Main Entry Point
// =============================================================================
//
// This is the main entry point for the IATI Activity Export CLI application.
// It delegates command execution to the cmd package.
//
// USAGE:
//   iati-export export     - Export IATI activities to CSV, XLSX or XML
//   iati-export validate   - Validate IATI activities without exporting
//   iati-export columns    - List exportable columns
//   iati-export version    - Display the application version
//
// ARCHITECTURE:
//   - cmd/           : CLI command definitions (Cobra)
//   - internal/      : Parsing, validation, serialization and export pipeline
//   - pkg/           : Shared file utilities
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/iati-export/cmd"
)

func main() {
	cmd.Execute()
}
