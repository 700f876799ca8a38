// =============================================================================
// IATI Activity Export - File Manager Utility
// =============================================================================
//
// This module provides file management utilities for exports, including:
//   - Output directory management
//   - Output file naming
//   - Atomic output files (no partial exports are left behind)
//   - Validation log and run summary generation (named after the export)
//
// OUTPUT STRATEGY:
//   - Exports are written to a temporary file in the output directory
//   - The temporary file is renamed into place only after a complete export
//   - A failed or cancelled export removes the temporary file
//
// =============================================================================

package utils

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// DIRECTORY MANAGEMENT
// =============================================================================

// EnsureDirectory creates dir (and parents) if it doesn't exist.
func EnsureDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

// =============================================================================
// FILE NAMING
// =============================================================================

// GenerateOutputFileName builds an output file name from a format string.
//
// PARAMETERS:
//   - format: The format string for the file name.
//             Placeholders:
//               {uuid}      - A random UUID
//               {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
//               {date}      - Current date (YYYYMMDD)
//               {time}      - Current time (HHMMSS)
//               {<key>}     - Any key of params
//   - ext: The extension to ensure, including the dot (e.g. ".csv").
//   - params: A map of placeholder values.
//
// RETURNS:
//   - The generated file name.
//
// EXAMPLE:
//   format: "{variant}_{timestamp}_{uuid}"
//   params: {"variant": "country"}
//   output: "country_20240115_143022_a1b2c3d4-e5f6-7890-abcd-ef1234567890.csv"
func GenerateOutputFileName(format, ext string, params map[string]string) string {
	now := time.Now()

	replacements := map[string]string{
		"{uuid}":      uuid.New().String(),
		"{timestamp}": now.Format("20060102_150405"),
		"{date}":      now.Format("20060102"),
		"{time}":      now.Format("150405"),
	}
	for key, value := range params {
		replacements["{"+key+"}"] = value
	}

	result := format
	for placeholder, value := range replacements {
		result = strings.ReplaceAll(result, placeholder, value)
	}

	// Path separators in parameter values must not create directories.
	result = strings.NewReplacer("/", "_", "\\", "_").Replace(result)

	if ext != "" && !strings.HasSuffix(strings.ToLower(result), strings.ToLower(ext)) {
		result += ext
	}

	return result
}

// =============================================================================
// ATOMIC OUTPUT FILES
// =============================================================================

// OutputFile is a file that only appears under its final name on Commit.
type OutputFile struct {
	*os.File
	finalPath string
	done      bool
}

// CreateOutputFile creates a temporary file next to path.
func CreateOutputFile(path string) (*OutputFile, error) {
	dir := filepath.Dir(path)
	if err := EnsureDirectory(dir); err != nil {
		return nil, err
	}

	file, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}

	return &OutputFile{File: file, finalPath: path}, nil
}

// Commit closes the file and moves it to its final path.
func (o *OutputFile) Commit() error {
	if o.done {
		return nil
	}
	o.done = true

	if err := o.File.Close(); err != nil {
		os.Remove(o.File.Name())
		return fmt.Errorf("failed to close output file: %w", err)
	}
	if err := os.Rename(o.File.Name(), o.finalPath); err != nil {
		os.Remove(o.File.Name())
		return fmt.Errorf("failed to move output file into place: %w", err)
	}
	return nil
}

// Discard closes and removes the file. It is a no-op after Commit.
func (o *OutputFile) Discard() {
	if o.done {
		return
	}
	o.done = true
	o.File.Close()
	os.Remove(o.File.Name())
}

// Path returns the final path of the file.
func (o *OutputFile) Path() string {
	return o.finalPath
}

// =============================================================================
// SIDECAR FILES
// =============================================================================

// SidecarPath names a file that belongs to an export, e.g.
// "out/country_x.csv" + ".validation.txt" -> "out/country_x.validation.txt".
// Concurrent exports get distinct output names, so their sidecars never
// collide.
func SidecarPath(outputPath, suffix string) string {
	return strings.TrimSuffix(outputPath, filepath.Ext(outputPath)) + suffix
}

// =============================================================================
// VALIDATION LOG GENERATION
// =============================================================================

// ValidationLogEntry represents a single validation log entry.
type ValidationLogEntry struct {
	Severity   string
	ActivityID string
	Field      string
	Value      string
	Message    string
}

// ValidationLog appends findings to a log file as they are produced.
//
// USAGE:
//   log := utils.NewValidationLog(path, inputFile)
//   defer log.Discard()
//
//   log.Add(entry) // for every finding
//
//   logPath, err := log.Commit()
//
// The file is created on the first Add, so a clean export leaves no log.
// Like OutputFile it only appears under its final name on Commit. The first
// write error is kept and returned by Commit.
type ValidationLog struct {
	path      string
	inputFile string

	file   *OutputFile
	writer *bufio.Writer
	count  int
	err    error
}

// NewValidationLog prepares a log for path. Nothing is written yet.
func NewValidationLog(path, inputFile string) *ValidationLog {
	return &ValidationLog{path: path, inputFile: inputFile}
}

// Add writes one finding.
func (l *ValidationLog) Add(entry ValidationLogEntry) {
	if l.err != nil {
		return
	}
	if l.file == nil && !l.open() {
		return
	}

	l.count++
	fmt.Fprintf(l.writer, "Finding #%d\n"+
		"  Severity:       %s\n"+
		"  Activity:       %s\n",
		l.count, entry.Severity, entry.ActivityID)
	if entry.Field != "" {
		fmt.Fprintf(l.writer, "  Field:          %s\n", entry.Field)
	}
	if entry.Value != "" {
		fmt.Fprintf(l.writer, "  Value:          %s\n", entry.Value)
	}
	fmt.Fprintf(l.writer, "  Message:        %s\n\n", entry.Message)
}

func (l *ValidationLog) open() bool {
	file, err := CreateOutputFile(l.path)
	if err != nil {
		l.err = fmt.Errorf("failed to create validation log: %w", err)
		return false
	}
	l.file = file
	l.writer = bufio.NewWriter(file)

	fmt.Fprintf(l.writer, "IATI Activity Export - Validation Log\n"+
		"Generated: %s\n"+
		"Input:     %s\n"+
		"================================================================================\n\n",
		time.Now().Format("2006-01-02 15:04:05"),
		l.inputFile)
	return true
}

// Count returns the number of findings added.
func (l *ValidationLog) Count() int {
	return l.count
}

// Commit finishes the log and moves it into place.
//
// RETURNS:
//   - The path to the log file, or "" when nothing was added.
//   - The first error encountered while writing.
func (l *ValidationLog) Commit() (string, error) {
	if l.err != nil {
		l.Discard()
		return "", l.err
	}
	if l.file == nil {
		return "", nil
	}

	fmt.Fprintf(l.writer, "================================================================================\n"+
		"Total Findings: %d\n"+
		"End of Validation Log\n", l.count)

	if err := l.writer.Flush(); err != nil {
		l.Discard()
		return "", fmt.Errorf("failed to flush validation log: %w", err)
	}
	if err := l.file.Commit(); err != nil {
		return "", err
	}
	return l.file.Path(), nil
}

// Discard removes the partial log. It is a no-op after Commit.
func (l *ValidationLog) Discard() {
	if l.file != nil {
		l.file.Discard()
	}
}

// =============================================================================
// RUN SUMMARY
// =============================================================================

// ExportSummary contains summary information about one export run.
type ExportSummary struct {
	StartTime          time.Time
	EndTime            time.Time
	InputFile          string
	OutputFile         string
	Format             string
	Variant            string
	ActivitiesRead     int
	ActivitiesSkipped  int
	RowsWritten        int
	ValidationErrors   int
	ValidationWarnings int
}

// WriteSummaryLog writes an export summary to a file.
//
// PARAMETERS:
//   - summary: The export summary.
//   - path: The summary file, usually SidecarPath(output, ".summary.txt").
//
// RETURNS:
//   - An error if writing fails.
func WriteSummaryLog(summary ExportSummary, path string) error {
	file, err := CreateOutputFile(path)
	if err != nil {
		return fmt.Errorf("failed to create summary file: %w", err)
	}
	defer file.Discard()

	writer := bufio.NewWriter(file)

	duration := summary.EndTime.Sub(summary.StartTime)
	fmt.Fprintf(writer, "IATI Activity Export - Export Summary\n"+
		"================================================================================\n\n"+
		"Run Information:\n"+
		"  Start Time:     %s\n"+
		"  End Time:       %s\n"+
		"  Duration:       %s\n"+
		"  Input:          %s\n"+
		"  Output:         %s\n"+
		"  Format:         %s\n"+
		"  Variant:        %s\n\n"+
		"Statistics:\n"+
		"  Activities Read:     %d\n"+
		"  Activities Skipped:  %d\n"+
		"  Rows Written:        %d\n"+
		"  Validation Errors:   %d\n"+
		"  Validation Warnings: %d\n\n",
		summary.StartTime.Format("2006-01-02 15:04:05"),
		summary.EndTime.Format("2006-01-02 15:04:05"),
		duration.String(),
		summary.InputFile,
		summary.OutputFile,
		summary.Format,
		summary.Variant,
		summary.ActivitiesRead,
		summary.ActivitiesSkipped,
		summary.RowsWritten,
		summary.ValidationErrors,
		summary.ValidationWarnings)

	writer.WriteString("================================================================================\n" +
		"End of Summary\n")

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush summary file: %w", err)
	}

	return file.Commit()
}

// FileExists reports whether path exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
