// =============================================================================
// IATI Activity Export - Converter Module
// =============================================================================
//
// This module contains the core export logic. It orchestrates the whole
// pipeline for a single input document, from IATI XML parsing to the
// finished CSV, XLSX or XML file.
//
// EXPORT PIPELINE:
//   1. Resolve the exported columns
//   2. Open the input document
//   3. Parse, validate and (optionally) filter activities one at a time
//   4. Expand activities into rows (per activity, country or sector)
//   5. Serialize rows (or raw activity markup) to the output
//   6. Commit the output file, or discard it on any failure
//   7. Write the validation log and run summary next to the output
//
// Findings are appended to the validation log as they are produced and are
// not kept in memory.
//
// Activities flow through the pipeline lazily: an activity is parsed only
// when the writer asks for its row. Nothing is left in the output directory
// when the export fails or is cancelled.
//
// CONCURRENCY:
//   A Converter handles one document. The export command runs one Converter
//   per input file in its own goroutine; converters share no mutable state.
//
// =============================================================================

package converter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ginjaninja78/iati-export/internal/codelist"
	"github.com/ginjaninja78/iati-export/internal/config"
	"github.com/ginjaninja78/iati-export/internal/iatixml"
	"github.com/ginjaninja78/iati-export/internal/serializer"
	"github.com/ginjaninja78/iati-export/internal/types"
	"github.com/ginjaninja78/iati-export/internal/validation"
	"github.com/ginjaninja78/iati-export/internal/xmlwriter"
	"github.com/ginjaninja78/iati-export/pkg/utils"
)

// StdinPath selects standard input as the input document.
const StdinPath = "-"

// StdoutPath selects standard output as the export destination.
const StdoutPath = "-"

// Sidecar file suffixes, appended to the output name without its extension.
const (
	ValidationLogSuffix = ".validation.txt"
	SummarySuffix       = ".summary.txt"
)

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Result represents the outcome of exporting a single document.
type Result struct {
	// InputFile is the path to the input document.
	InputFile string

	// OutputFile is the path to the generated file. It is empty when the
	// export failed or was written to a caller-supplied writer.
	OutputFile string

	// Success indicates whether the export completed.
	Success bool

	// Error contains the error if the export failed.
	Error error

	// ValidationLog is the path to the validation log. It is empty when
	// there were no findings or the export went to a caller-supplied writer.
	ValidationLog string

	// SummaryFile is the path to the export summary, when one was written.
	SummaryFile string

	// Stats contains processing statistics.
	Stats ProcessingStats
}

// ProcessingStats contains statistics about the export.
type ProcessingStats struct {
	// ActivitiesRead is the number of activities parsed from the input.
	ActivitiesRead int

	// ActivitiesSkipped is the number of activities left out because they
	// failed validation and SkipInvalid is set.
	ActivitiesSkipped int

	// RowsWritten is the number of data rows (or XML activities) written.
	RowsWritten int

	ValidationErrors   int
	ValidationWarnings int

	// ProcessingTime is the time taken to export the document.
	ProcessingTime time.Duration
}

// =============================================================================
// CONVERTER STRUCTURE
// =============================================================================

// Converter exports a single IATI XML document.
type Converter struct {
	inputPath string
	input     io.Reader
	output    io.Writer

	config    *config.MainConfig
	codelists *codelist.Codelists
	validator *validation.Validator
	logger    *slog.Logger
}

// New creates a new Converter.
//
// PARAMETERS:
//   - inputPath: The IATI XML document, or StdinPath.
//   - cfg: The application configuration. Nil uses config.Default().
//   - cl: Codelists for name resolution. Nil uses codelist.Default().
//   - logger: The logger. Nil uses slog.Default().
//
// RETURNS:
//   - A new Converter that writes into cfg.OutputDir.
func New(inputPath string, cfg *config.MainConfig, cl *codelist.Codelists, logger *slog.Logger) *Converter {
	if cfg == nil {
		cfg = config.Default()
	}
	if cl == nil {
		cl = codelist.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}

	options := validation.DefaultOptions()
	options.TreatWarningsAsErrors = cfg.StrictValidation

	return &Converter{
		inputPath: inputPath,
		config:    cfg,
		codelists: cl,
		validator: validation.NewValidator(options),
		logger:    logger.With(slog.String("input", inputPath)),
	}
}

// SetInput reads the document from r instead of inputPath.
func (c *Converter) SetInput(r io.Reader) {
	c.input = r
}

// SetOutput writes the export to w instead of a file in the output
// directory. No logs are written in that case.
func (c *Converter) SetOutput(w io.Writer) {
	c.output = w
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// Run executes the export pipeline for the document.
//
// PARAMETERS:
//   - ctx: Cancelling ctx stops the export between rows; the partial output
//     is discarded.
//
// RETURNS:
//   - A Result struct containing the outcome of the export.
func (c *Converter) Run(ctx context.Context) (result Result) {
	startTime := time.Now()
	result = Result{InputFile: c.inputPath}
	defer func() {
		result.Stats.ProcessingTime = time.Since(startTime)
	}()

	// =========================================================================
	// STEP 1: RESOLVE COLUMNS
	// =========================================================================

	columns, err := serializer.LookupColumns(c.config.Columns)
	if err != nil {
		result.Error = fmt.Errorf("failed to resolve columns: %w", err)
		return result
	}

	// =========================================================================
	// STEP 2: OPEN INPUT
	// =========================================================================

	c.logger.Info("exporting document",
		slog.String("format", c.config.Format),
		slog.String("variant", c.config.Variant))

	parser, err := c.openParser()
	if err != nil {
		result.Error = fmt.Errorf("failed to open input: %w", err)
		return result
	}
	defer parser.Close()

	// =========================================================================
	// STEP 3: PREPARE OUTPUT
	// =========================================================================

	var (
		writer io.Writer
		file   *utils.OutputFile
		vlog   *utils.ValidationLog
	)
	if c.output != nil {
		writer = c.output
	} else {
		name := utils.GenerateOutputFileName(c.config.OutputFileFormat, c.config.Extension(), map[string]string{
			"format":  c.config.Format,
			"variant": c.config.Variant,
			"input":   c.inputName(),
		})
		file, err = utils.CreateOutputFile(filepath.Join(c.config.OutputDir, name))
		if err != nil {
			result.Error = err
			return result
		}
		defer file.Discard()
		writer = file

		vlog = utils.NewValidationLog(utils.SidecarPath(file.Path(), ValidationLogSuffix), c.inputPath)
		defer vlog.Discard()
	}

	// =========================================================================
	// STEP 4: SERIALIZE
	// =========================================================================

	activities := c.activities(ctx, parser, vlog, &result)

	rows, err := c.write(ctx, writer, activities, columns)
	result.Stats.RowsWritten = rows
	if err == nil {
		err = parser.Err()
	}
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		result.Error = fmt.Errorf("failed to export activities: %w", err)
		c.logger.Error("export failed", slog.Any("error", err))
		return result
	}

	// =========================================================================
	// STEP 5: COMMIT OUTPUT AND WRITE LOGS
	// =========================================================================

	if file != nil {
		if err := file.Commit(); err != nil {
			result.Error = err
			return result
		}
		result.OutputFile = file.Path()
		c.writeLogs(&result, vlog, startTime)
	}

	result.Success = true
	c.logger.Info("export complete",
		slog.String("output", result.OutputFile),
		slog.Int("activities", result.Stats.ActivitiesRead),
		slog.Int("skipped", result.Stats.ActivitiesSkipped),
		slog.Int("rows", result.Stats.RowsWritten))

	return result
}

// Validate parses and validates the document without exporting it.
func (c *Converter) Validate(ctx context.Context) (*validation.ValidationResult, error) {
	parser, err := c.openParser()
	if err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}
	defer parser.Close()

	result := &validation.ValidationResult{IsValid: true}
	for parser.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result.Add(c.validator.ValidateActivity(parser.Activity()))
	}
	if err := parser.Err(); err != nil {
		return nil, fmt.Errorf("failed to parse input: %w", err)
	}
	return result, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func (c *Converter) openParser() (*iatixml.StreamingParser, error) {
	switch {
	case c.input != nil:
		return iatixml.NewStreamingParser(c.input, c.codelists, c.logger)
	case c.inputPath == StdinPath:
		return iatixml.NewStreamingParser(os.Stdin, c.codelists, c.logger)
	default:
		return iatixml.Open(c.inputPath, c.codelists, c.logger)
	}
}

// activities yields validated activities from the parser, dropping invalid
// ones when configured to. Findings go to vlog (if any) as they occur. It
// stops early when ctx is done.
func (c *Converter) activities(ctx context.Context, parser *iatixml.StreamingParser, vlog *utils.ValidationLog, result *Result) iter.Seq[*types.Activity] {
	return func(yield func(*types.Activity) bool) {
		for parser.Next() {
			if ctx.Err() != nil {
				return
			}

			activity := parser.Activity()
			result.Stats.ActivitiesRead++

			findings := c.validator.ValidateActivity(activity)
			for _, f := range findings {
				if f.IsError() {
					result.Stats.ValidationErrors++
				} else {
					result.Stats.ValidationWarnings++
				}
				c.logger.Warn("validation finding",
					slog.String("severity", f.Severity),
					slog.String("iati_identifier", f.ActivityID),
					slog.String("field", f.Field),
					slog.String("message", f.Message))
				if vlog != nil {
					vlog.Add(utils.ValidationLogEntry{
						Severity:   f.Severity,
						ActivityID: f.ActivityID,
						Field:      f.Field,
						Value:      f.Value,
						Message:    f.Message,
					})
				}
			}

			if c.config.SkipInvalid && validation.HasErrors(findings) {
				result.Stats.ActivitiesSkipped++
				continue
			}

			if !yield(activity) {
				return
			}
		}
	}
}

// write serializes activities in the configured format and returns the
// number of rows written.
func (c *Converter) write(ctx context.Context, w io.Writer, activities iter.Seq[*types.Activity], columns []serializer.Column) (int, error) {
	switch c.config.Format {
	case config.FormatXML:
		stream := xmlwriter.NewStream(activities, xmlwriter.Options{
			RootElement:           c.config.XMLRootElement,
			IncludeXMLDeclaration: true,
			Version:               c.config.XMLVersion,
			GeneratedAt:           time.Now(),
			Newlines:              true,
		})
		_, err := stream.WriteTo(w)
		return stream.Count(), err

	case config.FormatCSV, config.FormatXLSX:
		rows, err := serializer.RowsFor(serializer.Variant(c.config.Variant), activities)
		if err != nil {
			return 0, err
		}
		rows = serializer.WithContext(ctx, rows)

		if c.config.Format == config.FormatXLSX {
			return serializer.WriteXLSX(w, rows, serializer.XLSXOptions{Columns: columns})
		}

		stream := serializer.NewCSVStream(rows, serializer.CSVOptions{
			Columns: columns,
			BOM:     c.config.CSVBOM,
		})
		_, err = stream.WriteTo(w)
		return stream.RowsWritten(), err

	default:
		return 0, fmt.Errorf("unsupported output format: %s", c.config.Format)
	}
}

// writeLogs commits the validation log and writes the run summary next to
// the output. Failures are logged, not returned: the export itself succeeded.
func (c *Converter) writeLogs(result *Result, vlog *utils.ValidationLog, startTime time.Time) {
	if path, err := vlog.Commit(); err != nil {
		c.logger.Warn("failed to write validation log", slog.Any("error", err))
	} else if path != "" {
		result.ValidationLog = path
		c.logger.Debug("wrote validation log", slog.String("path", path))
	}

	if !c.config.WriteSummary {
		return
	}
	summary := utils.ExportSummary{
		StartTime:          startTime,
		EndTime:            time.Now(),
		InputFile:          c.inputPath,
		OutputFile:         result.OutputFile,
		Format:             c.config.Format,
		Variant:            c.config.Variant,
		ActivitiesRead:     result.Stats.ActivitiesRead,
		ActivitiesSkipped:  result.Stats.ActivitiesSkipped,
		RowsWritten:        result.Stats.RowsWritten,
		ValidationErrors:   result.Stats.ValidationErrors,
		ValidationWarnings: result.Stats.ValidationWarnings,
	}
	path := utils.SidecarPath(result.OutputFile, SummarySuffix)
	if err := utils.WriteSummaryLog(summary, path); err != nil {
		c.logger.Warn("failed to write summary", slog.Any("error", err))
		return
	}
	result.SummaryFile = path
	c.logger.Debug("wrote summary", slog.String("path", path))
}

// inputName is the input file name without extension, for output naming.
func (c *Converter) inputName() string {
	if c.inputPath == "" || c.inputPath == StdinPath {
		return "stdin"
	}
	base := filepath.Base(c.inputPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// =============================================================================
// INPUT DISCOVERY
// =============================================================================

// ErrNoInput is returned when an input directory holds no XML documents.
var ErrNoInput = errors.New("no IATI XML documents found")

// DiscoverInputs expands path into the documents to export. A file (or
// StdinPath) is returned as is; a directory yields its *.xml files, leaving
// out anything under skipDirs (the output directory, so earlier exports are
// not picked up again).
func DiscoverInputs(path string, skipDirs ...string) ([]string, error) {
	if path == StdinPath {
		return []string{path}, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat input: %w", err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	skip := make(map[string]bool, len(skipDirs))
	for _, dir := range skipDirs {
		if abs, err := filepath.Abs(dir); err == nil {
			skip[abs] = true
		}
	}

	var files []string
	err = filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if abs, err := filepath.Abs(p); err == nil && skip[abs] && p != path {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.EqualFold(filepath.Ext(p), ".xml") {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan input directory: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoInput, path)
	}
	return files, nil
}
