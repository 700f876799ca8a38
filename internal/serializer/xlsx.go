// =============================================================================
// IATI Activity Export - XLSX Writer
// =============================================================================
//
// Renders the same rows and columns as the CSV writer into a single-sheet
// workbook. Rows go through excelize's StreamWriter, which spills to a
// temporary file for large sheets instead of keeping every cell in memory.
//
// =============================================================================

package serializer

import (
	"fmt"
	"io"
	"iter"

	"github.com/xuri/excelize/v2"
)

// DefaultSheetName is the sheet the rows are written to.
const DefaultSheetName = "activities"

// XLSXOptions configures WriteXLSX.
type XLSXOptions struct {
	// Columns to render. Nil selects DefaultColumns.
	Columns []Column

	// SheetName defaults to DefaultSheetName.
	SheetName string
}

// WriteXLSX writes a workbook with a header row and one row per input row.
//
// PARAMETERS:
//   - w: Destination of the workbook bytes.
//   - rows: The rows to render; consumed once.
//   - opts: Column and sheet settings.
//
// RETURNS:
//   - The number of data rows written.
//   - An error if the workbook cannot be built or written.
func WriteXLSX(w io.Writer, rows iter.Seq[Row], opts XLSXOptions) (int, error) {
	columns := opts.Columns
	if columns == nil {
		columns = DefaultColumns()
	}
	sheet := opts.SheetName
	if sheet == "" {
		sheet = DefaultSheetName
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return 0, fmt.Errorf("failed to name sheet: %w", err)
	}

	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return 0, fmt.Errorf("failed to create stream writer: %w", err)
	}

	if err := sw.SetRow("A1", toCells(ColumnNames(columns))); err != nil {
		return 0, fmt.Errorf("failed to write header row: %w", err)
	}

	count := 0
	for row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, count+2)
		if err != nil {
			return count, fmt.Errorf("failed to address row %d: %w", count+2, err)
		}
		if err := sw.SetRow(cell, toCells(Extract(row, columns))); err != nil {
			return count, fmt.Errorf("failed to write row %d: %w", count+2, err)
		}
		count++
	}

	if err := sw.Flush(); err != nil {
		return count, fmt.Errorf("failed to flush sheet: %w", err)
	}
	if err := f.Write(w); err != nil {
		return count, fmt.Errorf("failed to write workbook: %w", err)
	}

	return count, nil
}

func toCells(values []string) []interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}
