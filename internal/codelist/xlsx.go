// =============================================================================
// IATI Activity Export - Codelist Workbook Loader
// =============================================================================
//
// Loads codelists from an XLSX workbook. Each list lives on its own sheet
// named after the list ("country", "sector", "currency"; case-insensitive).
//
// SHEET LAYOUT:
//   | Column A | Column B          |
//   |----------|-------------------|
//   | code     | name              |   <- header row, skipped
//   | KE       | Kenya             |
//   | UG       | Uganda            |
//
// Sheets with other names are ignored, so the workbook can carry notes.
//
// =============================================================================

package codelist

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// LoadWorkbook reads a codelist workbook and returns its entries.
//
// PARAMETERS:
//   - path: The path to the XLSX workbook.
//
// RETURNS:
//   - Codelists containing only the entries found in the workbook.
//   - An error if the workbook cannot be opened or a sheet cannot be read.
func LoadWorkbook(path string) (*Codelists, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open codelist workbook: %w", err)
	}
	defer f.Close()

	cl := New()
	targets := map[string]map[string]string{
		ListCountry:  cl.Countries,
		ListSector:   cl.Sectors,
		ListCurrency: cl.Currencies,
	}

	for _, sheetName := range f.GetSheetList() {
		list := strings.ToLower(strings.TrimSpace(sheetName))
		table, ok := targets[list]
		if !ok {
			continue
		}

		rows, err := f.GetRows(sheetName)
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %s: %w", sheetName, err)
		}

		// Row 1 is the header.
		for i := 1; i < len(rows); i++ {
			row := rows[i]
			if len(row) == 0 {
				continue
			}
			code := normalizeCode(list, row[0])
			if code == "" {
				continue
			}
			name := ""
			if len(row) > 1 {
				name = strings.TrimSpace(row[1])
			}
			table[code] = name
		}
	}

	return cl, nil
}
