// =============================================================================
// IATI Activity Export - Field Extractor
// =============================================================================
//
// Every export column is a name plus a function computing its value from a
// Row. The default column list is fixed; extra registered columns can be
// selected by name through configuration.
//
// DEFAULT COLUMN ORDER:
//   iati-identifier, title, description, start-planned, end-actual,
//   recipient-country-code, recipient-country, recipient-country-percentage,
//   sector-code, sector, sector-percentage, currency,
//   total-<transaction type> for each of the seven transaction types
//
// Country and sector columns narrow to the paired sub-item when the row
// carries one (by-country / by-sector exports) and join the whole activity
// otherwise.
//
// =============================================================================

package serializer

import (
	"errors"
	"fmt"

	"github.com/ginjaninja78/iati-export/internal/types"
)

// ErrUnknownColumn is returned when a configured column is not registered.
var ErrUnknownColumn = errors.New("unknown column")

// Column is one export column.
type Column struct {
	Name  string
	Value func(Row) string
}

// =============================================================================
// COLUMN DEFINITIONS
// =============================================================================

var (
	colIdentifier = Column{"iati-identifier", func(r Row) string { return r.Activity.IATIIdentifier }}
	colTitle      = Column{"title", func(r Row) string { return r.Activity.Title }}
	colDesc       = Column{"description", func(r Row) string { return r.Activity.Description }}
	colOrg        = Column{"reporting-org", func(r Row) string { return r.Activity.ReportingOrg }}

	colStartPlanned = Column{"start-planned", func(r Row) string { return formatDate(r.Activity.StartPlanned) }}
	colStartActual  = Column{"start-actual", func(r Row) string { return formatDate(r.Activity.StartActual) }}
	colEndPlanned   = Column{"end-planned", func(r Row) string { return formatDate(r.Activity.EndPlanned) }}
	colEndActual    = Column{"end-actual", func(r Row) string { return formatDate(r.Activity.EndActual) }}

	colCountryCode = Column{"recipient-country-code", func(r Row) string {
		return countryCodes(r.countries())
	}}
	colCountry = Column{"recipient-country", func(r Row) string {
		return countryNames(r.countries())
	}}
	colCountryPct = Column{"recipient-country-percentage", func(r Row) string {
		return countryPercentages(r.countries())
	}}

	colSectorCode = Column{"sector-code", func(r Row) string {
		return sectorCodes(r.sectors())
	}}
	colSector = Column{"sector", func(r Row) string {
		return sectorNames(r.sectors())
	}}
	colSectorPct = Column{"sector-percentage", func(r Row) string {
		return sectorPercentages(r.sectors())
	}}

	colCurrency        = Column{"currency", func(r Row) string { return activityCurrency(r.Activity) }}
	colDefaultCurrency = Column{"default-currency", func(r Row) string { return r.Activity.DefaultCurrency }}
)

// totalColumn builds the total-<type> column for a transaction type.
func totalColumn(tt types.TransactionType) Column {
	return Column{
		Name:  "total-" + tt.Name(),
		Value: func(r Row) string { return transactionTotal(r.Activity, tt) },
	}
}

// DefaultColumns returns the standard export columns in order.
func DefaultColumns() []Column {
	cols := []Column{
		colIdentifier,
		colTitle,
		colDesc,
		colStartPlanned,
		colEndActual,
		colCountryCode,
		colCountry,
		colCountryPct,
		colSectorCode,
		colSector,
		colSectorPct,
		colCurrency,
	}
	for _, tt := range types.TransactionTypes {
		cols = append(cols, totalColumn(tt))
	}
	return cols
}

// registry holds every selectable column, default ones included.
var registry = func() map[string]Column {
	m := make(map[string]Column)
	for _, c := range DefaultColumns() {
		m[c.Name] = c
	}
	for _, c := range []Column{colOrg, colStartActual, colEndPlanned, colDefaultCurrency} {
		m[c.Name] = c
	}
	return m
}()

// AvailableColumns returns the names of all registered columns: the
// default ones first, in order, then the optional ones.
func AvailableColumns() []string {
	names := ColumnNames(DefaultColumns())
	return append(names, colOrg.Name, colStartActual.Name, colEndPlanned.Name, colDefaultCurrency.Name)
}

// LookupColumns resolves column names. An empty list selects the defaults.
//
// PARAMETERS:
//   - names: Column names in the desired output order.
//
// RETURNS:
//   - The resolved columns.
//   - ErrUnknownColumn (wrapped) if a name is not registered.
func LookupColumns(names []string) ([]Column, error) {
	if len(names) == 0 {
		return DefaultColumns(), nil
	}

	cols := make([]Column, 0, len(names))
	for _, name := range names {
		c, ok := registry[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, name)
		}
		cols = append(cols, c)
	}
	return cols, nil
}

// ColumnNames returns the header names of cols.
func ColumnNames(cols []Column) []string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names
}

// =============================================================================
// EXTRACTION
// =============================================================================

// Extract computes the values of cols for one row, in column order.
func Extract(r Row, cols []Column) []string {
	values := make([]string, len(cols))
	for i, c := range cols {
		values[i] = c.Value(r)
	}
	return values
}

// Fields computes the values of cols for one row, keyed by column name.
func Fields(r Row, cols []Column) map[string]string {
	fields := make(map[string]string, len(cols))
	for _, c := range cols {
		fields[c.Name] = c.Value(r)
	}
	return fields
}
