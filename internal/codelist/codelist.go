// =============================================================================
// IATI Activity Export - Codelists
// =============================================================================
//
// This module maps IATI codes to display names. The serializer itself never
// looks anything up: names are resolved once, when the parser builds an
// activity, so that export rows can be produced from resident data only.
//
// SOURCES (later sources override earlier ones):
//   1. Built-in defaults (a small set of common codes)
//   2. YAML files in the configured codelists directory
//   3. An XLSX workbook (see xlsx.go)
//
// YAML FILE FORMAT (one file per list: country.yaml, sector.yaml, currency.yaml):
//   KE: Kenya
//   UG: Uganda
//
// =============================================================================

package codelist

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ginjaninja78/iati-export/internal/types"
)

// List names used for file names and workbook sheets.
const (
	ListCountry  = "country"
	ListSector   = "sector"
	ListCurrency = "currency"
)

// Codelists holds the code -> name tables.
type Codelists struct {
	Countries  map[string]string
	Sectors    map[string]string
	Currencies map[string]string
}

// New returns empty codelists.
func New() *Codelists {
	return &Codelists{
		Countries:  make(map[string]string),
		Sectors:    make(map[string]string),
		Currencies: make(map[string]string),
	}
}

// Default returns codelists seeded with the built-in entries.
func Default() *Codelists {
	cl := New()
	for code, name := range defaultCountries {
		cl.Countries[code] = name
	}
	for code, name := range defaultSectors {
		cl.Sectors[code] = name
	}
	for code, name := range defaultCurrencies {
		cl.Currencies[code] = name
	}
	return cl
}

// =============================================================================
// LOOKUPS
// =============================================================================

// Country resolves a country code. Unknown codes keep an empty name.
func (c *Codelists) Country(code string) types.Country {
	code = strings.ToUpper(strings.TrimSpace(code))
	return types.Country{Code: code, Name: c.Countries[code]}
}

// Sector resolves a sector code. Unknown codes keep an empty name.
func (c *Codelists) Sector(code string) *types.Sector {
	code = strings.TrimSpace(code)
	return &types.Sector{Code: code, Name: c.Sectors[code]}
}

// IsCurrency reports whether code is a known currency.
func (c *Codelists) IsCurrency(code string) bool {
	_, ok := c.Currencies[strings.ToUpper(code)]
	return ok
}

// transactionTypeCodes covers both the 1.x letter codes and the 2.x numeric codes.
var transactionTypeCodes = map[string]types.TransactionType{
	"C":  types.Commitment,
	"D":  types.Disbursement,
	"E":  types.Expenditure,
	"IF": types.IncomingFunds,
	"IR": types.InterestRepayment,
	"LR": types.LoanRepayment,
	"R":  types.Reimbursement,
	"1":  types.IncomingFunds,
	"2":  types.Commitment,
	"3":  types.Disbursement,
	"4":  types.Expenditure,
	"5":  types.InterestRepayment,
	"6":  types.LoanRepayment,
	"7":  types.Reimbursement,
}

// TransactionType maps an IATI transaction type code to its type.
func TransactionType(code string) (types.TransactionType, bool) {
	t, ok := transactionTypeCodes[strings.ToUpper(strings.TrimSpace(code))]
	return t, ok
}

// =============================================================================
// LOADING
// =============================================================================

// Merge copies every entry of other into c, overriding existing names.
func (c *Codelists) Merge(other *Codelists) {
	if other == nil {
		return
	}
	for code, name := range other.Countries {
		c.Countries[code] = name
	}
	for code, name := range other.Sectors {
		c.Sectors[code] = name
	}
	for code, name := range other.Currencies {
		c.Currencies[code] = name
	}
}

// LoadDir merges country.yaml, sector.yaml and currency.yaml from dir into c.
// Missing files are skipped.
func (c *Codelists) LoadDir(dir string) error {
	targets := map[string]map[string]string{
		ListCountry:  c.Countries,
		ListSector:   c.Sectors,
		ListCurrency: c.Currencies,
	}

	for list, table := range targets {
		path := filepath.Join(dir, list+".yaml")
		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to read codelist %s: %w", path, err)
		}

		var entries map[string]string
		if err := yaml.Unmarshal(data, &entries); err != nil {
			return fmt.Errorf("failed to parse codelist %s: %w", path, err)
		}
		for code, name := range entries {
			table[normalizeCode(list, code)] = name
		}
	}

	return nil
}

func normalizeCode(list, code string) string {
	code = strings.TrimSpace(code)
	if list == ListSector {
		return code
	}
	return strings.ToUpper(code)
}

// =============================================================================
// BUILT-IN DEFAULTS
// =============================================================================

var defaultCountries = map[string]string{
	"AF": "Afghanistan",
	"BD": "Bangladesh",
	"ET": "Ethiopia",
	"GH": "Ghana",
	"KE": "Kenya",
	"MW": "Malawi",
	"MZ": "Mozambique",
	"NG": "Nigeria",
	"NP": "Nepal",
	"PK": "Pakistan",
	"RW": "Rwanda",
	"SO": "Somalia",
	"TZ": "Tanzania, United Republic of",
	"UG": "Uganda",
	"ZM": "Zambia",
	"ZW": "Zimbabwe",
}

var defaultSectors = map[string]string{
	"11110": "Education policy and administrative management",
	"11130": "Teacher training",
	"11220": "Primary education",
	"12220": "Basic health care",
	"12240": "Basic nutrition",
	"14030": "Basic drinking water supply and basic sanitation",
	"15110": "Public sector policy and administrative management",
	"31120": "Agricultural development",
	"72010": "Material relief assistance and services",
}

var defaultCurrencies = map[string]string{
	"AUD": "Australian Dollar",
	"CAD": "Canadian Dollar",
	"CHF": "Swiss Franc",
	"EUR": "Euro",
	"GBP": "Pound Sterling",
	"JPY": "Yen",
	"KES": "Kenyan Shilling",
	"SEK": "Swedish Krona",
	"UGX": "Uganda Shilling",
	"USD": "US Dollar",
}
