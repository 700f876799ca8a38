// =============================================================================
// IATI Activity Export - Aggregator
// =============================================================================
//
// Columns that come from repeated sub-structures (countries, sectors,
// transactions) are collapsed into one string per activity:
//
//   - Lists are joined with ";" in document order. An entry without a value
//     still contributes an empty string, so sibling columns keep the same
//     number of separators.
//   - Currencies collapse to a single code, the MixedCurrency sentinel, or "".
//   - Transaction totals are summed per transaction type.
//
// Nothing here returns an error: missing data degrades to "".
//
// =============================================================================

package serializer

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/iati-export/internal/types"
)

// MixedCurrency replaces a currency or a total when the transactions it
// covers are expressed in more than one currency.
const MixedCurrency = "!Mixed currency"

// Separator joins multi-valued fields.
const Separator = ";"

// dateLayout is ISO 8601 calendar date.
const dateLayout = "2006-01-02"

// joinValues joins values in order.
func joinValues(values []string) string {
	return strings.Join(values, Separator)
}

// formatDate renders an optional date, "" when absent.
func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dateLayout)
}

// formatPercentage renders an optional percentage, "" when absent.
func formatPercentage(p decimal.NullDecimal) string {
	if !p.Valid {
		return ""
	}
	return p.Decimal.String()
}

// =============================================================================
// COUNTRY AND SECTOR JOINS
// =============================================================================

func countryCodes(cps []types.CountryPercentage) string {
	values := make([]string, len(cps))
	for i, cp := range cps {
		values[i] = cp.Country.Code
	}
	return joinValues(values)
}

func countryNames(cps []types.CountryPercentage) string {
	values := make([]string, len(cps))
	for i, cp := range cps {
		values[i] = cp.Country.Name
	}
	return joinValues(values)
}

func countryPercentages(cps []types.CountryPercentage) string {
	values := make([]string, len(cps))
	for i, cp := range cps {
		values[i] = formatPercentage(cp.Percentage)
	}
	return joinValues(values)
}

func sectorCodes(sps []types.SectorPercentage) string {
	values := make([]string, len(sps))
	for i, sp := range sps {
		if sp.Sector != nil {
			values[i] = sp.Sector.Code
		}
	}
	return joinValues(values)
}

func sectorNames(sps []types.SectorPercentage) string {
	values := make([]string, len(sps))
	for i, sp := range sps {
		if sp.Sector != nil {
			values[i] = sp.Sector.Name
		}
	}
	return joinValues(values)
}

func sectorPercentages(sps []types.SectorPercentage) string {
	values := make([]string, len(sps))
	for i, sp := range sps {
		values[i] = formatPercentage(sp.Percentage)
	}
	return joinValues(values)
}

// =============================================================================
// CURRENCY AND TOTALS
// =============================================================================

// collapseCurrencies returns the single effective currency of txs,
// MixedCurrency when there is more than one, or "" when none resolves.
// Transactions whose currency cannot be resolved are not counted.
func collapseCurrencies(a *types.Activity, txs []types.Transaction) string {
	var first string
	for _, t := range txs {
		c := t.EffectiveCurrency(a)
		if c == "" {
			continue
		}
		if first == "" {
			first = c
			continue
		}
		if c != first {
			return MixedCurrency
		}
	}
	return first
}

// activityCurrency is the currency column for a whole activity.
func activityCurrency(a *types.Activity) string {
	return collapseCurrencies(a, a.Transactions)
}

// transactionTotal sums the amounts of every transaction of type tt.
// The currency check is independent of the activity currency column: only
// the transactions of this type are considered.
func transactionTotal(a *types.Activity, tt types.TransactionType) string {
	var matching []types.Transaction
	for _, t := range a.Transactions {
		if t.Type == tt {
			matching = append(matching, t)
		}
	}

	if collapseCurrencies(a, matching) == MixedCurrency {
		return MixedCurrency
	}

	total := decimal.Zero
	for _, t := range matching {
		total = total.Add(t.Amount)
	}
	return total.String()
}
