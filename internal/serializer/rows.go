// =============================================================================
// IATI Activity Export - Row Producer
// =============================================================================
//
// Three variants turn input records into export rows:
//
//   activity : one row per activity, all sub-collections joined
//   country  : one row per (activity, recipient country) pair
//   sector   : one row per (activity, sector) pair
//
// In the paired variants only the paired sub-item narrows its own columns;
// all other columns repeat the whole parent activity on every row.
//
// All producers are lazy: nothing is read from the input until the returned
// sequence is iterated, and iteration can stop at any row.
//
// =============================================================================

package serializer

import (
	"context"
	"fmt"
	"iter"

	"github.com/ginjaninja78/iati-export/internal/types"
)

// Row is one export row.
type Row struct {
	Activity *types.Activity

	// Country is set for by-country rows.
	Country *types.CountryPercentage

	// Sector is set for by-sector rows.
	Sector *types.SectorPercentage
}

func (r Row) countries() []types.CountryPercentage {
	if r.Country != nil {
		return []types.CountryPercentage{*r.Country}
	}
	return r.Activity.RecipientCountryPercentages
}

func (r Row) sectors() []types.SectorPercentage {
	if r.Sector != nil {
		return []types.SectorPercentage{*r.Sector}
	}
	return r.Activity.SectorPercentages
}

// CountryPair is an activity paired with one of its recipient countries.
type CountryPair struct {
	Activity *types.Activity
	Country  *types.CountryPercentage
}

// SectorPair is an activity paired with one of its sectors.
type SectorPair struct {
	Activity *types.Activity
	Sector   *types.SectorPercentage
}

// =============================================================================
// VARIANTS
// =============================================================================

// Variant selects the row producer.
type Variant string

const (
	VariantActivity Variant = "activity"
	VariantCountry  Variant = "country"
	VariantSector   Variant = "sector"
)

// FlatRows yields one row per activity.
func FlatRows(activities iter.Seq[*types.Activity]) iter.Seq[Row] {
	return func(yield func(Row) bool) {
		for a := range activities {
			if !yield(Row{Activity: a}) {
				return
			}
		}
	}
}

// CountryRows yields one row per (activity, country) pair.
func CountryRows(pairs iter.Seq[CountryPair]) iter.Seq[Row] {
	return func(yield func(Row) bool) {
		for p := range pairs {
			if !yield(Row{Activity: p.Activity, Country: p.Country}) {
				return
			}
		}
	}
}

// SectorRows yields one row per (activity, sector) pair.
func SectorRows(pairs iter.Seq[SectorPair]) iter.Seq[Row] {
	return func(yield func(Row) bool) {
		for p := range pairs {
			if !yield(Row{Activity: p.Activity, Sector: p.Sector}) {
				return
			}
		}
	}
}

// ByCountry expands activities into (activity, country) pairs in order.
// Activities without recipient countries produce no pairs.
func ByCountry(activities iter.Seq[*types.Activity]) iter.Seq[CountryPair] {
	return func(yield func(CountryPair) bool) {
		for a := range activities {
			for i := range a.RecipientCountryPercentages {
				if !yield(CountryPair{Activity: a, Country: &a.RecipientCountryPercentages[i]}) {
					return
				}
			}
		}
	}
}

// BySector expands activities into (activity, sector) pairs in order.
// Activities without sectors produce no pairs.
func BySector(activities iter.Seq[*types.Activity]) iter.Seq[SectorPair] {
	return func(yield func(SectorPair) bool) {
		for a := range activities {
			for i := range a.SectorPercentages {
				if !yield(SectorPair{Activity: a, Sector: &a.SectorPercentages[i]}) {
					return
				}
			}
		}
	}
}

// RowsFor builds the row sequence of a variant from plain activities.
func RowsFor(variant Variant, activities iter.Seq[*types.Activity]) (iter.Seq[Row], error) {
	switch variant {
	case VariantActivity, "":
		return FlatRows(activities), nil
	case VariantCountry:
		return CountryRows(ByCountry(activities)), nil
	case VariantSector:
		return SectorRows(BySector(activities)), nil
	default:
		return nil, fmt.Errorf("unknown export variant: %s", variant)
	}
}

// WithContext stops rows as soon as ctx is done. The caller checks ctx.Err
// to tell cancellation from exhaustion.
func WithContext(ctx context.Context, rows iter.Seq[Row]) iter.Seq[Row] {
	return func(yield func(Row) bool) {
		for r := range rows {
			if ctx.Err() != nil {
				return
			}
			if !yield(r) {
				return
			}
		}
	}
}
