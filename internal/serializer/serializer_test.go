package serializer

import (
	"bytes"
	"context"
	"encoding/csv"
	"iter"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/iati-export/internal/types"
)

func date(t *testing.T, s string) *time.Time {
	t.Helper()
	d, err := time.Parse(dateLayout, s)
	require.NoError(t, err)
	return &d
}

func pct(v int64) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.NewFromInt(v))
}

func tx(tt types.TransactionType, currency string, amount int64) types.Transaction {
	return types.Transaction{Type: tt, Currency: currency, Amount: decimal.NewFromInt(amount)}
}

func sampleActivity(t *testing.T) *types.Activity {
	return &types.Activity{
		IATIIdentifier:  "GB-1-12345",
		Title:           "School building",
		Description:     "Builds schools",
		StartPlanned:    date(t, "2012-04-01"),
		EndActual:       date(t, "2014-03-31"),
		DefaultCurrency: "GBP",
		RecipientCountryPercentages: []types.CountryPercentage{
			{Country: types.Country{Code: "KE", Name: "Kenya"}, Percentage: pct(80)},
			{Country: types.Country{Code: "UG", Name: "Uganda"}, Percentage: pct(20)},
		},
		SectorPercentages: []types.SectorPercentage{
			{Sector: &types.Sector{Code: "11130", Name: "Teacher training"}, Percentage: pct(60)},
			{Sector: &types.Sector{Code: "11220", Name: "Primary education"}, Percentage: pct(40)},
		},
		Transactions: []types.Transaction{
			tx(types.Disbursement, "", 130000),
		},
	}
}

func seqOf[T any](items ...T) iter.Seq[T] {
	return slices.Values(items)
}

func readCSV(t *testing.T, data []byte) [][]string {
	t.Helper()
	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	return records
}

func exportCSV(t *testing.T, stream *CSVStream) [][]string {
	t.Helper()
	var buf bytes.Buffer
	_, err := stream.WriteTo(&buf)
	require.NoError(t, err)
	return readCSV(t, buf.Bytes())
}

// =============================================================================
// AGGREGATION
// =============================================================================

func TestCollapseCurrencies(t *testing.T) {
	tests := []struct {
		name            string
		defaultCurrency string
		transactions    []types.Transaction
		want            string
	}{
		{"single currency", "", []types.Transaction{tx(types.Disbursement, "USD", 1)}, "USD"},
		{"repeated currency", "", []types.Transaction{tx(types.Disbursement, "USD", 1), tx(types.Expenditure, "USD", 2)}, "USD"},
		{"mixed currencies", "", []types.Transaction{tx(types.Disbursement, "USD", 1), tx(types.Expenditure, "AUD", 2)}, MixedCurrency},
		{"no transactions", "USD", nil, ""},
		{"default currency", "GBP", []types.Transaction{tx(types.Disbursement, "", 1)}, "GBP"},
		{"default matches explicit", "GBP", []types.Transaction{tx(types.Disbursement, "", 1), tx(types.Disbursement, "GBP", 1)}, "GBP"},
		{"default differs from explicit", "GBP", []types.Transaction{tx(types.Disbursement, "", 1), tx(types.Disbursement, "USD", 1)}, MixedCurrency},
		{"unresolved currency", "", []types.Transaction{tx(types.Disbursement, "", 1)}, ""},
		{"unresolved is ignored", "", []types.Transaction{tx(types.Disbursement, "", 1), tx(types.Disbursement, "USD", 1)}, "USD"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a := &types.Activity{DefaultCurrency: tc.defaultCurrency, Transactions: tc.transactions}
			require.Equal(t, tc.want, activityCurrency(a))
		})
	}
}

func TestTransactionTotals(t *testing.T) {
	a := &types.Activity{
		DefaultCurrency: "USD",
		Transactions: []types.Transaction{
			tx(types.Disbursement, "", 1),
			tx(types.Expenditure, "", 2),
		},
	}

	fields := Fields(Row{Activity: a}, DefaultColumns())
	require.Equal(t, "1", fields["total-Disbursement"])
	require.Equal(t, "2", fields["total-Expenditure"])
	require.Equal(t, "0", fields["total-Commitment"])
	for _, tt := range types.TransactionTypes {
		require.Contains(t, fields, "total-"+tt.Name())
	}
}

func TestTransactionTotalsSumPerType(t *testing.T) {
	a := &types.Activity{
		DefaultCurrency: "USD",
		Transactions: []types.Transaction{
			tx(types.Commitment, "", 100),
			tx(types.Commitment, "", 250),
			{Type: types.Disbursement, Amount: decimal.RequireFromString("10.5")},
		},
	}

	require.Equal(t, "350", transactionTotal(a, types.Commitment))
	require.Equal(t, "10.5", transactionTotal(a, types.Disbursement))
}

func TestTransactionTotalsMixedCurrency(t *testing.T) {
	a := &types.Activity{
		Transactions: []types.Transaction{
			tx(types.Disbursement, "USD", 1),
			tx(types.Disbursement, "AUD", 1),
			tx(types.Expenditure, "USD", 2),
		},
	}

	fields := Fields(Row{Activity: a}, DefaultColumns())
	require.Equal(t, MixedCurrency, fields["currency"])
	require.Equal(t, MixedCurrency, fields["total-Disbursement"])
	require.Equal(t, "2", fields["total-Expenditure"])
}

func TestJoinedFieldsKeepOrderAndSeparators(t *testing.T) {
	a := &types.Activity{
		RecipientCountryPercentages: []types.CountryPercentage{
			{Country: types.Country{Code: "KE", Name: "Kenya"}, Percentage: pct(50)},
			{Country: types.Country{Code: "UG", Name: "Uganda"}},
			{Country: types.Country{Code: "TZ", Name: "Tanzania"}, Percentage: pct(25)},
		},
	}

	fields := Fields(Row{Activity: a}, DefaultColumns())
	require.Equal(t, "KE;UG;TZ", fields["recipient-country-code"])
	require.Equal(t, "Kenya;Uganda;Tanzania", fields["recipient-country"])
	require.Equal(t, "50;;25", fields["recipient-country-percentage"])
	for _, name := range []string{"recipient-country-code", "recipient-country", "recipient-country-percentage"} {
		require.Equal(t, 2, strings.Count(fields[name], Separator), name)
	}
}

func TestNullSectorIsEmpty(t *testing.T) {
	a := &types.Activity{
		SectorPercentages: []types.SectorPercentage{{Sector: nil}},
	}

	fields := Fields(Row{Activity: a}, DefaultColumns())
	require.Equal(t, "", fields["sector-code"])
	require.Equal(t, "", fields["sector"])
	require.Equal(t, "", fields["sector-percentage"])
}

func TestOptionalFieldsAreEmpty(t *testing.T) {
	fields := Fields(Row{Activity: &types.Activity{IATIIdentifier: "X-1"}}, DefaultColumns())

	require.Equal(t, "X-1", fields["iati-identifier"])
	for _, name := range []string{"description", "start-planned", "end-actual", "currency", "sector", "recipient-country"} {
		require.Equal(t, "", fields[name], name)
	}
}

// =============================================================================
// COLUMNS
// =============================================================================

func TestDefaultColumnOrder(t *testing.T) {
	require.Equal(t, []string{
		"iati-identifier", "title", "description", "start-planned", "end-actual",
		"recipient-country-code", "recipient-country", "recipient-country-percentage",
		"sector-code", "sector", "sector-percentage", "currency",
		"total-Commitment", "total-Disbursement", "total-Expenditure",
		"total-Incoming Funds", "total-Interest Repayment", "total-Loan Repayment",
		"total-Reimbursement",
	}, ColumnNames(DefaultColumns()))
}

func TestLookupColumns(t *testing.T) {
	cols, err := LookupColumns(nil)
	require.NoError(t, err)
	require.Len(t, cols, 19)

	cols, err = LookupColumns([]string{"reporting-org", "iati-identifier"})
	require.NoError(t, err)
	require.Equal(t, []string{"reporting-org", "iati-identifier"}, ColumnNames(cols))

	_, err = LookupColumns([]string{"iati-identifier", "budget"})
	require.ErrorIs(t, err, ErrUnknownColumn)
}

func TestAvailableColumnsResolve(t *testing.T) {
	names := AvailableColumns()
	require.Len(t, names, 23)

	cols, err := LookupColumns(names)
	require.NoError(t, err)
	require.Equal(t, names, ColumnNames(cols))
}

// =============================================================================
// CSV WRITER
// =============================================================================

func TestCSVFlat(t *testing.T) {
	records := exportCSV(t, CSV(seqOf(sampleActivity(t))))

	require.Len(t, records, 2)
	require.Equal(t, ColumnNames(DefaultColumns()), records[0])

	row := records[1]
	require.Equal(t, "GB-1-12345", row[0])
	require.Equal(t, "2012-04-01", row[3])
	require.Equal(t, "2014-03-31", row[4])
	require.Equal(t, "KE;UG", row[5])
	require.Equal(t, "Kenya;Uganda", row[6])
	require.Equal(t, "80;20", row[7])
	require.Equal(t, "11130;11220", row[8])
	require.Equal(t, "Teacher training;Primary education", row[9])
	require.Equal(t, "60;40", row[10])
	require.Equal(t, "GBP", row[11])
	require.Equal(t, "130000", row[13])
}

func TestCSVEmptyInputWritesHeaderOnly(t *testing.T) {
	var buf bytes.Buffer
	_, err := CSV(seqOf[*types.Activity]()).WriteTo(&buf)
	require.NoError(t, err)

	records := readCSV(t, buf.Bytes())
	require.Len(t, records, 1)
	require.Equal(t, ColumnNames(DefaultColumns()), records[0])
}

func TestCSVQuotingAndUnicode(t *testing.T) {
	a := &types.Activity{
		IATIIdentifier: "X-1",
		Title:          "l,r",
		Description:    "say \"hi\"\nto ☃",
	}

	var buf bytes.Buffer
	_, err := CSV(seqOf(a)).WriteTo(&buf)
	require.NoError(t, err)

	require.Contains(t, buf.String(), `"l,r"`)
	require.Contains(t, buf.String(), `"say ""hi""`)

	records := readCSV(t, buf.Bytes())
	require.Equal(t, "l,r", records[1][1])
	require.Equal(t, "say \"hi\"\nto ☃", records[1][2])
}

func TestCSVBOM(t *testing.T) {
	var buf bytes.Buffer
	stream := NewCSVStream(FlatRows(seqOf(sampleActivity(t))), CSVOptions{BOM: true})
	_, err := stream.WriteTo(&buf)
	require.NoError(t, err)

	require.True(t, bytes.HasPrefix(buf.Bytes(), utf8BOM))
	require.Equal(t, 1, bytes.Count(buf.Bytes(), utf8BOM))
}

func TestCSVCustomColumns(t *testing.T) {
	cols, err := LookupColumns([]string{"iati-identifier", "default-currency"})
	require.NoError(t, err)

	records := exportCSV(t, NewCSVStream(FlatRows(seqOf(sampleActivity(t))), CSVOptions{Columns: cols}))
	require.Equal(t, [][]string{
		{"iati-identifier", "default-currency"},
		{"GB-1-12345", "GBP"},
	}, records)
}

func TestCSVIsLazy(t *testing.T) {
	pulled := 0
	activities := func(yield func(*types.Activity) bool) {
		for i := 0; i < 3; i++ {
			pulled++
			if !yield(&types.Activity{IATIIdentifier: "X"}) {
				return
			}
		}
	}

	stream := CSV(activities)
	defer stream.Close()
	require.Equal(t, 0, pulled)

	require.True(t, stream.Next())
	require.Equal(t, 0, pulled, "header must not pull rows")
	require.True(t, strings.HasPrefix(string(stream.Chunk()), "iati-identifier,"))

	require.True(t, stream.Next())
	require.Equal(t, 1, pulled)
	require.Equal(t, 1, stream.RowsWritten())
}

func TestCSVCloseReleasesInput(t *testing.T) {
	released := false
	activities := func(yield func(*types.Activity) bool) {
		defer func() { released = true }()
		for {
			if !yield(&types.Activity{IATIIdentifier: "X"}) {
				return
			}
		}
	}

	stream := CSV(activities)
	require.True(t, stream.Next())
	require.True(t, stream.Next())
	require.True(t, stream.Next())
	require.NoError(t, stream.Close())

	require.True(t, released)
	require.False(t, stream.Next())
	require.NoError(t, stream.Close())
}

func TestCSVByCountry(t *testing.T) {
	records := exportCSV(t, CSVByCountry(ByCountry(seqOf(sampleActivity(t)))))

	require.Len(t, records, 3)
	kenya, uganda := records[1], records[2]

	require.Equal(t, []string{"KE", "Kenya", "80"}, kenya[5:8])
	require.Equal(t, []string{"UG", "Uganda", "20"}, uganda[5:8])

	// Everything outside the country columns is duplicated.
	require.Equal(t, kenya[:5], uganda[:5])
	require.Equal(t, kenya[8:], uganda[8:])
	require.Equal(t, "11130;11220", kenya[8])
	require.Equal(t, "GBP", kenya[11])
	require.Equal(t, "130000", kenya[13])
}

func TestCSVBySector(t *testing.T) {
	records := exportCSV(t, CSVBySector(BySector(seqOf(sampleActivity(t)))))

	require.Len(t, records, 3)
	first, second := records[1], records[2]

	require.Equal(t, []string{"11130", "Teacher training", "60"}, first[8:11])
	require.Equal(t, []string{"11220", "Primary education", "40"}, second[8:11])
	require.Equal(t, first[:8], second[:8])
	require.Equal(t, first[11:], second[11:])
	require.Equal(t, "KE;UG", first[5])
}

func TestByCountrySkipsActivitiesWithoutCountries(t *testing.T) {
	records := exportCSV(t, CSVByCountry(ByCountry(seqOf(&types.Activity{IATIIdentifier: "X"}))))
	require.Len(t, records, 1)
}

// =============================================================================
// ROW PRODUCER
// =============================================================================

func TestRowsFor(t *testing.T) {
	activities := seqOf(sampleActivity(t))

	tests := []struct {
		variant Variant
		want    int
	}{
		{VariantActivity, 1},
		{"", 1},
		{VariantCountry, 2},
		{VariantSector, 2},
	}
	for _, tc := range tests {
		t.Run(string(tc.variant), func(t *testing.T) {
			rows, err := RowsFor(tc.variant, activities)
			require.NoError(t, err)
			require.Len(t, slices.Collect(rows), tc.want)
		})
	}

	_, err := RowsFor("region", activities)
	require.Error(t, err)
}

func TestWithContextStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rows := WithContext(ctx, FlatRows(seqOf(sampleActivity(t), sampleActivity(t))))
	require.Empty(t, slices.Collect(rows))
}
