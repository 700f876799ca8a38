package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEffectiveCurrency(t *testing.T) {
	a := &Activity{DefaultCurrency: "GBP"}

	require.Equal(t, "USD", Transaction{Currency: "USD"}.EffectiveCurrency(a))
	require.Equal(t, "GBP", Transaction{}.EffectiveCurrency(a))
	require.Equal(t, "", Transaction{}.EffectiveCurrency(&Activity{}))
	require.Equal(t, "", Transaction{}.EffectiveCurrency(nil))
}

func TestTransactionTypeNames(t *testing.T) {
	var names []string
	for _, tt := range TransactionTypes {
		require.True(t, tt.Known())
		names = append(names, tt.Name())
	}
	require.Equal(t, []string{
		"Commitment", "Disbursement", "Expenditure", "Incoming Funds",
		"Interest Repayment", "Loan Repayment", "Reimbursement",
	}, names)

	require.False(t, TransactionUnknown.Known())
	require.Equal(t, "Unknown", TransactionUnknown.String())
}
