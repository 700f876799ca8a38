// =============================================================================
// IATI Activity Export - Shared Types
// =============================================================================
//
// This package contains the activity data model shared by every module.
// Types defined here are consumed by:
//   - iatixml     (builds activities from IATI XML files)
//   - validation  (checks loaded activities)
//   - serializer  (CSV / XLSX rows)
//   - xmlwriter   (raw XML passthrough)
//
// Activities are read-only inputs: nothing downstream of the parser mutates
// them.
//
// =============================================================================

package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ACTIVITY
// =============================================================================

// Activity is one IATI aid-project record.
type Activity struct {
	// IATIIdentifier is the globally unique activity identifier.
	// Upstream guarantees it is present.
	IATIIdentifier string

	// Title is the activity title.
	Title string

	// Description is optional; empty means absent.
	Description string

	// ReportingOrg is the display name of the reporting organisation.
	ReportingOrg string

	// Activity dates. Nil means the date was not reported.
	StartPlanned *time.Time
	StartActual  *time.Time
	EndPlanned   *time.Time
	EndActual    *time.Time

	// DefaultCurrency is the ISO 4217 code applied to transactions that do
	// not carry their own currency. Empty means absent.
	DefaultCurrency string

	// RecipientCountryPercentages is kept in document order.
	RecipientCountryPercentages []CountryPercentage

	// SectorPercentages is kept in document order.
	SectorPercentages []SectorPercentage

	// Transactions is kept in document order.
	Transactions []Transaction

	// RawXML is the verbatim markup of the activity as it was stored.
	RawXML string
}

// =============================================================================
// COUNTRIES AND SECTORS
// =============================================================================

// Country is a recipient country codelist entry.
type Country struct {
	Code string
	Name string
}

// CountryPercentage is a country's share of an activity.
type CountryPercentage struct {
	Country Country

	// Percentage is invalid (Valid == false) when the source omitted it.
	Percentage decimal.NullDecimal
}

// Sector is a DAC sector codelist entry.
type Sector struct {
	Code string
	Name string
}

// SectorPercentage is a sector's share of an activity.
type SectorPercentage struct {
	// Sector is nil when the share was reported without a sector.
	Sector *Sector

	Percentage decimal.NullDecimal
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// Transaction is a single financial transaction of an activity.
type Transaction struct {
	Type TransactionType

	// Currency is empty when the transaction relies on the activity default.
	Currency string

	Amount decimal.Decimal
}

// EffectiveCurrency returns the currency the transaction is expressed in:
// its own currency, else the activity default, else "".
func (t Transaction) EffectiveCurrency(a *Activity) string {
	if t.Currency != "" {
		return t.Currency
	}
	if a == nil {
		return ""
	}
	return a.DefaultCurrency
}

// TransactionType is one of the seven IATI transaction types.
type TransactionType int

const (
	TransactionUnknown TransactionType = iota
	Commitment
	Disbursement
	Expenditure
	IncomingFunds
	InterestRepayment
	LoanRepayment
	Reimbursement
)

// TransactionTypes lists the known types in export column order.
var TransactionTypes = []TransactionType{
	Commitment,
	Disbursement,
	Expenditure,
	IncomingFunds,
	InterestRepayment,
	LoanRepayment,
	Reimbursement,
}

var transactionTypeNames = map[TransactionType]string{
	Commitment:        "Commitment",
	Disbursement:      "Disbursement",
	Expenditure:       "Expenditure",
	IncomingFunds:     "Incoming Funds",
	InterestRepayment: "Interest Repayment",
	LoanRepayment:     "Loan Repayment",
	Reimbursement:     "Reimbursement",
}

// Name returns the display name used in export headers.
func (t TransactionType) Name() string {
	if name, ok := transactionTypeNames[t]; ok {
		return name
	}
	return "Unknown"
}

// String implements fmt.Stringer.
func (t TransactionType) String() string {
	return t.Name()
}

// Known reports whether t is one of the seven IATI transaction types.
func (t TransactionType) Known() bool {
	_, ok := transactionTypeNames[t]
	return ok
}
