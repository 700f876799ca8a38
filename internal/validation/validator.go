// =============================================================================
// IATI Activity Export - Validation Module
// =============================================================================
//
// This module checks loaded activities before they are exported. Validation
// never changes an activity and never stops the export of valid records.
//
// CHECKS:
//   Errors (the record is structurally broken):
//     - iati-identifier is missing
//     - a country or sector percentage lies outside 0..100
//   Warnings (the record exports, but probably needs attention):
//     - a currency is not an ISO 4217 code
//     - a recipient country is not an ISO 3166-1 alpha-2 code
//     - a transaction has an unknown type
//     - recipient country percentages do not add up to 100
//
// Field checks are declared as go-playground/validator tags on a flat view
// of the activity; the cross-field percentage total is checked by hand.
//
// =============================================================================

package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/iati-export/internal/types"
)

// Severity levels.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// =============================================================================
// VALIDATION ERROR TYPES
// =============================================================================

// ValidationError represents a single validation finding.
type ValidationError struct {
	// Severity is SeverityError or SeverityWarning.
	Severity string

	// ActivityID is the iati-identifier of the activity (may be empty).
	ActivityID string

	// Field is the path of the offending field, e.g. "transaction[1].currency".
	Field string

	// Value is the offending value.
	Value string

	// Rule is the validation rule that was violated.
	Rule string

	// Message is a human-readable description.
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("[%s] Activity '%s', Field '%s': %s (value: '%s')",
		strings.ToUpper(e.Severity),
		e.ActivityID,
		e.Field,
		e.Message,
		e.Value,
	)
}

// IsError reports whether the finding is fatal for the record.
func (e *ValidationError) IsError() bool {
	return e.Severity == SeverityError
}

// =============================================================================
// VALIDATION RESULT
// =============================================================================

// ValidationResult summarises the validation of many activities.
type ValidationResult struct {
	// IsValid is true if there are no errors.
	IsValid bool

	// Errors contains all findings, warnings included.
	Errors []*ValidationError

	ErrorCount          int
	WarningCount        int
	ActivitiesValidated int
}

// =============================================================================
// VALIDATOR
// =============================================================================

// Options contains options for validation.
type Options struct {
	// TreatWarningsAsErrors promotes every warning to an error.
	TreatWarningsAsErrors bool

	// CheckCountryTotals warns when country percentages do not sum to 100.
	CheckCountryTotals bool
}

// DefaultOptions returns the default validation options.
func DefaultOptions() Options {
	return Options{
		CheckCountryTotals: true,
	}
}

// Validator validates activities.
type Validator struct {
	validate *validator.Validate
	options  Options
}

// NewValidator creates a Validator with the given options.
func NewValidator(options Options) *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := field.Tag.Get("name")
		if name == "" {
			return field.Name
		}
		return name
	})

	return &Validator{
		validate: v,
		options:  options,
	}
}

// ruleSeverity classifies validator tags.
var ruleSeverity = map[string]string{
	"required":         SeverityError,
	"gte":              SeverityError,
	"lte":              SeverityError,
	"iso4217":          SeverityWarning,
	"iso3166_1_alpha2": SeverityWarning,
	"ne":               SeverityWarning,
}

var ruleMessages = map[string]string{
	"required":         "value is required",
	"gte":              "percentage must not be negative",
	"lte":              "percentage must not exceed 100",
	"iso4217":          "not an ISO 4217 currency code",
	"iso3166_1_alpha2": "not an ISO 3166-1 alpha-2 country code",
	"ne":               "unknown transaction type",
}

// ValidateActivity validates a single activity.
//
// PARAMETERS:
//   - a: The activity to validate.
//
// RETURNS:
//   - All findings for the activity; empty when it is clean.
func (v *Validator) ValidateActivity(a *types.Activity) []*ValidationError {
	var findings []*ValidationError

	err := v.validate.Struct(newActivityView(a))
	var fieldErrors validator.ValidationErrors
	if errors.As(err, &fieldErrors) {
		for _, fe := range fieldErrors {
			severity, ok := ruleSeverity[fe.Tag()]
			if !ok {
				severity = SeverityError
			}
			message, ok := ruleMessages[fe.Tag()]
			if !ok {
				message = "failed rule " + fe.Tag()
			}
			findings = append(findings, v.finding(a, severity, fieldPath(fe.Namespace()), fmt.Sprint(fe.Value()), fe.Tag(), message))
		}
	} else if err != nil {
		findings = append(findings, v.finding(a, SeverityError, "", "", "internal", err.Error()))
	}

	if v.options.CheckCountryTotals {
		if total, ok := countryTotal(a); ok && !total.Equal(decimal.NewFromInt(100)) {
			findings = append(findings, v.finding(a, SeverityWarning, "recipient-country", total.String(),
				"total", "recipient country percentages do not add up to 100"))
		}
	}

	return findings
}

// ValidateAll validates every activity and summarises the findings.
func (v *Validator) ValidateAll(activities []*types.Activity) *ValidationResult {
	result := &ValidationResult{IsValid: true}
	for _, a := range activities {
		result.Add(v.ValidateActivity(a))
	}
	return result
}

// Add records the findings of one more activity.
func (r *ValidationResult) Add(findings []*ValidationError) {
	r.ActivitiesValidated++
	for _, f := range findings {
		r.Errors = append(r.Errors, f)
		if f.IsError() {
			r.ErrorCount++
			r.IsValid = false
		} else {
			r.WarningCount++
		}
	}
}

// HasErrors reports whether any finding is an error.
func HasErrors(findings []*ValidationError) bool {
	for _, f := range findings {
		if f.IsError() {
			return true
		}
	}
	return false
}

func (v *Validator) finding(a *types.Activity, severity, field, value, rule, message string) *ValidationError {
	if v.options.TreatWarningsAsErrors {
		severity = SeverityError
	}
	return &ValidationError{
		Severity:   severity,
		ActivityID: a.IATIIdentifier,
		Field:      field,
		Value:      value,
		Rule:       rule,
		Message:    message,
	}
}

// =============================================================================
// ACTIVITY VIEW
// =============================================================================
// The view flattens the activity into validator-friendly fields. Optional
// values use pointers or omitempty so absence is never reported.

type activityView struct {
	IATIIdentifier  string            `name:"iati-identifier" validate:"required"`
	DefaultCurrency string            `name:"default-currency" validate:"omitempty,iso4217"`
	Countries       []countryView     `name:"recipient-country" validate:"dive"`
	Sectors         []sectorView      `name:"sector" validate:"dive"`
	Transactions    []transactionView `name:"transaction" validate:"dive"`
}

type countryView struct {
	Code       string   `name:"code" validate:"omitempty,iso3166_1_alpha2"`
	Percentage *float64 `name:"percentage" validate:"omitempty,gte=0,lte=100"`
}

type sectorView struct {
	Percentage *float64 `name:"percentage" validate:"omitempty,gte=0,lte=100"`
}

type transactionView struct {
	Type     string `name:"type" validate:"ne=Unknown"`
	Currency string `name:"currency" validate:"omitempty,iso4217"`
}

func newActivityView(a *types.Activity) activityView {
	view := activityView{
		IATIIdentifier:  strings.TrimSpace(a.IATIIdentifier),
		DefaultCurrency: a.DefaultCurrency,
	}
	for _, cp := range a.RecipientCountryPercentages {
		view.Countries = append(view.Countries, countryView{
			Code:       cp.Country.Code,
			Percentage: percentagePtr(cp.Percentage),
		})
	}
	for _, sp := range a.SectorPercentages {
		view.Sectors = append(view.Sectors, sectorView{Percentage: percentagePtr(sp.Percentage)})
	}
	for _, t := range a.Transactions {
		view.Transactions = append(view.Transactions, transactionView{
			Type:     t.Type.Name(),
			Currency: t.Currency,
		})
	}
	return view
}

func percentagePtr(p decimal.NullDecimal) *float64 {
	if !p.Valid {
		return nil
	}
	f := p.Decimal.InexactFloat64()
	return &f
}

// countryTotal sums country percentages. ok is false when there is nothing
// to check: no countries, or a country without a percentage.
func countryTotal(a *types.Activity) (decimal.Decimal, bool) {
	if len(a.RecipientCountryPercentages) == 0 {
		return decimal.Zero, false
	}
	total := decimal.Zero
	for _, cp := range a.RecipientCountryPercentages {
		if !cp.Percentage.Valid {
			return decimal.Zero, false
		}
		total = total.Add(cp.Percentage.Decimal)
	}
	return total, true
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(namespace string) string {
	if i := strings.Index(namespace, "."); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}
