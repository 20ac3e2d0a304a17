package expense

import (
	"fmt"
	"strings"

	errors "github.com/frahmantamala/expense-assistant/internal"
	"github.com/frahmantamala/expense-assistant/internal/core/common/validation"
	"github.com/shopspring/decimal"
)

const minorUnitExponent = 2

var currencySymbols = map[string]string{
	"GBP": "£",
	"USD": "$",
	"EUR": "€",
}

func MajorFromMinor(minor int64) decimal.Decimal {
	return decimal.New(minor, -minorUnitExponent)
}

// FormatAmount renders minor units for display, e.g. 2540 GBP -> "£25.40".
func FormatAmount(minor int64, currency string) string {
	amount := MajorFromMinor(minor).StringFixed(minorUnitExponent)
	if symbol, ok := currencySymbols[strings.ToUpper(currency)]; ok {
		return symbol + amount
	}
	return fmt.Sprintf("%s %s", amount, currency)
}

// MinorFromMajor converts an exact major-unit amount. More than two decimal places is an error, never rounded.
func MinorFromMajor(amount decimal.Decimal) (int64, error) {
	shifted := amount.Shift(minorUnitExponent)
	if !shifted.IsInteger() {
		return 0, fmt.Errorf("amount %s has more than %d decimal places", amount.String(), minorUnitExponent)
	}
	return shifted.IntPart(), nil
}

var (
	minAmountMajor = MajorFromMinor(validation.MinAmountMinor)
	maxAmountMajor = MajorFromMinor(validation.MaxAmountMinor)
)

// ParseAmount parses major-unit user input such as "25.40" into minor units, enforcing 0.01..1,000,000.
func ParseAmount(field, raw string) (int64, *errors.AppError) {
	raw = strings.TrimSpace(strings.ReplaceAll(raw, ",", ""))
	if raw == "" {
		return 0, errors.NewValidationFieldError(field, "Amount is required", errors.ErrCodeInvalidAmount)
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, errors.NewValidationFieldError(field, "Amount must be a number", errors.ErrCodeInvalidAmount)
	}
	return AmountFromDecimal(field, amount)
}

func AmountFromDecimal(field string, amount decimal.Decimal) (int64, *errors.AppError) {
	if amount.LessThan(minAmountMajor) || amount.GreaterThan(maxAmountMajor) {
		return 0, errors.NewValidationFieldError(field, "Amount must be between 0.01 and 1,000,000", errors.ErrCodeInvalidAmount)
	}
	minor, err := MinorFromMajor(amount)
	if err != nil {
		return 0, errors.NewValidationFieldError(field, "Amount must have at most two decimal places", errors.ErrCodeInvalidAmount)
	}
	return minor, nil
}
