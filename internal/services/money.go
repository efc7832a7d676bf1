package services

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// MoneyPlaces is the number of fractional digits every amount carries.
const MoneyPlaces = 2

// validateAmount checks that amount is positive and has at most two
// fractional digits. The returned value is normalised to two places.
func validateAmount(field string, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s must be greater than zero", ErrValidation, field)
	}
	if !amount.Equal(amount.Round(MoneyPlaces)) {
		return decimal.Zero, fmt.Errorf("%w: %s must have at most %d decimal places", ErrValidation, field, MoneyPlaces)
	}
	return amount.Round(MoneyPlaces), nil
}

// Money formats an amount with two fractional digits.
func Money(d decimal.Decimal) string {
	return d.StringFixed(MoneyPlaces)
}
