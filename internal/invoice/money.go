package invoice

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ToMinor converts an amount already rounded to places into integer minor units.
// Amounts carrying more precision than places are rejected instead of truncated.
func ToMinor(amount decimal.Decimal, places int32) (int64, error) {
	scaled := amount.Shift(places)
	if !scaled.Equal(scaled.Truncate(0)) {
		return 0, fmt.Errorf("amount %s has more than %d decimal places", amount.String(), places)
	}
	if !scaled.BigInt().IsInt64() {
		return 0, fmt.Errorf("amount %s overflows minor units", amount.String())
	}
	return scaled.IntPart(), nil
}

// FromMinor converts integer minor units back into a decimal amount.
func FromMinor(minor int64, places int32) decimal.Decimal {
	return decimal.New(minor, -places)
}
