// Package money holds the fixed-point helpers shared by the ledger and the
// amortization engine. All rounding is HALF_UP (ties away from zero), which is
// what decimal.Round and decimal.DivRound implement.
package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// CurrencyScale is the number of decimal places carried by balances and
// currency figures.
const CurrencyScale int32 = 2

// Parse reads a decimal amount from its string form.
func Parse(raw string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return decimal.Zero, fmt.Errorf("amount is required")
	}

	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, fmt.Errorf("amount must be numeric: %w", err)
	}
	return d, nil
}

// RoundHalfUp rounds d to places decimal places.
func RoundHalfUp(d decimal.Decimal, places int32) decimal.Decimal {
	return d.Round(places)
}

// DivHalfUp divides a by b and rounds the quotient to places decimal places.
// The rounding decision uses the exact remainder. b must not be zero.
func DivHalfUp(a, b decimal.Decimal, places int32) decimal.Decimal {
	return a.DivRound(b, places)
}

// Currency rounds d to CurrencyScale.
func Currency(d decimal.Decimal) decimal.Decimal {
	return d.Round(CurrencyScale)
}

// HasCurrencyScale reports whether d carries no digits beyond CurrencyScale.
func HasCurrencyScale(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(CurrencyScale))
}

// IsPositiveAmount reports whether d is a valid posting amount: strictly
// positive and representable at CurrencyScale.
func IsPositiveAmount(d decimal.Decimal) bool {
	return d.GreaterThan(decimal.Zero) && HasCurrencyScale(d)
}

// PowInt raises base to the n-th power exactly, by repeated squaring.
// Non-positive n yields 1.
func PowInt(base decimal.Decimal, n int) decimal.Decimal {
	result := decimal.NewFromInt(1)
	for n > 0 {
		if n&1 == 1 {
			result = result.Mul(base)
		}
		n >>= 1
		if n > 0 {
			base = base.Mul(base)
		}
	}
	return result
}

// Format renders d at CurrencyScale.
func Format(d decimal.Decimal) string {
	return d.StringFixed(CurrencyScale)
}
