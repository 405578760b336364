// Package amount converts between human token amounts and smallest-unit
// integer amounts using fixed-point string arithmetic. Amounts never pass
// through float64, so high-decimal tokens keep full precision.
package amount

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Parse validates a human-entered amount string. It rejects empty,
// non-numeric and non-positive values.
func Parse(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("amount is empty")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("amount must be greater than 0")
	}
	return d, nil
}

// ToSmallestUnit converts a human amount to the token's smallest integer
// unit, truncating precision beyond the token's decimals. The result is a
// plain integer string, never scientific notation.
func ToSmallestUnit(human decimal.Decimal, decimals int32) decimal.Decimal {
	return human.Shift(decimals).Truncate(0)
}

// FromSmallestUnit converts a smallest-unit integer amount back to human
// units.
func FromSmallestUnit(raw decimal.Decimal, decimals int32) decimal.Decimal {
	return raw.Shift(-decimals)
}

// Rate returns out/in in human units, or zero when in is not positive.
func Rate(in, out decimal.Decimal) decimal.Decimal {
	if !in.IsPositive() {
		return decimal.Zero
	}
	return out.DivRound(in, 18)
}
