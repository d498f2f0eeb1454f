// Package money holds the decimal helpers shared by pricing and presentation code.
package money

import "github.com/shopspring/decimal"

// Scale is the number of fractional digits carried by every currency amount.
const Scale = 2

var hundred = decimal.NewFromInt(100)

// Round rounds d to Scale fractional digits, half away from zero.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Scale)
}

// NonNegative clamps d at zero.
func NonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// Percent returns pct percent of d, unrounded.
func Percent(d, pct decimal.Decimal) decimal.Decimal {
	return d.Mul(pct).Div(hundred)
}

// FromMinor converts an amount stored in minor units (pence, cents) to a decimal.
func FromMinor(v int64) decimal.Decimal {
	return decimal.New(v, -Scale)
}

// ToMinor converts d to minor units after rounding.
func ToMinor(d decimal.Decimal) int64 {
	return Round(d).Shift(Scale).IntPart()
}

// Parse reads a decimal amount from its string form.
func Parse(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(s)
}
