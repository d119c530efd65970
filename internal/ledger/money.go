package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// minorDigits is the number of decimal places carried by an Amount.
const minorDigits = 2

// Amount is a monetary value in minor units (cents).
type Amount int64

// MaxAmount is the largest single amount accepted from input, 10 trillion in
// major units. Sums of thousands of such amounts still fit in an int64.
const MaxAmount Amount = 1_000_000_000_000_000

// AmountFromDecimal converts a decimal in major units into minor units.
// Negative values and values with more than two decimal places are rejected,
// as is anything above MaxAmount.
func AmountFromDecimal(d decimal.Decimal) (Amount, error) {
	if d.IsNegative() {
		return 0, fmt.Errorf("amount %s must not be negative", d.String())
	}
	shifted := d.Shift(minorDigits)
	if !shifted.Equal(shifted.Truncate(0)) {
		return 0, fmt.Errorf("amount %s has more than %d decimal places", d.String(), minorDigits)
	}
	if shifted.GreaterThan(decimal.NewFromInt(int64(MaxAmount))) {
		return 0, fmt.Errorf("amount %s exceeds the maximum of %s", d.String(), MaxAmount)
	}
	return Amount(shifted.IntPart()), nil
}

// AmountFromFloat converts a floating-point major-unit value, rounding half away
// from zero to the nearest minor unit. Only used for records written before
// money was stored as integers.
func AmountFromFloat(f float64) Amount {
	return Amount(decimal.NewFromFloat(f).Round(minorDigits).Shift(minorDigits).IntPart())
}

// Decimal returns the amount in major units.
func (a Amount) Decimal() decimal.Decimal {
	return decimal.New(int64(a), -minorDigits)
}

// Float64 returns the amount in major units as a float.
func (a Amount) Float64() float64 {
	return a.Decimal().InexactFloat64()
}

func (a Amount) String() string {
	return a.Decimal().StringFixed(minorDigits)
}

// Abs returns the absolute value of a.
func (a Amount) Abs() Amount {
	if a < 0 {
		return -a
	}
	return a
}

// TolerancePolicy decides when two totals are close enough to count as balanced.
// Minor is an exclusive bound in minor units: a difference is balanced when it
// is strictly below Minor. A Minor of zero or less demands exact equality.
type TolerancePolicy struct {
	Minor Amount
}

// DefaultTolerance is 0.01 in major units. With integer minor units it only
// accepts an exact match.
var DefaultTolerance = TolerancePolicy{Minor: 1}

// Balanced reports whether diff is inside the tolerance.
func (p TolerancePolicy) Balanced(diff Amount) bool {
	diff = diff.Abs()
	if p.Minor <= 0 {
		return diff == 0
	}
	return diff < p.Minor
}
