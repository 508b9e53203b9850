// Package money holds the decimal helpers shared by the ledger, budget and
// goal calculations. Every amount in the system is a decimal.Decimal with two
// fractional digits; floats never take part in accumulation.
package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits kept for stored amounts.
const Scale = 2

// Zero is the zero amount.
var Zero = decimal.Zero

// Round rounds d half away from zero to Scale fractional digits.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Scale)
}

// NonNegative returns max(0, d).
func NonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// ratioPlaces is the precision of Ratio. The quotient is truncated so a value
// just below a threshold never lands on it.
const ratioPlaces = 6

// Ratio returns num/den truncated to six places and capped at 1, or 0 when den
// is not positive.
func Ratio(num, den decimal.Decimal) decimal.Decimal {
	if !den.IsPositive() {
		return decimal.Zero
	}
	r, _ := num.QuoRem(den, ratioPlaces)
	if r.GreaterThan(decimal.NewFromInt(1)) {
		return decimal.NewFromInt(1)
	}
	if r.IsNegative() {
		return decimal.Zero
	}
	return r
}

// Sum adds all values.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

// WithinTolerance reports whether |a - b| <= tolerance.
func WithinTolerance(a, b, tolerance decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(tolerance)
}

// Parse parses a user supplied amount. Both "." and "," are accepted as the
// decimal separator; more than Scale fractional digits is rejected.
func Parse(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if !d.Equal(Round(d)) {
		return decimal.Zero, fmt.Errorf("amount %q has more than %d decimal places", s, Scale)
	}
	return d, nil
}
