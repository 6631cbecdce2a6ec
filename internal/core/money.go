// Package core provides the budget entry types and amount parsing.
//
// Amounts arrive as text from forms, files and spreadsheets. Parsing is
// lenient: anything that cannot be read as a positive number counts as zero
// and is left out of the diagram rather than reported.
package core

import (
	"errors"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrInvalidAmount = errors.New("invalid amount")

// maxExponent bounds scientific notation so a tiny string cannot expand into
// a huge number.
const maxExponent = 400

// ParseDecimal reads a decimal amount with either a dot (12.34) or a comma
// (12,34) as separator. Signs are accepted; callers decide what to do with
// non-positive values.
//
// Examples:
//
//	ParseDecimal("12.34")  -> 12.34, nil
//	ParseDecimal(" 12,5 ") -> 12.5, nil
//	ParseDecimal("1.2.3")  -> 0, ErrInvalidAmount
func ParseDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	if strings.Count(s, ",") > 0 {
		if strings.Contains(s, ".") || strings.Count(s, ",") > 1 {
			return decimal.Zero, ErrInvalidAmount
		}
		s = strings.ReplaceAll(s, ",", ".")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if e := d.Exponent(); e > maxExponent || e < -maxExponent {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// ParseAmount returns the positive value of s, or 0 when s is empty,
// malformed, zero, negative or too large for a float64.
func ParseAmount(s string) float64 {
	d, err := ParseDecimal(s)
	if err != nil || !d.IsPositive() {
		return 0
	}
	f, _ := d.Float64()
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return 0
	}
	return f
}

// FormatAmount renders v with two decimals, dropping them for whole numbers.
func FormatAmount(v float64) string {
	d := decimal.NewFromFloat(v).Round(2)
	if d.Equal(d.Truncate(0)) {
		return d.StringFixed(0)
	}
	return d.StringFixed(2)
}
