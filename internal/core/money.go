// Package core holds the plan, member and payment records exchanged with the
// savings backend, plus amount parsing and formatting helpers.
//
// Amounts are decimal.Decimal so sums stay exact. Rounding to two decimals
// happens only when an amount is formatted for display.
package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// ParseAmount converts user input into a positive amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators.
// Signs, thousands separators and more than one decimal separator are rejected.
//
// Examples:
//
//	ParseAmount("12.34") -> 12.34, nil
//	ParseAmount("12,34") -> 12.34, nil
//	ParseAmount("0")     -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.Count(s, ".") > 1 {
		return decimal.Zero, ErrInvalidAmount
	}
	for _, r := range s {
		if r != '.' && !unicode.IsDigit(r) {
			return decimal.Zero, ErrInvalidAmount
		}
	}
	if s == "." {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// ParseContribution is like ParseAmount but allows zero and an empty string.
func ParseContribution(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "0" {
		return decimal.Zero, nil
	}
	d, err := ParseAmount(s)
	if err != nil {
		if z, zerr := decimal.NewFromString(strings.ReplaceAll(s, ",", ".")); zerr == nil && z.IsZero() {
			return decimal.Zero, nil
		}
		return decimal.Zero, ErrInvalidContribution
	}
	return d, nil
}

// FormatAmount renders an amount with two decimals and a dollar sign:
// 1234.5 becomes "$1234.50" and -20 becomes "-$20.00".
func FormatAmount(d decimal.Decimal) string {
	if d.IsNegative() {
		return "-$" + d.Neg().StringFixed(2)
	}
	return "$" + d.StringFixed(2)
}
