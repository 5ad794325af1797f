// Package core provides amount parsing and formatting utilities.
//
// This file contains the conversions between user text, stored values and
// decimal amounts.
package core

import (
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// ParseAmount converts user text into a positive decimal amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and
// surrounding whitespace. Signs, exponents, thousands separators, zero,
// blank input and amounts a float64 cannot hold as a positive finite value
// are rejected with ErrInvalidAmount.
//
// Examples:
//
//	ParseAmount("12.50")  -> 12.5, nil
//	ParseAmount("12,50")  -> 12.5, nil
//	ParseAmount("0")      -> 0, ErrInvalidAmount
//	ParseAmount("abc")    -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return decimal.Zero, ErrInvalidAmount
	}
	digits := 0
	for _, p := range parts {
		for _, r := range p {
			if !unicode.IsDigit(r) {
				return decimal.Zero, ErrInvalidAmount
			}
			digits++
		}
	}
	if digits == 0 {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !storableAmount(d) {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// storableAmount reports whether d is positive and stays positive and
// finite once stored as a float64 REAL.
func storableAmount(d decimal.Decimal) bool {
	if !d.IsPositive() {
		return false
	}
	f := d.InexactFloat64()
	return f > 0 && !math.IsInf(f, 0)
}

// AmountFromStored decodes an amount column value. SQLite columns are
// dynamically typed, so externally edited rows may hold text or NULL.
// Anything that is not a finite number decodes to zero with ok=false.
func AmountFromStored(v any) (amount decimal.Decimal, ok bool) {
	switch val := v.(type) {
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return decimal.Zero, false
		}
		return decimal.NewFromFloat(val), true
	case int64:
		return decimal.NewFromInt(val), true
	case int:
		return decimal.NewFromInt(int64(val)), true
	case decimal.Decimal:
		return val, true
	case []byte:
		return amountFromText(string(val))
	case string:
		return amountFromText(val)
	default:
		return decimal.Zero, false
	}
}

func amountFromText(s string) (decimal.Decimal, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(strconv.FormatFloat(f, 'f', -1, 64))
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// FormatAmount renders an amount with two decimals for display, e.g. "$12.50".
func FormatAmount(d decimal.Decimal) string {
	if d.IsNegative() {
		return "-$" + d.Neg().StringFixed(2)
	}
	return "$" + d.StringFixed(2)
}
