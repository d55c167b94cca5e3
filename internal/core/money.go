// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts from user input
// and from imported files. Amounts are exact decimals; floats are only used
// for display ratios.
package core

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrInvalidAmount = errors.New("invalid amount")

// Amounts travel as JSON numbers, the same shape the seed and export
// documents use.
func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// ParseAmount parses a non-negative amount with at most two decimals.
//
// The accepted grammar is the form rule AmountRule: no sign, no leading
// zeros, optional fraction of one or two digits.
//
// Examples:
//
//	ParseAmount("12.34") -> 12.34, nil
//	ParseAmount("0")     -> 0, nil
//	ParseAmount("012")   -> error
//	ParseAmount("1.234") -> error
func ParseAmount(s string) (decimal.Decimal, error) {
	if !AmountRule.MatchString(s) {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// ParseSignedAmount parses an amount from an imported row, where the sign
// carries the transaction direction.
func ParseSignedAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// Percentage returns 100*part/whole, or 0 when whole is not positive.
func Percentage(part, whole decimal.Decimal) float64 {
	if !whole.IsPositive() {
		return 0
	}
	return part.Mul(decimal.NewFromInt(100)).Div(whole).InexactFloat64()
}
