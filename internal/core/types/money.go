// Package types provides common type aliases and utilities.
package types

import (
	"github.com/shopspring/decimal"
)

// Money represents a monetary value with full precision.
// Uses decimal.Decimal to avoid floating-point errors in invoice totals.
type Money = decimal.Decimal

// NewMoney creates a Money value from a float.
// WARNING: Use NewMoneyFromString for precise values.
func NewMoney(f float64) Money {
	return decimal.NewFromFloat(f)
}

// NewMoneyFromString creates a Money value from a string.
// This is the preferred method for monetary values.
func NewMoneyFromString(s string) (Money, error) {
	return decimal.NewFromString(s)
}

// MustMoney creates a Money value from a string, panics on error.
// Use only for constants and tests.
func MustMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Zero returns zero Money value.
func Zero() Money {
	return decimal.Zero
}

// Rate is a percentage expressed in whole percent units (21 means 21%).
// Kept as decimal so fractional rates (e.g. 7.5) survive intact.
type Rate = decimal.Decimal

// NewRate creates a Rate from a float percentage.
func NewRate(f float64) Rate {
	return decimal.NewFromFloat(f)
}

// MustRate creates a Rate from a string, panics on error.
func MustRate(s string) Rate {
	return MustMoney(s)
}

var hundred = decimal.NewFromInt(100)

// PercentOf returns amount × rate / 100 without intermediate rounding.
// All invoice math goes through this helper so the order of operations
// stays uniform across call sites.
func PercentOf(amount Money, rate Rate) Money {
	return amount.Mul(rate).Div(hundred)
}

// RoundMoney rounds to 2 decimal places, half away from zero.
// Applied only at presentation/persistence boundaries, never mid-calculation.
func RoundMoney(m Money) Money {
	return m.Round(2)
}
