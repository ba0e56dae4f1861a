// Package types provides common type aliases and helpers.
package types

import (
	"github.com/shopspring/decimal"
)

// Money represents a monetary value with full precision.
// Uses decimal.Decimal to avoid floating-point drift in ledger math.
type Money = decimal.Decimal

// NewMoney creates a Money value from a float.
// Prefer MustMoney / NewMoneyFromString for exact values.
func NewMoney(f float64) Money {
	return decimal.NewFromFloat(f)
}

// NewMoneyFromString creates a Money value from a string.
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

// ZeroMoney returns the zero Money value.
func ZeroMoney() Money {
	return decimal.Zero
}

// MaxMoney returns the larger of two Money values.
func MaxMoney(a, b Money) Money {
	if a.GreaterThan(b) {
		return a
	}
	return b
}

// ClampNonNegative floors a Money value at zero.
func ClampNonNegative(m Money) Money {
	if m.IsNegative() {
		return decimal.Zero
	}
	return m
}

// Quantity is a measured amount (litres, pieces). Same decimal backing as
// Money so quantity*price products stay exact.
type Quantity = decimal.Decimal

// NewQuantity creates a Quantity from a float.
func NewQuantity(f float64) Quantity {
	return decimal.NewFromFloat(f)
}

// MustQuantity creates a Quantity from a string, panics on error.
func MustQuantity(s string) Quantity {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}
