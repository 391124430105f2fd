// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing signed monetary amounts from
// strings and converting between cents and decimal representations.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

var maxCents = decimal.NewFromInt(1<<63 - 1)

// ParseAmount converts a signed decimal string to Money with half-up rounding.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and an
// optional leading sign. Zero, malformed input and values that do not fit in
// int64 cents are rejected with ErrInvalidAmount.
//
// Examples:
//
//	ParseAmount("12.34")   -> 1234
//	ParseAmount("-12,34")  -> -1234
//	ParseAmount("12.345")  -> 1235 (rounds half away from zero)
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	return FromDecimal(d)
}

// FromDecimal converts a decimal amount to Money, rounding to cents.
func FromDecimal(d decimal.Decimal) (Money, error) {
	cents := d.Round(2).Shift(2)
	if cents.Abs().GreaterThan(maxCents) {
		return Money{}, ErrInvalidAmount
	}
	m := Money{Cents: cents.IntPart()}
	if m.Cents == 0 {
		return Money{}, ErrInvalidAmount
	}
	return m, nil
}

// Decimal returns the amount in currency units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// String formats the amount with two decimals, e.g. "-12.30".
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// Abs returns the unsigned amount.
func (m Money) Abs() Money {
	if m.Cents < 0 {
		return Money{Cents: -m.Cents}
	}
	return m
}
