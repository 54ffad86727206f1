// Package core provides money parsing and handling utilities.
//
// Amounts are carried as integer cents. Conversions from floats and decimal
// strings round half away from zero to the nearest cent.
package core

import (
	"bytes"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is an amount of currency in cents.
type Money struct {
	Cents int64
}

// MaxCents is the largest accepted magnitude: one trillion units.
const MaxCents int64 = 100_000_000_000_000

var maxCentsDecimal = decimal.NewFromInt(MaxCents)

// FromFloat converts a float amount (as returned by JSON decoders and the
// language model) to cents. Non-finite and out-of-range values yield zero,
// which fails Validate.
func FromFloat(f float64) Money {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Money{}
	}
	m, err := fromDecimal(decimal.NewFromFloat(f))
	if err != nil {
		return Money{}
	}
	return m
}

// Dollars builds Money from whole units and cents, mostly for tests and literals.
func Dollars(units, cents int64) Money {
	return Money{Cents: units*100 + cents}
}

func toCents(d decimal.Decimal) decimal.Decimal {
	return d.Round(2).Shift(2)
}

// fromDecimal rounds d to cents, rejecting magnitudes above MaxCents.
func fromDecimal(d decimal.Decimal) (Money, error) {
	c := toCents(d)
	if c.Abs().GreaterThan(maxCentsDecimal) {
		return Money{}, ErrInvalidAmount
	}
	return Money{Cents: c.IntPart()}, nil
}

// ParseAmount converts a decimal string to Money.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and an
// optional leading "$". Zero and negative values parse; callers validate.
//
// Examples:
//
//	ParseAmount("12.34")  -> 1234
//	ParseAmount("$12,34") -> 1234
//	ParseAmount("12.345") -> 1235 (rounds half away from zero)
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.Count(s, ".") > 1 {
		return Money{}, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	return fromDecimal(d)
}

// Validate reports whether the amount is strictly positive and within
// MaxCents.
func (m Money) Validate() error {
	if m.Cents <= 0 || m.Cents > MaxCents {
		return ErrInvalidAmount
	}
	return nil
}

// Float returns the amount as a float64 for display and approximate comparison.
// Use cents for arithmetic.
func (m Money) Float() float64 {
	return m.decimal().InexactFloat64()
}

// String formats the amount with exactly two decimals, e.g. "12.50".
func (m Money) String() string {
	return m.decimal().StringFixed(2)
}

// Add returns m + o.
func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }

// Sub returns m - o.
func (m Money) Sub(o Money) Money { return Money{Cents: m.Cents - o.Cents} }

// DivRound divides the amount by n and rounds to cents.
func (m Money) DivRound(n int64) Money {
	if n == 0 {
		return Money{}
	}
	return Money{Cents: toCents(m.decimal().Div(decimal.NewFromInt(n))).IntPart()}
}

// Percent returns m as a percentage of total, rounded to two decimals.
// A zero total yields 0.
func (m Money) Percent(total Money) float64 {
	if total.Cents == 0 {
		return 0
	}
	return decimal.NewFromInt(m.Cents).
		Div(decimal.NewFromInt(total.Cents)).
		Mul(decimal.NewFromInt(100)).
		Round(2).
		InexactFloat64()
}

func (m Money) decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// MarshalJSON encodes the amount as a JSON number with two decimals.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts a JSON number or a numeric string.
func (m *Money) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*m = Money{}
		return nil
	}
	if len(b) > 1 && b[0] == '"' {
		v, err := ParseAmount(string(b[1 : len(b)-1]))
		if err != nil {
			return err
		}
		*m = v
		return nil
	}
	d, err := decimal.NewFromString(string(b))
	if err != nil {
		return ErrInvalidAmount
	}
	v, err := fromDecimal(d)
	if err != nil {
		return err
	}
	*m = v
	return nil
}
