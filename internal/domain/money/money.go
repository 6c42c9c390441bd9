// Package money provides the fixed-point currency amount and bounded
// percentage value types used by all pricing and payment calculations.
//
// Amounts are stored as integer minor units (thebe, cents) to keep
// arithmetic exact; shopspring/decimal is used only at the edges for
// parsing, formatting, and NUMERIC column interop.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// minorUnitExponent is the number of decimal places in a minor unit.
// All supported currencies (BWP, ZAR, USD, ...) use two.
const minorUnitExponent = 2

// CurrencyMismatchError is returned when arithmetic is attempted across
// two different currency codes.
type CurrencyMismatchError struct {
	A, B string
}

func (e *CurrencyMismatchError) Error() string {
	return fmt.Sprintf("currency mismatch: %s vs %s", e.A, e.B)
}

// Money is an immutable fixed-point amount in a single currency.
// The zero value is 0 units of the empty currency; operations on it
// adopt the other operand's currency.
type Money struct {
	amount   int64  // minor units
	currency string // ISO 4217 code
}

// New returns a Money of the given minor units and currency code.
func New(minorUnits int64, currency string) Money {
	return Money{amount: minorUnits, currency: currency}
}

// Zero returns a zero amount in the given currency.
func Zero(currency string) Money {
	return Money{currency: currency}
}

// FromDecimal converts a major-unit decimal (e.g. "199.99") into Money,
// rounding half up to the nearest minor unit.
func FromDecimal(d decimal.Decimal, currency string) Money {
	return Money{
		amount:   d.Shift(minorUnitExponent).Round(0).IntPart(),
		currency: currency,
	}
}

// MinorUnits returns the raw amount in minor units.
func (m Money) MinorUnits() int64 { return m.amount }

// Currency returns the ISO 4217 currency code.
func (m Money) Currency() string { return m.currency }

// Decimal returns the amount in major units as a decimal.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.amount, -minorUnitExponent)
}

// IsZero reports whether the amount is exactly zero.
func (m Money) IsZero() bool { return m.amount == 0 }

// IsNegative reports whether the amount is below zero.
func (m Money) IsNegative() bool { return m.amount < 0 }

// IsPositive reports whether the amount is above zero.
func (m Money) IsPositive() bool { return m.amount > 0 }

// Add returns m + other. Adding across currencies returns a
// CurrencyMismatchError; a zero-currency operand adopts the other's code.
func (m Money) Add(other Money) (Money, error) {
	cur, err := m.matchCurrency(other)
	if err != nil {
		return Money{}, err
	}
	return Money{amount: m.amount + other.amount, currency: cur}, nil
}

// Sub returns m - other, with the same currency rules as Add.
func (m Money) Sub(other Money) (Money, error) {
	cur, err := m.matchCurrency(other)
	if err != nil {
		return Money{}, err
	}
	return Money{amount: m.amount - other.amount, currency: cur}, nil
}

// MulInt returns m multiplied by an integer factor (e.g. a line quantity).
func (m Money) MulInt(n int64) Money {
	return Money{amount: m.amount * n, currency: m.currency}
}

// PercentOf returns p percent of m, rounded half up on minor units.
// This is the single rounding rule for all payment allocation amounts.
func (m Money) PercentOf(p Percentage) Money {
	raw := m.amount * int64(p)
	var amount int64
	if raw >= 0 {
		amount = (raw + 50) / 100
	} else {
		amount = (raw - 50) / 100
	}
	return Money{amount: amount, currency: m.currency}
}

// ClampZero returns m, or zero when m is negative.
func (m Money) ClampZero() Money {
	if m.amount < 0 {
		return Money{currency: m.currency}
	}
	return m
}

// Min returns the smaller of m and other. Both must share a currency;
// mismatches return a CurrencyMismatchError.
func (m Money) Min(other Money) (Money, error) {
	cur, err := m.matchCurrency(other)
	if err != nil {
		return Money{}, err
	}
	if other.amount < m.amount {
		return Money{amount: other.amount, currency: cur}, nil
	}
	return Money{amount: m.amount, currency: cur}, nil
}

// Cmp compares m against other: -1 if m < other, 0 if equal, +1 if greater.
// Comparing across currencies returns a CurrencyMismatchError.
func (m Money) Cmp(other Money) (int, error) {
	if _, err := m.matchCurrency(other); err != nil {
		return 0, err
	}
	switch {
	case m.amount < other.amount:
		return -1, nil
	case m.amount > other.amount:
		return 1, nil
	default:
		return 0, nil
	}
}

// Equal reports whether m and other have the same amount and currency.
func (m Money) Equal(other Money) bool {
	return m.amount == other.amount && m.currency == other.currency
}

// String formats the amount as "<CODE> <major units>", e.g. "BWP 180.00".
func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.currency, m.Decimal().StringFixed(minorUnitExponent))
}

func (m Money) matchCurrency(other Money) (string, error) {
	switch {
	case m.currency == other.currency:
		return m.currency, nil
	case m.currency == "":
		return other.currency, nil
	case other.currency == "":
		return m.currency, nil
	default:
		return "", &CurrencyMismatchError{A: m.currency, B: other.currency}
	}
}
