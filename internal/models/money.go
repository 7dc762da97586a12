package models

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// AmountScale is the number of fractional digits money carries.
const AmountScale = 2

// MaxAmountExponent bounds the decimal exponent an amount may carry. Rescaling
// to a wider exponent costs time and memory proportional to its size.
const MaxAmountExponent = 18

var (
	ErrMalformedAmount = errors.New("amount is not a decimal number")
	ErrAmountPrecision = errors.New("amount has more than two decimal places")
	ErrAmountRange     = errors.New("amount exponent is out of range")
)

// ParseAmount parses a boundary amount string. Binary floats never enter the core.
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, ErrMalformedAmount
	}
	if !InAmountRange(d) {
		return decimal.Zero, ErrAmountRange
	}
	if !HasMoneyScale(d) {
		return decimal.Zero, ErrAmountPrecision
	}
	return d, nil
}

// InAmountRange reports whether d's exponent is within MaxAmountExponent. It
// only reads the exponent, so it is safe on untrusted input.
func InAmountRange(d decimal.Decimal) bool {
	exp := d.Exponent()
	return exp >= -MaxAmountExponent && exp <= MaxAmountExponent
}

// HasMoneyScale reports whether d has no digits beyond AmountScale. Amounts
// outside InAmountRange never do.
func HasMoneyScale(d decimal.Decimal) bool {
	if !InAmountRange(d) {
		return false
	}
	return d.Equal(d.Truncate(AmountScale))
}

// FormatAmount renders d with exactly two decimals, e.g. "50.00".
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(AmountScale)
}
