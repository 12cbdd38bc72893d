// Package money holds the exact-decimal amount rules for the payment ledger.
// Amounts never travel through binary floating point; every sum and comparison
// uses decimal values so that report totals stay cent-exact across thousands
// of rows.
package money

import (
	"errors"

	"github.com/shopspring/decimal"
)

// Scale is the number of decimal digits an amount may carry.
const Scale = 2

// MaxAmount is the inclusive upper bound for a single payment.
var MaxAmount = decimal.RequireFromString("999999.99")

// Amount validation failures, each a distinct mode.
var (
	ErrAmountInvalid     = errors.New("money: amount is not a valid decimal")
	ErrAmountNotPositive = errors.New("money: amount must be greater than zero")
	ErrAmountTooLarge    = errors.New("money: amount exceeds 999999.99")
	ErrAmountPrecision   = errors.New("money: amount may carry at most 2 decimal places")
)

// Zero is the canonical zero amount at ledger scale.
func Zero() decimal.Decimal {
	return decimal.Zero
}

// ValidateAmount checks the ledger amount invariant: 0 < amount <= 999999.99
// with at most two decimal places.
func ValidateAmount(d decimal.Decimal) error {
	if d.Sign() <= 0 {
		return ErrAmountNotPositive
	}
	if d.GreaterThan(MaxAmount) {
		return ErrAmountTooLarge
	}
	if d.Exponent() < -Scale && !d.Equal(d.Truncate(Scale)) {
		return ErrAmountPrecision
	}
	return nil
}

// ParseAmount parses a decimal string and validates it as a ledger amount.
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, ErrAmountInvalid
	}
	if err := ValidateAmount(d); err != nil {
		return decimal.Decimal{}, err
	}
	return d, nil
}
