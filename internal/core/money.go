package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a user-supplied monetary string into an exact decimal
// rounded half-up to two fractional digits.
//
// Both dot (12.34) and comma (12,34) separators are accepted. Amounts are
// always entered positive; the sign of a transaction is contextual and
// applied by the ledger, never stored.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34
//	ParseAmount("12,345") -> 12.35 (rounds up)
//	ParseAmount("-1")     -> error
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: amount is required", ErrValidation)
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return decimal.Zero, fmt.Errorf("%w: amount must be a plain positive number", ErrValidation)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: malformed amount %q", ErrValidation, s)
	}
	d = d.Round(2)
	if d.Sign() <= 0 {
		return decimal.Zero, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	return d, nil
}

// ValidateAmount checks an already-parsed transaction amount.
func ValidateAmount(d decimal.Decimal) error {
	if d.Sign() <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	return nil
}
