package types

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// ParseAmount parses a decimal amount string. Negative and malformed
// amounts are rejected.
func ParseAmount(amount string) (decimal.Decimal, error) {
	if amount == "" {
		return decimal.Zero, fmt.Errorf("amount cannot be empty")
	}

	dec, err := decimal.NewFromString(amount)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount format: %w", err)
	}

	if dec.IsNegative() {
		return decimal.Zero, fmt.Errorf("amount cannot be negative")
	}

	return dec, nil
}

// AmountToUnits converts a decimal amount string to the token's smallest
// unit, e.g. "1.5" with 6 decimals becomes 1500000.
func AmountToUnits(amount string, decimals int) (*big.Int, error) {
	dec, err := ParseAmount(amount)
	if err != nil {
		return nil, err
	}

	multiplier := decimal.NewFromBigInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil), 0)
	return dec.Mul(multiplier).BigInt(), nil
}

// UnitsToAmount formats a smallest-unit value back to a decimal string.
func UnitsToAmount(units *big.Int, decimals int) string {
	return decimal.NewFromBigInt(units, -int32(decimals)).String()
}
