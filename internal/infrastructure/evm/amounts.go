package evm

import (
	"math/big"

	"github.com/shopspring/decimal"
	"github.com/swaplink-labs/swaplink/internal/core/domain"
)

// toRawAmount converts a human-readable amount to the token's base units.
// The conversion is exact; amounts with more fractional digits than the
// token supports are rejected rather than rounded.
func toRawAmount(value string, decimals uint8) (*big.Int, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return nil, domain.Validationf("invalid amount %q", value)
	}
	if d.Sign() <= 0 {
		return nil, domain.Validationf("amount %q must be positive", value)
	}
	shifted := d.Shift(int32(decimals))
	if !shifted.IsInteger() {
		return nil, domain.Validationf("amount %q has more than %d decimal places", value, decimals)
	}
	return shifted.BigInt(), nil
}

// toHumanAmount is the exact inverse of toRawAmount.
func toHumanAmount(raw *big.Int, decimals uint8) string {
	return decimal.NewFromBigInt(raw, -int32(decimals)).String()
}
