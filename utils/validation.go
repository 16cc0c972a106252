package utils

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

// ValidateSolanaAddress checks that address is a base58 encoded 32-byte key.
func ValidateSolanaAddress(address string) error {
	if address == "" {
		return fmt.Errorf("address cannot be empty")
	}

	if _, err := solana.PublicKeyFromBase58(address); err != nil {
		return fmt.Errorf("invalid solana address %q: %w", address, err)
	}

	return nil
}

// DefaultDisplayDecimals is used when an amount's token precision is unknown.
const DefaultDisplayDecimals = 6

// ScaleAmount converts a raw integer amount into token units.
func ScaleAmount(raw decimal.Decimal, decimals int) decimal.Decimal {
	return raw.Shift(-int32(decimals))
}

// FormatAmount renders an amount with at most decimals fractional digits,
// rounded away from zero so the shown amount never understates it.
func FormatAmount(amount decimal.Decimal, decimals int) string {
	return amount.RoundUp(int32(decimals)).String()
}
