// Package pricing converts the reference-currency total into a token quantity.
package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/vitwit/checkout/types"
)

// QuantityPrecision is the number of fractional digits kept by the division.
const QuantityPrecision int32 = 18

// ComputeRequiredQuantity returns total * balance / referencePrice.
//
// ReferencePrice is the value of the whole held balance, not a unit price, so
// the result depends on the holder's balance as well as the market price.
func ComputeRequiredQuantity(total decimal.Decimal, asset types.AssetRecord) (decimal.Decimal, error) {
	if !asset.HasValuation() {
		return decimal.Zero, &types.CheckoutError{
			Code:    types.ErrValuationUnavailable,
			Message: fmt.Sprintf("no reference price for asset %s", asset.Mint),
			Data:    types.ExtraData{"mint": asset.Mint, "symbol": asset.Symbol},
		}
	}

	return total.Mul(asset.Balance).DivRound(*asset.ReferencePrice, QuantityPrecision), nil
}

// Select builds a fresh SelectedAsset for asset.
func Select(total decimal.Decimal, asset types.AssetRecord) (*types.SelectedAsset, error) {
	qty, err := ComputeRequiredQuantity(total, asset)
	if err != nil {
		return nil, err
	}

	return &types.SelectedAsset{
		Name:             asset.Name,
		Mint:             asset.Mint,
		RequiredQuantity: qty,
	}, nil
}
