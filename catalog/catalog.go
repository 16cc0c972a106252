// Package catalog holds the fixed set of items a checkout session sells.
package catalog

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/vitwit/checkout/types"
)

// Catalog is immutable once built.
type Catalog struct {
	items []types.CatalogItem
	total decimal.Decimal
}

// New validates the items and precomputes the reference total.
func New(items ...types.CatalogItem) (*Catalog, error) {
	seen := make(map[int]struct{}, len(items))
	total := decimal.Zero

	for _, item := range items {
		if _, dup := seen[item.ID]; dup {
			return nil, &types.CheckoutError{
				Code:    types.ErrConfigError,
				Message: fmt.Sprintf("duplicate catalog item id %d", item.ID),
			}
		}
		seen[item.ID] = struct{}{}

		if item.UnitPrice.IsNegative() {
			return nil, &types.CheckoutError{
				Code:    types.ErrConfigError,
				Message: fmt.Sprintf("catalog item %d has a negative price", item.ID),
			}
		}
		total = total.Add(item.UnitPrice)
	}

	return &Catalog{
		items: append([]types.CatalogItem(nil), items...),
		total: total,
	}, nil
}

// MustNew is New for catalogs defined at process start.
func MustNew(items ...types.CatalogItem) *Catalog {
	c, err := New(items...)
	if err != nil {
		panic(err)
	}
	return c
}

// Items returns a copy of the catalog items.
func (c *Catalog) Items() []types.CatalogItem {
	return append([]types.CatalogItem(nil), c.items...)
}

// TotalReferencePrice is the exact sum of all unit prices.
func (c *Catalog) TotalReferencePrice() decimal.Decimal {
	return c.total
}

func (c *Catalog) Len() int {
	return len(c.items)
}
