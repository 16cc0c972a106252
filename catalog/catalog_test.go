package catalog

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitwit/checkout/types"
)

func item(id int, price string) types.CatalogItem {
	return types.CatalogItem{ID: id, Name: "item", UnitPrice: decimal.RequireFromString(price)}
}

func TestTotalReferencePrice(t *testing.T) {
	tests := []struct {
		name   string
		prices []string
		want   string
	}{
		{"empty", nil, "0"},
		{"whole", []string{"10", "5"}, "15"},
		{"tenths", []string{"0.1", "0.2"}, "0.3"},
		{"many fractions", []string{"19.99", "0.01", "4.995", "0.005"}, "25"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := make([]types.CatalogItem, len(tt.prices))
			for i, p := range tt.prices {
				items[i] = item(i+1, p)
			}

			c, err := New(items...)
			require.NoError(t, err)
			assert.True(t, c.TotalReferencePrice().Equal(decimal.RequireFromString(tt.want)),
				"got %s want %s", c.TotalReferencePrice(), tt.want)
		})
	}
}

func TestNewRejectsInvalidItems(t *testing.T) {
	_, err := New(item(1, "1"), item(1, "2"))
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrConfigError))

	_, err = New(item(1, "-1"))
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrConfigError))
}

func TestItemsReturnsCopy(t *testing.T) {
	c := MustNew(item(1, "10"))
	items := c.Items()
	items[0].Name = "changed"

	assert.Equal(t, "item", c.Items()[0].Name)
	assert.Equal(t, 1, c.Len())
}
