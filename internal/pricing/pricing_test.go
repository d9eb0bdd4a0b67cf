package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal {
	v, _ := decimal.NewFromString(s)
	return v
}

func TestLineTotal(t *testing.T) {
	t.Run("BaseOnly", func(t *testing.T) {
		total := LineTotal(d("50.00"), decimal.Zero, nil, 2)
		assert.True(t, total.Equal(d("100.00")), "got %s", total)
	})

	t.Run("WithVariantAndAddons", func(t *testing.T) {
		total := LineTotal(d("50.00"), d("15.50"), []decimal.Decimal{d("10.00"), d("5.25")}, 3)
		// (50 + 15.50 + 10 + 5.25) * 3 = 242.25
		assert.True(t, total.Equal(d("242.25")), "got %s", total)
	})

	t.Run("NoFloatDrift", func(t *testing.T) {
		// 0.1 + 0.2 style values that break binary floats
		total := LineTotal(d("0.10"), d("0.20"), nil, 3)
		assert.True(t, total.Equal(d("0.90")), "got %s", total)
	})
}

func TestTotal(t *testing.T) {
	lines := []Line{
		{BasePrice: d("50.00"), AddonPrices: []decimal.Decimal{d("10.00")}, Quantity: 2},
		{BasePrice: d("30.00"), Quantity: 1},
	}
	// (50+10)*2 + 30 = 150
	total := Total(lines)
	assert.True(t, total.Equal(d("150.00")), "got %s", total)
}

func TestTotal_Empty(t *testing.T) {
	assert.True(t, Total(nil).IsZero())
}
