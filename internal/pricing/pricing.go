package pricing

import "github.com/shopspring/decimal"

// Line is one priced basket/order line: a menu item with an optional variant,
// zero or more addons, and a quantity.
type Line struct {
	BasePrice    decimal.Decimal
	VariantPrice decimal.Decimal
	AddonPrices  []decimal.Decimal
	Quantity     int
}

// LineTotal computes (base + variant + sum(addons)) * quantity, rounded to
// two decimal places.
func LineTotal(base, variant decimal.Decimal, addons []decimal.Decimal, quantity int) decimal.Decimal {
	unit := base.Add(variant)
	for _, a := range addons {
		unit = unit.Add(a)
	}
	return unit.Mul(decimal.NewFromInt(int64(quantity))).Round(2)
}

// Total computes the sum of all line totals.
func Total(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(LineTotal(l.BasePrice, l.VariantPrice, l.AddonPrices, l.Quantity))
	}
	return total.Round(2)
}
