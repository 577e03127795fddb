package model

import "github.com/shopspring/decimal"

var (
	// TaxRate is the sales tax (IGV) applied to catalog prices.
	TaxRate = decimal.RequireFromString("0.18")

	taxMultiplier = decimal.NewFromInt(1).Add(TaxRate)
)

// PriceWithTax returns the tax-inclusive price rounded to cents.
func PriceWithTax(price decimal.Decimal) decimal.Decimal {
	return price.Mul(taxMultiplier).Round(2)
}

// WholeCents reports whether amount fits the two decimal places money is
// stored and served with.
func WholeCents(amount decimal.Decimal) bool {
	return amount.Equal(amount.Round(2))
}

func TaxOf(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(TaxRate).Round(2)
}

func LineTotal(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}
