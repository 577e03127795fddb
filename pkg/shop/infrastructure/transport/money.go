package transport

import "github.com/shopspring/decimal"

// money is written as a plain JSON number with two decimals.
type money decimal.Decimal

func (m money) MarshalJSON() ([]byte, error) {
	return []byte(decimal.Decimal(m).StringFixed(2)), nil
}

func (m *money) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return err
	}
	*m = money(d)
	return nil
}

func (m money) Decimal() decimal.Decimal {
	return decimal.Decimal(m)
}
