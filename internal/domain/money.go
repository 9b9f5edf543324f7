package domain

import "github.com/shopspring/decimal"

// Money is a nullable amount that encodes as a JSON number, or null when the
// value is unknown (for example revenue with no completed orders).
type Money struct {
	decimal.NullDecimal
}

func NewMoney(d decimal.Decimal) Money {
	return Money{decimal.NewNullDecimal(d)}
}

func (m Money) MarshalJSON() ([]byte, error) {
	if !m.Valid {
		return []byte("null"), nil
	}
	return []byte(m.Decimal.String()), nil
}
