package domain

import "github.com/shopspring/decimal"

// LowStockThreshold is the stock level below which a product is reported as
// low on inventory by KPIs, reports, insights and alerts.
const LowStockThreshold = 10

type Product struct {
	ID       int64               `json:"id"`
	Name     string              `json:"name"`
	Category string              `json:"category"`
	Price    decimal.Decimal     `json:"price"`
	Cost     decimal.NullDecimal `json:"cost"`
	Stock    int                 `json:"stock"`
	Supplier string              `json:"supplier"`
}

// LowStock reports whether the product is under LowStockThreshold.
func (p Product) LowStock() bool {
	return p.Stock < LowStockThreshold
}
