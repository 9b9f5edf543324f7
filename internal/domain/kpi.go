package domain

// KPIs is one consistent snapshot of the business indicators.
// OrdersPerCustomer is nil unless both CompletedOrders and ActiveCustomers are
// non-zero.
type KPIs struct {
	ActiveCustomers   int64  `json:"active_customers"`
	CompletedOrders   int64  `json:"completed_orders"`
	TotalRevenue      Money  `json:"total_revenue"`
	AvgOrderValue     Money  `json:"avg_order_value"`
	TotalProducts     int64  `json:"total_products"`
	LowStockProducts  int64  `json:"low_stock_products"`
	OrdersPerCustomer *Money `json:"orders_per_customer,omitempty"`
}
