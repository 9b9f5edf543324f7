package analytics

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/orderflow-insights/internal/domain"
	"github.com/joao-fontenele/orderflow-insights/internal/store"
)

// One statement, one snapshot: every sub-select sees the same database state.
const kpiQuery = `
	SELECT
		(SELECT COUNT(*) FROM users WHERE is_active = true) AS active_customers,
		(SELECT COUNT(*) FROM orders WHERE status = 'completed') AS completed_orders,
		(SELECT SUM(total_amount) FROM orders WHERE status = 'completed') AS total_revenue,
		(SELECT ROUND(AVG(total_amount), 2) FROM orders WHERE status = 'completed') AS avg_order_value,
		(SELECT COUNT(*) FROM products) AS total_products,
		(SELECT COUNT(*) FROM products WHERE stock < $1) AS low_stock_products
`

type KPIAggregator struct {
	q Querier
}

func NewKPIAggregator(q Querier) *KPIAggregator {
	return &KPIAggregator{q: q}
}

func (a *KPIAggregator) Compute(ctx context.Context) (domain.KPIs, error) {
	rows, err := a.q.Query(ctx, kpiQuery, domain.LowStockThreshold)
	if err != nil {
		return domain.KPIs{}, fmt.Errorf("compute kpis: %w", err)
	}
	if len(rows) != 1 {
		return domain.KPIs{}, fmt.Errorf("compute kpis: %w: expected one row, got %d", domain.ErrStore, len(rows))
	}

	kpis, err := kpisFromRow(rows[0])
	if err != nil {
		return domain.KPIs{}, fmt.Errorf("compute kpis: %w: %w", domain.ErrStore, err)
	}
	return kpis, nil
}

func kpisFromRow(row store.Row) (domain.KPIs, error) {
	var (
		kpis domain.KPIs
		err  error
	)

	if kpis.ActiveCustomers, err = row.Int64("active_customers"); err != nil {
		return kpis, err
	}
	if kpis.CompletedOrders, err = row.Int64("completed_orders"); err != nil {
		return kpis, err
	}
	if kpis.TotalProducts, err = row.Int64("total_products"); err != nil {
		return kpis, err
	}
	if kpis.LowStockProducts, err = row.Int64("low_stock_products"); err != nil {
		return kpis, err
	}
	if kpis.TotalRevenue.NullDecimal, err = row.Decimal("total_revenue"); err != nil {
		return kpis, err
	}
	if kpis.AvgOrderValue.NullDecimal, err = row.Decimal("avg_order_value"); err != nil {
		return kpis, err
	}

	kpis.OrdersPerCustomer = ordersPerCustomer(kpis.CompletedOrders, kpis.ActiveCustomers)
	return kpis, nil
}

// ordersPerCustomer divides exactly and rounds to two places, half away from
// zero (0.125 -> 0.13). It is nil when either count is zero.
func ordersPerCustomer(completedOrders, activeCustomers int64) *domain.Money {
	if completedOrders == 0 || activeCustomers == 0 {
		return nil
	}
	ratio := decimal.NewFromInt(completedOrders).
		Div(decimal.NewFromInt(activeCustomers)).
		Round(2)
	m := domain.NewMoney(ratio)
	return &m
}
