package analytics

import (
	"context"
	"fmt"

	"github.com/joao-fontenele/orderflow-insights/internal/domain"
	"github.com/joao-fontenele/orderflow-insights/internal/store"
)

const (
	salesAnalyticsSummaryQuery = `
		SELECT COUNT(*) AS total_orders,
		       SUM(total_amount) AS total_revenue,
		       ROUND(AVG(total_amount), 2) AS avg_order_value,
		       COUNT(DISTINCT user_id) AS unique_customers
		FROM orders
		WHERE status = 'completed'
	`

	salesByCategoryQuery = `
		SELECT p.category,
		       COUNT(oi.id) AS items_sold,
		       SUM(oi.quantity * oi.unit_price) AS category_revenue
		FROM products p
		JOIN order_items oi ON p.id = oi.product_id
		JOIN orders o ON oi.order_id = o.id
		WHERE o.status = 'completed'
		GROUP BY p.category
		ORDER BY category_revenue DESC, p.category
	`

	topCustomersQuery = `
		SELECT u.name, u.country,
		       COUNT(o.id) AS order_count,
		       COALESCE(SUM(o.total_amount), 0) AS lifetime_value
		FROM users u
		LEFT JOIN orders o ON u.id = o.user_id AND o.status = 'completed'
		WHERE u.is_active = true
		GROUP BY u.id
		ORDER BY lifetime_value DESC, u.id
		LIMIT 3
	`

	activeCustomersByCountryQuery = `
		SELECT country, COUNT(*) AS customer_count
		FROM users
		WHERE is_active = true
		GROUP BY country
		ORDER BY customer_count DESC, country
	`

	lowStockProductsQuery = `
		SELECT name, category, stock, supplier,
		       CASE WHEN cost IS NOT NULL THEN price - cost END AS profit_margin
		FROM products
		WHERE stock < $1
		ORDER BY stock ASC, id
	`

	unsoldProductsQuery = `
		SELECT p.name, p.category, p.stock
		FROM products p
		WHERE NOT EXISTS (SELECT 1 FROM order_items oi WHERE oi.product_id = p.id)
		ORDER BY p.id
	`
)

type SalesAnalytics struct {
	Period     string      `json:"period"`
	Summary    store.Row   `json:"summary"`
	ByCategory []store.Row `json:"by_category"`
}

type CustomerInsights struct {
	TopCustomers          []store.Row `json:"top_customers"`
	DistributionByCountry []store.Row `json:"distribution_by_country"`
}

type InventoryAlerts struct {
	LowStockProducts     []store.Row `json:"low_stock_products"`
	ProductsWithoutSales []store.Row `json:"products_without_sales"`
}

// Dashboards serves the fixed sales, customer and inventory views.
type Dashboards struct {
	q Querier
}

func NewDashboards(q Querier) *Dashboards {
	return &Dashboards{q: q}
}

// SalesAnalytics summarizes completed orders. Like reports, period is only a
// label.
func (d *Dashboards) SalesAnalytics(ctx context.Context, period string) (SalesAnalytics, error) {
	summary, err := queryOne(ctx, d.q, salesAnalyticsSummaryQuery)
	if err != nil {
		return SalesAnalytics{}, fmt.Errorf("sales analytics summary: %w", err)
	}

	byCategory, err := d.q.Query(ctx, salesByCategoryQuery)
	if err != nil {
		return SalesAnalytics{}, fmt.Errorf("sales by category: %w", err)
	}

	return SalesAnalytics{Period: period, Summary: summary, ByCategory: byCategory}, nil
}

func (d *Dashboards) CustomerInsights(ctx context.Context) (CustomerInsights, error) {
	top, err := d.q.Query(ctx, topCustomersQuery)
	if err != nil {
		return CustomerInsights{}, fmt.Errorf("top customers: %w", err)
	}

	byCountry, err := d.q.Query(ctx, activeCustomersByCountryQuery)
	if err != nil {
		return CustomerInsights{}, fmt.Errorf("customers by country: %w", err)
	}

	return CustomerInsights{TopCustomers: top, DistributionByCountry: byCountry}, nil
}

func (d *Dashboards) InventoryAlerts(ctx context.Context) (InventoryAlerts, error) {
	lowStock, err := d.q.Query(ctx, lowStockProductsQuery, domain.LowStockThreshold)
	if err != nil {
		return InventoryAlerts{}, fmt.Errorf("low stock products: %w", err)
	}

	unsold, err := d.q.Query(ctx, unsoldProductsQuery)
	if err != nil {
		return InventoryAlerts{}, fmt.Errorf("products without sales: %w", err)
	}

	return InventoryAlerts{LowStockProducts: lowStock, ProductsWithoutSales: unsold}, nil
}
