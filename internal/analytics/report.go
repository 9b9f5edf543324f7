package analytics

import (
	"context"
	"fmt"

	"github.com/joao-fontenele/orderflow-insights/internal/domain"
	"github.com/joao-fontenele/orderflow-insights/internal/store"
)

type ReportType string

const (
	ReportSales     ReportType = "sales"
	ReportCustomers ReportType = "customers"
	ReportProducts  ReportType = "products"
)

var ReportTypes = []ReportType{ReportSales, ReportCustomers, ReportProducts}

const (
	salesBreakdownQuery = `
		SELECT o.order_date AS date,
		       COUNT(*) AS orders_count,
		       SUM(o.total_amount) AS daily_revenue,
		       ROUND(AVG(o.total_amount), 2) AS avg_order_value
		FROM orders o
		WHERE o.status IN ('completed', 'shipped')
		GROUP BY o.order_date
		ORDER BY date DESC
	`

	salesSummaryQuery = `
		SELECT SUM(total_amount) AS total_revenue,
		       COUNT(*) AS total_orders,
		       ROUND(AVG(total_amount), 2) AS avg_order_value
		FROM orders
		WHERE status IN ('completed', 'shipped')
	`

	customersBreakdownQuery = `
		SELECT country,
		       COUNT(*) AS customer_count,
		       COUNT(*) FILTER (WHERE is_active) AS active_count
		FROM users
		GROUP BY country
		ORDER BY customer_count DESC, country
	`

	customersSummaryQuery = `
		SELECT COUNT(*) AS total_customers,
		       COUNT(*) FILTER (WHERE is_active) AS active_customers
		FROM users
	`

	productsBreakdownQuery = `
		SELECT category,
		       COUNT(*) AS product_count,
		       ROUND(AVG(price), 2) AS avg_price,
		       SUM(stock) AS total_stock
		FROM products
		GROUP BY category
		ORDER BY product_count DESC, category
	`

	productsSummaryQuery = `
		SELECT COUNT(*) AS total_products,
		       COUNT(*) FILTER (WHERE stock < $1) AS low_stock_count,
		       ROUND(AVG(price), 2) AS avg_price
		FROM products
	`
)

type reportQueries struct {
	title     string
	summary   string
	breakdown string
	args      []any
}

var reports = map[ReportType]reportQueries{
	ReportSales: {
		title:     "Sales Report",
		summary:   salesSummaryQuery,
		breakdown: salesBreakdownQuery,
	},
	ReportCustomers: {
		title:     "Customer Report",
		summary:   customersSummaryQuery,
		breakdown: customersBreakdownQuery,
	},
	ReportProducts: {
		title:     "Product Report",
		summary:   productsSummaryQuery,
		breakdown: productsBreakdownQuery,
		args:      []any{domain.LowStockThreshold},
	},
}

// Report has the same shape for every report type. Period is a label chosen
// by the caller; the queries always cover the whole history.
type Report struct {
	ReportType ReportType  `json:"report_type"`
	Title      string      `json:"title"`
	Period     string      `json:"period"`
	Summary    store.Row   `json:"summary"`
	Breakdown  []store.Row `json:"breakdown"`
}

type ReportGenerator struct {
	q Querier
}

func NewReportGenerator(q Querier) *ReportGenerator {
	return &ReportGenerator{q: q}
}

func (g *ReportGenerator) Generate(ctx context.Context, reportType ReportType, period string) (Report, error) {
	queries, ok := reports[reportType]
	if !ok {
		return Report{}, fmt.Errorf("%w: unknown report type %q (expected one of %v)", domain.ErrInvalidArgument, reportType, ReportTypes)
	}

	breakdown, err := g.q.Query(ctx, queries.breakdown)
	if err != nil {
		return Report{}, fmt.Errorf("%s breakdown: %w", reportType, err)
	}

	summary, err := g.q.Query(ctx, queries.summary, queries.args...)
	if err != nil {
		return Report{}, fmt.Errorf("%s summary: %w", reportType, err)
	}
	if len(summary) != 1 {
		return Report{}, fmt.Errorf("%s summary: %w: expected one row, got %d", reportType, domain.ErrStore, len(summary))
	}

	return Report{
		ReportType: reportType,
		Title:      queries.title,
		Period:     period,
		Summary:    summary[0],
		Breakdown:  breakdown,
	}, nil
}
