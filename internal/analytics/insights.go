package analytics

import (
	"context"
	"fmt"

	"github.com/joao-fontenele/orderflow-insights/internal/domain"
)

type FocusArea string

const (
	FocusSales     FocusArea = "sales"
	FocusCustomers FocusArea = "customers"
	FocusProducts  FocusArea = "products"
	FocusAll       FocusArea = "all"
)

var FocusAreas = []FocusArea{FocusSales, FocusCustomers, FocusProducts, FocusAll}

const (
	mostProfitableProductQuery = `
		SELECT p.name,
		       SUM((p.price - p.cost) * oi.quantity) AS total_profit
		FROM products p
		JOIN order_items oi ON p.id = oi.product_id
		JOIN orders o ON oi.order_id = o.id AND o.status = 'completed'
		WHERE p.cost IS NOT NULL AND p.cost > 0
		GROUP BY p.id, p.name
		ORDER BY total_profit DESC, p.id
		LIMIT 1
	`

	topActiveCountryQuery = `
		SELECT country, COUNT(*) AS customer_count
		FROM users
		WHERE is_active = true AND country IS NOT NULL
		GROUP BY country
		ORDER BY customer_count DESC, country COLLATE "C"
		LIMIT 1
	`

	lowStockCountQuery = `
		SELECT COUNT(*) AS low_stock_count
		FROM products
		WHERE stock < $1
	`

	unsoldProductsCountQuery = `
		SELECT COUNT(*) AS no_sales_count
		FROM products p
		WHERE NOT EXISTS (SELECT 1 FROM order_items oi WHERE oi.product_id = p.id)
	`
)

// A heuristic returns one finding, or "" when it has nothing to report.
type heuristic func(ctx context.Context, q Querier) (string, error)

// Areas in the order "all" runs them; heuristics within an area run in order.
var heuristics = []struct {
	area   FocusArea
	checks []heuristic
}{
	{FocusSales, []heuristic{mostProfitableProduct}},
	{FocusCustomers, []heuristic{topActiveCountry}},
	{FocusProducts, []heuristic{lowStockProducts, unsoldProducts}},
}

type InsightEngine struct {
	q Querier
}

func NewInsightEngine(q Querier) *InsightEngine {
	return &InsightEngine{q: q}
}

// Find runs the heuristics of area and returns one line per finding. When
// nothing triggers it returns a single line saying the area looks healthy.
func (e *InsightEngine) Find(ctx context.Context, area FocusArea) ([]string, error) {
	if !validFocusArea(area) {
		return nil, fmt.Errorf("%w: unknown focus area %q (expected one of %v)", domain.ErrInvalidArgument, area, FocusAreas)
	}

	insights := []string{}
	for _, group := range heuristics {
		if area != FocusAll && area != group.area {
			continue
		}
		for _, check := range group.checks {
			finding, err := check(ctx, e.q)
			if err != nil {
				return nil, fmt.Errorf("%s insights: %w", group.area, err)
			}
			if finding != "" {
				insights = append(insights, finding)
			}
		}
	}

	if len(insights) == 0 {
		insights = append(insights, fmt.Sprintf("Everything looks healthy in %s", area))
	}
	return insights, nil
}

func validFocusArea(area FocusArea) bool {
	for _, a := range FocusAreas {
		if a == area {
			return true
		}
	}
	return false
}

func mostProfitableProduct(ctx context.Context, q Querier) (string, error) {
	row, err := queryOne(ctx, q, mostProfitableProductQuery)
	if err != nil {
		return "", err
	}
	profit, err := row.Decimal("total_profit")
	if err != nil {
		return "", err
	}
	if !profit.Valid || !profit.Decimal.IsPositive() {
		return "", nil
	}
	return fmt.Sprintf("Most profitable product: %s with $%s in total profit", row.String("name"), profit.Decimal.StringFixed(2)), nil
}

func topActiveCountry(ctx context.Context, q Querier) (string, error) {
	row, err := queryOne(ctx, q, topActiveCountryQuery)
	if err != nil {
		return "", err
	}
	count, err := row.Int64("customer_count")
	if err != nil {
		return "", err
	}
	if count == 0 {
		return "", nil
	}
	return fmt.Sprintf("Country with most active customers: %s (%d customers)", row.String("country"), count), nil
}

func lowStockProducts(ctx context.Context, q Querier) (string, error) {
	row, err := queryOne(ctx, q, lowStockCountQuery, domain.LowStockThreshold)
	if err != nil {
		return "", err
	}
	count, err := row.Int64("low_stock_count")
	if err != nil || count == 0 {
		return "", err
	}
	return fmt.Sprintf("Alert: %d products have low inventory (< %d units)", count, domain.LowStockThreshold), nil
}

func unsoldProducts(ctx context.Context, q Querier) (string, error) {
	row, err := queryOne(ctx, q, unsoldProductsCountQuery)
	if err != nil {
		return "", err
	}
	count, err := row.Int64("no_sales_count")
	if err != nil || count == 0 {
		return "", err
	}
	return fmt.Sprintf("%d products have not had any sales yet", count), nil
}
