package analytics

import (
	"context"
	"fmt"
	"strings"

	"github.com/joao-fontenele/orderflow-insights/internal/domain"
	"github.com/joao-fontenele/orderflow-insights/internal/store"
)

const (
	bestCustomersQuery = `
		SELECT u.name, u.email, u.country,
		       COUNT(o.id) AS total_orders,
		       SUM(o.total_amount) AS total_spent
		FROM users u
		JOIN orders o ON u.id = o.user_id
		WHERE o.status = 'completed'
		GROUP BY u.id
		ORDER BY total_spent DESC, u.id
		LIMIT 5
	`

	topSellingProductsQuery = `
		SELECT p.name, p.category,
		       SUM(oi.quantity) AS total_sold,
		       SUM(oi.quantity * oi.unit_price) AS revenue,
		       p.supplier
		FROM products p
		JOIN order_items oi ON p.id = oi.product_id
		JOIN orders o ON oi.order_id = o.id
		WHERE o.status IN ('completed', 'shipped')
		GROUP BY p.id
		ORDER BY total_sold DESC, p.id
		LIMIT 5
	`

	salesByCountryQuery = `
		SELECT u.country,
		       COUNT(o.id) AS total_orders,
		       SUM(o.total_amount) AS total_revenue,
		       ROUND(AVG(o.total_amount), 2) AS avg_order_value
		FROM users u
		JOIN orders o ON u.id = o.user_id
		WHERE o.status = 'completed'
		GROUP BY u.country
		ORDER BY total_revenue DESC, u.country
	`

	inactiveCustomersQuery = `
		SELECT name, email, country, registration_date
		FROM users
		WHERE is_active = false OR id NOT IN (
			SELECT DISTINCT user_id FROM orders WHERE status = 'completed'
		)
		ORDER BY id
	`

	lowInventoryQuery = `
		SELECT name, category, stock, price, supplier
		FROM products
		WHERE stock < 10
		ORDER BY stock ASC, id
	`
)

// QueryPattern binds a keyword to a fixed, parameter-free query.
type QueryPattern struct {
	Keyword string
	Query   string
}

// DefaultPatterns returns the question registry. Order matters: the first
// keyword contained in a question selects the query.
func DefaultPatterns() []QueryPattern {
	return []QueryPattern{
		{Keyword: "best customers", Query: bestCustomersQuery},
		{Keyword: "top-selling products", Query: topSellingProductsQuery},
		{Keyword: "sales by country", Query: salesByCountryQuery},
		{Keyword: "inactive customers", Query: inactiveCustomersQuery},
		{Keyword: "low inventory", Query: lowInventoryQuery},
		{Keyword: "mejores clientes", Query: bestCustomersQuery},
		{Keyword: "productos más vendidos", Query: topSellingProductsQuery},
		{Keyword: "ventas por país", Query: salesByCountryQuery},
		{Keyword: "clientes inactivos", Query: inactiveCustomersQuery},
		{Keyword: "inventario bajo", Query: lowInventoryQuery},
	}
}

type Answer struct {
	MatchedPattern string      `json:"matched_pattern"`
	Rows           []store.Row `json:"rows"`
}

type QuestionDispatcher struct {
	q        Querier
	patterns []QueryPattern
}

func NewQuestionDispatcher(q Querier, patterns []QueryPattern) *QuestionDispatcher {
	return &QuestionDispatcher{q: q, patterns: patterns}
}

// Keywords lists the registered keywords in registration order.
func (d *QuestionDispatcher) Keywords() []string {
	keywords := make([]string, len(d.patterns))
	for i, p := range d.patterns {
		keywords[i] = p.Keyword
	}
	return keywords
}

// Match returns the first pattern whose keyword occurs in question, ignoring case.
func (d *QuestionDispatcher) Match(question string) (QueryPattern, bool) {
	lower := strings.ToLower(question)
	for _, p := range d.patterns {
		if strings.Contains(lower, strings.ToLower(p.Keyword)) {
			return p, true
		}
	}
	return QueryPattern{}, false
}

// Answer runs the query bound to the first matching keyword. The question is
// only used for matching and never reaches the database.
func (d *QuestionDispatcher) Answer(ctx context.Context, question string) (Answer, error) {
	pattern, ok := d.Match(question)
	if !ok {
		return Answer{}, &domain.NoMatchError{Keywords: d.Keywords()}
	}

	rows, err := d.q.Query(ctx, pattern.Query)
	if err != nil {
		return Answer{}, fmt.Errorf("answer %q: %w", pattern.Keyword, err)
	}

	return Answer{MatchedPattern: pattern.Keyword, Rows: rows}, nil
}
