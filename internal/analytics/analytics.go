// Package analytics answers business questions against the shop database:
// keyword-matched question templates, KPIs, reports, heuristic insights and
// the sales, customer and inventory dashboards.
package analytics

import (
	"context"

	"github.com/joao-fontenele/orderflow-insights/internal/store"
)

// Querier runs a read query and returns its rows in order.
type Querier interface {
	Query(ctx context.Context, query string, args ...any) ([]store.Row, error)
}

func queryOne(ctx context.Context, q Querier, query string, args ...any) (store.Row, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return store.Row{}, err
	}
	if len(rows) == 0 {
		return store.Row{}, nil
	}
	return rows[0], nil
}
