// Package catalog describes the fixed shop schema: the tables the service
// knows about, their columns as the database reports them, and row counts.
package catalog

import (
	"context"
	"fmt"
	"slices"

	"github.com/joao-fontenele/orderflow-insights/internal/domain"
	"github.com/joao-fontenele/orderflow-insights/internal/store"
)

// Tables lists the tables of the shop schema.
var Tables = []string{"users", "products", "orders", "order_items"}

const (
	tableSchemaQuery = `
		SELECT c.ordinal_position::int AS ordinal,
		       c.column_name::text AS name,
		       c.data_type::text AS type,
		       c.is_nullable::text = 'YES' AS nullable,
		       c.column_default::text AS "default",
		       EXISTS (
		           SELECT 1
		           FROM information_schema.table_constraints tc
		           JOIN information_schema.key_column_usage k
		             ON k.constraint_schema = tc.constraint_schema
		            AND k.constraint_name = tc.constraint_name
		           WHERE tc.constraint_type = 'PRIMARY KEY'
		             AND tc.table_schema = c.table_schema
		             AND tc.table_name = c.table_name
		             AND k.column_name = c.column_name
		       ) AS primary_key
		FROM information_schema.columns c
		WHERE c.table_schema = current_schema()
		  AND c.table_name = $1
		ORDER BY c.ordinal_position
	`

	statsQuery = `
		SELECT (SELECT COUNT(*) FROM users) AS users,
		       (SELECT COUNT(*) FROM products) AS products,
		       (SELECT COUNT(*) FROM orders) AS orders,
		       (SELECT COUNT(*) FROM order_items) AS order_items
	`
)

type Querier interface {
	Query(ctx context.Context, query string, args ...any) ([]store.Row, error)
}

type Column struct {
	Ordinal    int64   `json:"ordinal"`
	Name       string  `json:"name"`
	Type       string  `json:"type"`
	Nullable   bool    `json:"nullable"`
	Default    *string `json:"default"`
	PrimaryKey bool    `json:"primary_key"`
}

type TableStats struct {
	RowCount int64 `json:"row_count"`
}

type Stats struct {
	Tables map[string]TableStats `json:"tables"`
}

type Catalog struct {
	q Querier
}

func New(q Querier) *Catalog {
	return &Catalog{q: q}
}

// TableSchema describes the columns of table. Names outside Tables are
// rejected before any query runs.
func (c *Catalog) TableSchema(ctx context.Context, table string) ([]Column, error) {
	if !slices.Contains(Tables, table) {
		return nil, fmt.Errorf("%w: table '%s' does not exist", domain.ErrNotFound, table)
	}

	rows, err := c.q.Query(ctx, tableSchemaQuery, table)
	if err != nil {
		return nil, fmt.Errorf("describe %s: %w", table, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: table '%s' does not exist", domain.ErrNotFound, table)
	}

	columns := make([]Column, 0, len(rows))
	for _, row := range rows {
		col, err := columnFromRow(row)
		if err != nil {
			return nil, fmt.Errorf("describe %s: %w: %w", table, domain.ErrStore, err)
		}
		columns = append(columns, col)
	}
	return columns, nil
}

func columnFromRow(row store.Row) (Column, error) {
	var (
		col Column
		err error
	)
	if col.Ordinal, err = row.Int64("ordinal"); err != nil {
		return col, err
	}
	if col.Nullable, err = row.Bool("nullable"); err != nil {
		return col, err
	}
	if col.PrimaryKey, err = row.Bool("primary_key"); err != nil {
		return col, err
	}
	col.Name = row.String("name")
	col.Type = row.String("type")
	if row.Value("default") != nil {
		def := row.String("default")
		col.Default = &def
	}
	return col, nil
}

// DatabaseStats counts the rows of every table in one statement.
func (c *Catalog) DatabaseStats(ctx context.Context) (Stats, error) {
	rows, err := c.q.Query(ctx, statsQuery)
	if err != nil {
		return Stats{}, fmt.Errorf("database stats: %w", err)
	}
	if len(rows) != 1 {
		return Stats{}, fmt.Errorf("database stats: %w: expected one row, got %d", domain.ErrStore, len(rows))
	}

	stats := Stats{Tables: make(map[string]TableStats, len(Tables))}
	for _, table := range Tables {
		count, err := rows[0].Int64(table)
		if err != nil {
			return Stats{}, fmt.Errorf("database stats: %w: %w", domain.ErrStore, err)
		}
		stats.Tables[table] = TableStats{RowCount: count}
	}
	return stats, nil
}
