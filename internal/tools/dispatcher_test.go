package tools

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joao-fontenele/orderflow-insights/internal/domain"
	"github.com/joao-fontenele/orderflow-insights/internal/store"
)

// stubBackend answers every query with the same rows.
type stubBackend struct {
	rows          []store.Row
	err           error
	queries       []string
	readOnlyCalls int
}

func (s *stubBackend) Query(_ context.Context, query string, _ ...any) ([]store.Row, error) {
	s.queries = append(s.queries, query)
	return s.rows, s.err
}

func (s *stubBackend) QueryReadOnly(_ context.Context, query string) ([]store.Row, error) {
	s.readOnlyCalls++
	s.queries = append(s.queries, query)
	return s.rows, s.err
}

func newTestDispatcher(t *testing.T, backend Backend) *Dispatcher {
	t.Helper()
	d, err := NewDispatcher(backend, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return d
}

func TestDispatcher_Call(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown tool is an error result", func(t *testing.T) {
		backend := &stubBackend{}
		result := newTestDispatcher(t, backend).Call(ctx, "drop_everything", nil)

		assert.True(t, result.IsError)
		assert.True(t, strings.HasPrefix(result.Text, "Error: "))
		assert.Contains(t, result.Text, "drop_everything")
		assert.Empty(t, backend.queries)
	})

	t.Run("unrecognized question lists the keywords", func(t *testing.T) {
		backend := &stubBackend{}
		result := newTestDispatcher(t, backend).Call(ctx, ToolAskBusinessQuestion, Args{"question": "what is the weather?"})

		assert.True(t, result.IsError)
		assert.Contains(t, result.Text, "question not recognized")
		assert.Contains(t, result.Text, "best customers")
		assert.Empty(t, backend.queries)
	})

	t.Run("recognized question renders its rows", func(t *testing.T) {
		backend := &stubBackend{rows: []store.Row{
			store.NewRow([]string{"name", "total_spent"}, []any{"Ana", json.Number("2500.00")}),
		}}
		result := newTestDispatcher(t, backend).Call(ctx, ToolAskBusinessQuestion, Args{"question": "Who are my BEST CUSTOMERS?"})

		require.False(t, result.IsError, result.Text)
		assert.True(t, strings.HasPrefix(result.Text, "Answer to: 'Who are my BEST CUSTOMERS?'\n\n"))
		assert.Contains(t, result.Text, `"name": "Ana"`)
		assert.Contains(t, result.Text, `"total_spent": 2500.00`)
	})

	t.Run("non-string argument is rejected", func(t *testing.T) {
		result := newTestDispatcher(t, &stubBackend{}).Call(ctx, ToolAskBusinessQuestion, Args{"question": 42})

		assert.True(t, result.IsError)
		assert.Contains(t, result.Text, "invalid argument")
	})

	t.Run("kpis", func(t *testing.T) {
		backend := &stubBackend{rows: []store.Row{store.NewRow(
			[]string{"active_customers", "completed_orders", "total_revenue", "avg_order_value", "total_products", "low_stock_products"},
			[]any{int64(1), int64(1), json.Number("100.00"), json.Number("100.00"), int64(1), int64(0)},
		)}}
		result := newTestDispatcher(t, backend).Call(ctx, ToolGetKPIs, nil)

		require.False(t, result.IsError, result.Text)
		assert.True(t, strings.HasPrefix(result.Text, "Business KPIs:\n\n"))
		assert.Contains(t, result.Text, `"total_revenue": 100`)
		assert.Contains(t, result.Text, `"orders_per_customer": 1`)
	})

	t.Run("unknown report type", func(t *testing.T) {
		backend := &stubBackend{}
		result := newTestDispatcher(t, backend).Call(ctx, ToolGenerateBusinessReport, Args{"report_type": "weather"})

		assert.True(t, result.IsError)
		assert.Contains(t, result.Text, "unknown report type")
		assert.Empty(t, backend.queries)
	})

	t.Run("unknown focus area", func(t *testing.T) {
		result := newTestDispatcher(t, &stubBackend{}).Call(ctx, ToolFindInsights, Args{"focus_area": "weather"})

		assert.True(t, result.IsError)
		assert.Contains(t, result.Text, "invalid argument")
	})

	t.Run("store failure is an error result", func(t *testing.T) {
		backend := &stubBackend{err: domain.ErrStoreUnavailable}
		result := newTestDispatcher(t, backend).Call(ctx, ToolGetDatabaseStats, nil)

		assert.True(t, result.IsError)
		assert.Contains(t, result.Text, "store unavailable")
	})

	t.Run("unknown table", func(t *testing.T) {
		backend := &stubBackend{}
		result := newTestDispatcher(t, backend).Call(ctx, ToolGetTableSchema, Args{"table_name": "secrets"})

		assert.True(t, result.IsError)
		assert.Equal(t, "Error: not found: table 'secrets' does not exist", result.Text)
		assert.Empty(t, backend.queries)
	})
}

func TestDispatcher_ExecuteQuery(t *testing.T) {
	ctx := context.Background()

	rejected := []string{
		"UPDATE products SET stock = 0",
		"DELETE FROM users",
		"  drop table orders",
		"WITH x AS (DELETE FROM users RETURNING *) SELECT * FROM x",
		"",
	}
	for _, query := range rejected {
		t.Run("rejects "+query, func(t *testing.T) {
			backend := &stubBackend{}
			result := newTestDispatcher(t, backend).Call(ctx, ToolExecuteQuery, Args{"query": query})

			assert.True(t, result.IsError)
			assert.Equal(t, "Error: only SELECT queries are allowed", result.Text)
			assert.Empty(t, backend.queries)
		})
	}

	t.Run("runs select statements in a read-only transaction", func(t *testing.T) {
		backend := &stubBackend{rows: []store.Row{store.NewRow([]string{"?column?"}, []any{int64(1)})}}
		result := newTestDispatcher(t, backend).Call(ctx, ToolExecuteQuery, Args{"query": "  select 1  "})

		require.False(t, result.IsError, result.Text)
		assert.Equal(t, 1, backend.readOnlyCalls)
		assert.Equal(t, []string{"select 1"}, backend.queries)
		assert.Equal(t, "Query executed successfully.\nResults:\n\n[\n  {\n    \"?column?\": 1\n  }\n]", result.Text)
	})

	t.Run("read-only violation surfaces as a store error", func(t *testing.T) {
		backend := &stubBackend{err: errors.Join(domain.ErrStore, errors.New("cannot execute UPDATE in a read-only transaction"))}
		result := newTestDispatcher(t, backend).Call(ctx, ToolExecuteQuery, Args{"query": "SELECT set_config('x', 'y', false)"})

		assert.True(t, result.IsError)
		assert.Contains(t, result.Text, "read-only transaction")
	})
}

func TestArgs_String(t *testing.T) {
	args := Args{"present": "value", "empty": "", "null": nil, "number": 3.5}

	v, err := args.String("present", "fallback")
	require.NoError(t, err)
	assert.Equal(t, "value", v)

	for _, key := range []string{"empty", "null", "missing"} {
		v, err := args.String(key, "fallback")
		require.NoError(t, err)
		assert.Equal(t, "fallback", v, key)
	}

	_, err = args.String("number", "fallback")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}
