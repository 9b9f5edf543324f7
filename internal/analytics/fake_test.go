package analytics

import (
	"context"

	"github.com/joao-fontenele/orderflow-insights/internal/store"
)

type fakeCall struct {
	query string
	args  []any
}

// fakeQuerier answers queries from canned results keyed by the exact SQL text.
// Queries without a canned result return no rows.
type fakeQuerier struct {
	results map[string][]store.Row
	errs    map[string]error
	calls   []fakeCall
}

func newFakeQuerier() *fakeQuerier {
	return &fakeQuerier{
		results: map[string][]store.Row{},
		errs:    map[string]error{},
	}
}

func (f *fakeQuerier) on(query string, rows ...store.Row) *fakeQuerier {
	f.results[query] = rows
	return f
}

func (f *fakeQuerier) fail(query string, err error) *fakeQuerier {
	f.errs[query] = err
	return f
}

func (f *fakeQuerier) Query(_ context.Context, query string, args ...any) ([]store.Row, error) {
	f.calls = append(f.calls, fakeCall{query: query, args: args})
	if err, ok := f.errs[query]; ok {
		return nil, err
	}
	return f.results[query], nil
}

// row builds a store.Row from alternating column names and values.
func row(kv ...any) store.Row {
	columns := make([]string, 0, len(kv)/2)
	values := make([]any, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		columns = append(columns, kv[i].(string))
		values = append(values, kv[i+1])
	}
	return store.NewRow(columns, values)
}
