package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/lib/pq"

	"github.com/joao-fontenele/orderflow-insights/internal/domain"
)

const DefaultQueryTimeout = 5 * time.Second

// Store runs read queries against the shop database. Every call is bounded by
// the configured timeout.
type Store struct {
	db      *sql.DB
	timeout time.Duration
}

func New(db *sql.DB, timeout time.Duration) *Store {
	if timeout <= 0 {
		timeout = DefaultQueryTimeout
	}
	return &Store{db: db, timeout: timeout}
}

func (s *Store) Query(ctx context.Context, query string, args ...any) ([]Row, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify(ctx, err)
	}
	defer func() { _ = rows.Close() }()

	result, err := scanRows(rows)
	if err != nil {
		return nil, classify(ctx, err)
	}
	return result, nil
}

// QueryReadOnly runs a caller-supplied statement inside a READ ONLY
// transaction, so statements that try to write fail in the database.
func (s *Store) QueryReadOnly(ctx context.Context, query string) ([]Row, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, classify(ctx, err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, query)
	if err != nil {
		return nil, classify(ctx, err)
	}

	result, err := scanRows(rows)
	_ = rows.Close()
	if err != nil {
		return nil, classify(ctx, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, classify(ctx, err)
	}
	return result, nil
}

func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		return classify(ctx, err)
	}
	return nil
}

func scanRows(rows *sql.Rows) ([]Row, error) {
	columnTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}

	columns := make([]string, len(columnTypes))
	for i, ct := range columnTypes {
		columns[i] = ct.Name()
	}

	result := []Row{}
	for rows.Next() {
		values := make([]any, len(columns))
		dest := make([]any, len(columns))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		for i, ct := range columnTypes {
			values[i] = normalize(values[i], ct.DatabaseTypeName())
		}
		result = append(result, NewRow(columns, values))
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// normalize converts driver values into JSON-friendly ones: NUMERIC stays a
// number, DATE becomes YYYY-MM-DD and timestamps RFC 3339.
func normalize(v any, databaseType string) any {
	switch val := v.(type) {
	case []byte:
		if databaseType == "NUMERIC" || databaseType == "DECIMAL" {
			return json.Number(val)
		}
		return string(val)
	case time.Time:
		if databaseType == "DATE" {
			return val.Format(time.DateOnly)
		}
		return val.Format(time.RFC3339)
	default:
		return v
	}
}

func classify(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: query timed out: %w", domain.ErrStoreUnavailable, err)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case "08", "57":
			// connection exception, operator intervention (includes query_canceled)
			return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
		}
		return fmt.Errorf("%w: %w", domain.ErrStore, err)
	}

	var netErr net.Error
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) || errors.As(err, &netErr) {
		return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}

	return fmt.Errorf("%w: %w", domain.ErrStore, err)
}
