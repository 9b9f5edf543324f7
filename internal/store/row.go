package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// Row is one result row: column names with their values, in the order the
// query selected them. It encodes as a JSON object that keeps that order.
type Row struct {
	columns []string
	values  []any
}

func NewRow(columns []string, values []any) Row {
	return Row{columns: columns, values: values}
}

func (r Row) Columns() []string {
	return r.columns
}

// Value returns the value of column, or nil when the row has no such column.
func (r Row) Value(column string) any {
	for i, c := range r.columns {
		if c == column {
			return r.values[i]
		}
	}
	return nil
}

func (r Row) Int64(column string) (int64, error) {
	switch v := r.Value(column).(type) {
	case nil:
		return 0, nil
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case json.Number:
		return v.Int64()
	case string:
		return strconv.ParseInt(v, 10, 64)
	default:
		return 0, fmt.Errorf("column %s: unexpected type %T", column, v)
	}
}

// Decimal returns the column as a decimal; SQL NULL yields an invalid value.
func (r Row) Decimal(column string) (decimal.NullDecimal, error) {
	var (
		d   decimal.Decimal
		err error
	)
	switch v := r.Value(column).(type) {
	case nil:
		return decimal.NullDecimal{}, nil
	case int64:
		d = decimal.NewFromInt(v)
	case int:
		d = decimal.NewFromInt(int64(v))
	case float64:
		d = decimal.NewFromFloat(v)
	case json.Number:
		d, err = decimal.NewFromString(v.String())
	case string:
		d, err = decimal.NewFromString(v)
	default:
		err = fmt.Errorf("unexpected type %T", v)
	}
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("column %s: %w", column, err)
	}
	return decimal.NewNullDecimal(d), nil
}

func (r Row) Bool(column string) (bool, error) {
	switch v := r.Value(column).(type) {
	case nil:
		return false, nil
	case bool:
		return v, nil
	case string:
		return strconv.ParseBool(v)
	default:
		return false, fmt.Errorf("column %s: unexpected type %T", column, v)
	}
}

func (r Row) String(column string) string {
	switch v := r.Value(column).(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, column := range r.columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(column)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(r.values[i])
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", column, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
