package domain

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoney_MarshalJSON(t *testing.T) {
	t.Run("encodes known amounts as numbers", func(t *testing.T) {
		data, err := json.Marshal(NewMoney(decimal.RequireFromString("2749.97")))
		require.NoError(t, err)
		assert.Equal(t, "2749.97", string(data))
	})

	t.Run("encodes unknown amounts as null", func(t *testing.T) {
		data, err := json.Marshal(Money{})
		require.NoError(t, err)
		assert.Equal(t, "null", string(data))
	})

	t.Run("decodes numbers and null", func(t *testing.T) {
		var kpis KPIs
		require.NoError(t, json.Unmarshal([]byte(`{"total_revenue":100.5,"avg_order_value":null}`), &kpis))
		assert.True(t, kpis.TotalRevenue.Valid)
		assert.True(t, kpis.TotalRevenue.Decimal.Equal(decimal.RequireFromString("100.5")))
		assert.False(t, kpis.AvgOrderValue.Valid)
		assert.Nil(t, kpis.OrdersPerCustomer)
	})
}

func TestKPIs_OrdersPerCustomerOmittedWhenAbsent(t *testing.T) {
	data, err := json.Marshal(KPIs{})
	require.NoError(t, err)
	assert.NotContains(t, string(data), "orders_per_customer")

	ratio := NewMoney(decimal.RequireFromString("1.5"))
	data, err = json.Marshal(KPIs{OrdersPerCustomer: &ratio})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"orders_per_customer":1.5`)
}

func TestErrorKind(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{&NoMatchError{Keywords: []string{"best customers"}}, "no_match"},
		{ErrInvalidArgument, "invalid_argument"},
		{ErrNotFound, "not_found"},
		{ErrRejectedQuery, "rejected_query"},
		{ErrStore, "store_error"},
		{ErrStoreUnavailable, "store_unavailable"},
		{assert.AnError, "internal"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ErrorKind(tc.err))
	}
}

func TestNoMatchError_ListsKeywords(t *testing.T) {
	err := &NoMatchError{Keywords: []string{"best customers", "low inventory"}}
	assert.ErrorIs(t, err, ErrNoMatch)
	assert.Equal(t, "question not recognized. Try: best customers, low inventory", err.Error())
}

func TestOrderItem_Subtotal(t *testing.T) {
	item := OrderItem{Quantity: 3, UnitPrice: decimal.RequireFromString("89.99")}
	assert.True(t, item.Subtotal().Equal(decimal.RequireFromString("269.97")))
}
