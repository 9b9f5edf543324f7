//go:build integration

package test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/orderflow-insights/internal/analytics"
	"github.com/joao-fontenele/orderflow-insights/internal/digest"
	"github.com/joao-fontenele/orderflow-insights/internal/domain"
	"github.com/joao-fontenele/orderflow-insights/internal/messaging"
	"github.com/joao-fontenele/orderflow-insights/internal/store"
	"github.com/joao-fontenele/orderflow-insights/internal/tools"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newDispatcher(t *testing.T, st *store.Store) *tools.Dispatcher {
	t.Helper()
	d, err := tools.NewDispatcher(st, discardLogger())
	if err != nil {
		t.Fatalf("failed to create dispatcher: %v", err)
	}
	return d
}

// callJSON runs a tool and decodes the JSON document after its header line.
func callJSON(ctx context.Context, t *testing.T, d *tools.Dispatcher, name string, args tools.Args, out any) {
	t.Helper()

	result := d.Call(ctx, name, args)
	if result.IsError {
		t.Fatalf("%s failed: %s", name, result.Text)
	}

	_, body, ok := strings.Cut(result.Text, "\n\n")
	if !ok {
		t.Fatalf("%s: unexpected text %q", name, result.Text)
	}
	if err := json.Unmarshal([]byte(body), out); err != nil {
		t.Fatalf("%s: failed to decode result: %v\n%s", name, err, body)
	}
}

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("invalid decimal %q: %v", s, err)
	}
	return d
}

func TestSeededShop(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	connStr := StartPostgres(ctx, t)

	st := store.New(OpenDB(ctx, t, connStr), 5*time.Second)
	d := newDispatcher(t, st)

	t.Run("kpis", func(t *testing.T) {
		var kpis map[string]json.Number
		callJSON(ctx, t, d, tools.ToolGetKPIs, nil, &kpis)

		want := map[string]string{
			"active_customers":    "7",
			"completed_orders":    "5",
			"total_revenue":       "8969.9",
			"avg_order_value":     "1793.98",
			"total_products":      "13",
			"low_stock_products":  "4",
			"orders_per_customer": "0.71",
		}
		for key, value := range want {
			if got := string(kpis[key]); got != value {
				t.Errorf("%s: expected %s, got %s", key, value, got)
			}
		}
	})

	t.Run("kpis are idempotent", func(t *testing.T) {
		agg := analytics.NewKPIAggregator(st)

		first, err := agg.Compute(ctx)
		if err != nil {
			t.Fatalf("first compute: %v", err)
		}
		second, err := agg.Compute(ctx)
		if err != nil {
			t.Fatalf("second compute: %v", err)
		}

		a, _ := json.Marshal(first)
		b, _ := json.Marshal(second)
		if string(a) != string(b) {
			t.Fatalf("kpis changed without writes:\n%s\n%s", a, b)
		}
	})

	t.Run("best customers", func(t *testing.T) {
		var rows []map[string]any
		callJSON(ctx, t, d, tools.ToolAskBusinessQuestion, tools.Args{"question": "Who are my best customers?"}, &rows)

		if len(rows) != 3 {
			t.Fatalf("expected 3 customers with completed orders, got %d", len(rows))
		}
		if rows[0]["name"] != "Juan Pérez" {
			t.Errorf("expected Juan Pérez first, got %v", rows[0]["name"])
		}
		if rows[0]["total_spent"] != 5499.96 {
			t.Errorf("expected total_spent 5499.96, got %v", rows[0]["total_spent"])
		}
	})

	t.Run("products report low stock matches a direct count", func(t *testing.T) {
		var report struct {
			ReportType string         `json:"report_type"`
			Period     string         `json:"period"`
			Summary    map[string]any `json:"summary"`
		}
		callJSON(ctx, t, d, tools.ToolGenerateBusinessReport, tools.Args{"report_type": "products", "period": "quarter"}, &report)

		want, err := NewShop(OpenDB(ctx, t, connStr)).CountLowStock(ctx)
		if err != nil {
			t.Fatalf("count low stock: %v", err)
		}
		if report.Summary["low_stock_count"] != float64(want) {
			t.Errorf("expected low_stock_count %d, got %v", want, report.Summary["low_stock_count"])
		}
		if report.ReportType != "products" || report.Period != "quarter" {
			t.Errorf("unexpected report header: %s %s", report.ReportType, report.Period)
		}
	})

	t.Run("insights", func(t *testing.T) {
		result := d.Call(ctx, tools.ToolFindInsights, tools.Args{"focus_area": "all"})
		if result.IsError {
			t.Fatalf("find_insights failed: %s", result.Text)
		}

		want := "Automatic insights (all):\n" +
			"\n• Most profitable product: MacBook Pro with $1399.98 in total profit" +
			"\n• Country with most active customers: Argentina (1 customers)" +
			"\n• Alert: 4 products have low inventory (< 10 units)" +
			"\n• 4 products have not had any sales yet"
		if result.Text != want {
			t.Errorf("unexpected insights:\n%s", result.Text)
		}
	})

	t.Run("execute_query rejects writes", func(t *testing.T) {
		result := d.Call(ctx, tools.ToolExecuteQuery, tools.Args{"query": "UPDATE products SET stock = 0"})
		if !result.IsError || result.Text != "Error: only SELECT queries are allowed" {
			t.Fatalf("unexpected result: %+v", result)
		}

		var stats struct {
			Tables map[string]struct {
				RowCount int64 `json:"row_count"`
			} `json:"tables"`
		}
		callJSON(ctx, t, d, tools.ToolGetDatabaseStats, nil, &stats)
		if stats.Tables["products"].RowCount != 13 {
			t.Errorf("expected 13 products, got %d", stats.Tables["products"].RowCount)
		}
	})

	t.Run("execute_query runs select 1", func(t *testing.T) {
		var rows []map[string]any
		callJSON(ctx, t, d, tools.ToolExecuteQuery, tools.Args{"query": "SELECT 1"}, &rows)

		if len(rows) != 1 || len(rows[0]) != 1 || rows[0]["?column?"] != float64(1) {
			t.Fatalf("unexpected rows: %v", rows)
		}
	})

	t.Run("execute_query runs in a read-only transaction", func(t *testing.T) {
		_, err := st.QueryReadOnly(ctx, "SELECT nextval(pg_get_serial_sequence('users', 'id'))")
		if !errors.Is(err, domain.ErrStore) {
			t.Fatalf("expected a store error, got %v", err)
		}
	})

	t.Run("table schema", func(t *testing.T) {
		var columns []struct {
			Name       string `json:"name"`
			Type       string `json:"type"`
			Nullable   bool   `json:"nullable"`
			PrimaryKey bool   `json:"primary_key"`
		}
		callJSON(ctx, t, d, tools.ToolGetTableSchema, tools.Args{"table_name": "orders"}, &columns)

		if len(columns) != 7 {
			t.Fatalf("expected 7 columns, got %d", len(columns))
		}
		if columns[0].Name != "id" || !columns[0].PrimaryKey {
			t.Errorf("expected id primary key first, got %+v", columns[0])
		}
		if columns[3].Name != "total_amount" || columns[3].Type != "numeric" {
			t.Errorf("unexpected total_amount column: %+v", columns[3])
		}

		result := d.Call(ctx, tools.ToolGetTableSchema, tools.Args{"table_name": "pg_user"})
		if !result.IsError {
			t.Errorf("expected unknown table to fail, got %s", result.Text)
		}
	})

	t.Run("database stats", func(t *testing.T) {
		stats := d.Call(ctx, tools.ToolGetDatabaseStats, nil)
		if stats.IsError {
			t.Fatalf("unexpected result: %+v", stats)
		}
		for _, fragment := range []string{`"users": {`, `"order_items": {`, `"row_count": 10`} {
			if !strings.Contains(stats.Text, fragment) {
				t.Errorf("expected %q in %s", fragment, stats.Text)
			}
		}
	})
}

func TestKPIsSingleCompletedOrder(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	connStr := StartPostgres(ctx, t)

	db := OpenDB(ctx, t, connStr)
	shop := NewShop(db)
	st := store.New(db, 5*time.Second)
	d := newDispatcher(t, st)

	if err := shop.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}

	user := &domain.User{
		Name:             "Lucía",
		Email:            "lucia@example.com",
		Age:              34,
		Country:          "ES",
		RegistrationDate: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		IsActive:         true,
	}
	if err := shop.CreateUser(ctx, user); err != nil {
		t.Fatalf("create user: %v", err)
	}

	product := &domain.Product{
		Name:     "Kettle",
		Category: "Kitchen",
		Price:    mustDecimal(t, "100.00"),
		Cost:     decimal.NewNullDecimal(mustDecimal(t, "60.00")),
		Stock:    40,
		Supplier: "Acme",
	}
	if err := shop.CreateProduct(ctx, product); err != nil {
		t.Fatalf("create product: %v", err)
	}

	order := &domain.Order{
		UserID:          user.ID,
		OrderDate:       time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Status:          domain.OrderStatusCompleted,
		ShippingCountry: "ES",
		Items:           []domain.OrderItem{{ProductID: product.ID, Quantity: 1, UnitPrice: mustDecimal(t, "100.00")}},
	}
	if err := shop.CreateOrder(ctx, order); err != nil {
		t.Fatalf("create order: %v", err)
	}
	if !order.TotalAmount.Equal(order.Items[0].Subtotal()) {
		t.Fatalf("expected total_amount %s, got %s", order.Items[0].Subtotal(), order.TotalAmount)
	}

	var kpis map[string]json.Number
	callJSON(ctx, t, d, tools.ToolGetKPIs, nil, &kpis)

	want := map[string]string{
		"active_customers":    "1",
		"completed_orders":    "1",
		"total_revenue":       "100",
		"avg_order_value":     "100",
		"orders_per_customer": "1",
	}
	for key, value := range want {
		if got := string(kpis[key]); got != value {
			t.Errorf("%s: expected %s, got %s", key, value, got)
		}
	}

	pending := &domain.Order{
		UserID:          user.ID,
		OrderDate:       time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC),
		Status:          domain.OrderStatusPending,
		ShippingCountry: "ES",
		Items:           []domain.OrderItem{{ProductID: product.ID, Quantity: 30, UnitPrice: mustDecimal(t, "100.00")}},
	}
	if err := shop.CreateOrder(ctx, pending); err != nil {
		t.Fatalf("create pending order: %v", err)
	}

	var after map[string]json.Number
	callJSON(ctx, t, d, tools.ToolGetKPIs, nil, &after)
	if after["total_revenue"] != kpis["total_revenue"] || after["avg_order_value"] != kpis["avg_order_value"] {
		t.Errorf("pending order changed revenue: before %v, after %v", kpis, after)
	}
}

func TestProductInsights(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	connStr := StartPostgres(ctx, t)

	db := OpenDB(ctx, t, connStr)
	shop := NewShop(db)
	engine := analytics.NewInsightEngine(store.New(db, 5*time.Second))

	if err := shop.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}

	buyer := &domain.User{Name: "Buyer", Email: "buyer@example.com", Country: "PT", IsActive: true}
	if err := shop.CreateUser(ctx, buyer); err != nil {
		t.Fatalf("create user: %v", err)
	}

	var products []*domain.Product
	for i, stock := range []int{50, 60} {
		p := &domain.Product{
			Name:     "Healthy " + string(rune('A'+i)),
			Category: "Garden",
			Price:    mustDecimal(t, "10.00"),
			Stock:    stock,
		}
		if err := shop.CreateProduct(ctx, p); err != nil {
			t.Fatalf("create product: %v", err)
		}
		products = append(products, p)
	}

	order := &domain.Order{UserID: buyer.ID, OrderDate: time.Now(), Status: domain.OrderStatusShipped}
	for _, p := range products {
		order.Items = append(order.Items, domain.OrderItem{ProductID: p.ID, Quantity: 1, UnitPrice: p.Price})
	}
	if err := shop.CreateOrder(ctx, order); err != nil {
		t.Fatalf("create order: %v", err)
	}

	insights, err := engine.Find(ctx, analytics.FocusProducts)
	if err != nil {
		t.Fatalf("find insights: %v", err)
	}
	if len(insights) != 1 || insights[0] != "Everything looks healthy in products" {
		t.Fatalf("expected the healthy fallback, got %v", insights)
	}

	for _, stock := range []int{0, 3, 9} {
		p := &domain.Product{Name: "Scarce", Category: "Garden", Price: mustDecimal(t, "5.00"), Stock: stock}
		if err := shop.CreateProduct(ctx, p); err != nil {
			t.Fatalf("create product: %v", err)
		}
		order := &domain.Order{
			UserID:    buyer.ID,
			OrderDate: time.Now(),
			Status:    domain.OrderStatusCompleted,
			Items:     []domain.OrderItem{{ProductID: p.ID, Quantity: 1, UnitPrice: p.Price}},
		}
		if err := shop.CreateOrder(ctx, order); err != nil {
			t.Fatalf("create order: %v", err)
		}
	}

	insights, err = engine.Find(ctx, analytics.FocusProducts)
	if err != nil {
		t.Fatalf("find insights: %v", err)
	}
	if len(insights) != 1 || !strings.Contains(insights[0], "3") {
		t.Fatalf("expected one low inventory line with 3, got %v", insights)
	}
}

func TestDigestRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	connStr := StartPostgres(ctx, t)
	brokers := StartKafka(ctx, t)

	st := store.New(OpenDB(ctx, t, connStr), 5*time.Second)

	topic := "insights.digest.test"
	CreateTopic(t, brokers, topic)

	producer := messaging.NewProducer(brokers, topic)
	defer func() { _ = producer.Close() }()

	published, err := digest.NewPublisher(st, producer, discardLogger()).Publish(ctx)
	if err != nil {
		t.Fatalf("publish digest: %v", err)
	}

	consumer := messaging.NewConsumer(brokers, topic, "insights-test", discardLogger(), messaging.WithStartOffset(kafka.FirstOffset))
	defer func() { _ = consumer.Close() }()

	received := make(chan domain.DigestEvent, 1)
	consumeCtx, stopConsuming := context.WithCancel(ctx)
	defer stopConsuming()

	notifier := digest.NewNotifier("", nil, discardLogger())
	errCh := make(chan error, 1)
	go func() {
		errCh <- consumer.Consume(consumeCtx, func(ctx context.Context, payload []byte) error {
			if err := notifier.Handle(ctx, payload); err != nil {
				return err
			}
			var event domain.DigestEvent
			if err := json.Unmarshal(payload, &event); err != nil {
				return err
			}
			received <- event
			return nil
		})
	}()

	select {
	case event := <-received:
		if event.ID != published.ID {
			t.Errorf("expected digest %s, got %s", published.ID, event.ID)
		}
		if event.KPIs.LowStockProducts != 4 {
			t.Errorf("expected 4 low stock products, got %d", event.KPIs.LowStockProducts)
		}
		if len(event.Insights) != 4 {
			t.Errorf("expected 4 insights, got %v", event.Insights)
		}
	case err := <-errCh:
		t.Fatalf("consumer stopped: %v", err)
	case <-time.After(time.Minute):
		t.Fatal("timed out waiting for digest")
	}

	stopConsuming()
	if err := <-errCh; err != nil {
		t.Errorf("expected clean shutdown, got %v", err)
	}
}
