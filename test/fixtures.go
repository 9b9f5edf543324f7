package test

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/joao-fontenele/orderflow-insights/internal/domain"
)

// Shop writes fixtures into the shop schema. The service itself only reads;
// these writers exist so integration tests can shape the store state.
type Shop struct {
	db *sql.DB
}

func NewShop(db *sql.DB) *Shop {
	return &Shop{db: db}
}

// Reset removes every row, including the seed data, and restarts ids.
func (s *Shop) Reset(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `TRUNCATE order_items, orders, products, users RESTART IDENTITY`)
	return err
}

func (s *Shop) CreateUser(ctx context.Context, user *domain.User) error {
	return s.db.QueryRowContext(ctx, `
		INSERT INTO users (name, email, age, country, registration_date, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, user.Name, user.Email, user.Age, user.Country, user.RegistrationDate, user.IsActive).Scan(&user.ID)
}

func (s *Shop) CreateProduct(ctx context.Context, product *domain.Product) error {
	return s.db.QueryRowContext(ctx, `
		INSERT INTO products (name, category, price, cost, stock, supplier)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, product.Name, product.Category, product.Price, product.Cost, product.Stock, product.Supplier).Scan(&product.ID)
}

// CreateOrder inserts the order and its items in one transaction. The
// database computes total_amount, which is read back into order.
func (s *Shop) CreateOrder(ctx context.Context, order *domain.Order) error {
	if !order.Status.Valid() {
		return fmt.Errorf("invalid order status %q", order.Status)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO orders (user_id, order_date, status, shipping_country)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, order.UserID, order.OrderDate, order.Status, order.ShippingCountry).Scan(&order.ID)
	if err != nil {
		return err
	}

	for i := range order.Items {
		item := &order.Items[i]
		item.OrderID = order.ID
		err = tx.QueryRowContext(ctx, `
			INSERT INTO order_items (order_id, product_id, quantity, unit_price)
			VALUES ($1, $2, $3, $4)
			RETURNING id
		`, item.OrderID, item.ProductID, item.Quantity, item.UnitPrice).Scan(&item.ID)
		if err != nil {
			return err
		}
	}

	if err := tx.QueryRowContext(ctx, `SELECT total_amount FROM orders WHERE id = $1`, order.ID).Scan(&order.TotalAmount); err != nil {
		return err
	}

	return tx.Commit()
}

// CountLowStock counts low-stock products in Go, independently of the
// analytics queries.
func (s *Shop) CountLowStock(ctx context.Context) (int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, stock FROM products`)
	if err != nil {
		return 0, err
	}
	defer func() { _ = rows.Close() }()

	var count int64
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Stock); err != nil {
			return 0, err
		}
		if p.LowStock() {
			count++
		}
	}
	return count, rows.Err()
}
