package store

import (
	"context"
	"database/sql"
	"fmt"

	"bookstore-service/internal/models"

	"github.com/jmoiron/sqlx"
)

// CreateOrder inserts an order and its line items in one transaction
func (s *Store) CreateOrder(ctx context.Context, order *models.Order) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO orders (id, name, email, phone, address_street, address_city,
			address_state, address_country, address_zipcode, total_price, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at`

	err = tx.QueryRowxContext(ctx, query,
		order.ID, order.Name, order.Email, order.Phone,
		order.Street, order.City, order.State, order.Country, order.Zipcode,
		order.TotalPrice, string(order.Status),
	).Scan(&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	for _, item := range order.Items {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO order_items (order_id, book_id, quantity) VALUES ($1, $2, $3)",
			order.ID, item.BookID, item.Quantity)
		if err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	return tx.Commit()
}

// GetOrderByID retrieves an order with its items
func (s *Store) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: order %s", models.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	orders := []models.Order{order}
	if err := s.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

// ListOrdersByEmail retrieves a customer's orders, newest first
func (s *Store) ListOrdersByEmail(ctx context.Context, email string) ([]models.Order, error) {
	orders := []models.Order{}
	err := s.db.SelectContext(ctx, &orders,
		"SELECT * FROM orders WHERE email = $1 ORDER BY created_at DESC", email)
	if err != nil {
		return nil, err
	}
	return orders, s.attachItems(ctx, orders)
}

// TransitionOrderStatus moves an order from one status to another only if
// it is still in the expected status. It reports whether the row changed.
func (s *Store) TransitionOrderStatus(ctx context.Context, id string, from, to models.OrderStatus) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3",
		string(to), id, string(from))
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// CountOrders counts all orders
func (s *Store) CountOrders(ctx context.Context) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM orders")
	return n, err
}

// SumOrderTotals adds up totalPrice over all orders
func (s *Store) SumOrderTotals(ctx context.Context) (float64, error) {
	var total float64
	err := s.db.GetContext(ctx, &total, "SELECT COALESCE(SUM(total_price), 0) FROM orders")
	return total, err
}

// ListRecentOrders retrieves the newest orders across all customers
func (s *Store) ListRecentOrders(ctx context.Context, limit int) ([]models.Order, error) {
	orders := []models.Order{}
	err := s.db.SelectContext(ctx, &orders,
		"SELECT * FROM orders ORDER BY created_at DESC LIMIT $1", limit)
	if err != nil {
		return nil, err
	}
	return orders, s.attachItems(ctx, orders)
}

// ListRecentOrdersForBooks retrieves the newest orders containing any of the books
func (s *Store) ListRecentOrdersForBooks(ctx context.Context, bookIDs []string, limit int) ([]models.Order, error) {
	orders := []models.Order{}
	if len(bookIDs) == 0 {
		return orders, nil
	}

	query, args, err := sqlx.In(`
		SELECT * FROM orders o
		WHERE EXISTS (
			SELECT 1 FROM order_items i WHERE i.order_id = o.id AND i.book_id IN (?)
		)
		ORDER BY o.created_at DESC
		LIMIT ?`, bookIDs, limit)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	if err := s.db.SelectContext(ctx, &orders, query, args...); err != nil {
		return nil, err
	}
	return orders, s.attachItems(ctx, orders)
}

// attachItems loads line items for the given orders in insertion order
func (s *Store) attachItems(ctx context.Context, orders []models.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]string, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
	}

	query, args, err := sqlx.In(
		"SELECT order_id, book_id, quantity FROM order_items WHERE order_id IN (?) ORDER BY id", ids)
	if err != nil {
		return err
	}
	query = s.db.Rebind(query)

	var rows []struct {
		OrderID string `db:"order_id"`
		models.OrderItem
	}
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return fmt.Errorf("failed to load order items: %w", err)
	}

	byOrder := make(map[string][]models.OrderItem, len(orders))
	for _, r := range rows {
		byOrder[r.OrderID] = append(byOrder[r.OrderID], r.OrderItem)
	}
	for i := range orders {
		orders[i].Items = byOrder[orders[i].ID]
		if orders[i].Items == nil {
			orders[i].Items = []models.OrderItem{}
		}
	}
	return nil
}
