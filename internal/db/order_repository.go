package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/atelier-lumen/storefront/internal/orders"
)

type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(database *PostgresDB) *OrderRepository {
	return &OrderRepository{db: database.Conn}
}

// CreateOrder inserts a new order with its lines and assigns its id.
func (r *OrderRepository) CreateOrder(ctx context.Context, order *orders.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	order.ID = newDocID()
	orderQuery := `
		INSERT INTO orders (id, buyer, total, shipped, email_customer_notified, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = tx.ExecContext(ctx, orderQuery,
		order.ID, []byte(order.Buyer), order.Total, order.Shipped,
		order.EmailCustomerNotified, order.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	lineQuery := `
		INSERT INTO order_items (order_id, item_id, qty, price)
		VALUES ($1, $2, $3, $4)
	`
	for _, line := range order.Items {
		if _, err := tx.ExecContext(ctx, lineQuery, order.ID, line.ItemID, line.Qty, line.Price); err != nil {
			return fmt.Errorf("failed to insert order line: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

const orderColumns = `id, buyer, total, shipped, shipped_at, shipping_provider,
	tracking_id, email_customer_notified, created_at`

// GetOrder returns a single order with its lines, or nil when missing.
func (r *OrderRepository) GetOrder(ctx context.Context, id string) (*orders.Order, error) {
	query := "SELECT " + orderColumns + " FROM orders WHERE id = $1"

	order, err := scanOrder(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	if err := r.loadLines(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

// ListOrders returns all orders newest-first; filter-specific orderings
// are applied by the order service.
func (r *OrderRepository) ListOrders(ctx context.Context) ([]orders.Order, error) {
	query := "SELECT " + orderColumns + " FROM orders ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var result []orders.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		result = append(result, *order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range result {
		if err := r.loadLines(ctx, &result[i]); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// UpdateShipping overwrites the shipment fields of an order.
func (r *OrderRepository) UpdateShipping(ctx context.Context, order *orders.Order) error {
	query := `
		UPDATE orders
		SET shipped = $2, shipped_at = $3, shipping_provider = $4,
		    tracking_id = $5, email_customer_notified = $6
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query,
		order.ID, order.Shipped, order.ShippedAt,
		nullIfEmpty(order.ShippingProvider), nullIfEmpty(order.TrackingID),
		order.EmailCustomerNotified)
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return orders.ErrOrderNotFound
	}
	return nil
}

// BackfillShipping fills shipment fields on legacy orders: a shipped order
// with no shippedAt inherits its creation time.
func (r *OrderRepository) BackfillShipping(ctx context.Context) (int, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE orders SET shipped_at = created_at
		WHERE shipped = TRUE AND shipped_at IS NULL
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to backfill orders: %w", err)
	}
	updated, _ := result.RowsAffected()
	return int(updated), nil
}

func (r *OrderRepository) loadLines(ctx context.Context, order *orders.Order) error {
	rows, err := r.db.QueryContext(ctx,
		"SELECT item_id, qty, price FROM order_items WHERE order_id = $1", order.ID)
	if err != nil {
		return fmt.Errorf("failed to query order lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var line orders.Line
		if err := rows.Scan(&line.ItemID, &line.Qty, &line.Price); err != nil {
			return fmt.Errorf("failed to scan order line: %w", err)
		}
		order.Items = append(order.Items, line)
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row rowScanner) (*orders.Order, error) {
	var o orders.Order
	var buyer []byte
	var provider, tracking sql.NullString
	var shippedAt sql.NullTime
	err := row.Scan(&o.ID, &buyer, &o.Total, &o.Shipped, &shippedAt,
		&provider, &tracking, &o.EmailCustomerNotified, &o.CreatedAt)
	if err != nil {
		return nil, err
	}
	o.Buyer = buyer
	if shippedAt.Valid {
		t := shippedAt.Time
		o.ShippedAt = &t
	}
	o.ShippingProvider = provider.String
	o.TrackingID = tracking.String
	return &o, nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
