package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/atelier-lumen/storefront/internal/inventory"
)

type ItemRepository struct {
	db *sql.DB
}

func NewItemRepository(database *PostgresDB) *ItemRepository {
	return &ItemRepository{db: database.Conn}
}

const itemColumns = "id, title, description, price, inventory, image_svg, created_at"

// GetItem returns a single item, or nil when the id does not resolve.
func (r *ItemRepository) GetItem(ctx context.Context, id string) (*inventory.Item, error) {
	query := "SELECT " + itemColumns + " FROM items WHERE id = $1"

	var it inventory.Item
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&it.ID, &it.Title, &it.Description, &it.Price, &it.Inventory, &it.ImageSVG, &it.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get item: %w", err)
	}

	return &it, nil
}

// SearchItems returns items matching q in title or description, or the
// newest items when q is empty.
func (r *ItemRepository) SearchItems(ctx context.Context, q string) ([]inventory.Item, error) {
	query := "SELECT " + itemColumns + " FROM items ORDER BY created_at DESC LIMIT 50"
	args := []interface{}{}
	if q != "" {
		query = "SELECT " + itemColumns + ` FROM items
			WHERE title ILIKE '%' || $1 || '%' OR description ILIKE '%' || $1 || '%'
			ORDER BY created_at DESC LIMIT 50`
		args = append(args, q)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	var items []inventory.Item
	for rows.Next() {
		var it inventory.Item
		err := rows.Scan(&it.ID, &it.Title, &it.Description, &it.Price, &it.Inventory, &it.ImageSVG, &it.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, it)
	}

	return items, rows.Err()
}

// CreateItem inserts a new catalog item and returns its assigned id.
func (r *ItemRepository) CreateItem(ctx context.Context, item *inventory.Item) error {
	item.ID = newDocID()
	query := `
		INSERT INTO items (id, title, description, price, inventory, image_svg)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		item.ID, item.Title, item.Description, item.Price, item.Inventory, item.ImageSVG).
		Scan(&item.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create item: %w", err)
	}
	return nil
}

// ReserveStock atomically decrements inventory by qty, refusing the update
// when stock would go negative. The conditional write is the serialization
// point for concurrent checkouts: a stale read can never oversell because
// the decrement itself re-checks stock.
func (r *ItemRepository) ReserveStock(ctx context.Context, id string, qty int) (int, error) {
	query := `
		UPDATE items SET inventory = inventory - $2
		WHERE id = $1 AND inventory >= $2
		RETURNING inventory
	`
	var newStock int
	err := r.db.QueryRowContext(ctx, query, id, qty).Scan(&newStock)
	if err == nil {
		return newStock, nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("failed to reserve stock: %w", err)
	}

	// The update matched nothing: either the item is missing or stock ran out.
	var current int
	err = r.db.QueryRowContext(ctx, "SELECT inventory FROM items WHERE id = $1", id).Scan(&current)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("item %s: %w", id, inventory.ErrItemNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read stock: %w", err)
	}
	return 0, fmt.Errorf("item %s: %w", id, inventory.ErrInsufficientStock)
}

// RestoreStock adds qty back after a reservation was compensated.
func (r *ItemRepository) RestoreStock(ctx context.Context, id string, qty int) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE items SET inventory = inventory + $2 WHERE id = $1", id, qty)
	if err != nil {
		return fmt.Errorf("failed to restore stock: %w", err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("item %s: %w", id, inventory.ErrItemNotFound)
	}
	return nil
}
