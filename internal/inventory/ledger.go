package inventory

import (
	"context"
	"errors"
	"fmt"
	"log"
)

var (
	// ErrItemNotFound means the item id does not resolve to a document.
	ErrItemNotFound = errors.New("item not found")

	// ErrInsufficientStock means current stock is below the requested quantity.
	ErrInsufficientStock = errors.New("insufficient inventory")
)

// ItemStore is the document collection the ledger works against.
// ReserveStock must be atomic: it either decrements by qty and returns the
// new stock, or fails with ErrInsufficientStock without changing anything.
type ItemStore interface {
	GetItem(ctx context.Context, id string) (*Item, error)
	ReserveStock(ctx context.Context, id string, qty int) (int, error)
	RestoreStock(ctx context.Context, id string, qty int) error
}

// Ledger owns per-item stock counts. It is the only component allowed to
// decrement them.
type Ledger struct {
	store ItemStore
}

func NewLedger(store ItemStore) *Ledger {
	return &Ledger{store: store}
}

// CheckAvailability verifies the item exists and has at least qty units.
// It returns the item so callers can price the line from the same read.
func (l *Ledger) CheckAvailability(ctx context.Context, id string, qty int) (*Item, error) {
	item, err := l.store.GetItem(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to read item %s: %w", id, err)
	}
	if item == nil {
		return nil, fmt.Errorf("item %s: %w", id, ErrItemNotFound)
	}
	if item.Inventory < qty {
		return nil, fmt.Errorf("item %s: %w", id, ErrInsufficientStock)
	}
	return item, nil
}

// Reserve decrements stock for a single item. The store refuses the
// decrement instead of letting stock go negative.
func (l *Ledger) Reserve(ctx context.Context, id string, qty int) (int, error) {
	newStock, err := l.store.ReserveStock(ctx, id, qty)
	if err != nil {
		return 0, err
	}
	return newStock, nil
}

// ReserveAll reserves every line in order. If a line fails after earlier
// lines succeeded, the succeeded reservations are restored before the
// error is returned, so a lost race never leaves partial state behind.
func (l *Ledger) ReserveAll(ctx context.Context, lines []Reservation) error {
	for i, line := range lines {
		if _, err := l.store.ReserveStock(ctx, line.ItemID, line.Qty); err != nil {
			l.release(ctx, lines[:i])
			return err
		}
	}
	return nil
}

// release compensates already-reserved lines after a mid-sequence failure.
func (l *Ledger) release(ctx context.Context, reserved []Reservation) {
	for _, line := range reserved {
		if err := l.store.RestoreStock(ctx, line.ItemID, line.Qty); err != nil {
			log.Printf("⚠️ Failed to restore %d units of item %s: %v", line.Qty, line.ItemID, err)
		}
	}
}
