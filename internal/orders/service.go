package orders

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sort"
	"time"

	"github.com/atelier-lumen/storefront/internal/inventory"
)

var (
	// ErrEmptyCart means no lines were submitted.
	ErrEmptyCart = errors.New("no items provided")

	// ErrInvalidLine means a line had a missing id or non-positive quantity.
	ErrInvalidLine = errors.New("invalid item or qty")

	// ErrOrderNotFound means the order id does not resolve.
	ErrOrderNotFound = errors.New("order not found")
)

// ListFilter selects which orders a listing returns and how they sort.
type ListFilter string

const (
	FilterAll     ListFilter = "all"
	FilterPending ListFilter = "pending"
	FilterShipped ListFilter = "shipped"
)

// Store is the order document collection.
type Store interface {
	CreateOrder(ctx context.Context, order *Order) error
	GetOrder(ctx context.Context, id string) (*Order, error)
	ListOrders(ctx context.Context) ([]Order, error)
	UpdateShipping(ctx context.Context, order *Order) error
	BackfillShipping(ctx context.Context) (int, error)
}

// Ledger is the slice of the inventory ledger the order service needs.
type Ledger interface {
	CheckAvailability(ctx context.Context, id string, qty int) (*inventory.Item, error)
	ReserveAll(ctx context.Context, lines []inventory.Reservation) error
}

// EventPublisher emits order lifecycle events for downstream relays.
// Publishing is best-effort; failures are logged, never surfaced.
type EventPublisher interface {
	OrderCreated(order *Order) error
	OrderShipped(order *Order) error
}

// Service turns validated carts into persisted orders and manages their
// shipment lifecycle.
type Service struct {
	store     Store
	ledger    Ledger
	publisher EventPublisher
}

// NewService wires the order service. publisher may be nil when no broker
// is configured.
func NewService(store Store, ledger Ledger, publisher EventPublisher) *Service {
	return &Service{store: store, ledger: ledger, publisher: publisher}
}

// Place validates the cart, reserves stock for every line, persists the
// order and returns its id. The validation pass runs over all lines before
// any stock is touched, so an invalid or unavailable line aborts the order
// with no mutation at all.
func (s *Service) Place(ctx context.Context, cart []CartLine, buyer []byte) (string, error) {
	if len(cart) == 0 {
		return "", ErrEmptyCart
	}

	lines := make([]Line, 0, len(cart))
	reservations := make([]inventory.Reservation, 0, len(cart))
	total := 0.0

	for _, entry := range cart {
		if entry.ItemID == "" || entry.Qty <= 0 {
			return "", ErrInvalidLine
		}
		item, err := s.ledger.CheckAvailability(ctx, entry.ItemID, entry.Qty)
		if err != nil {
			return "", err
		}
		lines = append(lines, Line{ItemID: entry.ItemID, Qty: entry.Qty, Price: item.Price})
		reservations = append(reservations, inventory.Reservation{ItemID: entry.ItemID, Qty: entry.Qty})
		total += item.Price * float64(entry.Qty)
	}

	// All lines passed against live stock; now decrement. A concurrent
	// checkout can still win a line in between, in which case ReserveAll
	// compensates the lines it already took and the whole order aborts.
	if err := s.ledger.ReserveAll(ctx, reservations); err != nil {
		return "", err
	}

	order := &Order{
		Items:     lines,
		Buyer:     buyer,
		Total:     roundCents(total),
		Shipped:   false,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateOrder(ctx, order); err != nil {
		return "", fmt.Errorf("failed to persist order: %w", err)
	}

	if s.publisher != nil {
		if err := s.publisher.OrderCreated(order); err != nil {
			log.Printf("⚠️ Failed to publish order.created for %s: %v", order.ID, err)
		}
	}

	log.Printf("✅ Order %s placed, total $%.2f", order.ID, order.Total)
	return order.ID, nil
}

// List returns orders for the admin dashboard. The store hands back a
// plain createdAt-descending scan; the filter-specific orderings live here.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Order, error) {
	all, err := s.store.ListOrders(ctx)
	if err != nil {
		return nil, err
	}

	switch filter {
	case FilterPending:
		pending := make([]Order, 0, len(all))
		for _, o := range all {
			if !o.Shipped {
				pending = append(pending, o)
			}
		}
		// Oldest unshipped first, FIFO fulfillment.
		sort.SliceStable(pending, func(i, j int) bool {
			return pending[i].CreatedAt.Before(pending[j].CreatedAt)
		})
		return pending, nil
	case FilterShipped:
		shipped := make([]Order, 0, len(all))
		for _, o := range all {
			if o.Shipped {
				shipped = append(shipped, o)
			}
		}
		sort.SliceStable(shipped, func(i, j int) bool {
			return shippedTime(shipped[i]).After(shippedTime(shipped[j]))
		})
		return shipped, nil
	default:
		sort.SliceStable(all, func(i, j int) bool {
			return all[i].updatedAt().After(all[j].updatedAt())
		})
		return all, nil
	}
}

// SetShipped transitions an order's shipment status. Marking shipped sets
// shippedAt and any supplied metadata; marking unshipped clears all
// shipment metadata. Both transitions are idempotent.
func (s *Service) SetShipped(ctx context.Context, id string, update ShippingUpdate) (*Order, error) {
	order, err := s.store.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}

	if update.Shipped {
		now := time.Now().UTC()
		order.Shipped = true
		order.ShippedAt = &now
		if update.ShippingProvider != nil {
			order.ShippingProvider = *update.ShippingProvider
		}
		if update.TrackingID != nil {
			order.TrackingID = *update.TrackingID
		}
		if update.EmailCustomer != nil {
			order.EmailCustomerNotified = *update.EmailCustomer
		}
	} else {
		order.Shipped = false
		order.ShippedAt = nil
		order.ShippingProvider = ""
		order.TrackingID = ""
		order.EmailCustomerNotified = false
	}

	if err := s.store.UpdateShipping(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to update order %s: %w", id, err)
	}

	if update.Shipped && s.publisher != nil {
		if err := s.publisher.OrderShipped(order); err != nil {
			log.Printf("⚠️ Failed to publish order.shipped for %s: %v", order.ID, err)
		}
	}

	return order, nil
}

// Backfill normalizes legacy orders missing shipment fields, returning how
// many documents were touched.
func (s *Service) Backfill(ctx context.Context) (int, error) {
	updated, err := s.store.BackfillShipping(ctx)
	if err != nil {
		return 0, err
	}
	if updated == 0 {
		log.Println("All orders already contain shipping fields")
	} else {
		log.Printf("Backfilled %d orders", updated)
	}
	return updated, nil
}

func shippedTime(o Order) time.Time {
	if o.ShippedAt != nil {
		return *o.ShippedAt
	}
	return o.CreatedAt
}

// roundCents keeps totals at cent precision; prices are per-unit decimals.
func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
