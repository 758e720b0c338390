package publisher

import (
	"encoding/json"
	"fmt"

	"github.com/atelier-lumen/storefront/internal/messaging"
	"github.com/atelier-lumen/storefront/internal/orders"
)

const (
	OrderCreatedQueue = "order.created"
	OrderShippedQueue = "order.shipped"
)

// OrderCreatedEvent notifies downstream relays that an order was placed.
type OrderCreatedEvent struct {
	OrderID string           `json:"order_id"`
	Total   float64          `json:"total"`
	Buyer   json.RawMessage  `json:"buyer,omitempty"`
	Items   []OrderLineEvent `json:"items"`
}

type OrderLineEvent struct {
	ItemID string `json:"item_id"`
	Qty    int    `json:"qty"`
}

// OrderShippedEvent notifies the mail relay that an order left the studio.
type OrderShippedEvent struct {
	OrderID          string `json:"order_id"`
	ShippingProvider string `json:"shipping_provider,omitempty"`
	TrackingID       string `json:"tracking_id,omitempty"`
	NotifyCustomer   bool   `json:"notify_customer"`
}

type OrderPublisher struct {
	mq *messaging.RabbitMQ
}

func NewOrderPublisher(mq *messaging.RabbitMQ) (*OrderPublisher, error) {
	for _, queue := range []string{OrderCreatedQueue, OrderShippedQueue} {
		if err := mq.DeclareQueue(queue); err != nil {
			return nil, err
		}
	}
	return &OrderPublisher{mq: mq}, nil
}

// OrderCreated publishes an order.created event.
func (p *OrderPublisher) OrderCreated(order *orders.Order) error {
	event := OrderCreatedEvent{
		OrderID: order.ID,
		Total:   order.Total,
		Buyer:   order.Buyer,
	}
	for _, line := range order.Items {
		event.Items = append(event.Items, OrderLineEvent{ItemID: line.ItemID, Qty: line.Qty})
	}
	return p.publish(OrderCreatedQueue, event)
}

// OrderShipped publishes an order.shipped event.
func (p *OrderPublisher) OrderShipped(order *orders.Order) error {
	event := OrderShippedEvent{
		OrderID:          order.ID,
		ShippingProvider: order.ShippingProvider,
		TrackingID:       order.TrackingID,
		NotifyCustomer:   order.EmailCustomerNotified,
	}
	return p.publish(OrderShippedQueue, event)
}

func (p *OrderPublisher) publish(queue string, event interface{}) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return p.mq.Publish(queue, data)
}
