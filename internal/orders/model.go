package orders

import (
	"encoding/json"
	"time"
)

// Line is one purchased item, priced at the moment the order was placed.
type Line struct {
	ItemID string  `json:"itemId"`
	Qty    int     `json:"qty"`
	Price  float64 `json:"price"`
}

// Order is the persisted order document. Items and CreatedAt are immutable
// after creation; only the shipping fields change afterwards.
type Order struct {
	ID                    string          `json:"id"`
	Items                 []Line          `json:"items"`
	Buyer                 json.RawMessage `json:"buyer,omitempty"`
	Total                 float64         `json:"total"`
	Shipped               bool            `json:"shipped"`
	ShippedAt             *time.Time      `json:"shippedAt,omitempty"`
	ShippingProvider      string          `json:"shippingProvider,omitempty"`
	TrackingID            string          `json:"trackingId,omitempty"`
	EmailCustomerNotified bool            `json:"emailCustomerNotified"`
	CreatedAt             time.Time       `json:"createdAt"`
}

// updatedAt is the composite key the admin "all" view sorts by: the last
// shipment transition when there was one, otherwise creation time.
func (o *Order) updatedAt() time.Time {
	if o.ShippedAt != nil {
		return *o.ShippedAt
	}
	return o.CreatedAt
}

// CartLine is an incoming cart entry, not yet validated or priced.
type CartLine struct {
	ItemID string `json:"id"`
	Qty    int    `json:"qty"`
}

// ShippingUpdate carries a shipment-status transition. Optional fields are
// pointers so "absent" and "zero" stay distinguishable.
type ShippingUpdate struct {
	Shipped          bool    `json:"shipped"`
	ShippingProvider *string `json:"shippingProvider"`
	TrackingID       *string `json:"trackingId"`
	EmailCustomer    *bool   `json:"emailCustomer"`
}
