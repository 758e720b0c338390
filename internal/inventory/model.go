package inventory

import "time"

// Item is a catalog document. The ledger only ever mutates Inventory;
// the remaining fields are carried for storefront reads.
type Item struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	Inventory   int       `json:"inventory"`
	ImageSVG    string    `json:"imageSvg,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Reservation is one cart line to reserve stock for.
type Reservation struct {
	ItemID string
	Qty    int
}
