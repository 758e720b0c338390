package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/atelier-lumen/storefront/internal/inventory"
	"github.com/atelier-lumen/storefront/internal/orders"
)

type OrdersHandler struct {
	service *orders.Service
}

func NewOrdersHandler(service *orders.Service) *OrdersHandler {
	return &OrdersHandler{service: service}
}

type placeOrderRequest struct {
	Items []orders.CartLine `json:"items"`
	Buyer json.RawMessage   `json:"buyer"`
}

// PlaceOrder validates a cart against live stock and creates the order.
func (h *OrdersHandler) PlaceOrder(c *gin.Context) {
	var req placeOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "No items provided"})
		return
	}

	orderID, err := h.service.Place(c.Request.Context(), req.Items, req.Buyer)
	if err != nil {
		switch {
		case errors.Is(err, orders.ErrEmptyCart):
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "No items provided"})
		case errors.Is(err, orders.ErrInvalidLine):
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "Invalid item or qty"})
		case errors.Is(err, inventory.ErrItemNotFound):
			c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": err.Error()})
		case errors.Is(err, inventory.ErrInsufficientStock):
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "Server error"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "orderNumber": orderID})
}

// ListOrders returns orders for the admin dashboard, sorted per filter.
func (h *OrdersHandler) ListOrders(c *gin.Context) {
	filter := orders.ListFilter(c.DefaultQuery("status", string(orders.FilterAll)))

	result, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "Server error"})
		return
	}
	if result == nil {
		result = []orders.Order{}
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "orders": result})
}

// UpdateShipping transitions an order's shipment status.
func (h *OrdersHandler) UpdateShipping(c *gin.Context) {
	var update orders.ShippingUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "Invalid request body"})
		return
	}

	_, err := h.service.SetShipped(c.Request.Context(), c.Param("id"), update)
	if err != nil {
		if errors.Is(err, orders.ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "Order not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "Server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Backfill normalizes legacy orders missing shipment fields.
func (h *OrdersHandler) Backfill(c *gin.Context) {
	updated, err := h.service.Backfill(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "Server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "updated": updated})
}
