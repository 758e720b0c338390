package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/atelier-lumen/storefront/internal/inventory"
)

// Catalog is the slice of the item store the storefront endpoints need.
type Catalog interface {
	SearchItems(ctx context.Context, q string) ([]inventory.Item, error)
	CreateItem(ctx context.Context, item *inventory.Item) error
}

type ItemsHandler struct {
	catalog Catalog
}

func NewItemsHandler(catalog Catalog) *ItemsHandler {
	return &ItemsHandler{catalog: catalog}
}

// ListItems lists or searches the catalog.
func (h *ItemsHandler) ListItems(c *gin.Context) {
	items, err := h.catalog.SearchItems(c.Request.Context(), c.Query("q"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "Server error"})
		return
	}
	if items == nil {
		items = []inventory.Item{}
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "results": items})
}

type createItemRequest struct {
	Title       string  `json:"title" binding:"required"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Inventory   int     `json:"inventory"`
	ImageSVG    string  `json:"imageSvg"`
}

// CreateItem adds a new catalog item.
func (h *ItemsHandler) CreateItem(c *gin.Context) {
	var req createItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
		return
	}
	if req.Price < 0 || req.Inventory < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "Price and inventory must be non-negative"})
		return
	}

	item := &inventory.Item{
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		Inventory:   req.Inventory,
		ImageSVG:    req.ImageSVG,
	}
	if err := h.catalog.CreateItem(c.Request.Context(), item); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "Server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "id": item.ID})
}
