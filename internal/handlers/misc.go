package handlers

import (
	"database/sql"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/atelier-lumen/storefront/internal/payments"
)

type MiscHandler struct {
	db *sql.DB
}

func NewMiscHandler(db *sql.DB) *MiscHandler {
	return &MiscHandler{db: db}
}

// Health reports whether the backing store is reachable.
func (h *MiscHandler) Health(c *gin.Context) {
	if err := h.db.PingContext(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// CreatePayment returns a placeholder confirmation code; no payment is
// actually processed.
func (h *MiscHandler) CreatePayment(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "confirmationCode": payments.ConfirmationCode()})
}
