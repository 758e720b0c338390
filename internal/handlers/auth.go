package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/atelier-lumen/storefront/internal/auth"
)

type AuthHandler struct {
	guard       *auth.Guard
	sessions    *auth.SessionManager
	credentials *auth.CredentialManager
}

func NewAuthHandler(guard *auth.Guard, sessions *auth.SessionManager, credentials *auth.CredentialManager) *AuthHandler {
	return &AuthHandler{guard: guard, sessions: sessions, credentials: credentials}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login runs the throttled admin login flow and sets the session cookie.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "message": "Invalid request body"})
		return
	}

	ip := c.ClientIP()
	err := h.guard.Attempt(c.Request.Context(), ip, req.Username, req.Password)
	if err != nil {
		var invalid *auth.InvalidCredentialsError
		switch {
		case errors.Is(err, auth.ErrBlocked):
			c.JSON(http.StatusForbidden, gin.H{
				"ok":      false,
				"message": "Access blocked due to multiple failed login attempts.",
			})
		case errors.Is(err, auth.ErrNowBlocked):
			c.JSON(http.StatusForbidden, gin.H{
				"ok":      false,
				"message": "Too many failed attempts. Your IP has been blocked.",
			})
		case errors.As(err, &invalid):
			c.JSON(http.StatusUnauthorized, gin.H{
				"ok":      false,
				"message": fmt.Sprintf("Invalid credentials. %d attempt(s) remaining.", invalid.Remaining),
			})
		default:
			log.Printf("❌ Login failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "message": "Server error"})
		}
		return
	}

	token, err := h.sessions.Issue(req.Username)
	if err != nil {
		log.Printf("❌ Failed to issue session: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "message": "Server error"})
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, token, int(auth.SessionTTL.Seconds()), "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Me reports whether the caller holds a valid session.
func (h *AuthHandler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Logout clears the session cookie.
func (h *AuthHandler) Logout(c *gin.Context) {
	c.SetCookie(SessionCookie, "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// ChangePassword rotates the stored admin credential. Requires a valid
// session; already-issued sessions stay valid afterwards.
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.CurrentPassword == "" || req.NewPassword == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "Missing fields"})
		return
	}

	err := h.credentials.ChangePassword(c.Request.Context(), req.CurrentPassword, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrPasswordTooShort):
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "Password too short"})
		case errors.Is(err, auth.ErrInvalidCurrentPassword):
			c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "Current password incorrect"})
		default:
			log.Printf("❌ Failed to change password: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "Server error"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}
