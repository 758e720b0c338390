package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/atelier-lumen/storefront/internal/auth"
)

// SessionCookie is the cookie carrying the admin session token.
const SessionCookie = "admin_session"

// RequireSession validates the admin session cookie, including server-side
// expiry, before letting a request through.
func RequireSession(sessions *auth.SessionManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(SessionCookie)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "Unauthorized"})
			return
		}

		username, err := sessions.Validate(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "Unauthorized"})
			return
		}

		c.Set("username", username)
		c.Next()
	}
}
