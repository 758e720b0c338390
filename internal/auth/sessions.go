package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionTTL is how long an issued admin session stays valid.
const SessionTTL = time.Hour

// ErrInvalidToken means the session token is missing, malformed, forged
// or expired.
var ErrInvalidToken = errors.New("invalid token")

type sessionClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// SessionManager issues and validates admin session tokens. Tokens are
// signed and carry their own expiry, which is checked server-side on
// every request rather than trusting the cookie's max-age.
type SessionManager struct {
	secret []byte
	ttl    time.Duration
}

func NewSessionManager(secret []byte, ttl time.Duration) *SessionManager {
	return &SessionManager{secret: secret, ttl: ttl}
}

// Issue creates a session token for the given admin username.
func (m *SessionManager) Issue(username string) (string, error) {
	claims := &sessionClaims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Validate parses a session token and returns the username it was issued
// for. Expired or tampered tokens fail with ErrInvalidToken.
func (m *SessionManager) Validate(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &sessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		return m.secret, nil
	})
	if err != nil {
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(*sessionClaims)
	if !ok || !token.Valid {
		return "", ErrInvalidToken
	}
	return claims.Username, nil
}
