package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"
)

const (
	// MaxFailedAttempts is the windowed failure count that triggers a block.
	MaxFailedAttempts = 3

	// BlockWindow bounds which failures count toward the threshold. The
	// resulting block itself never expires.
	BlockWindow = time.Hour
)

var (
	// ErrBlocked means the address has a standing permanent block.
	ErrBlocked = errors.New("access blocked")

	// ErrNowBlocked means this failure crossed the threshold and the
	// address has just been blocked.
	ErrNowBlocked = errors.New("too many failed attempts")
)

// InvalidCredentialsError reports a failed attempt below the block
// threshold, with how many attempts remain before blocking.
type InvalidCredentialsError struct {
	Remaining int
}

func (e *InvalidCredentialsError) Error() string {
	return fmt.Sprintf("invalid credentials, %d attempt(s) remaining", e.Remaining)
}

// FailedAttempt is one persisted failed-login record. Blocked marks the
// record that triggered the permanent block for its address.
type FailedAttempt struct {
	IP        string    `json:"ip"`
	Username  string    `json:"username"`
	Timestamp time.Time `json:"timestamp"`
	Blocked   bool      `json:"blocked"`
}

// AttemptStore is the failed-login-attempt collection.
type AttemptStore interface {
	HasBlock(ctx context.Context, ip string) (bool, error)
	CountSince(ctx context.Context, ip string, since time.Time) (int, error)
	Record(ctx context.Context, attempt FailedAttempt) error
}

// Guard admits or rejects admin login attempts based on per-address
// failure history.
type Guard struct {
	attempts    AttemptStore
	credentials *CredentialManager
}

func NewGuard(attempts AttemptStore, credentials *CredentialManager) *Guard {
	return &Guard{attempts: attempts, credentials: credentials}
}

// Attempt runs one login attempt for the given client address. The block
// check runs before credential verification, so a blocked address is
// rejected even with valid credentials. A successful login never clears
// prior failure history.
func (g *Guard) Attempt(ctx context.Context, ip, username, password string) error {
	blocked, err := g.attempts.HasBlock(ctx, ip)
	if err != nil {
		return fmt.Errorf("failed to check block status: %w", err)
	}
	if blocked {
		return ErrBlocked
	}

	valid, err := g.credentials.Verify(ctx, username, password)
	if err != nil {
		return fmt.Errorf("failed to verify credentials: %w", err)
	}
	if valid {
		return nil
	}

	since := time.Now().Add(-BlockWindow)
	recent, err := g.attempts.CountSince(ctx, ip, since)
	if err != nil {
		return fmt.Errorf("failed to count recent attempts: %w", err)
	}

	// recent excludes the failure being recorded now.
	shouldBlock := recent >= MaxFailedAttempts-1

	record := FailedAttempt{
		IP:        ip,
		Username:  username,
		Timestamp: time.Now().UTC(),
		Blocked:   shouldBlock,
	}
	if err := g.attempts.Record(ctx, record); err != nil {
		return fmt.Errorf("failed to record attempt: %w", err)
	}

	if shouldBlock {
		log.Printf("🚫 Blocked address %s after repeated failed logins", ip)
		return ErrNowBlocked
	}
	return &InvalidCredentialsError{Remaining: MaxFailedAttempts - recent - 1}
}
