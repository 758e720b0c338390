package auth_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/atelier-lumen/storefront/internal/auth"
)

type memAttemptStore struct {
	mu       sync.Mutex
	attempts []auth.FailedAttempt
}

func (s *memAttemptStore) HasBlock(ctx context.Context, ip string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.attempts {
		if a.IP == ip && a.Blocked {
			return true, nil
		}
	}
	return false, nil
}

func (s *memAttemptStore) CountSince(ctx context.Context, ip string, since time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, a := range s.attempts {
		if a.IP == ip && !a.Timestamp.Before(since) {
			count++
		}
	}
	return count, nil
}

func (s *memAttemptStore) Record(ctx context.Context, attempt auth.FailedAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts = append(s.attempts, attempt)
	return nil
}

type memSettingsStore struct {
	mu    sync.Mutex
	creds *auth.Credentials
}

func (s *memSettingsStore) GetCredentials(ctx context.Context) (*auth.Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.creds == nil {
		return nil, nil
	}
	copied := *s.creds
	return &copied, nil
}

func (s *memSettingsStore) SaveCredentials(ctx context.Context, creds *auth.Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *creds
	s.creds = &copied
	return nil
}

func newGuard(t *testing.T) (*auth.Guard, *memAttemptStore) {
	t.Helper()
	attempts := &memAttemptStore{}
	settings := &memSettingsStore{}
	creds := auth.NewCredentialManager(settings, "admin", "hunter22")
	require.NoError(t, creds.Bootstrap(context.Background()))
	return auth.NewGuard(attempts, creds), attempts
}

func TestLoginThrottleBoundary(t *testing.T) {
	guard, _ := newGuard(t)
	ctx := context.Background()

	// First failure: two attempts remain.
	err := guard.Attempt(ctx, "10.0.0.1", "admin", "wrong")
	var invalid *auth.InvalidCredentialsError
	require.ErrorAs(t, err, &invalid)
	require.Equal(t, 2, invalid.Remaining)

	// Second failure: one attempt remains.
	err = guard.Attempt(ctx, "10.0.0.1", "admin", "wrong")
	require.ErrorAs(t, err, &invalid)
	require.Equal(t, 1, invalid.Remaining)

	// Third failure crosses the threshold.
	err = guard.Attempt(ctx, "10.0.0.1", "admin", "wrong")
	require.ErrorIs(t, err, auth.ErrNowBlocked)

	// Even the correct password is rejected now.
	err = guard.Attempt(ctx, "10.0.0.1", "admin", "hunter22")
	require.ErrorIs(t, err, auth.ErrBlocked)
}

func TestThrottleIsPerAddress(t *testing.T) {
	guard, _ := newGuard(t)
	ctx := context.Background()

	for i := 0; i < auth.MaxFailedAttempts; i++ {
		guard.Attempt(ctx, "10.0.0.1", "admin", "wrong")
	}
	require.ErrorIs(t, guard.Attempt(ctx, "10.0.0.1", "admin", "hunter22"), auth.ErrBlocked)

	// A different address is unaffected.
	require.NoError(t, guard.Attempt(ctx, "10.0.0.2", "admin", "hunter22"))
}

func TestOldFailuresOutsideWindowDoNotCount(t *testing.T) {
	guard, attempts := newGuard(t)
	ctx := context.Background()

	// Two stale failures well outside the counting window.
	stale := time.Now().Add(-2 * auth.BlockWindow)
	attempts.attempts = append(attempts.attempts,
		auth.FailedAttempt{IP: "10.0.0.1", Timestamp: stale},
		auth.FailedAttempt{IP: "10.0.0.1", Timestamp: stale},
	)

	// A fresh failure still reports two attempts remaining.
	err := guard.Attempt(ctx, "10.0.0.1", "admin", "wrong")
	var invalid *auth.InvalidCredentialsError
	require.ErrorAs(t, err, &invalid)
	require.Equal(t, 2, invalid.Remaining)
}

func TestBlockIsPermanent(t *testing.T) {
	guard, attempts := newGuard(t)
	ctx := context.Background()

	for i := 0; i < auth.MaxFailedAttempts; i++ {
		guard.Attempt(ctx, "10.0.0.1", "admin", "wrong")
	}

	// Age every record far beyond the counting window; the blocked record
	// still stands and still rejects.
	attempts.mu.Lock()
	for i := range attempts.attempts {
		attempts.attempts[i].Timestamp = time.Now().Add(-100 * auth.BlockWindow)
	}
	attempts.mu.Unlock()

	require.ErrorIs(t, guard.Attempt(ctx, "10.0.0.1", "admin", "hunter22"), auth.ErrBlocked)
}

func TestSuccessDoesNotClearHistory(t *testing.T) {
	guard, attempts := newGuard(t)
	ctx := context.Background()

	guard.Attempt(ctx, "10.0.0.1", "admin", "wrong")
	require.NoError(t, guard.Attempt(ctx, "10.0.0.1", "admin", "hunter22"))

	// The earlier failure still counts toward the threshold.
	require.Len(t, attempts.attempts, 1)
	err := guard.Attempt(ctx, "10.0.0.1", "admin", "wrong")
	var invalid *auth.InvalidCredentialsError
	require.ErrorAs(t, err, &invalid)
	require.Equal(t, 1, invalid.Remaining)
}

func TestBootstrapWritesHashedDefault(t *testing.T) {
	settings := &memSettingsStore{}
	creds := auth.NewCredentialManager(settings, "admin", "admin")
	require.NoError(t, creds.Bootstrap(context.Background()))

	stored, err := settings.GetCredentials(context.Background())
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.Equal(t, "admin", stored.Username)
	require.NotEqual(t, "admin", stored.PasswordHash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("admin")))

	// Bootstrapping again must not overwrite.
	first := stored.PasswordHash
	require.NoError(t, creds.Bootstrap(context.Background()))
	stored, _ = settings.GetCredentials(context.Background())
	require.Equal(t, first, stored.PasswordHash)
}

func TestChangePassword(t *testing.T) {
	settings := &memSettingsStore{}
	creds := auth.NewCredentialManager(settings, "admin", "hunter22")
	ctx := context.Background()
	require.NoError(t, creds.Bootstrap(ctx))

	require.ErrorIs(t, creds.ChangePassword(ctx, "hunter22", "short"), auth.ErrPasswordTooShort)
	require.ErrorIs(t, creds.ChangePassword(ctx, "nope", "longenough"), auth.ErrInvalidCurrentPassword)

	require.NoError(t, creds.ChangePassword(ctx, "hunter22", "longenough"))

	ok, err := creds.Verify(ctx, "admin", "longenough")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = creds.Verify(ctx, "admin", "hunter22")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestVerifyRejectsWrongUsername(t *testing.T) {
	settings := &memSettingsStore{}
	creds := auth.NewCredentialManager(settings, "admin", "hunter22")
	ctx := context.Background()

	ok, err := creds.Verify(ctx, "root", "hunter22")
	require.NoError(t, err)
	require.False(t, ok)
}
