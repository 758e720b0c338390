package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the floor for new admin passwords.
const MinPasswordLength = 6

var (
	// ErrInvalidCurrentPassword means a password change supplied the wrong
	// current password.
	ErrInvalidCurrentPassword = errors.New("current password incorrect")

	// ErrPasswordTooShort means the new password is below MinPasswordLength.
	ErrPasswordTooShort = errors.New("password too short")
)

// Credentials is the singleton admin credential document.
type Credentials struct {
	Username     string    `json:"username"`
	PasswordHash string    `json:"passwordHash"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// SettingsStore is the admin_settings collection. Get returns nil when no
// credential document exists yet.
type SettingsStore interface {
	GetCredentials(ctx context.Context) (*Credentials, error)
	SaveCredentials(ctx context.Context, creds *Credentials) error
}

// CredentialManager reads and updates the stored admin credentials. There
// is no in-process copy of the password: every check goes through the
// store, and a default bootstrap record is written the first time the
// store comes up empty.
type CredentialManager struct {
	store           SettingsStore
	defaultUsername string
	defaultPassword string
}

func NewCredentialManager(store SettingsStore, defaultUsername, defaultPassword string) *CredentialManager {
	return &CredentialManager{
		store:           store,
		defaultUsername: defaultUsername,
		defaultPassword: defaultPassword,
	}
}

// Bootstrap writes the default credential record if none exists yet.
func (m *CredentialManager) Bootstrap(ctx context.Context) error {
	creds, err := m.store.GetCredentials(ctx)
	if err != nil {
		return fmt.Errorf("failed to read admin credentials: %w", err)
	}
	if creds != nil {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(m.defaultPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash default password: %w", err)
	}
	creds = &Credentials{
		Username:     m.defaultUsername,
		PasswordHash: string(hash),
		UpdatedAt:    time.Now().UTC(),
	}
	if err := m.store.SaveCredentials(ctx, creds); err != nil {
		return fmt.Errorf("failed to save default credentials: %w", err)
	}
	log.Println("🔑 Bootstrapped default admin credentials")
	return nil
}

// Verify checks a username/password pair against the stored credentials.
func (m *CredentialManager) Verify(ctx context.Context, username, password string) (bool, error) {
	creds, err := m.loadOrBootstrap(ctx)
	if err != nil {
		return false, err
	}
	if username != creds.Username {
		return false, nil
	}
	return bcrypt.CompareHashAndPassword([]byte(creds.PasswordHash), []byte(password)) == nil, nil
}

// ChangePassword validates the current password and persists a new hash.
// Already-issued sessions stay valid.
func (m *CredentialManager) ChangePassword(ctx context.Context, currentPassword, newPassword string) error {
	if len(newPassword) < MinPasswordLength {
		return ErrPasswordTooShort
	}

	creds, err := m.loadOrBootstrap(ctx)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(creds.PasswordHash), []byte(currentPassword)) != nil {
		return ErrInvalidCurrentPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	creds.PasswordHash = string(hash)
	creds.UpdatedAt = time.Now().UTC()
	if err := m.store.SaveCredentials(ctx, creds); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}
	return nil
}

func (m *CredentialManager) loadOrBootstrap(ctx context.Context) (*Credentials, error) {
	creds, err := m.store.GetCredentials(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read admin credentials: %w", err)
	}
	if creds == nil {
		if err := m.Bootstrap(ctx); err != nil {
			return nil, err
		}
		creds, err = m.store.GetCredentials(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to read admin credentials: %w", err)
		}
	}
	return creds, nil
}
