package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/atelier-lumen/storefront/internal/auth"
)

// adminSettingsID keys the singleton credential document.
const adminSettingsID = "admin"

type SettingsRepository struct {
	db *sql.DB
}

func NewSettingsRepository(database *PostgresDB) *SettingsRepository {
	return &SettingsRepository{db: database.Conn}
}

// GetCredentials returns the stored admin credentials, or nil when no
// credential document exists yet.
func (r *SettingsRepository) GetCredentials(ctx context.Context) (*auth.Credentials, error) {
	var creds auth.Credentials
	err := r.db.QueryRowContext(ctx,
		"SELECT username, password_hash, updated_at FROM admin_settings WHERE id = $1",
		adminSettingsID).
		Scan(&creds.Username, &creds.PasswordHash, &creds.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get admin settings: %w", err)
	}
	return &creds, nil
}

// SaveCredentials upserts the singleton credential document.
func (r *SettingsRepository) SaveCredentials(ctx context.Context, creds *auth.Credentials) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO admin_settings (id, username, password_hash, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET username = EXCLUDED.username,
		    password_hash = EXCLUDED.password_hash,
		    updated_at = EXCLUDED.updated_at
	`, adminSettingsID, creds.Username, creds.PasswordHash, creds.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save admin settings: %w", err)
	}
	return nil
}
