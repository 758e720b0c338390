package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/atelier-lumen/storefront/internal/auth"
)

type AttemptRepository struct {
	db *sql.DB
}

func NewAttemptRepository(database *PostgresDB) *AttemptRepository {
	return &AttemptRepository{db: database.Conn}
}

// HasBlock reports whether any attempt record for the address carries the
// blocked flag. Blocks have no time bound; one blocked record is enough.
func (r *AttemptRepository) HasBlock(ctx context.Context, ip string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM failed_login_attempts WHERE ip = $1 AND blocked = TRUE", ip).
		Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check block: %w", err)
	}
	return count > 0, nil
}

// CountSince counts failed attempts for the address recorded at or after
// the given time.
func (r *AttemptRepository) CountSince(ctx context.Context, ip string, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM failed_login_attempts WHERE ip = $1 AND ts >= $2", ip, since).
		Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count attempts: %w", err)
	}
	return count, nil
}

// Record persists one failed attempt.
func (r *AttemptRepository) Record(ctx context.Context, attempt auth.FailedAttempt) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO failed_login_attempts (ip, username, ts, blocked) VALUES ($1, $2, $3, $4)",
		attempt.IP, attempt.Username, attempt.Timestamp, attempt.Blocked)
	if err != nil {
		return fmt.Errorf("failed to record attempt: %w", err)
	}
	return nil
}
