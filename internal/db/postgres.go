package db

import (
	"database/sql"
	"fmt"
	"log"

	_ "github.com/lib/pq"
)

type PostgresDB struct {
	Conn *sql.DB
}

func NewPostgresDB(host string, port int, user, password, dbname string) (*PostgresDB, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname,
	)

	conn, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("✅ Connected to PostgreSQL")
	return &PostgresDB{Conn: conn}, nil
}

// EnsureSchema creates the document collections on boot if they do not
// exist yet.
func (db *PostgresDB) EnsureSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS items (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			price DOUBLE PRECISION NOT NULL DEFAULT 0,
			inventory INTEGER NOT NULL DEFAULT 0 CHECK (inventory >= 0),
			image_svg TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS orders (
			id TEXT PRIMARY KEY,
			buyer JSONB,
			total DOUBLE PRECISION NOT NULL DEFAULT 0,
			shipped BOOLEAN NOT NULL DEFAULT FALSE,
			shipped_at TIMESTAMPTZ,
			shipping_provider TEXT,
			tracking_id TEXT,
			email_customer_notified BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS order_items (
			order_id TEXT NOT NULL REFERENCES orders(id),
			item_id TEXT NOT NULL,
			qty INTEGER NOT NULL,
			price DOUBLE PRECISION NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS failed_login_attempts (
			id SERIAL PRIMARY KEY,
			ip TEXT NOT NULL,
			username TEXT NOT NULL DEFAULT '',
			ts TIMESTAMPTZ NOT NULL DEFAULT now(),
			blocked BOOLEAN NOT NULL DEFAULT FALSE
		)`,
		`CREATE INDEX IF NOT EXISTS failed_login_attempts_ip_idx
			ON failed_login_attempts (ip, ts)`,
		`CREATE TABLE IF NOT EXISTS admin_settings (
			id TEXT PRIMARY KEY,
			username TEXT NOT NULL,
			password_hash TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.Conn.Exec(stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}

func (db *PostgresDB) Close() error {
	return db.Conn.Close()
}
