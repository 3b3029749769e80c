package postgres

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// DB wraps the database connection
type DB struct {
	*sql.DB
}

// NewDB creates a new database connection and ensures the schema exists.
// connectionString should be in the format: "host=localhost port=5432 user=postgres password=postgres dbname=investtracker sslmode=disable"
func NewDB(connectionString string) (*DB, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := ensureSchema(db); err != nil {
		return nil, err
	}

	return &DB{DB: db}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}

func ensureSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		is_data_admin BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS assets (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL,
		ticker TEXT NOT NULL UNIQUE,
		category TEXT NOT NULL,
		current_price DECIMAL(15,2) NOT NULL DEFAULT 0,
		last_updated TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS goals (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		category TEXT NOT NULL,
		asset_id UUID REFERENCES assets(id),
		target_amount DECIMAL(15,2) NOT NULL,
		years_to_invest INTEGER NOT NULL,
		monthly_contribution DECIMAL(15,2) NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS purchases (
		id UUID PRIMARY KEY,
		goal_id UUID NOT NULL REFERENCES goals(id) ON DELETE CASCADE,
		asset_id UUID REFERENCES assets(id),
		date DATE NOT NULL,
		purchase_price DECIMAL(15,2) NOT NULL,
		quantity DECIMAL(15,4) NOT NULL,
		notes TEXT NOT NULL DEFAULT ''
	);
	`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}
