package save

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// PostgresStore keeps entries in the save_entries table
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore connects and makes sure the schema exists
func NewPostgresStore(ctx context.Context, connectionString string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &PostgresStore{db: db}
	if err := store.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (ps *PostgresStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS save_entries (
		slot TEXT NOT NULL,
		key TEXT NOT NULL,
		value TEXT NOT NULL,
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		PRIMARY KEY (slot, key)
	);
	`
	_, err := ps.db.ExecContext(ctx, schema)
	return err
}

func (ps *PostgresStore) Get(ctx context.Context, slot, key string) (string, bool, error) {
	var value string
	err := ps.db.QueryRowContext(ctx,
		`SELECT value FROM save_entries WHERE slot = $1 AND key = $2`,
		slot, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to load %s/%s: %w", slot, key, err)
	}
	return value, true, nil
}

func (ps *PostgresStore) Put(ctx context.Context, slot, key, value string) error {
	if err := ValidateSlot(slot); err != nil {
		return err
	}
	query := `
	INSERT INTO save_entries (slot, key, value)
	VALUES ($1, $2, $3)
	ON CONFLICT (slot, key)
	DO UPDATE SET value = $3, updated_at = NOW()
	`
	if _, err := ps.db.ExecContext(ctx, query, slot, key, value); err != nil {
		return fmt.Errorf("failed to save %s/%s: %w", slot, key, err)
	}
	return nil
}

func (ps *PostgresStore) DeleteSlot(ctx context.Context, slot string) error {
	if _, err := ps.db.ExecContext(ctx, `DELETE FROM save_entries WHERE slot = $1`, slot); err != nil {
		return fmt.Errorf("failed to delete slot %s: %w", slot, err)
	}
	return nil
}

func (ps *PostgresStore) ListSlots(ctx context.Context) ([]string, error) {
	rows, err := ps.db.QueryContext(ctx, `SELECT DISTINCT slot FROM save_entries ORDER BY slot`)
	if err != nil {
		return nil, fmt.Errorf("failed to list slots: %w", err)
	}
	defer rows.Close()

	var slots []string
	for rows.Next() {
		var slot string
		if err := rows.Scan(&slot); err != nil {
			return nil, fmt.Errorf("failed to scan slot: %w", err)
		}
		slots = append(slots, slot)
	}
	return slots, rows.Err()
}

func (ps *PostgresStore) Close() error {
	return ps.db.Close()
}
