package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Well-known sync_state keys.
const (
	StateCatalogHash     = "catalog.hash"
	StateCatalogImported = "catalog.imported_at"
	StateRatesFetched    = "rates.fetched_at"
)

// SetState stores a key/value pair.
func (db *DB) SetState(ctx context.Context, key, value string) error {
	return setState(ctx, db, key, value)
}

// SetState stores a key/value pair within the transaction.
func (t *Tx) SetState(key, value string) error {
	return setState(t.ctx, t.tx, key, value)
}

func setState(ctx context.Context, ex execer, key, value string) error {
	_, err := ex.ExecContext(ctx, `
		INSERT INTO sync_state (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}

// State returns the value stored for key, or "" if unset.
func (db *DB) State(ctx context.Context, key string) (string, error) {
	var v string
	err := db.QueryRowContext(ctx, `SELECT value FROM sync_state WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return v, err
}

// Counts returns the number of rows per catalog table.
func (db *DB) Counts(ctx context.Context) (map[string]int64, error) {
	out := make(map[string]int64)
	for _, table := range []string{"apps", "shortcuts", "contacts", "events", "custom_items", "custom_labels"} {
		var n int64
		if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
			return nil, fmt.Errorf("count %s: %w", table, err)
		}
		out[table] = n
	}
	return out, nil
}
