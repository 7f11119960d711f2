package store

import (
	"context"
	"fmt"
	"time"
)

// SetLabel sets the custom label for key. An empty label removes it.
func (db *DB) SetLabel(ctx context.Context, key, label string) error {
	return setLabel(ctx, db, key, label, time.Now().UnixMilli())
}

// SetLabel sets a custom label within the transaction.
func (t *Tx) SetLabel(key, label string) error {
	return setLabel(t.ctx, t.tx, key, label, t.now)
}

func setLabel(ctx context.Context, ex execer, key, label string, now int64) error {
	if label == "" {
		_, err := ex.ExecContext(ctx, `DELETE FROM custom_labels WHERE key = ?`, key)
		return err
	}
	_, err := ex.ExecContext(ctx, `
		INSERT INTO custom_labels (key, label, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			label = excluded.label,
			updated_at = excluded.updated_at`,
		key, label, now)
	return err
}

// Result keys as built by the search package, for matching custom labels
// inside queries.
const (
	appKeySQL      = `'app://' || a.package || '/' || a.activity || CASE WHEN a.profile = 'personal' THEN '' ELSE '@' || a.profile END`
	shortcutKeySQL = `'shortcut://' || s.package || '/' || s.shortcut_id`
	contactKeySQL  = `'contact://' || c.id`
	eventKeySQL    = `'calendar://' || e.id`
	customKeySQL   = `'custom://' || i.id`
)

// labelMatchSQL is a WHERE term that holds when the custom label of the row
// keyed by keySQL matches the next LIKE argument.
func labelMatchSQL(keySQL string) string {
	return `EXISTS (SELECT 1 FROM custom_labels l WHERE l.key = ` + keySQL + ` AND l.label LIKE ? ESCAPE '\')`
}

// ResolveLabels returns the custom labels defined for keys. Keys without a
// label are absent from the result.
func (db *DB) ResolveLabels(ctx context.Context, keys []string) (map[string]string, error) {
	out := make(map[string]string)
	// Stay well below SQLITE_MAX_VARIABLE_NUMBER.
	const chunk = 500
	for start := 0; start < len(keys); start += chunk {
		end := min(start+chunk, len(keys))
		args := make([]any, end-start)
		for i, k := range keys[start:end] {
			args[i] = k
		}
		rows, err := db.QueryContext(ctx,
			`SELECT key, label FROM custom_labels WHERE key IN (`+placeholders(len(args))+`)`, args...)
		if err != nil {
			return nil, fmt.Errorf("query labels: %w", err)
		}
		for rows.Next() {
			var k, v string
			if err := rows.Scan(&k, &v); err != nil {
				_ = rows.Close()
				return nil, err
			}
			out[k] = v
		}
		if err := rows.Close(); err != nil {
			return nil, err
		}
		if err := rows.Err(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ListLabels returns every custom label ordered by key.
func (db *DB) ListLabels(ctx context.Context) ([]Label, error) {
	rows, err := db.QueryContext(ctx, `SELECT key, label FROM custom_labels ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var labels []Label
	for rows.Next() {
		var l Label
		if err := rows.Scan(&l.Key, &l.Label); err != nil {
			return nil, err
		}
		labels = append(labels, l)
	}
	return labels, rows.Err()
}
