package store

import (
	"context"
	"fmt"
)

// UpsertCustomItem inserts or updates a custom item and replaces its tags.
func (db *DB) UpsertCustomItem(item *CustomItem) error {
	return db.Batch(context.Background(), func(tx *Tx) error {
		return tx.UpsertCustomItem(item)
	})
}

// UpsertCustomItem inserts or updates a custom item within the transaction.
func (t *Tx) UpsertCustomItem(item *CustomItem) error {
	return upsertCustomItem(t.ctx, t.tx, item, t.now)
}

func upsertCustomItem(ctx context.Context, ex execer, item *CustomItem, now int64) error {
	if _, err := ex.ExecContext(ctx, `
		INSERT INTO custom_items (id, label, target, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			label = excluded.label,
			target = excluded.target,
			updated_at = excluded.updated_at`,
		item.ID, item.Label, item.Target, now); err != nil {
		return fmt.Errorf("upsert custom item %q: %w", item.ID, err)
	}
	if _, err := ex.ExecContext(ctx, `DELETE FROM custom_item_tags WHERE item_id = ?`, item.ID); err != nil {
		return fmt.Errorf("clear tags: %w", err)
	}
	for _, tag := range item.Tags {
		if _, err := ex.ExecContext(ctx, `INSERT OR IGNORE INTO custom_item_tags (item_id, tag) VALUES (?, ?)`,
			item.ID, tag); err != nil {
			return fmt.Errorf("insert tag: %w", err)
		}
	}
	return nil
}

// SearchCustomItems returns items whose label, custom label or any tag
// contains query.
// A blank query matches nothing.
func (db *DB) SearchCustomItems(ctx context.Context, query string) ([]CustomItem, error) {
	if query == "" {
		return nil, nil
	}
	pattern := likePattern(query)
	rows, err := db.QueryContext(ctx, `
		SELECT i.id, i.label, i.target
		FROM custom_items i
		WHERE i.label LIKE ? ESCAPE '\'
			OR EXISTS (SELECT 1 FROM custom_item_tags t WHERE t.item_id = i.id AND t.tag LIKE ? ESCAPE '\')
			OR `+labelMatchSQL(customKeySQL)+`
		ORDER BY i.label COLLATE NOCASE`,
		pattern, pattern, pattern)
	if err != nil {
		return nil, err
	}

	var items []CustomItem
	for rows.Next() {
		var it CustomItem
		if err := rows.Scan(&it.ID, &it.Label, &it.Target); err != nil {
			_ = rows.Close()
			return nil, err
		}
		items = append(items, it)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range items {
		tags, err := db.queryStrings(ctx, `SELECT tag FROM custom_item_tags WHERE item_id = ? ORDER BY tag`, items[i].ID)
		if err != nil {
			return nil, fmt.Errorf("load tags: %w", err)
		}
		items[i].Tags = tags
	}
	return items, nil
}
