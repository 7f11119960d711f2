package store

import (
	"context"
	"time"
)

// UpsertApp inserts or updates an application.
func (db *DB) UpsertApp(a *App) error {
	return upsertApp(context.Background(), db, a, time.Now().UnixMilli())
}

// UpsertApp inserts or updates an application within the transaction.
func (t *Tx) UpsertApp(a *App) error {
	return upsertApp(t.ctx, t.tx, a, t.now)
}

func upsertApp(ctx context.Context, ex execer, a *App, now int64) error {
	profile := a.Profile
	if profile == "" {
		profile = "personal"
	}
	_, err := ex.ExecContext(ctx, `
		INSERT INTO apps (package, activity, label, profile, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(package, activity, profile) DO UPDATE SET
			label = excluded.label,
			updated_at = excluded.updated_at`,
		a.Package, a.Activity, a.Label, profile, now)
	return err
}

// SearchApps returns apps whose label or custom label contains query,
// ignoring case. A blank query returns every app.
func (db *DB) SearchApps(ctx context.Context, query string) ([]App, error) {
	pattern := likePattern(query)
	rows, err := db.QueryContext(ctx, `
		SELECT a.package, a.activity, a.label, a.profile
		FROM apps a
		WHERE ? = '' OR a.label LIKE ? ESCAPE '\' OR `+labelMatchSQL(appKeySQL)+`
		ORDER BY a.label COLLATE NOCASE, a.package`,
		query, pattern, pattern)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var apps []App
	for rows.Next() {
		var a App
		if err := rows.Scan(&a.Package, &a.Activity, &a.Label, &a.Profile); err != nil {
			return nil, err
		}
		apps = append(apps, a)
	}
	return apps, rows.Err()
}

// UpsertShortcut inserts or updates a shortcut.
func (db *DB) UpsertShortcut(s *Shortcut) error {
	return upsertShortcut(context.Background(), db, s, time.Now().UnixMilli())
}

// UpsertShortcut inserts or updates a shortcut within the transaction.
func (t *Tx) UpsertShortcut(s *Shortcut) error {
	return upsertShortcut(t.ctx, t.tx, s, t.now)
}

func upsertShortcut(ctx context.Context, ex execer, s *Shortcut, now int64) error {
	_, err := ex.ExecContext(ctx, `
		INSERT INTO shortcuts (package, shortcut_id, label, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(package, shortcut_id) DO UPDATE SET
			label = excluded.label,
			updated_at = excluded.updated_at`,
		s.Package, s.ShortcutID, s.Label, now)
	return err
}

// SearchShortcuts returns shortcuts whose label, custom label or app label
// contains query. A blank query matches nothing.
func (db *DB) SearchShortcuts(ctx context.Context, query string) ([]Shortcut, error) {
	if query == "" {
		return nil, nil
	}
	pattern := likePattern(query)
	rows, err := db.QueryContext(ctx, `
		SELECT s.package, s.shortcut_id, s.label,
			COALESCE((SELECT a.label FROM apps a WHERE a.package = s.package ORDER BY a.profile LIMIT 1), '')
		FROM shortcuts s
		WHERE s.label LIKE ? ESCAPE '\'
			OR EXISTS (SELECT 1 FROM apps a WHERE a.package = s.package AND a.label LIKE ? ESCAPE '\')
			OR `+labelMatchSQL(shortcutKeySQL)+`
		ORDER BY s.label COLLATE NOCASE`,
		pattern, pattern, pattern)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Shortcut
	for rows.Next() {
		var s Shortcut
		if err := rows.Scan(&s.Package, &s.ShortcutID, &s.Label, &s.AppLabel); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
