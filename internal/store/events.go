package store

import (
	"context"
	"time"
)

// UpsertEvent inserts or updates a calendar event.
func (db *DB) UpsertEvent(e *Event) error {
	return upsertEvent(context.Background(), db, e, time.Now().UnixMilli())
}

// UpsertEvent inserts or updates a calendar event within the transaction.
func (t *Tx) UpsertEvent(e *Event) error {
	return upsertEvent(t.ctx, t.tx, e, t.now)
}

func upsertEvent(ctx context.Context, ex execer, e *Event, now int64) error {
	_, err := ex.ExecContext(ctx, `
		INSERT INTO events (id, title, starts_at, ends_at, all_day, location, calendar, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			starts_at = excluded.starts_at,
			ends_at = excluded.ends_at,
			all_day = excluded.all_day,
			location = excluded.location,
			calendar = excluded.calendar,
			updated_at = excluded.updated_at`,
		e.ID, e.Title, e.StartsAt, e.EndsAt, e.AllDay, e.Location, e.Calendar, now)
	return err
}

// SearchEvents returns events whose title, custom label or location contains
// query.
// Events that have not ended by now come first in start order, followed by
// past events, most recent first. A blank query matches nothing.
func (db *DB) SearchEvents(ctx context.Context, query string, now time.Time, limit int) ([]Event, error) {
	if query == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}
	pattern := likePattern(query)
	nowMs := now.UnixMilli()
	rows, err := db.QueryContext(ctx, `
		SELECT e.id, e.title, e.starts_at, e.ends_at, e.all_day, e.location, e.calendar
		FROM events e
		WHERE e.title LIKE ? ESCAPE '\' OR e.location LIKE ? ESCAPE '\'
			OR `+labelMatchSQL(eventKeySQL)+`
		ORDER BY
			CASE WHEN e.ends_at >= ? THEN 0 ELSE 1 END,
			CASE WHEN e.ends_at >= ? THEN e.starts_at ELSE -e.starts_at END
		LIMIT ?`,
		pattern, pattern, pattern, nowMs, nowMs, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var events []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.Title, &e.StartsAt, &e.EndsAt, &e.AllDay, &e.Location, &e.Calendar); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
