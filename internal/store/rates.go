package store

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// SetRates upserts exchange rates, given as units of currency per euro.
func (db *DB) SetRates(ctx context.Context, rates map[string]float64, at time.Time) error {
	return db.Batch(ctx, func(tx *Tx) error {
		for cur, rate := range rates {
			if _, err := tx.tx.ExecContext(ctx, `
				INSERT INTO currency_rates (currency, per_euro, updated_at) VALUES (?, ?, ?)
				ON CONFLICT(currency) DO UPDATE SET
					per_euro = excluded.per_euro,
					updated_at = excluded.updated_at`,
				strings.ToUpper(cur), rate, at.UnixMilli()); err != nil {
				return fmt.Errorf("upsert rate %s: %w", cur, err)
			}
		}
		return nil
	})
}

// Rates returns all known rates per euro, including EUR itself, and the
// time of the oldest stored rate. The time is zero if no rates are stored.
func (db *DB) Rates(ctx context.Context) (map[string]float64, time.Time, error) {
	rows, err := db.QueryContext(ctx, `SELECT currency, per_euro, updated_at FROM currency_rates`)
	if err != nil {
		return nil, time.Time{}, err
	}
	defer func() { _ = rows.Close() }()

	rates := map[string]float64{"EUR": 1}
	var oldest int64
	for rows.Next() {
		var (
			cur  string
			rate float64
			at   int64
		)
		if err := rows.Scan(&cur, &rate, &at); err != nil {
			return nil, time.Time{}, err
		}
		rates[cur] = rate
		if oldest == 0 || at < oldest {
			oldest = at
		}
	}
	if err := rows.Err(); err != nil {
		return nil, time.Time{}, err
	}
	if oldest == 0 {
		return rates, time.Time{}, nil
	}
	return rates, time.UnixMilli(oldest), nil
}
