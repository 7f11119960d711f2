package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// UpsertContact inserts or updates a contact and replaces its phone numbers
// and email addresses.
func (db *DB) UpsertContact(c *Contact) error {
	return db.Batch(context.Background(), func(tx *Tx) error {
		return tx.UpsertContact(c)
	})
}

// UpsertContact inserts or updates a contact within the transaction.
func (t *Tx) UpsertContact(c *Contact) error {
	return upsertContact(t.ctx, t.tx, c, t.now)
}

func upsertContact(ctx context.Context, ex execer, c *Contact, now int64) error {
	if _, err := ex.ExecContext(ctx, `
		INSERT INTO contacts (id, name, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			updated_at = excluded.updated_at`,
		c.ID, c.Name, now); err != nil {
		return fmt.Errorf("upsert contact %d: %w", c.ID, err)
	}
	if _, err := ex.ExecContext(ctx, `DELETE FROM contact_phones WHERE contact_id = ?`, c.ID); err != nil {
		return fmt.Errorf("clear phones: %w", err)
	}
	if _, err := ex.ExecContext(ctx, `DELETE FROM contact_emails WHERE contact_id = ?`, c.ID); err != nil {
		return fmt.Errorf("clear emails: %w", err)
	}
	for _, p := range c.Phones {
		if _, err := ex.ExecContext(ctx, `INSERT OR IGNORE INTO contact_phones (contact_id, number, digits) VALUES (?, ?, ?)`,
			c.ID, p, digitsOnly(p)); err != nil {
			return fmt.Errorf("insert phone: %w", err)
		}
	}
	for _, e := range c.Emails {
		if _, err := ex.ExecContext(ctx, `INSERT OR IGNORE INTO contact_emails (contact_id, address) VALUES (?, ?)`,
			c.ID, e); err != nil {
			return fmt.Errorf("insert email: %w", err)
		}
	}
	return nil
}

// SearchContacts returns contacts whose name, custom label or email contains
// query, or
// whose phone number contains the query's digits. A blank query matches
// nothing.
func (db *DB) SearchContacts(ctx context.Context, query string) ([]Contact, error) {
	if query == "" {
		return nil, nil
	}
	pattern := likePattern(query)
	digits := digitsOnly(query)
	rows, err := db.QueryContext(ctx, `
		SELECT c.id, c.name
		FROM contacts c
		WHERE c.name LIKE ? ESCAPE '\'
			OR EXISTS (SELECT 1 FROM contact_emails e WHERE e.contact_id = c.id AND e.address LIKE ? ESCAPE '\')
			OR (? != '' AND EXISTS (SELECT 1 FROM contact_phones p WHERE p.contact_id = c.id AND p.digits LIKE ?))
			OR `+labelMatchSQL(contactKeySQL)+`
		ORDER BY c.name COLLATE NOCASE`,
		pattern, pattern, digits, "%"+digits+"%", pattern)
	if err != nil {
		return nil, err
	}

	var contacts []Contact
	for rows.Next() {
		var c Contact
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			_ = rows.Close()
			return nil, err
		}
		contacts = append(contacts, c)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range contacts {
		if err := db.loadContactDetails(ctx, &contacts[i]); err != nil {
			return nil, err
		}
	}
	return contacts, nil
}

// GetContact returns a contact by ID, or nil if it does not exist.
func (db *DB) GetContact(ctx context.Context, id int64) (*Contact, error) {
	c := Contact{ID: id}
	err := db.QueryRowContext(ctx, `SELECT name FROM contacts WHERE id = ?`, id).Scan(&c.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := db.loadContactDetails(ctx, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (db *DB) loadContactDetails(ctx context.Context, c *Contact) error {
	phones, err := db.queryStrings(ctx, `SELECT number FROM contact_phones WHERE contact_id = ? ORDER BY number`, c.ID)
	if err != nil {
		return fmt.Errorf("load phones: %w", err)
	}
	emails, err := db.queryStrings(ctx, `SELECT address FROM contact_emails WHERE contact_id = ? ORDER BY address`, c.ID)
	if err != nil {
		return fmt.Errorf("load emails: %w", err)
	}
	c.Phones, c.Emails = phones, emails
	return nil
}

func (db *DB) queryStrings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
