package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/oculab/growthtrack/internal/repository"
)

// schema creates the email index table. Applied on open; idempotent.
const schema = `
CREATE TABLE IF NOT EXISTS email_index (
	email      TEXT PRIMARY KEY,
	username   TEXT NOT NULL,
	created_at TEXT NOT NULL DEFAULT (datetime('now'))
);
`

// emailIndex implements repository.EmailIndex backed by SQLite.
// The file store stays the system of record; the index only short-circuits
// the O(n) scan that email lookups would otherwise need.
type emailIndex struct {
	db *DB
}

// NewEmailIndex creates a SQLite-backed email index.
func NewEmailIndex(ctx context.Context, db *DB) (repository.EmailIndex, error) {
	if _, err := db.DB().ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("failed to create email index schema: %w", err)
	}
	return &emailIndex{db: db}, nil
}

// Put records an email → username mapping, replacing any previous entry.
func (i *emailIndex) Put(ctx context.Context, email, username string) error {
	query := `
		INSERT INTO email_index (email, username) VALUES (?, ?)
		ON CONFLICT(email) DO UPDATE SET username = excluded.username
	`
	if _, err := i.db.DB().ExecContext(ctx, query, email, username); err != nil {
		return fmt.Errorf("failed to index email: %w", err)
	}
	return nil
}

// Lookup returns the username registered under an email.
func (i *emailIndex) Lookup(ctx context.Context, email string) (string, error) {
	query := `SELECT username FROM email_index WHERE email = ?`

	var username string
	err := i.db.DB().QueryRowContext(ctx, query, email).Scan(&username)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", repository.ErrNotFound
		}
		return "", fmt.Errorf("failed to look up email: %w", err)
	}
	return username, nil
}

// Delete removes an email from the index.
func (i *emailIndex) Delete(ctx context.Context, email string) error {
	query := `DELETE FROM email_index WHERE email = ?`
	if _, err := i.db.DB().ExecContext(ctx, query, email); err != nil {
		return fmt.Errorf("failed to delete email from index: %w", err)
	}
	return nil
}

// Close closes the backing database.
func (i *emailIndex) Close() error {
	return i.db.Close()
}
