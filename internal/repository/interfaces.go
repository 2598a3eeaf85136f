// Package repository defines data access interfaces for growthtrack.
// These interfaces abstract the user record store, allowing for different
// implementations (file-backed, in-memory for testing) while keeping the
// service layer clean.
package repository

import (
	"context"

	"github.com/oculab/growthtrack/internal/domain"
)

// UserRepository defines the interface for user record access.
type UserRepository interface {
	// Create persists a new user record. The create is atomic: if a record
	// with the same username already exists, domain.ErrUserAlreadyExists is
	// returned and the existing record is left untouched.
	Create(ctx context.Context, user *domain.User) error

	// GetByUsername retrieves a user record by username.
	// Returns domain.ErrUserNotFound if no record exists and
	// domain.ErrMalformedRecord if the backing file cannot be parsed.
	GetByUsername(ctx context.Context, username string) (*domain.User, error)

	// GetByEmail retrieves the first user record carrying the given email.
	// This scans all records; malformed files are skipped.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// ListByInstitution returns all records whose institution matches the
	// given name and which have opted into data sharing. Passwords are not
	// stripped here; callers decide what crosses their boundary.
	ListByInstitution(ctx context.Context, institutionName string) ([]*domain.User, error)

	// ExistsByUsername checks whether a record with the given username exists.
	ExistsByUsername(ctx context.Context, username string) (bool, error)
}

// EmailIndex maps emails to usernames so that email lookups avoid a full
// scan of the users root. The index is an optional optimization: it is
// maintained at registration time and consulted before falling back to the
// repository scan.
type EmailIndex interface {
	// Put records an email → username mapping.
	Put(ctx context.Context, email, username string) error

	// Lookup returns the username registered under an email.
	// Returns ErrNotFound if the email is not indexed.
	Lookup(ctx context.Context, email string) (string, error)

	// Delete removes an email from the index.
	Delete(ctx context.Context, email string) error

	// Close releases the index's resources.
	Close() error
}
