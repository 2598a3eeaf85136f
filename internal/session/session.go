// Package session manages ephemeral login sessions for growthtrack.
// A session binds an authenticated user to the data directory their reads
// and writes are scoped to. Sessions are never process-global: they live in
// a Store keyed by opaque token, and every data-scoped call receives the
// session handle explicitly.
package session

import (
	"context"
	"time"

	"github.com/oculab/growthtrack/internal/domain"
)

// Session is the ephemeral binding of an authenticated identity to its
// resolved data directory. The embedded user record never carries a
// password.
type Session struct {
	// Token is the opaque identifier the client presents on each request.
	Token string `json:"token"`

	// User is the authenticated record, password stripped.
	User *domain.User `json:"user"`

	// UserID mirrors User.UserID for quick access.
	UserID string `json:"user_id"`

	// DataDir is the resolved, existing data directory for this session.
	DataDir string `json:"data_dir"`

	// CreatedAt is when the session was established.
	CreatedAt time.Time `json:"created_at"`
}

// Store defines the interface for session persistence.
// Implementations: in-memory (single node) and Redis (shared across nodes).
type Store interface {
	// Put stores a session under its token with the given TTL.
	Put(ctx context.Context, sess *Session, ttl time.Duration) error

	// Get retrieves a session by token.
	// Returns domain.ErrSessionNotFound if the token is unknown or expired.
	Get(ctx context.Context, token string) (*Session, error)

	// Delete removes a session. Deleting an absent token is not an error.
	Delete(ctx context.Context, token string) error

	// Close releases the store's resources.
	Close() error
}
