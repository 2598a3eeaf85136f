package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/oculab/growthtrack/internal/domain"
	"github.com/oculab/growthtrack/internal/pkg/crypto"
	"github.com/oculab/growthtrack/internal/session"
	"github.com/oculab/growthtrack/internal/storage"
)

// SessionService establishes and tears down login sessions. Logging in
// eagerly resolves and creates the session's data directory, so every later
// data operation can assume it exists.
type SessionService struct {
	store  session.Store
	layout *storage.Layout
	ttl    time.Duration
	logger zerolog.Logger
}

// NewSessionService creates a new SessionService.
func NewSessionService(store session.Store, layout *storage.Layout, ttl time.Duration, logger zerolog.Logger) *SessionService {
	return &SessionService{
		store:  store,
		layout: layout,
		ttl:    ttl,
		logger: logger.With().Str("service", "session").Logger(),
	}
}

// Login binds a session to an authenticated user: the accessible data
// directory is resolved (institutional if the user shares data, personal
// otherwise) and created if absent, and the session is stored under a fresh
// token. The demo user goes through here too; its fixed user ID maps to the
// dedicated demo directory.
func (s *SessionService) Login(ctx context.Context, user *domain.User) (*session.Session, error) {
	dataDir := s.layout.ResolveDataDir(user)
	if err := storage.EnsureDir(dataDir); err != nil {
		s.logger.Error().Err(err).Str("user_id", user.UserID).Msg("failed to create data directory")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	sess := &session.Session{
		Token:     crypto.GenerateSessionToken(),
		User:      user.WithoutPassword(),
		UserID:    user.UserID,
		DataDir:   dataDir,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.store.Put(ctx, sess, s.ttl); err != nil {
		s.logger.Error().Err(err).Str("user_id", user.UserID).Msg("failed to store session")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().
		Str("user_id", user.UserID).
		Str("data_dir", dataDir).
		Bool("shared", user.SharesData()).
		Msg("session established")

	return sess, nil
}

// Logout destroys a session. Unknown tokens are ignored.
func (s *SessionService) Logout(ctx context.Context, token string) error {
	if err := s.store.Delete(ctx, token); err != nil {
		s.logger.Error().Err(err).Msg("failed to delete session")
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	s.logger.Info().Msg("session destroyed")
	return nil
}

// Current returns the session bound to a token, or
// domain.ErrSessionNotFound.
func (s *SessionService) Current(ctx context.Context, token string) (*session.Session, error) {
	return s.store.Get(ctx, token)
}

// IsLoggedIn reports whether the token has an active session.
func (s *SessionService) IsLoggedIn(ctx context.Context, token string) bool {
	_, err := s.store.Get(ctx, token)
	return err == nil
}
