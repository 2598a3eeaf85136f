// Package service provides business logic services for growthtrack.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/rs/zerolog"

	"github.com/oculab/growthtrack/internal/domain"
	"github.com/oculab/growthtrack/internal/pkg/crypto"
	"github.com/oculab/growthtrack/internal/repository"
	"github.com/oculab/growthtrack/internal/storage"
)

// AuthService handles registration and credential verification.
type AuthService struct {
	userRepo   repository.UserRepository
	emailIndex repository.EmailIndex // optional, may be nil
	logger     zerolog.Logger
}

// NewAuthService creates a new AuthService. emailIndex may be nil, in which
// case email lookups fall back to a full scan of the user records.
func NewAuthService(userRepo repository.UserRepository, emailIndex repository.EmailIndex, logger zerolog.Logger) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		emailIndex: emailIndex,
		logger:     logger.With().Str("service", "auth").Logger(),
	}
}

// RegisterInput contains the data needed to register a user.
type RegisterInput struct {
	Username           string
	Password           string
	Email              string
	FullName           string
	BirthDate          string
	Gender             string
	InstitutionName    string
	InstitutionAddress string
	LicenseNumber      string
	DataSharing        bool
}

// Register creates a new user record. The plaintext password is hashed in
// place, a fresh user ID and creation timestamp are stamped, and the record
// is written with an atomic create-if-absent. A duplicate username returns
// domain.ErrUserAlreadyExists and never overwrites the existing record.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	if err := s.validateRegisterInput(input); err != nil {
		return nil, err
	}

	// Email uniqueness is best effort: checked here, not guaranteed under
	// concurrent registration.
	if _, err := s.FindByEmail(ctx, input.Email); err == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrEmailAlreadyExists, input.Email)
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		s.logger.Error().Err(err).Msg("failed to check email uniqueness")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	passwordHash, err := crypto.HashPassword(input.Password)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to hash password")
		return nil, fmt.Errorf("%w: failed to hash password", ErrInternalError)
	}

	userID, err := crypto.GenerateUserID()
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to generate user ID")
		return nil, fmt.Errorf("%w: failed to generate user ID", ErrInternalError)
	}

	user := &domain.User{
		Username:           input.Username,
		Password:           passwordHash,
		Email:              input.Email,
		FullName:           input.FullName,
		BirthDate:          input.BirthDate,
		Gender:             input.Gender,
		InstitutionName:    input.InstitutionName,
		InstitutionAddress: input.InstitutionAddress,
		LicenseNumber:      input.LicenseNumber,
		DataSharing:        input.DataSharing,
		UserID:             userID,
		CreatedAt:          time.Now().UTC(),
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrUserAlreadyExists) {
			return nil, err
		}
		s.logger.Error().Err(err).Str("username", input.Username).Msg("failed to create user")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	// The record on disk is the source of truth; an index write failure
	// only slows future lookups down.
	if s.emailIndex != nil {
		if err := s.emailIndex.Put(ctx, user.Email, user.Username); err != nil {
			s.logger.Warn().Err(err).Str("username", user.Username).Msg("failed to index email")
		}
	}

	s.logger.Info().
		Str("username", user.Username).
		Str("user_id", user.UserID).
		Bool("data_sharing", user.DataSharing).
		Msg("user registered")

	return user.WithoutPassword(), nil
}

// Authenticate verifies user credentials and returns the record with the
// password stripped. Every failure mode — unknown username, wrong password,
// malformed stored hash — surfaces as domain.ErrInvalidCredentials, so
// callers cannot enumerate accounts.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		// Log but don't expose whether the username exists.
		s.logger.Debug().Str("username", username).Err(err).Msg("user lookup failed during authentication")
		return nil, domain.ErrInvalidCredentials
	}

	if !crypto.VerifyPassword(password, user.Password) {
		s.logger.Debug().Str("username", username).Msg("invalid password during authentication")
		return nil, domain.ErrInvalidCredentials
	}

	s.logger.Info().
		Str("username", user.Username).
		Str("user_id", user.UserID).
		Msg("user authenticated")

	return user.WithoutPassword(), nil
}

// FindByEmail returns the record registered under an email, password
// stripped. Uses the email index when configured; otherwise scans all
// records.
func (s *AuthService) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	if s.emailIndex != nil {
		username, err := s.emailIndex.Lookup(ctx, email)
		switch {
		case err == nil:
			user, err := s.userRepo.GetByUsername(ctx, username)
			if err == nil {
				return user.WithoutPassword(), nil
			}
			// Stale index entry; fall through to the scan.
			s.logger.Warn().Str("email", email).Str("username", username).Msg("email index entry is stale")
		case !errors.Is(err, repository.ErrNotFound):
			s.logger.Warn().Err(err).Msg("email index lookup failed, falling back to scan")
		}
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return user.WithoutPassword(), nil
}

// DemoUser fabricates the fixed demo account. It is never persisted and
// bypasses credential verification entirely.
func (s *AuthService) DemoUser() *domain.User {
	return &domain.User{
		Username:           "demo_user",
		FullName:           "Demo User",
		Email:              "demo@example.com",
		BirthDate:          "2010-01-01",
		Gender:             "M",
		InstitutionName:    "Demo Hospital",
		InstitutionAddress: "Gangnam-gu, Seoul",
		LicenseNumber:      "DEMO123456",
		DataSharing:        false,
		UserID:             storage.DemoUserID,
		CreatedAt:          time.Now().UTC(),
	}
}

// validateRegisterInput validates the input for registering a user.
func (s *AuthService) validateRegisterInput(input RegisterInput) error {
	if len(input.Username) < 3 || len(input.Username) > 64 {
		return domain.ErrInvalidUsername
	}
	if _, err := mail.ParseAddress(input.Email); err != nil {
		return domain.ErrInvalidEmail
	}
	if len(input.Password) < 8 {
		return domain.ErrInvalidPassword
	}
	return nil
}
