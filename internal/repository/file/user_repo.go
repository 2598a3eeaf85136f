// Package file provides the file-backed user record store.
// Every user is one JSON document under the users root, named by username.
// This layout is the system of record; there is no database behind it.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/oculab/growthtrack/internal/domain"
	"github.com/oculab/growthtrack/internal/repository"
	"github.com/oculab/growthtrack/internal/storage"
)

// userRepository implements repository.UserRepository on the filesystem.
type userRepository struct {
	layout *storage.Layout
	logger zerolog.Logger
}

// NewUserRepository creates a file-backed user repository over a users root.
func NewUserRepository(layout *storage.Layout, logger zerolog.Logger) repository.UserRepository {
	return &userRepository{
		layout: layout,
		logger: logger.With().Str("repository", "file").Logger(),
	}
}

// validUsername guards against usernames that would escape the users root
// when used as a filename.
func validUsername(username string) bool {
	if username == "" || username == "." || username == ".." {
		return false
	}
	return !strings.ContainsAny(username, "/\\\x00")
}

// Create persists a new user record. The existence check and the write are a
// single atomic O_EXCL create, so concurrent registrations of the same
// username cannot both succeed.
func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !validUsername(user.Username) {
		return domain.ErrInvalidUsername
	}

	data, err := json.MarshalIndent(user, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode user record: %w", err)
	}

	path := r.layout.UserFile(user.Username)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("%w: username %q", domain.ErrUserAlreadyExists, user.Username)
		}
		return fmt.Errorf("failed to create user record: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("failed to write user record: %w", err)
	}
	return f.Close()
}

// GetByUsername retrieves a user record by username.
func (r *userRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !validUsername(username) {
		return nil, domain.ErrUserNotFound
	}

	data, err := os.ReadFile(r.layout.UserFile(username))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to read user record: %w", err)
	}

	user := &domain.User{}
	if err := json.Unmarshal(data, user); err != nil {
		r.logger.Warn().Str("username", username).Err(err).Msg("user record failed to parse")
		return nil, fmt.Errorf("%w: %s", domain.ErrMalformedRecord, username)
	}
	return user, nil
}

// GetByEmail scans all user records and returns the first one carrying the
// given email. O(n) in registered users.
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var found *domain.User
	err := r.scan(ctx, func(user *domain.User) bool {
		if user.Email == email {
			found = user
			return false
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, domain.ErrUserNotFound
	}
	return found, nil
}

// ListByInstitution returns every record of the institution that has opted
// into data sharing.
func (r *userRepository) ListByInstitution(ctx context.Context, institutionName string) ([]*domain.User, error) {
	users := make([]*domain.User, 0)
	err := r.scan(ctx, func(user *domain.User) bool {
		if user.InstitutionName == institutionName && user.DataSharing {
			users = append(users, user)
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return users, nil
}

// ExistsByUsername checks whether a record with the given username exists.
func (r *userRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if !validUsername(username) {
		return false, nil
	}

	_, err := os.Stat(r.layout.UserFile(username))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat user record: %w", err)
	}
	return true, nil
}

// scan walks every record file under the users root and feeds parsed records
// to fn until fn returns false. Malformed files are logged and skipped so one
// corrupt record cannot break every lookup.
func (r *userRepository) scan(ctx context.Context, fn func(*domain.User) bool) error {
	entries, err := os.ReadDir(r.layout.Root())
	if err != nil {
		return fmt.Errorf("failed to read users root: %w", err)
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}

		username := strings.TrimSuffix(name, ".json")
		user, err := r.GetByUsername(ctx, username)
		if err != nil {
			r.logger.Warn().Str("file", name).Err(err).Msg("skipping unreadable user record")
			continue
		}
		if !fn(user) {
			return nil
		}
	}
	return nil
}
