package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/oculab/growthtrack/internal/domain"
	"github.com/oculab/growthtrack/internal/repository"
	"github.com/oculab/growthtrack/internal/session"
	"github.com/oculab/growthtrack/internal/storage"
)

// DataService performs session-scoped data I/O and institution listings.
// Every read and write goes through the session's resolved data directory;
// a nil session is a caller bug and fails hard with domain.ErrNoSession.
type DataService struct {
	layout   *storage.Layout
	userRepo repository.UserRepository
	logger   zerolog.Logger
}

// NewDataService creates a new DataService.
func NewDataService(layout *storage.Layout, userRepo repository.UserRepository, logger zerolog.Logger) *DataService {
	return &DataService{
		layout:   layout,
		userRepo: userRepo,
		logger:   logger.With().Str("service", "data").Logger(),
	}
}

// validFilename guards against filenames that would escape the session's
// data directory.
func validFilename(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, "/\\\x00")
}

// Save writes a value as JSON into the session's data directory under the
// given filename, overwriting any existing file. Last writer wins.
func (s *DataService) Save(ctx context.Context, sess *session.Session, filename string, value any) error {
	if sess == nil {
		return domain.ErrNoSession
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if !validFilename(filename) {
		return fmt.Errorf("%w: %q", ErrInvalidFilename, filename)
	}

	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode data: %w", err)
	}

	path := filepath.Join(sess.DataDir, filename)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		s.logger.Error().Err(err).Str("file", filename).Msg("failed to write data file")
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Debug().
		Str("user_id", sess.UserID).
		Str("file", filename).
		Int("bytes", len(data)).
		Msg("data saved")
	return nil
}

// Load returns the JSON content stored under filename in the session's data
// directory. Absent files are domain.ErrDataNotFound; unparsable files are
// domain.ErrMalformedData, so callers may still treat both as absence.
func (s *DataService) Load(ctx context.Context, sess *session.Session, filename string) (json.RawMessage, error) {
	if sess == nil {
		return nil, domain.ErrNoSession
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !validFilename(filename) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFilename, filename)
	}

	data, err := os.ReadFile(filepath.Join(sess.DataDir, filename))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrDataNotFound
		}
		s.logger.Error().Err(err).Str("file", filename).Msg("failed to read data file")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	if !json.Valid(data) {
		s.logger.Warn().Str("user_id", sess.UserID).Str("file", filename).Msg("data file failed to parse")
		return nil, fmt.Errorf("%w: %s", domain.ErrMalformedData, filename)
	}
	return json.RawMessage(data), nil
}

// ListInstitutionPatientIDs enumerates the immediate subdirectories of the
// institution's shared directory, sorted lexicographically. A missing
// directory yields an empty list, not an error.
func (s *DataService) ListInstitutionPatientIDs(ctx context.Context, institutionName string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dir := s.layout.InstitutionDataDir(institutionName)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			ids = append(ids, entry.Name())
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// ListInstitutionUsers returns every user of the institution that has opted
// into data sharing, passwords stripped.
func (s *DataService) ListInstitutionUsers(ctx context.Context, institutionName string) ([]*domain.User, error) {
	users, err := s.userRepo.ListByInstitution(ctx, institutionName)
	if err != nil {
		s.logger.Error().Err(err).Str("institution", institutionName).Msg("failed to list institution users")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	stripped := make([]*domain.User, 0, len(users))
	for _, u := range users {
		stripped = append(stripped, u.WithoutPassword())
	}
	return stripped, nil
}
