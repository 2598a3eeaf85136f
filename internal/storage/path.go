// Package storage computes on-disk paths for the growthtrack users root.
// All persisted state lives under a single root directory: one JSON record
// per user, a personal data directory per user ID, and a shared data
// directory per institution.
package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/oculab/growthtrack/internal/domain"
)

// Layout constants for the users root.
const (
	// userFileExt is the extension of per-user record files.
	userFileExt = ".json"

	// dataDirSuffix terminates every data directory name.
	dataDirSuffix = "_data"

	// institutionDirPrefix marks institutional shared directories.
	institutionDirPrefix = "institution_"

	// DemoUserID is the fixed user ID of the demo account.
	DemoUserID = "demo"

	// institutionHashLen is the number of hex characters of the raw-name hash
	// appended to sanitized institution names to keep distinct institutions
	// in distinct directories.
	institutionHashLen = 8
)

// Layout resolves paths under a users root directory.
type Layout struct {
	root string
}

// NewLayout creates a Layout rooted at the given directory. The root itself
// is created if absent.
func NewLayout(root string) (*Layout, error) {
	if root == "" {
		return nil, fmt.Errorf("users root must not be empty")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create users root %s: %w", root, err)
	}
	return &Layout{root: root}, nil
}

// Root returns the users root directory.
func (l *Layout) Root() string {
	return l.root
}

// UserFile returns the path of the record file for a username.
func (l *Layout) UserFile(username string) string {
	return filepath.Join(l.root, username+userFileExt)
}

// UserDataDir returns the personal data directory path for a user ID.
// The directory is not created.
func (l *Layout) UserDataDir(userID string) string {
	return filepath.Join(l.root, userID+dataDirSuffix)
}

// InstitutionDataDir returns the shared data directory path for an
// institution name. The directory is not created.
func (l *Layout) InstitutionDataDir(name string) string {
	return filepath.Join(l.root, institutionDirPrefix+InstitutionDirToken(name)+dataDirSuffix)
}

// DemoDataDir returns the dedicated demo-mode data directory path.
func (l *Layout) DemoDataDir() string {
	return l.UserDataDir(DemoUserID)
}

// ResolveDataDir returns the data directory a user's session may read and
// write: the institutional shared directory when the user opted into data
// sharing, the personal directory otherwise. Pure path computation; nothing
// is created.
func (l *Layout) ResolveDataDir(user *domain.User) string {
	if user.SharesData() {
		return l.InstitutionDataDir(user.InstitutionName)
	}
	return l.UserDataDir(user.UserID)
}

// EnsureDir creates a directory if it does not exist. Idempotent.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

// SanitizeInstitutionName reduces an institution name to a filesystem-safe
// token: only alphanumerics, hyphens, underscores, and spaces survive, and
// spaces become underscores.
func SanitizeInstitutionName(name string) string {
	var b strings.Builder
	for _, c := range name {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			b.WriteRune(c)
		case c == '-' || c == '_' || c == ' ':
			b.WriteRune(c)
		}
	}
	return strings.ReplaceAll(strings.TrimSpace(b.String()), " ", "_")
}

// InstitutionDirToken returns the directory token for an institution name:
// the sanitized name plus a short hash of the raw name. Sanitization alone is
// lossy, so two distinct names can sanitize identically; the hash fragment
// keeps their directories apart.
func InstitutionDirToken(name string) string {
	sum := sha256.Sum256([]byte(name))
	suffix := hex.EncodeToString(sum[:])[:institutionHashLen]

	sanitized := SanitizeInstitutionName(name)
	if sanitized == "" {
		return suffix
	}
	return sanitized + "-" + suffix
}
