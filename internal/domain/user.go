// Package domain contains the core business entities for growthtrack.
// These are pure Go structs with no external dependencies, representing
// the fundamental concepts of the patient growth tracking system.
package domain

import (
	"time"
)

// User represents a registered user of the growth tracking application.
// One user corresponds to one JSON record on disk, keyed by username.
type User struct {
	// Username is the unique identifier for login. Immutable after creation.
	Username string `json:"username"`

	// Password holds the stored credential in "salt:derivedKeyHex" form.
	// It never contains plaintext after registration and is stripped from
	// every record handed past the authentication boundary.
	Password string `json:"password,omitempty"`

	// Email is the user's email address. Uniqueness is enforced at
	// registration time only.
	Email string `json:"email"`

	// FullName is the user's display name.
	FullName string `json:"fullName"`

	// BirthDate is the patient's birth date in ISO 8601 date form.
	BirthDate string `json:"birthDate"`

	// Gender is the patient's gender as entered on the registration form.
	Gender string `json:"gender"`

	// InstitutionName is the clinic or hospital the user belongs to. Optional.
	InstitutionName string `json:"institutionName,omitempty"`

	// InstitutionAddress is the institution's address. Optional.
	InstitutionAddress string `json:"institutionAddress,omitempty"`

	// LicenseNumber is the practitioner license number. Optional.
	LicenseNumber string `json:"licenseNumber,omitempty"`

	// DataSharing opts the user into the institution's shared data directory.
	DataSharing bool `json:"dataSharing"`

	// UserID is a random token assigned at creation. Immutable. It keys the
	// user's personal data directory.
	UserID string `json:"user_id"`

	// CreatedAt is the timestamp when the record was created.
	CreatedAt time.Time `json:"created_at"`
}

// WithoutPassword returns a copy of the user with the stored hash stripped.
func (u *User) WithoutPassword() *User {
	clone := *u
	clone.Password = ""
	return &clone
}

// HasInstitution reports whether the user entered an institution.
func (u *User) HasInstitution() bool {
	return u.InstitutionName != ""
}

// SharesData reports whether the user's data reads and writes are scoped to
// the institutional shared directory rather than the personal one.
func (u *User) SharesData() bool {
	return u.DataSharing && u.HasInstitution()
}
