// Package domain contains the core business entities for growthtrack.
package domain

import (
	"errors"
)

// Domain errors - these represent business rule violations.
// They are distinct from infrastructure errors (filesystem, network, etc.).

var (
	// ErrUserNotFound indicates the requested user record does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrUserAlreadyExists indicates a record with the same username exists.
	ErrUserAlreadyExists = errors.New("user already exists")

	// ErrEmailAlreadyExists indicates another record carries the same email.
	ErrEmailAlreadyExists = errors.New("email already registered")

	// ErrInvalidCredentials indicates authentication failed. Callers cannot
	// distinguish an unknown username from a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrMalformedRecord indicates a user record on disk failed to parse.
	ErrMalformedRecord = errors.New("malformed user record")

	// ErrMalformedData indicates a session data file failed to parse.
	ErrMalformedData = errors.New("malformed data file")

	// ErrDataNotFound indicates no data file exists at the requested name.
	ErrDataNotFound = errors.New("data file not found")

	// ErrNoSession indicates a data-scoped operation was attempted without an
	// active session. This is a programming error in the caller, not a user
	// input problem.
	ErrNoSession = errors.New("no active session")

	// ErrSessionNotFound indicates the session token is unknown or expired.
	ErrSessionNotFound = errors.New("session not found")

	// Validation errors for registration input.
	ErrInvalidUsername = errors.New("invalid username: must be 3-64 characters")
	ErrInvalidEmail    = errors.New("invalid email format")
	ErrInvalidPassword = errors.New("invalid password: must be at least 8 characters")
)
