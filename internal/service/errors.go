// Package service provides business logic services for growthtrack.
package service

import "errors"

// Common service errors. Domain-level conditions (not found, conflicts,
// credential failures) are surfaced as the sentinels in internal/domain;
// these cover service-layer concerns.
var (
	// ErrInternalError wraps unexpected infrastructure failures.
	ErrInternalError = errors.New("internal error")

	// ErrInvalidFilename indicates a data filename that would escape the
	// session's data directory.
	ErrInvalidFilename = errors.New("invalid data filename")
)
