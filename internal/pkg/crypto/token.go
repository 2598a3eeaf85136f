// Package crypto provides cryptographic utilities for growthtrack.
package crypto

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

// UserIDSize is the user ID entropy in bytes. The encoded ID is twice as
// many hex characters.
const UserIDSize = 8

// GenerateUserID generates a random user ID token.
// Format: 16 lowercase hex characters.
// Example: "9f86d081884c7d65"
func GenerateUserID() (string, error) {
	b := make([]byte, UserIDSize)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate user ID: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// GenerateSessionToken generates an opaque session token.
func GenerateSessionToken() string {
	return uuid.NewString()
}
