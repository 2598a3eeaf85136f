// Package crypto provides cryptographic utilities for growthtrack.
package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// Password hashing parameters.
const (
	// SaltSize is the salt length in bytes (128 bits).
	SaltSize = 16

	// KeySize is the derived key length in bytes.
	KeySize = 32

	// Iterations is the PBKDF2 iteration count.
	Iterations = 100_000
)

// hashSeparator splits the salt from the derived key in stored values.
const hashSeparator = ":"

// HashPassword derives a stored credential from a plaintext password.
// The result has the form "salt:derivedKeyHex" where salt is a hex-encoded
// random 128-bit value and the key is PBKDF2-HMAC-SHA256 over the password.
// Two calls with the same password produce different results.
func HashPassword(password string) (string, error) {
	saltBytes := make([]byte, SaltSize)
	if _, err := rand.Read(saltBytes); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}
	salt := hex.EncodeToString(saltBytes)

	key := pbkdf2.Key([]byte(password), []byte(salt), Iterations, KeySize, sha256.New)
	return salt + hashSeparator + hex.EncodeToString(key), nil
}

// VerifyPassword reports whether the password matches the stored credential.
// Any malformed stored value (missing separator, bad hex) verifies as false;
// malformation is never surfaced as an error.
func VerifyPassword(password, stored string) bool {
	salt, keyHex, ok := strings.Cut(stored, hashSeparator)
	if !ok {
		return false
	}

	want, err := hex.DecodeString(keyHex)
	if err != nil || len(want) == 0 {
		return false
	}

	got := pbkdf2.Key([]byte(password), []byte(salt), Iterations, len(want), sha256.New)
	return subtle.ConstantTimeCompare(got, want) == 1
}
