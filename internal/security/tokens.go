// Package security provides token hashing and constant-time comparison
// for the pipeline's two authentication schemes: per-device bearer
// tokens (looked up by hash, no timing concern since the hash itself
// is the lookup key) and shared admin/internal bearer tokens (compared
// directly, where constant time matters).
package security

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// HashToken returns the hex-encoded SHA-256 digest of a device token.
// Device tokens are never stored in plaintext; only this hash is
// persisted and looked up on each request.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// GenerateDeviceToken returns a new random, URL-safe device token.
func GenerateDeviceToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating device token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// ConstantTimeEquals reports whether two shared-secret tokens match,
// in time independent of where they first differ. Used for the
// ADMIN_TOKEN and INTERNAL_TOKEN bearer checks, which compare a
// presented token against one fixed value rather than looking it up
// by hash.
func ConstantTimeEquals(a, b string) bool {
	if len(a) != len(b) {
		// Still perform a comparison so callers can't distinguish a
		// length mismatch from a content mismatch via timing.
		subtle.ConstantTimeCompare([]byte(a), []byte(a))
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
