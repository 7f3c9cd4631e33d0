package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// Token size constants (bytes of entropy before encoding).
const (
	// TokenSize128 (16 bytes) suits short-lived bearer tokens such as
	// invitation and password-reset tokens.
	TokenSize128 = 16
	// TokenSize256 (32 bytes) suits long-lived credentials such as
	// refresh tokens.
	TokenSize256 = 32
)

// GenerateToken returns a cryptographically random token of the given
// byte length, base64url encoded without padding.
func GenerateToken(size int) (string, error) {
	if size <= 0 {
		return "", fmt.Errorf("cryptox: token size must be positive, got %d", size)
	}

	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("cryptox: failed to generate random token: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// FingerprintToken returns the deterministic SHA-256 fingerprint of a
// token as base64url. Stores keep the fingerprint, never the raw token,
// so a database leak does not leak usable credentials.
func FingerprintToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
