// Package crypto implements password hashing, verification and secret generation.
package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"

	"golang.org/x/crypto/bcrypt"
)

const (
	// bcryptCost is tuned for server-side hashing.
	bcryptCost = 12

	// secretBytes of CSPRNG output per generated secret (256 bits).
	secretBytes = 32
)

// HashPassword returns a salted bcrypt hash of the plaintext password.
// The salt is embedded in the returned string; no separate column is needed.
func HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// VerifyPassword reports whether password matches the stored bcrypt hash.
// A malformed hash yields false, not an error.
func VerifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// GenerateSecret returns a cryptographically secure random string suitable
// for auth keys and confirmation token codes.
func GenerateSecret() (string, error) {
	b := make([]byte, secretBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// ValidateAuthKey compares a presented auth key against the stored one
// without leaking the mismatch position.
func ValidateAuthKey(presented, stored string) bool {
	return subtle.ConstantTimeCompare([]byte(presented), []byte(stored)) == 1
}
