// Package model defines domain entities used by services and repositories.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// RememberFor is the default session duration granted after confirmation.
const RememberFor = 86400 * time.Second

// Account is a registered user's durable identity record.
// The plaintext password never appears here; only its bcrypt hash is stored.
type Account struct {
	ID           uuid.UUID  // PK
	Email        string     // unique
	Username     string     // unique
	PasswordHash string     // bcrypt, self-contained (salt embedded)
	AuthKey      string     // long-lived "remember me" secret, generated once
	ConfirmedAt  *time.Time // nil until the email is confirmed
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsConfirmed reports whether the account has completed email confirmation.
func (a *Account) IsConfirmed() bool { return a.ConfirmedAt != nil }

// RegisterDraft carries caller-supplied registration input.
// Password exists only in memory; it is hashed before anything is persisted.
type RegisterDraft struct {
	Email    string
	Username string
	Password string
}

// ConfirmationToken is a single-use secret gating account activation.
// It references its account but does not own it.
type ConfirmationToken struct {
	AccountID uuid.UUID
	Code      string // unique, high-entropy
	ExpiresAt time.Time
	CreatedAt time.Time
}

// IsExpired reports whether the token is past its expiry at the given instant.
func (t *ConfirmationToken) IsExpired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// Session is the artifact granting authenticated access for a bounded duration.
type Session struct {
	AccountID uuid.UUID
	Token     string
	ExpiresAt time.Time
}
