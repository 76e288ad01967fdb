// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/and161185/signup/internal/model"
	"github.com/gofrs/uuid/v5"
)

// AccountRepository provides persistence for accounts.
// Create expects a pre-hashed credential; repositories never hash.
type AccountRepository interface {
	// Create inserts a new account with confirmed_at NULL and
	// store-assigned timestamps. Returns errs.ErrAlreadyExists on a
	// unique email/username violation.
	Create(ctx context.Context, a *model.Account) error
	// GetByID loads an account by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Account, error)
	// GetByCredential loads an account by email or username.
	GetByCredential(ctx context.Context, emailOrUsername string) (*model.Account, error)
	// Confirm sets confirmed_at to now if currently NULL and returns the
	// account. Re-invocation on an already confirmed account is a no-op
	// returning the current state, not an error.
	Confirm(ctx context.Context, id uuid.UUID) (*model.Account, error)
}
