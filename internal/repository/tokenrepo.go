package repository

import (
	"context"

	"github.com/and161185/signup/internal/model"
	"github.com/gofrs/uuid/v5"
)

// TokenRepository provides persistence for single-use confirmation tokens.
type TokenRepository interface {
	// Create inserts a token. The code is generated by the caller and must
	// be high-entropy; the store enforces (account_id, code) uniqueness.
	Create(ctx context.Context, t *model.ConfirmationToken) error
	// Consume atomically deletes the token identified by (accountID, code)
	// and returns it. At most one concurrent caller succeeds; the rest see
	// errs.ErrNotFound. A token past its expiry is removed but reported as
	// errs.ErrExpired and must never be treated as valid.
	Consume(ctx context.Context, accountID uuid.UUID, code string) (*model.ConfirmationToken, error)
}
