package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/and161185/signup/internal/errs"
	"github.com/and161185/signup/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// TokenRepo implements TokenRepository using PostgreSQL.
type TokenRepo struct{ q Querier }

// NewTokenRepo constructs a confirmation-token repository over the pool.
func NewTokenRepo(db *DB) *TokenRepo { return &TokenRepo{q: db.Pool} }

// Create inserts a token row. Issuing a new token does not touch any
// outstanding tokens for the same account.
func (r *TokenRepo) Create(ctx context.Context, t *model.ConfirmationToken) error {
	const q = `
INSERT INTO confirmation_tokens (account_id, code, expires_at)
VALUES ($1, $2, $3)
RETURNING created_at`
	err := r.q.QueryRow(ctx, q, t.AccountID, t.Code, t.ExpiresAt).Scan(&t.CreatedAt)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// Consume deletes the token identified by (accountID, code) and returns it.
// The single conditional DELETE guarantees at most one winner under
// concurrent calls; losers observe ErrNotFound. An expired token is removed
// as well but reported as ErrExpired.
func (r *TokenRepo) Consume(ctx context.Context, accountID uuid.UUID, code string) (*model.ConfirmationToken, error) {
	const q = `
DELETE FROM confirmation_tokens
WHERE account_id=$1 AND code=$2
RETURNING account_id, code, expires_at, created_at`
	var t model.ConfirmationToken
	err := r.q.QueryRow(ctx, q, accountID, code).
		Scan(&t.AccountID, &t.Code, &t.ExpiresAt, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	if t.IsExpired(time.Now()) {
		return nil, fmt.Errorf("token for account %s: %w", accountID, errs.ErrExpired)
	}
	return &t, nil
}
