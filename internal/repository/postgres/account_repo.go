package postgres

import (
	"context"
	"errors"

	"github.com/and161185/signup/internal/errs"
	"github.com/and161185/signup/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// AccountRepo implements AccountRepository using PostgreSQL.
type AccountRepo struct{ q Querier }

// NewAccountRepo constructs an account repository over the pool.
func NewAccountRepo(db *DB) *AccountRepo { return &AccountRepo{q: db.Pool} }

// Create inserts a new account row. Timestamps are assigned by the database;
// confirmed_at starts NULL.
func (r *AccountRepo) Create(ctx context.Context, a *model.Account) error {
	const q = `
INSERT INTO accounts (id, email, username, password_hash, auth_key)
VALUES ($1, $2, $3, $4, $5)
RETURNING created_at, updated_at`
	err := r.q.QueryRow(ctx, q, a.ID, a.Email, a.Username, a.PasswordHash, a.AuthKey).
		Scan(&a.CreatedAt, &a.UpdatedAt)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// GetByID selects an account by ID.
func (r *AccountRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	const q = `
SELECT id, email, username, password_hash, auth_key, confirmed_at, created_at, updated_at
FROM accounts WHERE id=$1`
	return r.scanOne(r.q.QueryRow(ctx, q, id))
}

// GetByCredential selects an account by email or username.
func (r *AccountRepo) GetByCredential(ctx context.Context, emailOrUsername string) (*model.Account, error) {
	const q = `
SELECT id, email, username, password_hash, auth_key, confirmed_at, created_at, updated_at
FROM accounts WHERE email=$1 OR username=$1`
	return r.scanOne(r.q.QueryRow(ctx, q, emailOrUsername))
}

// Confirm sets confirmed_at once. The conditional UPDATE makes repeated calls
// commute: whoever runs first writes the timestamp, everyone else reads the
// already confirmed row back unchanged.
func (r *AccountRepo) Confirm(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	const q = `
UPDATE accounts
SET confirmed_at = now(), updated_at = now()
WHERE id=$1 AND confirmed_at IS NULL
RETURNING id, email, username, password_hash, auth_key, confirmed_at, created_at, updated_at`
	a, err := r.scanOne(r.q.QueryRow(ctx, q, id))
	if errors.Is(err, errs.ErrNotFound) {
		// Already confirmed or genuinely missing; GetByID tells them apart.
		return r.GetByID(ctx, id)
	}
	return a, err
}

func (r *AccountRepo) scanOne(row pgx.Row) (*model.Account, error) {
	var a model.Account
	err := row.Scan(&a.ID, &a.Email, &a.Username, &a.PasswordHash, &a.AuthKey,
		&a.ConfirmedAt, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}
