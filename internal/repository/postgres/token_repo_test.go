package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/and161185/signup/internal/errs"
	"github.com/and161185/signup/internal/model"
	"github.com/and161185/signup/internal/repository"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"
)

func TestTokenRepo_Create_OK_and_UniqueViolation(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewTokenRepo(db)
	ctx := context.Background()
	tok := &model.ConfirmationToken{
		AccountID: uuid.Must(uuid.NewV4()),
		Code:      "code",
		ExpiresAt: time.Now().Add(time.Hour),
	}
	now := time.Now()

	mock.ExpectQuery(`INSERT INTO confirmation_tokens \(account_id, code, expires_at\) VALUES \(\$1, \$2, \$3\) RETURNING created_at`).
		WithArgs(tok.AccountID, tok.Code, tok.ExpiresAt).
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(now))
	require.NoError(t, r.Create(ctx, tok))
	require.Equal(t, now, tok.CreatedAt)

	mock.ExpectQuery(`INSERT INTO confirmation_tokens \(account_id, code, expires_at\) VALUES \(\$1, \$2, \$3\) RETURNING created_at`).
		WithArgs(tok.AccountID, tok.Code, tok.ExpiresAt).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	err := r.Create(ctx, tok)
	require.ErrorIs(t, err, errs.ErrAlreadyExists)
}

func TestTokenRepo_Consume_OK(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewTokenRepo(db)
	ctx := context.Background()
	accountID := uuid.Must(uuid.NewV4())
	exp := time.Now().Add(time.Hour)
	created := time.Now().Add(-time.Minute)

	mock.ExpectQuery(`DELETE FROM confirmation_tokens WHERE account_id=\$1 AND code=\$2 RETURNING account_id, code, expires_at, created_at`).
		WithArgs(accountID, "code").
		WillReturnRows(pgxmock.NewRows([]string{"account_id", "code", "expires_at", "created_at"}).
			AddRow(accountID, "code", exp, created))
	tok, err := r.Consume(ctx, accountID, "code")
	require.NoError(t, err)
	require.Equal(t, accountID, tok.AccountID)
	require.Equal(t, exp, tok.ExpiresAt)
}

func TestTokenRepo_Consume_Missing(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewTokenRepo(db)
	ctx := context.Background()
	accountID := uuid.Must(uuid.NewV4())

	// Absent, already consumed by a concurrent caller, or wrong code:
	// the DELETE matches nothing either way.
	mock.ExpectQuery(`DELETE FROM confirmation_tokens WHERE account_id=\$1 AND code=\$2 RETURNING account_id, code, expires_at, created_at`).
		WithArgs(accountID, "wrong").
		WillReturnError(pgx.ErrNoRows)
	_, err := r.Consume(ctx, accountID, "wrong")
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestTokenRepo_Consume_Expired(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewTokenRepo(db)
	ctx := context.Background()
	accountID := uuid.Must(uuid.NewV4())
	exp := time.Now().Add(-time.Second)

	mock.ExpectQuery(`DELETE FROM confirmation_tokens WHERE account_id=\$1 AND code=\$2 RETURNING account_id, code, expires_at, created_at`).
		WithArgs(accountID, "stale").
		WillReturnRows(pgxmock.NewRows([]string{"account_id", "code", "expires_at", "created_at"}).
			AddRow(accountID, "stale", exp, exp.Add(-time.Hour)))
	_, err := r.Consume(ctx, accountID, "stale")
	require.ErrorIs(t, err, errs.ErrExpired)
}

func TestDB_InTx_RollbackOnError(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	ctx := context.Background()
	a := &model.Account{
		ID: uuid.Must(uuid.NewV4()), Email: "e@x.com", Username: "u",
		PasswordHash: "h", AuthKey: "k",
	}
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO accounts`).
		WithArgs(a.ID, a.Email, a.Username, a.PasswordHash, a.AuthKey).
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
	mock.ExpectQuery(`INSERT INTO confirmation_tokens`).
		WithArgs(a.ID, "code", pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	mock.ExpectRollback()

	err := db.InTx(ctx, func(s repository.Stores) error {
		if err := s.Accounts.Create(ctx, a); err != nil {
			return err
		}
		return s.Tokens.Create(ctx, &model.ConfirmationToken{
			AccountID: a.ID, Code: "code", ExpiresAt: now.Add(time.Hour),
		})
	})
	require.ErrorIs(t, err, errs.ErrAlreadyExists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDB_InTx_Commit(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	ctx := context.Background()
	now := time.Now()
	accountID := uuid.Must(uuid.NewV4())

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO confirmation_tokens`).
		WithArgs(accountID, "code", pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(now))
	mock.ExpectCommit()

	err := db.InTx(ctx, func(s repository.Stores) error {
		return s.Tokens.Create(ctx, &model.ConfirmationToken{
			AccountID: accountID, Code: "code", ExpiresAt: now.Add(time.Hour),
		})
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDB_InTx_RollbackOnPanic(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectRollback()

	require.PanicsWithValue(t, "boom", func() {
		_ = db.InTx(ctx, func(repository.Stores) error {
			panic("boom")
		})
	})
	require.NoError(t, mock.ExpectationsWereMet())
}
