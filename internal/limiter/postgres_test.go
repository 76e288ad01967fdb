package limiter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	return mock
}

func TestAllow_NoRow_Allows(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	l := NewPG(mock, 15*time.Minute, 5, 15*time.Minute)

	mock.ExpectQuery(`SELECT blocked_until FROM auth_limiter`).
		WithArgs("ana", []byte("h")).
		WillReturnError(pgx.ErrNoRows)
	ok, dur, err := l.Allow(context.Background(), "ana", []byte("h"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Zero(t, dur)
}

func TestAllow_BlockedUntilFuture(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	l := NewPG(mock, 15*time.Minute, 5, 15*time.Minute)

	mock.ExpectQuery(`SELECT blocked_until FROM auth_limiter`).
		WithArgs("ana", []byte("h")).
		WillReturnRows(pgxmock.NewRows([]string{"blocked_until"}).
			AddRow(time.Now().Add(10 * time.Minute)))
	ok, dur, err := l.Allow(context.Background(), "ana", []byte("h"))
	require.NoError(t, err)
	require.False(t, ok)
	require.Greater(t, dur, time.Duration(0))
}

func TestAllow_DBError_Propagates(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	l := NewPG(mock, 15*time.Minute, 5, 15*time.Minute)

	mock.ExpectQuery(`SELECT blocked_until FROM auth_limiter`).
		WithArgs("ana", []byte("h")).
		WillReturnError(errors.New("db boom"))
	ok, _, err := l.Allow(context.Background(), "ana", []byte("h"))
	require.Error(t, err)
	require.False(t, ok)
}

func TestFailure_Increments_NoBlock(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	l := NewPG(mock, 5*time.Minute, 5, 15*time.Minute)

	mock.ExpectQuery(`INSERT INTO auth_limiter`).
		WithArgs("ana", []byte("h"), 5*time.Minute, 5, 15*time.Minute).
		WillReturnRows(pgxmock.NewRows([]string{"fail_count", "blocked_until"}).
			AddRow(2, time.Time{}))
	blocked, dur, err := l.Failure(context.Background(), "ana", []byte("h"))
	require.NoError(t, err)
	require.False(t, blocked)
	require.Zero(t, dur)
}

func TestFailure_BlocksAtThreshold(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	l := NewPG(mock, 5*time.Minute, 5, 10*time.Minute)

	mock.ExpectQuery(`INSERT INTO auth_limiter`).
		WithArgs("ana", []byte("h"), 5*time.Minute, 5, 10*time.Minute).
		WillReturnRows(pgxmock.NewRows([]string{"fail_count", "blocked_until"}).
			AddRow(5, time.Now().Add(10*time.Minute)))
	blocked, dur, err := l.Failure(context.Background(), "ana", []byte("h"))
	require.NoError(t, err)
	require.True(t, blocked)
	require.Greater(t, dur, 9*time.Minute)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFailure_DBError_Propagates(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	l := NewPG(mock, 5*time.Minute, 5, 10*time.Minute)

	mock.ExpectQuery(`INSERT INTO auth_limiter`).
		WithArgs("ana", []byte("h"), 5*time.Minute, 5, 10*time.Minute).
		WillReturnError(errors.New("db boom"))
	_, _, err := l.Failure(context.Background(), "ana", []byte("h"))
	require.Error(t, err)
}

func TestSuccess_ResetsCounters(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	l := NewPG(mock, 5*time.Minute, 5, 10*time.Minute)

	mock.ExpectExec(`INSERT INTO auth_limiter`).
		WithArgs("ana", []byte("h")).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, l.Success(context.Background(), "ana", []byte("h")))
}

func TestHashIP_Determinism(t *testing.T) {
	a := HashIP("1.2.3.4:123")
	b := HashIP("1.2.3.4:123")
	c := HashIP("5.6.7.8:321")
	if string(a) != string(b) || string(a) == string(c) || len(a) != 32 {
		t.Fatalf("hash mismatch/len: %d", len(a))
	}
}
