package limiter

import (
	"context"
	"crypto/sha256"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PG is a PostgreSQL-backed limiter implementation with sliding window and lockout.
type PG struct {
	pool     pgxQuerier
	window   time.Duration
	maxFails int
	blockFor time.Duration
}

type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// NewPG constructs a PostgreSQL-backed limiter.
func NewPG(q pgxQuerier, window time.Duration, maxFails int, blockFor time.Duration) *PG {
	return &PG{pool: q, window: window, maxFails: maxFails, blockFor: blockFor}
}

// HashIP returns a stable hash for an IP string to avoid storing raw addresses.
func HashIP(ip string) []byte {
	h := sha256.Sum256([]byte(ip))
	return h[:]
}

// Allow reports whether login is currently allowed and a retry-after
// duration. Only an active block produces a row; expired blocks and unseen
// pairs fall through to ErrNoRows.
func (l *PG) Allow(ctx context.Context, credential string, ipHash []byte) (bool, time.Duration, error) {
	const q = `
SELECT blocked_until FROM auth_limiter
WHERE credential = $1 AND ip_hash = $2 AND blocked_until > now()`
	var blockedUntil time.Time
	err := l.pool.QueryRow(ctx, q, credential, ipHash).Scan(&blockedUntil)
	if errors.Is(err, pgx.ErrNoRows) {
		return true, 0, nil
	}
	if err != nil {
		return false, 0, err
	}
	return false, time.Until(blockedUntil), nil
}

// Success resets counters for (credential, ip).
func (l *PG) Success(ctx context.Context, credential string, ipHash []byte) error {
	const q = `
INSERT INTO auth_limiter (credential, ip_hash, fail_count, blocked_until, updated_at)
VALUES ($1,$2,0,'epoch',now())
ON CONFLICT (credential, ip_hash)
DO UPDATE SET fail_count=0, blocked_until='epoch', updated_at=now()`
	_, err := l.pool.Exec(ctx, q, credential, ipHash)
	return err
}

// Failure records a failed attempt. Counting, window reset and the lockout
// decision all happen inside one upsert, so two concurrent failures cannot
// race past the threshold between a read and a write.
func (l *PG) Failure(ctx context.Context, credential string, ipHash []byte) (bool, time.Duration, error) {
	const q = `
INSERT INTO auth_limiter AS al (credential, ip_hash, fail_count, blocked_until, updated_at)
VALUES ($1, $2, 1, CASE WHEN 1 >= $4 THEN now() + $5::interval ELSE 'epoch'::timestamptz END, now())
ON CONFLICT (credential, ip_hash) DO UPDATE SET
  fail_count = CASE
    WHEN now() - al.updated_at > $3::interval THEN 1
    ELSE al.fail_count + 1
  END,
  blocked_until = CASE
    WHEN (CASE WHEN now() - al.updated_at > $3::interval THEN 1 ELSE al.fail_count + 1 END) >= $4
      THEN now() + $5::interval
    ELSE al.blocked_until
  END,
  updated_at = now()
RETURNING fail_count, blocked_until`
	var (
		fails        int
		blockedUntil time.Time
	)
	err := l.pool.QueryRow(ctx, q, credential, ipHash, l.window, l.maxFails, l.blockFor).
		Scan(&fails, &blockedUntil)
	if err != nil {
		return false, 0, err
	}
	if fails >= l.maxFails {
		return true, time.Until(blockedUntil), nil
	}
	return false, 0, nil
}
