// Package service contains the account lifecycle service.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	pkgcrypto "github.com/and161185/signup/internal/crypto"
	"github.com/and161185/signup/internal/errs"
	"github.com/and161185/signup/internal/limiter"
	"github.com/and161185/signup/internal/model"
	"github.com/and161185/signup/internal/repository"
	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"
)

// Mailer delivers a confirmation code to a freshly created account.
// A failure aborts the enclosing registration transaction.
type Mailer interface {
	SendConfirmation(ctx context.Context, acc *model.Account, tok *model.ConfirmationToken) error
}

// SessionIssuer establishes an authenticated session for a confirmed account.
type SessionIssuer interface {
	Issue(ctx context.Context, acc *model.Account, ttl time.Duration) (model.Session, error)
}

// AccountService defines the account lifecycle operations.
type AccountService interface {
	// Register creates an unconfirmed account, its confirmation token and the
	// confirmation mail as one atomic unit.
	Register(ctx context.Context, draft model.RegisterDraft, ttl time.Duration) (*model.Account, error)
	// ConfirmAccount consumes a confirmation code, confirms the account and
	// establishes a session.
	ConfirmAccount(ctx context.Context, accountID uuid.UUID, code string) (model.Session, error)
	// AuthenticateWithIP applies rate limiting and logs a confirmed account in.
	AuthenticateWithIP(ctx context.Context, credential, password, ip string) (model.Session, *model.Account, error)
	// RememberWithKey re-establishes a session from a stored auth key.
	RememberWithKey(ctx context.Context, accountID uuid.UUID, authKey string) (model.Session, *model.Account, error)
	// GetAccount loads an account by ID.
	GetAccount(ctx context.Context, id uuid.UUID) (*model.Account, error)
}

const (
	// mailTimeout bounds the SMTP call inside the registration transaction.
	mailTimeout = 10 * time.Second

	// opTimeout bounds every service operation, store I/O included, so a
	// stuck backend cannot hang a request forever. It leaves room for
	// mailTimeout inside the registration transaction.
	opTimeout = 15 * time.Second
)

type AccountServiceImpl struct {
	tx       repository.Atomic
	accounts repository.AccountRepository
	tokens   repository.TokenRepository
	mailer   Mailer
	sessions SessionIssuer
	lim      limiter.Limiter
	log      *zap.Logger

	opTimeout time.Duration
}

// NewAccountService constructs AccountService with required dependencies.
func NewAccountService(
	tx repository.Atomic,
	accounts repository.AccountRepository,
	tokens repository.TokenRepository,
	mailer Mailer,
	sessions SessionIssuer,
	lim limiter.Limiter,
	log *zap.Logger,
) *AccountServiceImpl {
	return &AccountServiceImpl{
		tx:        tx,
		accounts:  accounts,
		tokens:    tokens,
		mailer:    mailer,
		sessions:  sessions,
		lim:       lim,
		log:       log,
		opTimeout: opTimeout,
	}
}

// bound caps ctx with the service operation deadline.
func (s *AccountServiceImpl) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.opTimeout)
}

// Register hashes credentials outside the transaction, then creates the
// account, its confirmation token and the confirmation mail atomically.
// If any step fails nothing persists; a half-created account that was never
// emailed would strand a user who can never confirm.
func (s *AccountServiceImpl) Register(ctx context.Context, draft model.RegisterDraft, ttl time.Duration) (*model.Account, error) {
	if err := validateDraft(draft); err != nil {
		return nil, err
	}

	hash, err := pkgcrypto.HashPassword(draft.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	authKey, err := pkgcrypto.GenerateSecret()
	if err != nil {
		return nil, fmt.Errorf("generate auth key: %w", err)
	}
	code, err := pkgcrypto.GenerateSecret()
	if err != nil {
		return nil, fmt.Errorf("generate token code: %w", err)
	}
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}

	acc := &model.Account{
		ID:           id,
		Email:        draft.Email,
		Username:     draft.Username,
		PasswordHash: hash,
		AuthKey:      authKey,
	}
	tok := &model.ConfirmationToken{
		AccountID: id,
		Code:      code,
		ExpiresAt: time.Now().Add(ttl),
	}

	ctx, cancel := s.bound(ctx)
	defer cancel()

	err = s.tx.InTx(ctx, func(st repository.Stores) error {
		if err := st.Accounts.Create(ctx, acc); err != nil {
			return fmt.Errorf("create account: %w", err)
		}
		if err := st.Tokens.Create(ctx, tok); err != nil {
			return fmt.Errorf("create token: %w", err)
		}
		mailCtx, cancel := context.WithTimeout(ctx, mailTimeout)
		defer cancel()
		if err := s.mailer.SendConfirmation(mailCtx, acc, tok); err != nil {
			return fmt.Errorf("send confirmation mail: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, errs.ErrAlreadyExists) {
			return nil, err
		}
		s.log.Error("register rolled back",
			zap.String("username", draft.Username),
			zap.Error(err),
		)
		return nil, fmt.Errorf("register: %w", err)
	}

	s.log.Info("account registered",
		zap.String("account_id", acc.ID.String()),
		zap.Time("token_expires_at", tok.ExpiresAt),
	)
	return acc, nil
}

// ConfirmAccount consumes the (accountID, code) token, confirms the account
// and issues a session for the default remember duration. A missing and an
// expired code are indistinguishable to the caller. Once the token is
// consumed it is never re-credited: a failure in a later step surfaces as an
// opaque error and the user must request a fresh token.
func (s *AccountServiceImpl) ConfirmAccount(ctx context.Context, accountID uuid.UUID, code string) (model.Session, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	tok, err := s.tokens.Consume(ctx, accountID, code)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) || errors.Is(err, errs.ErrExpired) {
			// The store error carries the real reason; only the log sees it.
			s.log.Info("confirmation rejected",
				zap.String("account_id", accountID.String()),
				zap.Error(err),
			)
			return model.Session{}, errs.ErrInvalidToken
		}
		return model.Session{}, fmt.Errorf("consume token for %s: %w", accountID, err)
	}

	acc, err := s.accounts.Confirm(ctx, accountID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			// The token outlived its account. Surface it loudly, an ordinary
			// failure code would hide the fault.
			s.log.Error("confirmation token without account",
				zap.String("account_id", accountID.String()),
				zap.Time("token_created_at", tok.CreatedAt),
			)
			return model.Session{}, fmt.Errorf("account %s gone under live token: %w", accountID, errs.ErrIntegrity)
		}
		return model.Session{}, fmt.Errorf("confirm account %s: %w", accountID, err)
	}

	sess, err := s.sessions.Issue(ctx, acc, model.RememberFor)
	if err != nil {
		return model.Session{}, fmt.Errorf("issue session for %s: %w", accountID, err)
	}
	s.log.Info("account confirmed", zap.String("account_id", accountID.String()))
	return sess, nil
}

// AuthenticateWithIP authenticates with rate limiting by (credential, ip).
// Unknown accounts, wrong passwords and unconfirmed accounts all map to
// ErrUnauthorized so the API does not reveal which accounts exist.
func (s *AccountServiceImpl) AuthenticateWithIP(ctx context.Context, credential, password, ip string) (model.Session, *model.Account, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	ipHash := limiter.HashIP(ip)

	allowed, _, err := s.lim.Allow(ctx, credential, ipHash)
	if err != nil {
		return model.Session{}, nil, err
	}
	if !allowed {
		return model.Session{}, nil, errs.ErrRateLimited
	}

	acc, err := s.accounts.GetByCredential(ctx, credential)
	if err != nil || !pkgcrypto.VerifyPassword(password, acc.PasswordHash) || !acc.IsConfirmed() {
		if blocked, _, ferr := s.lim.Failure(ctx, credential, ipHash); ferr == nil && blocked {
			return model.Session{}, nil, errs.ErrRateLimited
		}
		return model.Session{}, nil, errs.ErrUnauthorized
	}

	// Best-effort counter reset.
	_ = s.lim.Success(ctx, credential, ipHash)

	sess, err := s.sessions.Issue(ctx, acc, model.RememberFor)
	if err != nil {
		return model.Session{}, nil, fmt.Errorf("issue session for %s: %w", acc.ID, err)
	}
	return sess, acc, nil
}

// RememberWithKey re-establishes a session for a client that kept the auth
// key issued at login. A bad key, an unknown account and an unconfirmed
// account all map to ErrUnauthorized; the key comparison is constant-time.
func (s *AccountServiceImpl) RememberWithKey(ctx context.Context, accountID uuid.UUID, authKey string) (model.Session, *model.Account, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	acc, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return model.Session{}, nil, errs.ErrUnauthorized
		}
		return model.Session{}, nil, fmt.Errorf("load account %s: %w", accountID, err)
	}
	if !pkgcrypto.ValidateAuthKey(authKey, acc.AuthKey) || !acc.IsConfirmed() {
		return model.Session{}, nil, errs.ErrUnauthorized
	}

	sess, err := s.sessions.Issue(ctx, acc, model.RememberFor)
	if err != nil {
		return model.Session{}, nil, fmt.Errorf("issue session for %s: %w", accountID, err)
	}
	return sess, acc, nil
}

// GetAccount loads an account by ID.
func (s *AccountServiceImpl) GetAccount(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	return s.accounts.GetByID(ctx, id)
}

// validateDraft applies the minimal guards the core owns. Format rules
// (email shape, length caps) belong to the calling adapter.
func validateDraft(d model.RegisterDraft) error {
	switch {
	case d.Email == "":
		return fmt.Errorf("%w: empty email", errs.ErrValidation)
	case d.Username == "":
		return fmt.Errorf("%w: empty username", errs.ErrValidation)
	case len(d.Password) < 6:
		return fmt.Errorf("%w: password shorter than 6", errs.ErrValidation)
	case len(d.Password) > 72:
		// bcrypt ignores input past 72 bytes
		return fmt.Errorf("%w: password longer than 72", errs.ErrValidation)
	}
	return nil
}
