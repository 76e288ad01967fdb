// Package session issues and validates signed session tokens.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/and161185/signup/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
)

// Issuer signs HS256 session tokens. It implements service.SessionIssuer.
type Issuer struct{ signKey []byte }

// NewIssuer constructs an Issuer with the given HS256 signing key.
func NewIssuer(signKey []byte) *Issuer { return &Issuer{signKey: signKey} }

// Issue creates a signed session for the account with the given duration.
// Callers only invoke it for confirmed accounts.
func (i *Issuer) Issue(_ context.Context, acc *model.Account, ttl time.Duration) (model.Session, error) {
	now := time.Now()
	exp := now.Add(ttl)
	claims := jwt.RegisteredClaims{
		Subject:   acc.ID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(i.signKey)
	if err != nil {
		return model.Session{}, err
	}
	return model.Session{AccountID: acc.ID, Token: signed, ExpiresAt: exp}, nil
}

// Parse validates a session token and returns the account ID it names.
func (i *Issuer) Parse(token string) (uuid.UUID, error) {
	var claims jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return i.signKey, nil
	})
	if err != nil || !parsed.Valid {
		return uuid.Nil, errors.New("invalid session token")
	}

	v := jwt.NewValidator(jwt.WithLeeway(30 * time.Second))
	if err := v.Validate(&claims); err != nil {
		return uuid.Nil, errors.New("session expired or not valid yet")
	}

	id, err := uuid.FromString(claims.Subject)
	if err != nil {
		return uuid.Nil, errors.New("bad subject")
	}
	return id, nil
}
