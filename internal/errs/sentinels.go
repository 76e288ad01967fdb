// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across repo/service layers.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates a unique constraint violation (email/username taken).
	ErrAlreadyExists = errors.New("already exists")

	// ErrValidation indicates malformed caller input; never retried by the core.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidToken is the unified outcome for a missing, expired or already
	// consumed confirmation token. Callers cannot distinguish the three.
	ErrInvalidToken = errors.New("invalid or expired token")

	// ErrExpired indicates a token past its expiry. Internal to the stores;
	// services fold it into ErrInvalidToken before it reaches a caller.
	ErrExpired = errors.New("expired")

	// ErrIntegrity indicates a data-integrity fault, e.g. a confirmation token
	// that outlived its account. Surfaced, never swallowed.
	ErrIntegrity = errors.New("integrity fault")

	// ErrUnauthorized indicates failed authentication.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrRateLimited indicates temporary login lock due to rate limiting.
	ErrRateLimited = errors.New("rate limited")
)
