package repository

import "context"

// Stores bundles the repositories visible inside one transaction scope.
type Stores struct {
	Accounts AccountRepository
	Tokens   TokenRepository
}

// Atomic runs a function against transaction-scoped stores.
// If fn returns an error the transaction is rolled back and nothing
// written inside it becomes visible.
type Atomic interface {
	InTx(ctx context.Context, fn func(s Stores) error) error
}
