package repository

import (
	"context"

	"swift/internal/domain"
)

// AccountRepository defines the persistence operations for the account ledger.
// The underlying storage has no update-in-place: changes to existing accounts
// are persisted by rewriting the whole set.
type AccountRepository interface {
	// Load reads every well-formed account, keyed by lower-cased username.
	// A missing ledger yields an empty map.
	Load(ctx context.Context) (map[string]*domain.Account, error)

	// Save appends a single account record.
	Save(ctx context.Context, account *domain.Account) error

	// Rewrite replaces the persisted set with the given accounts.
	Rewrite(ctx context.Context, accounts []*domain.Account) error
}
