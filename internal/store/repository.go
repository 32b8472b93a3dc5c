package store

import (
	"context"
)

// Stores bundles the stores of one unit of work. All members share the same
// underlying connection or transaction.
type Stores struct {
	Cards     CardStore
	Decks     DeckStore
	UserCards UserCardStore
	UserDecks UserDeckStore
	Settings  SettingsStore
}

// StoresFn is a function that executes against a transactional set of stores.
type StoresFn func(ctx context.Context, s Stores) error

// Repository gives services access to the stores and to transactions.
type Repository interface {
	// Stores returns stores that operate outside any transaction.
	Stores() Stores

	// WithinTx runs fn with stores bound to a single transaction. The
	// transaction commits when fn returns nil and rolls back otherwise.
	WithinTx(ctx context.Context, fn StoresFn) error
}
