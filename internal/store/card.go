package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-decks/internal/domain"
)

// CardStore is the read-mostly content store. Cards are immutable once created.
type CardStore interface {
	// ListByDeck returns every card of a deck, oldest first.
	ListByDeck(ctx context.Context, deckID uuid.UUID) ([]*domain.Card, error)

	// GetByID retrieves a card by its unique ID.
	// Returns ErrCardNotFound if the card does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Card, error)

	// CreateMultiple saves multiple cards to the store.
	// Should be called inside Repository.WithinTx when combined with other writes.
	// Returns ErrExternalIDExists if a card collides on (deck, external id).
	CreateMultiple(ctx context.Context, cards []*domain.Card) error
}

// DeckStore persists decks.
type DeckStore interface {
	Create(ctx context.Context, deck *domain.Deck) error

	// GetByID returns ErrDeckNotFound if the deck does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Deck, error)
}
