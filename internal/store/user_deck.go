package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-decks/internal/domain"
)

// UserDeckStore persists a user's deck bindings.
type UserDeckStore interface {
	// Create returns ErrDynamicDeckExists when a second non-deleted dynamic
	// deck is created for the same user.
	Create(ctx context.Context, deck *domain.UserDeck) error

	// GetByID returns ErrUserDeckNotFound when the binding is absent or owned
	// by another user. Soft-deleted bindings are returned.
	GetByID(ctx context.Context, userID, id uuid.UUID) (*domain.UserDeck, error)

	// Update persists order, enabled, deleted and both counters.
	Update(ctx context.Context, deck *domain.UserDeck) error

	// ListActive returns the user's non-deleted decks sorted ascending by order.
	ListActive(ctx context.Context, userID uuid.UUID) ([]*domain.UserDeck, error)

	// FindDynamic returns the user's non-deleted dynamic deck or ErrUserDeckNotFound.
	FindDynamic(ctx context.Context, userID uuid.UUID) (*domain.UserDeck, error)

	// FindByDeck returns the user's non-deleted binding to deckID or ErrUserDeckNotFound.
	FindByDeck(ctx context.Context, userID, deckID uuid.UUID) (*domain.UserDeck, error)
}
