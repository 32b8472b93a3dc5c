// Package decks maintains each user's ordered deck collection.
//
// Order values are handed out from a per-user counter and are never reused.
// Moves exchange the order values of two neighbouring decks, so the rest of
// the collection is never renumbered.
package decks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-decks/internal/domain"
	"github.com/phrazzld/scry-decks/internal/store"
)

// Service defines the deck ordering operations.
type Service interface {
	// Append reserves the next order value for the user.
	Append(ctx context.Context, userID uuid.UUID) (int64, error)

	// Move swaps the deck's order with its neighbour in direction. Moving the
	// first deck up or the last deck down returns the deck unchanged.
	Move(ctx context.Context, userID, userDeckID uuid.UUID, direction domain.Direction) (*domain.UserDeck, error)

	// AddDeck binds a shared deck to the end of the user's collection.
	AddDeck(ctx context.Context, userID, deckID uuid.UUID) (*domain.UserDeck, error)

	SetEnabled(ctx context.Context, userID, userDeckID uuid.UUID, enabled bool) (*domain.UserDeck, error)

	// DeleteDeck soft deletes the binding and all of its user cards. Its
	// order value is retired. The dynamic deck cannot be deleted.
	DeleteDeck(ctx context.Context, userID, userDeckID uuid.UUID) (*domain.UserDeck, error)

	// ListDecks returns the user's non-deleted decks in order.
	ListDecks(ctx context.Context, userID uuid.UUID) ([]*domain.UserDeck, error)
}

// ReserveOrder increments the user's order counter inside an existing unit
// of work, creating the settings row on first use. Callers must hold the
// user's lock.
func ReserveOrder(ctx context.Context, st store.Stores, userID uuid.UUID, now time.Time) (int64, error) {
	settings, err := st.Settings.Get(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		settings = domain.NewSettings(userID, now)
	} else if err != nil {
		return 0, fmt.Errorf("failed to get settings: %w", err)
	}

	order := settings.NextDeckOrder()
	settings.UpdatedAt = now
	if err := st.Settings.Upsert(ctx, settings); err != nil {
		return 0, fmt.Errorf("failed to save deck order: %w", err)
	}
	return order, nil
}
