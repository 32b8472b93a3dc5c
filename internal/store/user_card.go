package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-decks/internal/domain"
)

// UserCardStore persists per-user learning records.
//
// Every lookup is scoped by user: a record owned by another user is reported
// as ErrUserCardNotFound. Read methods populate UserCard.Card.
type UserCardStore interface {
	CreateMultiple(ctx context.Context, cards []*domain.UserCard) error

	// GetByID returns the record, including soft-deleted ones.
	GetByID(ctx context.Context, userID, id uuid.UUID) (*domain.UserCard, error)

	// Update persists deleted, favorite, show_after and history.
	Update(ctx context.Context, card *domain.UserCard) error

	// FindUnreviewed returns non-deleted records with an empty history,
	// oldest first, at most limit.
	FindUnreviewed(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.UserCard, error)

	// FindDue returns non-deleted reviewed records with ShowAfter <= now,
	// ascending by ShowAfter, at most limit.
	FindDue(ctx context.Context, userID uuid.UUID, now time.Time, limit int) ([]*domain.UserCard, error)

	// ActiveCardIDs returns the set of card ids the user holds a non-deleted record for.
	ActiveCardIDs(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]struct{}, error)

	// SoftDeleteByUserDeck marks every record of a user deck deleted and
	// returns how many were changed.
	SoftDeleteByUserDeck(ctx context.Context, userID, userDeckID uuid.UUID) (int, error)
}
