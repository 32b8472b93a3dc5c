// Package selection decides which cards a user studies next and records the
// results of their reviews.
package selection

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-decks/internal/domain"
)

// DefaultPageSize is the number of cards returned by one selection.
const DefaultPageSize = 15

// CardUpdate is the result of a mutation on a user card. Deck is set only
// when the owning deck's counters changed.
type CardUpdate struct {
	Card *domain.UserCard `json:"card"`
	Deck *domain.UserDeck `json:"deck,omitempty"`
}

// Service defines the card selection operations.
type Service interface {
	// GetActiveCards returns the cards the user should study now. The first
	// non-empty source wins:
	//  1. cards already drawn but never reviewed
	//  2. a fresh draw from the dynamic deck, when DynamicHighPriority is set
	//  3. reviewed cards that are due, when ShowLearned is set
	//  4. a fresh draw from the first enabled deck, in order, that has cards left
	// Only a fresh draw writes; it materializes the drawn user cards.
	GetActiveCards(ctx context.Context, userID uuid.UUID) ([]*domain.UserCard, error)

	// RecordOutcome appends a review to the card's history and reschedules it.
	// Returns domain.ErrNotReviewable when the card is not due yet.
	RecordOutcome(ctx context.Context, userID, userCardID uuid.UUID, outcome domain.Outcome) (*CardUpdate, error)

	// DeleteCard soft deletes the card and decrements its deck's card count.
	DeleteCard(ctx context.Context, userID, userCardID uuid.UUID) (*CardUpdate, error)

	// ToggleFavorite flips the card's favorite flag.
	ToggleFavorite(ctx context.Context, userID, userCardID uuid.UUID) (*domain.UserCard, error)
}

// ShuffleFunc has the signature of rand.Shuffle.
type ShuffleFunc func(n int, swap func(i, j int))

// Option configures the selection service.
type Option func(*serviceImpl)

// WithPageSize overrides DefaultPageSize. Non-positive values are ignored.
func WithPageSize(n int) Option {
	return func(s *serviceImpl) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *serviceImpl) {
		s.now = now
	}
}

// WithShuffle overrides the random shuffle used for draws and deck order.
func WithShuffle(shuffle ShuffleFunc) Option {
	return func(s *serviceImpl) {
		s.shuffle = shuffle
	}
}
