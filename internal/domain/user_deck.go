package domain

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// Direction is the direction of a deck move in the user's ordering.
type Direction string

// Possible move directions
const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// Valid reports whether d is a known direction.
func (d Direction) Valid() bool {
	return d == DirectionUp || d == DirectionDown
}

// UserDeck binds a Deck to a user. Order defines display and selection
// precedence; it is unique among the user's non-deleted decks but not
// necessarily contiguous. Dynamic never changes after creation.
type UserDeck struct {
	ID           uuid.UUID `json:"id"`
	UserID       uuid.UUID `json:"user_id"`
	DeckID       uuid.UUID `json:"deck_id"`
	Order        int64     `json:"order"`
	Enabled      bool      `json:"enabled"`
	Deleted      bool      `json:"deleted"`
	CardsCount   int       `json:"cards_count"`
	CardsLearned int       `json:"cards_learned"`
	Dynamic      bool      `json:"dynamic"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewUserDeck creates an enabled binding at the given order.
func NewUserDeck(userID, deckID uuid.UUID, order int64, cardsCount int, dynamic bool, now time.Time) *UserDeck {
	return &UserDeck{
		ID:         uuid.New(),
		UserID:     userID,
		DeckID:     deckID,
		Order:      order,
		Enabled:    true,
		CardsCount: cardsCount,
		Dynamic:    dynamic,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Validate checks if the UserDeck has valid data.
func (d *UserDeck) Validate() error {
	if d.ID == uuid.Nil {
		return NewValidationError("id", "cannot be empty", ErrEmptyID)
	}
	if d.UserID == uuid.Nil {
		return NewValidationError("user_id", "cannot be empty", ErrEmptyID)
	}
	if d.DeckID == uuid.Nil {
		return NewValidationError("deck_id", "cannot be empty", ErrEmptyID)
	}
	if d.CardsCount < 0 {
		return NewValidationError("cards_count", "cannot be negative", nil)
	}
	if d.CardsLearned < 0 {
		return NewValidationError("cards_learned", "cannot be negative", nil)
	}
	return nil
}

// SortByOrder sorts decks ascending by Order in place.
func SortByOrder(decks []*UserDeck) {
	sort.SliceStable(decks, func(i, j int) bool {
		return decks[i].Order < decks[j].Order
	})
}
