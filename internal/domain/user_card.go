package domain

import (
	"time"

	"github.com/google/uuid"
)

// Outcome is the result a user reports after reviewing a card.
type Outcome string

// Possible outcome values
const (
	OutcomeHard   Outcome = "hard"
	OutcomeMedium Outcome = "medium"
	OutcomeEasy   Outcome = "easy"
)

// Valid reports whether o is one of the known outcomes.
func (o Outcome) Valid() bool {
	switch o {
	case OutcomeHard, OutcomeMedium, OutcomeEasy:
		return true
	default:
		return false
	}
}

// HistoryEntry records a single review.
type HistoryEntry struct {
	Outcome Outcome   `json:"outcome"`
	At      time.Time `json:"at"`
}

// UserCard is a user's learning record for one card. History is append-only.
type UserCard struct {
	ID         uuid.UUID      `json:"id"`
	UserID     uuid.UUID      `json:"user_id"`
	CardID     uuid.UUID      `json:"card_id"`
	UserDeckID uuid.UUID      `json:"user_deck_id"`
	Deleted    bool           `json:"deleted"`
	Favorite   bool           `json:"favorite"`
	ShowAfter  time.Time      `json:"show_after"`
	History    []HistoryEntry `json:"history"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`

	// Card is populated by read paths that join the content; it is never persisted.
	Card *Card `json:"card,omitempty"`
}

// NewUserCard assigns card to the user's deck binding. A new record is
// eligible for review immediately.
func NewUserCard(userID uuid.UUID, userDeckID uuid.UUID, card *Card, now time.Time) *UserCard {
	return &UserCard{
		ID:         uuid.New(),
		UserID:     userID,
		CardID:     card.ID,
		UserDeckID: userDeckID,
		ShowAfter:  now,
		History:    []HistoryEntry{},
		CreatedAt:  now,
		UpdatedAt:  now,
		Card:       card,
	}
}

// Reviewed reports whether the card has received at least one outcome.
func (c *UserCard) Reviewed() bool {
	return len(c.History) > 0
}

// Reviewable reports whether the card may be reviewed at now.
func (c *UserCard) Reviewable(now time.Time) bool {
	return !now.Before(c.ShowAfter)
}

// Validate checks if the UserCard has valid data.
func (c *UserCard) Validate() error {
	if c.ID == uuid.Nil {
		return NewValidationError("id", "cannot be empty", ErrEmptyID)
	}
	if c.UserID == uuid.Nil {
		return NewValidationError("user_id", "cannot be empty", ErrEmptyID)
	}
	if c.CardID == uuid.Nil {
		return NewValidationError("card_id", "cannot be empty", ErrEmptyID)
	}
	if c.UserDeckID == uuid.Nil {
		return NewValidationError("user_deck_id", "cannot be empty", ErrEmptyID)
	}
	for _, h := range c.History {
		if !h.Outcome.Valid() {
			return ErrInvalidOutcome
		}
	}
	return nil
}
