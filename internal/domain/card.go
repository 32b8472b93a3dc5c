package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Card is an immutable unit of study content. It belongs to exactly one Deck
// and is never modified after creation.
type Card struct {
	ID             uuid.UUID `json:"id"`
	DeckID         uuid.UUID `json:"deck_id"`
	ExternalID     string    `json:"external_id,omitempty"`
	FrontPrimary   string    `json:"front_primary"`
	FrontSecondary string    `json:"front_secondary,omitempty"`
	BackPrimary    string    `json:"back_primary"`
	BackSecondary  string    `json:"back_secondary,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// CandidateCard is content returned by an external source before it is
// deduplicated and materialized as a Card.
type CandidateCard struct {
	ExternalID     string `json:"external_id"`
	FrontPrimary   string `json:"front_primary"`
	FrontSecondary string `json:"front_secondary,omitempty"`
	BackPrimary    string `json:"back_primary"`
	BackSecondary  string `json:"back_secondary,omitempty"`
}

// NewCard creates a Card in the given deck.
// Returns an error if validation fails.
func NewCard(deckID uuid.UUID, externalID, frontPrimary, frontSecondary, backPrimary, backSecondary string) (*Card, error) {
	card := &Card{
		ID:             uuid.New(),
		DeckID:         deckID,
		ExternalID:     strings.TrimSpace(externalID),
		FrontPrimary:   frontPrimary,
		FrontSecondary: frontSecondary,
		BackPrimary:    backPrimary,
		BackSecondary:  backSecondary,
		CreatedAt:      time.Now().UTC(),
	}

	if err := card.Validate(); err != nil {
		return nil, err
	}

	return card, nil
}

// NewCardFromCandidate materializes a candidate into a Card bound to deckID.
func NewCardFromCandidate(deckID uuid.UUID, c CandidateCard) (*Card, error) {
	return NewCard(deckID, c.ExternalID, c.FrontPrimary, c.FrontSecondary, c.BackPrimary, c.BackSecondary)
}

// Validate checks if the Card has valid data.
func (c *Card) Validate() error {
	if c.ID == uuid.Nil {
		return NewValidationError("id", "cannot be empty", ErrEmptyID)
	}

	if c.DeckID == uuid.Nil {
		return NewValidationError("deck_id", "cannot be empty", ErrEmptyID)
	}

	if strings.TrimSpace(c.FrontPrimary) == "" && strings.TrimSpace(c.BackPrimary) == "" {
		return ErrEmptyContent
	}

	return nil
}
