package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Deck is a named collection of cards. Shared decks have no owner; a dynamic
// deck is owned by the user whose sync source fills it.
type Deck struct {
	ID        uuid.UUID  `json:"id"`
	OwnerID   *uuid.UUID `json:"owner_id,omitempty"`
	Name      string     `json:"name"`
	Dynamic   bool       `json:"dynamic"`
	CreatedAt time.Time  `json:"created_at"`
}

// NewDynamicDeck creates the deck backing a user's dynamic UserDeck.
func NewDynamicDeck(ownerID uuid.UUID, name string) (*Deck, error) {
	if ownerID == uuid.Nil {
		return nil, NewValidationError("owner_id", "cannot be empty", ErrEmptyID)
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}

	return &Deck{
		ID:        uuid.New(),
		OwnerID:   &ownerID,
		Name:      name,
		Dynamic:   true,
		CreatedAt: time.Now().UTC(),
	}, nil
}
