package domain

import (
	"time"

	"github.com/google/uuid"
)

// Settings holds a user's selection flags, deck ordering counter and sync
// configuration. There is at most one Settings row per user.
type Settings struct {
	UserID              uuid.UUID `json:"user_id"`
	ShowLearned         bool      `json:"show_learned"`
	DynamicHighPriority bool      `json:"dynamic_high_priority"`
	ShuffleDecks        bool      `json:"shuffle_decks"`
	MaxDeckOrder        int64     `json:"max_deck_order"`
	Sync                SyncState `json:"sync"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// NewSettings returns the default settings for a user: every flag off and
// no deck order handed out yet.
func NewSettings(userID uuid.UUID, now time.Time) *Settings {
	return &Settings{
		UserID:    userID,
		Sync:      SyncState{Attempts: []time.Time{}},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NextDeckOrder reserves and returns the next deck order value.
// Values are never reused, even after the deck holding them is deleted.
func (s *Settings) NextDeckOrder() int64 {
	s.MaxDeckOrder++
	return s.MaxDeckOrder
}

// Validate checks if the Settings has valid data.
func (s *Settings) Validate() error {
	if s.UserID == uuid.Nil {
		return NewValidationError("user_id", "cannot be empty", ErrEmptyID)
	}
	if s.MaxDeckOrder < 0 {
		return NewValidationError("max_deck_order", "cannot be negative", nil)
	}
	if s.Sync.Type != SyncTypeNone && !s.Sync.Type.Valid() {
		return ErrInvalidSyncType
	}
	return nil
}
