package api

import (
	"time"

	"github.com/phrazzld/scry-decks/internal/domain"
	"github.com/phrazzld/scry-decks/internal/service"
	"github.com/phrazzld/scry-decks/internal/service/dynsync"
)

// CardResponse is a user card with its content.
type CardResponse struct {
	ID             string    `json:"id"`
	CardID         string    `json:"card_id"`
	UserDeckID     string    `json:"user_deck_id"`
	FrontPrimary   string    `json:"front_primary"`
	FrontSecondary string    `json:"front_secondary,omitempty"`
	BackPrimary    string    `json:"back_primary"`
	BackSecondary  string    `json:"back_secondary,omitempty"`
	Favorite       bool      `json:"favorite"`
	Deleted        bool      `json:"deleted"`
	ShowAfter      time.Time `json:"show_after"`
	Reviews        int       `json:"reviews"`
	LastOutcome    string    `json:"last_outcome,omitempty"`
}

// DeckResponse is one entry of the user's deck collection.
type DeckResponse struct {
	ID           string    `json:"id"`
	DeckID       string    `json:"deck_id"`
	Order        int64     `json:"order"`
	Enabled      bool      `json:"enabled"`
	Deleted      bool      `json:"deleted"`
	Dynamic      bool      `json:"dynamic"`
	CardsCount   int       `json:"cards_count"`
	CardsLearned int       `json:"cards_learned"`
	CreatedAt    time.Time `json:"created_at"`
}

// CardUpdateResponse is returned by card mutations. Deck is present when
// the owning deck's counters changed.
type CardUpdateResponse struct {
	Card CardResponse  `json:"card"`
	Deck *DeckResponse `json:"deck,omitempty"`
}

// SyncStatusResponse describes the user's sync configuration and progress.
type SyncStatusResponse struct {
	Type       string `json:"type"`
	Descriptor string `json:"descriptor"`
	AutoSync   bool   `json:"auto_sync"`
	Status     string `json:"status"`
	Failed     bool   `json:"failed"`
	Attempts   int    `json:"attempts"`
	Phase      string `json:"phase,omitempty"`
}

// SyncResultResponse is the outcome of a manual sync.
type SyncResultResponse struct {
	Succeeded bool          `json:"succeeded"`
	Added     int           `json:"added"`
	Status    string        `json:"status"`
	Deck      *DeckResponse `json:"deck,omitempty"`
}

// SettingsResponse holds the user's selection flags.
type SettingsResponse struct {
	ShowLearned         bool `json:"show_learned"`
	DynamicHighPriority bool `json:"dynamic_high_priority"`
	ShuffleDecks        bool `json:"shuffle_decks"`
}

// OutcomeRequest is the body of POST /cards/{id}/outcome.
type OutcomeRequest struct {
	Outcome string `json:"outcome" validate:"required,oneof=hard medium easy"`
}

// AddDeckRequest is the body of POST /decks.
type AddDeckRequest struct {
	DeckID string `json:"deck_id" validate:"required,uuid"`
}

// MoveDeckRequest is the body of POST /decks/{id}/move.
type MoveDeckRequest struct {
	Direction string `json:"direction" validate:"required,oneof=up down"`
}

// EnabledRequest is the body of the PUT toggles.
type EnabledRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

// CreateDynamicDeckRequest is the body of POST /decks/dynamic.
type CreateDynamicDeckRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}

// SyncDescriptorRequest is the body of PUT /sync/descriptor.
type SyncDescriptorRequest struct {
	Type       string `json:"type" validate:"required,oneof=sheet gemini notion"`
	Descriptor string `json:"descriptor" validate:"required,max=2048"`
}

// UpdateSettingsRequest is the body of PUT /settings. Omitted flags keep
// their current value.
type UpdateSettingsRequest struct {
	ShowLearned         *bool `json:"show_learned"`
	DynamicHighPriority *bool `json:"dynamic_high_priority"`
	ShuffleDecks        *bool `json:"shuffle_decks"`
}

// Validate requires at least one flag.
func (r *UpdateSettingsRequest) Validate() error {
	if r.ShowLearned == nil && r.DynamicHighPriority == nil && r.ShuffleDecks == nil {
		return domain.NewValidationError("settings", "must change at least one flag", nil)
	}
	return nil
}

func (r *UpdateSettingsRequest) toUpdate() service.SettingsUpdate {
	return service.SettingsUpdate{
		ShowLearned:         r.ShowLearned,
		DynamicHighPriority: r.DynamicHighPriority,
		ShuffleDecks:        r.ShuffleDecks,
	}
}

func cardToResponse(c *domain.UserCard) CardResponse {
	resp := CardResponse{
		ID:         c.ID.String(),
		CardID:     c.CardID.String(),
		UserDeckID: c.UserDeckID.String(),
		Favorite:   c.Favorite,
		Deleted:    c.Deleted,
		ShowAfter:  c.ShowAfter,
		Reviews:    len(c.History),
	}
	if c.Card != nil {
		resp.FrontPrimary = c.Card.FrontPrimary
		resp.FrontSecondary = c.Card.FrontSecondary
		resp.BackPrimary = c.Card.BackPrimary
		resp.BackSecondary = c.Card.BackSecondary
	}
	if n := len(c.History); n > 0 {
		resp.LastOutcome = string(c.History[n-1].Outcome)
	}
	return resp
}

func cardsToResponse(cards []*domain.UserCard) []CardResponse {
	out := make([]CardResponse, 0, len(cards))
	for _, c := range cards {
		out = append(out, cardToResponse(c))
	}
	return out
}

func deckToResponse(d *domain.UserDeck) *DeckResponse {
	if d == nil {
		return nil
	}
	return &DeckResponse{
		ID:           d.ID.String(),
		DeckID:       d.DeckID.String(),
		Order:        d.Order,
		Enabled:      d.Enabled,
		Deleted:      d.Deleted,
		Dynamic:      d.Dynamic,
		CardsCount:   d.CardsCount,
		CardsLearned: d.CardsLearned,
		CreatedAt:    d.CreatedAt,
	}
}

func decksToResponse(decks []*domain.UserDeck) []*DeckResponse {
	out := make([]*DeckResponse, 0, len(decks))
	for _, d := range decks {
		out = append(out, deckToResponse(d))
	}
	return out
}

func syncStateToResponse(s domain.SyncState, phase domain.SyncPhase) SyncStatusResponse {
	return SyncStatusResponse{
		Type:       string(s.Type),
		Descriptor: s.Descriptor,
		AutoSync:   s.AutoSync,
		Status:     s.Status,
		Failed:     s.Failed,
		Attempts:   len(s.Attempts),
		Phase:      string(phase),
	}
}

func syncResultToResponse(r *dynsync.Result) SyncResultResponse {
	return SyncResultResponse{
		Succeeded: r.Succeeded,
		Added:     r.Added,
		Status:    r.Status,
		Deck:      deckToResponse(r.Deck),
	}
}

func settingsToResponse(s *domain.Settings) SettingsResponse {
	return SettingsResponse{
		ShowLearned:         s.ShowLearned,
		DynamicHighPriority: s.DynamicHighPriority,
		ShuffleDecks:        s.ShuffleDecks,
	}
}
