package api

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-decks/internal/api/shared"
	"github.com/phrazzld/scry-decks/internal/domain"
	"github.com/phrazzld/scry-decks/internal/platform/logger"
	"github.com/phrazzld/scry-decks/internal/service/decks"
)

// DeckHandler serves the user's deck collection.
type DeckHandler struct {
	decks  decks.Service
	logger *slog.Logger
}

// NewDeckHandler creates a DeckHandler.
func NewDeckHandler(decks decks.Service, logger *slog.Logger) *DeckHandler {
	if decks == nil {
		panic("deck service cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DeckHandler{
		decks:  decks,
		logger: logger.With(slog.String("component", "deck_handler")),
	}
}

// ListDecks handles GET /decks.
func (h *DeckHandler) ListDecks(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := requireUserID(w, r, log)
	if !ok {
		return
	}

	list, err := h.decks.ListDecks(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list decks")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, decksToResponse(list))
}

// AddDeck handles POST /decks.
func (h *DeckHandler) AddDeck(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := requireUserID(w, r, log)
	if !ok {
		return
	}

	var req AddDeckRequest
	if !decodeBody(w, r, &req) {
		return
	}
	deckID := uuid.MustParse(req.DeckID)

	deck, err := h.decks.AddDeck(r.Context(), userID, deckID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to add deck")
		return
	}

	log.Info("deck added",
		slog.String("deck_id", deckID.String()),
		slog.String("user_deck_id", deck.ID.String()))
	shared.RespondWithJSON(w, r, http.StatusCreated, deckToResponse(deck))
}

// MoveDeck handles POST /decks/{id}/move.
func (h *DeckHandler) MoveDeck(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, deckID, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	var req MoveDeckRequest
	if !decodeBody(w, r, &req) {
		return
	}

	deck, err := h.decks.Move(r.Context(), userID, deckID, domain.Direction(req.Direction))
	if err != nil {
		HandleAPIError(w, r, err, "Failed to move deck")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, deckToResponse(deck))
}

// SetEnabled handles PUT /decks/{id}/enabled.
func (h *DeckHandler) SetEnabled(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, deckID, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	var req EnabledRequest
	if !decodeBody(w, r, &req) {
		return
	}

	deck, err := h.decks.SetEnabled(r.Context(), userID, deckID, *req.Enabled)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update deck")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, deckToResponse(deck))
}

// DeleteDeck handles DELETE /decks/{id}.
func (h *DeckHandler) DeleteDeck(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, deckID, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	deck, err := h.decks.DeleteDeck(r.Context(), userID, deckID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to delete deck")
		return
	}

	log.Info("deck deleted", slog.String("user_deck_id", deckID.String()))
	shared.RespondWithJSON(w, r, http.StatusOK, deckToResponse(deck))
}
