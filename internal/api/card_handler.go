package api

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/scry-decks/internal/api/shared"
	"github.com/phrazzld/scry-decks/internal/domain"
	"github.com/phrazzld/scry-decks/internal/platform/logger"
	"github.com/phrazzld/scry-decks/internal/service/selection"
)

// CardHandler serves card selection and review requests.
type CardHandler struct {
	selection selection.Service
	logger    *slog.Logger
}

// NewCardHandler creates a CardHandler.
func NewCardHandler(selection selection.Service, logger *slog.Logger) *CardHandler {
	if selection == nil {
		panic("selection service cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CardHandler{
		selection: selection,
		logger:    logger.With(slog.String("component", "card_handler")),
	}
}

// GetActiveCards handles GET /cards/active.
func (h *CardHandler) GetActiveCards(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := requireUserID(w, r, log)
	if !ok {
		return
	}

	cards, err := h.selection.GetActiveCards(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get active cards")
		return
	}

	log.Debug("active cards selected", slog.Int("count", len(cards)))
	shared.RespondWithJSON(w, r, http.StatusOK, cardsToResponse(cards))
}

// RecordOutcome handles POST /cards/{id}/outcome.
func (h *CardHandler) RecordOutcome(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, cardID, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	var req OutcomeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	update, err := h.selection.RecordOutcome(r.Context(), userID, cardID, domain.Outcome(req.Outcome))
	if err != nil {
		HandleAPIError(w, r, err, "Failed to record outcome")
		return
	}

	log.Debug("outcome recorded",
		slog.String("user_card_id", cardID.String()),
		slog.String("outcome", req.Outcome))
	shared.RespondWithJSON(w, r, http.StatusOK, cardUpdateToResponse(update))
}

// DeleteCard handles DELETE /cards/{id}.
func (h *CardHandler) DeleteCard(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, cardID, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	update, err := h.selection.DeleteCard(r.Context(), userID, cardID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to delete card")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, cardUpdateToResponse(update))
}

// ToggleFavorite handles POST /cards/{id}/favorite.
func (h *CardHandler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, cardID, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	card, err := h.selection.ToggleFavorite(r.Context(), userID, cardID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update card")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, cardToResponse(card))
}

func cardUpdateToResponse(u *selection.CardUpdate) CardUpdateResponse {
	return CardUpdateResponse{
		Card: cardToResponse(u.Card),
		Deck: deckToResponse(u.Deck),
	}
}
