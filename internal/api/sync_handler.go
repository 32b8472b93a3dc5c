package api

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/scry-decks/internal/api/shared"
	"github.com/phrazzld/scry-decks/internal/domain"
	"github.com/phrazzld/scry-decks/internal/platform/logger"
	"github.com/phrazzld/scry-decks/internal/service/dynsync"
)

// SyncHandler serves the dynamic deck and its sync configuration.
type SyncHandler struct {
	coordinator dynsync.Coordinator
	logger      *slog.Logger
}

// NewSyncHandler creates a SyncHandler.
func NewSyncHandler(coordinator dynsync.Coordinator, logger *slog.Logger) *SyncHandler {
	if coordinator == nil {
		panic("sync coordinator cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncHandler{
		coordinator: coordinator,
		logger:      logger.With(slog.String("component", "sync_handler")),
	}
}

// CreateDynamicDeck handles POST /decks/dynamic.
func (h *SyncHandler) CreateDynamicDeck(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := requireUserID(w, r, log)
	if !ok {
		return
	}

	var req CreateDynamicDeckRequest
	if !decodeBody(w, r, &req) {
		return
	}

	deck, err := h.coordinator.CreateDynamicDeck(r.Context(), userID, req.Name)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create dynamic deck")
		return
	}

	log.Info("dynamic deck created", slog.String("user_deck_id", deck.ID.String()))
	shared.RespondWithJSON(w, r, http.StatusCreated, deckToResponse(deck))
}

// GetStatus handles GET /sync.
func (h *SyncHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := requireUserID(w, r, log)
	if !ok {
		return
	}

	report, err := h.coordinator.Status(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get sync status")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, syncStateToResponse(report.Sync, report.Phase))
}

// Sync handles POST /sync. A failed fetch is still a 200 response whose
// body reports succeeded=false.
func (h *SyncHandler) Sync(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := requireUserID(w, r, log)
	if !ok {
		return
	}

	result, err := h.coordinator.Sync(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to sync")
		return
	}

	log.Info("manual sync finished",
		slog.Bool("succeeded", result.Succeeded),
		slog.Int("added", result.Added))
	shared.RespondWithJSON(w, r, http.StatusOK, syncResultToResponse(result))
}

// UpdateDescriptor handles PUT /sync/descriptor.
func (h *SyncHandler) UpdateDescriptor(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := requireUserID(w, r, log)
	if !ok {
		return
	}

	var req SyncDescriptorRequest
	if !decodeBody(w, r, &req) {
		return
	}

	state, err := h.coordinator.UpdateSyncDescriptor(
		r.Context(), userID, domain.SyncType(req.Type), req.Descriptor)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update sync source")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, syncStateToResponse(*state, ""))
}

// UpdateAutoSync handles PUT /sync/auto.
func (h *SyncHandler) UpdateAutoSync(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := requireUserID(w, r, log)
	if !ok {
		return
	}

	var req EnabledRequest
	if !decodeBody(w, r, &req) {
		return
	}

	state, err := h.coordinator.UpdateAutoSync(r.Context(), userID, *req.Enabled)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update automatic sync")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, syncStateToResponse(*state, ""))
}
