package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	apiMiddleware "github.com/phrazzld/scry-decks/internal/api/middleware"
	"github.com/phrazzld/scry-decks/internal/service"
	"github.com/phrazzld/scry-decks/internal/service/auth"
	"github.com/phrazzld/scry-decks/internal/service/decks"
	"github.com/phrazzld/scry-decks/internal/service/dynsync"
	"github.com/phrazzld/scry-decks/internal/service/selection"
	"github.com/rs/cors"
)

// Dependencies are the services the router exposes.
type Dependencies struct {
	Verifier       auth.TokenVerifier
	Selection      selection.Service
	Decks          decks.Service
	Sync           dynsync.Coordinator
	Settings       service.SettingsService
	AllowedOrigins []string
	Logger         *slog.Logger
}

// NewRouter builds the HTTP handler with all routes and middleware.
func NewRouter(deps Dependencies) http.Handler {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware(log))

	authMiddleware := apiMiddleware.NewAuthMiddleware(deps.Verifier)
	cardHandler := NewCardHandler(deps.Selection, log)
	deckHandler := NewDeckHandler(deps.Decks, log)
	syncHandler := NewSyncHandler(deps.Sync, log)
	settingsHandler := NewSettingsHandler(deps.Settings, log)

	r.Route("/api", func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)

		r.Get("/cards/active", cardHandler.GetActiveCards)
		r.Post("/cards/{id}/outcome", cardHandler.RecordOutcome)
		r.Delete("/cards/{id}", cardHandler.DeleteCard)
		r.Post("/cards/{id}/favorite", cardHandler.ToggleFavorite)

		r.Get("/decks", deckHandler.ListDecks)
		r.Post("/decks", deckHandler.AddDeck)
		r.Post("/decks/dynamic", syncHandler.CreateDynamicDeck)
		r.Post("/decks/{id}/move", deckHandler.MoveDeck)
		r.Put("/decks/{id}/enabled", deckHandler.SetEnabled)
		r.Delete("/decks/{id}", deckHandler.DeleteDeck)

		r.Get("/sync", syncHandler.GetStatus)
		r.Post("/sync", syncHandler.Sync)
		r.Put("/sync/descriptor", syncHandler.UpdateDescriptor)
		r.Put("/sync/auto", syncHandler.UpdateAutoSync)

		r.Get("/settings", settingsHandler.GetSettings)
		r.Put("/settings", settingsHandler.UpdateSettings)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Error("failed to write health check response", slog.Any("error", err))
		}
	})

	return cors.New(cors.Options{
		AllowedOrigins:   deps.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Trace-ID"},
		AllowCredentials: true,
	}).Handler(r)
}
