package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-decks/internal/domain"
	"github.com/phrazzld/scry-decks/internal/domain/srs"
	"github.com/phrazzld/scry-decks/internal/platform/memory"
	"github.com/phrazzld/scry-decks/internal/service"
	"github.com/phrazzld/scry-decks/internal/service/auth"
	"github.com/phrazzld/scry-decks/internal/service/decks"
	"github.com/phrazzld/scry-decks/internal/service/dynsync"
	"github.com/phrazzld/scry-decks/internal/service/selection"
	"github.com/phrazzld/scry-decks/internal/source"
	"github.com/phrazzld/scry-decks/internal/task"
	"github.com/phrazzld/scry-decks/internal/userlock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "test-token"

type tokenVerifier struct {
	userID uuid.UUID
}

func (v *tokenVerifier) ValidateToken(_ context.Context, token string) (*auth.Claims, error) {
	if token != testToken {
		return nil, auth.ErrInvalidToken
	}
	return &auth.Claims{UserID: v.userID}, nil
}

type apiFixture struct {
	t      *testing.T
	repo   *memory.Repository
	userID uuid.UUID
	server *httptest.Server
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	f := &apiFixture{
		t:      t,
		repo:   memory.NewRepository(),
		userID: uuid.New(),
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	locks := userlock.New()
	scheduler := task.NewScheduler(task.DefaultSchedulerConfig(), log)
	t.Cleanup(scheduler.Stop)

	router := NewRouter(Dependencies{
		Verifier:       &tokenVerifier{userID: f.userID},
		Selection:      selection.NewService(f.repo, srs.NewDefaultService(), locks, log),
		Decks:          decks.NewService(f.repo, locks, log, func() time.Time { return time.Now().UTC() }),
		Sync:           dynsync.NewCoordinator(f.repo, source.NewRegistry(), scheduler, locks, log),
		Settings:       service.NewSettingsService(f.repo, locks, log),
		AllowedOrigins: []string{"http://localhost:3000"},
		Logger:         log,
	})
	f.server = httptest.NewServer(router)
	t.Cleanup(f.server.Close)
	return f
}

// sharedDeck stores a deck with n cards.
func (f *apiFixture) sharedDeck(n int) *domain.Deck {
	f.t.Helper()
	ctx := context.Background()
	deck := &domain.Deck{ID: uuid.New(), Name: "shared", CreatedAt: time.Now().UTC()}
	require.NoError(f.t, f.repo.Stores().Decks.Create(ctx, deck))

	cards := make([]*domain.Card, 0, n)
	for i := 0; i < n; i++ {
		c, err := domain.NewCard(deck.ID, "", "front", "", "back", "")
		require.NoError(f.t, err)
		cards = append(cards, c)
	}
	require.NoError(f.t, f.repo.Stores().Cards.CreateMultiple(ctx, cards))
	return deck
}

func (f *apiFixture) do(method, path string, body interface{}) *http.Response {
	f.t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(f.t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, f.server.URL+path, reader)
	require.NoError(f.t, err)
	req.Header.Set("Authorization", "Bearer "+testToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := f.server.Client().Do(req)
	require.NoError(f.t, err)
	f.t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeInto(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestHealth(t *testing.T) {
	f := newAPIFixture(t)

	resp, err := f.server.Client().Get(f.server.URL + "/health")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "OK", string(body))
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	f := newAPIFixture(t)

	resp, err := f.server.Client().Get(f.server.URL + "/api/decks")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Trace-ID"))
}

func TestDeckLifecycle(t *testing.T) {
	f := newAPIFixture(t)
	first := f.sharedDeck(3)
	second := f.sharedDeck(1)

	var added DeckResponse
	resp := f.do(http.MethodPost, "/api/decks", AddDeckRequest{DeckID: first.ID.String()})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	decodeInto(t, resp, &added)
	assert.Equal(t, first.ID.String(), added.DeckID)
	assert.True(t, added.Enabled)

	resp = f.do(http.MethodPost, "/api/decks", AddDeckRequest{DeckID: second.ID.String()})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	t.Run("adding twice conflicts", func(t *testing.T) {
		resp := f.do(http.MethodPost, "/api/decks", AddDeckRequest{DeckID: first.ID.String()})
		assert.Equal(t, http.StatusConflict, resp.StatusCode)

		var body struct {
			Error string `json:"error"`
		}
		decodeInto(t, resp, &body)
		assert.Equal(t, "Deck is already in your collection", body.Error)
	})

	t.Run("move down reorders", func(t *testing.T) {
		resp := f.do(http.MethodPost, "/api/decks/"+added.ID+"/move", MoveDeckRequest{Direction: "down"})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var list []DeckResponse
		resp = f.do(http.MethodGet, "/api/decks", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		decodeInto(t, resp, &list)
		require.Len(t, list, 2)
		assert.Equal(t, second.ID.String(), list[0].DeckID)
		assert.Equal(t, first.ID.String(), list[1].DeckID)
	})

	t.Run("disable", func(t *testing.T) {
		disabled := false
		var deck DeckResponse
		resp := f.do(http.MethodPut, "/api/decks/"+added.ID+"/enabled", EnabledRequest{Enabled: &disabled})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		decodeInto(t, resp, &deck)
		assert.False(t, deck.Enabled)
	})

	t.Run("delete", func(t *testing.T) {
		resp := f.do(http.MethodDelete, "/api/decks/"+added.ID, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var list []DeckResponse
		resp = f.do(http.MethodGet, "/api/decks", nil)
		decodeInto(t, resp, &list)
		assert.Len(t, list, 1)
	})
}

func TestCardFlow(t *testing.T) {
	f := newAPIFixture(t)
	deck := f.sharedDeck(3)

	resp := f.do(http.MethodPost, "/api/decks", AddDeckRequest{DeckID: deck.ID.String()})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var cards []CardResponse
	resp = f.do(http.MethodGet, "/api/cards/active", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeInto(t, resp, &cards)
	require.Len(t, cards, 3)
	card := cards[0]
	assert.Equal(t, "front", card.FrontPrimary)

	t.Run("favorite toggles", func(t *testing.T) {
		var got CardResponse
		resp := f.do(http.MethodPost, "/api/cards/"+card.ID+"/favorite", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		decodeInto(t, resp, &got)
		assert.True(t, got.Favorite)
	})

	t.Run("outcome", func(t *testing.T) {
		var got CardUpdateResponse
		resp := f.do(http.MethodPost, "/api/cards/"+card.ID+"/outcome", OutcomeRequest{Outcome: "easy"})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		decodeInto(t, resp, &got)
		assert.Equal(t, "easy", got.Card.LastOutcome)
		assert.Equal(t, 1, got.Card.Reviews)
	})

	t.Run("invalid outcome", func(t *testing.T) {
		resp := f.do(http.MethodPost, "/api/cards/"+card.ID+"/outcome", OutcomeRequest{Outcome: "trivial"})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("delete then delete again", func(t *testing.T) {
		resp := f.do(http.MethodDelete, "/api/cards/"+cards[1].ID, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		resp = f.do(http.MethodDelete, "/api/cards/"+cards[1].ID, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("malformed id", func(t *testing.T) {
		resp := f.do(http.MethodPost, "/api/cards/not-a-uuid/favorite", nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("unknown card", func(t *testing.T) {
		resp := f.do(http.MethodPost, "/api/cards/"+uuid.NewString()+"/favorite", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestSyncEndpoints(t *testing.T) {
	f := newAPIFixture(t)

	t.Run("sync before any settings exist", func(t *testing.T) {
		resp := f.do(http.MethodPost, "/api/sync", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	var deck DeckResponse
	resp := f.do(http.MethodPost, "/api/decks/dynamic", CreateDynamicDeckRequest{Name: "inbox"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	decodeInto(t, resp, &deck)
	assert.True(t, deck.Dynamic)

	t.Run("second dynamic deck conflicts", func(t *testing.T) {
		resp := f.do(http.MethodPost, "/api/decks/dynamic", CreateDynamicDeckRequest{Name: "again"})
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("status defaults", func(t *testing.T) {
		var status SyncStatusResponse
		resp := f.do(http.MethodGet, "/api/sync", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		decodeInto(t, resp, &status)
		assert.Empty(t, status.Type)
		assert.False(t, status.AutoSync)
		assert.NotEmpty(t, status.Phase)
	})

	t.Run("auto sync needs a source", func(t *testing.T) {
		enabled := true
		resp := f.do(http.MethodPut, "/api/sync/auto", EnabledRequest{Enabled: &enabled})
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("descriptor", func(t *testing.T) {
		var status SyncStatusResponse
		resp := f.do(http.MethodPut, "/api/sync/descriptor",
			SyncDescriptorRequest{Type: "sheet", Descriptor: "sheet-id"})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		decodeInto(t, resp, &status)
		assert.Equal(t, "sheet", status.Type)
		assert.Equal(t, "sheet-id", status.Descriptor)
	})

	t.Run("sync without a fetcher fails softly", func(t *testing.T) {
		var result SyncResultResponse
		resp := f.do(http.MethodPost, "/api/sync", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		decodeInto(t, resp, &result)
		assert.False(t, result.Succeeded)
		assert.NotEmpty(t, result.Status)
	})

	t.Run("unknown source type", func(t *testing.T) {
		resp := f.do(http.MethodPut, "/api/sync/descriptor",
			SyncDescriptorRequest{Type: "dropbox", Descriptor: "x"})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestSettingsEndpoints(t *testing.T) {
	f := newAPIFixture(t)

	var settings SettingsResponse
	resp := f.do(http.MethodGet, "/api/settings", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeInto(t, resp, &settings)
	assert.Equal(t, domain.NewSettings(f.userID, time.Now()).ShowLearned, settings.ShowLearned)

	enabled := !settings.ShuffleDecks
	resp = f.do(http.MethodPut, "/api/settings", UpdateSettingsRequest{ShuffleDecks: &enabled})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeInto(t, resp, &settings)
	assert.Equal(t, enabled, settings.ShuffleDecks)

	t.Run("empty update", func(t *testing.T) {
		resp := f.do(http.MethodPut, "/api/settings", map[string]interface{}{})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("unknown field", func(t *testing.T) {
		resp := f.do(http.MethodPut, "/api/settings", map[string]interface{}{"colour": "blue"})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestCORSPreflight(t *testing.T) {
	f := newAPIFixture(t)

	req, err := http.NewRequest(http.MethodOptions, f.server.URL+"/api/decks", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	resp, err := f.server.Client().Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
}
