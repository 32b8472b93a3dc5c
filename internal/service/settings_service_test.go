package service

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-decks/internal/platform/memory"
	"github.com/phrazzld/scry-decks/internal/userlock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool { return &b }

func newSettingsService(repo *memory.Repository) SettingsService {
	return NewSettingsService(repo, userlock.New(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestGetSettings_DefaultsWhenMissing(t *testing.T) {
	repo := memory.NewRepository()
	svc := newSettingsService(repo)
	userID := uuid.New()

	settings, err := svc.GetSettings(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, userID, settings.UserID)
	assert.False(t, settings.ShowLearned)
	assert.False(t, settings.DynamicHighPriority)
	assert.False(t, settings.ShuffleDecks)
	assert.Zero(t, settings.MaxDeckOrder)

	_, err = repo.Stores().Settings.Get(context.Background(), userID)
	assert.Error(t, err, "defaults must not be persisted")
}

func TestUpdateSettings(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewRepository()
	svc := newSettingsService(repo)
	userID := uuid.New()

	updated, err := svc.UpdateSettings(ctx, userID, SettingsUpdate{
		ShowLearned:  boolPtr(true),
		ShuffleDecks: boolPtr(true),
	})
	require.NoError(t, err)
	assert.True(t, updated.ShowLearned)
	assert.True(t, updated.ShuffleDecks)
	assert.False(t, updated.DynamicHighPriority)

	updated, err = svc.UpdateSettings(ctx, userID, SettingsUpdate{
		ShowLearned:         boolPtr(false),
		DynamicHighPriority: boolPtr(true),
	})
	require.NoError(t, err)
	assert.False(t, updated.ShowLearned)
	assert.True(t, updated.ShuffleDecks, "untouched flag keeps its value")
	assert.True(t, updated.DynamicHighPriority)

	stored, err := svc.GetSettings(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, updated.ShowLearned, stored.ShowLearned)
	assert.Equal(t, updated.ShuffleDecks, stored.ShuffleDecks)
	assert.Equal(t, updated.DynamicHighPriority, stored.DynamicHighPriority)
}

func TestUpdateSettings_KeepsDeckOrderCounter(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewRepository()
	svc := newSettingsService(repo)
	userID := uuid.New()

	_, err := svc.UpdateSettings(ctx, userID, SettingsUpdate{})
	require.NoError(t, err)

	st := repo.Stores()
	s, err := st.Settings.Get(ctx, userID)
	require.NoError(t, err)
	s.NextDeckOrder()
	s.NextDeckOrder()
	require.NoError(t, st.Settings.Upsert(ctx, s))

	updated, err := svc.UpdateSettings(ctx, userID, SettingsUpdate{ShowLearned: boolPtr(true)})
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.MaxDeckOrder)
}
