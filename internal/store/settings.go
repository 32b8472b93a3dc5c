package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-decks/internal/domain"
)

// SettingsStore persists per-user settings, including the sync state.
type SettingsStore interface {
	// Get returns ErrSettingsNotFound when the user has no settings row.
	Get(ctx context.Context, userID uuid.UUID) (*domain.Settings, error)

	// Upsert creates or replaces the user's settings row.
	Upsert(ctx context.Context, settings *domain.Settings) error

	// ListAutoSync returns the ids of users with automatic sync turned on.
	ListAutoSync(ctx context.Context) ([]uuid.UUID, error)
}
