package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-decks/internal/domain"
	"github.com/phrazzld/scry-decks/internal/platform/logger"
	"github.com/phrazzld/scry-decks/internal/store"
)

// SettingsStore implements store.SettingsStore using a PostgreSQL database.
// The sync state is stored as a JSONB document.
type SettingsStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewSettingsStore creates a SettingsStore. If logger is nil, a default logger will be used.
func NewSettingsStore(db store.DBTX, logger *slog.Logger) *SettingsStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SettingsStore{
		db:     db,
		logger: logger.With(slog.String("component", "settings_store")),
	}
}

var _ store.SettingsStore = (*SettingsStore)(nil)

// Get implements store.SettingsStore.Get.
func (s *SettingsStore) Get(ctx context.Context, userID uuid.UUID) (*domain.Settings, error) {
	query := `
		SELECT user_id, show_learned, dynamic_high_priority, shuffle_decks,
		       max_deck_order, sync, created_at, updated_at
		FROM user_settings
		WHERE user_id = $1
	`

	var (
		settings domain.Settings
		syncDoc  []byte
	)
	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&settings.UserID,
		&settings.ShowLearned,
		&settings.DynamicHighPriority,
		&settings.ShuffleDecks,
		&settings.MaxDeckOrder,
		&syncDoc,
		&settings.CreatedAt,
		&settings.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrSettingsNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to get settings",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, MapError(err)
	}

	if len(syncDoc) > 0 {
		if err := json.Unmarshal(syncDoc, &settings.Sync); err != nil {
			return nil, fmt.Errorf("decode sync state of user %s: %w", userID, err)
		}
	}
	if settings.Sync.Attempts == nil {
		settings.Sync.Attempts = []time.Time{}
	}
	return &settings, nil
}

// Upsert implements store.SettingsStore.Upsert.
func (s *SettingsStore) Upsert(ctx context.Context, settings *domain.Settings) error {
	if err := settings.Validate(); err != nil {
		return store.NewStoreError("settings", "upsert", "invalid settings", err)
	}

	syncDoc, err := json.Marshal(settings.Sync)
	if err != nil {
		return store.NewStoreError("settings", "upsert", "invalid sync state", err)
	}

	query := `
		INSERT INTO user_settings (user_id, show_learned, dynamic_high_priority, shuffle_decks,
		                           max_deck_order, sync, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id) DO UPDATE SET
			show_learned = EXCLUDED.show_learned,
			dynamic_high_priority = EXCLUDED.dynamic_high_priority,
			shuffle_decks = EXCLUDED.shuffle_decks,
			max_deck_order = EXCLUDED.max_deck_order,
			sync = EXCLUDED.sync,
			updated_at = EXCLUDED.updated_at
	`
	_, err = s.db.ExecContext(ctx, query,
		settings.UserID,
		settings.ShowLearned,
		settings.DynamicHighPriority,
		settings.ShuffleDecks,
		settings.MaxDeckOrder,
		string(syncDoc),
		settings.CreatedAt,
		settings.UpdatedAt,
	)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to upsert settings",
			slog.String("error", err.Error()),
			slog.String("user_id", settings.UserID.String()))
		return store.NewStoreError("settings", "upsert", "upsert failed", MapError(err))
	}
	return nil
}

// ListAutoSync implements store.SettingsStore.ListAutoSync.
func (s *SettingsStore) ListAutoSync(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id FROM user_settings WHERE (sync ->> 'auto_sync')::boolean ORDER BY user_id`)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to list auto sync users",
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, MapError(err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return ids, nil
}
