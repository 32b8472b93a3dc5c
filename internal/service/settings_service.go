package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-decks/internal/domain"
	"github.com/phrazzld/scry-decks/internal/platform/logger"
	"github.com/phrazzld/scry-decks/internal/store"
	"github.com/phrazzld/scry-decks/internal/userlock"
)

// SettingsUpdate carries the selection flags a user may change. Nil fields
// are left untouched.
type SettingsUpdate struct {
	ShowLearned         *bool
	DynamicHighPriority *bool
	ShuffleDecks        *bool
}

// SettingsService reads and changes a user's selection flags.
type SettingsService interface {
	// GetSettings returns the user's settings, or the defaults when the user
	// has none yet. The defaults are not persisted.
	GetSettings(ctx context.Context, userID uuid.UUID) (*domain.Settings, error)

	// UpdateSettings applies update, creating the settings row if needed.
	UpdateSettings(ctx context.Context, userID uuid.UUID, update SettingsUpdate) (*domain.Settings, error)
}

var _ SettingsService = (*settingsServiceImpl)(nil)

type settingsServiceImpl struct {
	repo   store.Repository
	locks  *userlock.Locker
	logger *slog.Logger
	now    func() time.Time
}

// NewSettingsService creates a SettingsService.
func NewSettingsService(repo store.Repository, locks *userlock.Locker, logger *slog.Logger) SettingsService {
	if repo == nil {
		panic("repo cannot be nil")
	}
	if locks == nil {
		panic("locks cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &settingsServiceImpl{
		repo:   repo,
		locks:  locks,
		logger: logger.With(slog.String("component", "settings_service")),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *settingsServiceImpl) GetSettings(ctx context.Context, userID uuid.UUID) (*domain.Settings, error) {
	settings, err := s.repo.Stores().Settings.Get(ctx, userID)
	if errors.Is(err, store.ErrSettingsNotFound) {
		return domain.NewSettings(userID, s.now()), nil
	}
	if err != nil {
		return nil, Wrap("get_settings", err)
	}
	return settings, nil
}

func (s *settingsServiceImpl) UpdateSettings(
	ctx context.Context,
	userID uuid.UUID,
	update SettingsUpdate,
) (*domain.Settings, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(slog.String("user_id", userID.String()))

	var result *domain.Settings
	err := s.locks.Do(ctx, userID, func() error {
		return s.repo.WithinTx(ctx, func(ctx context.Context, st store.Stores) error {
			now := s.now()
			settings, err := st.Settings.Get(ctx, userID)
			if errors.Is(err, store.ErrSettingsNotFound) {
				settings = domain.NewSettings(userID, now)
			} else if err != nil {
				return err
			}

			if update.ShowLearned != nil {
				settings.ShowLearned = *update.ShowLearned
			}
			if update.DynamicHighPriority != nil {
				settings.DynamicHighPriority = *update.DynamicHighPriority
			}
			if update.ShuffleDecks != nil {
				settings.ShuffleDecks = *update.ShuffleDecks
			}
			settings.UpdatedAt = now

			if err := st.Settings.Upsert(ctx, settings); err != nil {
				return err
			}
			result = settings
			return nil
		})
	})
	if err != nil {
		log.Error("failed to update settings", slog.Any("error", err))
		return nil, Wrap("update_settings", err)
	}

	log.Debug("settings updated",
		slog.Bool("show_learned", result.ShowLearned),
		slog.Bool("dynamic_high_priority", result.DynamicHighPriority),
		slog.Bool("shuffle_decks", result.ShuffleDecks))
	return result, nil
}
