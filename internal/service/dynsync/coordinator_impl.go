package dynsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-decks/internal/domain"
	"github.com/phrazzld/scry-decks/internal/platform/logger"
	"github.com/phrazzld/scry-decks/internal/redact"
	"github.com/phrazzld/scry-decks/internal/service"
	"github.com/phrazzld/scry-decks/internal/service/decks"
	"github.com/phrazzld/scry-decks/internal/store"
	"github.com/phrazzld/scry-decks/internal/task"
	"github.com/phrazzld/scry-decks/internal/userlock"
)

var _ Coordinator = (*coordinator)(nil)

type coordinator struct {
	repo      store.Repository
	fetchers  FetcherLookup
	scheduler task.JobScheduler
	locks     *userlock.Locker
	logger    *slog.Logger

	policy       domain.SyncPolicy
	period       time.Duration
	fetchTimeout time.Duration
	now          func() time.Time
}

// NewCoordinator creates the sync coordinator.
func NewCoordinator(
	repo store.Repository,
	fetchers FetcherLookup,
	scheduler task.JobScheduler,
	locks *userlock.Locker,
	logger *slog.Logger,
	opts ...Option,
) Coordinator {
	if repo == nil {
		panic("repo cannot be nil")
	}
	if fetchers == nil {
		panic("fetchers cannot be nil")
	}
	if scheduler == nil {
		panic("scheduler cannot be nil")
	}
	if locks == nil {
		panic("locks cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := &coordinator{
		repo:      repo,
		fetchers:  fetchers,
		scheduler: scheduler,
		locks:     locks,
		logger:    logger.With(slog.String("component", "sync_coordinator")),
		policy: domain.SyncPolicy{
			AttemptLimit: DefaultAttemptLimit,
			Cooldown:     DefaultCooldown,
		},
		period:       DefaultPeriod,
		fetchTimeout: DefaultFetchTimeout,
		now:          func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *coordinator) inTx(ctx context.Context, userID uuid.UUID, fn store.StoresFn) error {
	return c.locks.Do(ctx, userID, func() error {
		return c.repo.WithinTx(ctx, fn)
	})
}

// inTxThenJob runs fn in a transaction and then job, both under the user's
// lock, so the stored auto sync flag and the installed job change together.
// job receives the transaction's error.
func (c *coordinator) inTxThenJob(ctx context.Context, userID uuid.UUID, fn store.StoresFn, job func(txErr error) error) error {
	return c.locks.Do(ctx, userID, func() error {
		return job(c.repo.WithinTx(ctx, fn))
	})
}

// CreateDynamicDeck implements Coordinator.CreateDynamicDeck.
func (c *coordinator) CreateDynamicDeck(ctx context.Context, userID uuid.UUID, name string) (*domain.UserDeck, error) {
	log := logger.FromContextOrDefault(ctx, c.logger).With(slog.String("user_id", userID.String()))

	deck, err := domain.NewDynamicDeck(userID, name)
	if err != nil {
		return nil, err
	}

	var created *domain.UserDeck
	err = c.inTx(ctx, userID, func(ctx context.Context, st store.Stores) error {
		_, err := st.UserDecks.FindDynamic(ctx, userID)
		if err == nil {
			return domain.ErrDynamicDeckAlreadyExists
		}
		if !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("failed to find dynamic deck: %w", err)
		}

		if err := st.Decks.Create(ctx, deck); err != nil {
			return fmt.Errorf("failed to create deck: %w", err)
		}

		now := c.now()
		order, err := decks.ReserveOrder(ctx, st, userID, now)
		if err != nil {
			return err
		}

		created = domain.NewUserDeck(userID, deck.ID, order, 0, true, now)
		if err := st.UserDecks.Create(ctx, created); err != nil {
			return fmt.Errorf("failed to create user deck: %w", err)
		}
		return nil
	})
	if err != nil {
		log.Warn("failed to create dynamic deck", slog.String("error", err.Error()))
		return nil, service.Wrap("create_dynamic_deck", err)
	}

	log.Info("created dynamic deck",
		slog.String("user_deck_id", created.ID.String()),
		slog.Int64("order", created.Order))
	return created, nil
}

// attempt is what Sync needs to know once the attempt is recorded.
type attempt struct {
	sync domain.SyncState
	deck *domain.UserDeck
}

// Sync implements Coordinator.Sync.
func (c *coordinator) Sync(ctx context.Context, userID uuid.UUID) (*Result, error) {
	log := logger.FromContextOrDefault(ctx, c.logger).With(slog.String("user_id", userID.String()))

	a, err := c.beginAttempt(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrRateLimited) {
			log.Info("sync rate limited")
		} else {
			log.Warn("sync rejected", slog.String("error", err.Error()))
		}
		return nil, service.Wrap("sync", err)
	}

	log = log.With(slog.String("sync_type", string(a.sync.Type)))

	candidates, err := c.fetch(ctx, a.sync)
	if err != nil {
		return c.fail(ctx, userID, err)
	}

	result, err := c.materialize(ctx, userID, candidates)
	if err != nil {
		return c.fail(ctx, userID, err)
	}

	log.Info("sync succeeded",
		slog.Int("candidates", len(candidates)),
		slog.Int("added", result.Added))
	return result, nil
}

// beginAttempt checks the preconditions and records the attempt before any
// fetch happens.
func (c *coordinator) beginAttempt(ctx context.Context, userID uuid.UUID) (*attempt, error) {
	var a attempt
	err := c.inTx(ctx, userID, func(ctx context.Context, st store.Stores) error {
		settings, err := st.Settings.Get(ctx, userID)
		if err != nil {
			return err
		}

		deck, err := st.UserDecks.FindDynamic(ctx, userID)
		if errors.Is(err, store.ErrNotFound) {
			return domain.ErrDynamicDeckMissing
		}
		if err != nil {
			return fmt.Errorf("failed to find dynamic deck: %w", err)
		}

		if err := settings.Sync.Configured(); err != nil {
			return err
		}

		now := c.now()
		next, err := settings.Sync.BeginAttempt(now, c.policy)
		if err != nil {
			return err
		}

		settings.Sync = next
		settings.UpdatedAt = now
		if err := st.Settings.Upsert(ctx, settings); err != nil {
			return fmt.Errorf("failed to record sync attempt: %w", err)
		}

		a = attempt{sync: next, deck: deck}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// fetch runs outside the user lock.
func (c *coordinator) fetch(ctx context.Context, state domain.SyncState) ([]domain.CandidateCard, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	defer cancel()
	return c.fetchers.Lookup(state.Type).FetchCandidates(fetchCtx, state.Descriptor)
}

// materialize stores the new candidates in the dynamic deck and records the
// success in one transaction.
func (c *coordinator) materialize(
	ctx context.Context,
	userID uuid.UUID,
	candidates []domain.CandidateCard,
) (*Result, error) {
	log := logger.FromContextOrDefault(ctx, c.logger).With(slog.String("user_id", userID.String()))

	var result Result
	err := c.inTx(ctx, userID, func(ctx context.Context, st store.Stores) error {
		deck, err := st.UserDecks.FindDynamic(ctx, userID)
		if errors.Is(err, store.ErrNotFound) {
			return domain.ErrDynamicDeckMissing
		}
		if err != nil {
			return fmt.Errorf("failed to find dynamic deck: %w", err)
		}

		existing, err := st.Cards.ListByDeck(ctx, deck.DeckID)
		if err != nil {
			return fmt.Errorf("failed to list dynamic deck cards: %w", err)
		}

		fresh := Dedupe(candidates, existing)
		cards := make([]*domain.Card, 0, len(fresh))
		for _, cand := range fresh {
			card, err := domain.NewCardFromCandidate(deck.DeckID, cand)
			if err != nil {
				log.Debug("skipping invalid candidate",
					slog.String("external_id", cand.ExternalID),
					slog.String("error", err.Error()))
				continue
			}
			cards = append(cards, card)
		}

		now := c.now()
		if len(cards) > 0 {
			if err := st.Cards.CreateMultiple(ctx, cards); err != nil {
				return fmt.Errorf("failed to create cards: %w", err)
			}
			deck.CardsCount += len(cards)
			deck.UpdatedAt = now
			if err := st.UserDecks.Update(ctx, deck); err != nil {
				return fmt.Errorf("failed to update dynamic deck: %w", err)
			}
		}

		settings, err := st.Settings.Get(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to get settings: %w", err)
		}
		settings.Sync = settings.Sync.Succeed(now)
		settings.UpdatedAt = now
		if err := st.Settings.Upsert(ctx, settings); err != nil {
			return fmt.Errorf("failed to record sync status: %w", err)
		}

		result = Result{
			Succeeded: true,
			Deck:      deck,
			Added:     len(cards),
			Status:    settings.Sync.Status,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// fail records cause as the sync status, turns automatic syncing off and
// cancels the recurring job.
func (c *coordinator) fail(ctx context.Context, userID uuid.UUID, cause error) (*Result, error) {
	log := logger.FromContextOrDefault(ctx, c.logger).With(slog.String("user_id", userID.String()))
	status := redact.Message(cause, domain.DefaultSyncErrorStatus)
	log.Warn("sync failed", slog.String("error", redact.Error(cause)))

	result := &Result{Status: status}
	err := c.inTxThenJob(ctx, userID, func(ctx context.Context, st store.Stores) error {
		settings, err := st.Settings.Get(ctx, userID)
		if err != nil {
			return err
		}
		settings.Sync = settings.Sync.Fail(status)
		settings.UpdatedAt = c.now()
		if err := st.Settings.Upsert(ctx, settings); err != nil {
			return fmt.Errorf("failed to record sync failure: %w", err)
		}

		deck, err := st.UserDecks.FindDynamic(ctx, userID)
		if err == nil {
			result.Deck = deck
		}
		return nil
	}, func(txErr error) error {
		c.scheduler.CancelJob(userID, task.JobKindDynamicSync)
		return txErr
	})
	if err != nil {
		log.Error("failed to record sync failure", slog.String("error", err.Error()))
		return nil, service.Wrap("sync", err)
	}
	return result, nil
}

// Dedupe drops candidates without an external id, those whose id is already
// in existing, and repeats within candidates. Order is preserved.
func Dedupe(candidates []domain.CandidateCard, existing []*domain.Card) []domain.CandidateCard {
	seen := make(map[string]struct{}, len(existing)+len(candidates))
	for _, card := range existing {
		if card.ExternalID != "" {
			seen[card.ExternalID] = struct{}{}
		}
	}

	out := make([]domain.CandidateCard, 0, len(candidates))
	for _, cand := range candidates {
		id := strings.TrimSpace(cand.ExternalID)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		cand.ExternalID = id
		out = append(out, cand)
	}
	return out
}

// getOrCreateSettings loads the user's settings, returning defaults when the
// user has none yet.
func getOrCreateSettings(ctx context.Context, st store.Stores, userID uuid.UUID, now time.Time) (*domain.Settings, error) {
	settings, err := st.Settings.Get(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.NewSettings(userID, now), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	return settings, nil
}

// UpdateSyncDescriptor implements Coordinator.UpdateSyncDescriptor.
func (c *coordinator) UpdateSyncDescriptor(
	ctx context.Context,
	userID uuid.UUID,
	typ domain.SyncType,
	descriptor string,
) (*domain.SyncState, error) {
	if !typ.Valid() {
		return nil, domain.ErrInvalidSyncType
	}
	descriptor = strings.TrimSpace(descriptor)

	var state domain.SyncState
	err := c.inTxThenJob(ctx, userID, func(ctx context.Context, st store.Stores) error {
		now := c.now()
		settings, err := getOrCreateSettings(ctx, st, userID, now)
		if err != nil {
			return err
		}
		settings.Sync.Type = typ
		settings.Sync.Descriptor = descriptor
		settings.Sync.Status = ""
		settings.Sync.Failed = false
		if settings.Sync.Configured() != nil {
			settings.Sync.AutoSync = false
		}
		settings.UpdatedAt = now
		if err := st.Settings.Upsert(ctx, settings); err != nil {
			return fmt.Errorf("failed to save sync descriptor: %w", err)
		}
		state = settings.Sync
		return nil
	}, func(txErr error) error {
		if txErr != nil {
			return txErr
		}
		return c.applyJob(userID, state)
	})
	if err != nil {
		return nil, service.Wrap("update_sync_descriptor", err)
	}

	logger.FromContextOrDefault(ctx, c.logger).Info("updated sync descriptor",
		slog.String("user_id", userID.String()),
		slog.String("sync_type", string(typ)),
		slog.Bool("auto_sync", state.AutoSync))
	return &state, nil
}

// UpdateAutoSync implements Coordinator.UpdateAutoSync.
func (c *coordinator) UpdateAutoSync(ctx context.Context, userID uuid.UUID, enabled bool) (*domain.SyncState, error) {
	var state domain.SyncState
	err := c.inTxThenJob(ctx, userID, func(ctx context.Context, st store.Stores) error {
		now := c.now()
		settings, err := getOrCreateSettings(ctx, st, userID, now)
		if err != nil {
			return err
		}
		if enabled {
			if err := settings.Sync.Configured(); err != nil {
				return err
			}
			settings.Sync.Failed = false
		}
		settings.Sync.AutoSync = enabled
		settings.UpdatedAt = now
		if err := st.Settings.Upsert(ctx, settings); err != nil {
			return fmt.Errorf("failed to save auto sync: %w", err)
		}
		state = settings.Sync
		return nil
	}, func(txErr error) error {
		if txErr != nil {
			return txErr
		}
		return c.applyJob(userID, state)
	})
	if err != nil {
		return nil, service.Wrap("update_auto_sync", err)
	}

	logger.FromContextOrDefault(ctx, c.logger).Info("updated auto sync",
		slog.String("user_id", userID.String()),
		slog.Bool("auto_sync", enabled))
	return &state, nil
}

// applyJob installs or cancels the recurring job to match state. Callers
// hold the user's lock.
func (c *coordinator) applyJob(userID uuid.UUID, state domain.SyncState) error {
	if state.AutoSync && state.Configured() == nil {
		if err := c.scheduler.UpdateJob(userID, task.JobKindDynamicSync, task.NewSchedule(c.period)); err != nil {
			return fmt.Errorf("failed to install sync job: %w", err)
		}
		return nil
	}
	c.scheduler.CancelJob(userID, task.JobKindDynamicSync)
	return nil
}

// Status implements Coordinator.Status.
func (c *coordinator) Status(ctx context.Context, userID uuid.UUID) (*StatusReport, error) {
	now := c.now()
	settings, err := getOrCreateSettings(ctx, c.repo.Stores(), userID, now)
	if err != nil {
		return nil, service.Wrap("sync_status", err)
	}
	return &StatusReport{
		Sync:  settings.Sync,
		Phase: settings.Sync.Phase(now, c.policy),
	}, nil
}

// RestoreJobs implements Coordinator.RestoreJobs.
func (c *coordinator) RestoreJobs(ctx context.Context) (int, error) {
	users, err := c.repo.Stores().Settings.ListAutoSync(ctx)
	if err != nil {
		return 0, service.Wrap("restore_sync_jobs", err)
	}

	installed := 0
	for _, userID := range users {
		err := c.scheduler.InstallJob(userID, task.JobKindDynamicSync, task.NewSchedule(c.period))
		switch {
		case err == nil:
			installed++
		case errors.Is(err, task.ErrJobExists):
		default:
			return installed, service.Wrap("restore_sync_jobs", err)
		}
	}

	c.logger.Info("restored sync jobs",
		slog.Int("auto_sync_users", len(users)),
		slog.Int("installed", installed))
	return installed, nil
}

// HandleJob implements Coordinator.HandleJob. Rate limiting is left for the
// next firing; any other rejection cancels the job, since retrying cannot
// help until the user changes their configuration.
func (c *coordinator) HandleJob(ctx context.Context, userID uuid.UUID) error {
	result, err := c.Sync(ctx, userID)
	switch {
	case err == nil:
		if !result.Succeeded {
			return errors.New(result.Status)
		}
		return nil
	case errors.Is(err, domain.ErrRateLimited):
		return nil
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrInvalidState):
		if stopErr := c.stopAutoSync(ctx, userID); stopErr != nil {
			return errors.Join(err, stopErr)
		}
		return err
	default:
		return err
	}
}

// stopAutoSync turns automatic syncing off, if the user has settings, and
// cancels the recurring job under the user's lock.
func (c *coordinator) stopAutoSync(ctx context.Context, userID uuid.UUID) error {
	return c.inTxThenJob(ctx, userID, func(ctx context.Context, st store.Stores) error {
		settings, err := st.Settings.Get(ctx, userID)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to get settings: %w", err)
		}
		if !settings.Sync.AutoSync {
			return nil
		}
		settings.Sync.AutoSync = false
		settings.UpdatedAt = c.now()
		return st.Settings.Upsert(ctx, settings)
	}, func(txErr error) error {
		c.scheduler.CancelJob(userID, task.JobKindDynamicSync)
		return txErr
	})
}
