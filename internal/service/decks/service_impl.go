package decks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-decks/internal/domain"
	"github.com/phrazzld/scry-decks/internal/platform/logger"
	"github.com/phrazzld/scry-decks/internal/service"
	"github.com/phrazzld/scry-decks/internal/store"
	"github.com/phrazzld/scry-decks/internal/userlock"
)

var _ Service = (*serviceImpl)(nil)

type serviceImpl struct {
	repo   store.Repository
	locks  *userlock.Locker
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates the deck ordering service. now may be nil.
func NewService(repo store.Repository, locks *userlock.Locker, logger *slog.Logger, now func() time.Time) Service {
	if repo == nil {
		panic("repo cannot be nil")
	}
	if locks == nil {
		panic("locks cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &serviceImpl{
		repo:   repo,
		locks:  locks,
		logger: logger.With(slog.String("component", "deck_service")),
		now:    now,
	}
}

// inTx runs fn in a transaction while holding the user's lock.
func (s *serviceImpl) inTx(ctx context.Context, userID uuid.UUID, fn store.StoresFn) error {
	return s.locks.Do(ctx, userID, func() error {
		return s.repo.WithinTx(ctx, fn)
	})
}

func (s *serviceImpl) Append(ctx context.Context, userID uuid.UUID) (int64, error) {
	var order int64
	err := s.inTx(ctx, userID, func(ctx context.Context, st store.Stores) error {
		var err error
		order, err = ReserveOrder(ctx, st, userID, s.now())
		return err
	})
	if err != nil {
		return 0, service.Wrap("append_deck_order", err)
	}
	return order, nil
}

func (s *serviceImpl) Move(
	ctx context.Context,
	userID, userDeckID uuid.UUID,
	direction domain.Direction,
) (*domain.UserDeck, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(
		slog.String("user_id", userID.String()),
		slog.String("user_deck_id", userDeckID.String()),
		slog.String("direction", string(direction)))

	if !direction.Valid() {
		return nil, domain.ErrInvalidDirection
	}

	var moved *domain.UserDeck
	err := s.inTx(ctx, userID, func(ctx context.Context, st store.Stores) error {
		decks, err := st.UserDecks.ListActive(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to list decks: %w", err)
		}
		domain.SortByOrder(decks)

		idx := -1
		for i, d := range decks {
			if d.ID == userDeckID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return domain.ErrUserDeckNotFound
		}

		neighbour := idx - 1
		if direction == domain.DirectionDown {
			neighbour = idx + 1
		}
		if neighbour < 0 || neighbour >= len(decks) {
			moved = decks[idx]
			return nil
		}

		target, other := decks[idx], decks[neighbour]
		target.Order, other.Order = other.Order, target.Order
		now := s.now()
		target.UpdatedAt, other.UpdatedAt = now, now

		if err := st.UserDecks.Update(ctx, target); err != nil {
			return fmt.Errorf("failed to update deck: %w", err)
		}
		if err := st.UserDecks.Update(ctx, other); err != nil {
			return fmt.Errorf("failed to update neighbour deck: %w", err)
		}
		moved = target
		return nil
	})
	if err != nil {
		log.Warn("failed to move deck", slog.String("error", err.Error()))
		return nil, service.Wrap("move_deck", err)
	}

	log.Debug("moved deck", slog.Int64("order", moved.Order))
	return moved, nil
}

func (s *serviceImpl) AddDeck(ctx context.Context, userID, deckID uuid.UUID) (*domain.UserDeck, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(
		slog.String("user_id", userID.String()),
		slog.String("deck_id", deckID.String()))

	var created *domain.UserDeck
	err := s.inTx(ctx, userID, func(ctx context.Context, st store.Stores) error {
		deck, err := st.Decks.GetByID(ctx, deckID)
		if err != nil {
			return err
		}
		if deck.Dynamic {
			return domain.ErrDeckNotImportable
		}

		_, err = st.UserDecks.FindByDeck(ctx, userID, deckID)
		if err == nil {
			return domain.ErrDeckAlreadyBound
		}
		if !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("failed to check existing binding: %w", err)
		}

		cards, err := st.Cards.ListByDeck(ctx, deckID)
		if err != nil {
			return fmt.Errorf("failed to count deck cards: %w", err)
		}

		now := s.now()
		order, err := ReserveOrder(ctx, st, userID, now)
		if err != nil {
			return err
		}

		created = domain.NewUserDeck(userID, deckID, order, len(cards), false, now)
		if err := st.UserDecks.Create(ctx, created); err != nil {
			return fmt.Errorf("failed to create user deck: %w", err)
		}
		return nil
	})
	if err != nil {
		log.Warn("failed to add deck", slog.String("error", err.Error()))
		return nil, service.Wrap("add_deck", err)
	}

	log.Info("added deck",
		slog.String("user_deck_id", created.ID.String()),
		slog.Int64("order", created.Order),
		slog.Int("cards_count", created.CardsCount))
	return created, nil
}

func (s *serviceImpl) SetEnabled(
	ctx context.Context,
	userID, userDeckID uuid.UUID,
	enabled bool,
) (*domain.UserDeck, error) {
	var deck *domain.UserDeck
	err := s.inTx(ctx, userID, func(ctx context.Context, st store.Stores) error {
		var err error
		deck, err = getLiveDeck(ctx, st, userID, userDeckID)
		if err != nil {
			return err
		}
		if deck.Enabled == enabled {
			return nil
		}
		deck.Enabled = enabled
		deck.UpdatedAt = s.now()
		return st.UserDecks.Update(ctx, deck)
	})
	if err != nil {
		return nil, service.Wrap("set_deck_enabled", err)
	}
	return deck, nil
}

func (s *serviceImpl) DeleteDeck(ctx context.Context, userID, userDeckID uuid.UUID) (*domain.UserDeck, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(
		slog.String("user_id", userID.String()),
		slog.String("user_deck_id", userDeckID.String()))

	var (
		deck    *domain.UserDeck
		removed int
	)
	err := s.inTx(ctx, userID, func(ctx context.Context, st store.Stores) error {
		var err error
		deck, err = getLiveDeck(ctx, st, userID, userDeckID)
		if err != nil {
			return err
		}
		if deck.Dynamic {
			return domain.ErrDynamicDeckNotDeletable
		}
		deck.Deleted = true
		deck.UpdatedAt = s.now()
		if err := st.UserDecks.Update(ctx, deck); err != nil {
			return fmt.Errorf("failed to delete deck: %w", err)
		}

		removed, err = st.UserCards.SoftDeleteByUserDeck(ctx, userID, userDeckID)
		if err != nil {
			return fmt.Errorf("failed to delete deck cards: %w", err)
		}
		return nil
	})
	if err != nil {
		log.Warn("failed to delete deck", slog.String("error", err.Error()))
		return nil, service.Wrap("delete_deck", err)
	}

	log.Info("deleted deck", slog.Int("user_cards_removed", removed))
	return deck, nil
}

func (s *serviceImpl) ListDecks(ctx context.Context, userID uuid.UUID) ([]*domain.UserDeck, error) {
	decks, err := s.repo.Stores().UserDecks.ListActive(ctx, userID)
	if err != nil {
		return nil, service.Wrap("list_decks", err)
	}
	domain.SortByOrder(decks)
	return decks, nil
}

func getLiveDeck(ctx context.Context, st store.Stores, userID, userDeckID uuid.UUID) (*domain.UserDeck, error) {
	deck, err := st.UserDecks.GetByID(ctx, userID, userDeckID)
	if err != nil {
		return nil, service.MapStoreError(err)
	}
	if deck.Deleted {
		return nil, domain.ErrUserDeckNotFound
	}
	return deck, nil
}
