package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-decks/internal/domain"
	"github.com/phrazzld/scry-decks/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedDeck(t *testing.T, r *Repository, n int) (*domain.Deck, []*domain.Card) {
	t.Helper()
	ctx := context.Background()
	deck := &domain.Deck{ID: uuid.New(), Name: "shared", CreatedAt: time.Now()}
	require.NoError(t, r.Stores().Decks.Create(ctx, deck))

	cards := make([]*domain.Card, 0, n)
	for i := 0; i < n; i++ {
		c, err := domain.NewCard(deck.ID, "", "front", "", "back", "")
		require.NoError(t, err)
		cards = append(cards, c)
	}
	require.NoError(t, r.Stores().Cards.CreateMultiple(ctx, cards))
	return deck, cards
}

func TestWithinTx_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	r := NewRepository()
	deck, _ := seedDeck(t, r, 1)
	userID := uuid.New()
	boom := errors.New("boom")

	err := r.WithinTx(ctx, func(ctx context.Context, s store.Stores) error {
		ud := domain.NewUserDeck(userID, deck.ID, 1, 1, false, time.Now())
		require.NoError(t, s.UserDecks.Create(ctx, ud))
		require.NoError(t, s.Settings.Upsert(ctx, domain.NewSettings(userID, time.Now())))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	decks, err := r.Stores().UserDecks.ListActive(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, decks)

	_, err = r.Stores().Settings.Get(ctx, userID)
	assert.ErrorIs(t, err, store.ErrSettingsNotFound)
}

func TestWithinTx_RollbackKeepsWritesOutsideTx(t *testing.T) {
	ctx := context.Background()
	r := NewRepository()
	inTx, outside := uuid.New(), uuid.New()
	boom := errors.New("boom")

	opened := make(chan struct{})
	release := make(chan struct{})
	txDone := make(chan error, 1)
	go func() {
		txDone <- r.WithinTx(ctx, func(ctx context.Context, s store.Stores) error {
			if err := s.Settings.Upsert(ctx, domain.NewSettings(inTx, time.Now())); err != nil {
				return err
			}
			close(opened)
			<-release
			return boom
		})
	}()
	<-opened

	written := make(chan error, 1)
	go func() {
		written <- r.Stores().Settings.Upsert(ctx, domain.NewSettings(outside, time.Now()))
	}()
	time.Sleep(20 * time.Millisecond)
	close(release)

	assert.ErrorIs(t, <-txDone, boom)
	require.NoError(t, <-written)

	_, err := r.Stores().Settings.Get(ctx, outside)
	assert.NoError(t, err)
	_, err = r.Stores().Settings.Get(ctx, inTx)
	assert.ErrorIs(t, err, store.ErrSettingsNotFound)
}

func TestWithinTx_Commits(t *testing.T) {
	ctx := context.Background()
	r := NewRepository()
	userID := uuid.New()

	err := r.WithinTx(ctx, func(ctx context.Context, s store.Stores) error {
		return s.Settings.Upsert(ctx, domain.NewSettings(userID, time.Now()))
	})
	require.NoError(t, err)

	_, err = r.Stores().Settings.Get(ctx, userID)
	assert.NoError(t, err)
}

func TestCardStore_RejectsDuplicateExternalID(t *testing.T) {
	ctx := context.Background()
	r := NewRepository()
	deck, _ := seedDeck(t, r, 0)

	a, err := domain.NewCard(deck.ID, "x", "a", "", "", "")
	require.NoError(t, err)
	require.NoError(t, r.Stores().Cards.CreateMultiple(ctx, []*domain.Card{a}))

	b, err := domain.NewCard(deck.ID, "y", "b", "", "", "")
	require.NoError(t, err)
	c, err := domain.NewCard(deck.ID, "x", "c", "", "", "")
	require.NoError(t, err)

	err = r.Stores().Cards.CreateMultiple(ctx, []*domain.Card{b, c})
	assert.ErrorIs(t, err, store.ErrExternalIDExists)

	cards, err := r.Stores().Cards.ListByDeck(ctx, deck.ID)
	require.NoError(t, err)
	assert.Len(t, cards, 1, "a failed batch writes nothing")
}

func TestUserDeckStore_SingleDynamicDeck(t *testing.T) {
	ctx := context.Background()
	r := NewRepository()
	deck, _ := seedDeck(t, r, 0)
	userID := uuid.New()
	s := r.Stores().UserDecks

	first := domain.NewUserDeck(userID, deck.ID, 1, 0, true, time.Now())
	require.NoError(t, s.Create(ctx, first))

	second := domain.NewUserDeck(userID, deck.ID, 2, 0, true, time.Now())
	assert.ErrorIs(t, s.Create(ctx, second), store.ErrDynamicDeckExists)

	// Another user is unaffected
	other := domain.NewUserDeck(uuid.New(), deck.ID, 1, 0, true, time.Now())
	assert.NoError(t, s.Create(ctx, other))

	found, err := s.FindDynamic(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID)
}

func TestUserCardStore_Queries(t *testing.T) {
	ctx := context.Background()
	r := NewRepository()
	deck, cards := seedDeck(t, r, 4)
	userID := uuid.New()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	ud := domain.NewUserDeck(userID, deck.ID, 1, 4, false, now)
	require.NoError(t, r.Stores().UserDecks.Create(ctx, ud))

	ucs := make([]*domain.UserCard, 0, len(cards))
	for _, c := range cards {
		ucs = append(ucs, domain.NewUserCard(userID, ud.ID, c, now))
	}
	// 0: unreviewed, 1: due later, 2: due earlier, 3: not yet due
	ucs[1].History = []domain.HistoryEntry{{Outcome: domain.OutcomeEasy, At: now}}
	ucs[1].ShowAfter = now.Add(-time.Minute)
	ucs[2].History = []domain.HistoryEntry{{Outcome: domain.OutcomeHard, At: now}}
	ucs[2].ShowAfter = now.Add(-time.Hour)
	ucs[3].History = []domain.HistoryEntry{{Outcome: domain.OutcomeHard, At: now}}
	ucs[3].ShowAfter = now.Add(time.Hour)
	require.NoError(t, r.Stores().UserCards.CreateMultiple(ctx, ucs))

	s := r.Stores().UserCards

	unreviewed, err := s.FindUnreviewed(ctx, userID, 15)
	require.NoError(t, err)
	require.Len(t, unreviewed, 1)
	assert.Equal(t, ucs[0].ID, unreviewed[0].ID)
	require.NotNil(t, unreviewed[0].Card)
	assert.Equal(t, cards[0].ID, unreviewed[0].Card.ID)

	due, err := s.FindDue(ctx, userID, now, 15)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, ucs[2].ID, due[0].ID)
	assert.Equal(t, ucs[1].ID, due[1].ID)

	ids, err := s.ActiveCardIDs(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, ids, 4)

	n, err := s.SoftDeleteByUserDeck(ctx, userID, ud.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	ids, err = s.ActiveCardIDs(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, ids)

	_, err = s.GetByID(ctx, uuid.New(), ucs[0].ID)
	assert.ErrorIs(t, err, store.ErrUserCardNotFound, "other users cannot see the record")
}

func TestStoresReturnCopies(t *testing.T) {
	ctx := context.Background()
	r := NewRepository()
	userID := uuid.New()
	settings := domain.NewSettings(userID, time.Now())
	require.NoError(t, r.Stores().Settings.Upsert(ctx, settings))

	got, err := r.Stores().Settings.Get(ctx, userID)
	require.NoError(t, err)
	got.ShowLearned = true
	got.Sync.Attempts = append(got.Sync.Attempts, time.Now())

	again, err := r.Stores().Settings.Get(ctx, userID)
	require.NoError(t, err)
	assert.False(t, again.ShowLearned)
	assert.Empty(t, again.Sync.Attempts)
}
