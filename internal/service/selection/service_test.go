package selection

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-decks/internal/domain"
	"github.com/phrazzld/scry-decks/internal/domain/srs"
	"github.com/phrazzld/scry-decks/internal/platform/memory"
	"github.com/phrazzld/scry-decks/internal/store"
	"github.com/phrazzld/scry-decks/internal/userlock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func noShuffle(int, func(i, j int)) {}

type fixture struct {
	t      *testing.T
	ctx    context.Context
	repo   *memory.Repository
	clock  *fakeClock
	userID uuid.UUID
	svc    Service
	order  int64
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		t:      t,
		ctx:    context.Background(),
		repo:   memory.NewRepository(),
		clock:  &fakeClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)},
		userID: uuid.New(),
	}
	srsSvc, err := srs.NewServiceWithParams(srs.NewParams(srs.ParamsConfig{
		HardIntervals: []time.Duration{time.Hour},
	}))
	require.NoError(t, err)

	all := append([]Option{WithClock(f.clock.Now), WithShuffle(noShuffle)}, opts...)
	f.svc = NewService(f.repo, srsSvc, userlock.New(), slog.New(slog.NewTextHandler(io.Discard, nil)), all...)
	return f
}

// addDeck creates a deck with n cards and binds it to the fixture's user.
func (f *fixture) addDeck(n int, dynamic bool) *domain.UserDeck {
	f.t.Helper()
	deck := &domain.Deck{ID: uuid.New(), Name: "deck", Dynamic: dynamic, CreatedAt: f.clock.Now()}
	require.NoError(f.t, f.repo.Stores().Decks.Create(f.ctx, deck))

	cards := make([]*domain.Card, 0, n)
	for i := 0; i < n; i++ {
		c, err := domain.NewCard(deck.ID, "", "front", "", "back", "")
		require.NoError(f.t, err)
		cards = append(cards, c)
	}
	require.NoError(f.t, f.repo.Stores().Cards.CreateMultiple(f.ctx, cards))

	f.order++
	ud := domain.NewUserDeck(f.userID, deck.ID, f.order, n, dynamic, f.clock.Now())
	require.NoError(f.t, f.repo.Stores().UserDecks.Create(f.ctx, ud))
	return ud
}

func (f *fixture) settings(mutate func(*domain.Settings)) {
	f.t.Helper()
	s := domain.NewSettings(f.userID, f.clock.Now())
	mutate(s)
	require.NoError(f.t, f.repo.Stores().Settings.Upsert(f.ctx, s))
}

func (f *fixture) deck(id uuid.UUID) *domain.UserDeck {
	f.t.Helper()
	d, err := f.repo.Stores().UserDecks.GetByID(f.ctx, f.userID, id)
	require.NoError(f.t, err)
	return d
}

func ids(cards []*domain.UserCard) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(cards))
	for _, c := range cards {
		out = append(out, c.ID)
	}
	return out
}

func TestGetActiveCards_DrawsWholeSmallDeck(t *testing.T) {
	f := newFixture(t)
	deck := f.addDeck(10, false)

	first, err := f.svc.GetActiveCards(f.ctx, f.userID)
	require.NoError(t, err)
	require.Len(t, first, 10)
	for _, c := range first {
		assert.Equal(t, deck.ID, c.UserDeckID)
		assert.Equal(t, f.clock.Now(), c.ShowAfter)
		assert.Empty(t, c.History)
		require.NotNil(t, c.Card)
	}

	// Unreviewed cards stay in the pool
	second, err := f.svc.GetActiveCards(f.ctx, f.userID)
	require.NoError(t, err)
	assert.ElementsMatch(t, ids(first), ids(second))
}

func TestGetActiveCards_PageSize(t *testing.T) {
	f := newFixture(t, WithPageSize(4))
	f.addDeck(9, false)

	cards, err := f.svc.GetActiveCards(f.ctx, f.userID)
	require.NoError(t, err)
	assert.Len(t, cards, 4)

	held, err := f.repo.Stores().UserCards.ActiveCardIDs(f.ctx, f.userID)
	require.NoError(t, err)
	assert.Len(t, held, 4, "only the returned cards are materialized")
}

func TestGetActiveCards_FirstDeckWithCardsWins(t *testing.T) {
	f := newFixture(t)
	disabled := f.addDeck(3, false)
	f.addDeck(0, false)
	second := f.addDeck(5, false)
	f.addDeck(5, false)

	d := f.deck(disabled.ID)
	d.Enabled = false
	require.NoError(t, f.repo.Stores().UserDecks.Update(f.ctx, d))

	cards, err := f.svc.GetActiveCards(f.ctx, f.userID)
	require.NoError(t, err)
	require.Len(t, cards, 5)
	for _, c := range cards {
		assert.Equal(t, second.ID, c.UserDeckID)
	}
}

func TestGetActiveCards_ShuffleDecks(t *testing.T) {
	reverse := func(n int, swap func(i, j int)) {
		for i := 0; i < n/2; i++ {
			swap(i, n-1-i)
		}
	}
	f := newFixture(t, WithShuffle(reverse))
	f.addDeck(2, false)
	last := f.addDeck(2, false)
	f.settings(func(s *domain.Settings) { s.ShuffleDecks = true })

	cards, err := f.svc.GetActiveCards(f.ctx, f.userID)
	require.NoError(t, err)
	require.NotEmpty(t, cards)
	assert.Equal(t, last.ID, cards[0].UserDeckID)
}

func TestGetActiveCards_DynamicHighPriority(t *testing.T) {
	f := newFixture(t)
	f.addDeck(3, false)
	dynamic := f.addDeck(2, true)
	f.settings(func(s *domain.Settings) { s.DynamicHighPriority = true })

	cards, err := f.svc.GetActiveCards(f.ctx, f.userID)
	require.NoError(t, err)
	require.Len(t, cards, 2)
	for _, c := range cards {
		assert.Equal(t, dynamic.ID, c.UserDeckID)
	}
}

func TestGetActiveCards_DueCardsBeforeFreshDraw(t *testing.T) {
	f := newFixture(t)
	f.addDeck(2, false)
	f.settings(func(s *domain.Settings) { s.ShowLearned = true })

	drawn, err := f.svc.GetActiveCards(f.ctx, f.userID)
	require.NoError(t, err)
	require.Len(t, drawn, 2)

	for _, c := range drawn {
		_, err := f.svc.RecordOutcome(f.ctx, f.userID, c.ID, domain.OutcomeHard)
		require.NoError(t, err)
	}
	later := f.addDeck(5, false)

	// Not due yet: falls through to the next deck
	cards, err := f.svc.GetActiveCards(f.ctx, f.userID)
	require.NoError(t, err)
	require.Len(t, cards, 5)
	assert.Equal(t, later.ID, cards[0].UserDeckID)

	// Review the new batch so the pool is empty again
	for _, c := range cards {
		_, err := f.svc.RecordOutcome(f.ctx, f.userID, c.ID, domain.OutcomeEasy)
		require.NoError(t, err)
	}

	f.clock.Advance(2 * time.Hour)
	due, err := f.svc.GetActiveCards(f.ctx, f.userID)
	require.NoError(t, err)
	assert.ElementsMatch(t, ids(drawn), ids(due))
}

func TestGetActiveCards_MissingSettingsUsesDefaults(t *testing.T) {
	f := newFixture(t)

	cards, err := f.svc.GetActiveCards(f.ctx, f.userID)
	require.NoError(t, err)
	assert.Empty(t, cards)
}

func TestRecordOutcome_SchedulesAndRejectsEarlyReview(t *testing.T) {
	f := newFixture(t)
	f.addDeck(1, false)

	cards, err := f.svc.GetActiveCards(f.ctx, f.userID)
	require.NoError(t, err)
	require.Len(t, cards, 1)
	now := f.clock.Now()

	update, err := f.svc.RecordOutcome(f.ctx, f.userID, cards[0].ID, domain.OutcomeHard)
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), update.Card.ShowAfter)
	assert.Equal(t, []domain.HistoryEntry{{Outcome: domain.OutcomeHard, At: now}}, update.Card.History)

	_, err = f.svc.RecordOutcome(f.ctx, f.userID, cards[0].ID, domain.OutcomeHard)
	assert.ErrorIs(t, err, domain.ErrNotReviewable)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestRecordOutcome_CardsLearnedIncrementsOnce(t *testing.T) {
	f := newFixture(t)
	deck := f.addDeck(2, false)

	cards, err := f.svc.GetActiveCards(f.ctx, f.userID)
	require.NoError(t, err)
	require.Len(t, cards, 2)

	first, err := f.svc.RecordOutcome(f.ctx, f.userID, cards[0].ID, domain.OutcomeHard)
	require.NoError(t, err)
	require.NotNil(t, first.Deck)
	assert.Equal(t, 1, first.Deck.CardsLearned)

	f.clock.Advance(2 * time.Hour)
	again, err := f.svc.RecordOutcome(f.ctx, f.userID, cards[0].ID, domain.OutcomeMedium)
	require.NoError(t, err)
	assert.Nil(t, again.Deck, "deck is only returned when its counter changed")
	assert.Len(t, again.Card.History, 2)

	other, err := f.svc.RecordOutcome(f.ctx, f.userID, cards[1].ID, domain.OutcomeEasy)
	require.NoError(t, err)
	require.NotNil(t, other.Deck)
	assert.Equal(t, 2, other.Deck.CardsLearned)
	assert.Equal(t, 2, f.deck(deck.ID).CardsLearned)
}

func TestRecordOutcome_Errors(t *testing.T) {
	f := newFixture(t)
	f.addDeck(1, false)
	cards, err := f.svc.GetActiveCards(f.ctx, f.userID)
	require.NoError(t, err)

	_, err = f.svc.RecordOutcome(f.ctx, f.userID, cards[0].ID, domain.Outcome("again"))
	assert.ErrorIs(t, err, domain.ErrInvalidOutcome)

	_, err = f.svc.RecordOutcome(f.ctx, f.userID, uuid.New(), domain.OutcomeEasy)
	assert.ErrorIs(t, err, domain.ErrUserCardNotFound)

	_, err = f.svc.RecordOutcome(f.ctx, uuid.New(), cards[0].ID, domain.OutcomeEasy)
	assert.ErrorIs(t, err, domain.ErrNotFound, "cards of other users are invisible")
}

func TestDeleteCard(t *testing.T) {
	f := newFixture(t)
	deck := f.addDeck(3, false)
	cards, err := f.svc.GetActiveCards(f.ctx, f.userID)
	require.NoError(t, err)
	require.Len(t, cards, 3)

	update, err := f.svc.DeleteCard(f.ctx, f.userID, cards[0].ID)
	require.NoError(t, err)
	assert.True(t, update.Card.Deleted)
	require.NotNil(t, update.Deck)
	assert.Equal(t, 2, update.Deck.CardsCount)
	assert.Equal(t, 2, f.deck(deck.ID).CardsCount)

	_, err = f.svc.DeleteCard(f.ctx, f.userID, cards[0].ID)
	assert.ErrorIs(t, err, domain.ErrUserCardNotFound)

	remaining, err := f.svc.GetActiveCards(f.ctx, f.userID)
	require.NoError(t, err)
	assert.NotContains(t, ids(remaining), cards[0].ID)
}

func TestDeleteCard_CountNeverNegative(t *testing.T) {
	f := newFixture(t)
	deck := f.addDeck(1, false)
	d := f.deck(deck.ID)
	d.CardsCount = 0
	require.NoError(t, f.repo.Stores().UserDecks.Update(f.ctx, d))

	cards, err := f.svc.GetActiveCards(f.ctx, f.userID)
	require.NoError(t, err)

	update, err := f.svc.DeleteCard(f.ctx, f.userID, cards[0].ID)
	require.NoError(t, err)
	assert.Nil(t, update.Deck)
	assert.Equal(t, 0, f.deck(deck.ID).CardsCount)
}

func TestToggleFavorite(t *testing.T) {
	f := newFixture(t)
	f.addDeck(1, false)
	cards, err := f.svc.GetActiveCards(f.ctx, f.userID)
	require.NoError(t, err)

	on, err := f.svc.ToggleFavorite(f.ctx, f.userID, cards[0].ID)
	require.NoError(t, err)
	assert.True(t, on.Favorite)

	off, err := f.svc.ToggleFavorite(f.ctx, f.userID, cards[0].ID)
	require.NoError(t, err)
	assert.False(t, off.Favorite)
	assert.Empty(t, off.History, "favorite has no other side effects")

	_, err = f.svc.ToggleFavorite(f.ctx, f.userID, uuid.New())
	assert.ErrorIs(t, err, domain.ErrUserCardNotFound)
}

func TestToggleFavorite_SurvivesOtherUsersRollback(t *testing.T) {
	f := newFixture(t)
	f.addDeck(1, false)
	cards, err := f.svc.GetActiveCards(f.ctx, f.userID)
	require.NoError(t, err)

	other := uuid.New()
	opened := make(chan struct{})
	release := make(chan struct{})
	boom := errors.New("boom")
	txDone := make(chan error, 1)
	go func() {
		txDone <- f.repo.WithinTx(f.ctx, func(ctx context.Context, st store.Stores) error {
			if err := st.Settings.Upsert(ctx, domain.NewSettings(other, f.clock.Now())); err != nil {
				return err
			}
			close(opened)
			<-release
			return boom
		})
	}()
	<-opened

	toggled := make(chan error, 1)
	go func() {
		_, err := f.svc.ToggleFavorite(f.ctx, f.userID, cards[0].ID)
		toggled <- err
	}()
	time.Sleep(20 * time.Millisecond)
	close(release)

	assert.ErrorIs(t, <-txDone, boom)
	require.NoError(t, <-toggled)

	stored, err := f.repo.Stores().UserCards.GetByID(f.ctx, f.userID, cards[0].ID)
	require.NoError(t, err)
	assert.True(t, stored.Favorite)

	_, err = f.repo.Stores().Settings.Get(f.ctx, other)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestGetActiveCards_ConcurrentCallsDrawOnce(t *testing.T) {
	f := newFixture(t)
	f.addDeck(5, false)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.GetActiveCards(f.ctx, f.userID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	held, err := f.repo.Stores().UserCards.ActiveCardIDs(f.ctx, f.userID)
	require.NoError(t, err)
	assert.Len(t, held, 5)

	pool, err := f.repo.Stores().UserCards.FindUnreviewed(f.ctx, f.userID, 100)
	require.NoError(t, err)
	assert.Len(t, pool, 5, "no card is materialized twice")
}
