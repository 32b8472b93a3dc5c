package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUserCard(t *testing.T) {
	t.Parallel()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	card, err := NewCard(uuid.New(), "", "front", "", "back", "")
	require.NoError(t, err)

	userID, userDeckID := uuid.New(), uuid.New()
	uc := NewUserCard(userID, userDeckID, card, now)

	assert.NotEqual(t, uuid.Nil, uc.ID)
	assert.Equal(t, userID, uc.UserID)
	assert.Equal(t, card.ID, uc.CardID)
	assert.Equal(t, userDeckID, uc.UserDeckID)
	assert.Equal(t, now, uc.ShowAfter, "new cards are due immediately")
	assert.False(t, uc.Reviewed())
	assert.False(t, uc.Deleted)
	assert.False(t, uc.Favorite)
	assert.Same(t, card, uc.Card)
	require.NoError(t, uc.Validate())
}

func TestUserCard_Reviewable(t *testing.T) {
	t.Parallel()
	showAfter := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	uc := &UserCard{ShowAfter: showAfter}

	assert.False(t, uc.Reviewable(showAfter.Add(-time.Millisecond)))
	assert.True(t, uc.Reviewable(showAfter))
	assert.True(t, uc.Reviewable(showAfter.Add(time.Hour)))
}

func TestUserCard_Validate(t *testing.T) {
	t.Parallel()
	valid := func() *UserCard {
		return &UserCard{
			ID:         uuid.New(),
			UserID:     uuid.New(),
			CardID:     uuid.New(),
			UserDeckID: uuid.New(),
		}
	}

	testCases := []struct {
		name    string
		mutate  func(*UserCard)
		wantErr error
	}{
		{name: "valid", mutate: func(*UserCard) {}},
		{name: "missing id", mutate: func(c *UserCard) { c.ID = uuid.Nil }, wantErr: ErrEmptyID},
		{name: "missing user", mutate: func(c *UserCard) { c.UserID = uuid.Nil }, wantErr: ErrEmptyID},
		{name: "missing card", mutate: func(c *UserCard) { c.CardID = uuid.Nil }, wantErr: ErrEmptyID},
		{name: "missing deck", mutate: func(c *UserCard) { c.UserDeckID = uuid.Nil }, wantErr: ErrEmptyID},
		{
			name: "bad outcome in history",
			mutate: func(c *UserCard) {
				c.History = []HistoryEntry{{Outcome: "again", At: time.Now()}}
			},
			wantErr: ErrInvalidOutcome,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			uc := valid()
			tc.mutate(uc)
			err := uc.Validate()
			if tc.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.wantErr)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestOutcome_Valid(t *testing.T) {
	t.Parallel()
	assert.True(t, OutcomeHard.Valid())
	assert.True(t, OutcomeMedium.Valid())
	assert.True(t, OutcomeEasy.Valid())
	assert.False(t, Outcome("good").Valid())
	assert.False(t, Outcome("").Valid())
}

func TestSortByOrder(t *testing.T) {
	t.Parallel()
	decks := []*UserDeck{{Order: 7}, {Order: 2}, {Order: 40}, {Order: 3}}
	SortByOrder(decks)

	got := make([]int64, 0, len(decks))
	for _, d := range decks {
		got = append(got, d.Order)
	}
	assert.Equal(t, []int64{2, 3, 7, 40}, got)
}

func TestSettings_NextDeckOrder(t *testing.T) {
	t.Parallel()
	s := NewSettings(uuid.New(), time.Now())

	assert.Equal(t, int64(1), s.NextDeckOrder())
	assert.Equal(t, int64(2), s.NextDeckOrder())
	assert.Equal(t, int64(2), s.MaxDeckOrder)
	require.NoError(t, s.Validate())

	s.Sync.Type = "dropbox"
	assert.ErrorIs(t, s.Validate(), ErrInvalidSyncType)
}
