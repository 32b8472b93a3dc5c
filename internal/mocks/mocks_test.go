package mocks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-decks/internal/domain"
	"github.com/phrazzld/scry-decks/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockFetcher(t *testing.T) {
	cand := domain.CandidateCard{ExternalID: "a", FrontPrimary: "q", BackPrimary: "a"}
	m := NewMockFetcherWithCandidates(cand)

	got, err := m.FetchCandidates(context.Background(), "sheet-1")
	require.NoError(t, err)
	assert.Equal(t, []domain.CandidateCard{cand}, got)

	m.FetchCandidatesFn = func(context.Context, string) ([]domain.CandidateCard, error) {
		return nil, errors.New("scripted")
	}
	_, err = m.FetchCandidates(context.Background(), "sheet-2")
	assert.EqualError(t, err, "scripted")

	assert.Equal(t, 2, m.CallCount())
	assert.Equal(t, []string{"sheet-1", "sheet-2"}, m.Descriptors())

	boom := errors.New("boom")
	_, err = NewMockFetcherWithError(boom).FetchCandidates(context.Background(), "x")
	assert.ErrorIs(t, err, boom)
}

func TestMockJobScheduler(t *testing.T) {
	m := NewMockJobScheduler()
	userID := uuid.New()
	schedule := task.NewSchedule(time.Hour)

	require.NoError(t, m.InstallJob(userID, task.JobKindDynamicSync, schedule))
	assert.ErrorIs(t, m.InstallJob(userID, task.JobKindDynamicSync, schedule), task.ErrJobExists)
	assert.True(t, m.Installed(userID, task.JobKindDynamicSync))

	got, ok := m.Schedule(userID, task.JobKindDynamicSync)
	require.True(t, ok)
	assert.Equal(t, time.Hour, got.Period)

	m.CancelJob(userID, task.JobKindDynamicSync)
	assert.False(t, m.Installed(userID, task.JobKindDynamicSync))
	assert.Equal(t, 1, m.Cancels())

	require.NoError(t, m.UpdateJob(userID, task.JobKindDynamicSync, schedule))
	assert.True(t, m.Installed(userID, task.JobKindDynamicSync))
}
