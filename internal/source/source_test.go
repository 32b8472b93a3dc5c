package source_test

import (
	"context"
	"errors"
	"testing"

	"github.com/phrazzld/scry-decks/internal/domain"
	"github.com/phrazzld/scry-decks/internal/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchError(t *testing.T) {
	cause := errors.New("status 500")
	err := source.NewFetchError(domain.SyncTypeSheet, "request failed", cause)

	assert.ErrorIs(t, err, domain.ErrUpstreamFailure)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "sheet source: request failed: status 500", err.Error())

	bare := source.NewFetchError(domain.SyncTypeGemini, "empty response", nil)
	assert.ErrorIs(t, bare, domain.ErrUpstreamFailure)
	assert.Equal(t, "gemini source: empty response", bare.Error())
}

func TestRegistry(t *testing.T) {
	ctx := context.Background()
	reg := source.NewRegistry()

	t.Run("notion fails fast", func(t *testing.T) {
		_, err := reg.Lookup(domain.SyncTypeNotion).FetchCandidates(ctx, "page")
		require.Error(t, err)
		assert.ErrorIs(t, err, source.ErrSourceNotImplemented)
		assert.ErrorIs(t, err, domain.ErrUpstreamFailure)

		var fetchErr *source.FetchError
		require.ErrorAs(t, err, &fetchErr)
		assert.Equal(t, domain.SyncTypeNotion, fetchErr.Source)
	})

	t.Run("unregistered type", func(t *testing.T) {
		_, err := reg.Lookup(domain.SyncTypeSheet).FetchCandidates(ctx, "id")
		assert.ErrorIs(t, err, source.ErrSourceNotImplemented)
	})

	t.Run("registered fetcher", func(t *testing.T) {
		want := []domain.CandidateCard{{ExternalID: "1", FrontPrimary: "f", BackPrimary: "b"}}
		reg.Register(domain.SyncTypeSheet, source.FetchFunc(
			func(_ context.Context, descriptor string) ([]domain.CandidateCard, error) {
				assert.Equal(t, "sheet-id", descriptor)
				return want, nil
			}))

		got, err := reg.Lookup(domain.SyncTypeSheet).FetchCandidates(ctx, "sheet-id")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})
}
