package mocks

import (
	"context"
	"sync"

	"github.com/phrazzld/scry-decks/internal/domain"
	"github.com/phrazzld/scry-decks/internal/source"
)

var _ source.Fetcher = (*MockFetcher)(nil)

// MockFetcher implements source.Fetcher for testing.
type MockFetcher struct {
	// FetchCandidatesFn overrides the fixed return values when set.
	FetchCandidatesFn func(ctx context.Context, descriptor string) ([]domain.CandidateCard, error)

	Candidates []domain.CandidateCard
	Err        error

	mu          sync.Mutex
	calls       int
	descriptors []string
}

// NewMockFetcherWithCandidates creates a MockFetcher returning candidates.
func NewMockFetcherWithCandidates(candidates ...domain.CandidateCard) *MockFetcher {
	return &MockFetcher{Candidates: candidates}
}

// NewMockFetcherWithError creates a MockFetcher failing with err.
func NewMockFetcherWithError(err error) *MockFetcher {
	return &MockFetcher{Err: err}
}

// FetchCandidates implements source.Fetcher.
func (m *MockFetcher) FetchCandidates(ctx context.Context, descriptor string) ([]domain.CandidateCard, error) {
	m.mu.Lock()
	m.calls++
	m.descriptors = append(m.descriptors, descriptor)
	fn, candidates, err := m.FetchCandidatesFn, m.Candidates, m.Err
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, descriptor)
	}
	return candidates, err
}

// CallCount returns the number of FetchCandidates calls.
func (m *MockFetcher) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Descriptors returns the descriptors passed to FetchCandidates, in order.
func (m *MockFetcher) Descriptors() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.descriptors...)
}
