package source

import (
	"context"
	"sync"

	"github.com/phrazzld/scry-decks/internal/domain"
)

// Registry maps sync source types to their fetchers. It is safe for
// concurrent use.
type Registry struct {
	mu       sync.RWMutex
	fetchers map[domain.SyncType]Fetcher
}

// NewRegistry returns a registry holding the notion stub. Other source types
// are added with Register once their clients are configured.
func NewRegistry() *Registry {
	return &Registry{
		fetchers: map[domain.SyncType]Fetcher{
			domain.SyncTypeNotion: Notion{},
		},
	}
}

// Register installs f for typ, replacing any previous fetcher.
func (r *Registry) Register(typ domain.SyncType, f Fetcher) {
	if f == nil {
		panic("fetcher cannot be nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fetchers[typ] = f
}

// Lookup returns the fetcher for typ. A type without a fetcher yields a
// fetcher that fails with ErrSourceNotImplemented, so callers treat it like
// any other upstream failure.
func (r *Registry) Lookup(typ domain.SyncType) Fetcher {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if f, ok := r.fetchers[typ]; ok {
		return f
	}
	return unsupported(typ)
}

// Notion is the notion source type. It has no client and always fails.
type Notion struct{}

// FetchCandidates implements Fetcher.
func (Notion) FetchCandidates(ctx context.Context, descriptor string) ([]domain.CandidateCard, error) {
	return unsupported(domain.SyncTypeNotion).FetchCandidates(ctx, descriptor)
}

func unsupported(typ domain.SyncType) Fetcher {
	return FetchFunc(func(context.Context, string) ([]domain.CandidateCard, error) {
		return nil, NewFetchError(typ, "not available", ErrSourceNotImplemented)
	})
}
