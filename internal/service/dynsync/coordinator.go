// Package dynsync keeps a user's single dynamic deck filled from an external
// content source, with a per-user attempt cap and cooldown.
package dynsync

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-decks/internal/domain"
	"github.com/phrazzld/scry-decks/internal/source"
)

// Defaults used when no Option overrides them.
const (
	DefaultAttemptLimit = 3
	DefaultCooldown     = 120 * time.Second
	DefaultPeriod       = 6 * time.Hour
	DefaultFetchTimeout = 30 * time.Second
)

// Result describes one sync run that got as far as fetching.
type Result struct {
	Succeeded bool             `json:"succeeded"`
	Deck      *domain.UserDeck `json:"deck"`
	Added     int              `json:"added"`
	Status    string           `json:"status"`
}

// StatusReport is a user's sync state with its derived phase.
type StatusReport struct {
	Sync  domain.SyncState `json:"sync"`
	Phase domain.SyncPhase `json:"phase"`
}

// FetcherLookup resolves the fetcher for a source type.
type FetcherLookup interface {
	Lookup(typ domain.SyncType) source.Fetcher
}

// Coordinator defines the dynamic deck sync operations.
type Coordinator interface {
	// CreateDynamicDeck creates the user's dynamic deck at the end of their
	// collection. Fails with domain.ErrDynamicDeckAlreadyExists on a second call.
	CreateDynamicDeck(ctx context.Context, userID uuid.UUID, name string) (*domain.UserDeck, error)

	// Sync fetches new content into the dynamic deck. Precondition failures
	// and domain.ErrTooManyAttempts are returned as errors. A failed fetch or
	// materialization is reported as a Result with Succeeded false; it also
	// turns automatic syncing off.
	Sync(ctx context.Context, userID uuid.UUID) (*Result, error)

	// UpdateSyncDescriptor sets the source type and descriptor and reinstalls
	// the recurring job when automatic syncing is on.
	UpdateSyncDescriptor(ctx context.Context, userID uuid.UUID, typ domain.SyncType, descriptor string) (*domain.SyncState, error)

	// UpdateAutoSync turns automatic syncing on or off, installing or
	// cancelling the recurring job. Enabling requires a configured source.
	UpdateAutoSync(ctx context.Context, userID uuid.UUID, enabled bool) (*domain.SyncState, error)

	// Status returns the sync state and its phase. Users without settings
	// get the default state.
	Status(ctx context.Context, userID uuid.UUID) (*StatusReport, error)

	// RestoreJobs installs the recurring job for every user with automatic
	// syncing on. It returns the number of jobs installed.
	RestoreJobs(ctx context.Context) (int, error)

	// HandleJob is the recurring job handler.
	HandleJob(ctx context.Context, userID uuid.UUID) error
}

// Option configures the coordinator.
type Option func(*coordinator)

// WithPolicy overrides the attempt limit and cooldown.
func WithPolicy(policy domain.SyncPolicy) Option {
	return func(c *coordinator) {
		if policy.AttemptLimit > 0 {
			c.policy.AttemptLimit = policy.AttemptLimit
		}
		if policy.Cooldown > 0 {
			c.policy.Cooldown = policy.Cooldown
		}
	}
}

// WithPeriod overrides the recurring job period.
func WithPeriod(period time.Duration) Option {
	return func(c *coordinator) {
		if period > 0 {
			c.period = period
		}
	}
}

// WithFetchTimeout bounds each fetch.
func WithFetchTimeout(timeout time.Duration) Option {
	return func(c *coordinator) {
		if timeout > 0 {
			c.fetchTimeout = timeout
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *coordinator) {
		c.now = now
	}
}
