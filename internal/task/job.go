package task

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
)

// JobKind identifies what a recurring job does.
type JobKind string

// Job kinds
const (
	// JobKindDynamicSync refreshes a user's dynamic deck from its source.
	JobKindDynamicSync JobKind = "dynamic_sync"
)

// Errors returned by the scheduler.
var (
	ErrInvalidSchedule  = errors.New("schedule period must be positive")
	ErrNoHandler        = errors.New("no handler registered for job kind")
	ErrJobExists        = errors.New("job already installed")
	ErrSchedulerStopped = errors.New("scheduler stopped")
)

// Schedule is a fixed period with an offset before the first firing.
type Schedule struct {
	Period time.Duration
	Offset time.Duration
}

// NewSchedule returns a schedule with a random offset in [0, period).
func NewSchedule(period time.Duration) Schedule {
	s := Schedule{Period: period}
	if period > 0 {
		s.Offset = rand.N(period)
	}
	return s
}

// Handler runs one firing of a job for a user.
type Handler func(ctx context.Context, userID uuid.UUID) error

// JobScheduler installs and cancels recurring per-user jobs.
type JobScheduler interface {
	// InstallJob starts a job. Returns ErrJobExists if one is installed.
	InstallJob(userID uuid.UUID, kind JobKind, schedule Schedule) error

	// CancelJob stops future firings. Cancelling a missing job is a no-op.
	CancelJob(userID uuid.UUID, kind JobKind)

	// UpdateJob cancels any installed job and installs it again.
	UpdateJob(userID uuid.UUID, kind JobKind, schedule Schedule) error
}

type jobKey struct {
	userID uuid.UUID
	kind   JobKind
}

type job struct {
	key      jobKey
	schedule Schedule
	ctx      context.Context
	cancel   context.CancelFunc
}
