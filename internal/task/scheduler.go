package task

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SchedulerConfig holds configuration for the scheduler.
type SchedulerConfig struct {
	// HandlerTimeout bounds a single firing. If zero, defaults to 5 minutes.
	HandlerTimeout time.Duration
}

// DefaultSchedulerConfig returns a SchedulerConfig with reasonable defaults.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{HandlerTimeout: 5 * time.Minute}
}

var _ JobScheduler = (*Scheduler)(nil)

// Scheduler manages recurring jobs.
type Scheduler struct {
	mu       sync.Mutex
	jobs     map[jobKey]*job
	handlers map[JobKind]Handler
	stopped  bool

	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	config     SchedulerConfig
	logger     *slog.Logger
}

// NewScheduler creates a Scheduler.
func NewScheduler(config SchedulerConfig, logger *slog.Logger) *Scheduler {
	if config.HandlerTimeout <= 0 {
		config.HandlerTimeout = DefaultSchedulerConfig().HandlerTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		jobs:       make(map[jobKey]*job),
		handlers:   make(map[JobKind]Handler),
		ctx:        ctx,
		cancelFunc: cancel,
		config:     config,
		logger:     logger.With(slog.String("component", "scheduler")),
	}
}

// RegisterHandler sets the handler used by jobs of kind. It must be called
// before jobs of that kind are installed.
func (s *Scheduler) RegisterHandler(kind JobKind, handler Handler) {
	if handler == nil {
		panic("handler cannot be nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[kind] = handler
}

// InstallJob implements JobScheduler.
func (s *Scheduler) InstallJob(userID uuid.UUID, kind JobKind, schedule Schedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := jobKey{userID: userID, kind: kind}
	if _, ok := s.jobs[key]; ok {
		return fmt.Errorf("%w: %s for user %s", ErrJobExists, kind, userID)
	}
	return s.installLocked(key, schedule)
}

// UpdateJob implements JobScheduler.
func (s *Scheduler) UpdateJob(userID uuid.UUID, kind JobKind, schedule Schedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := jobKey{userID: userID, kind: kind}
	s.cancelLocked(key)
	return s.installLocked(key, schedule)
}

// CancelJob implements JobScheduler. It may be called from a running handler.
func (s *Scheduler) CancelJob(userID uuid.UUID, kind JobKind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked(jobKey{userID: userID, kind: kind})
}

// Installed reports whether a job is installed.
func (s *Scheduler) Installed(userID uuid.UUID, kind JobKind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.jobs[jobKey{userID: userID, kind: kind}]
	return ok
}

// Len returns the number of installed jobs.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

func (s *Scheduler) installLocked(key jobKey, schedule Schedule) error {
	if s.stopped {
		return ErrSchedulerStopped
	}
	if schedule.Period <= 0 {
		return ErrInvalidSchedule
	}
	handler, ok := s.handlers[key.kind]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoHandler, key.kind)
	}
	if schedule.Offset < 0 {
		schedule.Offset = 0
	}

	ctx, cancel := context.WithCancel(s.ctx)
	j := &job{key: key, schedule: schedule, ctx: ctx, cancel: cancel}
	s.jobs[key] = j

	s.wg.Add(1)
	go s.run(j, handler)

	s.logger.Debug("installed job",
		slog.String("user_id", key.userID.String()),
		slog.String("kind", string(key.kind)),
		slog.Duration("period", schedule.Period),
		slog.Duration("offset", schedule.Offset))
	return nil
}

func (s *Scheduler) cancelLocked(key jobKey) {
	j, ok := s.jobs[key]
	if !ok {
		return
	}
	j.cancel()
	delete(s.jobs, key)

	s.logger.Debug("cancelled job",
		slog.String("user_id", key.userID.String()),
		slog.String("kind", string(key.kind)))
}

// run fires handler for j until the job is cancelled.
func (s *Scheduler) run(j *job, handler Handler) {
	defer s.wg.Done()

	timer := time.NewTimer(j.schedule.Offset)
	defer timer.Stop()

	for {
		select {
		case <-j.ctx.Done():
			return
		case <-timer.C:
			// A cancellation racing the timer still wins.
			if j.ctx.Err() != nil {
				return
			}
			s.fire(j, handler)
			timer.Reset(j.schedule.Period)
		}
	}
}

// fire runs one firing. The handler context outlives job cancellation so a
// running firing is never interrupted.
func (s *Scheduler) fire(j *job, handler Handler) {
	log := s.logger.With(
		slog.String("user_id", j.key.userID.String()),
		slog.String("kind", string(j.key.kind)))

	ctx, cancel := context.WithTimeout(context.WithoutCancel(j.ctx), s.config.HandlerTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			log.Error("job handler panicked", slog.Any("panic", r))
		}
	}()

	start := time.Now()
	if err := handler(ctx, j.key.userID); err != nil {
		log.Error("job execution failed", slog.String("error", err.Error()))
		return
	}
	log.Debug("job completed", slog.Duration("elapsed", time.Since(start)))
}

// Stop cancels every job and waits for running handlers to return. Jobs
// cannot be installed afterwards.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	for key := range s.jobs {
		s.cancelLocked(key)
	}
	s.mu.Unlock()

	s.cancelFunc()
	s.wg.Wait()
}

// Run blocks until ctx is done and then stops the scheduler.
func (s *Scheduler) Run(ctx context.Context) error {
	<-ctx.Done()
	s.logger.Info("stopping scheduler")
	s.Stop()
	return nil
}
