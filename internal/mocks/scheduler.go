package mocks

import (
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-decks/internal/task"
)

var _ task.JobScheduler = (*MockJobScheduler)(nil)

type jobKey struct {
	userID uuid.UUID
	kind   task.JobKind
}

// MockJobScheduler records job changes without running anything.
type MockJobScheduler struct {
	mu      sync.Mutex
	jobs    map[jobKey]task.Schedule
	cancels int
}

// NewMockJobScheduler creates an empty MockJobScheduler.
func NewMockJobScheduler() *MockJobScheduler {
	return &MockJobScheduler{jobs: make(map[jobKey]task.Schedule)}
}

// InstallJob implements task.JobScheduler.
func (m *MockJobScheduler) InstallJob(userID uuid.UUID, kind task.JobKind, schedule task.Schedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := jobKey{userID, kind}
	if _, ok := m.jobs[key]; ok {
		return task.ErrJobExists
	}
	m.jobs[key] = schedule
	return nil
}

// CancelJob implements task.JobScheduler.
func (m *MockJobScheduler) CancelJob(userID uuid.UUID, kind task.JobKind) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.jobs, jobKey{userID, kind})
	m.cancels++
}

// UpdateJob implements task.JobScheduler.
func (m *MockJobScheduler) UpdateJob(userID uuid.UUID, kind task.JobKind, schedule task.Schedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[jobKey{userID, kind}] = schedule
	return nil
}

// Installed reports whether a job of kind is installed for userID.
func (m *MockJobScheduler) Installed(userID uuid.UUID, kind task.JobKind) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.jobs[jobKey{userID, kind}]
	return ok
}

// Schedule returns the schedule of an installed job.
func (m *MockJobScheduler) Schedule(userID uuid.UUID, kind task.JobKind) (task.Schedule, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.jobs[jobKey{userID, kind}]
	return s, ok
}

// Cancels returns the number of CancelJob calls.
func (m *MockJobScheduler) Cancels() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cancels
}
