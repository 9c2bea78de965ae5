package jobqueue

import (
	"context"
	"sync"

	"github.com/pipelined/pipelined/internal/runner"
)

// Memory is an in-memory FIFO job queue, used by tests and by
// `pipelined run` when the configured queue type is memory.
type Memory struct {
	mu       sync.Mutex
	capacity int
	pending  []*runner.QueuedJob
	active   map[string]struct{}
}

// NewMemory returns an empty Memory queue bounded at capacity entries.
// capacity <= 0 means unbounded.
func NewMemory(capacity int) *Memory {
	return &Memory{capacity: capacity, active: make(map[string]struct{})}
}

// Add enqueues job, returning ErrAlreadyExists or ErrQueueFull.
func (m *Memory) Add(_ context.Context, job *runner.QueuedJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.active[job.JobID]; exists {
		return ErrAlreadyExists
	}
	if m.capacity > 0 && len(m.pending) >= m.capacity {
		return ErrQueueFull
	}

	m.active[job.JobID] = struct{}{}
	m.pending = append(m.pending, job)
	return nil
}

// GetQueuedJob implements runner.JobQueue.
func (m *Memory) GetQueuedJob(context.Context) (*runner.QueuedJob, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.pending) == 0 {
		return nil, false, nil
	}
	job := m.pending[0]
	m.pending = m.pending[1:]
	return job, true, nil
}

// SuccessJob implements runner.JobQueue.
func (m *Memory) SuccessJob(_ context.Context, jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.active, jobID)
	return nil
}

// FailJobRun implements runner.JobQueue.
func (m *Memory) FailJobRun(_ context.Context, jobID string, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.active, jobID)
	return nil
}

// BuilderrorJob implements runner.JobQueue.
func (m *Memory) BuilderrorJob(_ context.Context, jobID string, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.active, jobID)
	return nil
}

// Len reports how many jobs are currently queued (not yet popped).
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

var _ runner.JobQueue = (*Memory)(nil)
