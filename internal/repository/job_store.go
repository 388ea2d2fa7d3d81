package repository

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/liliang-cn/triage/internal/domain"
)

type jobEntry struct {
	job  *domain.Job
	done chan struct{}
}

// JobStore keeps pipeline jobs in memory. Jobs are copied on every read and
// write so callers never share state with the store.
type JobStore struct {
	mu   sync.RWMutex
	jobs map[string]*jobEntry
}

// NewJobStore creates an empty job store
func NewJobStore() *JobStore {
	return &JobStore{jobs: make(map[string]*jobEntry)}
}

// Create adds a job. An empty ID is generated and the status defaults to pending.
func (s *JobStore) Create(job *domain.Job) error {
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	if job.Status == "" {
		job.Status = domain.JobStatusPending
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = &jobEntry{job: job.Clone(), done: make(chan struct{})}
	return nil
}

// Get returns a copy of the job
func (s *JobStore) Get(id string) (*domain.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.jobs[id]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	return e.job.Clone(), nil
}

// Update applies fn to a copy of the job and stores the result. A terminal
// job is never changed again.
func (s *JobStore) Update(id string, fn func(*domain.Job)) (*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.jobs[id]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	if e.job.Status.Terminal() {
		return e.job.Clone(), nil
	}

	work := e.job.Clone()
	fn(work)
	e.job = work
	if work.Status.Terminal() {
		close(e.done)
	}
	return work.Clone(), nil
}

// Done returns a channel closed once the job reaches a terminal status
func (s *JobStore) Done(id string) (<-chan struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.jobs[id]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	return e.done, nil
}

// Close drops every job
func (s *JobStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = make(map[string]*jobEntry)
	return nil
}
