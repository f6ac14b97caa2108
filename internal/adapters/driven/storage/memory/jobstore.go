package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/custodia-labs/tally/internal/core/domain"
	"github.com/custodia-labs/tally/internal/core/ports/driven"
)

// Ensure JobStore implements the interface.
var _ driven.JobStore = (*JobStore)(nil)

// JobStore is an in-memory implementation of driven.JobStore.
type JobStore struct {
	mu    sync.RWMutex
	jobs  map[string]domain.IngestionJob
	order []string
}

// NewJobStore creates a new in-memory job store.
func NewJobStore() *JobStore {
	return &JobStore{
		jobs: make(map[string]domain.IngestionJob),
	}
}

// SaveJob stores or updates a job. Creation order is kept from the first save.
func (s *JobStore) SaveJob(_ context.Context, job *domain.IngestionJob) error {
	if job == nil || job.ID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.ID]; !ok {
		s.order = append(s.order, job.ID)
	}
	s.jobs[job.ID] = *job
	return nil
}

// GetJob retrieves a job by ID.
func (s *JobStore) GetJob(_ context.Context, id string) (*domain.IngestionJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &job, nil
}

// ListJobs returns jobs in creation order, optionally filtered by state.
func (s *JobStore) ListJobs(_ context.Context, states ...domain.JobState) ([]domain.IngestionJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.IngestionJob, 0, len(s.order))
	for _, id := range s.order {
		job := s.jobs[id]
		if len(states) > 0 && !slices.Contains(states, job.State) {
			continue
		}
		out = append(out, job)
	}
	return out, nil
}

// DeleteJob removes a job. Deleting an unknown job is not an error.
func (s *JobStore) DeleteJob(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[id]; !ok {
		return nil
	}
	delete(s.jobs, id)
	s.order = slices.DeleteFunc(s.order, func(v string) bool { return v == id })
	return nil
}

// Close is a no-op.
func (s *JobStore) Close() error {
	return nil
}
