package driven

import (
	"context"

	"github.com/custodia-labs/tally/internal/core/domain"
)

// JobStore persists ingestion job state so queued jobs survive a restart.
type JobStore interface {
	// SaveJob creates or updates a job based on ID.
	SaveJob(ctx context.Context, job *domain.IngestionJob) error

	// GetJob retrieves a job by ID.
	// Returns domain.ErrNotFound if the job does not exist.
	GetJob(ctx context.Context, id string) (*domain.IngestionJob, error)

	// ListJobs returns jobs in creation order, filtered by state when states are given.
	ListJobs(ctx context.Context, states ...domain.JobState) ([]domain.IngestionJob, error)

	// DeleteJob removes a job.
	DeleteJob(ctx context.Context, id string) error

	// Close releases resources.
	Close() error
}
