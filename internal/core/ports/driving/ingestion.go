package driving

import (
	"context"

	"github.com/custodia-labs/tally/internal/core/domain"
)

// IngestionCoordinator runs unattended processing of a drop directory.
type IngestionCoordinator interface {
	// Start resumes persisted jobs, sweeps pending files and begins watching.
	Start(ctx context.Context) error

	// Stop halts the watcher and workers. Jobs not yet started stay queued.
	Stop() error

	// Jobs returns every known job.
	Jobs(ctx context.Context) ([]domain.IngestionJob, error)

	// Report returns a snapshot of the results gathered so far.
	Report() *domain.AnalysisReport
}
