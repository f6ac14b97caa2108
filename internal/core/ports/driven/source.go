package driven

import (
	"context"

	"github.com/custodia-labs/tally/internal/core/domain"
)

// FileSource yields documents waiting to be processed.
// Implemented by local directories, watched drop folders and cloud drives.
type FileSource interface {
	// ListPending returns the documents not yet acknowledged.
	ListPending(ctx context.Context) ([]domain.Document, error)

	// Ack marks a document as consumed so it is not listed again.
	Ack(ctx context.Context, sourceID string) error
}

// PendingLister lists pending source ids without reading their content.
// A FileSource may implement it to make start-up sweeps cheap.
type PendingLister interface {
	PendingIDs(ctx context.Context) ([]string, error)
}

// DocumentLoader reads a single document by source id.
type DocumentLoader interface {
	Load(ctx context.Context, sourceID string) (*domain.Document, error)
}

// WebFetcher pulls a URL and returns it as an HTML document.
type WebFetcher interface {
	Fetch(ctx context.Context, url string) (*domain.Document, error)
}

// TaxonomyLoader parses a tabular keyword file into a validated taxonomy.
// Errors wrap domain.ErrTaxonomyInvalid.
type TaxonomyLoader interface {
	// Load parses data. The name's extension selects the format.
	Load(name string, data []byte) (*domain.Taxonomy, error)
}

// ReportRenderer serialises an AnalysisReport to artifact bytes.
type ReportRenderer interface {
	// Render produces the artifact.
	Render(report *domain.AnalysisReport) ([]byte, error)

	// Extension is the file extension of the artifact, including the dot.
	Extension() string
}

// ReportSink stores a rendered report artifact.
type ReportSink interface {
	// Write stores data under the suggested name and returns where it went.
	Write(ctx context.Context, name string, data []byte) (string, error)
}

// FileWatcher reports documents that have finished arriving.
type FileWatcher interface {
	// Watch blocks until ctx is done, calling notify once for each file
	// that has stayed unmodified for the quiet period.
	Watch(ctx context.Context, notify func(sourceID string)) error
}

// SeedableWatcher is a FileWatcher that can also settle files that
// already existed when it started.
type SeedableWatcher interface {
	FileWatcher

	// Seed queues source ids to be reported once they stay unmodified
	// for the quiet period, as if each had just been written. Call it
	// before Watch.
	Seed(sourceIDs ...string)
}
