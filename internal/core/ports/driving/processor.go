package driving

import (
	"context"

	"github.com/custodia-labs/tally/internal/core/domain"
)

// ProcessRequest is the input to one processing run.
type ProcessRequest struct {
	// Mode selects the OCR strategy for every document in the run.
	Mode domain.ExtractionMode

	// Taxonomy is the validated keyword taxonomy.
	Taxonomy *domain.Taxonomy

	// Documents are processed in parallel; the report keeps their order.
	Documents []domain.Document

	// Unloaded are inputs that could not be read, each with its SourceID,
	// Filename and Reason set. They follow Documents in the report as
	// failed rows and mark the run partial.
	Unloaded []domain.DocumentOutcome
}

// ProcessResult is the output of one processing run.
type ProcessResult struct {
	// Report is the immutable count matrix.
	Report *domain.AnalysisReport

	// Artifact is the rendered report, when a renderer is configured.
	Artifact []byte

	// Warnings maps document source id (filename when it has none) to
	// its extraction warnings.
	Warnings map[string][]domain.Warning

	// Failed lists documents that produced no usable text.
	Failed []domain.DocumentOutcome

	// Partial is true when the run was cancelled before every document
	// finished or some inputs could not be loaded.
	Partial bool
}

// Processor is the single entry point for analysing a batch of documents.
type Processor interface {
	// Process runs the whole pipeline over req.Documents.
	// Taxonomy and mode errors are returned before any document is touched;
	// per-document failures are recorded in the result instead.
	Process(ctx context.Context, req ProcessRequest) (*ProcessResult, error)

	// ProcessDocument runs the pipeline for one document.
	ProcessDocument(ctx context.Context, mode domain.ExtractionMode, doc *domain.Document, taxonomy *domain.Taxonomy) domain.DocumentOutcome
}
