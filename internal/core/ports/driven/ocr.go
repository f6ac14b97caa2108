package driven

import (
	"context"

	"github.com/custodia-labs/tally/internal/core/domain"
)

// OCRResult is the text recognised from one image or page block.
type OCRResult struct {
	// Text is the recognised text.
	Text string

	// Confidence is in [0,1], or nil when the engine gives none.
	Confidence *float64

	// Warnings are non-fatal notes, e.g. a fallback to the local engine.
	Warnings []domain.Warning
}

// OCRStrategy recognises text in image blocks.
// One strategy is selected per run and applied to every document.
type OCRStrategy interface {
	// Mode identifies the strategy variant.
	Mode() domain.ExtractionMode

	// ExtractText recognises the text of a single image block.
	// An error means the block could not be recognised and must be degraded.
	ExtractText(ctx context.Context, block domain.TextBlock) (*OCRResult, error)
}

// DocumentText is the output of whole-document extraction.
type DocumentText struct {
	// Text is the cleaned document text.
	Text string

	// Confidence is the service's own quality estimate in [0,1], if any.
	Confidence *float64

	// Hints are candidate keyword occurrences. Counts are never taken from them.
	Hints []domain.EntityHint
}

// DocumentStrategy is implemented by strategies that can take a whole document at once.
type DocumentStrategy interface {
	OCRStrategy

	// Accepts reports whether the document fits the service's size limit.
	Accepts(doc *domain.Document) bool

	// ExtractDocument sends the whole document for extraction.
	ExtractDocument(ctx context.Context, doc *domain.Document, taxonomy *domain.Taxonomy) (*DocumentText, error)
}

// CommandRunner executes an external command and returns its stdout.
// Abstracted for testing.
type CommandRunner interface {
	Run(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, error)
}
