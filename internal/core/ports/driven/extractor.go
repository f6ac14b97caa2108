package driven

import (
	"context"

	"github.com/custodia-labs/tally/internal/core/domain"
)

// FormatExtractor turns the bytes of one container format into text blocks.
// Each extractor handles specific MIME types (e.g., PDF, DOCX).
type FormatExtractor interface {
	// Name returns a short identifier, e.g. "pdf".
	Name() string

	// SupportedMIMETypes returns the MIME types this extractor handles.
	SupportedMIMETypes() []string

	// Priority returns the selection priority (higher = preferred).
	// Format-specific extractors return 50-89, fallbacks 1-9.
	Priority() int

	// Extract reads the document into ordered blocks.
	// A parse failure part-way through returns the blocks read so far
	// together with an error wrapping domain.ErrCorruptDocument.
	Extract(ctx context.Context, doc *domain.Document) (*domain.ExtractionResult, error)
}

// ExtractorRegistry detects formats and selects extractors.
type ExtractorRegistry interface {
	// Register adds an extractor to the registry.
	Register(e FormatExtractor)

	// Detect returns the MIME type of the document from its byte signature,
	// consulting the hint and filename only to refine text formats.
	// Returns domain.ErrUnsupportedFormat when nothing matches.
	Detect(doc *domain.Document) (string, error)

	// Get returns the highest-priority extractor for a MIME type, or nil.
	Get(mimeType string) FormatExtractor

	// List returns all registered extractors.
	List() []FormatExtractor
}
