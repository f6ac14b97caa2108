package driven

import (
	"context"

	"github.com/custodia-labs/tally/internal/core/domain"
)

// TextRecognitionService reads text from an image.
// Implementations must wrap failures in one of domain.ErrServiceUnavailable,
// domain.ErrServiceQuotaExceeded or domain.ErrServiceAuth so callers can
// decide whether to retry.
//
// Implementations may include:
//   - Gemini
//   - OpenAI-compatible chat completions with image input
type TextRecognitionService interface {
	// Recognize returns the text of the image.
	Recognize(ctx context.Context, image []byte, mimeType string) (*RecognitionResult, error)

	// Name identifies the service in logs and metrics.
	Name() string
}

// RecognitionResult is the output of a text-recognition call.
type RecognitionResult struct {
	// Text is the recognised text.
	Text string

	// Confidence is in [0,1], or nil when the service gives none.
	Confidence *float64
}

// SemanticExtractionService reads cleaned text and entity hints from a document.
// The same error-class contract as TextRecognitionService applies.
type SemanticExtractionService interface {
	// Extract processes a whole document or a single page.
	Extract(ctx context.Context, req SemanticRequest) (*SemanticResult, error)

	// Name identifies the service in logs and metrics.
	Name() string
}

// SemanticRequest is the input to a semantic extraction call.
type SemanticRequest struct {
	// Content is the document or page bytes.
	Content []byte

	// MIMEType is the content type of Content.
	MIMEType string

	// Filename is passed to services that want one.
	Filename string

	// Groups lets the service pre-tag candidate entities. May be empty.
	Groups []domain.KeywordGroup
}

// SemanticResult is the output of a semantic extraction call.
type SemanticResult struct {
	// Text is the cleaned document text.
	Text string

	// Hints are optional candidate entities.
	Hints []domain.EntityHint

	// Quality is the service's own estimate in [0,1], if reported.
	Quality *float64
}
