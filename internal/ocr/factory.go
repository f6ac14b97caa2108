package ocr

import (
	"fmt"

	"github.com/custodia-labs/tally/internal/core/domain"
	"github.com/custodia-labs/tally/internal/core/ports/driven"
)

// Dependencies are the collaborators a strategy may need.
type Dependencies struct {
	// Runner executes tesseract. Required for local and vision modes.
	Runner driven.CommandRunner

	// Recognizer backs vision mode.
	Recognizer driven.TextRecognitionService

	// Extractor backs semantic mode.
	Extractor driven.SemanticExtractionService

	// Metrics may be nil.
	Metrics driven.Metrics
}

// New builds the strategy for mode. Vision wraps Local as its fallback.
func New(mode domain.ExtractionMode, cfg domain.Config, deps Dependencies) (driven.OCRStrategy, error) {
	switch mode {
	case domain.ModeLocal, "":
		if deps.Runner == nil {
			return nil, fmt.Errorf("%w: local mode needs a command runner", domain.ErrInvalidConfig)
		}
		return NewLocal(deps.Runner, cfg.OCR), nil

	case domain.ModeVision:
		if deps.Recognizer == nil {
			return nil, fmt.Errorf("%w: vision mode needs a text-recognition service", domain.ErrServiceNotConfigured)
		}
		var fallback driven.OCRStrategy
		if deps.Runner != nil {
			fallback = NewLocal(deps.Runner, cfg.OCR)
		}
		return NewVision(deps.Recognizer, fallback, cfg.Retry, cfg.Vision.RequestsPerSecond, deps.Metrics), nil

	case domain.ModeSemantic:
		if deps.Extractor == nil {
			return nil, fmt.Errorf("%w: semantic mode needs an extraction service", domain.ErrServiceNotConfigured)
		}
		return NewSemantic(deps.Extractor, cfg.Retry, cfg.Semantic, deps.Metrics), nil

	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidMode, mode)
	}
}
