// Package image turns standalone pictures into a single block awaiting OCR.
package image

import (
	"bytes"
	"context"
	"fmt"
	stdimage "image"
	_ "image/gif" // register decoder
	_ "image/jpeg"
	"image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/custodia-labs/tally/internal/core/domain"
	"github.com/custodia-labs/tally/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.FormatExtractor = (*Extractor)(nil)

// Extractor handles raster images.
type Extractor struct{}

// New creates a new image extractor.
func New() *Extractor {
	return &Extractor{}
}

// Name returns the extractor identifier.
func (e *Extractor) Name() string {
	return "image"
}

// SupportedMIMETypes returns the MIME types this extractor handles.
func (e *Extractor) SupportedMIMETypes() []string {
	return []string{"image/png", "image/jpeg", "image/gif", "image/bmp", "image/tiff", "image/webp"}
}

// Priority returns the selection priority.
func (e *Extractor) Priority() int {
	return 50
}

// Extract validates the image and emits one image block on page 1.
// PNG and JPEG pass through; other formats are re-encoded as PNG so
// every recogniser sees a format it accepts.
func (e *Extractor) Extract(_ context.Context, doc *domain.Document) (*domain.ExtractionResult, error) {
	if doc == nil {
		return nil, domain.ErrInvalidInput
	}

	_, format, err := stdimage.DecodeConfig(bytes.NewReader(doc.Content))
	if err != nil {
		return nil, fmt.Errorf("%w: decode image header: %w", domain.ErrCorruptDocument, err)
	}

	data, mimeType := doc.Content, "image/"+format
	if format != "png" && format != "jpeg" {
		data, err = toPNG(doc.Content)
		if err != nil {
			return nil, fmt.Errorf("%w: convert %s: %w", domain.ErrCorruptDocument, format, err)
		}
		mimeType = "image/png"
	}

	return &domain.ExtractionResult{
		Blocks: []domain.TextBlock{{
			Kind:      domain.BlockImage,
			Page:      1,
			Image:     data,
			ImageMIME: mimeType,
		}},
	}, nil
}

func toPNG(content []byte) ([]byte, error) {
	img, _, err := stdimage.Decode(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
