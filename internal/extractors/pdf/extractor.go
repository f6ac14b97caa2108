// Package pdf extracts text layers from PDF documents and rasterises
// pages that have none so they can go through OCR.
package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/custodia-labs/tally/internal/core/domain"
	"github.com/custodia-labs/tally/internal/core/ports/driven"
	"github.com/custodia-labs/tally/internal/logger"
)

// Ensure Extractor implements the interface.
var _ driven.FormatExtractor = (*Extractor)(nil)

// Rasterizer renders a single PDF page to an image.
type Rasterizer interface {
	// Rasterize returns the encoded image of the 1-based page and its MIME type.
	Rasterize(ctx context.Context, content []byte, page int) ([]byte, string, error)
}

// Extractor handles PDF documents.
type Extractor struct {
	rasterizer Rasterizer
}

// New creates a PDF extractor. A nil rasterizer leaves text-less pages
// degraded instead of queuing them for OCR.
func New(rasterizer Rasterizer) *Extractor {
	return &Extractor{rasterizer: rasterizer}
}

// Name returns the extractor identifier.
func (e *Extractor) Name() string {
	return "pdf"
}

// SupportedMIMETypes returns the MIME types this extractor handles.
func (e *Extractor) SupportedMIMETypes() []string {
	return []string{"application/pdf"}
}

// Priority returns the selection priority.
func (e *Extractor) Priority() int {
	return 50
}

// Extract returns one block per page. Pages with a text layer become text
// blocks; the rest become image blocks when a rasterizer is available.
// A failure part-way through keeps the pages already read.
func (e *Extractor) Extract(ctx context.Context, doc *domain.Document) (*domain.ExtractionResult, error) {
	if doc == nil {
		return nil, domain.ErrInvalidInput
	}

	reader, err := open(doc.Content)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrCorruptDocument, err)
	}

	result := &domain.ExtractionResult{Title: title(reader, doc.Filename)}
	total := reader.NumPage()
	logger.Debug("pdf %s: %d pages", doc.Filename, total)

	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		text, err := pageText(reader, i)
		if errors.Is(err, errPageMissing) {
			result.Blocks = append(result.Blocks, domain.TextBlock{Kind: domain.BlockDegraded, Page: i})
			result.AddWarning(i, domain.WarnCorrupt, "page object is missing")
			result.AddWarning(0, domain.WarnCorrupt, fmt.Sprintf("stopped after %d of %d pages", i-1, total))
			return result, fmt.Errorf("%w: page %d missing", domain.ErrCorruptDocument, i)
		}
		if err != nil {
			result.AddWarning(i, domain.WarnBlockDropped, fmt.Sprintf("text layer unreadable: %v", err))
		}

		if strings.TrimSpace(text) != "" {
			result.Blocks = append(result.Blocks, domain.TextBlock{Kind: domain.BlockText, Text: text, Page: i})
			continue
		}
		result.Blocks = append(result.Blocks, e.rasterize(ctx, doc.Content, i, result))
	}
	return result, nil
}

func (e *Extractor) rasterize(ctx context.Context, content []byte, page int, result *domain.ExtractionResult) domain.TextBlock {
	if e.rasterizer == nil {
		result.AddWarning(page, domain.WarnRasterUnavail, "page has no text layer and no rasterizer is configured")
		return domain.TextBlock{Kind: domain.BlockDegraded, Page: page}
	}

	img, mimeType, err := e.rasterizer.Rasterize(ctx, content, page)
	if err != nil {
		result.AddWarning(page, domain.WarnRasterUnavail, fmt.Sprintf("rasterize page: %v", err))
		return domain.TextBlock{Kind: domain.BlockDegraded, Page: page}
	}
	return domain.TextBlock{Kind: domain.BlockImage, Page: page, Image: img, ImageMIME: mimeType}
}

var errPageMissing = errors.New("page missing")

// open guards against the panics the parser raises on malformed input.
func open(content []byte) (reader *pdf.Reader, err error) {
	defer func() {
		if r := recover(); r != nil {
			reader, err = nil, fmt.Errorf("parse pdf: %v", r)
		}
	}()
	return pdf.NewReader(bytes.NewReader(content), int64(len(content)))
}

func pageText(reader *pdf.Reader, n int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("%w: %v", errPageMissing, r)
		}
	}()

	page := reader.Page(n)
	if page.V.IsNull() {
		return "", errPageMissing
	}
	text, err = page.GetPlainText(nil)
	return strings.TrimSpace(text), err
}

func title(reader *pdf.Reader, filename string) (t string) {
	defer func() {
		if recover() != nil {
			t = fallbackTitle(filename)
		}
	}()
	if v := strings.TrimSpace(reader.Trailer().Key("Info").Key("Title").Text()); v != "" {
		return v
	}
	return fallbackTitle(filename)
}

func fallbackTitle(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
