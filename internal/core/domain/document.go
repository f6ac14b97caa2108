package domain

import "strings"

// Document is one byte stream handed to the pipeline by a file source.
// It is immutable once created and is not persisted by the core.
type Document struct {
	// SourceID is the opaque identifier assigned by the file source.
	SourceID string

	// Filename is the display name, used for reports and extension hints.
	Filename string

	// MIMEHint is the content type suggested by the source. May be empty.
	MIMEHint string

	// Content is the raw document bytes.
	Content []byte
}

// BlockKind tags what a TextBlock holds.
type BlockKind string

const (
	// BlockText is text read straight from a text layer.
	BlockText BlockKind = "text"

	// BlockTable is a table row flattened to text.
	BlockTable BlockKind = "table"

	// BlockImage is a page or picture that still needs OCR.
	BlockImage BlockKind = "image"

	// BlockDegraded is a placeholder for a unit that could not be extracted.
	BlockDegraded BlockKind = "degraded"
)

// TextBlock is one unit of extracted text in reading order.
type TextBlock struct {
	// Kind tags the block content.
	Kind BlockKind

	// Text is the extracted text. Empty for image and degraded blocks.
	Text string

	// Page is the 1-based source page, or 0 when the format has no pages.
	Page int

	// Offset is the position of the block within its page or document.
	// Byte offset for plain text, ordinal position for structured formats.
	Offset int

	// Confidence is in [0,1] for recognised text, nil for deterministic extractors.
	Confidence *float64

	// Image holds encoded image bytes for BlockImage.
	Image []byte

	// ImageMIME is the content type of Image.
	ImageMIME string
}

// IsDegraded returns true if the block is a placeholder for a failed unit.
func (b TextBlock) IsDegraded() bool {
	return b.Kind == BlockDegraded
}

// Warning is a non-fatal problem met while extracting a document.
type Warning struct {
	// Page is the affected page, or 0 for document-level warnings.
	Page int

	// Code is a stable machine-readable tag, e.g. "ocr_fallback".
	Code string

	// Message is the human-readable description.
	Message string
}

// Warning codes surfaced in reports.
const (
	WarnOCRFallback     = "ocr_fallback"
	WarnBlockDropped    = "block_dropped"
	WarnCorrupt         = "corrupt_document"
	WarnEncoding        = "encoding_ambiguous"
	WarnEncodingRepair  = "encoding_repaired"
	WarnPageCap         = "page_cap"
	WarnHintMismatch    = "hint_mismatch"
	WarnRasterUnavail   = "raster_unavailable"
	WarnServiceDegraded = "service_degraded"
)

// ExtractionResult is the ordered output of extracting one Document.
type ExtractionResult struct {
	// Blocks are in document reading order.
	Blocks []TextBlock

	// Mode is the extraction mode that produced the text.
	Mode ExtractionMode

	// Warnings lists non-fatal problems in the order they were met.
	Warnings []Warning

	// Title is an optional document title found by the extractor.
	Title string
}

// AddWarning appends a warning.
func (r *ExtractionResult) AddWarning(page int, code, message string) {
	r.Warnings = append(r.Warnings, Warning{Page: page, Code: code, Message: message})
}

// DroppedBlocks counts degraded blocks.
func (r *ExtractionResult) DroppedBlocks() int {
	n := 0
	for _, b := range r.Blocks {
		if b.IsDegraded() {
			n++
		}
	}
	return n
}

// PendingImages counts image blocks that have not been through OCR.
func (r *ExtractionResult) PendingImages() int {
	n := 0
	for _, b := range r.Blocks {
		if b.Kind == BlockImage {
			n++
		}
	}
	return n
}

// Text joins all non-empty block texts with paragraph breaks.
func (r *ExtractionResult) Text() string {
	parts := make([]string, 0, len(r.Blocks))
	for _, b := range r.Blocks {
		if strings.TrimSpace(b.Text) == "" {
			continue
		}
		parts = append(parts, b.Text)
	}
	return strings.Join(parts, "\n\n")
}
