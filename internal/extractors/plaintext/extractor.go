// Package plaintext extracts paragraphs from plain text documents.
package plaintext

import (
	"bytes"
	"context"
	"mime"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"

	"github.com/custodia-labs/tally/internal/core/domain"
	"github.com/custodia-labs/tally/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.FormatExtractor = (*Extractor)(nil)

var paragraphBreak = regexp.MustCompile(`\r?\n[ \t\r]*\r?\n`)

// Extractor handles plain text documents.
type Extractor struct{}

// New creates a new plain text extractor.
func New() *Extractor {
	return &Extractor{}
}

// Name returns the extractor identifier.
func (e *Extractor) Name() string {
	return "plaintext"
}

// SupportedMIMETypes returns the MIME types this extractor handles.
func (e *Extractor) SupportedMIMETypes() []string {
	return []string{"text/plain", "text/markdown", "text/csv"}
}

// Priority returns the selection priority.
func (e *Extractor) Priority() int {
	return 5 // Fallback extractor
}

// Extract decodes the text and splits it into paragraph blocks.
// Bytes that are not valid UTF-8 and carry no charset hint are passed
// through untouched so the normaliser can detect legacy encodings.
func (e *Extractor) Extract(_ context.Context, doc *domain.Document) (*domain.ExtractionResult, error) {
	if doc == nil {
		return nil, domain.ErrInvalidInput
	}

	text := Decode(doc.Content, doc.MIMEHint)

	return &domain.ExtractionResult{
		Blocks: Paragraphs(text),
		Title:  extractTitle(doc.Filename),
	}, nil
}

// Decode converts content to a Go string. A BOM wins, then a charset
// parameter in the hint; valid UTF-8 is returned as is.
func Decode(content []byte, mimeHint string) string {
	switch {
	case bytes.HasPrefix(content, []byte{0xEF, 0xBB, 0xBF}):
		return string(content[3:])
	case bytes.HasPrefix(content, []byte{0xFF, 0xFE}):
		return decodeWith(content, unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM))
	case bytes.HasPrefix(content, []byte{0xFE, 0xFF}):
		return decodeWith(content, unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM))
	}

	if _, params, err := mime.ParseMediaType(mimeHint); err == nil {
		if label := params["charset"]; label != "" && !strings.EqualFold(label, "utf-8") {
			if enc, _ := charset.Lookup(label); enc != nil {
				if out, err := enc.NewDecoder().Bytes(content); err == nil {
					return string(out)
				}
			}
		}
	}

	return string(content)
}

func decodeWith(content []byte, enc encoding.Encoding) string {
	out, err := enc.NewDecoder().Bytes(content)
	if err != nil {
		return string(content)
	}
	return string(out)
}

// Paragraphs splits text on blank lines. Offset is the byte offset of
// each paragraph in text.
func Paragraphs(text string) []domain.TextBlock {
	var blocks []domain.TextBlock
	start := 0
	emit := func(end int) {
		para := text[start:end]
		trimmed := strings.TrimSpace(para)
		if trimmed == "" {
			return
		}
		lead := strings.Index(para, trimmed)
		blocks = append(blocks, domain.TextBlock{
			Kind:   domain.BlockText,
			Text:   trimmed,
			Offset: start + lead,
		})
	}

	for _, loc := range paragraphBreak.FindAllStringIndex(text, -1) {
		emit(loc[0])
		start = loc[1]
	}
	emit(len(text))
	return blocks
}

// extractTitle extracts a human-readable title from a filename.
func extractTitle(name string) string {
	filename := filepath.Base(name)
	if ext := filepath.Ext(filename); ext != "" {
		filename = strings.TrimSuffix(filename, ext)
	}
	filename = strings.ReplaceAll(filename, "_", " ")
	filename = strings.ReplaceAll(filename, "-", " ")
	return filename
}
