// Package docx extracts paragraphs and tables from Word documents.
package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/tally/internal/core/domain"
	"github.com/custodia-labs/tally/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.FormatExtractor = (*Extractor)(nil)

// Extractor handles DOCX documents.
type Extractor struct{}

// New creates a new DOCX extractor.
func New() *Extractor {
	return &Extractor{}
}

// Name returns the extractor identifier.
func (e *Extractor) Name() string {
	return "docx"
}

// SupportedMIMETypes returns the MIME types this extractor handles.
func (e *Extractor) SupportedMIMETypes() []string {
	return []string{
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	}
}

// Priority returns the selection priority.
func (e *Extractor) Priority() int {
	return 50 // Generic MIME extractor
}

// Extract walks word/document.xml in order. Paragraphs become text
// blocks; each table row becomes a tabular block with tab-separated cells.
// A malformed document returns the blocks read before the fault.
func (e *Extractor) Extract(_ context.Context, doc *domain.Document) (*domain.ExtractionResult, error) {
	if doc == nil {
		return nil, domain.ErrInvalidInput
	}

	reader, err := zip.NewReader(bytes.NewReader(doc.Content), int64(len(doc.Content)))
	if err != nil {
		return nil, fmt.Errorf("%w: open archive: %w", domain.ErrCorruptDocument, err)
	}

	result := &domain.ExtractionResult{Title: extractTitle(reader, doc.Filename)}

	body, err := readEntry(reader, "word/document.xml")
	if err != nil {
		return result, fmt.Errorf("%w: %w", domain.ErrCorruptDocument, err)
	}

	blocks, err := parseBody(body)
	result.Blocks = blocks
	if err != nil {
		result.AddWarning(0, domain.WarnCorrupt, fmt.Sprintf("document.xml is malformed after %d blocks", len(blocks)))
		return result, fmt.Errorf("%w: %w", domain.ErrCorruptDocument, err)
	}
	return result, nil
}

func readEntry(reader *zip.Reader, name string) ([]byte, error) {
	for _, file := range reader.File {
		if file.Name != name {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", name, err)
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, fmt.Errorf("%s not found", name)
}

// bodyParser tracks where in the WordprocessingML tree the decoder is.
type bodyParser struct {
	blocks   []domain.TextBlock
	position int

	paraDepth  int
	tableDepth int
	inText     bool

	para strings.Builder
	cell strings.Builder
	row  []string
}

// parseBody streams the XML so paragraphs and tables keep their order.
func parseBody(content []byte) ([]domain.TextBlock, error) {
	p := &bodyParser{}
	dec := xml.NewDecoder(bytes.NewReader(content))

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return p.blocks, nil
		}
		if err != nil {
			return p.blocks, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			p.start(t.Name.Local)
		case xml.EndElement:
			p.end(t.Name.Local)
		case xml.CharData:
			if p.inText {
				p.para.Write(t)
			}
		}
	}
}

func (p *bodyParser) start(name string) {
	switch name {
	case "p":
		if p.paraDepth > 0 {
			p.para.WriteString(" ")
		}
		p.paraDepth++
	case "t":
		p.inText = true
	case "tab":
		p.para.WriteString("\t")
	case "br", "cr":
		p.para.WriteString("\n")
	case "tbl":
		p.tableDepth++
	case "tr":
		if p.tableDepth == 1 {
			p.row = p.row[:0]
		}
	case "tc":
		if p.tableDepth == 1 {
			p.cell.Reset()
		}
	}
}

func (p *bodyParser) end(name string) {
	switch name {
	case "t":
		p.inText = false
	case "p":
		p.paraDepth--
		if p.paraDepth > 0 {
			return
		}
		text := strings.TrimSpace(p.para.String())
		p.para.Reset()
		if p.tableDepth > 0 {
			if text != "" {
				if p.cell.Len() > 0 {
					p.cell.WriteString(" ")
				}
				p.cell.WriteString(text)
			}
			return
		}
		if text != "" {
			p.emit(domain.BlockText, text)
		}
		p.position++
	case "tc":
		if p.tableDepth == 1 {
			p.row = append(p.row, strings.Join(strings.Fields(p.cell.String()), " "))
		}
	case "tr":
		if p.tableDepth == 1 && strings.TrimSpace(strings.Join(p.row, "")) != "" {
			p.emit(domain.BlockTable, strings.Join(p.row, "\t"))
		}
	case "tbl":
		p.tableDepth--
		if p.tableDepth == 0 {
			p.position++
		}
	}
}

func (p *bodyParser) emit(kind domain.BlockKind, text string) {
	p.blocks = append(p.blocks, domain.TextBlock{
		Kind:   kind,
		Text:   text,
		Offset: p.position,
	})
}

// coreXML represents the structure of docProps/core.xml.
type coreXML struct {
	Title string `xml:"title"`
}

// extractTitle extracts the title from docProps/core.xml or falls back to filename.
func extractTitle(reader *zip.Reader, name string) string {
	if content, err := readEntry(reader, "docProps/core.xml"); err == nil {
		var core coreXML
		if err := xml.Unmarshal(content, &core); err == nil && strings.TrimSpace(core.Title) != "" {
			return strings.TrimSpace(core.Title)
		}
	}

	filename := filepath.Base(name)
	if ext := filepath.Ext(filename); ext != "" {
		filename = strings.TrimSuffix(filename, ext)
	}
	filename = strings.ReplaceAll(filename, "_", " ")
	filename = strings.ReplaceAll(filename, "-", " ")
	return filename
}
