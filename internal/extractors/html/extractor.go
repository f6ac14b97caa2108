package html

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"

	"github.com/custodia-labs/tally/internal/core/domain"
	"github.com/custodia-labs/tally/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.FormatExtractor = (*Extractor)(nil)

var spaces = regexp.MustCompile(`\s+`)

// removed lists elements that never carry document text.
const removed = "script, style, noscript, template, svg, iframe, object, head"

var blockElements = map[string]bool{
	"p": true, "div": true, "section": true, "article": true, "main": true,
	"header": true, "footer": true, "nav": true, "aside": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"ul": true, "ol": true, "li": true, "dl": true, "dt": true, "dd": true,
	"blockquote": true, "pre": true, "table": true, "thead": true, "tbody": true,
	"tfoot": true, "caption": true, "figure": true, "figcaption": true,
	"form": true, "fieldset": true, "address": true, "hr": true, "body": true,
}

// Extractor handles HTML documents.
type Extractor struct{}

// New creates a new HTML extractor.
func New() *Extractor {
	return &Extractor{}
}

// Name returns the extractor identifier.
func (e *Extractor) Name() string {
	return "html"
}

// SupportedMIMETypes returns the MIME types this extractor handles.
func (e *Extractor) SupportedMIMETypes() []string {
	return []string{"text/html", "application/xhtml+xml"}
}

// Priority returns the selection priority.
func (e *Extractor) Priority() int {
	return 50 // Generic MIME extractor, higher than plaintext
}

// Extract strips markup and returns block-level text in document order.
func (e *Extractor) Extract(_ context.Context, doc *domain.Document) (*domain.ExtractionResult, error) {
	if doc == nil {
		return nil, domain.ErrInvalidInput
	}

	reader, err := charset.NewReader(bytes.NewReader(doc.Content), doc.MIMEHint)
	if err != nil {
		return nil, fmt.Errorf("%w: detect charset: %w", domain.ErrCorruptDocument, err)
	}

	page, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: parse html: %w", domain.ErrCorruptDocument, err)
	}

	title := strings.TrimSpace(page.Find("title").First().Text())
	if title == "" {
		title = titleFromFilename(doc.Filename)
	}

	page.Find(removed).Remove()

	w := &walker{}
	for _, n := range page.Find("body").Nodes {
		w.visit(n)
	}
	w.flush()

	return &domain.ExtractionResult{Blocks: w.blocks, Title: title}, nil
}

// walker accumulates inline text and emits a block at every block boundary.
type walker struct {
	blocks []domain.TextBlock
	buf    strings.Builder
}

func (w *walker) flush() {
	text := cleanLines(w.buf.String())
	w.buf.Reset()
	if text == "" {
		return
	}
	w.blocks = append(w.blocks, domain.TextBlock{
		Kind:   domain.BlockText,
		Text:   text,
		Offset: len(w.blocks),
	})
}

func (w *walker) visit(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		w.buf.WriteString(spaces.ReplaceAllString(n.Data, " "))
		return
	case html.ElementNode:
		switch n.Data {
		case "br":
			w.buf.WriteString("\n")
			return
		case "tr":
			w.flush()
			w.row(n)
			return
		case "td", "th":
			w.buf.WriteString(" ")
		}
	case html.CommentNode:
		return
	}

	block := n.Type == html.ElementNode && blockElements[n.Data]
	if block {
		w.flush()
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.visit(c)
	}
	if block {
		w.flush()
	}
}

// row emits one tabular block for a table row.
func (w *walker) row(tr *html.Node) {
	var cells []string
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || (c.Data != "td" && c.Data != "th") {
			continue
		}
		cells = append(cells, strings.Join(strings.Fields(goquery.NewDocumentFromNode(c).Text()), " "))
	}
	if strings.TrimSpace(strings.Join(cells, "")) == "" {
		return
	}
	w.blocks = append(w.blocks, domain.TextBlock{
		Kind:   domain.BlockTable,
		Text:   strings.Join(cells, "\t"),
		Offset: len(w.blocks),
	})
}

// cleanLines trims every line and drops blank ones.
func cleanLines(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

func titleFromFilename(name string) string {
	if name == "" {
		return ""
	}
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
