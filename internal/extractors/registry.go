package extractors

import (
	"fmt"
	"net/http"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"

	"github.com/custodia-labs/tally/internal/core/domain"
	"github.com/custodia-labs/tally/internal/core/ports/driven"
)

// MIME types recognised by the built-in extractors.
const (
	MIMEPDF   = "application/pdf"
	MIMEDOCX  = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MIMEHTML  = "text/html"
	MIMEText  = "text/plain"
	MIMEPNG   = "image/png"
	MIMEJPEG  = "image/jpeg"
	MIMEGIF   = "image/gif"
	MIMEBMP   = "image/bmp"
	MIMETIFF  = "image/tiff"
	MIMEWebP  = "image/webp"
	mimeOctet = "application/octet-stream"
	mimeZip   = "application/zip"
)

// Ensure Registry implements the interface.
var _ driven.ExtractorRegistry = (*Registry)(nil)

// Registry maps MIME types to extractors.
type Registry struct {
	mu         sync.RWMutex
	extractors []driven.FormatExtractor
}

// NewRegistry creates an empty registry.
func NewRegistry(extractors ...driven.FormatExtractor) *Registry {
	r := &Registry{}
	for _, e := range extractors {
		r.Register(e)
	}
	return r
}

// Register adds an extractor.
func (r *Registry) Register(e driven.FormatExtractor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.extractors = append(r.extractors, e)
}

// List returns all registered extractors.
func (r *Registry) List() []driven.FormatExtractor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]driven.FormatExtractor, len(r.extractors))
	copy(out, r.extractors)
	return out
}

// Get returns the highest-priority extractor for mimeType, or nil.
func (r *Registry) Get(mimeType string) driven.FormatExtractor {
	mimeType = baseType(mimeType)

	r.mu.RLock()
	defer r.mu.RUnlock()

	var candidates []driven.FormatExtractor
	for _, e := range r.extractors {
		for _, m := range e.SupportedMIMETypes() {
			if m == mimeType {
				candidates = append(candidates, e)
				break
			}
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Priority() > candidates[j].Priority()
	})
	return candidates[0]
}

// Detect sniffs the byte signature. The hint and filename only decide
// between plain text and HTML, never override a binary signature.
func (r *Registry) Detect(doc *domain.Document) (string, error) {
	if doc == nil {
		return "", domain.ErrInvalidInput
	}
	if len(doc.Content) == 0 {
		return MIMEText, nil
	}

	detected := baseType(sniff(doc.Content))
	switch {
	case detected == MIMEText || detected == "text/xml":
		if isHTMLHint(doc) {
			detected = MIMEHTML
		} else {
			detected = MIMEText
		}
	case detected == mimeOctet || detected == mimeZip:
		return "", unsupported(doc, detected)
	}

	if r.Get(detected) == nil {
		return "", unsupported(doc, detected)
	}
	return detected, nil
}

// sniff uses the stdlib detector first and falls back to mimetype for
// containers it does not know, such as DOCX inside a zip.
func sniff(content []byte) string {
	mt := http.DetectContentType(content)
	if b := baseType(mt); b != mimeOctet && b != mimeZip {
		return mt
	}
	return mimetype.Detect(content).String()
}

func isHTMLHint(doc *domain.Document) bool {
	if baseType(doc.MIMEHint) == MIMEHTML || baseType(doc.MIMEHint) == "application/xhtml+xml" {
		return true
	}
	switch strings.ToLower(filepath.Ext(doc.Filename)) {
	case ".html", ".htm", ".xhtml":
		return true
	}
	return false
}

func baseType(mt string) string {
	mt, _, _ = strings.Cut(mt, ";")
	return strings.ToLower(strings.TrimSpace(mt))
}

func unsupported(doc *domain.Document, detected string) error {
	return fmt.Errorf("%w: %s detected as %s", domain.ErrUnsupportedFormat, doc.Filename, detected)
}
