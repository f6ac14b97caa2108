package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/tally/internal/core/domain"
	"github.com/custodia-labs/tally/internal/core/ports/driven"
)

// funcExtractor adapts a function to driven.FormatExtractor.
type funcExtractor struct {
	mime string
	fn   func(ctx context.Context, doc *domain.Document) (*domain.ExtractionResult, error)
}

func (e *funcExtractor) Name() string                 { return "fake-" + e.mime }
func (e *funcExtractor) SupportedMIMETypes() []string { return []string{e.mime} }
func (e *funcExtractor) Priority() int                { return 1 }
func (e *funcExtractor) Extract(ctx context.Context, doc *domain.Document) (*domain.ExtractionResult, error) {
	return e.fn(ctx, doc)
}

// textExtractor returns the content as paragraphs, one block each.
func textExtractor() *funcExtractor {
	return &funcExtractor{mime: "text/plain", fn: func(_ context.Context, doc *domain.Document) (*domain.ExtractionResult, error) {
		return &domain.ExtractionResult{Blocks: []domain.TextBlock{{Kind: domain.BlockText, Text: string(doc.Content)}}}, nil
	}}
}

// imageExtractor returns one image block per byte of content.
func imageExtractor() *funcExtractor {
	return &funcExtractor{mime: "image/png", fn: func(_ context.Context, doc *domain.Document) (*domain.ExtractionResult, error) {
		res := &domain.ExtractionResult{}
		for i, c := range doc.Content {
			res.Blocks = append(res.Blocks, domain.TextBlock{Kind: domain.BlockImage, Page: i + 1, Image: []byte{c}, ImageMIME: "image/png"})
		}
		return res, nil
	}}
}

// fakeRegistry trusts the MIME hint; an empty hint is unsupported.
type fakeRegistry struct {
	extractors map[string]driven.FormatExtractor
}

func newFakeRegistry(es ...*funcExtractor) *fakeRegistry {
	r := &fakeRegistry{extractors: map[string]driven.FormatExtractor{}}
	for _, e := range es {
		r.extractors[e.mime] = e
	}
	return r
}

func (r *fakeRegistry) Register(e driven.FormatExtractor) {
	r.extractors[e.SupportedMIMETypes()[0]] = e
}

func (r *fakeRegistry) Detect(doc *domain.Document) (string, error) {
	if _, ok := r.extractors[doc.MIMEHint]; !ok {
		return "", fmt.Errorf("%w: %s", domain.ErrUnsupportedFormat, doc.Filename)
	}
	return doc.MIMEHint, nil
}

func (r *fakeRegistry) Get(mimeType string) driven.FormatExtractor { return r.extractors[mimeType] }

func (r *fakeRegistry) List() []driven.FormatExtractor {
	out := make([]driven.FormatExtractor, 0, len(r.extractors))
	for _, e := range r.extractors {
		out = append(out, e)
	}
	return out
}

// fakeStrategy maps the first image byte to recognised text.
// A byte listed in fail makes recognition fail.
type fakeStrategy struct {
	mode  domain.ExtractionMode
	texts map[byte]string
	fail  map[byte]bool

	mu    sync.Mutex
	calls int
}

func (s *fakeStrategy) Mode() domain.ExtractionMode { return s.mode }

func (s *fakeStrategy) ExtractText(_ context.Context, b domain.TextBlock) (*driven.OCRResult, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.fail[b.Image[0]] {
		return nil, fmt.Errorf("%w: page %d", domain.ErrServiceUnavailable, b.Page)
	}
	conf := 0.5
	return &driven.OCRResult{Text: s.texts[b.Image[0]], Confidence: &conf}, nil
}

// fakeDocStrategy adds whole-document extraction.
type fakeDocStrategy struct {
	fakeStrategy
	text  string
	hints []domain.EntityHint
	err   error
}

func (s *fakeDocStrategy) Accepts(doc *domain.Document) bool { return doc.MIMEHint == "text/plain" }

func (s *fakeDocStrategy) ExtractDocument(context.Context, *domain.Document, *domain.Taxonomy) (*driven.DocumentText, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &driven.DocumentText{Text: s.text, Hints: s.hints}, nil
}

type fakeRenderer struct {
	rendered *domain.AnalysisReport
}

func (r *fakeRenderer) Render(report *domain.AnalysisReport) ([]byte, error) {
	r.rendered = report
	return []byte("artifact"), nil
}

func (r *fakeRenderer) Extension() string { return ".xlsx" }

type recordingMetrics struct {
	driven.NopMetrics
	mu       sync.Mutex
	statuses map[domain.DocumentStatus]int
	jobs     map[domain.JobState]int
}

func (m *recordingMetrics) DocumentProcessed(s domain.DocumentStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.statuses == nil {
		m.statuses = map[domain.DocumentStatus]int{}
	}
	m.statuses[s]++
}

func (m *recordingMetrics) JobTransition(s domain.JobState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.jobs == nil {
		m.jobs = map[domain.JobState]int{}
	}
	m.jobs[s]++
}
