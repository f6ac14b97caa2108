package ocr

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/tally/internal/core/domain"
	"github.com/custodia-labs/tally/internal/core/ports/driven"
)

// scriptedRecognizer returns errs[i] on call i, then text.
type scriptedRecognizer struct {
	mu    sync.Mutex
	errs  []error
	text  string
	calls int
}

func (s *scriptedRecognizer) Name() string { return "scripted" }

func (s *scriptedRecognizer) Recognize(_ context.Context, _ []byte, _ string) (*driven.RecognitionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	conf := 0.9
	return &driven.RecognitionResult{Text: s.text, Confidence: &conf}, nil
}

func (s *scriptedRecognizer) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type stubStrategy struct {
	mu    sync.Mutex
	text  string
	err   error
	calls int
}

func (s *stubStrategy) Mode() domain.ExtractionMode { return domain.ModeLocal }

func (s *stubStrategy) ExtractText(context.Context, domain.TextBlock) (*driven.OCRResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &driven.OCRResult{Text: s.text}, nil
}

type countingMetrics struct {
	driven.NopMetrics
	mu        sync.Mutex
	fallbacks int
	calls     map[string]int
}

func (m *countingMetrics) OCRFallback() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallbacks++
}

func (m *countingMetrics) ServiceCall(_, result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = map[string]int{}
	}
	m.calls[result]++
}

type fakeRunner struct {
	mu    sync.Mutex
	out   []byte
	err   error
	name  string
	args  []string
	stdin []byte
}

func (f *fakeRunner) Run(_ context.Context, stdin []byte, name string, args ...string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stdin, f.name, f.args = stdin, name, args
	return f.out, f.err
}

type scriptedExtractor struct {
	mu    sync.Mutex
	errs  []error
	calls int
	last  driven.SemanticRequest
	reply driven.SemanticResult
}

func (s *scriptedExtractor) Name() string { return "semantic-stub" }

func (s *scriptedExtractor) Extract(_ context.Context, req driven.SemanticRequest) (*driven.SemanticResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	s.calls++
	s.last = req
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	reply := s.reply
	return &reply, nil
}

func testPolicy() domain.RetryPolicy {
	return domain.RetryPolicy{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
	}
}

func imageBlock(page int) domain.TextBlock {
	return domain.TextBlock{Kind: domain.BlockImage, Page: page, Image: []byte("png"), ImageMIME: "image/png"}
}
