package ocr

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/custodia-labs/tally/internal/core/domain"
	"github.com/custodia-labs/tally/internal/core/ports/driven"
	"github.com/custodia-labs/tally/internal/logger"
)

// Ensure Semantic implements the interface.
var _ driven.DocumentStrategy = (*Semantic)(nil)

// Semantic hands whole documents to an extraction service. Documents the
// service cannot take whole are extracted normally and their image
// blocks are sent one page at a time.
type Semantic struct {
	service  driven.SemanticExtractionService
	policy   domain.RetryPolicy
	limiter  *limiter
	metrics  driven.Metrics
	maxBytes int
}

// NewSemantic creates the semantic strategy. maxBytes <= 0 means no size limit.
func NewSemantic(service driven.SemanticExtractionService, policy domain.RetryPolicy, cfg domain.ServiceConfig, metrics driven.Metrics) *Semantic {
	if metrics == nil {
		metrics = driven.NopMetrics{}
	}
	return &Semantic{
		service:  service,
		policy:   policy,
		limiter:  newLimiter(cfg.RequestsPerSecond),
		metrics:  metrics,
		maxBytes: cfg.MaxDocumentBytes,
	}
}

// Mode returns domain.ModeSemantic.
func (s *Semantic) Mode() domain.ExtractionMode {
	return domain.ModeSemantic
}

// Accepts reports whether the document can be sent whole. The service
// reads PDFs, images and plain text; other containers go through the
// format extractors first.
func (s *Semantic) Accepts(doc *domain.Document) bool {
	if doc == nil || len(doc.Content) == 0 {
		return false
	}
	if s.maxBytes > 0 && len(doc.Content) > s.maxBytes {
		return false
	}
	mimeType, _, _ := strings.Cut(strings.ToLower(doc.MIMEHint), ";")
	mimeType = strings.TrimSpace(mimeType)
	return mimeType == "application/pdf" || mimeType == "text/plain" || strings.HasPrefix(mimeType, "image/")
}

// ExtractDocument sends the whole document with the taxonomy groups so
// the service can pre-tag candidates.
func (s *Semantic) ExtractDocument(ctx context.Context, doc *domain.Document, taxonomy *domain.Taxonomy) (*driven.DocumentText, error) {
	res, err := s.extract(ctx, driven.SemanticRequest{
		Content:  doc.Content,
		MIMEType: doc.MIMEHint,
		Filename: doc.Filename,
		Groups:   taxonomy.Groups(),
	})
	if err != nil {
		return nil, err
	}
	return &driven.DocumentText{Text: res.Text, Confidence: res.Quality, Hints: res.Hints}, nil
}

// ExtractText sends a single page image. A failure degrades that page only.
func (s *Semantic) ExtractText(ctx context.Context, block domain.TextBlock) (*driven.OCRResult, error) {
	if len(block.Image) == 0 {
		return nil, fmt.Errorf("%w: block has no image", domain.ErrInvalidInput)
	}
	res, err := s.extract(ctx, driven.SemanticRequest{
		Content:  block.Image,
		MIMEType: block.ImageMIME,
		Filename: fmt.Sprintf("page-%d", block.Page),
	})
	if err != nil {
		return nil, err
	}
	return &driven.OCRResult{Text: res.Text, Confidence: res.Quality}, nil
}

func (s *Semantic) extract(ctx context.Context, req driven.SemanticRequest) (*driven.SemanticResult, error) {
	var result *driven.SemanticResult
	attempts, err := call(ctx, s.policy, func(ctx context.Context) error {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}
		r, err := s.service.Extract(ctx, req)
		s.metrics.ServiceCall(s.service.Name(), resultClass(err))
		if err != nil {
			if errors.Is(err, domain.ErrServiceQuotaExceeded) {
				s.limiter.RecordQuotaError()
			}
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		logger.Debug("%s %s: gave up after %d attempt(s): %v", s.service.Name(), req.Filename, attempts, err)
		return nil, err
	}
	return result, nil
}
