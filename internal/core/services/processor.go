package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/tally/internal/core/domain"
	"github.com/custodia-labs/tally/internal/core/ports/driven"
	"github.com/custodia-labs/tally/internal/core/ports/driving"
	"github.com/custodia-labs/tally/internal/logger"
	"github.com/custodia-labs/tally/internal/textnorm"
)

// Ensure Processor implements the interface.
var _ driving.Processor = (*Processor)(nil)

// reasonCancelled marks documents the run never finished.
const reasonCancelled = "cancelled"

// KeywordMatcher counts taxonomy groups in normalised text.
type KeywordMatcher interface {
	Match(text string, taxonomy *domain.Taxonomy) map[string]domain.MatchRecord
	CheckHints(records map[string]domain.MatchRecord, hints []domain.EntityHint) []domain.Warning
}

// StrategyFactory builds the OCR strategy for a mode.
type StrategyFactory func(mode domain.ExtractionMode) (driven.OCRStrategy, error)

// ProcessorConfig wires a Processor.
type ProcessorConfig struct {
	Registry   driven.ExtractorRegistry
	Strategies StrategyFactory
	Matcher    KeywordMatcher

	// Renderer is optional; without it ProcessResult.Artifact stays empty.
	Renderer driven.ReportRenderer

	// Metrics is optional.
	Metrics driven.Metrics

	// Workers bounds the documents processed at once.
	Workers int

	// MaxLocalPages caps OCR'd image blocks per document in local mode.
	MaxLocalPages int
}

// Processor runs documents through detection, extraction, OCR,
// normalisation and matching.
type Processor struct {
	cfg ProcessorConfig

	mu         sync.Mutex
	strategies map[domain.ExtractionMode]driven.OCRStrategy
}

// NewProcessor creates a processor.
func NewProcessor(cfg ProcessorConfig) *Processor {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.Metrics == nil {
		cfg.Metrics = driven.NopMetrics{}
	}
	return &Processor{
		cfg:        cfg,
		strategies: make(map[domain.ExtractionMode]driven.OCRStrategy),
	}
}

// strategy returns the strategy for mode, building it once so rate
// limits are shared across documents.
func (p *Processor) strategy(mode domain.ExtractionMode) (driven.OCRStrategy, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if s, ok := p.strategies[mode]; ok {
		return s, nil
	}
	if p.cfg.Strategies == nil {
		return nil, fmt.Errorf("%w: no strategy factory", domain.ErrInvalidConfig)
	}
	s, err := p.cfg.Strategies(mode)
	if err != nil {
		return nil, err
	}
	p.strategies[mode] = s
	return s, nil
}

// Process analyses every document in the request. Documents run in
// parallel up to the worker limit. Cancelling ctx stops new documents
// from starting; the result then holds what finished and is marked partial.
func (p *Processor) Process(ctx context.Context, req driving.ProcessRequest) (*driving.ProcessResult, error) {
	if req.Taxonomy == nil {
		return nil, fmt.Errorf("%w: no taxonomy", domain.ErrTaxonomyInvalid)
	}
	mode, err := domain.ParseMode(string(req.Mode))
	if err != nil {
		return nil, err
	}
	strategy, err := p.strategy(mode)
	if err != nil {
		return nil, err
	}

	logger.Section("Processing")
	logger.Info("processing %d document(s) in %s mode against %d group(s)", len(req.Documents), mode, req.Taxonomy.Len())

	agg := NewAggregator(mode, req.Taxonomy, len(req.Documents)+len(req.Unloaded))
	for j, o := range req.Unloaded {
		o.Mode = mode
		o.Status = domain.StatusFailed
		if o.Reason == "" {
			o.Reason = "could not be loaded"
		}
		agg.Add(len(req.Documents)+j, p.finish(o))
	}
	if len(req.Unloaded) > 0 {
		agg.MarkPartial()
	}

	var g errgroup.Group
	g.SetLimit(p.cfg.Workers)
	for i := range req.Documents {
		if ctx.Err() != nil {
			break
		}
		doc := &req.Documents[i]
		g.Go(func() error {
			agg.Add(i, p.run(ctx, strategy, mode, doc, req.Taxonomy))
			return nil
		})
	}
	_ = g.Wait()

	if ctx.Err() != nil {
		agg.MarkPartial()
		for i, doc := range req.Documents {
			if !agg.Filled(i) {
				agg.Add(i, cancelled(mode, &doc))
			}
		}
		logger.Warn("run cancelled; report is partial")
	}

	report := agg.Snapshot()
	if err := report.Verify(); err != nil {
		return nil, fmt.Errorf("report totals inconsistent: %w", err)
	}

	result := &driving.ProcessResult{
		Report:   report,
		Warnings: make(map[string][]domain.Warning),
		Failed:   report.ByStatus(domain.StatusFailed),
		Partial:  report.Partial,
	}
	for _, o := range report.Documents {
		if len(o.Warnings) > 0 {
			result.Warnings[warningKey(o)] = o.Warnings
		}
	}

	if p.cfg.Renderer != nil {
		artifact, err := p.cfg.Renderer.Render(report)
		if err != nil {
			return result, fmt.Errorf("render report: %w", err)
		}
		result.Artifact = artifact
	}
	return result, nil
}

// ProcessDocument runs one document. Configuration errors become a failed outcome.
func (p *Processor) ProcessDocument(ctx context.Context, mode domain.ExtractionMode, doc *domain.Document, taxonomy *domain.Taxonomy) domain.DocumentOutcome {
	strategy, err := p.strategy(mode)
	if err != nil {
		return failed(domain.DocumentOutcome{SourceID: doc.SourceID, Filename: doc.Filename, Mode: mode}, err)
	}
	return p.run(ctx, strategy, mode, doc, taxonomy)
}

func (p *Processor) run(ctx context.Context, strategy driven.OCRStrategy, mode domain.ExtractionMode, doc *domain.Document, taxonomy *domain.Taxonomy) domain.DocumentOutcome {
	out := domain.DocumentOutcome{SourceID: doc.SourceID, Filename: doc.Filename, Mode: mode}

	mimeType, err := p.cfg.Registry.Detect(doc)
	if err != nil {
		return p.finish(failed(out, err))
	}
	typed := *doc
	typed.MIMEHint = mimeType
	logger.Debug("%s detected as %s", doc.Filename, mimeType)

	var (
		result  *domain.ExtractionResult
		hints   []domain.EntityHint
		corrupt error
		early   []domain.Warning
	)

	if ds, ok := strategy.(driven.DocumentStrategy); ok && ds.Accepts(&typed) {
		dt, err := ds.ExtractDocument(ctx, &typed, taxonomy)
		switch {
		case err == nil:
			result = &domain.ExtractionResult{
				Mode:   mode,
				Blocks: []domain.TextBlock{{Kind: domain.BlockText, Text: dt.Text, Confidence: dt.Confidence}},
			}
			hints = dt.Hints
		case ctx.Err() != nil:
			return p.finish(cancelled(mode, doc))
		default:
			logger.Warn("%s: whole-document extraction failed, continuing page by page: %v", doc.Filename, err)
			early = append(early, domain.Warning{
				Code:    domain.WarnServiceDegraded,
				Message: fmt.Sprintf("whole-document extraction failed (%v); extracted page by page", err),
			})
		}
	}

	if result == nil {
		result, corrupt = p.extract(ctx, strategy, mode, &typed)
		if ctx.Err() != nil {
			return p.finish(cancelled(mode, doc))
		}
		if result == nil {
			return p.finish(failed(out, corrupt))
		}
	}

	for i := range result.Blocks {
		b := &result.Blocks[i]
		if b.Text == "" {
			continue
		}
		n := textnorm.Normalise(b.Text)
		b.Text = n.Text
		for _, w := range n.Warnings {
			w.Page = b.Page
			result.Warnings = append(result.Warnings, w)
		}
	}

	text := result.Text()
	out.Matches = p.cfg.Matcher.Match(text, taxonomy)
	out.Warnings = append(early, result.Warnings...)
	out.Warnings = append(out.Warnings, p.cfg.Matcher.CheckHints(out.Matches, hints)...)
	out.Blocks = len(result.Blocks)
	out.DroppedBlocks = result.DroppedBlocks()
	out.TextLength = utf8.RuneCountInString(text)

	switch {
	case out.Blocks > 0 && out.DroppedBlocks == out.Blocks:
		out.Status = domain.StatusFailed
		out.Reason = "every block was degraded"
	case corrupt != nil:
		out.Status = domain.StatusPartial
		out.Reason = corrupt.Error()
	case out.DroppedBlocks > 0:
		out.Status = domain.StatusPartial
		out.Reason = fmt.Sprintf("%d of %d blocks degraded", out.DroppedBlocks, out.Blocks)
	default:
		out.Status = domain.StatusSucceeded
	}
	return p.finish(out)
}

// extract runs the format extractor and sends image blocks through the
// strategy. A nil result means the document yielded nothing; a non-nil
// error with a result means parsing stopped early.
func (p *Processor) extract(ctx context.Context, strategy driven.OCRStrategy, mode domain.ExtractionMode, doc *domain.Document) (*domain.ExtractionResult, error) {
	extractor := p.cfg.Registry.Get(doc.MIMEHint)
	if extractor == nil {
		return nil, fmt.Errorf("%w: no extractor for %s", domain.ErrUnsupportedFormat, doc.MIMEHint)
	}

	result, err := extractor.Extract(ctx, doc)
	if result == nil {
		if err == nil {
			err = fmt.Errorf("%w: extractor returned nothing", domain.ErrCorruptDocument)
		}
		return nil, err
	}
	result.Mode = mode

	images := 0
	for i := range result.Blocks {
		b := &result.Blocks[i]
		if b.Kind != domain.BlockImage {
			continue
		}
		images++
		if mode == domain.ModeLocal && p.cfg.MaxLocalPages > 0 && images > p.cfg.MaxLocalPages {
			degrade(b)
			result.AddWarning(b.Page, domain.WarnPageCap, fmt.Sprintf("over the local OCR cap of %d pages", p.cfg.MaxLocalPages))
			continue
		}

		ocr, oerr := strategy.ExtractText(ctx, *b)
		if oerr != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			degrade(b)
			result.AddWarning(b.Page, domain.WarnBlockDropped, fmt.Sprintf("text recognition failed: %v", oerr))
			continue
		}
		b.Kind = domain.BlockText
		b.Text = ocr.Text
		b.Confidence = ocr.Confidence
		b.Image = nil
		result.Warnings = append(result.Warnings, ocr.Warnings...)
	}
	return result, err
}

func (p *Processor) finish(out domain.DocumentOutcome) domain.DocumentOutcome {
	p.cfg.Metrics.DocumentProcessed(out.Status)
	switch out.Status {
	case domain.StatusSucceeded:
		logger.Info("%s: %s", out.Filename, out.Status)
	default:
		logger.Warn("%s: %s (%s)", out.Filename, out.Status, out.Reason)
	}
	return out
}

func degrade(b *domain.TextBlock) {
	b.Kind = domain.BlockDegraded
	b.Text = ""
	b.Image = nil
	b.Confidence = nil
}

func failed(out domain.DocumentOutcome, err error) domain.DocumentOutcome {
	out.Status = domain.StatusFailed
	out.Reason = err.Error()
	if errors.Is(err, domain.ErrCorruptDocument) {
		out.Warnings = append(out.Warnings, domain.Warning{Code: domain.WarnCorrupt, Message: err.Error()})
	}
	return out
}

func cancelled(mode domain.ExtractionMode, doc *domain.Document) domain.DocumentOutcome {
	return domain.DocumentOutcome{
		SourceID: doc.SourceID,
		Filename: doc.Filename,
		Mode:     mode,
		Status:   domain.StatusFailed,
		Reason:   reasonCancelled,
	}
}

// warningKey identifies a document in ProcessResult.Warnings. Source ids
// stay distinct where filenames repeat across directories or URLs.
func warningKey(o domain.DocumentOutcome) string {
	if o.SourceID != "" {
		return o.SourceID
	}
	return o.Filename
}
