package cli

import (
	"context"
	"fmt"

	"github.com/custodia-labs/tally/internal/adapters/driven/command"
	"github.com/custodia-labs/tally/internal/adapters/driven/metrics"
	"github.com/custodia-labs/tally/internal/adapters/driven/recognition/cache"
	"github.com/custodia-labs/tally/internal/adapters/driven/recognition/gemini"
	"github.com/custodia-labs/tally/internal/adapters/driven/recognition/openai"
	"github.com/custodia-labs/tally/internal/core/domain"
	"github.com/custodia-labs/tally/internal/core/ports/driven"
	"github.com/custodia-labs/tally/internal/core/services"
	"github.com/custodia-labs/tally/internal/extractors"
	"github.com/custodia-labs/tally/internal/extractors/pdf"
	"github.com/custodia-labs/tally/internal/matcher"
	"github.com/custodia-labs/tally/internal/ocr"
	"github.com/custodia-labs/tally/internal/report"
	"github.com/custodia-labs/tally/internal/taxonomy"
)

// app holds the wired pipeline shared by the commands.
type app struct {
	cfg       domain.Config
	processor *services.Processor
	taxonomy  *taxonomy.Loader
	renderer  *report.XLSX
	metrics   *metrics.Recorder
}

// buildApp is replaced in tests.
var buildApp = newApp

// newApp wires the pipeline for cfg. External services are only
// contacted when a run actually selects their mode.
func newApp(ctx context.Context, cfg domain.Config) (*app, error) {
	runner := command.NewRunner()
	rec := metrics.New()
	renderer := report.NewXLSX()

	strategies := func(mode domain.ExtractionMode) (driven.OCRStrategy, error) {
		deps := ocr.Dependencies{Runner: runner, Metrics: rec}
		switch mode {
		case domain.ModeVision:
			r, err := newRecognizer(ctx, cfg.Vision)
			if err != nil {
				return nil, err
			}
			deps.Recognizer = r
		case domain.ModeSemantic:
			e, err := newExtractor(ctx, cfg.Semantic)
			if err != nil {
				return nil, err
			}
			deps.Extractor = e
		}
		return ocr.New(mode, cfg, deps)
	}

	processor := services.NewProcessor(services.ProcessorConfig{
		Registry:      extractors.Default(pdf.NewPdftoppm(runner, cfg.OCR.PdftoppmPath, cfg.OCR.DPI)),
		Strategies:    strategies,
		Matcher:       matcher.New(cfg.Match),
		Renderer:      renderer,
		Metrics:       rec,
		Workers:       cfg.Workers,
		MaxLocalPages: cfg.OCR.MaxLocalPages,
	})

	return &app{
		cfg:       cfg,
		processor: processor,
		taxonomy:  taxonomy.New(),
		renderer:  renderer,
		metrics:   rec,
	}, nil
}

// newRecognizer builds the vision backend, wrapped in a result cache
// when one is configured.
func newRecognizer(ctx context.Context, svc domain.ServiceConfig) (driven.TextRecognitionService, error) {
	var base driven.TextRecognitionService
	switch svc.Provider {
	case domain.ProviderGemini, "":
		s, err := gemini.New(ctx, gemini.Config{APIKey: svc.APIKey, Model: svc.Model, BaseURL: svc.BaseURL})
		if err != nil {
			return nil, err
		}
		base = s
	case domain.ProviderOpenAI:
		s, err := openai.New(openai.Config{APIKey: svc.APIKey, Model: svc.Model, BaseURL: svc.BaseURL})
		if err != nil {
			return nil, err
		}
		base = s
	default:
		return nil, fmt.Errorf("%w: unknown vision provider %q", domain.ErrInvalidConfig, svc.Provider)
	}

	if svc.CacheSize <= 0 {
		return base, nil
	}
	return cache.New(base, svc.CacheSize)
}

func newExtractor(ctx context.Context, svc domain.ServiceConfig) (driven.SemanticExtractionService, error) {
	switch svc.Provider {
	case domain.ProviderGemini, "":
		return gemini.New(ctx, gemini.Config{APIKey: svc.APIKey, Model: svc.Model, BaseURL: svc.BaseURL})
	case domain.ProviderOpenAI:
		return openai.New(openai.Config{APIKey: svc.APIKey, Model: svc.Model, BaseURL: svc.BaseURL})
	default:
		return nil, fmt.Errorf("%w: unknown semantic provider %q", domain.ErrInvalidConfig, svc.Provider)
	}
}

// loadTaxonomy reads and validates a taxonomy file.
func (a *app) loadTaxonomy(path string) (*domain.Taxonomy, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: --taxonomy is required", domain.ErrInvalidInput)
	}
	return a.taxonomy.LoadFile(osFS, path)
}

// writeReport renders r and stores it in the configured report directory.
func (a *app) writeReport(ctx context.Context, dir string, artifact []byte, r *domain.AnalysisReport) (string, error) {
	if artifact == nil {
		var err error
		artifact, err = a.renderer.Render(r)
		if err != nil {
			return "", fmt.Errorf("render report: %w", err)
		}
	}
	if dir == "" {
		dir = a.cfg.ReportDir
	}
	return report.OSFileSink(dir).Write(ctx, report.Name(now(), a.renderer.Extension()), artifact)
}
