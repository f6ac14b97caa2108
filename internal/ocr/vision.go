package ocr

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/tally/internal/core/domain"
	"github.com/custodia-labs/tally/internal/core/ports/driven"
	"github.com/custodia-labs/tally/internal/logger"
)

// Ensure Vision implements the interface.
var _ driven.OCRStrategy = (*Vision)(nil)

// Vision sends page images to a text-recognition service. When the
// service keeps failing, the page is recognised by the fallback strategy
// and tagged with an ocr_fallback warning.
type Vision struct {
	service  driven.TextRecognitionService
	fallback driven.OCRStrategy
	policy   domain.RetryPolicy
	limiter  *limiter
	metrics  driven.Metrics
}

// NewVision creates the vision strategy.
func NewVision(service driven.TextRecognitionService, fallback driven.OCRStrategy, policy domain.RetryPolicy, requestsPerSecond float64, metrics driven.Metrics) *Vision {
	if metrics == nil {
		metrics = driven.NopMetrics{}
	}
	return &Vision{
		service:  service,
		fallback: fallback,
		policy:   policy,
		limiter:  newLimiter(requestsPerSecond),
		metrics:  metrics,
	}
}

// Mode returns domain.ModeVision.
func (v *Vision) Mode() domain.ExtractionMode {
	return domain.ModeVision
}

// ExtractText recognises the block with the service, retrying transient
// failures. Quota and credential failures go straight to the fallback.
func (v *Vision) ExtractText(ctx context.Context, block domain.TextBlock) (*driven.OCRResult, error) {
	var result *driven.RecognitionResult
	attempts, err := call(ctx, v.policy, func(ctx context.Context) error {
		if err := v.limiter.Wait(ctx); err != nil {
			return err
		}
		r, err := v.service.Recognize(ctx, block.Image, block.ImageMIME)
		v.metrics.ServiceCall(v.service.Name(), resultClass(err))
		if err != nil {
			if errors.Is(err, domain.ErrServiceQuotaExceeded) {
				v.limiter.RecordQuotaError()
			}
			logger.Debug("%s page %d: %v", v.service.Name(), block.Page, err)
			return err
		}
		result = r
		return nil
	})
	if err == nil {
		return &driven.OCRResult{Text: result.Text, Confidence: result.Confidence}, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if v.fallback == nil {
		return nil, err
	}

	logger.Warn("%s failed on page %d after %d attempt(s), using %s: %v",
		v.service.Name(), block.Page, attempts, v.fallback.Mode(), err)
	v.metrics.OCRFallback()

	local, lerr := v.fallback.ExtractText(ctx, block)
	if lerr != nil {
		return nil, fmt.Errorf("fallback after %w: %w", err, lerr)
	}
	local.Warnings = append(local.Warnings, domain.Warning{
		Page:    block.Page,
		Code:    domain.WarnOCRFallback,
		Message: fmt.Sprintf("%s failed after %d attempt(s) (%v); text is from local OCR", v.service.Name(), attempts, err),
	})
	return local, nil
}

// resultClass labels a service call for metrics.
func resultClass(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrServiceQuotaExceeded):
		return "quota"
	case errors.Is(err, domain.ErrServiceAuth):
		return "auth"
	case errors.Is(err, domain.ErrServiceUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}
