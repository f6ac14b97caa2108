// Package gemini provides text recognition and semantic extraction over
// the Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/custodia-labs/tally/internal/adapters/driven/recognition"
	"github.com/custodia-labs/tally/internal/core/domain"
	"github.com/custodia-labs/tally/internal/core/ports/driven"
)

// Ensure Service implements the interfaces.
var (
	_ driven.TextRecognitionService    = (*Service)(nil)
	_ driven.SemanticExtractionService = (*Service)(nil)
)

// Default configuration values.
const (
	DefaultModel   = "gemini-2.5-flash"
	DefaultTimeout = 120 * time.Second
)

// Config holds configuration for the Gemini service.
type Config struct {
	// APIKey is the Gemini API key (required).
	APIKey string

	// Model is the model name (default: gemini-2.5-flash).
	Model string

	// BaseURL overrides the API endpoint. Used by tests.
	BaseURL string

	// Timeout is the HTTP client timeout (default: 120s).
	Timeout time.Duration
}

// Service sends inline image or document parts to GenerateContent.
type Service struct {
	client *genai.Client
	model  string
}

// New creates a Service.
func New(ctx context.Context, cfg Config) (*Service, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: gemini: API key is required", domain.ErrServiceNotConfigured)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: cfg.Timeout},
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Service{client: client, model: cfg.Model}, nil
}

// Name returns "gemini".
func (s *Service) Name() string {
	return "gemini"
}

// Recognize transcribes the text of one image.
func (s *Service) Recognize(ctx context.Context, image []byte, mimeType string) (*driven.RecognitionResult, error) {
	if len(image) == 0 {
		return nil, fmt.Errorf("%w: empty image", domain.ErrInvalidInput)
	}
	parts := []*genai.Part{
		genai.NewPartFromText(recognition.RecognitionPrompt),
		genai.NewPartFromBytes(image, baseMIME(mimeType)),
	}
	reply, err := s.generate(ctx, parts, false)
	if err != nil {
		return nil, err
	}
	return &driven.RecognitionResult{Text: strings.TrimSpace(reply)}, nil
}

// Extract sends the whole document inline and parses the JSON reply.
func (s *Service) Extract(ctx context.Context, req driven.SemanticRequest) (*driven.SemanticResult, error) {
	if len(req.Content) == 0 {
		return nil, fmt.Errorf("%w: empty document", domain.ErrInvalidInput)
	}

	parts := []*genai.Part{genai.NewPartFromText(recognition.SemanticPrompt(req.Groups))}
	if mime := baseMIME(req.MIMEType); strings.HasPrefix(mime, "text/") {
		parts = append(parts, genai.NewPartFromText(string(req.Content)))
	} else {
		parts = append(parts, genai.NewPartFromBytes(req.Content, mime))
	}

	reply, err := s.generate(ctx, parts, true)
	if err != nil {
		return nil, err
	}
	return recognition.ParseSemanticReply(reply), nil
}

func (s *Service) generate(ctx context.Context, parts []*genai.Part, jsonReply bool) (string, error) {
	cfg := &genai.GenerateContentConfig{Temperature: genai.Ptr[float32](0)}
	if jsonReply {
		cfg.ResponseMIMEType = "application/json"
	}

	resp, err := s.client.Models.GenerateContent(ctx, s.model,
		[]*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}, cfg)
	if err != nil {
		return "", s.classify(err)
	}
	if len(resp.Candidates) == 0 {
		reason := "no candidates returned"
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			reason = "prompt blocked: " + string(resp.PromptFeedback.BlockReason)
		}
		return "", errors.New("gemini: " + reason)
	}
	return resp.Text(), nil
}

// classify maps genai failures onto the service error classes.
func (s *Service) classify(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return classifyAPIError(s.Name(), apiErr)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return classifyAPIError(s.Name(), *apiErrPtr)
	}
	return recognition.ClassifyTransport(s.Name(), err)
}

// classifyAPIError separates a spent quota from a per-minute rate limit;
// Gemini reports both as 429 RESOURCE_EXHAUSTED.
func classifyAPIError(service string, e genai.APIError) error {
	msg := e.Message
	if msg == "" {
		msg = e.Status
	}
	if e.Code == http.StatusTooManyRequests {
		lower := strings.ToLower(msg)
		if strings.Contains(lower, "billing") || strings.Contains(lower, "per day") || strings.Contains(lower, "perday") {
			return fmt.Errorf("%w: %s: %s", domain.ErrServiceQuotaExceeded, service, msg)
		}
		return fmt.Errorf("%w: %s: rate limited: %s", domain.ErrServiceUnavailable, service, msg)
	}
	if e.Code == http.StatusBadRequest && strings.Contains(strings.ToLower(msg), "api key") {
		return fmt.Errorf("%w: %s: %s", domain.ErrServiceAuth, service, msg)
	}
	return recognition.ClassifyStatus(service, e.Code, msg)
}

func baseMIME(mimeType string) string {
	base := strings.ToLower(strings.TrimSpace(strings.Split(mimeType, ";")[0]))
	if base == "" {
		return "application/octet-stream"
	}
	return base
}
