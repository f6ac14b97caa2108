// Package openai provides text recognition and semantic extraction over
// an OpenAI-compatible chat completions API.
package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

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
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-4o-mini"
	DefaultTimeout = 120 * time.Second
)

// Config holds configuration for the OpenAI service.
type Config struct {
	// APIKey is the API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.openai.com/v1).
	// Can be changed for Azure OpenAI or compatible APIs.
	BaseURL string

	// Model must accept image input (default: gpt-4o-mini).
	Model string

	// Timeout is the HTTP client timeout (default: 120s).
	Timeout time.Duration
}

// Service calls /chat/completions with image or file content parts.
type Service struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
}

// chatRequest is the /chat/completions request format.
type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    float64        `json:"temperature"`
	ResponseFormat map[string]any `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
	File     *filePart `json:"file,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type filePart struct {
	Filename string `json:"filename"`
	FileData string `json:"file_data"`
}

// New creates a Service.
func New(cfg Config) (*Service, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: openai: API key is required", domain.ErrServiceNotConfigured)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Service{
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
	}, nil
}

// Name returns "openai".
func (s *Service) Name() string {
	return "openai"
}

// Recognize transcribes the text of one image.
func (s *Service) Recognize(ctx context.Context, image []byte, mimeType string) (*driven.RecognitionResult, error) {
	if len(image) == 0 {
		return nil, fmt.Errorf("%w: empty image", domain.ErrInvalidInput)
	}
	parts := []contentPart{
		{Type: "text", Text: recognition.RecognitionPrompt},
		{Type: "image_url", ImageURL: &imageURL{URL: dataURL(mimeType, image)}},
	}
	reply, err := s.complete(ctx, parts, false)
	if err != nil {
		return nil, err
	}
	return &driven.RecognitionResult{Text: strings.TrimSpace(reply)}, nil
}

// Extract sends a whole document (or page) and parses the JSON reply.
// Images go as image parts, PDFs as file parts and text inline.
func (s *Service) Extract(ctx context.Context, req driven.SemanticRequest) (*driven.SemanticResult, error) {
	if len(req.Content) == 0 {
		return nil, fmt.Errorf("%w: empty document", domain.ErrInvalidInput)
	}

	parts := []contentPart{{Type: "text", Text: recognition.SemanticPrompt(req.Groups)}}
	switch base := strings.ToLower(strings.TrimSpace(strings.Split(req.MIMEType, ";")[0])); {
	case strings.HasPrefix(base, "image/"):
		parts = append(parts, contentPart{Type: "image_url", ImageURL: &imageURL{URL: dataURL(base, req.Content)}})
	case strings.HasPrefix(base, "text/"):
		parts = append(parts, contentPart{Type: "text", Text: string(req.Content)})
	default:
		parts = append(parts, contentPart{Type: "file", File: &filePart{
			Filename: req.Filename,
			FileData: dataURL(base, req.Content),
		}})
	}

	reply, err := s.complete(ctx, parts, true)
	if err != nil {
		return nil, err
	}
	return recognition.ParseSemanticReply(reply), nil
}

func (s *Service) complete(ctx context.Context, parts []contentPart, jsonReply bool) (string, error) {
	reqBody := chatRequest{
		Model:    s.model,
		Messages: []chatMessage{{Role: "user", Content: parts}},
	}
	if jsonReply {
		reqBody.ResponseFormat = map[string]any{"type": "json_object"}
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", recognition.ClassifyTransport(s.Name(), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", recognition.ClassifyTransport(s.Name(), err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := gjson.GetBytes(body, "error.message").String()
		if msg == "" {
			msg = strings.TrimSpace(string(body))
		}
		// 429 insufficient_quota is a spent balance; any other 429 is a rate limit.
		if resp.StatusCode == http.StatusTooManyRequests && gjson.GetBytes(body, "error.code").String() != "insufficient_quota" {
			return "", fmt.Errorf("%w: %s: rate limited: %s", domain.ErrServiceUnavailable, s.Name(), msg)
		}
		return "", recognition.ClassifyStatus(s.Name(), resp.StatusCode, msg)
	}

	content := gjson.GetBytes(body, "choices.0.message.content")
	if !content.Exists() {
		return "", errors.New("openai: no response choices returned")
	}
	return content.String(), nil
}

func dataURL(mimeType string, data []byte) string {
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
