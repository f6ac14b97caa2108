package domain

import (
	"fmt"
	"strings"
)

// ExtractionMode selects the OCR strategy for a whole run.
// Modes are never mixed within one run.
type ExtractionMode string

const (
	// ModeLocal uses the offline OCR engine.
	ModeLocal ExtractionMode = "local"

	// ModeVision sends page images to a text-recognition service.
	ModeVision ExtractionMode = "vision"

	// ModeSemantic sends whole documents to a semantic extraction service.
	ModeSemantic ExtractionMode = "semantic"
)

// Modes lists every supported extraction mode.
func Modes() []ExtractionMode {
	return []ExtractionMode{ModeLocal, ModeVision, ModeSemantic}
}

// ParseMode converts a user-supplied string into an ExtractionMode.
func ParseMode(s string) (ExtractionMode, error) {
	m := ExtractionMode(strings.ToLower(strings.TrimSpace(s)))
	switch m {
	case ModeLocal, ModeVision, ModeSemantic:
		return m, nil
	case "":
		return ModeLocal, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}

// String returns the mode name.
func (m ExtractionMode) String() string {
	return string(m)
}

// Description returns a human-readable description of the mode.
func (m ExtractionMode) Description() string {
	switch m {
	case ModeLocal:
		return "Local (offline OCR engine)"
	case ModeVision:
		return "Vision (text-recognition service, local fallback)"
	case ModeSemantic:
		return "Semantic (whole-document LLM extraction)"
	default:
		return "Unknown"
	}
}

// ServiceProvider identifies an external recognition/extraction backend.
type ServiceProvider string

// Available service providers.
const (
	// ProviderGemini is Google's Gemini API.
	ProviderGemini ServiceProvider = "gemini"

	// ProviderOpenAI is any OpenAI-compatible chat completions API.
	ProviderOpenAI ServiceProvider = "openai"
)

// IsValid returns true if the provider is recognised.
func (p ServiceProvider) IsValid() bool {
	return p == ProviderGemini || p == ProviderOpenAI
}
