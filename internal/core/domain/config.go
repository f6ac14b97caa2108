package domain

import (
	"fmt"
	"time"
)

// RetryPolicy bounds attempts at an external-service call.
// Only ErrServiceUnavailable failures are retried.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// InitialBackoff is the wait before the second attempt; it doubles each time.
	InitialBackoff time.Duration

	// MaxBackoff caps a single wait.
	MaxBackoff time.Duration

	// CallTimeout bounds each individual attempt.
	CallTimeout time.Duration
}

// WatchConfig tunes the ingestion coordinator.
type WatchConfig struct {
	// Dir is the drop directory.
	Dir string

	// QuietPeriod is how long a file must stay unmodified before it is enqueued.
	QuietPeriod time.Duration

	// MaxWait forces an enqueue for a file that keeps changing.
	MaxWait time.Duration

	// Workers is the size of the job worker pool.
	Workers int

	// MaxAttempts is the number of attempts per job before it fails.
	MaxAttempts int

	// Archive moves acknowledged files out of the drop directory.
	Archive bool
}

// OCRConfig tunes the local OCR engine and page rasteriser.
type OCRConfig struct {
	// TesseractPath is the tesseract binary, looked up on PATH when bare.
	TesseractPath string

	// PdftoppmPath is the pdftoppm binary used to rasterise scanned pages.
	PdftoppmPath string

	// Languages is the tesseract language spec, e.g. "vie+eng".
	Languages string

	// DPI is the rasterisation resolution.
	DPI int

	// MaxLocalPages caps rasterised pages per document. Zero means no cap.
	MaxLocalPages int
}

// MatchOptions tunes the keyword matcher.
type MatchOptions struct {
	// FoldDiacritics compares text and variants with diacritics removed.
	FoldDiacritics bool

	// FlexibleSeparators lets a space in a variant also match '-', '_', '.' or nothing.
	FlexibleSeparators bool
}

// ServiceConfig configures one external service.
type ServiceConfig struct {
	// Provider selects the backend.
	Provider ServiceProvider

	// APIKey authenticates requests.
	APIKey string

	// Model is the model name.
	Model string

	// BaseURL overrides the provider endpoint.
	BaseURL string

	// RequestsPerSecond limits the call rate. Zero disables limiting.
	RequestsPerSecond float64

	// MaxDocumentBytes is the largest document sent whole. Larger documents go page by page.
	MaxDocumentBytes int

	// CacheSize is the number of cached recognition results. Zero disables caching.
	CacheSize int
}

// DriveConfig points the watcher at a Google Drive folder instead of a
// local directory.
type DriveConfig struct {
	// FolderID is the Drive folder to poll. Empty disables the Drive source.
	FolderID string

	// Token is an OAuth access token with drive scope.
	Token string

	// PollInterval is how often the folder is listed.
	PollInterval time.Duration
}

// Config is the full runtime configuration.
type Config struct {
	// Mode is the default extraction mode.
	Mode ExtractionMode

	// Workers is the number of documents processed in parallel.
	Workers int

	Retry    RetryPolicy
	Watch    WatchConfig
	OCR      OCRConfig
	Match    MatchOptions
	Vision   ServiceConfig
	Semantic ServiceConfig
	Drive    DriveConfig

	// ReportDir is where report artifacts are written.
	ReportDir string

	// JobsDB is the sqlite path for job state. Empty keeps jobs in memory.
	JobsDB string
}

// DefaultRetryPolicy returns 3 attempts with exponential backoff from 500ms.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     8 * time.Second,
		CallTimeout:    60 * time.Second,
	}
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Mode:    ModeLocal,
		Workers: 4,
		Retry:   DefaultRetryPolicy(),
		Watch: WatchConfig{
			QuietPeriod: 2 * time.Second,
			MaxWait:     30 * time.Second,
			Workers:     2,
			MaxAttempts: 3,
			Archive:     true,
		},
		OCR: OCRConfig{
			TesseractPath: "tesseract",
			PdftoppmPath:  "pdftoppm",
			Languages:     "vie+eng",
			DPI:           200,
		},
		Match: MatchOptions{FoldDiacritics: true, FlexibleSeparators: true},
		Vision: ServiceConfig{
			Provider:          ProviderGemini,
			Model:             "gemini-2.5-flash",
			RequestsPerSecond: 2,
			CacheSize:         256,
		},
		Semantic: ServiceConfig{
			Provider:          ProviderGemini,
			Model:             "gemini-2.5-flash",
			RequestsPerSecond: 1,
			MaxDocumentBytes:  20 << 20,
		},
		Drive:     DriveConfig{PollInterval: time.Minute},
		ReportDir: "reports",
	}
}

// Validate checks the values that would make a run meaningless.
func (c Config) Validate() error {
	if _, err := ParseMode(string(c.Mode)); err != nil {
		return err
	}
	if c.Workers < 1 {
		return fmt.Errorf("%w: workers must be at least 1", ErrInvalidConfig)
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("%w: retry.max_attempts must be at least 1", ErrInvalidConfig)
	}
	if c.Retry.InitialBackoff < 0 || c.Retry.MaxBackoff < 0 || c.Retry.CallTimeout < 0 {
		return fmt.Errorf("%w: retry durations must not be negative", ErrInvalidConfig)
	}
	if c.Watch.QuietPeriod <= 0 {
		return fmt.Errorf("%w: watch.quiet_period must be positive", ErrInvalidConfig)
	}
	if c.Watch.Workers < 1 || c.Watch.MaxAttempts < 1 {
		return fmt.Errorf("%w: watch.workers and watch.max_attempts must be at least 1", ErrInvalidConfig)
	}
	if c.OCR.MaxLocalPages < 0 {
		return fmt.Errorf("%w: ocr.max_local_pages must not be negative", ErrInvalidConfig)
	}
	if c.Drive.FolderID != "" && c.Drive.PollInterval <= 0 {
		return fmt.Errorf("%w: drive.poll_interval must be positive", ErrInvalidConfig)
	}
	for name, svc := range map[string]ServiceConfig{"vision": c.Vision, "semantic": c.Semantic} {
		if svc.Provider != "" && !svc.Provider.IsValid() {
			return fmt.Errorf("%w: unknown %s provider %q", ErrInvalidConfig, name, svc.Provider)
		}
	}
	return nil
}
