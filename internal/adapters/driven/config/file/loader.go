package file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/tally/internal/core/domain"
	"github.com/custodia-labs/tally/internal/core/ports/driven"
)

// Environment variables read by ApplyEnv.
const (
	EnvGeminiKey   = "GEMINI_API_KEY"
	EnvOpenAIKey   = "OPENAI_API_KEY"
	EnvVisionKey   = "TALLY_VISION_API_KEY"
	EnvSemanticKey = "TALLY_SEMANTIC_API_KEY"
	EnvDriveToken  = "TALLY_DRIVE_TOKEN"
)

// LoadDotEnv loads KEY=value pairs from each existing file into the
// process environment. Variables already set are left alone.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// LoadConfig maps the store's keys onto domain.DefaultConfig. Keys that
// are absent keep their default. The result is validated.
func LoadConfig(store driven.ConfigStore) (domain.Config, error) {
	cfg := domain.DefaultConfig()
	m := mapper{store: store}

	if v := store.GetString("pipeline.mode"); v != "" {
		mode, err := domain.ParseMode(v)
		if err != nil {
			return cfg, err
		}
		cfg.Mode = mode
	}
	m.int("pipeline.workers", &cfg.Workers)

	m.int("retry.max_attempts", &cfg.Retry.MaxAttempts)
	m.duration("retry.initial_backoff", &cfg.Retry.InitialBackoff)
	m.duration("retry.max_backoff", &cfg.Retry.MaxBackoff)
	m.duration("retry.call_timeout", &cfg.Retry.CallTimeout)

	m.string("watch.dir", &cfg.Watch.Dir)
	m.duration("watch.quiet_period", &cfg.Watch.QuietPeriod)
	m.duration("watch.max_wait", &cfg.Watch.MaxWait)
	m.int("watch.workers", &cfg.Watch.Workers)
	m.int("watch.max_attempts", &cfg.Watch.MaxAttempts)
	m.bool("watch.archive", &cfg.Watch.Archive)

	m.string("ocr.tesseract_path", &cfg.OCR.TesseractPath)
	m.string("ocr.pdftoppm_path", &cfg.OCR.PdftoppmPath)
	m.string("ocr.languages", &cfg.OCR.Languages)
	m.int("ocr.dpi", &cfg.OCR.DPI)
	m.int("ocr.max_local_pages", &cfg.OCR.MaxLocalPages)

	m.bool("match.fold_diacritics", &cfg.Match.FoldDiacritics)
	m.bool("match.flexible_separators", &cfg.Match.FlexibleSeparators)

	m.service("vision", &cfg.Vision)
	m.service("semantic", &cfg.Semantic)

	m.string("drive.folder_id", &cfg.Drive.FolderID)
	m.string("drive.token", &cfg.Drive.Token)
	m.duration("drive.poll_interval", &cfg.Drive.PollInterval)

	m.string("report.dir", &cfg.ReportDir)
	m.string("storage.jobs_db", &cfg.JobsDB)

	if m.err != nil {
		return cfg, m.err
	}
	return cfg, cfg.Validate()
}

// ApplyEnv fills API keys and the Drive token from the environment.
// A key already set in the config file wins. Provider-specific
// variables are used when the generic one is unset.
func ApplyEnv(cfg *domain.Config, getenv func(string) string) {
	if getenv == nil {
		getenv = os.Getenv
	}
	fill := func(svc *domain.ServiceConfig, generic string) {
		if svc.APIKey != "" {
			return
		}
		if v := getenv(generic); v != "" {
			svc.APIKey = v
			return
		}
		switch svc.Provider {
		case domain.ProviderOpenAI:
			svc.APIKey = getenv(EnvOpenAIKey)
		case domain.ProviderGemini, "":
			svc.APIKey = getenv(EnvGeminiKey)
		}
	}
	fill(&cfg.Vision, EnvVisionKey)
	fill(&cfg.Semantic, EnvSemanticKey)

	if cfg.Drive.Token == "" {
		cfg.Drive.Token = getenv(EnvDriveToken)
	}
}

// mapper copies present keys and keeps the first error.
type mapper struct {
	store driven.ConfigStore
	err   error
}

func (m *mapper) has(key string) bool {
	_, ok := m.store.Get(key)
	return ok
}

func (m *mapper) string(key string, dst *string) {
	if m.has(key) {
		*dst = strings.TrimSpace(m.store.GetString(key))
	}
}

func (m *mapper) int(key string, dst *int) {
	if m.has(key) {
		*dst = m.store.GetInt(key)
	}
}

func (m *mapper) float(key string, dst *float64) {
	if m.has(key) {
		*dst = m.store.GetFloat(key)
	}
}

func (m *mapper) bool(key string, dst *bool) {
	if m.has(key) {
		*dst = m.store.GetBool(key)
	}
}

func (m *mapper) duration(key string, dst *time.Duration) {
	d, ok, err := m.store.GetDuration(key)
	if err != nil {
		if m.err == nil {
			m.err = err
		}
		return
	}
	if ok {
		*dst = d
	}
}

func (m *mapper) service(prefix string, svc *domain.ServiceConfig) {
	if v := m.store.GetString(prefix + ".provider"); v != "" {
		p := domain.ServiceProvider(strings.ToLower(strings.TrimSpace(v)))
		if p != svc.Provider {
			// The default model belongs to the default provider.
			svc.Model = ""
		}
		svc.Provider = p
	}
	m.string(prefix+".api_key", &svc.APIKey)
	m.string(prefix+".model", &svc.Model)
	m.string(prefix+".base_url", &svc.BaseURL)
	m.float(prefix+".requests_per_second", &svc.RequestsPerSecond)
	m.int(prefix+".max_document_bytes", &svc.MaxDocumentBytes)
	m.int(prefix+".cache_size", &svc.CacheSize)
}
