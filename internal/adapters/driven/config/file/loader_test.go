package file

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tally/internal/core/domain"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(newStore(t, ""))

	require.NoError(t, err)
	assert.Equal(t, domain.DefaultConfig(), cfg)
}

func TestLoadConfig_Overrides(t *testing.T) {
	store := newStore(t, `
[pipeline]
mode = "Semantic"
workers = 2

[retry]
max_attempts = 5
initial_backoff = "1s"

[watch]
dir = "inbox"
quiet_period = "5s"
archive = false

[ocr]
languages = "vie"
max_local_pages = 20

[match]
fold_diacritics = false
flexible_separators = false

[vision]
provider = "openai"
requests_per_second = 0.5

[semantic]
model = "gemini-2.5-pro"
max_document_bytes = 1024

[drive]
folder_id = "folder-1"

[report]
dir = "out"

[storage]
jobs_db = "jobs.db"
`)

	cfg, err := LoadConfig(store)
	require.NoError(t, err)

	assert.Equal(t, domain.ModeSemantic, cfg.Mode)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Retry.InitialBackoff)
	assert.Equal(t, 8*time.Second, cfg.Retry.MaxBackoff)
	assert.Equal(t, "inbox", cfg.Watch.Dir)
	assert.Equal(t, 5*time.Second, cfg.Watch.QuietPeriod)
	assert.False(t, cfg.Watch.Archive)
	assert.Equal(t, "vie", cfg.OCR.Languages)
	assert.Equal(t, 20, cfg.OCR.MaxLocalPages)
	assert.Equal(t, 200, cfg.OCR.DPI)
	assert.False(t, cfg.Match.FoldDiacritics)
	assert.False(t, cfg.Match.FlexibleSeparators)

	assert.Equal(t, domain.ProviderOpenAI, cfg.Vision.Provider)
	assert.Empty(t, cfg.Vision.Model)
	assert.Equal(t, 0.5, cfg.Vision.RequestsPerSecond)
	assert.Equal(t, 256, cfg.Vision.CacheSize)

	assert.Equal(t, domain.ProviderGemini, cfg.Semantic.Provider)
	assert.Equal(t, "gemini-2.5-pro", cfg.Semantic.Model)
	assert.Equal(t, 1024, cfg.Semantic.MaxDocumentBytes)

	assert.Equal(t, "folder-1", cfg.Drive.FolderID)
	assert.Equal(t, time.Minute, cfg.Drive.PollInterval)
	assert.Equal(t, "out", cfg.ReportDir)
	assert.Equal(t, "jobs.db", cfg.JobsDB)
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		target  error
	}{
		{"bad mode", "[pipeline]\nmode = \"hybrid\"\n", domain.ErrInvalidMode},
		{"bad duration", "[watch]\nquiet_period = \"later\"\n", domain.ErrInvalidConfig},
		{"zero workers", "[pipeline]\nworkers = 0\n", domain.ErrInvalidConfig},
		{"unknown provider", "[vision]\nprovider = \"acme\"\n", domain.ErrInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(newStore(t, tt.content))
			assert.ErrorIs(t, err, tt.target)
		})
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvGeminiKey:  "gemini-key",
		EnvOpenAIKey:  "openai-key",
		EnvDriveToken: "drive-token",
	}
	getenv := func(k string) string { return env[k] }

	cfg := domain.DefaultConfig()
	cfg.Vision.Provider = domain.ProviderOpenAI
	ApplyEnv(&cfg, getenv)
	assert.Equal(t, "openai-key", cfg.Vision.APIKey)
	assert.Equal(t, "gemini-key", cfg.Semantic.APIKey)
	assert.Equal(t, "drive-token", cfg.Drive.Token)

	env[EnvVisionKey] = "vision-key"
	cfg = domain.DefaultConfig()
	cfg.Semantic.APIKey = "from-file"
	ApplyEnv(&cfg, getenv)
	assert.Equal(t, "vision-key", cfg.Vision.APIKey)
	assert.Equal(t, "from-file", cfg.Semantic.APIKey)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("TALLY_TEST_DOTENV=loaded\n"), 0600))
	t.Setenv("TALLY_TEST_DOTENV_KEEP", "original")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "keep.env"), []byte("TALLY_TEST_DOTENV_KEEP=replaced\n"), 0600))
	t.Cleanup(func() { _ = os.Unsetenv("TALLY_TEST_DOTENV") })

	require.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env"), path, filepath.Join(dir, "keep.env")))

	assert.Equal(t, "loaded", os.Getenv("TALLY_TEST_DOTENV"))
	assert.Equal(t, "original", os.Getenv("TALLY_TEST_DOTENV_KEEP"))
}
