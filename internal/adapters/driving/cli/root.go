// Package cli provides the tally command-line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/tally/internal/adapters/driven/config/file"
	"github.com/custodia-labs/tally/internal/core/domain"
	"github.com/custodia-labs/tally/internal/logger"
)

// version is set at build time via ldflags.
var version = "dev"

// Persistent flag values.
var (
	configPath string
	envFile    string
	verbose    bool
	logFormat  string
)

// appConfig is the configuration resolved before each command runs.
var appConfig = domain.DefaultConfig()

var rootCmd = &cobra.Command{
	Use:   "tally",
	Short: "Count keyword groups across business documents",
	Long: `tally extracts text from PDF, DOCX, HTML, plain-text and image files,
counts how often each keyword group of a taxonomy occurs in every document,
and writes the count matrix as an XLSX report.

Text comes from the document's own text layer where one exists. Scanned
pages go through OCR in one of three modes:
  local     offline tesseract (default)
  vision    a text-recognition service, falling back to tesseract
  semantic  whole-document extraction by a language model`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "config file (default ~/.tally/config.toml)")
	pf.StringVar(&envFile, "env-file", ".env", "dotenv file with API keys")
	pf.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	pf.StringVar(&logFormat, "log-format", "text", "log format: text or json")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion overrides the reported version.
func SetVersion(v string) {
	version = v
}

// setup configures logging and resolves appConfig from the config file,
// the dotenv file and the environment.
func setup(_ *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)
	logger.SetFormat(logFormat)

	if err := file.LoadDotEnv(envFile); err != nil {
		return err
	}

	store, err := file.NewConfigStore(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg, err := file.LoadConfig(store)
	if err != nil {
		return err
	}
	file.ApplyEnv(&cfg, os.Getenv)

	logger.Debug("config loaded from %s", store.Path())
	appConfig = cfg
	return nil
}
