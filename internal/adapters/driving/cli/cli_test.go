package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tally/internal/adapters/driven/config/file"
	"github.com/custodia-labs/tally/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/tally/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/tally/internal/core/domain"
)

const taxonomyCSV = "esg,green bond,sustainable\nfin,bond fund\n"

// resetFlags puts every flag of cmd and its children back to its default.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// execute runs the root command with an isolated config and env file.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	for _, k := range []string{file.EnvGeminiKey, file.EnvOpenAIKey, file.EnvVisionKey, file.EnvSemanticKey, file.EnvDriveToken} {
		t.Setenv(k, "")
	}

	dir := t.TempDir()
	base := []string{
		"--config", filepath.Join(dir, "config.toml"),
		"--env-file", filepath.Join(dir, ".env"),
	}
	return executeRaw(t, append(base, args...)...)
}

func executeRaw(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	out := new(bytes.Buffer)
	rootCmd.SetOut(out)
	rootCmd.SetErr(new(bytes.Buffer))
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		appConfig = domain.DefaultConfig()
	}()

	err := rootCmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRootCmd_Subcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"process", "watch", "taxonomy", "mcp", "version"} {
		assert.True(t, names[want], want)
	}
}

func TestSetup_AppliesConfigAndEnv(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "config.toml", `
[pipeline]
workers = 7

[vision]
provider = "openai"
`)
	t.Setenv(file.EnvVisionKey, "")
	t.Setenv(file.EnvOpenAIKey, "sk-test")

	resetFlags(rootCmd)
	rootCmd.SetArgs([]string{"--config", cfgPath, "--env-file", filepath.Join(dir, "missing.env"), "version"})
	rootCmd.SetOut(new(bytes.Buffer))
	defer func() {
		rootCmd.SetArgs(nil)
		appConfig = domain.DefaultConfig()
	}()

	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, 7, appConfig.Workers)
	assert.Equal(t, domain.ProviderOpenAI, appConfig.Vision.Provider)
	assert.Equal(t, "sk-test", appConfig.Vision.APIKey)
}

func TestSetup_DotEnv(t *testing.T) {
	dir := t.TempDir()
	envPath := writeFile(t, dir, ".env", "TALLY_VISION_API_KEY=from-dotenv\n")
	t.Setenv(file.EnvVisionKey, "")
	// godotenv leaves variables that are already set; clear it for the load.
	require.NoError(t, os.Unsetenv(file.EnvVisionKey))

	_, err := executeRaw(t, "--config", filepath.Join(dir, "config.toml"), "--env-file", envPath, "taxonomy", "check",
		writeFile(t, dir, "tax.csv", taxonomyCSV))
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", os.Getenv(file.EnvVisionKey))
}

func TestSetup_InvalidConfig(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "config.toml", "[pipeline]\nmode = \"fast\"\n")

	_, err := executeRaw(t, "--config", cfgPath, "--env-file", filepath.Join(dir, ".env"), "version")
	assert.ErrorIs(t, err, domain.ErrInvalidMode)
}

func TestTaxonomyCheck(t *testing.T) {
	path := writeFile(t, t.TempDir(), "tax.csv", taxonomyCSV)

	out, err := execute(t, "taxonomy", "check", path)
	require.NoError(t, err)
	assert.Contains(t, out, "esg: green bond, sustainable")
	assert.Contains(t, out, "fin: bond fund")
	assert.Contains(t, out, "2 group(s), 3 variant(s)")
}

func TestTaxonomyCheck_JSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "tax.csv", taxonomyCSV)

	out, err := execute(t, "taxonomy", "check", "--json", path)
	require.NoError(t, err)

	var groups []groupJSON
	require.NoError(t, json.Unmarshal([]byte(out), &groups))
	require.Len(t, groups, 2)
	assert.Equal(t, groupJSON{ID: "esg", Variants: []string{"green bond", "sustainable"}}, groups[0])
}

func TestTaxonomyCheck_Invalid(t *testing.T) {
	path := writeFile(t, t.TempDir(), "tax.csv", "esg,green\nesg,bond\n")

	_, err := execute(t, "taxonomy", "check", path)
	assert.ErrorIs(t, err, domain.ErrTaxonomyInvalid)
}

func TestProcess_JSON(t *testing.T) {
	tax := writeFile(t, t.TempDir(), "tax.csv", taxonomyCSV)
	docs := t.TempDir()
	a := writeFile(t, docs, "a.txt", "Green bond issuance grew. Another green bond and a bond fund.\n")
	b := writeFile(t, docs, "b.txt", "Nothing relevant here.\n")
	outDir := t.TempDir()

	out, err := execute(t, "process", "-t", tax, "--out", outDir, "--json", a, b)
	require.NoError(t, err)

	var got matrixJSON
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "local", got.Mode)
	assert.Equal(t, []string{"esg", "fin"}, got.Groups)
	require.Len(t, got.Documents, 2)

	assert.Equal(t, "a.txt", got.Documents[0].Filename)
	assert.Equal(t, string(domain.StatusSucceeded), got.Documents[0].Status)
	assert.Equal(t, 2, got.Documents[0].Counts["esg"])
	assert.Equal(t, 1, got.Documents[0].Counts["fin"])
	assert.Equal(t, 3, got.Documents[0].Total)
	assert.Zero(t, got.Documents[1].Total)

	assert.Equal(t, map[string]int{"esg": 2, "fin": 1}, got.GroupTotals)
	assert.Equal(t, 3, got.GrandTotal)
	assert.False(t, got.Partial)

	reports, err := filepath.Glob(filepath.Join(outDir, "analysis_report_*.xlsx"))
	require.NoError(t, err)
	assert.Len(t, reports, 1)
}

func TestProcess_DirectoryTable(t *testing.T) {
	tax := writeFile(t, t.TempDir(), "tax.csv", taxonomyCSV)
	docs := t.TempDir()
	writeFile(t, docs, "a.txt", "A sustainable green bond.\n")
	writeFile(t, docs, "b.txt", "A bond fund.\n")

	out, err := execute(t, "process", "-t", tax, "--no-report", docs)
	require.NoError(t, err)
	assert.Contains(t, out, "2 document(s), 2 group(s), mode local")
	assert.Contains(t, out, "a.txt")
	assert.Contains(t, out, "b.txt")
	assert.Contains(t, out, "Total")
	assert.NotContains(t, out, "Report:")

	entries, err := os.ReadDir(docs)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "process never archives input files")
}

func TestProcess_SeparatorVariantsByDefault(t *testing.T) {
	tax := writeFile(t, t.TempDir(), "tax.csv", taxonomyCSV)
	doc := writeFile(t, t.TempDir(), "a.txt", "Green-bond and greenbond deals, plus a green_bond.\n")

	out, err := execute(t, "process", "-t", tax, "--no-report", "--json", doc)
	require.NoError(t, err)

	var got matrixJSON
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got.Documents, 1)
	assert.Equal(t, 3, got.Documents[0].Counts["esg"])
}

func badGateway(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)
	return srv.URL + "/press"
}

func TestCollectDocuments_KeepsSiblingsOfFailedURL(t *testing.T) {
	good := writeFile(t, t.TempDir(), "a.txt", "green bond")
	down := badGateway(t)

	docs, unloaded, err := collectDocuments(context.Background(), []string{good}, []string{down})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "a.txt", docs[0].Filename)

	require.Len(t, unloaded, 1)
	assert.Equal(t, down, unloaded[0].SourceID)
	assert.NotEmpty(t, unloaded[0].Filename)
	assert.Contains(t, unloaded[0].Reason, "502")
}

func TestProcess_FailedURLIsReported(t *testing.T) {
	tax := writeFile(t, t.TempDir(), "tax.csv", taxonomyCSV)
	good := writeFile(t, t.TempDir(), "a.txt", "A green bond.\n")
	outDir := t.TempDir()

	out, err := execute(t, "process", "-t", tax, "--out", outDir, "--json", "--url", badGateway(t), good)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "could not be loaded")

	var got matrixJSON
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got.Documents, 2)
	assert.Equal(t, "a.txt", got.Documents[0].Filename)
	assert.Equal(t, 1, got.Documents[0].Counts["esg"])
	assert.Equal(t, string(domain.StatusFailed), got.Documents[1].Status)
	assert.Contains(t, got.Documents[1].Reason, "502")
	assert.True(t, got.Partial)
	assert.Equal(t, 1, got.GrandTotal)

	reports, err := filepath.Glob(filepath.Join(outDir, "analysis_report_*.xlsx"))
	require.NoError(t, err)
	assert.Len(t, reports, 1)
}

func TestProcess_Errors(t *testing.T) {
	tax := writeFile(t, t.TempDir(), "tax.csv", taxonomyCSV)
	doc := writeFile(t, t.TempDir(), "a.txt", "green bond")

	tests := []struct {
		name string
		args []string
		want error
	}{
		{"invalid mode", []string{"process", "-t", tax, "-m", "fast", doc}, domain.ErrInvalidMode},
		{"missing taxonomy", []string{"process", doc}, domain.ErrInvalidInput},
		{"missing file", []string{"process", "-t", tax, filepath.Join(t.TempDir(), "nope.pdf")}, domain.ErrNotFound},
		{"vision without key", []string{"process", "-t", tax, "-m", "vision", "--no-report", doc}, domain.ErrServiceNotConfigured},
		{"semantic without key", []string{"process", "-t", tax, "-m", "semantic", "--no-report", doc}, domain.ErrServiceNotConfigured},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestProcess_NothingToDo(t *testing.T) {
	tax := writeFile(t, t.TempDir(), "tax.csv", taxonomyCSV)

	_, err := execute(t, "process", "-t", tax)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nothing to process")
}

func TestWatch_NeedsSource(t *testing.T) {
	tax := writeFile(t, t.TempDir(), "tax.csv", taxonomyCSV)

	_, err := execute(t, "watch", "-t", tax)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = execute(t, "watch", "-t", tax, filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = execute(t, "watch", "-t", tax, "--drive-folder", "folder-1")
	assert.ErrorIs(t, err, domain.ErrServiceNotConfigured)
}

func TestOpenJobStore(t *testing.T) {
	store, err := openJobStore("")
	require.NoError(t, err)
	assert.IsType(t, &memory.JobStore{}, store)
	require.NoError(t, store.Close())

	store, err = openJobStore(filepath.Join(t.TempDir(), "jobs.db"))
	require.NoError(t, err)
	assert.IsType(t, &sqlite.Store{}, store)
	require.NoError(t, store.Close())
}

func TestDisplayAddr(t *testing.T) {
	assert.Equal(t, "localhost:9090", displayAddr(":9090"))
	assert.Equal(t, "0.0.0.0:9090", displayAddr("0.0.0.0:9090"))
}
