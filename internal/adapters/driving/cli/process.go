package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/tally/internal/connectors/filesystem"
	"github.com/custodia-labs/tally/internal/connectors/web"
	"github.com/custodia-labs/tally/internal/core/domain"
	"github.com/custodia-labs/tally/internal/core/ports/driving"
	"github.com/custodia-labs/tally/internal/logger"
)

var (
	osFS = afero.NewOsFs()
	now  = time.Now
)

var processCmd = &cobra.Command{
	Use:   "process [file|dir]...",
	Short: "Count keyword groups in a batch of documents",
	Long: `Extracts text from every given file, every supported file directly
inside a given directory, and every --url, then counts the taxonomy's
keyword groups and writes an XLSX report.

Interrupting the run with Ctrl-C stops new documents from starting; the
report then covers what finished and is marked partial. A file or URL
that cannot be read is reported as failed and also marks the report
partial; the other documents are still counted.

Examples:
  tally process -t keywords.csv reports/q1.pdf reports/q2.docx
  tally process -t keywords.xlsx --mode vision scans/
  tally process -t keywords.csv --url https://example.com/press --json`,
	RunE: runProcess,
}

func init() {
	f := processCmd.Flags()
	f.StringP("taxonomy", "t", "", "taxonomy file (.csv, .xlsx, .txt or .md)")
	f.StringP("mode", "m", "", "extraction mode: local, vision or semantic (default from config)")
	f.StringSlice("url", nil, "web page to fetch and include (repeatable)")
	f.StringP("out", "o", "", "report directory (default from config)")
	f.Bool("json", false, "print the count matrix as JSON instead of a table")
	f.Bool("no-report", false, "skip writing the XLSX report")
	rootCmd.AddCommand(processCmd)
}

func runProcess(cmd *cobra.Command, args []string) error {
	taxPath, _ := cmd.Flags().GetString("taxonomy")
	modeFlag, _ := cmd.Flags().GetString("mode")
	urls, _ := cmd.Flags().GetStringSlice("url")
	outDir, _ := cmd.Flags().GetString("out")
	asJSON, _ := cmd.Flags().GetBool("json")
	noReport, _ := cmd.Flags().GetBool("no-report")

	if len(args) == 0 && len(urls) == 0 {
		return errors.New("nothing to process: give files, directories or --url")
	}

	mode := appConfig.Mode
	if modeFlag != "" {
		m, err := domain.ParseMode(modeFlag)
		if err != nil {
			return err
		}
		mode = m
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, appConfig)
	if err != nil {
		return err
	}
	tax, err := a.loadTaxonomy(taxPath)
	if err != nil {
		return err
	}

	docs, unloaded, err := collectDocuments(ctx, args, urls)
	if err != nil {
		return err
	}

	result, err := a.processor.Process(ctx, driving.ProcessRequest{
		Mode:      mode,
		Taxonomy:  tax,
		Documents: docs,
		Unloaded:  unloaded,
	})
	if err != nil {
		return err
	}

	if !noReport {
		path, err := a.writeReport(context.WithoutCancel(ctx), outDir, result.Artifact, result.Report)
		if err != nil {
			return err
		}
		logger.Info("report written to %s", path)
		if !asJSON {
			cmd.Printf("Report: %s\n", path)
		}
	}

	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(newMatrixJSON(result.Report)); err != nil {
			return err
		}
	} else {
		printSummary(cmd.OutOrStdout(), result.Report)
	}

	switch {
	case ctx.Err() != nil:
		return errors.New("run interrupted; report is partial")
	case len(unloaded) > 0:
		return fmt.Errorf("%d input(s) could not be loaded; report is partial", len(unloaded))
	}
	return nil
}

// collectDocuments reads every file argument, every file directly inside
// a directory argument, and every URL. A path that does not exist is an
// error; a file or URL that cannot be read becomes an unloaded outcome so
// the rest of the batch still runs.
func collectDocuments(ctx context.Context, paths, urls []string) ([]domain.Document, []domain.DocumentOutcome, error) {
	var (
		docs     []domain.Document
		unloaded []domain.DocumentOutcome
	)
	load := func(src *filesystem.Source, path string) {
		doc, err := src.Load(ctx, path)
		if err != nil {
			logger.Warn("skipping %s: %v", path, err)
			unloaded = append(unloaded, domain.DocumentOutcome{SourceID: path, Filename: filepath.Base(path), Reason: err.Error()})
			return
		}
		docs = append(docs, *doc)
	}

	for _, p := range paths {
		info, err := osFS.Stat(p)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %s", domain.ErrNotFound, p)
		}
		if !info.IsDir() {
			load(filesystem.NewSource(osFS, filepath.Dir(p)), p)
			continue
		}
		src := filesystem.NewSource(osFS, p)
		src.SetArchive(false)
		ids, err := src.PendingIDs(ctx)
		if err != nil {
			return nil, nil, err
		}
		for _, id := range ids {
			load(src, id)
		}
	}

	if len(urls) > 0 {
		fetcher := web.New()
		for _, u := range urls {
			doc, err := fetcher.Fetch(ctx, u)
			if err != nil {
				if ctx.Err() != nil {
					return nil, nil, ctx.Err()
				}
				logger.Warn("skipping %s: %v", u, err)
				unloaded = append(unloaded, domain.DocumentOutcome{SourceID: u, Filename: web.PageName(u), Reason: err.Error()})
				continue
			}
			docs = append(docs, *doc)
		}
	}
	return docs, unloaded, nil
}
