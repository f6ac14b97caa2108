package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/tally/internal/adapters/driven/config/file"
	"github.com/custodia-labs/tally/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/tally/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/tally/internal/adapters/driving/mcp"
	"github.com/custodia-labs/tally/internal/connectors/filesystem"
	"github.com/custodia-labs/tally/internal/connectors/google"
	"github.com/custodia-labs/tally/internal/connectors/google/drive"
	"github.com/custodia-labs/tally/internal/core/domain"
	"github.com/custodia-labs/tally/internal/core/ports/driven"
	"github.com/custodia-labs/tally/internal/core/services"
	"github.com/custodia-labs/tally/internal/logger"
)

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Process documents as they arrive in a drop directory",
	Long: `Watches a drop directory, or a Google Drive folder with --drive-folder,
and processes each file once it has stopped changing. Files already
present are processed at start. Job state is kept in storage.jobs_db when
set, so queued jobs survive a restart.

On Ctrl-C the watcher stops, running documents finish or requeue, and a
report covering every processed document is written.

Examples:
  tally watch -t keywords.csv ./inbox
  tally watch -t keywords.csv ./inbox --metrics-addr :9090
  TALLY_DRIVE_TOKEN=$(gcloud auth print-access-token) \
    tally watch -t keywords.csv --drive-folder 1AbCdEf`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

func init() {
	f := watchCmd.Flags()
	f.StringP("taxonomy", "t", "", "taxonomy file (.csv, .xlsx, .txt or .md)")
	f.StringP("mode", "m", "", "extraction mode: local, vision or semantic (default from config)")
	f.StringP("out", "o", "", "report directory (default from config)")
	f.String("drive-folder", "", "Google Drive folder id to poll instead of a directory")
	f.String("metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")
	f.Int("mcp-port", 0, "also serve MCP over HTTP on this port (0 = off)")
	rootCmd.AddCommand(watchCmd)
}

// watchSource is a source the coordinator can both list and load from.
type watchSource interface {
	driven.FileSource
	driven.DocumentLoader
}

func runWatch(cmd *cobra.Command, args []string) error {
	taxPath, _ := cmd.Flags().GetString("taxonomy")
	modeFlag, _ := cmd.Flags().GetString("mode")
	outDir, _ := cmd.Flags().GetString("out")
	folder, _ := cmd.Flags().GetString("drive-folder")
	metricsAddr, _ := cmd.Flags().GetString("metrics-addr")
	mcpPort, _ := cmd.Flags().GetInt("mcp-port")

	cfg := appConfig
	if len(args) > 0 {
		cfg.Watch.Dir = args[0]
	}
	if folder != "" {
		cfg.Drive.FolderID = folder
	}
	if modeFlag != "" {
		m, err := domain.ParseMode(modeFlag)
		if err != nil {
			return err
		}
		cfg.Mode = m
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	tax, err := a.loadTaxonomy(taxPath)
	if err != nil {
		return err
	}

	jobs, err := openJobStore(cfg.JobsDB)
	if err != nil {
		return err
	}
	defer jobs.Close()

	src, watcher, where, err := openSource(ctx, cfg)
	if err != nil {
		return err
	}

	coord := services.NewCoordinator(services.CoordinatorConfig{
		Source:      src,
		Loader:      src,
		Watcher:     watcher,
		Jobs:        jobs,
		Processor:   a.processor,
		Metrics:     a.metrics,
		Taxonomy:    tax,
		Mode:        cfg.Mode,
		Workers:     cfg.Watch.Workers,
		MaxAttempts: cfg.Watch.MaxAttempts,
		Retry:       cfg.Retry,
	})
	if err := coord.Start(ctx); err != nil {
		return err
	}
	cmd.Printf("Watching %s in %s mode. Press Ctrl-C to stop.\n", where, cfg.Mode)

	g, gctx := errgroup.WithContext(ctx)
	if metricsAddr != "" {
		g.Go(func() error {
			return serveMetrics(gctx, metricsAddr, a.metrics.Handler())
		})
		cmd.Printf("Metrics on http://%s/metrics\n", displayAddr(metricsAddr))
	}
	if mcpPort > 0 {
		server, err := mcp.NewServer(&mcp.Ports{
			Processor:   a.processor,
			Taxonomy:    a.taxonomy,
			Ingestion:   coord,
			DefaultMode: cfg.Mode,
		})
		if err != nil {
			_ = coord.Stop()
			return err
		}
		addr := fmt.Sprintf(":%d", mcpPort)
		g.Go(func() error {
			return server.RunHTTP(gctx, addr)
		})
		cmd.Printf("MCP server listening on http://localhost%s\n", addr)
	}
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})
	runErr := g.Wait()

	if err := coord.Stop(); err != nil {
		logger.Warn("stop ingestion: %v", err)
	}

	r := coord.Report()
	if len(r.Documents) == 0 {
		cmd.Println("No documents processed.")
		return runErr
	}
	path, err := a.writeReport(context.WithoutCancel(ctx), outDir, nil, r)
	if err != nil {
		return errors.Join(runErr, err)
	}
	printSummary(cmd.OutOrStdout(), r)
	cmd.Printf("Report: %s\n", path)
	return runErr
}

// openJobStore returns the sqlite store at path, or an in-memory store
// when path is empty.
func openJobStore(path string) (driven.JobStore, error) {
	if path == "" {
		return memory.NewJobStore(), nil
	}
	store, err := sqlite.NewStore(path)
	if err != nil {
		return nil, fmt.Errorf("open job store: %w", err)
	}
	return store, nil
}

// openSource picks the Drive folder when one is configured and the drop
// directory otherwise. It also returns a description for the banner.
func openSource(ctx context.Context, cfg domain.Config) (watchSource, driven.FileWatcher, string, error) {
	if cfg.Drive.FolderID != "" {
		if cfg.Drive.Token == "" {
			return nil, nil, "", fmt.Errorf("%w: drive watching needs a token in drive.token or $%s",
				domain.ErrServiceNotConfigured, file.EnvDriveToken)
		}
		svc, err := google.NewDriveService(ctx, google.StaticTokenSource(cfg.Drive.Token))
		if err != nil {
			return nil, nil, "", fmt.Errorf("create drive client: %w", err)
		}
		src := drive.NewSource(svc, drive.DefaultConfig(cfg.Drive.FolderID), google.NewRateLimiter(0, 0))
		return src, drive.NewPoller(src, cfg.Drive.PollInterval), "drive folder " + cfg.Drive.FolderID, nil
	}

	if cfg.Watch.Dir == "" {
		return nil, nil, "", fmt.Errorf("%w: give a directory to watch or set watch.dir", domain.ErrInvalidInput)
	}
	info, err := osFS.Stat(cfg.Watch.Dir)
	if err != nil || !info.IsDir() {
		return nil, nil, "", fmt.Errorf("%w: %s is not a directory", domain.ErrInvalidInput, cfg.Watch.Dir)
	}
	src := filesystem.NewSource(osFS, cfg.Watch.Dir)
	src.SetArchive(cfg.Watch.Archive)
	return src, filesystem.NewWatcher(cfg.Watch.Dir, cfg.Watch.QuietPeriod, cfg.Watch.MaxWait), src.Dir(), nil
}

// serveMetrics serves handler on /metrics until ctx is done.
func serveMetrics(ctx context.Context, addr string, handler http.Handler) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		server.Shutdown(context.Background()) //nolint:errcheck
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}

func displayAddr(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}
