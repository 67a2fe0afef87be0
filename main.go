package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/pflag"

	"media-watcher/internal/classify"
	"media-watcher/internal/coordinator"
	"media-watcher/internal/handlers"
	"media-watcher/internal/indexer"
	"media-watcher/internal/ingest"
	"media-watcher/internal/journal"
	"media-watcher/internal/logging"
	"media-watcher/internal/metrics"
	"media-watcher/internal/middleware"
	"media-watcher/internal/publish"
	"media-watcher/internal/site"
	"media-watcher/internal/startup"
	"media-watcher/internal/watcher"
)

const (
	logFileName       = "file_watcher.log"
	collectInterval   = time.Minute
	shutdownTimeout   = 30 * time.Second
	startupGitTimeout = 10 * time.Second
)

func main() {
	startTime := time.Now()

	flags := pflag.NewFlagSet("media-watcher", pflag.ExitOnError)
	configPath := flags.StringP("config", "c", "", "YAML config file (default $CONFIG_FILE)")
	once := flags.Bool("once", false, "scan once, render and publish, then exit")
	showVersion := flags.BoolP("version", "v", false, "print version information and exit")
	_ = flags.Parse(os.Args[1:])

	if *showVersion {
		info := startup.GetBuildInfo()
		fmt.Printf("media-watcher %s (commit %s, built %s, %s %s/%s)\n",
			info.Version, info.Commit, info.BuildTime, info.GoVersion, info.OS, info.Arch)
		return
	}

	config, err := startup.LoadConfig(*configPath)
	if err != nil {
		startup.Fatal(err)
	}

	if path, err := logging.OpenFile(config.LogDir, logFileName); err != nil {
		logging.Warn("Logging to stdout only: %v", err)
	} else {
		logging.Info("  Log file: %s", path)
	}
	defer func() { _ = logging.Close() }()

	metrics.InitializeMetrics()
	metrics.AppInfo.WithLabelValues(startup.Version, startup.Commit, startup.GoVersion).Set(1)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := openJournal(ctx, config)
	defer closeJournal(store)

	classifier := classify.New(config.Roots, config.VideoExtensions, config.DocumentExtensions)
	pipeline := ingest.New(ingest.Config{
		LibraryBase:       config.LibraryBase,
		CatalogURL:        config.CatalogURL,
		MagazineSynopsis:  config.MagazineSynopsis,
		AnimationSynopsis: config.AnimationSynopsis,
		SettleDelay:       config.SettleDelay,
		SidecarDelay:      config.SidecarDelay,
	}, classifier)

	renderer, err := site.New(site.Config{
		Dir:                  config.SiteDir,
		MaxIndexItems:        config.MaxIndexItems,
		ItemsPerPage:         config.ItemsPerPage,
		DefaultCategory:      config.DefaultCategory,
		JournalIsArchiveData: config.JournalIsArchiveData(),
	})
	if err != nil {
		startup.Fatal(startup.NewError("Cannot load site templates", "", "This is a build problem; rebuild the binary", err))
	}

	coord := coordinator.New(coordinator.Config{
		BatchSize:     config.BatchSize,
		DebounceDelay: config.DebounceDelay,
	}, store, pipeline, renderer, newPublisher(ctx, config))

	if *once {
		code := runOnce(ctx, coord)
		closeJournal(store)
		_ = logging.Close()
		os.Exit(code)
	}

	collector := metrics.NewCollector(coord, collectInterval)
	collector.Start()

	fsw, err := watcher.New(config.Roots.All(), coord)
	if err != nil {
		startup.Fatal(startup.NewError("Cannot watch the library directories", "",
			"Check that the roots are readable; on Linux raise fs.inotify.max_user_watches", err))
	}
	poller := indexer.NewPoller(coord, config.PollInterval)

	startup.LogDiscoveryInit(fsw.WatchedDirectories(), config.PollInterval)
	fsw.Start()
	poller.Start()
	startup.LogDiscoveryStarted()

	var srv *http.Server
	if config.HTTPEnabled {
		srv = newServer(config, coord, poller)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logging.Error("HTTP server error: %v", err)
				stop()
			}
		}()
	}

	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		HTTPEnabled:     config.HTTPEnabled,
		StartupDuration: time.Since(startTime),
	})

	<-ctx.Done()
	startup.LogShutdownInitiated(signalName(ctx))
	shutdown(srv, fsw, poller, collector, coord)
}

// openJournal opens and loads the configured journal backend.
func openJournal(ctx context.Context, config *startup.Config) *journal.Store {
	start := time.Now()
	backend, err := journal.Open(ctx, config.JournalBackend, config.JournalPath)
	if err != nil {
		startup.Fatal(startup.NewError("Cannot open journal "+config.JournalPath, "",
			"Check JOURNAL_BACKEND and JOURNAL_PATH and the directory permissions", err))
	}

	store := journal.NewStore(backend)
	if _, err := store.Load(ctx); err != nil {
		startup.Fatal(startup.NewError("Cannot read journal "+config.JournalPath,
			"The journal exists but could not be read; starting empty would overwrite it",
			"Fix the file permissions or the storage mount, then restart", err))
	}
	startup.LogJournalInit(backend, store.Len(), time.Since(start))
	return store
}

func closeJournal(store *journal.Store) {
	if err := store.Backend().Close(); err != nil {
		logging.Warn("Failed to close journal: %v", err)
	}
}

// newPublisher returns the git publisher, or a no-op when publishing is
// disabled. A missing git binary is fatal when publishing is enabled.
func newPublisher(ctx context.Context, config *startup.Config) coordinator.Publisher {
	if !config.PublishEnabled {
		startup.LogPublisherInit(false, "", "", "")
		return publish.NoOp{}
	}

	checkCtx, cancel := context.WithTimeout(ctx, startupGitTimeout)
	defer cancel()

	version, err := publish.CheckGit(checkCtx)
	if err != nil {
		startup.Fatal(startup.NewError("git is not available", "",
			"Install git or set PUBLISH_ENABLED=false to render without publishing", err))
	}

	git := publish.NewGit(publish.Config{
		Dir:    config.SiteDir,
		Remote: config.GitRemote,
		Branch: config.GitBranch,
	})
	if !git.IsRepository(checkCtx) {
		logging.Warn("  %s is not a git work tree; publishing will fail until it is", config.SiteDir)
	}
	startup.LogPublisherInit(true, config.GitRemote, config.GitBranch, version)
	return git
}

// runOnce performs a single scan and flush and returns the exit code. A scan
// that added records has already scheduled the flush, which Close runs; only
// an empty scan needs an explicit one.
func runOnce(ctx context.Context, coord *coordinator.Coordinator) int {
	result := coord.Scan(ctx)
	logging.Info("Scan complete: %d candidates, %d added", result.Candidates, result.Added)

	code := 0
	if result.Added == 0 {
		if err := coord.Flush(ctx); err != nil {
			logging.Error("Flush failed: %v", err)
			code = 1
		}
	}

	closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := coord.Close(closeCtx); err != nil {
		logging.Error("Shutdown flush failed: %v", err)
		code = 1
	}
	return code
}

func newServer(config *startup.Config, coord *coordinator.Coordinator, poller *indexer.Poller) *http.Server {
	hidden := []string{config.LogDir}
	if config.JournalBackend == journal.BackendSQLite {
		hidden = append(hidden, config.JournalPath, config.JournalPath+"-wal", config.JournalPath+"-shm")
	}
	h := handlers.New(coord, poller, config.SiteDir, hidden...)

	router := setupRouter(h)
	startup.LogHTTPRoutes(router, config.LogStaticFiles, config.LogHealthChecks)

	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogStaticFiles = config.LogStaticFiles
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	logged := middleware.Logger(loggingConfig)(router)

	return &http.Server{
		Addr:              ":" + config.Port,
		Handler:           middleware.Compression(middleware.DefaultCompressionConfig())(logged),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

func setupRouter(h *handlers.Handlers) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.Metrics(middleware.DefaultMetricsConfig()))

	r.HandleFunc("/healthz", h.HealthCheck).Methods(http.MethodGet)
	r.HandleFunc("/livez", h.LivenessCheck).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods(http.MethodGet)
	r.HandleFunc("/version", h.GetVersion).Methods(http.MethodGet)
	r.Handle("/metrics", h.MetricsHandler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/updates", h.GetUpdates).Methods(http.MethodGet)
	api.HandleFunc("/stats", h.GetStats).Methods(http.MethodGet)
	api.HandleFunc("/scan", h.TriggerScan).Methods(http.MethodPost)

	r.PathPrefix("/").Handler(h.SiteHandler()).Methods(http.MethodGet, http.MethodHead)

	return r
}

// shutdown stops discovery first so no new records arrive, then lets the
// coordinator run the pending flush and persist anything unsaved.
func shutdown(srv *http.Server, fsw *watcher.Watcher, poller *indexer.Poller, collector *metrics.Collector, coord *coordinator.Coordinator) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if srv != nil {
		startup.LogShutdownStep("Shutting down HTTP server")
		if err := srv.Shutdown(ctx); err != nil {
			logging.Warn("Server shutdown error: %v", err)
		} else {
			startup.LogShutdownStepComplete("HTTP server stopped")
		}
	}

	startup.LogShutdownStep("Stopping watcher")
	fsw.Stop()
	startup.LogShutdownStepComplete("Watcher stopped")

	startup.LogShutdownStep("Stopping poller")
	poller.Stop()
	startup.LogShutdownStepComplete("Poller stopped")

	collector.Stop()

	startup.LogShutdownStep("Flushing pending updates")
	if err := coord.Close(ctx); err != nil {
		logging.Error("Final flush failed: %v", err)
	} else {
		startup.LogShutdownStepComplete("Pending updates flushed")
	}

	startup.LogShutdownComplete()
}

// signalName describes why ctx ended.
func signalName(ctx context.Context) string {
	if cause := context.Cause(ctx); cause != nil && !errors.Is(cause, context.Canceled) {
		return cause.Error()
	}
	return "signal"
}
