package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_watcher_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_watcher_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_watcher_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Discovery metrics
var (
	// DiscoveriesTotal counts candidate paths by source ("event", "poll")
	// and outcome ("added", "duplicate", "race", "rejected").
	DiscoveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_watcher_discoveries_total",
			Help: "Total number of candidate paths seen, by source and outcome",
		},
		[]string{"source", "outcome"},
	)

	RecordsAddedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_watcher_records_added_total",
			Help: "Total number of records appended to the journal, by category",
		},
		[]string{"category"},
	)

	RecordsTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "media_watcher_records",
			Help: "Current number of records in the journal, by category",
		},
		[]string{"category"},
	)

	IngestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_watcher_ingest_duration_seconds",
			Help:    "Time spent in the ingestion pipeline, including settle delays",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 2.5, 5, 10, 15, 30, 60},
		},
		[]string{"kind"},
	)

	SidecarParsesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_watcher_sidecar_parses_total",
			Help: "Total number of sidecar documents read, by outcome",
		},
		[]string{"outcome"},
	)

	UnclassifiedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_watcher_unclassified_total",
			Help: "Total number of files that matched no classification rule",
		},
	)
)

// Journal metrics
var (
	JournalOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_watcher_journal_operations_total",
			Help: "Total number of journal load/save operations, by status",
		},
		[]string{"operation", "status"},
	)

	JournalOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_watcher_journal_operation_duration_seconds",
			Help:    "Journal load/save duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"operation"},
	)

	JournalSkippedEntries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_watcher_journal_skipped_entries_total",
			Help: "Total number of journal entries skipped at load time",
		},
	)

	JournalLastSaveTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_watcher_journal_last_save_timestamp",
			Help: "Timestamp of the last successful journal save",
		},
	)
)

// Database metrics (SQLite journal backend)
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_watcher_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_watcher_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"operation"},
	)

	DBConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_watcher_db_connections_open",
			Help: "Number of open database connections",
		},
	)
)

// Flush metrics
var (
	FlushScheduledTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_watcher_flush_scheduled_total",
			Help: "Total number of flush requests (including coalesced ones)",
		},
	)

	FlushCoalescedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_watcher_flush_coalesced_total",
			Help: "Total number of pending flushes cancelled by a newer request",
		},
	)

	FlushRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_watcher_flush_runs_total",
			Help: "Total number of downstream flush runs, by status",
		},
		[]string{"status"},
	)

	FlushDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "media_watcher_flush_duration_seconds",
			Help:    "Duration of render + publish runs",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)

	FlushPending = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_watcher_flush_pending",
			Help: "Whether a flush is currently armed (1 = armed, 0 = idle)",
		},
	)

	RenderTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_watcher_render_total",
			Help: "Total number of site renders, by status",
		},
		[]string{"status"},
	)

	PublishTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_watcher_publish_total",
			Help: "Total number of publish attempts, by status",
		},
		[]string{"status"},
	)
)

// Poller metrics
var (
	ScanRunsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_watcher_scan_runs_total",
			Help: "Total number of periodic scans",
		},
	)

	ScanDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "media_watcher_scan_duration_seconds",
			Help:    "Duration of periodic scans",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300, 900},
		},
	)

	ScanCandidates = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_watcher_scan_candidates_total",
			Help: "Total number of candidate paths produced by scans",
		},
	)

	ScanIsRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_watcher_scan_running",
			Help: "Whether a scan is currently running (1 = running, 0 = idle)",
		},
	)

	ScanLastRunTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_watcher_scan_last_run_timestamp",
			Help: "Timestamp of the last completed scan",
		},
	)

	ScanWorkers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_watcher_scan_workers",
			Help: "Number of parallel root walkers",
		},
	)
)

// Watcher metrics
var (
	WatcherEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_watcher_watcher_events_total",
			Help: "Total number of filesystem notifications, by type",
		},
		[]string{"type"},
	)

	WatcherErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_watcher_watcher_errors_total",
			Help: "Total number of filesystem watcher errors",
		},
	)

	WatchedDirectories = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_watcher_watched_directories",
			Help: "Number of directories registered with the watcher",
		},
	)

	WatcherQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_watcher_watcher_queue_depth",
			Help: "Number of create events waiting for dispatch",
		},
	)
)

// Filesystem retry metrics
var (
	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_watcher_filesystem_retry_attempts_total",
			Help: "Total number of retried filesystem operations after a stale handle",
		},
		[]string{"operation"},
	)

	FilesystemRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_watcher_filesystem_retry_success_total",
			Help: "Total number of filesystem operations that succeeded after retrying",
		},
		[]string{"operation"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_watcher_filesystem_retry_failures_total",
			Help: "Total number of filesystem operations that failed after all retries",
		},
		[]string{"operation"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_watcher_filesystem_stale_errors_total",
			Help: "Total number of stale file handle errors observed",
		},
		[]string{"operation"},
	)
)

// AppInfo exposes build information as labels.
var AppInfo = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "media_watcher_app_info",
		Help: "Application build information",
	},
	[]string{"version", "commit", "go_version"},
)
