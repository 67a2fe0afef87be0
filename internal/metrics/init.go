package metrics

// Categories mirrors the record categories. It lives here so that metrics
// does not depend on the domain packages.
var Categories = []string{"tvshow", "movie", "collection", "animation", "magazine", "unknown"}

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	for _, source := range []string{"event", "poll"} {
		for _, outcome := range []string{"added", "duplicate", "race", "rejected"} {
			DiscoveriesTotal.WithLabelValues(source, outcome)
		}
	}

	for _, c := range Categories {
		RecordsAddedTotal.WithLabelValues(c)
		RecordsTotal.WithLabelValues(c)
	}

	for _, kind := range []string{"file", "directory"} {
		IngestDuration.WithLabelValues(kind)
	}

	for _, outcome := range []string{"structured", "heuristic", "empty", "unreadable"} {
		SidecarParsesTotal.WithLabelValues(outcome)
	}

	for _, op := range []string{"load", "save"} {
		JournalOperationsTotal.WithLabelValues(op, "success")
		JournalOperationsTotal.WithLabelValues(op, "error")
		JournalOperationDuration.WithLabelValues(op)
	}

	for _, status := range []string{"success", "error"} {
		FlushRunsTotal.WithLabelValues(status)
		RenderTotal.WithLabelValues(status)
		PublishTotal.WithLabelValues(status)
	}
	PublishTotal.WithLabelValues("nothing_to_commit")

	for _, t := range []string{"create", "write", "remove", "rename", "chmod", "unknown"} {
		WatcherEventsTotal.WithLabelValues(t)
	}

	for _, op := range []string{"stat", "read", "readdir"} {
		FilesystemRetryAttempts.WithLabelValues(op)
		FilesystemRetrySuccess.WithLabelValues(op)
		FilesystemRetryFailures.WithLabelValues(op)
		FilesystemStaleErrors.WithLabelValues(op)
	}
}
