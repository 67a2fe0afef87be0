// Package metrics provides Prometheus instrumentation for the media watcher.
//
// All metrics are prefixed with "media_watcher_" and registered through
// promauto at package init. [InitializeMetrics] pre-populates label
// combinations so dashboards see zero values before the first event.
//
// # Metric Categories
//
// ## HTTP Metrics
//
//   - HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight
//
// ## Discovery Metrics
//
// Track what the watcher and the poller found and what happened to it:
//   - DiscoveriesTotal: candidates by source (event, poll) and outcome
//   - RecordsAddedTotal / RecordsTotal: appended records and current size by category
//   - IngestDuration: time spent in the ingestion pipeline
//   - SidecarParsesTotal: sidecar reads by outcome
//
// ## Journal Metrics
//
//   - JournalOperationsTotal, JournalOperationDuration
//   - JournalSkippedEntries: invalid entries dropped at load time
//
// ## Flush Metrics
//
// Track the debounced render + publish cycle:
//   - FlushScheduledTotal, FlushCoalescedTotal, FlushRunsTotal, FlushDuration
//   - RenderTotal, PublishTotal
//
// ## Poller and Watcher Metrics
//
//   - ScanRunsTotal, ScanDuration, ScanCandidates, ScanIsRunning
//   - WatcherEventsTotal, WatcherErrors, WatchedDirectories
//
// # Collector
//
// [Collector] samples the journal on an interval and updates the per-category
// record gauges.
package metrics
