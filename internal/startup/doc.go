// Package startup handles application initialization, configuration loading,
// and startup/shutdown logging.
//
// # Configuration
//
// [LoadConfig] reads an optional YAML file (--config or CONFIG_FILE) whose
// keys are the setting names below, in any case, with dashes or
// underscores. Environment variables override the file. Directory lists use
// the OS path-list separator in the environment and may be YAML lists in
// the file.
//
//   - MOVIE_DIRS, SERIES_DIRS, COLLECTION_DIRS, ANIMATION_DIRS, MAGAZINE_DIRS:
//     library roots (at least one must exist)
//   - LIBRARY_BASE: base for the relative paths stored in records
//   - VIDEO_EXTENSIONS (default: .mkv,.mp4), DOCUMENT_EXTENSIONS (default: .pdf)
//   - SITE_DIR: rendered site and git checkout (default: current directory)
//   - JOURNAL_BACKEND: json or sqlite (default: json)
//   - JOURNAL_PATH: journal location, relative to SITE_DIR
//     (default: media_updates.json, or media_updates.db for sqlite)
//   - POLL_INTERVAL (5m), BATCH_SIZE (50), DEBOUNCE_DELAY (15s),
//     SETTLE_DELAY (5s), SIDECAR_DELAY (2s)
//   - MAX_INDEX_ITEMS (5000), ITEMS_PER_PAGE (30), DEFAULT_CATEGORY (tvshow)
//   - CATALOG_URL (https://www.themoviedb.org), MAGAZINE_SYNOPSIS, ANIMATION_SYNOPSIS
//   - PUBLISH_ENABLED (true), GIT_REMOTE (origin, empty to skip push), GIT_BRANCH (main)
//   - HTTP_ENABLED (true), PORT (8080), LOG_STATIC_FILES, LOG_HEALTH_CHECKS
//   - LOG_DIR (SITE_DIR/GDLogs), LOG_LEVEL, SCAN_WORKERS
//
// Invalid durations, numbers and booleans fall back to their defaults with a
// warning. Conditions that make running pointless (no library roots, an
// unwritable site directory, an unreadable config file) are returned as
// [*Error] values; [Fatal] prints them as an Error/Cause/Fix block and exits.
//
// # Build Information
//
// Build-time variables are injected via ldflags and exposed via [GetBuildInfo].
package startup
