// Package indexer finds candidate paths by walking the library roots.
//
// [Walker] enumerates roots in parallel with an errgroup sized by
// workers.ForIO:
//   - collection roots: each direct, non-hidden subdirectory
//   - all other roots: every file with a target extension, at any depth
//
// Hidden entries (prefixed with '.') are skipped, and missing roots are
// logged and skipped.
//
// [Poller] drives a [Scanner] (the coordinator) once at startup and then on
// a fixed interval, and serves on-demand scans for the status API. Only one
// scan runs at a time.
package indexer
