package handlers

import (
	"media-watcher/internal/coordinator"
	"media-watcher/internal/indexer"
	"media-watcher/internal/journal"
)

// Library is the record set the API reads.
type Library interface {
	Records() []journal.Record
	Stats() coordinator.Stats
}

// Scanner reports on and triggers periodic scans.
type Scanner interface {
	HealthStatus() indexer.HealthStatus
	TriggerScan() bool
}

// Handlers serves the status API and the rendered site.
type Handlers struct {
	library Library
	scanner Scanner
	siteDir string
	hidden  []string
}

// New creates the handlers. Paths under siteDir named in hidden (the log
// directory, the SQLite journal) are never served.
func New(library Library, scanner Scanner, siteDir string, hidden ...string) *Handlers {
	return &Handlers{
		library: library,
		scanner: scanner,
		siteDir: siteDir,
		hidden:  hidden,
	}
}
