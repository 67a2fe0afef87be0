// Package database provides the SQLite storage behind the sqlite journal
// backend.
//
// The schema has two tables: updates (one row per discovered item, unique on
// the folded path key) and metadata (schema version, last save time). The
// journal is always rewritten wholesale, so ReplaceUpdates clears and refills
// the updates table inside a single transaction.
//
// The database runs in WAL mode with a busy timeout so the status API can
// read while the watcher writes.
package database
