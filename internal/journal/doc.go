// Package journal implements the update journal: the durable, append-only
// list of discovered items and the dedup index derived from it.
//
// A [Store] holds the records in memory and persists them wholesale through a
// [Backend]: either a JSON array file ([FileBackend], the default) or an
// SQLite table ([SQLiteBackend]). Records are always written newest first.
//
// Dedup keys come from [Key], which cleans, NFC-normalizes and case-folds the
// absolute path.
//
// Journals written by older versions of the watcher, which used the
// tmdb_id, tmdb_url and plot keys and zone-less timestamps, load unchanged.
package journal
