// Package ingest turns a newly discovered path into a journal record.
//
// Directories only matter below a collection root, where each new show or
// season directory becomes a collection record described by its
// tvshow.nfo. Files must have a target extension and live outside the
// collection roots; they are classified by location, and movies and
// episodes are enriched from their sidecar.
//
// Both branches wait for the path to settle before reading it, since files
// on network drives appear before their content and sidecars are complete.
package ingest
