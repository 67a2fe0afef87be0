// Package watcher delivers live create notifications from the library
// roots using fsnotify.
//
// Every directory below each root is registered at startup, and new
// directories are registered as they appear, before their create event is
// dispatched. Events are handed to a single dispatcher goroutine, which
// calls the handler one path at a time. Hidden entries are ignored.
package watcher
