// Package logging provides a simple leveled logging interface for the
// media watcher.
//
// It supports the following log levels:
//   - DEBUG: Verbose debugging information
//   - INFO: General operational messages
//   - WARN: Expected but noteworthy conditions (duplicates, malformed sidecars)
//   - ERROR: Error conditions (journal, render and publish failures)
//   - FATAL: Fatal errors that terminate the application
//
// The log level is configured via the LOG_LEVEL environment variable
// (DEBUG=true forces debug). Output goes to stderr by default; [OpenFile]
// tees it into a log file under LOG_DIR.
package logging
