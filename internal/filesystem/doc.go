/*
Package filesystem provides resilient filesystem operations for media
libraries that live on network drives.

# Retry

StatWithRetry, ReadFileWithRetry and ReadDirWithRetry wrap the os package
with exponential backoff for ESTALE (stale file handle) errors. Every other
error is returned immediately. Retries are counted in the
media_watcher_filesystem_* metrics.

	info, err := filesystem.StatWithRetry(path, filesystem.DefaultRetryConfig())

# Atomic writes

WriteFileAtomic writes to a hidden temp file in the target directory, syncs
it and renames it over the destination. The journal and the rendered site
use it so a crash never leaves a truncated file behind.
*/
package filesystem
