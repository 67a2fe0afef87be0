// Package handlers provides the HTTP handlers of the status server.
//
// It includes handlers for:
//   - Health, liveness and readiness probes
//   - Version and build information
//   - Paged access to the update journal and summary statistics
//   - Triggering an out-of-band scan
//   - Serving the rendered site and Prometheus metrics
package handlers
