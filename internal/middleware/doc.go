// Package middleware provides HTTP middleware for the status server.
//
// It includes:
//   - Request logging in W3C Extended Log Format through the logging package
//   - Prometheus request metrics labelled by route template
//   - Response compression (gzip) for the site pages and the JSON API
package middleware
