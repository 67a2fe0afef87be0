package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"media-watcher/internal/logging"
)

// LoggingConfig holds configuration for the access log middleware
type LoggingConfig struct {
	SkipPaths       []string
	StaticSuffixes  []string
	LogStaticFiles  bool
	LogHealthChecks bool
}

// DefaultLoggingConfig logs API calls and page views but not assets or
// probes.
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		SkipPaths:      []string{"/metrics"},
		StaticSuffixes: []string{".css", ".js", ".json", ".ico", ".png", ".svg", ".woff2"},
	}
}

var healthCheckPaths = map[string]bool{
	"/healthz": true,
	"/livez":   true,
	"/readyz":  true,
}

// Logger returns middleware writing one W3C extended log line per request:
//
//	date time c-ip cs-method cs-uri-stem cs-uri-query sc-status sc-bytes time-taken cs(Content-Encoding) cs(User-Agent)
func Logger(config LoggingConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if config.skip(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			rw := newRecorder(w)
			next.ServeHTTP(rw, r)
			logging.Info("%s", formatW3C(r, rw, start))
		})
	}
}

func (c LoggingConfig) skip(path string) bool {
	for _, p := range c.SkipPaths {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	if !c.LogHealthChecks && healthCheckPaths[path] {
		return true
	}
	if !c.LogStaticFiles {
		lower := strings.ToLower(path)
		for _, suffix := range c.StaticSuffixes {
			if strings.HasSuffix(lower, suffix) {
				return true
			}
		}
	}
	return false
}

func formatW3C(r *http.Request, rw *recorder, start time.Time) string {
	now := start.UTC()
	fields := []string{
		now.Format("2006-01-02"),
		now.Format("15:04:05"),
		orDash(clientIP(r)),
		orDash(r.Method),
		orDash(r.URL.Path),
		orDash(r.URL.RawQuery),
		strconv.Itoa(rw.status),
		strconv.FormatInt(rw.bytes, 10),
		strconv.FormatInt(time.Since(start).Milliseconds(), 10),
		orDash(rw.Header().Get("Content-Encoding")),
		quoteW3C(orDash(r.Header.Get("User-Agent"))),
	}
	return strings.Join(fields, " ")
}

// clean strips characters that could forge log lines or drive a terminal.
func clean(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\r':
			return ' '
		case r == '\t':
			return r
		case r < 0x20 || r == 0x7f:
			return -1
		}
		return r
	}, s)
}

func orDash(s string) string {
	s = clean(s)
	if s == "" {
		return "-"
	}
	return s
}

func quoteW3C(s string) string {
	if strings.ContainsAny(s, " \t\"") {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return strings.Trim(ip, "[]")
}
