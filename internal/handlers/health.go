package handlers

import (
	"net/http"
	"runtime"
	"time"

	"media-watcher/internal/startup"
)

const (
	statusHealthy  = "healthy"
	statusStarting = "starting"
	statusDegraded = "degraded"
)

// HealthResponse contains the health check response
type HealthResponse struct {
	Status   string `json:"status"`
	Ready    bool   `json:"ready"`
	Version  string `json:"version"`
	Uptime   string `json:"uptime"`
	Scanning bool   `json:"scanning"`
	LastScan string `json:"lastScan,omitempty"`

	Records        int    `json:"records"`
	Unsaved        bool   `json:"unsaved"`
	FlushState     string `json:"flushState"`
	LastFlushError string `json:"lastFlushError,omitempty"`

	GoVersion    string `json:"goVersion"`
	NumGoroutine int    `json:"numGoroutine"`
}

// HealthCheck returns the health status of the service. A journal that could
// not be saved or a failed render/publish marks the service degraded but
// still answers 200; only a service that has not finished its first scan
// answers 503.
func (h *Handlers) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	scan := h.scanner.HealthStatus()
	stats := h.library.Stats()

	response := HealthResponse{
		Ready:          scan.Ready,
		Version:        startup.Version,
		Uptime:         scan.Uptime,
		Scanning:       scan.Scanning,
		Records:        stats.Records,
		Unsaved:        stats.Unsaved,
		FlushState:     stats.FlushState,
		LastFlushError: stats.LastFlushError,
		GoVersion:      runtime.Version(),
		NumGoroutine:   runtime.NumGoroutine(),
	}
	if !scan.LastScan.IsZero() {
		response.LastScan = scan.LastScan.Format(time.RFC3339)
	}

	switch {
	case !scan.Ready:
		response.Status = statusStarting
	case stats.Unsaved || stats.LastFlushError != "":
		response.Status = statusDegraded
	default:
		response.Status = statusHealthy
	}

	w.Header().Set("Content-Type", "application/json")
	if !scan.Ready {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	writeJSON(w, response)
}

// LivenessCheck is a simple liveness probe (always returns 200 if server is running)
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if r.Method != http.MethodHead {
		writeJSON(w, map[string]string{"status": "alive"})
	}
}

// ReadinessCheck returns 200 once the initial scan has completed
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if h.scanner.HealthStatus().Ready {
		w.WriteHeader(http.StatusOK)
		writeJSON(w, map[string]string{"status": "ready"})
		return
	}
	w.WriteHeader(http.StatusServiceUnavailable)
	writeJSON(w, map[string]string{"status": "not_ready"})
}
