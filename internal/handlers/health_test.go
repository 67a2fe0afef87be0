package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"media-watcher/internal/indexer"
	"media-watcher/internal/startup"
)

func TestHealthCheck(t *testing.T) {
	lastScan := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		ready      bool
		unsaved    bool
		flushError string
		wantCode   int
		wantStatus string
	}{
		{"starting", false, false, "", http.StatusServiceUnavailable, statusStarting},
		{"healthy", true, false, "", http.StatusOK, statusHealthy},
		{"unsaved journal", true, true, "", http.StatusOK, statusDegraded},
		{"failed publish", true, false, "publish: exit status 128", http.StatusOK, statusDegraded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, lib, scanner := newTestHandlers(t)
			scanner.status = indexer.HealthStatus{Ready: tt.ready, Uptime: "5m0s", LastScan: lastScan}
			lib.stats.Unsaved = tt.unsaved
			lib.stats.LastFlushError = tt.flushError

			w := httptest.NewRecorder()
			h.HealthCheck(w, httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody))

			if w.Code != tt.wantCode {
				t.Errorf("Expected status code %d, got %d", tt.wantCode, w.Code)
			}
			resp := decode[HealthResponse](t, w)
			if resp.Status != tt.wantStatus {
				t.Errorf("Expected status %q, got %q", tt.wantStatus, resp.Status)
			}
			if resp.Ready != tt.ready {
				t.Errorf("Expected ready=%v, got %v", tt.ready, resp.Ready)
			}
			if resp.Version != startup.Version {
				t.Errorf("Expected version %q, got %q", startup.Version, resp.Version)
			}
			if resp.Records != 5 {
				t.Errorf("Expected 5 records, got %d", resp.Records)
			}
			if resp.LastScan != "2024-03-10T12:00:00Z" {
				t.Errorf("Unexpected lastScan %q", resp.LastScan)
			}
			if resp.LastFlushError != tt.flushError {
				t.Errorf("Expected lastFlushError %q, got %q", tt.flushError, resp.LastFlushError)
			}
		})
	}
}

func TestLivenessCheck(t *testing.T) {
	h := &Handlers{}

	w := httptest.NewRecorder()
	h.LivenessCheck(w, httptest.NewRequest(http.MethodGet, "/livez", http.NoBody))
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if body := decode[map[string]string](t, w); body["status"] != "alive" {
		t.Errorf("Expected status alive, got %q", body["status"])
	}

	w = httptest.NewRecorder()
	h.LivenessCheck(w, httptest.NewRequest(http.MethodHead, "/livez", http.NoBody))
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200 for HEAD, got %d", w.Code)
	}
	if w.Body.Len() != 0 {
		t.Errorf("Expected empty body for HEAD, got %q", w.Body.String())
	}
}

func TestReadinessCheck(t *testing.T) {
	h, _, scanner := newTestHandlers(t)

	scanner.status.Ready = false
	w := httptest.NewRecorder()
	h.ReadinessCheck(w, httptest.NewRequest(http.MethodGet, "/readyz", http.NoBody))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503 before the first scan, got %d", w.Code)
	}
	if body := decode[map[string]string](t, w); body["status"] != "not_ready" {
		t.Errorf("Expected not_ready, got %q", body["status"])
	}

	scanner.status.Ready = true
	w = httptest.NewRecorder()
	h.ReadinessCheck(w, httptest.NewRequest(http.MethodGet, "/readyz", http.NoBody))
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if body := decode[map[string]string](t, w); body["status"] != "ready" {
		t.Errorf("Expected ready, got %q", body["status"])
	}
}
