package handlers

import (
	"net/http"
	"strconv"

	"media-watcher/internal/coordinator"
	"media-watcher/internal/indexer"
	"media-watcher/internal/journal"
	"media-watcher/internal/mediatypes"
)

// Page sizes for /api/updates.
const (
	DefaultUpdatesLimit = 100
	MaxUpdatesLimit     = 1000
)

// UpdatesResponse is one page of records, newest first.
type UpdatesResponse struct {
	Total  int              `json:"total"`
	Offset int              `json:"offset"`
	Limit  int              `json:"limit"`
	Items  []journal.Record `json:"items"`
}

// GetUpdates lists recorded updates, optionally for one category.
//
//	GET /api/updates?category=movie&limit=50&offset=100
func (h *Handlers) GetUpdates(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var category mediatypes.Category
	if raw := q.Get("category"); raw != "" {
		c, ok := mediatypes.ParseCategory(raw)
		if !ok {
			writeJSONError(w, "unknown category: "+raw, http.StatusBadRequest)
			return
		}
		category = c
	}

	limit, ok := queryInt(q.Get("limit"), DefaultUpdatesLimit)
	if !ok || limit <= 0 {
		writeJSONError(w, "limit must be a positive integer", http.StatusBadRequest)
		return
	}
	limit = min(limit, MaxUpdatesLimit)

	offset, ok := queryInt(q.Get("offset"), 0)
	if !ok || offset < 0 {
		writeJSONError(w, "offset must be a non-negative integer", http.StatusBadRequest)
		return
	}

	records := h.library.Records()
	if category != "" {
		filtered := records[:0]
		for _, rec := range records {
			if rec.Category == category {
				filtered = append(filtered, rec)
			}
		}
		records = filtered
	}

	page := []journal.Record{}
	if offset < len(records) {
		page = records[offset:min(offset+limit, len(records))]
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, UpdatesResponse{
		Total:  len(records),
		Offset: offset,
		Limit:  limit,
		Items:  page,
	})
}

func queryInt(raw string, defaultValue int) (int, bool) {
	if raw == "" {
		return defaultValue, true
	}
	n, err := strconv.Atoi(raw)
	return n, err == nil
}

// StatsResponse combines journal and scan state.
type StatsResponse struct {
	coordinator.Stats
	Scan indexer.HealthStatus `json:"scan"`
}

// GetStats returns record counts, flush state and the last scan result.
func (h *Handlers) GetStats(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, StatsResponse{
		Stats: h.library.Stats(),
		Scan:  h.scanner.HealthStatus(),
	})
}

// TriggerScan starts an out-of-band scan. It answers 202 when a scan was
// started and 409 when one is already running.
func (h *Handlers) TriggerScan(w http.ResponseWriter, _ *http.Request) {
	if !h.scanner.TriggerScan() {
		writeJSONStatus(w, http.StatusConflict, "already_running")
		return
	}
	writeJSONStatus(w, http.StatusAccepted, "started")
}
