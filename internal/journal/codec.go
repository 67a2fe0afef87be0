package journal

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"media-watcher/internal/logging"
	"media-watcher/internal/metrics"
)

// ErrCorrupt marks a journal whose top-level structure cannot be decoded.
var ErrCorrupt = errors.New("journal is corrupt")

// Encode renders records as the journal file: a JSON array indented with four
// spaces, with non-ASCII and HTML characters left unescaped.
func Encode(records []Record) ([]byte, error) {
	if records == nil {
		records = []Record{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(records); err != nil {
		return nil, fmt.Errorf("failed to encode journal: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses a journal file. An empty document is an empty journal. If
// the array itself cannot be read the result wraps ErrCorrupt; individual
// bad entries are logged and skipped.
func Decode(data []byte) ([]Record, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	records := make([]Record, 0, len(raw))
	for i, entry := range raw {
		var r Record
		if err := json.Unmarshal(entry, &r); err != nil {
			logging.Warn("Skipping journal entry %d: %v", i, err)
			metrics.JournalSkippedEntries.Inc()
			continue
		}
		records = append(records, r)
	}
	return records, nil
}
