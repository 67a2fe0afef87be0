package journal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"media-watcher/internal/filesystem"
	"media-watcher/internal/mediatypes"
)

// NotAvailable fills display fields missing from a stored entry.
const NotAvailable = "N/A"

// Record is one discovered item in the update journal.
type Record struct {
	Timestamp    time.Time           `json:"timestamp"`
	Category     mediatypes.Category `json:"category"`
	Filename     string              `json:"filename"`
	AbsolutePath string              `json:"absolute_path"`
	RelativePath string              `json:"relative_path"`
	ExternalID   string              `json:"external_id,omitempty"`
	ExternalURL  string              `json:"external_url,omitempty"`
	Synopsis     string              `json:"synopsis,omitempty"`
}

// Key returns the dedup key of the record's absolute path.
func (r Record) Key() string {
	return Key(r.AbsolutePath)
}

// Key normalizes a path for dedup lookups: cleaned, NFC-composed and
// case-folded, so that two spellings of the same file on a case-insensitive
// share collide. An empty path yields an empty key.
func Key(path string) string {
	return filesystem.FoldPath(path)
}

// storedRecord is the on-disk shape. It accepts the legacy key names
// (tmdb_id, tmdb_url, plot) next to the current ones.
type storedRecord struct {
	Timestamp    string      `json:"timestamp"`
	Category     string      `json:"category"`
	Filename     string      `json:"filename"`
	AbsolutePath string      `json:"absolute_path"`
	RelativePath string      `json:"relative_path"`
	ExternalID   looseString `json:"external_id"`
	ExternalURL  string      `json:"external_url"`
	Synopsis     string      `json:"synopsis"`

	LegacyID   looseString `json:"tmdb_id"`
	LegacyURL  string      `json:"tmdb_url"`
	LegacyPlot string      `json:"plot"`
}

// looseString decodes a JSON string, number or null.
type looseString string

func (s *looseString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = looseString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", data)
	}
	*s = looseString(n.String())
	return nil
}

// UnmarshalJSON decodes a stored entry, applying load-time defaults.
// Entries with an unparsable timestamp or an unknown category are rejected.
func (r *Record) UnmarshalJSON(data []byte) error {
	var s storedRecord
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	ts, err := ParseTimestamp(s.Timestamp)
	if err != nil {
		return err
	}

	category, ok := mediatypes.ParseCategory(s.Category)
	if !ok {
		return fmt.Errorf("unknown category %q", s.Category)
	}

	*r = Record{
		Timestamp:    ts,
		Category:     category,
		Filename:     firstNonEmpty(s.Filename, NotAvailable),
		AbsolutePath: s.AbsolutePath,
		RelativePath: firstNonEmpty(s.RelativePath, NotAvailable),
		ExternalID:   strings.TrimSpace(firstNonEmpty(string(s.ExternalID), string(s.LegacyID))),
		ExternalURL:  firstNonEmpty(s.ExternalURL, s.LegacyURL),
		Synopsis:     firstNonEmpty(s.Synopsis, s.LegacyPlot),
	}
	return nil
}

// timestampLayouts are tried in order. Zone-less layouts are read as local
// time.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
}

// ParseTimestamp parses a stored timestamp. An empty value yields the zero
// time, which sorts last.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for i, layout := range timestampLayouts {
		var (
			t   time.Time
			err error
		)
		if i == 0 {
			t, err = time.Parse(layout, s)
		} else {
			t, err = time.ParseInLocation(layout, s, time.Local)
		}
		if err == nil {
			return t, nil
		}
	}
	if unix, err := strconv.ParseFloat(s, 64); err == nil {
		sec := int64(unix)
		return time.Unix(sec, int64((unix-float64(sec))*1e9)), nil
	}
	return time.Time{}, fmt.Errorf("unparsable timestamp %q", s)
}

// FormatTimestamp renders t for display, to the second.
func FormatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

// storedTimestamp renders t at full precision so records found within the
// same second keep their order across a reload.
func storedTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339Nano)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
