package journal

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"media-watcher/internal/logging"
	"media-watcher/internal/metrics"
)

// Store owns the in-memory record set and the dedup index derived from it.
//
// The coordinator serializes the check-process-append sequence; the Store's
// own mutex only keeps concurrent readers (status API, metrics) consistent.
type Store struct {
	backend Backend

	mu      sync.RWMutex
	records []Record
	index   *Index
	loaded  bool
	// gen changes whenever records is swapped out wholesale.
	gen uint64
}

// NewStore creates an empty, unloaded store on top of backend.
func NewStore(backend Backend) *Store {
	return &Store{
		backend: backend,
		index:   NewIndex(nil),
	}
}

// Backend returns the persistence backend.
func (s *Store) Backend() Backend {
	return s.backend
}

// Load populates the store from the backend and builds the index.
//
// A missing or corrupt journal yields an empty store; corruption is logged
// and not returned. Other read failures are returned, since continuing would
// overwrite a journal that may still be intact.
func (s *Store) Load(ctx context.Context) ([]Record, error) {
	start := time.Now()
	records, err := s.backend.Load(ctx)
	metrics.JournalOperationDuration.WithLabelValues("load").Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.JournalOperationsTotal.WithLabelValues("load", "error").Inc()
		if !errors.Is(err, ErrCorrupt) {
			return nil, err
		}
		logging.Error("Journal %s is unreadable, starting empty: %v", s.backend, err)
		records = nil
	} else {
		metrics.JournalOperationsTotal.WithLabelValues("load", "success").Inc()
	}

	sortNewestFirst(records)
	records = dropDuplicates(records)

	s.mu.Lock()
	s.records = records
	s.index = NewIndex(records)
	s.loaded = true
	s.gen++
	s.mu.Unlock()

	logging.Info("Loaded %d records from %s", len(records), s.backend)
	return slices.Clone(records), nil
}

// Save persists the full record set, newest first. On success the index is
// replaced with exactly the keys that were written, unless Load or Replace
// swapped the records out meanwhile. On failure the in-memory state is left
// untouched.
func (s *Store) Save(ctx context.Context) error {
	s.mu.RLock()
	snapshot := slices.Clone(s.records)
	gen := s.gen
	s.mu.RUnlock()

	sortNewestFirst(snapshot)

	start := time.Now()
	err := s.backend.Save(ctx, snapshot)
	metrics.JournalOperationDuration.WithLabelValues("save").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.JournalOperationsTotal.WithLabelValues("save", "error").Inc()
		logging.Error("Failed to save journal %s: %v", s.backend, err)
		return err
	}
	metrics.JournalOperationsTotal.WithLabelValues("save", "success").Inc()
	metrics.JournalLastSaveTimestamp.SetToCurrentTime()

	s.mu.Lock()
	if s.gen == gen {
		idx := NewIndex(snapshot)
		// Records appended while the backend was writing are not on disk
		// yet but must stay deduplicated.
		for _, r := range s.records[len(snapshot):] {
			idx.Add(r.Key())
		}
		s.index = idx
	}
	s.mu.Unlock()

	logging.Debug("Saved %d records to %s", len(snapshot), s.backend)
	return nil
}

// Contains reports whether path is already recorded. Calling it before Load
// is a programming error and reports false.
func (s *Store) Contains(path string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.loaded {
		logging.Error("Journal index queried before load (path %s)", path)
		return false
	}
	return s.index.Has(Key(path))
}

// Append adds r in memory and extends the index. It reports false when the
// path is already recorded or the store has not been loaded.
func (s *Store) Append(r Record) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		logging.Error("Journal append before load (path %s)", r.AbsolutePath)
		return false
	}
	key := r.Key()
	if key != "" && s.index.Has(key) {
		return false
	}
	s.records = append(s.records, r)
	s.index.Add(key)
	return true
}

// Replace discards the in-memory records in favour of records, sorted newest
// first with duplicates dropped. Nothing is persisted until Save.
func (s *Store) Replace(records []Record) {
	records = slices.Clone(records)
	sortNewestFirst(records)
	records = dropDuplicates(records)

	s.mu.Lock()
	s.records = records
	s.index = NewIndex(records)
	s.loaded = true
	s.gen++
	s.mu.Unlock()
}

// Find returns the stored record for path.
func (s *Store) Find(path string) (Record, bool) {
	key := Key(path)
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.records {
		if r.Key() == key {
			return r, true
		}
	}
	return Record{}, false
}

// Records returns a copy of the record set, newest first.
func (s *Store) Records() []Record {
	s.mu.RLock()
	out := slices.Clone(s.records)
	s.mu.RUnlock()
	sortNewestFirst(out)
	return out
}

// Len returns the number of records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Loaded reports whether Load has run.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// CategoryCounts returns the number of records per category.
func (s *Store) CategoryCounts() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[string]int)
	for _, r := range s.records {
		counts[string(r.Category)]++
	}
	return counts
}

// sortNewestFirst orders records by timestamp descending. Equal timestamps
// keep their relative order.
func sortNewestFirst(records []Record) {
	slices.SortStableFunc(records, func(a, b Record) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
}

// dropDuplicates keeps the first record per key. Input must be sorted
// newest first, so the newest entry wins.
func dropDuplicates(records []Record) []Record {
	seen := make(map[string]struct{}, len(records))
	out := records[:0]
	for _, r := range records {
		key := r.Key()
		if key != "" {
			if _, dup := seen[key]; dup {
				logging.Warn("Dropping duplicate journal entry for %s", r.AbsolutePath)
				continue
			}
			seen[key] = struct{}{}
		}
		out = append(out, r)
	}
	return out
}
