package journal

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"media-watcher/internal/mediatypes"
)

type failingBackend struct {
	*FileBackend
	saveErr error
}

func (b *failingBackend) Save(ctx context.Context, records []Record) error {
	if b.saveErr != nil {
		return b.saveErr
	}
	return b.FileBackend.Save(ctx, records)
}

type blockingBackend struct {
	*FileBackend
	saving  chan struct{}
	release chan struct{}
}

func (b *blockingBackend) Save(ctx context.Context, records []Record) error {
	close(b.saving)
	<-b.release
	return b.FileBackend.Save(ctx, records)
}

func testRecord(path string, ts time.Time, category mediatypes.Category) Record {
	return Record{
		Timestamp:    ts,
		Category:     category,
		Filename:     filepath.Base(path),
		AbsolutePath: path,
		RelativePath: filepath.Base(path),
	}
}

func loadedStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "media_updates.json")
	s := NewStore(NewFileBackend(path))
	if _, err := s.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return s, path
}

func TestStoreLoadMissingFile(t *testing.T) {
	s, _ := loadedStore(t)
	if s.Len() != 0 {
		t.Errorf("Expected empty store, got %d records", s.Len())
	}
	if !s.Loaded() {
		t.Error("Expected store to be marked loaded")
	}
}

func TestStoreLoadCorruptFileFailsSoft(t *testing.T) {
	path := filepath.Join(t.TempDir(), "media_updates.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	s := NewStore(NewFileBackend(path))
	records, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("Expected corrupt journal to load soft, got %v", err)
	}
	if len(records) != 0 {
		t.Errorf("Expected no records, got %d", len(records))
	}
	if !s.Loaded() {
		t.Error("Expected store to be marked loaded")
	}
}

func TestStoreLoadUnreadableFileFails(t *testing.T) {
	dir := t.TempDir()
	// A directory where the journal file should be cannot be read as a file.
	path := filepath.Join(dir, "media_updates.json")
	if err := os.Mkdir(path, 0o755); err != nil {
		t.Fatalf("Mkdir failed: %v", err)
	}

	s := NewStore(NewFileBackend(path))
	if _, err := s.Load(context.Background()); err == nil {
		t.Error("Expected read error to be returned")
	}
	if s.Loaded() {
		t.Error("Expected store to stay unloaded")
	}
}

func TestStoreContainsBeforeLoad(t *testing.T) {
	s := NewStore(NewFileBackend(filepath.Join(t.TempDir(), "j.json")))
	if s.Contains("/a.mkv") {
		t.Error("Expected Contains before Load to report false")
	}
	if s.Append(testRecord("/a.mkv", time.Now(), mediatypes.CategoryMovie)) {
		t.Error("Expected Append before Load to be rejected")
	}
}

func TestStoreAppendRejectsDuplicates(t *testing.T) {
	s, _ := loadedStore(t)
	now := time.Now()

	if !s.Append(testRecord("/lib/電影/A.mkv", now, mediatypes.CategoryMovie)) {
		t.Fatal("Expected first append to succeed")
	}
	if s.Append(testRecord("/lib/電影/a.MKV", now.Add(time.Second), mediatypes.CategoryMovie)) {
		t.Error("Expected case-variant duplicate to be rejected")
	}
	if !s.Contains("/LIB/電影/A.mkv") {
		t.Error("Expected Contains to match folded path")
	}
	if s.Len() != 1 {
		t.Errorf("Expected 1 record, got %d", s.Len())
	}
}

func TestStoreSaveAndReload(t *testing.T) {
	s, path := loadedStore(t)
	base := time.Date(2024, 6, 1, 9, 0, 0, 0, time.Local)

	s.Append(testRecord("/lib/old.mkv", base, mediatypes.CategoryMovie))
	s.Append(testRecord("/lib/new.mkv", base.Add(time.Hour), mediatypes.CategoryTVShow))

	if err := s.Save(context.Background()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	reloaded := NewStore(NewFileBackend(path))
	records, err := reloaded.Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(records))
	}
	if records[0].Filename != "new.mkv" {
		t.Errorf("Expected newest first, got %s", records[0].Filename)
	}
	if !reloaded.Contains("/lib/old.mkv") {
		t.Error("Expected reloaded index to contain /lib/old.mkv")
	}
}

func TestStoreSaveFailureKeepsState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "media_updates.json")
	backend := &failingBackend{FileBackend: NewFileBackend(path)}
	s := NewStore(backend)
	if _, err := s.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	s.Append(testRecord("/lib/a.mkv", time.Now(), mediatypes.CategoryMovie))
	backend.saveErr = errors.New("disk full")

	if err := s.Save(context.Background()); err == nil {
		t.Fatal("Expected save error")
	}
	if s.Len() != 1 || !s.Contains("/lib/a.mkv") {
		t.Error("Expected in-memory state to survive a failed save")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("Expected no journal file after failed save, got %v", err)
	}
}

func TestStoreLoadDropsDuplicateEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "media_updates.json")
	data := []byte(`[
		{"timestamp": "2024-01-01T00:00:00Z", "category": "movie", "filename": "old", "absolute_path": "/lib/A.mkv"},
		{"timestamp": "2024-02-01T00:00:00Z", "category": "movie", "filename": "new", "absolute_path": "/lib/a.mkv"}
	]`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	s := NewStore(NewFileBackend(path))
	records, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(records) != 1 || records[0].Filename != "new" {
		t.Errorf("Expected newest duplicate to win, got %+v", records)
	}
}

func TestStoreCategoryCounts(t *testing.T) {
	s, _ := loadedStore(t)
	now := time.Now()
	s.Append(testRecord("/a.mkv", now, mediatypes.CategoryMovie))
	s.Append(testRecord("/b.mkv", now, mediatypes.CategoryMovie))
	s.Append(testRecord("/c.pdf", now, mediatypes.CategoryMagazine))

	counts := s.CategoryCounts()
	if counts["movie"] != 2 || counts["magazine"] != 1 {
		t.Errorf("Unexpected counts: %v", counts)
	}
}

func TestStoreFind(t *testing.T) {
	s, _ := loadedStore(t)
	s.Append(testRecord("/lib/Show/S01E01.mkv", time.Now(), mediatypes.CategoryTVShow))

	r, ok := s.Find("/lib/show/s01e01.mkv")
	if !ok {
		t.Fatal("Expected record to be found")
	}
	if r.Category != mediatypes.CategoryTVShow {
		t.Errorf("Expected tvshow, got %s", r.Category)
	}
	if _, ok := s.Find("/lib/missing.mkv"); ok {
		t.Error("Expected missing record not to be found")
	}
}

func TestStoreReplace(t *testing.T) {
	s, path := loadedStore(t)
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	s.Append(testRecord("/lib/old.mkv", base, mediatypes.CategoryMovie))

	s.Replace([]Record{
		testRecord("/lib/a.mkv", base, mediatypes.CategoryMovie),
		testRecord("/lib/b.mkv", base.Add(time.Hour), mediatypes.CategoryTVShow),
		testRecord("/lib/A.mkv", base.Add(-time.Hour), mediatypes.CategoryMovie),
	})

	if s.Len() != 2 {
		t.Fatalf("Expected 2 records after replace, got %d", s.Len())
	}
	if s.Contains("/lib/old.mkv") {
		t.Error("Expected replaced record to be gone from the index")
	}
	if got := s.Records()[0].AbsolutePath; got != "/lib/b.mkv" {
		t.Errorf("Expected newest record first, got %s", got)
	}
	if r, _ := s.Find("/lib/a.mkv"); !r.Timestamp.Equal(base) {
		t.Errorf("Expected the newer of two case variants to win, got %v", r.Timestamp)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Expected Replace not to write the journal")
	}
}

func TestStoreReplaceDuringSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "media_updates.json")
	backend := &blockingBackend{
		FileBackend: NewFileBackend(path),
		saving:      make(chan struct{}),
		release:     make(chan struct{}),
	}
	s := NewStore(backend)
	if _, err := s.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	base := time.Now()
	s.Append(testRecord("/lib/a.mkv", base, mediatypes.CategoryMovie))
	s.Append(testRecord("/lib/b.mkv", base.Add(time.Second), mediatypes.CategoryMovie))

	errc := make(chan error, 1)
	go func() { errc <- s.Save(context.Background()) }()

	<-backend.saving
	s.Replace([]Record{testRecord("/lib/c.mkv", base, mediatypes.CategoryMovie)})
	close(backend.release)

	if err := <-errc; err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if !s.Contains("/lib/c.mkv") {
		t.Error("Expected the replaced record set to stay indexed")
	}
	if s.Contains("/lib/a.mkv") {
		t.Error("Expected the index not to revert to the saved snapshot")
	}
}
