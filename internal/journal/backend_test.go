package journal

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"media-watcher/internal/mediatypes"
)

func TestOpenBackendKinds(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	b, err := Open(ctx, "json", filepath.Join(dir, "media_updates.json"))
	if err != nil {
		t.Fatalf("Open json failed: %v", err)
	}
	if !strings.HasPrefix(b.String(), "json:") {
		t.Errorf("Expected json backend, got %s", b)
	}

	b, err = Open(ctx, "SQLite", filepath.Join(dir, "updates.db"))
	if err != nil {
		t.Fatalf("Open sqlite failed: %v", err)
	}
	defer b.Close()
	if !strings.HasPrefix(b.String(), "sqlite:") {
		t.Errorf("Expected sqlite backend, got %s", b)
	}

	if _, err := Open(ctx, "csv", filepath.Join(dir, "x")); err == nil {
		t.Error("Expected error for unknown backend")
	}
}

func TestSQLiteBackendRoundTrip(t *testing.T) {
	ctx := context.Background()
	backend, err := Open(ctx, BackendSQLite, filepath.Join(t.TempDir(), "updates.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer backend.Close()

	s := NewStore(backend)
	if _, err := s.Load(ctx); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	base := time.Date(2024, 7, 1, 20, 0, 0, 0, time.Local)
	s.Append(Record{
		Timestamp:    base,
		Category:     mediatypes.CategoryCollection,
		Filename:     "Season 1",
		AbsolutePath: "/lib/全集/Show/Season 1",
		RelativePath: "Show/Season 1",
		ExternalID:   "777",
		ExternalURL:  "https://www.themoviedb.org/tv/777",
	})
	s.Append(Record{
		Timestamp:    base.Add(time.Minute),
		Category:     mediatypes.CategoryMagazine,
		Filename:     "issue.pdf",
		AbsolutePath: "/lib/《雜誌》/issue.pdf",
		RelativePath: "《雜誌》/issue.pdf",
		Synopsis:     "雜誌已更新。",
	})

	if err := s.Save(ctx); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	reloaded := NewStore(backend)
	records, err := reloaded.Load(ctx)
	if err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(records))
	}
	if records[0].Category != mediatypes.CategoryMagazine {
		t.Errorf("Expected magazine first, got %s", records[0].Category)
	}
	if records[1].ExternalID != "777" {
		t.Errorf("Expected external id 777, got %q", records[1].ExternalID)
	}
	if !records[1].Timestamp.Equal(base) {
		t.Errorf("Expected timestamp %v, got %v", base, records[1].Timestamp)
	}

	sb := backend.(*SQLiteBackend)
	last, err := sb.LastSave(ctx)
	if err != nil || last.IsZero() {
		t.Errorf("Expected a recorded save time, got %v (%v)", last, err)
	}
	counts, err := sb.RowCounts(ctx)
	if err != nil {
		t.Fatalf("RowCounts failed: %v", err)
	}
	if counts["collection"] != 1 || counts["magazine"] != 1 {
		t.Errorf("Unexpected row counts: %v", counts)
	}
}

func TestSQLiteBackendKeepsSubSecondOrder(t *testing.T) {
	ctx := context.Background()
	backend, err := Open(ctx, BackendSQLite, filepath.Join(t.TempDir(), "updates.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer backend.Close()

	s := NewStore(backend)
	if _, err := s.Load(ctx); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	base := time.Date(2024, 7, 1, 20, 0, 0, 100*int(time.Millisecond), time.UTC)
	s.Append(testRecord("/lib/first.mkv", base, mediatypes.CategoryMovie))
	s.Append(testRecord("/lib/second.mkv", base.Add(300*time.Millisecond), mediatypes.CategoryMovie))
	s.Append(testRecord("/lib/third.mkv", base.Add(600*time.Millisecond), mediatypes.CategoryMovie))
	if err := s.Save(ctx); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	records, err := NewStore(backend).Load(ctx)
	if err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	want := []string{"third.mkv", "second.mkv", "first.mkv"}
	if len(records) != len(want) {
		t.Fatalf("Expected %d records, got %d", len(want), len(records))
	}
	for i, name := range want {
		if records[i].Filename != name {
			t.Errorf("Expected %s at position %d, got %s", name, i, records[i].Filename)
		}
	}
	if !records[2].Timestamp.Equal(base) {
		t.Errorf("Expected sub-second timestamp %v, got %v", base, records[2].Timestamp)
	}
}
