package indexer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"media-watcher/internal/classify"
)

func isVideo(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".mkv" || ext == ".mp4"
}

func mkfile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}
}

func candidatePaths(cs []Candidate) map[string]bool {
	out := make(map[string]bool, len(cs))
	for _, c := range cs {
		out[c.Path] = c.IsDir
	}
	return out
}

func TestWalkerCollect(t *testing.T) {
	base := t.TempDir()
	movies := filepath.Join(base, "movies")
	series := filepath.Join(base, "series")
	collections := filepath.Join(base, "collections")

	mkfile(t, filepath.Join(movies, "A (2020)", "A.mkv"))
	mkfile(t, filepath.Join(movies, "A (2020)", "A.nfo"))
	mkfile(t, filepath.Join(movies, ".trash", "old.mkv"))
	mkfile(t, filepath.Join(movies, ".hidden.mp4"))
	mkfile(t, filepath.Join(series, "Show", "Season 1", "S01E01.MP4"))
	mkfile(t, filepath.Join(collections, "Box Set", "inner", "film.mkv"))
	mkfile(t, filepath.Join(collections, "loose.mkv"))
	if err := os.MkdirAll(filepath.Join(collections, ".partial"), 0o755); err != nil {
		t.Fatal(err)
	}

	w := NewWalker(classify.Roots{
		Movie:      []string{movies},
		Series:     []string{series},
		Collection: []string{collections},
	}, isVideo)

	got, err := w.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	want := map[string]bool{
		filepath.Join(collections, "Box Set"):                   true,
		filepath.Join(movies, "A (2020)", "A.mkv"):              false,
		filepath.Join(series, "Show", "Season 1", "S01E01.MP4"): false,
	}
	paths := candidatePaths(got)
	if len(paths) != len(want) {
		t.Errorf("Expected %d candidates, got %d: %v", len(want), len(paths), got)
	}
	for p, isDir := range want {
		gotDir, ok := paths[p]
		if !ok {
			t.Errorf("Expected candidate %s", p)
			continue
		}
		if gotDir != isDir {
			t.Errorf("Expected IsDir=%v for %s, got %v", isDir, p, gotDir)
		}
	}

	if got[0].Path != filepath.Join(collections, "Box Set") {
		t.Errorf("Expected collection candidates first, got %s", got[0].Path)
	}
}

func TestWalkerSkipsMissingRoots(t *testing.T) {
	base := t.TempDir()
	movies := filepath.Join(base, "movies")
	mkfile(t, filepath.Join(movies, "B.mp4"))

	w := NewWalker(classify.Roots{
		Movie:      []string{filepath.Join(base, "gone"), movies},
		Collection: []string{filepath.Join(base, "also-gone")},
	}, isVideo)

	got, err := w.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if len(got) != 1 || got[0].Path != filepath.Join(movies, "B.mp4") {
		t.Errorf("Expected only B.mp4, got %v", got)
	}
}

func TestWalkerCancellation(t *testing.T) {
	base := t.TempDir()
	for i := 0; i < 20; i++ {
		mkfile(t, filepath.Join(base, "m", string(rune('a'+i)), "x.mkv"))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w := NewWalker(classify.Roots{Movie: []string{filepath.Join(base, "m")}}, isVideo)
	if _, err := w.Collect(ctx); err == nil {
		t.Error("Expected error from cancelled context")
	}
}

func TestWalkerRootsOrder(t *testing.T) {
	w := NewWalker(classify.Roots{
		Movie:      []string{"/m"},
		Series:     []string{"/s"},
		Collection: []string{"/c"},
		Animation:  []string{"/a"},
		Magazine:   []string{"/z"},
	}, isVideo)

	got := strings.Join(w.Roots(), ",")
	if got != "/c,/a,/m,/s,/z" {
		t.Errorf("Expected /c,/a,/m,/s,/z, got %s", got)
	}
}
