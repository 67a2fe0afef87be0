package filesystem

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteFileAtomic_CreatesAndReplaces(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "site")
	path := filepath.Join(dir, "media_updates.json")

	if err := WriteFileAtomic(path, []byte("[]"), 0o644); err != nil {
		t.Fatalf("WriteFileAtomic failed: %v", err)
	}
	if err := WriteFileAtomic(path, []byte("[{}]"), 0o644); err != nil {
		t.Fatalf("WriteFileAtomic replace failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file: %v", err)
	}
	if string(data) != "[{}]" {
		t.Errorf("Expected replaced content, got %q", string(data))
	}
}

func TestWriteFileAtomic_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.html")

	if err := WriteFileAtomic(path, []byte("<html></html>"), 0o644); err != nil {
		t.Fatalf("WriteFileAtomic failed: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	for _, e := range entries {
		if strings.Contains(e.Name(), ".tmp-") {
			t.Errorf("Temp file left behind: %s", e.Name())
		}
	}
	if len(entries) != 1 {
		t.Errorf("Expected 1 entry, got %d", len(entries))
	}
}

func TestWriteFileAtomic_TargetIsDirectory(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "index.html")
	if err := os.Mkdir(target, 0o755); err != nil {
		t.Fatalf("Mkdir failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(target, "keep"), nil, 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	if err := WriteFileAtomic(target, []byte("x"), 0o644); err == nil {
		t.Error("Expected error when target is a non-empty directory")
	}
}
