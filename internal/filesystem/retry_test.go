package filesystem

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"
)

func testRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     4 * time.Millisecond,
	}
}

func TestDefaultRetryConfig(t *testing.T) {
	config := DefaultRetryConfig()

	if config.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", config.MaxRetries)
	}
	if config.InitialBackoff != 50*time.Millisecond {
		t.Errorf("InitialBackoff = %v, want 50ms", config.InitialBackoff)
	}
	if config.MaxBackoff != 500*time.Millisecond {
		t.Errorf("MaxBackoff = %v, want 500ms", config.MaxBackoff)
	}
}

func TestIsStaleError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil error", err: nil, want: false},
		{name: "ESTALE error", err: syscall.ESTALE, want: true},
		{name: "wrapped ESTALE", err: &os.PathError{Op: "stat", Path: "/x", Err: syscall.ESTALE}, want: true},
		{name: "ENOENT error", err: syscall.ENOENT, want: false},
		{name: "generic error", err: os.ErrNotExist, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isStaleError(tt.err); got != tt.want {
				t.Errorf("isStaleError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWithRetry_RecoversFromStaleHandle(t *testing.T) {
	calls := 0
	got, err := withRetry("stat", "/media/x.mkv", testRetryConfig(), func() (string, error) {
		calls++
		if calls < 3 {
			return "", &os.PathError{Op: "stat", Path: "/media/x.mkv", Err: syscall.ESTALE}
		}
		return "ok", nil
	})

	if err != nil {
		t.Fatalf("Expected success after retries, got %v", err)
	}
	if got != "ok" {
		t.Errorf("Expected ok, got %q", got)
	}
	if calls != 3 {
		t.Errorf("Expected 3 calls, got %d", calls)
	}
}

func TestWithRetry_GivesUpAfterMaxRetries(t *testing.T) {
	calls := 0
	_, err := withRetry("read", "/media/x.nfo", testRetryConfig(), func() ([]byte, error) {
		calls++
		return nil, syscall.ESTALE
	})

	if !errors.Is(err, syscall.ESTALE) {
		t.Errorf("Expected ESTALE, got %v", err)
	}
	if calls != 4 {
		t.Errorf("Expected 4 calls (1 + 3 retries), got %d", calls)
	}
}

func TestWithRetry_DoesNotRetryOtherErrors(t *testing.T) {
	calls := 0
	_, err := withRetry("stat", "/missing", testRetryConfig(), func() (int, error) {
		calls++
		return 0, fmt.Errorf("boom")
	})

	if err == nil {
		t.Fatal("Expected error")
	}
	if calls != 1 {
		t.Errorf("Expected 1 call, got %d", calls)
	}
}

func TestStatWithRetry_Success(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "episode.mkv")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	info, err := StatWithRetry(testFile, testRetryConfig())
	if err != nil {
		t.Fatalf("StatWithRetry() error = %v, want nil", err)
	}
	if info.Size() != 4 {
		t.Errorf("FileInfo.Size() = %d, want 4", info.Size())
	}
}

func TestStatWithRetry_NotExist(t *testing.T) {
	nonExistent := filepath.Join(t.TempDir(), "nonexistent.mkv")

	start := time.Now()
	info, err := StatWithRetry(nonExistent, DefaultRetryConfig())
	elapsed := time.Since(start)

	if !os.IsNotExist(err) {
		t.Errorf("StatWithRetry() error = %v, want os.IsNotExist", err)
	}
	if info != nil {
		t.Error("StatWithRetry() returned non-nil FileInfo for non-existent file")
	}
	if elapsed > 40*time.Millisecond {
		t.Errorf("StatWithRetry took %v, should not retry non-stale errors", elapsed)
	}
}

func TestReadFileWithRetry(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "tvshow.nfo")
	if err := os.WriteFile(path, []byte("<tvshow/>"), 0o644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	data, err := ReadFileWithRetry(path, testRetryConfig())
	if err != nil {
		t.Fatalf("ReadFileWithRetry() error = %v", err)
	}
	if string(data) != "<tvshow/>" {
		t.Errorf("Expected file content, got %q", string(data))
	}
}

func TestReadDirWithRetry(t *testing.T) {
	tmpDir := t.TempDir()
	for _, name := range []string{"Season 1", "Season 2"} {
		if err := os.Mkdir(filepath.Join(tmpDir, name), 0o755); err != nil {
			t.Fatalf("Failed to create dir: %v", err)
		}
	}

	entries, err := ReadDirWithRetry(tmpDir, testRetryConfig())
	if err != nil {
		t.Fatalf("ReadDirWithRetry() error = %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("Expected 2 entries, got %d", len(entries))
	}
}

func TestExistsAndIsDir(t *testing.T) {
	tmpDir := t.TempDir()
	file := filepath.Join(tmpDir, "a.pdf")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	if !Exists(file) {
		t.Error("Expected file to exist")
	}
	if IsDir(file) {
		t.Error("Expected file not to be a directory")
	}
	if !IsDir(tmpDir) {
		t.Error("Expected temp dir to be a directory")
	}
	if Exists(filepath.Join(tmpDir, "missing")) {
		t.Error("Expected missing path not to exist")
	}
}

func BenchmarkStatWithRetry_Success(b *testing.B) {
	tmpDir := b.TempDir()
	testFile := filepath.Join(tmpDir, "bench.mkv")
	if err := os.WriteFile(testFile, []byte("x"), 0o644); err != nil {
		b.Fatal(err)
	}
	config := DefaultRetryConfig()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = StatWithRetry(testFile, config)
	}
}
