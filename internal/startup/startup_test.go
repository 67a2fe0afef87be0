package startup

import (
	"bytes"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"media-watcher/internal/mediatypes"
)

// clearConfigEnv unsets every setting for the duration of the test.
func clearConfigEnv(t *testing.T) {
	t.Helper()
	keys := []string{"CONFIG_FILE"}
	for k := range knownKeys {
		keys = append(keys, k)
	}
	for _, k := range keys {
		if v, ok := os.LookupEnv(k); ok {
			t.Setenv(k, v)
			os.Unsetenv(k)
		}
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestGetBuildInfo(t *testing.T) {
	info := GetBuildInfo()

	if info.Version == "" {
		t.Error("Expected Version to be set")
	}
	if info.OS == "" {
		t.Error("Expected OS to be set")
	}
	if info.Arch == "" {
		t.Error("Expected Arch to be set")
	}
	if info.GoVersion != GoVersion {
		t.Errorf("Expected GoVersion=%s, got %s", GoVersion, info.GoVersion)
	}
}

func TestSourceStr(t *testing.T) {
	clearConfigEnv(t)
	src := &source{file: map[string]string{"SITE_DIR": "/from/file", "PORT": "9000"}}

	tests := []struct {
		name   string
		key    string
		env    string
		setEnv bool
		want   string
	}{
		{name: "Returns default when unset", key: "CATALOG_URL", want: "default"},
		{name: "Returns file value", key: "SITE_DIR", want: "/from/file"},
		{name: "Environment overrides file", key: "PORT", env: "9100", setEnv: true, want: "9100"},
		{name: "Empty environment value falls through to file", key: "SITE_DIR", env: "", setEnv: true, want: "/from/file"},
		{name: "Trims whitespace", key: "GIT_BRANCH", env: "  gh-pages ", setEnv: true, want: "gh-pages"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.setEnv {
				t.Setenv(tt.key, tt.env)
			}
			if got := src.str(tt.key, "default"); got != tt.want {
				t.Errorf("str(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}

func TestSourceOptionalHonoursEmpty(t *testing.T) {
	clearConfigEnv(t)
	src := &source{file: map[string]string{}}

	if got := src.optional("GIT_REMOTE", "origin"); got != "origin" {
		t.Errorf("Expected default origin, got %q", got)
	}
	t.Setenv("GIT_REMOTE", "")
	if got := src.optional("GIT_REMOTE", "origin"); got != "" {
		t.Errorf("Expected explicit empty remote, got %q", got)
	}
}

func TestSourceBoolean(t *testing.T) {
	clearConfigEnv(t)
	src := &source{file: map[string]string{}}

	tests := []struct {
		value        string
		defaultValue bool
		want         bool
	}{
		{"true", false, true},
		{"1", false, true},
		{"T", false, true},
		{"FALSE", true, false},
		{"0", true, false},
		{"not-a-bool", true, true},
		{"yes", false, false},
		{"   ", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("PUBLISH_ENABLED", tt.value)
			if got := src.boolean("PUBLISH_ENABLED", tt.defaultValue); got != tt.want {
				t.Errorf("boolean(%q, %v) = %v, want %v", tt.value, tt.defaultValue, got, tt.want)
			}
		})
	}
}

func TestSourceDurationAndInt(t *testing.T) {
	clearConfigEnv(t)
	src := &source{file: map[string]string{}}

	t.Setenv("POLL_INTERVAL", "90s")
	if got := src.duration("POLL_INTERVAL", time.Minute); got != 90*time.Second {
		t.Errorf("Expected 90s, got %v", got)
	}
	t.Setenv("POLL_INTERVAL", "soon")
	if got := src.duration("POLL_INTERVAL", time.Minute); got != time.Minute {
		t.Errorf("Expected default for invalid duration, got %v", got)
	}
	t.Setenv("POLL_INTERVAL", "-5s")
	if got := src.duration("POLL_INTERVAL", time.Minute); got != time.Minute {
		t.Errorf("Expected default for negative duration, got %v", got)
	}

	t.Setenv("BATCH_SIZE", "25")
	if got := src.positiveInt("BATCH_SIZE", 50); got != 25 {
		t.Errorf("Expected 25, got %d", got)
	}
	for _, bad := range []string{"0", "-3", "many"} {
		t.Setenv("BATCH_SIZE", bad)
		if got := src.positiveInt("BATCH_SIZE", 50); got != 50 {
			t.Errorf("Expected default for %q, got %d", bad, got)
		}
	}
}

func TestSourcePaths(t *testing.T) {
	clearConfigEnv(t)
	src := &source{file: map[string]string{}}

	sep := string(os.PathListSeparator)
	t.Setenv("MOVIE_DIRS", "/a"+sep+sep+" /b/ "+sep)
	got := src.paths("MOVIE_DIRS")
	if len(got) != 2 || got[0] != "/a" || got[1] != "/b" {
		t.Errorf("Expected [/a /b], got %v", got)
	}
	if got := src.paths("SERIES_DIRS"); got != nil {
		t.Errorf("Expected nil for unset list, got %v", got)
	}
}

func TestSourceParseYAML(t *testing.T) {
	src := &source{file: map[string]string{}}
	err := src.parse([]byte(`
movie-dirs:
  - /srv/movies
  - /mnt/films
video_extensions: [mkv, mp4, avi]
BATCH_SIZE: 10
publish_enabled: false
colour: blue
`))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	sep := string(os.PathListSeparator)
	if got := src.file["MOVIE_DIRS"]; got != "/srv/movies"+sep+"/mnt/films" {
		t.Errorf("Expected directory list joined with %q, got %q", sep, got)
	}
	if got := src.file["VIDEO_EXTENSIONS"]; got != "mkv,mp4,avi" {
		t.Errorf("Expected comma-joined extensions, got %q", got)
	}
	if got := src.file["BATCH_SIZE"]; got != "10" {
		t.Errorf("Expected BATCH_SIZE=10, got %q", got)
	}
	if got := src.file["PUBLISH_ENABLED"]; got != "false" {
		t.Errorf("Expected PUBLISH_ENABLED=false, got %q", got)
	}
	if _, ok := src.file["COLOUR"]; ok {
		t.Error("Expected unknown key to be ignored")
	}
}

func TestSourceParseRejectsNestedValues(t *testing.T) {
	src := &source{file: map[string]string{}}
	if err := src.parse([]byte("site_dir:\n  path: /srv/site\n")); err == nil {
		t.Error("Expected error for mapping value")
	}
	if err := src.parse([]byte("- just\n- a list\n")); err == nil {
		t.Error("Expected error for a top-level list")
	}
}

func TestLoadConfigFileAndEnvironment(t *testing.T) {
	clearConfigEnv(t)
	library := t.TempDir()
	siteDir := filepath.Join(t.TempDir(), "site")
	path := writeConfig(t, `
series_dirs: [`+library+`]
site_dir: `+siteDir+`
poll_interval: 1m
batch_size: 20
default_category: movie
git_branch: gh-pages
`)
	t.Setenv("BATCH_SIZE", "5")
	t.Setenv("PUBLISH_ENABLED", "false")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.ConfigFile != path {
		t.Errorf("Expected ConfigFile=%s, got %s", path, cfg.ConfigFile)
	}
	if len(cfg.Roots.Series) != 1 || cfg.Roots.Series[0] != library {
		t.Errorf("Expected series root %s, got %v", library, cfg.Roots.Series)
	}
	if cfg.SiteDir != siteDir {
		t.Errorf("Expected SiteDir=%s, got %s", siteDir, cfg.SiteDir)
	}
	if _, err := os.Stat(siteDir); err != nil {
		t.Errorf("Expected site directory to be created: %v", err)
	}
	if cfg.PollInterval != time.Minute {
		t.Errorf("Expected PollInterval=1m, got %v", cfg.PollInterval)
	}
	if cfg.BatchSize != 5 {
		t.Errorf("Expected environment BATCH_SIZE=5 to win, got %d", cfg.BatchSize)
	}
	if cfg.PublishEnabled {
		t.Error("Expected publishing disabled")
	}
	if cfg.DefaultCategory != mediatypes.CategoryMovie {
		t.Errorf("Expected DefaultCategory=movie, got %s", cfg.DefaultCategory)
	}
	if cfg.GitRemote != DefaultGitRemote || cfg.GitBranch != "gh-pages" {
		t.Errorf("Expected origin gh-pages, got %s %s", cfg.GitRemote, cfg.GitBranch)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearConfigEnv(t)
	library := t.TempDir()
	siteDir := t.TempDir()
	t.Setenv("MOVIE_DIRS", library)
	t.Setenv("SITE_DIR", siteDir)

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.PollInterval != DefaultPollInterval {
		t.Errorf("Expected PollInterval=%v, got %v", DefaultPollInterval, cfg.PollInterval)
	}
	if cfg.BatchSize != DefaultBatchSize {
		t.Errorf("Expected BatchSize=%d, got %d", DefaultBatchSize, cfg.BatchSize)
	}
	if cfg.DebounceDelay != DefaultDebounceDelay || cfg.SettleDelay != DefaultSettleDelay || cfg.SidecarDelay != DefaultSidecarDelay {
		t.Errorf("Unexpected delays: %v %v %v", cfg.DebounceDelay, cfg.SettleDelay, cfg.SidecarDelay)
	}
	if cfg.DefaultCategory != mediatypes.CategoryTVShow {
		t.Errorf("Expected DefaultCategory=tvshow, got %s", cfg.DefaultCategory)
	}
	if !cfg.VideoExtensions.Contains(".mkv") || !cfg.DocumentExtensions.Contains(".pdf") {
		t.Errorf("Unexpected extensions: %s %s", cfg.VideoExtensions, cfg.DocumentExtensions)
	}
	if cfg.JournalPath != filepath.Join(siteDir, "media_updates.json") {
		t.Errorf("Expected journal in site dir, got %s", cfg.JournalPath)
	}
	if !cfg.JournalIsArchiveData() {
		t.Error("Expected the default JSON journal to be the archive data file")
	}
	if cfg.LogDir != filepath.Join(siteDir, "GDLogs") {
		t.Errorf("Expected LogDir under site dir, got %s", cfg.LogDir)
	}
	if !cfg.PublishEnabled || !cfg.HTTPEnabled || cfg.Port != "8080" {
		t.Errorf("Unexpected publish/http defaults: %v %v %s", cfg.PublishEnabled, cfg.HTTPEnabled, cfg.Port)
	}
	if cfg.CatalogURL != DefaultCatalogURL {
		t.Errorf("Expected CatalogURL=%s, got %s", DefaultCatalogURL, cfg.CatalogURL)
	}
}

func TestLoadConfigSQLiteJournal(t *testing.T) {
	clearConfigEnv(t)
	siteDir := t.TempDir()
	t.Setenv("MAGAZINE_DIRS", t.TempDir())
	t.Setenv("SITE_DIR", siteDir)
	t.Setenv("JOURNAL_BACKEND", "SQLite")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.JournalBackend != "sqlite" {
		t.Errorf("Expected backend sqlite, got %s", cfg.JournalBackend)
	}
	if cfg.JournalPath != filepath.Join(siteDir, DefaultSQLiteJournal) {
		t.Errorf("Expected %s, got %s", DefaultSQLiteJournal, cfg.JournalPath)
	}
	if cfg.JournalIsArchiveData() {
		t.Error("Expected SQLite journal to need an archive export")
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		path    string
		message string
	}{
		{
			name:    "no roots",
			env:     map[string]string{},
			message: "No library directories configured",
		},
		{
			name:    "roots missing",
			env:     map[string]string{"MOVIE_DIRS": "/nonexistent/movies"},
			message: "None of the library directories exist",
		},
		{
			name:    "unknown backend",
			env:     map[string]string{"JOURNAL_BACKEND": "csv"},
			message: "Unknown JOURNAL_BACKEND",
		},
		{
			name:    "missing config file",
			path:    "/nonexistent/config.yaml",
			message: "Cannot read config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearConfigEnv(t)
			t.Setenv("SITE_DIR", t.TempDir())
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := LoadConfig(tt.path)
			if err == nil {
				t.Fatal("Expected error")
			}
			var se *Error
			if !errors.As(err, &se) {
				t.Fatalf("Expected *Error, got %T", err)
			}
			if !strings.Contains(se.Message, tt.message) {
				t.Errorf("Expected message containing %q, got %q", tt.message, se.Message)
			}
			if se.Fix == "" {
				t.Error("Expected a Fix hint")
			}
		})
	}
}

func TestLoadConfigSiteDirIsFile(t *testing.T) {
	clearConfigEnv(t)
	file := filepath.Join(t.TempDir(), "site")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MOVIE_DIRS", t.TempDir())
	t.Setenv("SITE_DIR", file)

	if _, err := LoadConfig(""); err == nil {
		t.Error("Expected error when SITE_DIR is a file")
	}
}

func TestErrorFormat(t *testing.T) {
	cause := errors.New("permission denied")
	err := NewError("Site directory is not writable", "", "Fix the permissions", cause)

	if !errors.Is(err, cause) {
		t.Error("Expected error to unwrap to its cause")
	}
	if err.Error() != "Site directory is not writable: permission denied" {
		t.Errorf("Unexpected Error(): %s", err.Error())
	}

	out := err.Format(true)
	want := "Error: Site directory is not writable\nCause: permission denied\nFix:   Fix the permissions\n"
	if out != want {
		t.Errorf("Format() = %q, want %q", out, want)
	}

	bare := NewError("Boom", "", "", nil).Format(true)
	if bare != "Error: Boom\n" {
		t.Errorf("Expected empty sections omitted, got %q", bare)
	}
}

func TestWriteFatalWithoutTerminal(t *testing.T) {
	var buf bytes.Buffer
	writeFatal(&buf, errors.New("plain failure"))

	out := buf.String()
	if !strings.HasPrefix(out, "Error: Startup failed\n") {
		t.Errorf("Expected generic heading, got %q", out)
	}
	if !strings.Contains(out, "Cause: plain failure") {
		t.Errorf("Expected cause line, got %q", out)
	}
	if strings.Contains(out, "\x1b[") {
		t.Errorf("Expected no color codes for a non-terminal writer, got %q", out)
	}
}

func TestGetRoutes(t *testing.T) {
	router := mux.NewRouter()
	router.HandleFunc("/healthz", func(http.ResponseWriter, *http.Request) {}).Methods("GET").Name("health")
	router.HandleFunc("/api/scan", func(http.ResponseWriter, *http.Request) {}).Methods("POST")

	routes, err := GetRoutes(router)
	if err != nil {
		t.Fatalf("GetRoutes failed: %v", err)
	}
	if len(routes) != 2 {
		t.Fatalf("Expected 2 routes, got %d", len(routes))
	}
	if routes[0].Method != "GET" || routes[0].Path != "/healthz" || routes[0].Name != "health" {
		t.Errorf("Unexpected first route: %+v", routes[0])
	}
	if routes[1].Method != "POST" || routes[1].Path != "/api/scan" {
		t.Errorf("Unexpected second route: %+v", routes[1])
	}
}

func TestGetRouteGroup(t *testing.T) {
	tests := map[string]string{
		"/api/updates":   "api/updates",
		"/api/scan/now":  "api/scan",
		"/healthz":       "healthz",
		"/":              "",
		"/metrics":       "metrics",
		"/archive.html":  "archive.html",
		"/api":           "api",
		"/api/stats/all": "api/stats",
	}
	for path, want := range tests {
		if got := getRouteGroup(path); got != want {
			t.Errorf("getRouteGroup(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestTestWriteAccess(t *testing.T) {
	dir := t.TempDir()
	if err := testWriteAccess(dir); err != nil {
		t.Errorf("Expected writable temp dir, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, ".write-test")); !os.IsNotExist(err) {
		t.Error("Expected write test file to be removed")
	}
	if err := testWriteAccess(filepath.Join(dir, "missing")); err == nil {
		t.Error("Expected error for missing directory")
	}
}
