package startup

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"media-watcher/internal/classify"
	"media-watcher/internal/journal"
	"media-watcher/internal/logging"
	"media-watcher/internal/mediatypes"
	"media-watcher/internal/site"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// RouteInfo contains information about a registered route
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

// Defaults for values not set in the config file or environment.
const (
	DefaultPollInterval    = 5 * time.Minute
	DefaultBatchSize       = 50
	DefaultDebounceDelay   = 15 * time.Second
	DefaultSettleDelay     = 5 * time.Second
	DefaultSidecarDelay    = 2 * time.Second
	DefaultCatalogURL      = "https://www.themoviedb.org"
	DefaultGitRemote       = "origin"
	DefaultGitBranch       = "main"
	DefaultPort            = "8080"
	DefaultLogDirName      = "GDLogs"
	DefaultSQLiteJournal   = "media_updates.db"
	DefaultDefaultCategory = mediatypes.CategoryTVShow
)

// Config holds all application configuration
type Config struct {
	ConfigFile string

	Roots              classify.Roots
	LibraryBase        string
	VideoExtensions    mediatypes.ExtensionSet
	DocumentExtensions mediatypes.ExtensionSet

	SiteDir        string
	JournalBackend string
	JournalPath    string
	LogDir         string

	PollInterval  time.Duration
	BatchSize     int
	DebounceDelay time.Duration
	SettleDelay   time.Duration
	SidecarDelay  time.Duration

	MaxIndexItems     int
	ItemsPerPage      int
	DefaultCategory   mediatypes.Category
	CatalogURL        string
	MagazineSynopsis  string
	AnimationSynopsis string

	PublishEnabled bool
	GitRemote      string
	GitBranch      string

	HTTPEnabled     bool
	Port            string
	LogStaticFiles  bool
	LogHealthChecks bool
}

// JournalIsArchiveData reports whether the JSON journal is the same file the
// archive page reads, in which case the renderer must not overwrite it.
func (c *Config) JournalIsArchiveData() bool {
	if c.JournalBackend == journal.BackendSQLite {
		return false
	}
	return filepath.Clean(c.JournalPath) == filepath.Join(c.SiteDir, site.ArchiveDataFile)
}

// LoadConfig loads the optional YAML file at path, applies environment
// overrides and validates the result. The returned errors are *Error values
// suitable for Fatal.
func LoadConfig(path string) (*Config, error) {
	printBanner()
	logSystemInfo()

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	src, err := newSource(path)
	if err != nil {
		return nil, NewError("Cannot read config file "+path,
			"The file is missing or is not a YAML mapping of setting names to values",
			"Fix the file or start without --config to use environment variables only", err)
	}
	if path != "" {
		logging.Info("  CONFIG_FILE:         %s", path)
	} else {
		logging.Info("  CONFIG_FILE:         (none, environment only)")
	}

	cfg := &Config{
		ConfigFile: path,
		Roots: classify.Roots{
			Movie:      src.paths("MOVIE_DIRS"),
			Series:     src.paths("SERIES_DIRS"),
			Collection: src.paths("COLLECTION_DIRS"),
			Animation:  src.paths("ANIMATION_DIRS"),
			Magazine:   src.paths("MAGAZINE_DIRS"),
		},
		LibraryBase:        src.str("LIBRARY_BASE", ""),
		VideoExtensions:    mediatypes.ParseExtensions(src.str("VIDEO_EXTENSIONS", mediatypes.DefaultVideoExtensions)),
		DocumentExtensions: mediatypes.ParseExtensions(src.str("DOCUMENT_EXTENSIONS", mediatypes.DefaultDocumentExtensions)),
		SiteDir:            src.str("SITE_DIR", "."),
		JournalBackend:     strings.ToLower(src.str("JOURNAL_BACKEND", journal.BackendJSON)),
		PollInterval:       src.duration("POLL_INTERVAL", DefaultPollInterval),
		BatchSize:          src.positiveInt("BATCH_SIZE", DefaultBatchSize),
		DebounceDelay:      src.duration("DEBOUNCE_DELAY", DefaultDebounceDelay),
		SettleDelay:        src.duration("SETTLE_DELAY", DefaultSettleDelay),
		SidecarDelay:       src.duration("SIDECAR_DELAY", DefaultSidecarDelay),
		MaxIndexItems:      src.positiveInt("MAX_INDEX_ITEMS", site.DefaultMaxIndexItems),
		ItemsPerPage:       src.positiveInt("ITEMS_PER_PAGE", site.DefaultItemsPerPage),
		CatalogURL:         strings.TrimRight(src.str("CATALOG_URL", DefaultCatalogURL), "/"),
		MagazineSynopsis:   src.str("MAGAZINE_SYNOPSIS", ""),
		AnimationSynopsis:  src.str("ANIMATION_SYNOPSIS", ""),
		PublishEnabled:     src.boolean("PUBLISH_ENABLED", true),
		GitRemote:          src.optional("GIT_REMOTE", DefaultGitRemote),
		GitBranch:          src.str("GIT_BRANCH", DefaultGitBranch),
		HTTPEnabled:        src.boolean("HTTP_ENABLED", true),
		Port:               src.str("PORT", DefaultPort),
		LogStaticFiles:     src.boolean("LOG_STATIC_FILES", false),
		LogHealthChecks:    src.boolean("LOG_HEALTH_CHECKS", false),
	}

	category := src.str("DEFAULT_CATEGORY", string(DefaultDefaultCategory))
	if c, ok := mediatypes.ParseCategory(category); ok {
		cfg.DefaultCategory = c
	} else {
		logging.Warn("  Invalid DEFAULT_CATEGORY %q, using default: %s", category, DefaultDefaultCategory)
		cfg.DefaultCategory = DefaultDefaultCategory
	}

	switch cfg.JournalBackend {
	case journal.BackendJSON, journal.BackendSQLite:
	default:
		return nil, NewError(fmt.Sprintf("Unknown JOURNAL_BACKEND %q", cfg.JournalBackend),
			"Only the json and sqlite journal backends exist", "Set JOURNAL_BACKEND to json or sqlite", nil)
	}
	defaultJournal := site.ArchiveDataFile
	if cfg.JournalBackend == journal.BackendSQLite {
		defaultJournal = DefaultSQLiteJournal
	}
	cfg.JournalPath = src.str("JOURNAL_PATH", defaultJournal)

	logging.Info("  MOVIE_DIRS:          %s", formatList(cfg.Roots.Movie))
	logging.Info("  SERIES_DIRS:         %s", formatList(cfg.Roots.Series))
	logging.Info("  COLLECTION_DIRS:     %s", formatList(cfg.Roots.Collection))
	logging.Info("  ANIMATION_DIRS:      %s", formatList(cfg.Roots.Animation))
	logging.Info("  MAGAZINE_DIRS:       %s", formatList(cfg.Roots.Magazine))
	logging.Info("  LIBRARY_BASE:        %s", valueOrNone(cfg.LibraryBase))
	logging.Info("  VIDEO_EXTENSIONS:    %s", cfg.VideoExtensions)
	logging.Info("  DOCUMENT_EXTENSIONS: %s", cfg.DocumentExtensions)
	logging.Info("  SITE_DIR:            %s", cfg.SiteDir)
	logging.Info("  JOURNAL_BACKEND:     %s", cfg.JournalBackend)
	logging.Info("  JOURNAL_PATH:        %s", cfg.JournalPath)
	logging.Info("  POLL_INTERVAL:       %v", cfg.PollInterval)
	logging.Info("  BATCH_SIZE:          %d", cfg.BatchSize)
	logging.Info("  DEBOUNCE_DELAY:      %v", cfg.DebounceDelay)
	logging.Info("  SETTLE_DELAY:        %v", cfg.SettleDelay)
	logging.Info("  SIDECAR_DELAY:       %v", cfg.SidecarDelay)
	logging.Info("  MAX_INDEX_ITEMS:     %d", cfg.MaxIndexItems)
	logging.Info("  ITEMS_PER_PAGE:      %d", cfg.ItemsPerPage)
	logging.Info("  DEFAULT_CATEGORY:    %s", cfg.DefaultCategory)
	logging.Info("  CATALOG_URL:         %s", cfg.CatalogURL)
	logging.Info("  PUBLISH_ENABLED:     %v", cfg.PublishEnabled)
	logging.Info("  GIT_REMOTE:          %s", valueOrNone(cfg.GitRemote))
	logging.Info("  GIT_BRANCH:          %s", cfg.GitBranch)
	logging.Info("  HTTP_ENABLED:        %v", cfg.HTTPEnabled)
	logging.Info("  PORT:                %s", cfg.Port)
	logging.Info("  LOG_LEVEL:           %s", logging.GetLevel())

	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DIRECTORY SETUP")
	logging.Info("------------------------------------------------------------")

	if err := cfg.resolvePaths(src); err != nil {
		return nil, err
	}
	if err := cfg.checkRoots(); err != nil {
		return nil, err
	}

	if err := ensureDirectory(cfg.SiteDir, "site"); err != nil {
		return nil, NewError("Site directory is unusable: "+cfg.SiteDir,
			"", "Point SITE_DIR at a writable directory (usually the git checkout that is published)", err)
	}
	logging.Debug("  Testing site directory write access...")
	if err := testWriteAccess(cfg.SiteDir); err != nil {
		return nil, NewError("Site directory is not writable: "+cfg.SiteDir,
			"", "Fix the directory permissions or point SITE_DIR elsewhere", err)
	}
	logging.Info("  [OK] Site directory is writable")

	logging.Info("")
	logging.Info("  Feature availability:")
	logging.Info("    Journal:     %s", strings.ToUpper(cfg.JournalBackend))
	logging.Info("    Publishing:  %s", enabledString(cfg.PublishEnabled))
	logging.Info("    HTTP server: %s", enabledString(cfg.HTTPEnabled))

	return cfg, nil
}

// resolvePaths makes every configured path absolute. Relative journal and
// log paths are taken relative to the site directory.
func (c *Config) resolvePaths(src *source) error {
	var err error
	if c.SiteDir, err = filepath.Abs(c.SiteDir); err != nil {
		return NewError("Cannot resolve SITE_DIR", "", "Use an absolute path", err)
	}
	logging.Info("  Site directory (absolute): %s", c.SiteDir)

	if !filepath.IsAbs(c.JournalPath) {
		c.JournalPath = filepath.Join(c.SiteDir, c.JournalPath)
	}
	logging.Info("  Journal (absolute):        %s", c.JournalPath)

	c.LogDir = src.str("LOG_DIR", filepath.Join(c.SiteDir, DefaultLogDirName))
	if !filepath.IsAbs(c.LogDir) {
		c.LogDir = filepath.Join(c.SiteDir, c.LogDir)
	}
	logging.Info("  Log directory (absolute):  %s", c.LogDir)

	if c.LibraryBase != "" {
		if c.LibraryBase, err = filepath.Abs(c.LibraryBase); err != nil {
			return NewError("Cannot resolve LIBRARY_BASE", "", "Use an absolute path", err)
		}
	}

	for _, list := range []*[]string{&c.Roots.Movie, &c.Roots.Series, &c.Roots.Collection, &c.Roots.Animation, &c.Roots.Magazine} {
		for i, p := range *list {
			abs, err := filepath.Abs(p)
			if err != nil {
				return NewError("Cannot resolve library directory "+p, "", "Use absolute paths in the *_DIRS settings", err)
			}
			(*list)[i] = abs
		}
	}
	return nil
}

// checkRoots requires at least one configured library root to exist.
// Missing roots are reported and left in place; the walker skips them.
func (c *Config) checkRoots() error {
	all := c.Roots.All()
	if len(all) == 0 {
		return NewError("No library directories configured",
			"MOVIE_DIRS, SERIES_DIRS, COLLECTION_DIRS, ANIMATION_DIRS and MAGAZINE_DIRS are all empty",
			"Set at least one of them, separating multiple directories with "+string(os.PathListSeparator), nil)
	}

	found := 0
	for _, root := range all {
		info, err := os.Stat(root)
		switch {
		case err != nil:
			logging.Warn("  Library directory unavailable: %s (%v)", root, err)
		case !info.IsDir():
			logging.Warn("  Library path is not a directory: %s", root)
		default:
			logging.Debug("  [OK] Library directory: %s", root)
			found++
		}
	}
	if found == 0 {
		return NewError("None of the library directories exist",
			fmt.Sprintf("%d configured directories could not be opened", len(all)),
			"Check that the library volumes are mounted and the *_DIRS settings are correct", nil)
	}
	logging.Info("  [OK] %d of %d library directories available", found, len(all))
	return nil
}

func enabledString(enabled bool) string {
	if enabled {
		return "ENABLED"
	}
	return "DISABLED"
}

func formatList(values []string) string {
	if len(values) == 0 {
		return "(none)"
	}
	return strings.Join(values, string(os.PathListSeparator))
}

func valueOrNone(v string) string {
	if v == "" {
		return "(none)"
	}
	return v
}

// LogJournalInit logs journal initialization
func LogJournalInit(backend fmt.Stringer, records int, duration time.Duration) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("JOURNAL INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Backend:  %s", backend)
	logging.Info("  [OK] %d records loaded in %v", records, duration)
}

// LogPublisherInit logs the publisher setup. gitVersion is empty when
// publishing is disabled.
func LogPublisherInit(enabled bool, remote, branch, gitVersion string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("PUBLISHER INITIALIZATION")
	logging.Info("------------------------------------------------------------")

	if !enabled {
		logging.Info("  Publishing disabled (PUBLISH_ENABLED=false)")
		logging.Info("  The site is rendered locally only")
		return
	}
	logging.Info("  [OK] %s", gitVersion)
	if remote == "" {
		logging.Info("  Commits stay local (GIT_REMOTE is empty)")
		return
	}
	logging.Info("  Push target: %s %s", remote, branch)
}

// LogDiscoveryInit logs watcher and poller setup.
func LogDiscoveryInit(watchedDirs int, interval time.Duration) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DISCOVERY INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Watched directories: %d", watchedDirs)
	logging.Info("  Poll interval:       %v", interval)
	logging.Info("  Starting poller...")
}

// LogDiscoveryStarted logs successful watcher and poller start
func LogDiscoveryStarted() {
	logging.Info("  [OK] Watcher and poller started")
}

// GetRoutes extracts all registered routes from a mux.Router
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			return err
		}

		methods, err := route.GetMethods()
		if err != nil {
			methods = []string{"*"}
		}

		for _, method := range methods {
			routes = append(routes, RouteInfo{
				Method: method,
				Path:   pathTemplate,
				Name:   route.GetName(),
			})
		}
		return nil
	})

	return routes, err
}

// LogHTTPRoutes logs all registered HTTP routes at debug level
func LogHTTPRoutes(router *mux.Router, logStaticFiles, logHealthChecks bool) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("HTTP SERVER SETUP")
	logging.Info("------------------------------------------------------------")

	if logging.IsDebugEnabled() {
		routes, err := GetRoutes(router)
		if err != nil {
			logging.Warn("error walking routes: %v", err)
		}

		logging.Debug("  Registered routes (%d total):", len(routes))
		logging.Debug("")

		groups := make(map[string][]RouteInfo)
		for _, route := range routes {
			prefix := getRouteGroup(route.Path)
			groups[prefix] = append(groups[prefix], route)
		}

		groupKeys := make([]string, 0, len(groups))
		for k := range groups {
			groupKeys = append(groupKeys, k)
		}
		sort.Strings(groupKeys)

		for _, group := range groupKeys {
			if group != "" {
				logging.Debug("  [%s]", group)
			} else {
				logging.Debug("  [root]")
			}
			for _, route := range groups[group] {
				logging.Debug("    %-6s %s", route.Method, route.Path)
			}
			logging.Debug("")
		}
	}

	logging.Info("  HTTP logging enabled")
	if logStaticFiles {
		logging.Info("    Static file logging: ON")
	} else {
		logging.Info("    Static file logging: OFF (set LOG_STATIC_FILES=true to enable)")
	}
	if logHealthChecks {
		logging.Info("    Health check logging: ON")
	} else {
		logging.Info("    Health check logging: OFF (set LOG_HEALTH_CHECKS=true to enable)")
	}
}

// getRouteGroup extracts a group name from a route path
func getRouteGroup(path string) string {
	path = strings.TrimPrefix(path, "/")

	parts := strings.SplitN(path, "/", 2)
	first := parts[0]

	if first == "api" && len(parts) > 1 {
		subParts := strings.SplitN(parts[1], "/", 2)
		return "api/" + subParts[0]
	}

	return first
}

// ServerConfig holds configuration for the server startup log
type ServerConfig struct {
	Port            string
	HTTPEnabled     bool
	StartupDuration time.Duration
}

// LogServerStarted logs successful start with endpoint information
func LogServerStarted(config ServerConfig) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("WATCHER STARTED")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Startup time:    %v", config.StartupDuration)
	logging.Info("")
	if config.HTTPEnabled {
		logging.Info("  Endpoints:")
		logging.Info("    Site:          http://0.0.0.0:%s/", config.Port)
		logging.Info("    Status:        http://0.0.0.0:%s/api/stats", config.Port)
		logging.Info("    Metrics:       http://0.0.0.0:%s/metrics", config.Port)
	} else {
		logging.Info("  HTTP server:     DISABLED")
	}
	logging.Info("")
	logging.Info("  Press Ctrl+C to stop")
	logging.Info("------------------------------------------------------------")
	logging.Info("")
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(signal string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SHUTDOWN INITIATED (received %s)", signal)
	logging.Info("------------------------------------------------------------")
}

// LogShutdownStep logs a shutdown step
func LogShutdownStep(step string) {
	logging.Debug("  %s...", step)
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

func printBanner() {
	banner := `
------------------------------------------------------------
    __  ___         ___         _       __      __       __
   /  |/  /__  ____/ (_)___ _  | |     / /___ _/ /______/ /_
  / /|_/ / _ \/ __  / / __ '/  | | /| / / __ '/ __/ ___/ __ \
 / /  / /  __/ /_/ / / /_/ /   | |/ |/ / /_/ / /_/ /__/ / / /
/_/  /_/\___/\__,_/_/\__,_/    |__/|__/\__,_/\__/\___/_/ /_/

------------------------------------------------------------`
	fmt.Println(banner)
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

func logSystemInfo() {
	logging.Info("------------------------------------------------------------")
	logging.Info("SYSTEM INFORMATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))

	if logging.IsDebugEnabled() {
		if wd, err := os.Getwd(); err == nil {
			logging.Debug("  Working dir:     %s", wd)
		}
		if hostname, err := os.Hostname(); err == nil {
			logging.Debug("  Hostname:        %s", hostname)
		}
	}

	logging.Info("")
}

func ensureDirectory(path, name string) error {
	logging.Debug("  Checking %s directory: %s", name, path)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		logging.Debug("    Directory does not exist, creating...")
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		logging.Debug("    [OK] Created directory: %s", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}

	logging.Debug("    [OK] Directory exists")
	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
	}
	return nil
}
