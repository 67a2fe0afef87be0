package startup

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"media-watcher/internal/logging"
)

// knownKeys lists the settings accepted in the config file.
var knownKeys = map[string]bool{
	"MOVIE_DIRS": true, "SERIES_DIRS": true, "COLLECTION_DIRS": true,
	"ANIMATION_DIRS": true, "MAGAZINE_DIRS": true, "LIBRARY_BASE": true,
	"VIDEO_EXTENSIONS": true, "DOCUMENT_EXTENSIONS": true,
	"SITE_DIR": true, "JOURNAL_BACKEND": true, "JOURNAL_PATH": true, "LOG_DIR": true,
	"POLL_INTERVAL": true, "BATCH_SIZE": true, "DEBOUNCE_DELAY": true,
	"SETTLE_DELAY": true, "SIDECAR_DELAY": true,
	"MAX_INDEX_ITEMS": true, "ITEMS_PER_PAGE": true, "DEFAULT_CATEGORY": true,
	"CATALOG_URL": true, "MAGAZINE_SYNOPSIS": true, "ANIMATION_SYNOPSIS": true,
	"PUBLISH_ENABLED": true, "GIT_REMOTE": true, "GIT_BRANCH": true,
	"HTTP_ENABLED": true, "PORT": true, "LOG_STATIC_FILES": true, "LOG_HEALTH_CHECKS": true,
}

// source resolves a setting from the environment first and the config file
// second. An environment variable set to the empty string counts as unset,
// except for lookups through optional.
type source struct {
	file map[string]string
}

// newSource reads the YAML config file at path. An empty path yields an
// environment-only source.
func newSource(path string) (*source, error) {
	s := &source{file: map[string]string{}}
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := s.parse(data); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// parse accepts a mapping of setting names to scalars or lists of scalars.
// Names are case-insensitive and may use dashes. Lists of directories are
// joined with the OS path-list separator, other lists with commas.
func (s *source) parse(data []byte) error {
	var doc map[string]yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return err
	}

	for name, node := range doc {
		key := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(name), "-", "_"))
		if !knownKeys[key] {
			logging.Warn("  Ignoring unknown config key %q", name)
			continue
		}

		switch node.Kind {
		case yaml.ScalarNode:
			s.file[key] = node.Value
		case yaml.SequenceNode:
			sep := ","
			if strings.HasSuffix(key, "_DIRS") {
				sep = string(os.PathListSeparator)
			}
			values := make([]string, 0, len(node.Content))
			for _, item := range node.Content {
				if item.Kind != yaml.ScalarNode {
					return fmt.Errorf("%s: list entries must be plain values (line %d)", name, item.Line)
				}
				values = append(values, item.Value)
			}
			s.file[key] = strings.Join(values, sep)
		default:
			return fmt.Errorf("%s: expected a value or a list (line %d)", name, node.Line)
		}
	}
	return nil
}

// lookup returns the raw value for key and whether it was set anywhere.
func (s *source) lookup(key string) (string, bool) {
	if v, ok := os.LookupEnv(key); ok {
		return v, true
	}
	v, ok := s.file[key]
	return v, ok
}

func (s *source) str(key, defaultValue string) string {
	if v, ok := s.lookup(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return defaultValue
}

// optional is like str but honours an explicitly empty value.
func (s *source) optional(key, defaultValue string) string {
	if v, ok := s.lookup(key); ok {
		return strings.TrimSpace(v)
	}
	return defaultValue
}

func (s *source) boolean(key string, defaultValue bool) bool {
	value := s.str(key, "")
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("  Invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func (s *source) duration(key string, defaultValue time.Duration) time.Duration {
	value := s.str(key, "")
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed < 0 {
		logging.Warn("  Invalid %s %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func (s *source) positiveInt(key string, defaultValue int) int {
	value := s.str(key, "")
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		logging.Warn("  Invalid %s %q, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

// paths splits a path list, dropping empty entries.
func (s *source) paths(key string) []string {
	var out []string
	for _, p := range filepath.SplitList(s.str(key, "")) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, filepath.Clean(p))
		}
	}
	return out
}
