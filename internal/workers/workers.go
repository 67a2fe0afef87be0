package workers

import (
	"os"
	"runtime"
	"strconv"

	"media-watcher/internal/logging"
)

// EnvOverride names the environment variable that pins the worker count.
const EnvOverride = "SCAN_WORKERS"

// Count returns the number of workers for a task, scaled from GOMAXPROCS so
// that container CPU limits are respected.
//
// multiplier is 1.0 for CPU-bound work and 2.0 for I/O-bound work. limit caps
// the result; 0 means no cap. A positive SCAN_WORKERS value replaces the
// computed count but is still capped by limit.
func Count(multiplier float64, limit int) int {
	if override := os.Getenv(EnvOverride); override != "" {
		count, err := strconv.Atoi(override)
		if err == nil && count > 0 {
			if limit > 0 && count > limit {
				return limit
			}
			return count
		}
		logging.Warn("Ignoring invalid %s=%q", EnvOverride, override)
	}

	workers := int(float64(runtime.GOMAXPROCS(0)) * multiplier)
	if workers < 1 {
		workers = 1
	}
	if limit > 0 && workers > limit {
		workers = limit
	}
	return workers
}

// ForCPU returns a worker count for CPU-bound tasks (1 per CPU).
func ForCPU(limit int) int {
	return Count(1.0, limit)
}

// ForIO returns a worker count for I/O-bound tasks such as directory walks
// (2 per CPU).
func ForIO(limit int) int {
	return Count(2.0, limit)
}
