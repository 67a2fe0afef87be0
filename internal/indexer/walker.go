package indexer

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"media-watcher/internal/classify"
	"media-watcher/internal/filesystem"
	"media-watcher/internal/logging"
	"media-watcher/internal/metrics"
	"media-watcher/internal/workers"
)

// Candidate is a path the scan found that may become a record.
type Candidate struct {
	Path  string
	IsDir bool
}

// ScanResult summarises one scan.
type ScanResult struct {
	StartedAt  time.Time     `json:"startedAt"`
	Duration   time.Duration `json:"duration"`
	Candidates int           `json:"candidates"`
	Added      int           `json:"added"`
	Duplicates int           `json:"duplicates"`
	Races      int           `json:"races"`
	Rejected   int           `json:"rejected"`
	Err        string        `json:"error,omitempty"`
}

// root is one configured library root and how it is enumerated.
type root struct {
	path string
	// shallow roots contribute their direct subdirectories only.
	shallow bool
}

// Walker enumerates candidates under the configured roots. Roots are walked
// in parallel; the result order is stable (root order, then lexical order
// within a root).
type Walker struct {
	roots    []root
	isTarget func(name string) bool
	limit    int

	walked atomic.Int64
}

// NewWalker builds a walker for roots. Collection roots are shallow; every
// other root yields each file accepted by isTarget at any depth.
func NewWalker(roots classify.Roots, isTarget func(name string) bool) *Walker {
	w := &Walker{isTarget: isTarget}
	for _, p := range roots.Collection {
		w.roots = append(w.roots, root{path: p, shallow: true})
	}
	for _, group := range [][]string{roots.Animation, roots.Movie, roots.Series, roots.Magazine} {
		for _, p := range group {
			w.roots = append(w.roots, root{path: p})
		}
	}
	w.limit = len(w.roots)
	return w
}

// Collect walks every root and returns the candidates found. Missing or
// unreadable roots are logged and skipped. The only error returned is the
// context's.
func (w *Walker) Collect(ctx context.Context) ([]Candidate, error) {
	n := workers.ForIO(w.limit)
	metrics.ScanWorkers.Set(float64(n))
	w.walked.Store(0)

	results := make([][]Candidate, len(w.roots))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(n)
	for i, r := range w.roots {
		g.Go(func() error {
			var err error
			if r.shallow {
				results[i], err = w.listSubdirectories(gctx, r.path)
			} else {
				results[i], err = w.walkFiles(gctx, r.path)
			}
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []Candidate
	for _, rs := range results {
		out = append(out, rs...)
	}
	metrics.ScanCandidates.Add(float64(len(out)))
	logging.Debug("Walked %d entries across %d roots, %d candidates", w.walked.Load(), len(w.roots), len(out))
	return out, nil
}

func (w *Walker) listSubdirectories(ctx context.Context, dir string) ([]Candidate, error) {
	if !filesystem.IsDir(dir) {
		logging.Warn("Collection root %s does not exist, skipping", dir)
		return nil, nil
	}
	entries, err := filesystem.ReadDirWithRetry(dir, filesystem.DefaultRetryConfig())
	if err != nil {
		logging.Warn("Failed to list collection root %s: %v", dir, err)
		return nil, nil
	}

	var out []Candidate
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		w.walked.Add(1)
		if !e.IsDir() || isHidden(e.Name()) {
			continue
		}
		out = append(out, Candidate{Path: filepath.Join(dir, e.Name()), IsDir: true})
	}
	return out, nil
}

func (w *Walker) walkFiles(ctx context.Context, dir string) ([]Candidate, error) {
	if !filesystem.IsDir(dir) {
		logging.Warn("Library root %s does not exist, skipping", dir)
		return nil, nil
	}

	var out []Candidate
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			logging.Warn("Error accessing path %s: %v", path, err)
			if d != nil && d.IsDir() && path != dir {
				return filepath.SkipDir
			}
			return nil
		}
		w.walked.Add(1)

		if path != dir && isHidden(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !w.isTarget(d.Name()) {
			return nil
		}
		out = append(out, Candidate{Path: path})
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		logging.Warn("Walk of %s stopped early: %v", dir, err)
	}
	return out, nil
}

// Roots returns the root paths in walk order.
func (w *Walker) Roots() []string {
	out := make([]string, 0, len(w.roots))
	for _, r := range w.roots {
		out = append(out, r.path)
	}
	return slices.Clip(out)
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
