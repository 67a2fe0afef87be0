package ingest

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"media-watcher/internal/classify"
	"media-watcher/internal/filesystem"
	"media-watcher/internal/journal"
	"media-watcher/internal/logging"
	"media-watcher/internal/mediatypes"
	"media-watcher/internal/metrics"
	"media-watcher/internal/nfo"
)

// Config holds the pipeline settings.
type Config struct {
	// LibraryBase is the root that relative paths of files are computed against.
	LibraryBase string
	// CatalogURL is the base of external catalog links.
	CatalogURL string

	MagazineSynopsis  string
	AnimationSynopsis string

	// SettleDelay is waited before touching a just-created path.
	SettleDelay time.Duration
	// SidecarDelay is waited after a sidecar was found and before reading it.
	SidecarDelay time.Duration
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext is the default Sleeper.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithSleeper replaces the delay implementation.
func WithSleeper(s Sleeper) Option {
	return func(p *Pipeline) { p.sleep = s }
}

// WithClock replaces the record timestamp source.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// Pipeline turns a discovered path into a journal record.
type Pipeline struct {
	cfg        Config
	classifier *classify.Classifier
	sleep      Sleeper
	now        func() time.Time
}

// New creates a pipeline.
func New(cfg Config, classifier *classify.Classifier, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:        cfg,
		classifier: classifier,
		sleep:      SleepContext,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Classifier returns the classifier used by the pipeline.
func (p *Pipeline) Classifier() *classify.Classifier {
	return p.classifier
}

// Process builds the record for path. ok is false when the path should not
// be recorded (wrong location or type, vanished, or ctx cancelled).
func (p *Pipeline) Process(ctx context.Context, path string, isDir bool) (journal.Record, bool) {
	start := time.Now()
	kind := "file"
	if isDir {
		kind = "directory"
	}
	defer func() {
		metrics.IngestDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	}()

	if isDir {
		return p.processDirectory(ctx, path)
	}
	return p.processFile(ctx, path)
}

func (p *Pipeline) processDirectory(ctx context.Context, path string) (journal.Record, bool) {
	name := filepath.Base(path)

	root, ok := p.classifier.InCollection(path)
	if !ok {
		logging.Debug("[%s] directory outside collection roots, ignoring", name)
		return journal.Record{}, false
	}
	if filesystem.FoldPath(root) == filesystem.FoldPath(path) {
		return journal.Record{}, false
	}

	if err := p.sleep(ctx, p.cfg.SettleDelay); err != nil {
		return journal.Record{}, false
	}
	if !filesystem.IsDir(path) {
		logging.Info("[%s] directory disappeared before it settled", name)
		return journal.Record{}, false
	}

	var meta nfo.Result
	sidecar := filepath.Join(path, nfo.ShowFile)
	if filesystem.Exists(sidecar) {
		if err := p.sleep(ctx, p.cfg.SidecarDelay); err != nil {
			return journal.Record{}, false
		}
		meta = nfo.Extract(sidecar)
	} else {
		logging.Warn("[%s] no %s in collection directory", name, nfo.ShowFile)
	}

	rel, ok := filesystem.RelativeTo(path, root)
	if !ok {
		rel = name
	}

	rec := journal.Record{
		Timestamp:    p.now(),
		Category:     mediatypes.CategoryCollection,
		Filename:     name,
		AbsolutePath: path,
		RelativePath: rel,
		ExternalID:   meta.ID,
		Synopsis:     meta.Synopsis,
	}
	rec.ExternalURL = p.catalogURL(rec.Category, rec.ExternalID)
	return rec, true
}

func (p *Pipeline) processFile(ctx context.Context, path string) (journal.Record, bool) {
	name := filepath.Base(path)

	info, err := filesystem.StatWithRetry(path, filesystem.DefaultRetryConfig())
	if err != nil || !info.Mode().IsRegular() {
		logging.Debug("[%s] not a regular file, ignoring", name)
		return journal.Record{}, false
	}
	if !p.classifier.IsTarget(name) {
		logging.Debug("[%s] extension not tracked, ignoring", name)
		return journal.Record{}, false
	}
	if _, ok := p.classifier.InCollection(path); ok {
		logging.Debug("[%s] file under a collection root, ignoring", name)
		return journal.Record{}, false
	}

	if err := p.sleep(ctx, p.cfg.SettleDelay); err != nil {
		return journal.Record{}, false
	}

	category := p.classifier.Classify(path, name)
	if category == mediatypes.CategoryIgnore {
		return journal.Record{}, false
	}

	rel, ok := filesystem.RelativeTo(path, p.cfg.LibraryBase)
	if !ok {
		rel = path
	}

	rec := journal.Record{
		Timestamp:    p.now(),
		Category:     category,
		Filename:     name,
		AbsolutePath: path,
		RelativePath: rel,
	}

	switch category {
	case mediatypes.CategoryMovie, mediatypes.CategoryTVShow:
		if sc, found := nfo.FindSidecar(path); found {
			if err := p.sleep(ctx, p.cfg.SidecarDelay); err != nil {
				return journal.Record{}, false
			}
			meta := nfo.Backfill(nfo.Extract(sc.Path), sc, path, category)
			rec.ExternalID = meta.ID
			rec.Synopsis = meta.Synopsis
		} else {
			logging.Warn("[%s] no sidecar found", name)
		}
	case mediatypes.CategoryMagazine:
		rec.Synopsis = p.cfg.MagazineSynopsis
	case mediatypes.CategoryAnimation:
		rec.Synopsis = p.cfg.AnimationSynopsis
	}

	rec.ExternalURL = p.catalogURL(category, rec.ExternalID)
	return rec, true
}

// catalogURL links id to the catalog page for category, or returns "" when
// there is no id.
func (p *Pipeline) catalogURL(category mediatypes.Category, id string) string {
	if id == "" || p.cfg.CatalogURL == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s/%s", strings.TrimRight(p.cfg.CatalogURL, "/"), category.CatalogKind(), url.PathEscape(id))
}
