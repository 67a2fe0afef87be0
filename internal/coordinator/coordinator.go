package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"media-watcher/internal/flush"
	"media-watcher/internal/indexer"
	"media-watcher/internal/ingest"
	"media-watcher/internal/journal"
	"media-watcher/internal/logging"
	"media-watcher/internal/metrics"
)

// DefaultBatchSize is the number of new records a scan accumulates before
// it saves the journal and schedules a flush.
const DefaultBatchSize = 50

// DefaultDebounceDelay is the quiet period before a scheduled flush runs.
const DefaultDebounceDelay = 15 * time.Second

// Renderer writes the presentation files for records (newest first) and
// returns the site-relative names it wrote.
type Renderer interface {
	Render(records []journal.Record) ([]string, error)
}

// Publisher pushes rendered files to the publication target.
type Publisher interface {
	Publish(ctx context.Context, files []string) error
}

// Config holds the coordinator settings.
type Config struct {
	BatchSize     int
	DebounceDelay time.Duration
}

// Outcome is what happened to one discovered path.
type Outcome string

const (
	OutcomeAdded     Outcome = "added"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeRace      Outcome = "race"
	OutcomeRejected  Outcome = "rejected"
)

// Discovery sources.
const (
	SourceEvent = "event"
	SourcePoll  = "poll"
)

// Coordinator owns the shared discovery state: the record store with its
// dedup index, and the flush timer. Both discovery sources go through it,
// and every check-process-append sequence runs under one mutex.
type Coordinator struct {
	mu       sync.Mutex
	store    *journal.Store
	pipeline *ingest.Pipeline
	walker   *indexer.Walker
	// unsaved is set when a journal save failed and cleared by the next
	// successful one.
	unsaved atomic.Bool

	renderer  Renderer
	publisher Publisher
	scheduler *flush.Scheduler
	batchSize int
}

// New creates a coordinator. store must already be loaded.
func New(cfg Config, store *journal.Store, pipeline *ingest.Pipeline, renderer Renderer, publisher Publisher) *Coordinator {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = DefaultDebounceDelay
	}

	classifier := pipeline.Classifier()
	c := &Coordinator{
		store:     store,
		pipeline:  pipeline,
		walker:    indexer.NewWalker(classifier.Roots(), classifier.IsTarget),
		renderer:  renderer,
		publisher: publisher,
		batchSize: cfg.BatchSize,
	}
	c.scheduler = flush.New(cfg.DebounceDelay, c.Flush)
	return c
}

// HandleCreate records path if it is new. It is the live notification
// entry point. On success the journal is saved and a flush is scheduled.
func (c *Coordinator) HandleCreate(ctx context.Context, path string, isDir bool) (journal.Record, bool) {
	c.mu.Lock()
	rec, outcome := c.handle(ctx, path, isDir, SourceEvent)
	if outcome == OutcomeAdded {
		c.saveLocked(ctx)
	}
	c.mu.Unlock()

	if outcome != OutcomeAdded {
		return journal.Record{}, false
	}
	c.scheduler.Schedule()
	return rec, true
}

// handle runs the dedup check, the pipeline and the append for one path.
// The caller holds c.mu.
func (c *Coordinator) handle(ctx context.Context, path string, isDir bool, source string) (journal.Record, Outcome) {
	rec, outcome := c.process(ctx, path, isDir, source)
	metrics.DiscoveriesTotal.WithLabelValues(source, string(outcome)).Inc()
	return rec, outcome
}

func (c *Coordinator) process(ctx context.Context, path string, isDir bool, source string) (journal.Record, Outcome) {
	if c.store.Contains(path) {
		if source == SourceEvent {
			logging.Info("Already recorded, skipping: %s", path)
		} else {
			logging.Debug("Already recorded, skipping: %s", path)
		}
		return journal.Record{}, OutcomeDuplicate
	}

	rec, ok := c.pipeline.Process(ctx, path, isDir)
	if !ok {
		return journal.Record{}, OutcomeRejected
	}

	if !c.store.Append(rec) {
		existing, _ := c.store.Find(rec.AbsolutePath)
		logging.Warn("Lost race for %s: recorded at %s, dropping ours from %s",
			rec.AbsolutePath, journal.FormatTimestamp(existing.Timestamp), journal.FormatTimestamp(rec.Timestamp))
		return journal.Record{}, OutcomeRace
	}

	metrics.RecordsAddedTotal.WithLabelValues(string(rec.Category)).Inc()
	logging.Info("Recorded [%s] %s (%s)", rec.Category.Label(), rec.Filename, source)
	return rec, OutcomeAdded
}

// saveLocked persists the store. The caller holds c.mu. Cancellation of
// ctx does not abort the save.
func (c *Coordinator) saveLocked(ctx context.Context) bool {
	if err := c.store.Save(context.WithoutCancel(ctx)); err != nil {
		c.unsaved.Store(true)
		return false
	}
	c.unsaved.Store(false)
	return true
}

// Scan walks every root and records new candidates. Each candidate takes
// the lock separately, so live events interleave with a long scan. The
// journal is saved and a flush scheduled every BatchSize new records and
// once more for the remainder.
func (c *Coordinator) Scan(ctx context.Context) indexer.ScanResult {
	res := indexer.ScanResult{StartedAt: time.Now()}

	candidates, err := c.walker.Collect(ctx)
	if err != nil {
		res.Err = err.Error()
		res.Duration = time.Since(res.StartedAt)
		return res
	}
	res.Candidates = len(candidates)

	pending := 0
	for _, cand := range candidates {
		if err := ctx.Err(); err != nil {
			res.Err = err.Error()
			break
		}

		c.mu.Lock()
		_, outcome := c.handle(ctx, cand.Path, cand.IsDir, SourcePoll)
		if outcome == OutcomeAdded {
			pending++
			if pending >= c.batchSize {
				c.saveLocked(ctx)
			}
		}
		c.mu.Unlock()

		switch outcome {
		case OutcomeAdded:
			res.Added++
		case OutcomeDuplicate:
			res.Duplicates++
		case OutcomeRace:
			res.Races++
		case OutcomeRejected:
			res.Rejected++
		}

		if pending >= c.batchSize {
			logging.Info("Scan batch of %d new records saved", pending)
			c.scheduler.Schedule()
			pending = 0
		}
	}

	if pending > 0 {
		c.mu.Lock()
		c.saveLocked(ctx)
		c.mu.Unlock()
		c.scheduler.Schedule()
	}

	res.Duration = time.Since(res.StartedAt)
	return res
}

// Flush renders the site from a snapshot of the records and publishes the
// result. It is the scheduler callback and never runs under c.mu except to
// take the snapshot. A journal save that failed earlier is retried first.
func (c *Coordinator) Flush(ctx context.Context) error {
	c.mu.Lock()
	if c.unsaved.Load() {
		logging.Info("Retrying journal save before flush")
		c.saveLocked(ctx)
	}
	records := c.store.Records()
	c.mu.Unlock()

	files, err := c.renderer.Render(records)
	if err != nil {
		metrics.RenderTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("render site: %w", err)
	}
	metrics.RenderTotal.WithLabelValues("success").Inc()
	logging.Info("Rendered %d records into %d files", len(records), len(files))

	if err := c.publisher.Publish(ctx, files); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// Close runs a pending flush immediately and stops the scheduler. Later
// schedule requests are ignored.
func (c *Coordinator) Close(ctx context.Context) error {
	flushed := c.scheduler.Stop(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	var errs []error
	if c.unsaved.Load() && !c.saveLocked(ctx) {
		errs = append(errs, errors.New("journal has unsaved records"))
	}
	if flushed {
		if _, err := c.scheduler.LastRun(); err != nil {
			errs = append(errs, fmt.Errorf("final flush: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Records returns the records, newest first.
func (c *Coordinator) Records() []journal.Record {
	return c.store.Records()
}

// CategoryCounts returns the number of records per category.
func (c *Coordinator) CategoryCounts() map[string]int {
	return c.store.CategoryCounts()
}

// Store returns the record store.
func (c *Coordinator) Store() *journal.Store {
	return c.store
}

// Stats is a point-in-time summary for the status API.
type Stats struct {
	Records        int            `json:"records"`
	Categories     map[string]int `json:"categories"`
	FlushState     string         `json:"flushState"`
	Flushes        int            `json:"flushes"`
	LastFlush      time.Time      `json:"lastFlush,omitempty"`
	LastFlushError string         `json:"lastFlushError,omitempty"`
	Unsaved        bool           `json:"unsaved"`
	Journal        string         `json:"journal"`
}

// Stats returns the current state.
func (c *Coordinator) Stats() Stats {
	last, err := c.scheduler.LastRun()
	s := Stats{
		Records:    c.store.Len(),
		Categories: c.store.CategoryCounts(),
		FlushState: c.scheduler.State().String(),
		Flushes:    c.scheduler.Runs(),
		LastFlush:  last,
		Unsaved:    c.unsaved.Load(),
		Journal:    c.store.Backend().String(),
	}
	if err != nil {
		s.LastFlushError = err.Error()
	}
	return s
}
