package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"media-watcher/internal/filesystem"
	"media-watcher/internal/journal"
	"media-watcher/internal/logging"
	"media-watcher/internal/metrics"
)

// ErrNoRoots is returned when none of the roots could be watched.
var ErrNoRoots = errors.New("no watchable library roots")

// Handler receives create notifications.
type Handler interface {
	HandleCreate(ctx context.Context, path string, isDir bool) (journal.Record, bool)
}

type createEvent struct {
	path  string
	isDir bool
}

// Watcher turns filesystem notifications under the library roots into
// HandleCreate calls. Notifications are read on one goroutine and handed to
// a single dispatcher goroutine through an unbounded queue, so a slow
// handler never stalls the notification stream.
type Watcher struct {
	roots   []string
	handler Handler
	fsw     *fsnotify.Watcher

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	queue   []createEvent
	signal  chan struct{}
	watched int
}

// New registers every directory under each existing root. Missing roots are
// skipped with a warning; if none remain, ErrNoRoots is returned.
func New(roots []string, handler Handler) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		metrics.WatcherErrors.Inc()
		return nil, fmt.Errorf("create file watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		handler: handler,
		fsw:     fsw,
		ctx:     ctx,
		cancel:  cancel,
		signal:  make(chan struct{}, 1),
	}

	for _, root := range roots {
		if !filesystem.IsDir(root) {
			logging.Warn("Library root %s does not exist, not watching it", root)
			continue
		}
		if n, _ := w.addTree(root, false); n > 0 {
			w.roots = append(w.roots, root)
		}
	}
	if len(w.roots) == 0 {
		cancel()
		if err := fsw.Close(); err != nil {
			logging.Error("failed to close file watcher: %v", err)
		}
		return nil, ErrNoRoots
	}

	logging.Info("Watching %d directories under %d roots", w.WatchedDirectories(), len(w.roots))
	return w, nil
}

// Start begins reading notifications and dispatching them.
func (w *Watcher) Start() {
	w.wg.Add(2)
	go w.processEvents()
	go w.dispatch()
}

// Stop closes the watcher, cancels an in-flight handler call and waits for
// both goroutines. Queued events are dropped; the next scan picks them up.
func (w *Watcher) Stop() {
	w.cancel()
	if err := w.fsw.Close(); err != nil {
		logging.Error("failed to close file watcher: %v", err)
	}
	w.wg.Wait()

	w.mu.Lock()
	if n := len(w.queue); n > 0 {
		logging.Info("Dropping %d queued create events on shutdown", n)
	}
	w.queue = nil
	w.mu.Unlock()
	metrics.WatcherQueueDepth.Set(0)
}

// Roots returns the roots being watched.
func (w *Watcher) Roots() []string {
	return w.roots
}

// WatchedDirectories returns the number of registered directories.
func (w *Watcher) WatchedDirectories() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.watched
}

// addTree registers dir and every non-hidden directory below it. With
// collect it also returns, in walk order, a create event for every
// non-hidden subdirectory and regular file found below dir.
func (w *Watcher) addTree(dir string, collect bool) (int, []createEvent) {
	added := 0
	var found []createEvent
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logging.Warn("failed to walk %s for watcher: %v", path, err)
			metrics.WatcherErrors.Inc()
			return nil
		}
		if !d.IsDir() {
			if collect && d.Type().IsRegular() && !strings.HasPrefix(d.Name(), ".") {
				found = append(found, createEvent{path: path})
			}
			return nil
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if addErr := w.fsw.Add(path); addErr != nil {
			logging.Warn("failed to add path to watcher %s: %v", path, addErr)
			metrics.WatcherErrors.Inc()
			return nil
		}
		added++
		if collect && path != dir {
			found = append(found, createEvent{path: path, isDir: true})
		}
		return nil
	})
	if err != nil {
		logging.Error("failed to walk %s for watcher: %v", dir, err)
		metrics.WatcherErrors.Inc()
	}

	w.mu.Lock()
	w.watched += added
	metrics.WatchedDirectories.Set(float64(w.watched))
	w.mu.Unlock()
	return added, found
}

func (w *Watcher) processEvents() {
	defer w.wg.Done()
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logging.Error("Watcher error: %v", err)
			metrics.WatcherErrors.Inc()

		case <-w.ctx.Done():
			return
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if w.isHidden(event.Name) {
		return
	}
	metrics.WatcherEventsTotal.WithLabelValues(eventType(event.Op)).Inc()

	if !event.Has(fsnotify.Create) {
		return
	}

	info, err := os.Stat(event.Name)
	if err != nil {
		logging.Debug("Created path vanished before it could be inspected: %s", event.Name)
		return
	}
	if !info.IsDir() {
		w.enqueue(createEvent{path: event.Name})
		return
	}

	// Register the new directory before anyone reacts to it. Files that
	// were moved in with it, or written before the watch was added, raise
	// no event of their own and are queued from the walk instead.
	n, found := w.addTree(event.Name, true)
	if n > 0 {
		logging.Debug("Added %d new directories to watcher under %s", n, event.Name)
	}
	w.enqueue(createEvent{path: event.Name, isDir: true})
	for _, ev := range found {
		w.enqueue(ev)
	}
}

func (w *Watcher) enqueue(ev createEvent) {
	w.mu.Lock()
	w.queue = append(w.queue, ev)
	metrics.WatcherQueueDepth.Set(float64(len(w.queue)))
	w.mu.Unlock()

	select {
	case w.signal <- struct{}{}:
	default:
	}
}

func (w *Watcher) next() (createEvent, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.queue) == 0 {
		return createEvent{}, false
	}
	ev := w.queue[0]
	w.queue = w.queue[1:]
	metrics.WatcherQueueDepth.Set(float64(len(w.queue)))
	return ev, true
}

func (w *Watcher) dispatch() {
	defer w.wg.Done()
	for {
		select {
		case <-w.signal:
		case <-w.ctx.Done():
			return
		}
		for {
			ev, ok := w.next()
			if !ok {
				break
			}
			if w.ctx.Err() != nil {
				return
			}
			logging.Debug("Create event: %s (dir=%v)", ev.path, ev.isDir)
			w.handler.HandleCreate(w.ctx, ev.path, ev.isDir)
		}
	}
}

// isHidden reports whether any element of path below its root starts with
// a dot.
func (w *Watcher) isHidden(path string) bool {
	for _, root := range w.roots {
		rel, err := filepath.Rel(root, path)
		if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
			continue
		}
		return hasHiddenElement(rel)
	}
	return hasHiddenElement(filepath.Base(path))
}

func hasHiddenElement(rel string) bool {
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}

func eventType(op fsnotify.Op) string {
	switch {
	case op.Has(fsnotify.Create):
		return "create"
	case op.Has(fsnotify.Write):
		return "write"
	case op.Has(fsnotify.Remove):
		return "remove"
	case op.Has(fsnotify.Rename):
		return "rename"
	case op.Has(fsnotify.Chmod):
		return "chmod"
	default:
		return "unknown"
	}
}
