package site

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"time"

	"media-watcher/internal/filesystem"
	"media-watcher/internal/journal"
	"media-watcher/internal/logging"
	"media-watcher/internal/mediatypes"
)

// Site-relative names of the generated files.
const (
	IndexFile         = "index.html"
	ArchiveFile       = "archive.html"
	ArchiveScriptFile = "archive_script.js"
	ArchiveDataFile   = "media_updates.json"
)

// Defaults for Config.
const (
	DefaultMaxIndexItems = 5000
	DefaultItemsPerPage  = 30
)

//go:embed templates/*.tmpl static/archive_script.js
var assets embed.FS

// Config holds the renderer settings.
type Config struct {
	// Dir is the site directory (the working tree that gets published).
	Dir string
	// MaxIndexItems caps the number of records shown on index.html.
	MaxIndexItems int
	// ItemsPerPage is the number of items per day shown before "顯示更多".
	ItemsPerPage    int
	DefaultCategory mediatypes.Category
	// JournalIsArchiveData is set when the JSON journal lives at
	// Dir/media_updates.json. The renderer then lists the file for
	// publishing without writing it; otherwise it exports the records there.
	JournalIsArchiveData bool
}

// Renderer writes the static site.
type Renderer struct {
	cfg       Config
	templates *template.Template
	script    []byte
	now       func() time.Time
}

// New parses the embedded templates.
func New(cfg Config) (*Renderer, error) {
	if cfg.MaxIndexItems <= 0 {
		cfg.MaxIndexItems = DefaultMaxIndexItems
	}
	if cfg.ItemsPerPage <= 0 {
		cfg.ItemsPerPage = DefaultItemsPerPage
	}
	if !cfg.DefaultCategory.Valid() {
		cfg.DefaultCategory = mediatypes.CategoryTVShow
	}

	tmpl, err := template.ParseFS(assets, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	script, err := assets.ReadFile("static/archive_script.js")
	if err != nil {
		return nil, fmt.Errorf("read archive script: %w", err)
	}
	return &Renderer{cfg: cfg, templates: tmpl, script: script, now: time.Now}, nil
}

// Dir returns the site directory.
func (r *Renderer) Dir() string {
	return r.cfg.Dir
}

// Render writes index.html, archive.html, archive_script.js and, unless the
// journal already is that file, the archive data. records must be newest
// first. It returns the site-relative names of every file that belongs in
// the publish set.
func (r *Renderer) Render(records []journal.Record) ([]string, error) {
	if err := os.MkdirAll(r.cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create site directory: %w", err)
	}
	now := r.now()

	page := buildIndex(records, r.cfg.MaxIndexItems, r.cfg.ItemsPerPage, r.cfg.DefaultCategory, now)
	if err := r.execute(IndexFile, "index.html.tmpl", page); err != nil {
		return nil, err
	}
	logging.Debug("Wrote %s with %d tabs", IndexFile, len(page.Tabs))

	archive := archivePage{
		DefaultCategory: string(r.cfg.DefaultCategory),
		IndexFile:       IndexFile,
		ScriptFile:      ArchiveScriptFile,
		DataFile:        ArchiveDataFile,
		Generated:       now.Format("2006-01-02 15:04:05"),
	}
	if err := r.execute(ArchiveFile, "archive.html.tmpl", archive); err != nil {
		return nil, err
	}

	if err := filesystem.WriteFileAtomic(filepath.Join(r.cfg.Dir, ArchiveScriptFile), r.script, 0o644); err != nil {
		return nil, fmt.Errorf("write %s: %w", ArchiveScriptFile, err)
	}

	files := []string{IndexFile, ArchiveFile, ArchiveScriptFile, ArchiveDataFile}
	if r.cfg.JournalIsArchiveData {
		return files, nil
	}

	data, err := journal.Encode(records)
	if err != nil {
		return nil, fmt.Errorf("encode archive data: %w", err)
	}
	if err := filesystem.WriteFileAtomic(filepath.Join(r.cfg.Dir, ArchiveDataFile), data, 0o644); err != nil {
		return nil, fmt.Errorf("write %s: %w", ArchiveDataFile, err)
	}
	return files, nil
}

func (r *Renderer) execute(name, tmpl string, data any) error {
	var buf bytes.Buffer
	if err := r.templates.ExecuteTemplate(&buf, tmpl, data); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	if err := filesystem.WriteFileAtomic(filepath.Join(r.cfg.Dir, name), buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}
