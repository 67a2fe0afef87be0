package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"media-watcher/internal/filesystem"
	"media-watcher/internal/journal"
	"media-watcher/internal/logging"
	"media-watcher/internal/mediatypes"
	"media-watcher/internal/publish"
	"media-watcher/internal/site"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2

	publishTimeout = 2 * time.Minute
)

var (
	okColor   = color.New(color.FgGreen, color.Bold)
	warnColor = color.New(color.FgYellow)
	errColor  = color.New(color.FgRed, color.Bold)
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	c := &cli{
		in:          os.Stdin,
		out:         os.Stdout,
		errOut:      os.Stderr,
		interactive: term.IsTerminal(int(os.Stdin.Fd())),
	}
	code := c.run(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}

// cli carries the streams a command talks to.
type cli struct {
	in          io.Reader
	out         io.Writer
	errOut      io.Writer
	interactive bool
}

func (c *cli) run(ctx context.Context, args []string) int {
	if len(args) == 0 {
		c.printUsage(c.errOut)
		return exitUsage
	}

	command, rest := args[0], args[1:]
	switch command {
	case "check":
		return c.check(ctx, rest)
	case "export":
		return c.export(ctx, rest)
	case "import":
		return c.importRecords(ctx, rest)
	case "render":
		return c.render(ctx, rest)
	case "help", "-h", "--help":
		c.printUsage(c.out)
		return exitOK
	default:
		fmt.Fprintf(c.errOut, "Unknown command: %s\n\n", sanitizeCommand(command))
		c.printUsage(c.errOut)
		return exitUsage
	}
}

// sanitizeCommand replaces everything outside [a-zA-Z0-9_-] with '_' so
// that arbitrary input can be echoed safely.
func sanitizeCommand(cmd string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, cmd)
}

func (c *cli) printUsage(w io.Writer) {
	fmt.Fprintln(w, "Media Watcher journal maintenance")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Usage: journal <command> [flags]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  check   - Validate the journal and report duplicates")
	fmt.Fprintln(w, "  export  - Write the journal as JSON")
	fmt.Fprintln(w, "  import  - Merge (or replace) records from a JSON journal")
	fmt.Fprintln(w, "  render  - Rebuild the site from the journal")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Environment:")
	fmt.Fprintln(w, "  JOURNAL_BACKEND - json or sqlite (default: json)")
	fmt.Fprintln(w, "  JOURNAL_PATH    - Journal file, used when --journal is not given")
	fmt.Fprintln(w, "  SITE_DIR        - Site directory for render (default: .)")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'journal <command> --help' for the flags of a command.")
}

// journalOptions are the flags shared by every command.
type journalOptions struct {
	backend string
	path    string
	verbose bool
}

func (c *cli) newFlagSet(name string) (*pflag.FlagSet, *journalOptions) {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(c.errOut)

	o := &journalOptions{}
	fs.StringVarP(&o.backend, "backend", "b", envOr("JOURNAL_BACKEND", journal.BackendJSON), "journal backend (json or sqlite)")
	fs.StringVarP(&o.path, "journal", "j", os.Getenv("JOURNAL_PATH"), "journal file (default $JOURNAL_PATH)")
	fs.BoolVar(&o.verbose, "verbose", false, "show log output on stderr")
	return fs, o
}

// parse parses args and routes log output. It returns a non-negative exit
// code when the command should stop.
func (c *cli) parse(fs *pflag.FlagSet, o *journalOptions, args []string) int {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(c.errOut, "Unexpected argument: %s\n", fs.Arg(0))
		return exitUsage
	}
	if o.path == "" {
		errColor.Fprintln(c.errOut, "Error: no journal given; use --journal or set JOURNAL_PATH")
		return exitUsage
	}
	if o.verbose {
		logging.SetOutput(c.errOut)
	} else {
		logging.SetOutput(io.Discard)
	}
	return -1
}

func (c *cli) fail(format string, args ...any) int {
	errColor.Fprintf(c.errOut, "Error: "+format+"\n", args...)
	return exitError
}

// openStore opens the backend and loads it into a store. Unlike the watcher,
// a corrupt journal is an error here.
func (c *cli) openStore(ctx context.Context, o *journalOptions) (*journal.Store, []journal.Record, error) {
	backend, err := journal.Open(ctx, o.backend, o.path)
	if err != nil {
		return nil, nil, err
	}
	records, err := backend.Load(ctx)
	if err != nil {
		_ = backend.Close()
		return nil, nil, fmt.Errorf("read %s: %w", backend, err)
	}
	store := journal.NewStore(backend)
	store.Replace(records)
	return store, records, nil
}

func closeStore(store *journal.Store) {
	_ = store.Backend().Close()
}

// report summarises a raw journal as stored, before dedup.
type report struct {
	total       int
	categories  map[mediatypes.Category]int
	duplicates  []string
	emptyPaths  int
	unsorted    bool
	missing     []string
	oldest      time.Time
	newest      time.Time
	checkedDisk bool
}

func (r *report) healthy() bool {
	return len(r.duplicates) == 0 && r.emptyPaths == 0
}

func inspect(records []journal.Record, statFiles bool) *report {
	r := &report{total: len(records), categories: map[mediatypes.Category]int{}, checkedDisk: statFiles}
	seen := journal.NewIndex(nil)
	for i, rec := range records {
		r.categories[rec.Category]++

		key := rec.Key()
		if key == "" {
			r.emptyPaths++
		} else if seen.Has(key) {
			r.duplicates = append(r.duplicates, rec.AbsolutePath)
		} else {
			seen.Add(key)
		}

		if i > 0 && rec.Timestamp.After(records[i-1].Timestamp) {
			r.unsorted = true
		}
		if r.oldest.IsZero() || rec.Timestamp.Before(r.oldest) {
			r.oldest = rec.Timestamp
		}
		if rec.Timestamp.After(r.newest) {
			r.newest = rec.Timestamp
		}

		if statFiles && rec.AbsolutePath != "" {
			if _, err := os.Stat(rec.AbsolutePath); errors.Is(err, os.ErrNotExist) {
				r.missing = append(r.missing, rec.AbsolutePath)
			}
		}
	}
	return r
}

func (c *cli) printReport(name string, r *report) {
	fmt.Fprintf(c.out, "Journal:    %s\n", name)
	fmt.Fprintf(c.out, "Records:    %d\n", r.total)
	if r.total > 0 {
		fmt.Fprintf(c.out, "Newest:     %s\n", journal.FormatTimestamp(r.newest))
		fmt.Fprintf(c.out, "Oldest:     %s\n", journal.FormatTimestamp(r.oldest))
	}

	cats := make([]string, 0, len(r.categories))
	for cat := range r.categories {
		cats = append(cats, string(cat))
	}
	sort.Strings(cats)
	for _, cat := range cats {
		fmt.Fprintf(c.out, "  %-12s %d\n", cat, r.categories[mediatypes.Category(cat)])
	}

	if r.unsorted {
		warnColor.Fprintln(c.out, "Order:      not newest first (rewritten on next save)")
	}
	if r.emptyPaths > 0 {
		warnColor.Fprintf(c.out, "Empty path: %d entries\n", r.emptyPaths)
	}
	if len(r.duplicates) > 0 {
		warnColor.Fprintf(c.out, "Duplicates: %d\n", len(r.duplicates))
		for _, p := range r.duplicates {
			fmt.Fprintf(c.out, "  %s\n", p)
		}
	}
	if r.checkedDisk {
		if len(r.missing) == 0 {
			fmt.Fprintln(c.out, "On disk:    all present")
		} else {
			warnColor.Fprintf(c.out, "On disk:    %d missing\n", len(r.missing))
			for _, p := range r.missing {
				fmt.Fprintf(c.out, "  %s\n", p)
			}
		}
	}
}

// printSQLiteDetails reports the last save and any rows that failed
// validation on load.
func (c *cli) printSQLiteDetails(ctx context.Context, sb *journal.SQLiteBackend, loaded int) {
	if last, err := sb.LastSave(ctx); err != nil {
		warnColor.Fprintf(c.out, "Last save:  unknown (%v)\n", err)
	} else if last.IsZero() {
		fmt.Fprintln(c.out, "Last save:  never")
	} else {
		fmt.Fprintf(c.out, "Last save:  %s\n", journal.FormatTimestamp(last))
	}

	counts, err := sb.RowCounts(ctx)
	if err != nil {
		warnColor.Fprintf(c.out, "Rows:       unknown (%v)\n", err)
		return
	}
	rows := 0
	for _, n := range counts {
		rows += n
	}
	if rows > loaded {
		warnColor.Fprintf(c.out, "Rows:       %d stored, %d skipped as invalid\n", rows, rows-loaded)
	}
}

func (c *cli) check(ctx context.Context, args []string) int {
	fs, o := c.newFlagSet("check")
	fix := fs.Bool("fix", false, "rewrite the journal sorted and without duplicates")
	statFiles := fs.Bool("stat", false, "also report records whose file no longer exists")
	if code := c.parse(fs, o, args); code >= 0 {
		return code
	}

	store, records, err := c.openStore(ctx, o)
	if err != nil {
		return c.fail("%v", err)
	}
	defer closeStore(store)

	r := inspect(records, *statFiles)
	c.printReport(store.Backend().String(), r)
	if sb, ok := store.Backend().(*journal.SQLiteBackend); ok {
		c.printSQLiteDetails(ctx, sb, r.total)
	}

	if *fix && (!r.healthy() || r.unsorted) {
		if err := store.Save(ctx); err != nil {
			return c.fail("rewrite failed: %v", err)
		}
		okColor.Fprintf(c.out, "Rewrote journal with %d records\n", store.Len())
		return exitOK
	}
	if !r.healthy() {
		errColor.Fprintln(c.out, "FAILED")
		return exitError
	}
	okColor.Fprintln(c.out, "OK")
	return exitOK
}

func (c *cli) export(ctx context.Context, args []string) int {
	fs, o := c.newFlagSet("export")
	output := fs.StringP("output", "o", "-", "output file, - for stdout")
	category := fs.StringP("category", "c", "", "only export this category")
	if code := c.parse(fs, o, args); code >= 0 {
		return code
	}

	var want mediatypes.Category
	if *category != "" {
		cat, ok := mediatypes.ParseCategory(*category)
		if !ok {
			return c.fail("unknown category %q", *category)
		}
		want = cat
	}

	store, _, err := c.openStore(ctx, o)
	if err != nil {
		return c.fail("%v", err)
	}
	defer closeStore(store)

	records := store.Records()
	if want != "" {
		filtered := records[:0]
		for _, r := range records {
			if r.Category == want {
				filtered = append(filtered, r)
			}
		}
		records = filtered
	}

	data, err := journal.Encode(records)
	if err != nil {
		return c.fail("%v", err)
	}
	if *output == "-" {
		if _, err := c.out.Write(data); err != nil {
			return c.fail("write: %v", err)
		}
		return exitOK
	}
	if err := filesystem.WriteFileAtomic(*output, data, 0o644); err != nil {
		return c.fail("write %s: %v", *output, err)
	}
	okColor.Fprintf(c.errOut, "Exported %d records to %s\n", len(records), *output)
	return exitOK
}

func (c *cli) importRecords(ctx context.Context, args []string) int {
	fs, o := c.newFlagSet("import")
	input := fs.StringP("input", "i", "", "JSON journal to import, - for stdin")
	replace := fs.Bool("replace", false, "replace the journal instead of merging")
	yes := fs.BoolP("yes", "y", false, "do not ask before replacing")
	if code := c.parse(fs, o, args); code >= 0 {
		return code
	}
	if *input == "" {
		errColor.Fprintln(c.errOut, "Error: --input is required")
		return exitUsage
	}

	var data []byte
	var err error
	if *input == "-" {
		data, err = io.ReadAll(c.in)
	} else {
		data, err = os.ReadFile(*input)
	}
	if err != nil {
		return c.fail("read %s: %v", *input, err)
	}
	incoming, err := journal.Decode(data)
	if err != nil {
		return c.fail("%s: %v", *input, err)
	}

	store, _, err := c.openStore(ctx, o)
	if err != nil {
		return c.fail("%v", err)
	}
	defer closeStore(store)

	if *replace {
		if !*yes && !c.confirm(fmt.Sprintf("Replace %d records with %d from %s?", store.Len(), len(incoming), *input)) {
			fmt.Fprintln(c.errOut, "Aborted.")
			return exitError
		}
		store.Replace(incoming)
		if err := store.Save(ctx); err != nil {
			return c.fail("save failed: %v", err)
		}
		okColor.Fprintf(c.out, "Journal replaced: %d records\n", store.Len())
		return exitOK
	}

	added := 0
	for _, r := range incoming {
		if store.Append(r) {
			added++
		}
	}
	if added == 0 {
		fmt.Fprintf(c.out, "Nothing to import: all %d records already present\n", len(incoming))
		return exitOK
	}
	if err := store.Save(ctx); err != nil {
		return c.fail("save failed: %v", err)
	}
	okColor.Fprintf(c.out, "Imported %d records (%d already present), journal now has %d\n",
		added, len(incoming)-added, store.Len())
	return exitOK
}

// confirm asks a yes/no question on an interactive terminal. Without one it
// refuses, so scripts have to pass --yes.
func (c *cli) confirm(question string) bool {
	if !c.interactive {
		errColor.Fprintln(c.errOut, "Error: refusing to replace the journal without --yes")
		return false
	}
	fmt.Fprintf(c.errOut, "%s [y/N] ", question)
	line, err := bufio.NewReader(c.in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func (c *cli) render(ctx context.Context, args []string) int {
	fs, o := c.newFlagSet("render")
	siteDir := fs.StringP("site-dir", "s", envOr("SITE_DIR", "."), "site directory")
	maxItems := fs.Int("max-index-items", site.DefaultMaxIndexItems, "records shown on the index page")
	perPage := fs.Int("items-per-page", site.DefaultItemsPerPage, "items per day before the rest are folded")
	defaultCategory := fs.String("default-category", string(mediatypes.CategoryTVShow), "tab selected when the index opens")
	doPublish := fs.Bool("publish", false, "commit and push the rendered files")
	remote := fs.String("remote", envOr("GIT_REMOTE", "origin"), "git remote to push to, empty to skip the push")
	branch := fs.String("branch", envOr("GIT_BRANCH", "main"), "git branch to push")
	if code := c.parse(fs, o, args); code >= 0 {
		return code
	}

	category, ok := mediatypes.ParseCategory(*defaultCategory)
	if !ok {
		return c.fail("unknown category %q", *defaultCategory)
	}
	dir, err := filepath.Abs(*siteDir)
	if err != nil {
		return c.fail("%v", err)
	}

	store, _, err := c.openStore(ctx, o)
	if err != nil {
		return c.fail("%v", err)
	}
	defer closeStore(store)

	renderer, err := site.New(site.Config{
		Dir:                  dir,
		MaxIndexItems:        *maxItems,
		ItemsPerPage:         *perPage,
		DefaultCategory:      category,
		JournalIsArchiveData: isArchiveData(o, dir),
	})
	if err != nil {
		return c.fail("%v", err)
	}
	files, err := renderer.Render(store.Records())
	if err != nil {
		return c.fail("render failed: %v", err)
	}
	okColor.Fprintf(c.out, "Rendered %d records into %s\n", store.Len(), dir)
	for _, f := range files {
		fmt.Fprintf(c.out, "  %s\n", f)
	}

	if !*doPublish {
		return exitOK
	}
	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	git := publish.NewGit(publish.Config{Dir: dir, Remote: *remote, Branch: *branch})
	if !git.IsRepository(pubCtx) {
		return c.fail("%s is not a git work tree", dir)
	}
	if err := git.Publish(pubCtx, files); err != nil {
		return c.fail("publish failed: %v", err)
	}
	okColor.Fprintln(c.out, "Published")
	return exitOK
}

// isArchiveData reports whether the JSON journal is the site's archive data
// file, which the renderer must then leave alone.
func isArchiveData(o *journalOptions, siteDir string) bool {
	if !strings.EqualFold(o.backend, journal.BackendJSON) && o.backend != "" {
		return false
	}
	path, err := filepath.Abs(o.path)
	if err != nil {
		return false
	}
	return path == filepath.Join(siteDir, site.ArchiveDataFile)
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
