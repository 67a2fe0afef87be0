package journal

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"media-watcher/internal/database"
	"media-watcher/internal/filesystem"
	"media-watcher/internal/logging"
	"media-watcher/internal/mediatypes"
)

// Backend persists the full record set.
type Backend interface {
	// Load returns every stored record. A missing journal is empty, not an
	// error. A structurally broken journal wraps ErrCorrupt.
	Load(ctx context.Context) ([]Record, error)
	// Save replaces the stored journal with records, all or nothing.
	Save(ctx context.Context, records []Record) error
	Close() error
	String() string
}

// Backend kinds accepted by Open.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// Open returns the backend named by kind, storing its data at path.
func Open(ctx context.Context, kind, path string) (Backend, error) {
	switch strings.ToLower(kind) {
	case "", BackendJSON:
		return NewFileBackend(path), nil
	case BackendSQLite:
		db, err := database.New(ctx, path)
		if err != nil {
			return nil, err
		}
		return NewSQLiteBackend(db), nil
	default:
		return nil, fmt.Errorf("unknown journal backend %q (want %s or %s)", kind, BackendJSON, BackendSQLite)
	}
}

// FileBackend stores the journal as a JSON array file.
type FileBackend struct {
	path string
}

// NewFileBackend creates a backend for the JSON file at path.
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

// Path returns the journal file path.
func (b *FileBackend) Path() string {
	return b.path
}

// Load reads and decodes the journal file.
func (b *FileBackend) Load(ctx context.Context) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := filesystem.ReadFileWithRetry(b.path, filesystem.DefaultRetryConfig())
	if errors.Is(err, os.ErrNotExist) {
		logging.Info("Journal %s does not exist yet, starting empty", b.path)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read journal %s: %w", b.path, err)
	}
	return Decode(data)
}

// Save encodes records and atomically replaces the journal file.
func (b *FileBackend) Save(ctx context.Context, records []Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := Encode(records)
	if err != nil {
		return err
	}
	return filesystem.WriteFileAtomic(b.path, data, 0o644)
}

// Close is a no-op.
func (b *FileBackend) Close() error {
	return nil
}

func (b *FileBackend) String() string {
	return "json:" + b.path
}

// SQLiteBackend stores the journal in the updates table.
type SQLiteBackend struct {
	db *database.Database
}

// NewSQLiteBackend wraps an open database.
func NewSQLiteBackend(db *database.Database) *SQLiteBackend {
	return &SQLiteBackend{db: db}
}

// Load reads every row, skipping rows that fail validation.
func (b *SQLiteBackend) Load(ctx context.Context) ([]Record, error) {
	rows, err := b.db.ListUpdates(ctx)
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		r, err := fromRow(row)
		if err != nil {
			logging.Warn("Skipping journal row %s: %v", row.AbsolutePath, err)
			continue
		}
		records = append(records, r)
	}
	return records, nil
}

// Save replaces the table contents with records.
func (b *SQLiteBackend) Save(ctx context.Context, records []Record) error {
	rows := make([]database.Update, 0, len(records))
	for _, r := range records {
		rows = append(rows, toRow(r))
	}
	if err := b.db.ReplaceUpdates(ctx, rows); err != nil {
		return err
	}
	b.db.UpdateDBMetrics()
	return nil
}

// LastSave returns the time of the last successful Save, or the zero time.
func (b *SQLiteBackend) LastSave(ctx context.Context) (time.Time, error) {
	return b.db.GetLastSave(ctx)
}

// RowCounts returns the stored rows per category, including rows that Load
// would skip.
func (b *SQLiteBackend) RowCounts(ctx context.Context) (map[string]int, error) {
	return b.db.CountByCategory(ctx)
}

// Close closes the database.
func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}

func (b *SQLiteBackend) String() string {
	return "sqlite:" + b.db.Path()
}

func toRow(r Record) database.Update {
	key := r.Key()
	if key == "" {
		// path_key is UNIQUE; keep pathless legacy rows distinct.
		key = fmt.Sprintf("\x00%s|%s", storedTimestamp(r.Timestamp), r.Filename)
	}
	return database.Update{
		Timestamp:    storedTimestamp(r.Timestamp),
		Category:     string(r.Category),
		Filename:     r.Filename,
		AbsolutePath: r.AbsolutePath,
		PathKey:      key,
		RelativePath: r.RelativePath,
		ExternalID:   r.ExternalID,
		ExternalURL:  r.ExternalURL,
		Synopsis:     r.Synopsis,
	}
}

func fromRow(u database.Update) (Record, error) {
	ts, err := ParseTimestamp(u.Timestamp)
	if err != nil {
		return Record{}, err
	}
	category, ok := mediatypes.ParseCategory(u.Category)
	if !ok {
		return Record{}, fmt.Errorf("unknown category %q", u.Category)
	}
	return Record{
		Timestamp:    ts,
		Category:     category,
		Filename:     firstNonEmpty(u.Filename, NotAvailable),
		AbsolutePath: u.AbsolutePath,
		RelativePath: firstNonEmpty(u.RelativePath, NotAvailable),
		ExternalID:   u.ExternalID,
		ExternalURL:  u.ExternalURL,
		Synopsis:     u.Synopsis,
	}, nil
}
