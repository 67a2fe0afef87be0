package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"media-watcher/internal/logging"
	"media-watcher/internal/metrics"
)

// Default timeout for database operations
const defaultTimeout = 5 * time.Second

// schemaVersion is stored in the metadata table.
const schemaVersion = "1"

// Update is one row of the updates table. Timestamps are stored as RFC 3339
// text so the table stays readable with the sqlite3 shell.
type Update struct {
	Timestamp    string
	Category     string
	Filename     string
	AbsolutePath string
	PathKey      string
	RelativePath string
	ExternalID   string
	ExternalURL  string
	Synopsis     string
}

// Database stores the update journal in SQLite.
type Database struct {
	db     *sql.DB
	dbPath string
	mu     sync.RWMutex
}

// New opens (or creates) the database at dbPath.
// The parent directory is created when missing.
func New(ctx context.Context, dbPath string) (*Database, error) {
	logging.Info("Database path: %s", dbPath)

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// busy_timeout helps prevent "database is locked" errors
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after ping failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// A single writer process; a few readers for the status API.
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	d := &Database{
		db:     db,
		dbPath: dbPath,
	}

	if err := d.initialize(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after initialization failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	logging.Info("Database initialized successfully at %s", dbPath)
	return d, nil
}

func (d *Database) initialize(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS updates (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp TEXT NOT NULL,
		category TEXT NOT NULL,
		filename TEXT NOT NULL,
		absolute_path TEXT NOT NULL,
		path_key TEXT NOT NULL UNIQUE,
		relative_path TEXT NOT NULL,
		external_id TEXT NOT NULL DEFAULT '',
		external_url TEXT NOT NULL DEFAULT '',
		synopsis TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_updates_timestamp ON updates(timestamp);
	CREATE INDEX IF NOT EXISTS idx_updates_category ON updates(category);

	CREATE TABLE IF NOT EXISTS metadata (
		key TEXT PRIMARY KEY,
		value TEXT
	);
	`

	if _, err := d.db.ExecContext(ctx, schema); err != nil {
		return err
	}

	return d.SetMetadata(ctx, "schema_version", schemaVersion)
}

// Path returns the database file path.
func (d *Database) Path() string {
	return d.dbPath
}

// Close closes the database connection.
func (d *Database) Close() error {
	return d.db.Close()
}

// ReplaceUpdates swaps the table contents for rows inside one transaction.
// Either every row is written or the previous contents stay in place.
func (d *Database) ReplaceUpdates(ctx context.Context, rows []Update) (err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	start := time.Now()
	defer func() { recordQuery("replace_updates", start, err) }()

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logging.Error("failed to roll back updates transaction: %v", rbErr)
			}
		}
	}()

	if _, err = tx.ExecContext(ctx, "DELETE FROM updates"); err != nil {
		return fmt.Errorf("failed to clear updates: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO updates (timestamp, category, filename, absolute_path, path_key,
			relative_path, external_id, external_url, synopsis)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, r := range rows {
		if _, err = stmt.ExecContext(ctx, r.Timestamp, r.Category, r.Filename, r.AbsolutePath,
			r.PathKey, r.RelativePath, r.ExternalID, r.ExternalURL, r.Synopsis); err != nil {
			return fmt.Errorf("failed to insert %s: %w", r.AbsolutePath, err)
		}
	}

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO metadata (key, value) VALUES ('last_save', ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, time.Now().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("failed to record save time: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit updates: %w", err)
	}
	return nil
}

// ListUpdates returns every row, newest first.
func (d *Database) ListUpdates(ctx context.Context) (_ []Update, err error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	start := time.Now()
	defer func() { recordQuery("list_updates", start, err) }()

	rows, err := d.db.QueryContext(ctx, `
		SELECT timestamp, category, filename, absolute_path, path_key,
			relative_path, external_id, external_url, synopsis
		FROM updates
		ORDER BY timestamp DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query updates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Update
	for rows.Next() {
		var u Update
		if err = rows.Scan(&u.Timestamp, &u.Category, &u.Filename, &u.AbsolutePath, &u.PathKey,
			&u.RelativePath, &u.ExternalID, &u.ExternalURL, &u.Synopsis); err != nil {
			return nil, fmt.Errorf("failed to scan update: %w", err)
		}
		out = append(out, u)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate updates: %w", err)
	}
	return out, nil
}

// CountByCategory returns the number of rows per category.
func (d *Database) CountByCategory(ctx context.Context) (_ map[string]int, err error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	start := time.Now()
	defer func() { recordQuery("count_by_category", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, "SELECT category, COUNT(*) FROM updates GROUP BY category")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	counts := map[string]int{}
	for rows.Next() {
		var category string
		var n int
		if err = rows.Scan(&category, &n); err != nil {
			return nil, err
		}
		counts[category] = n
	}
	return counts, rows.Err()
}

// recordQuery records database query metrics
func recordQuery(operation string, start time.Time, err error) {
	duration := time.Since(start).Seconds()
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.DBQueryTotal.WithLabelValues(operation, status).Inc()
	metrics.DBQueryDuration.WithLabelValues(operation).Observe(duration)
}

// UpdateDBMetrics updates database connection metrics
func (d *Database) UpdateDBMetrics() {
	stats := d.db.Stats()
	metrics.DBConnectionsOpen.Set(float64(stats.OpenConnections))
}
