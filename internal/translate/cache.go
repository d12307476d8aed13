package translate

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current cache schema version. A mismatching cache is
// rejected; deleting the file is always safe.
const schemaVersion = 1

// ErrSchemaMismatch indicates the cache was written by an incompatible version.
var ErrSchemaMismatch = errors.New("translation cache schema version mismatch")

// Cache memoises text translations in SQLite, keyed by engine, language pair,
// and source text. It never decides whether a pipeline stage runs.
type Cache struct {
	db   *sql.DB
	path string
}

// OpenCache opens or creates the cache database at path.
func OpenCache(ctx context.Context, path string) (*Cache, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure cache directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	cache := &Cache{db: db, path: path}
	if err := cache.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return cache, nil
}

// Path returns the database location.
func (c *Cache) Path() string { return c.path }

// Close closes the underlying database connection.
func (c *Cache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

func (c *Cache) initSchema(ctx context.Context) error {
	var tableExists int
	err := c.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		return c.createSchema(ctx)
	}

	var version int
	err = c.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: %s has version %d, expected %d (delete the file to rebuild it)",
			ErrSchemaMismatch, c.path, version, schemaVersion)
	}
	return nil
}

func (c *Cache) createSchema(ctx context.Context) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// Key scopes cache entries.
type Key struct {
	Engine string
	Source string
	Target string
}

// Lookup returns the cached translations for the given texts. Texts without
// an entry are absent from the result.
func (c *Cache) Lookup(ctx context.Context, key Key, texts []string) (map[string]string, error) {
	found := make(map[string]string, len(texts))
	stmt, err := c.db.PrepareContext(ctx,
		`SELECT translation FROM translations
        WHERE engine = ? AND source_lang = ? AND target_lang = ? AND source_text = ?`)
	if err != nil {
		return nil, fmt.Errorf("prepare lookup: %w", err)
	}
	defer stmt.Close()

	for _, text := range texts {
		var translation string
		err := stmt.QueryRowContext(ctx, key.Engine, key.Source, key.Target, text).Scan(&translation)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("lookup translation: %w", err)
		}
		found[text] = translation
	}
	return found, nil
}

// Store records translations, replacing earlier entries for the same text.
func (c *Cache) Store(ctx context.Context, key Key, translations map[string]string) error {
	if len(translations) == 0 {
		return nil
	}
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin store tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO translations (
            engine, source_lang, target_lang, source_text, translation, created_at
        ) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare store: %w", err)
	}
	defer stmt.Close()

	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	for text, translation := range translations {
		if _, err := stmt.ExecContext(ctx, key.Engine, key.Source, key.Target, text, translation, timestamp); err != nil {
			return fmt.Errorf("store translation: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit translations: %w", err)
	}
	return nil
}

// Count returns the number of cached entries for key.
func (c *Cache) Count(ctx context.Context, key Key) (int, error) {
	var n int
	err := c.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM translations WHERE engine = ? AND source_lang = ? AND target_lang = ?",
		key.Engine, key.Source, key.Target,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count translations: %w", err)
	}
	return n, nil
}
