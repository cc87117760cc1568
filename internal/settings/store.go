package settings

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"geomigrate/internal/config"
	"geomigrate/internal/sqlitedb"
)

// Checkpoint keys recognized by the migration engine.
const (
	KeyLocalImportDone           = "fm_IsLocalImportDone"
	KeyLocationMigrationComplete = "fm_isLocationMigrationComplete"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is bumped when the schema changes.
const schemaVersion = 1

// Store manages flag persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the settings database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.DataDir, "settings.db")
	db, err := sqlitedb.Open(dbPath)
	if err != nil {
		return nil, err
	}

	store := &Store{db: db, path: dbPath}
	if err := sqlitedb.InitSchema(context.Background(), db, schemaSQL, schemaVersion); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// GetBool reads a boolean flag. An absent key reads as false, not an error.
func (s *Store) GetBool(ctx context.Context, key string) (bool, error) {
	ctx = sqlitedb.EnsureContext(ctx)
	var value int
	err := s.db.QueryRowContext(ctx, `SELECT bool_value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get flag %q: %w", key, err)
	}
	return value != 0, nil
}

// SetBool writes a boolean flag, creating or replacing the key.
func (s *Store) SetBool(ctx context.Context, key string, value bool) error {
	ctx = sqlitedb.EnsureContext(ctx)
	stored := 0
	if value {
		stored = 1
	}
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	err := sqlitedb.Exec(ctx, s.db,
		`INSERT INTO settings (key, bool_value, updated_at) VALUES (?, ?, ?)
         ON CONFLICT(key) DO UPDATE SET bool_value = excluded.bool_value, updated_at = excluded.updated_at`,
		key, stored, timestamp,
	)
	if err != nil {
		return fmt.Errorf("set flag %q: %w", key, err)
	}
	return nil
}
