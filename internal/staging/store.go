package staging

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"path/filepath"
	"time"

	"geomigrate/internal/config"
	"geomigrate/internal/sqlitedb"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is bumped when the schema changes.
const schemaVersion = 1

// Store manages staging persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the staging database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.DataDir, "staging.db")
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

// BulkInsert stages the provided local IDs in one transaction. IDs already
// staged are ignored so a retried import cannot create duplicates.
func (s *Store) BulkInsert(ctx context.Context, localIDs []string) error {
	if len(localIDs) == 0 {
		return nil
	}
	ctx = sqlitedb.EnsureContext(ctx)
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	return sqlitedb.RetryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin insert tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		stmt, err := tx.PrepareContext(ctx,
			`INSERT OR IGNORE INTO staging_candidates (local_id, created_at) VALUES (?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare insert: %w", err)
		}
		defer stmt.Close()

		for _, localID := range localIDs {
			if _, err := stmt.ExecContext(ctx, localID, timestamp); err != nil {
				return fmt.Errorf("insert candidate %q: %w", localID, err)
			}
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit insert: %w", err)
		}
		return nil
	})
}

// Page returns up to limit staged local IDs in insertion order without
// removing them.
func (s *Store) Page(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("page limit must be positive, got %d", limit)
	}
	ctx = sqlitedb.EnsureContext(ctx)

	rows, err := s.db.QueryContext(ctx,
		`SELECT local_id FROM staging_candidates ORDER BY id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query page: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var localID string
		if err := rows.Scan(&localID); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		ids = append(ids, localID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate page: %w", err)
	}
	return ids, nil
}

// DeleteByIDs removes the provided local IDs from the staging queue. IDs not
// present are ignored.
func (s *Store) DeleteByIDs(ctx context.Context, localIDs []string) error {
	if len(localIDs) == 0 {
		return nil
	}
	ctx = sqlitedb.EnsureContext(ctx)

	args := make([]any, len(localIDs))
	for i, id := range localIDs {
		args[i] = id
	}
	query := `DELETE FROM staging_candidates WHERE local_id IN (` + sqlitedb.Placeholders(len(localIDs)) + `)`
	if err := sqlitedb.Exec(ctx, s.db, query, args...); err != nil {
		return fmt.Errorf("delete candidates: %w", err)
	}
	return nil
}

// Count returns the number of staged candidates.
func (s *Store) Count(ctx context.Context) (int64, error) {
	ctx = sqlitedb.EnsureContext(ctx)
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM staging_candidates`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count candidates: %w", err)
	}
	return count, nil
}
