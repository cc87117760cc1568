package catalog

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"geomigrate/internal/config"
	"geomigrate/internal/sqlitedb"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is bumped when the schema changes.
const schemaVersion = 1

// File is one catalog record.
type File struct {
	LocalID   string
	Path      string
	BackedUp  bool
	Latitude  float64
	Longitude float64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Stats summarizes catalog contents for status reporting.
type Stats struct {
	Total           int64
	BackedUp        int64
	MissingLocation int64
}

// Store manages catalog persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the catalog database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.DataDir, "catalog.db")
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

// MissingLocationBackedUp returns the local IDs of files that are backed up
// and have no recorded coordinates, in stable local-ID order.
func (s *Store) MissingLocationBackedUp(ctx context.Context) ([]string, error) {
	ctx = sqlitedb.EnsureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		`SELECT local_id FROM files
         WHERE backed_up = 1 AND latitude = 0 AND longitude = 0
         ORDER BY local_id`)
	if err != nil {
		return nil, fmt.Errorf("query missing-location files: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var localID string
		if err := rows.Scan(&localID); err != nil {
			return nil, fmt.Errorf("scan local id: %w", err)
		}
		ids = append(ids, localID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate missing-location files: %w", err)
	}
	return ids, nil
}

// Add inserts a new catalog record.
func (s *Store) Add(ctx context.Context, file File) error {
	if strings.TrimSpace(file.LocalID) == "" {
		return errors.New("local id is required")
	}
	ctx = sqlitedb.EnsureContext(ctx)
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	backedUp := 0
	if file.BackedUp {
		backedUp = 1
	}
	err := sqlitedb.Exec(ctx, s.db,
		`INSERT INTO files (local_id, path, backed_up, latitude, longitude, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		file.LocalID, file.Path, backedUp, file.Latitude, file.Longitude, timestamp, timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert file %q: %w", file.LocalID, err)
	}
	return nil
}

// SetLocation records coordinates for a file.
func (s *Store) SetLocation(ctx context.Context, localID string, latitude, longitude float64) error {
	ctx = sqlitedb.EnsureContext(ctx)
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	err := sqlitedb.Exec(ctx, s.db,
		`UPDATE files SET latitude = ?, longitude = ?, updated_at = ? WHERE local_id = ?`,
		latitude, longitude, timestamp, localID,
	)
	if err != nil {
		return fmt.Errorf("set location for %q: %w", localID, err)
	}
	return nil
}

// MarkBackedUp flags a file as backed up.
func (s *Store) MarkBackedUp(ctx context.Context, localID string) error {
	ctx = sqlitedb.EnsureContext(ctx)
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	err := sqlitedb.Exec(ctx, s.db,
		`UPDATE files SET backed_up = 1, updated_at = ? WHERE local_id = ?`,
		timestamp, localID,
	)
	if err != nil {
		return fmt.Errorf("mark backed up %q: %w", localID, err)
	}
	return nil
}

// Get fetches a catalog record, returning nil when the ID is unknown.
func (s *Store) Get(ctx context.Context, localID string) (*File, error) {
	ctx = sqlitedb.EnsureContext(ctx)
	row := s.db.QueryRowContext(ctx,
		`SELECT local_id, path, backed_up, latitude, longitude, created_at, updated_at
         FROM files WHERE local_id = ?`, localID)

	var (
		file      File
		backedUp  int
		createdAt string
		updatedAt string
	)
	err := row.Scan(&file.LocalID, &file.Path, &backedUp, &file.Latitude, &file.Longitude, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get file %q: %w", localID, err)
	}
	file.BackedUp = backedUp != 0
	file.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	file.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return &file, nil
}

// Stats returns catalog totals for status reporting.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	ctx = sqlitedb.EnsureContext(ctx)
	var stats Stats
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1),
                COALESCE(SUM(backed_up), 0),
                COALESCE(SUM(CASE WHEN backed_up = 1 AND latitude = 0 AND longitude = 0 THEN 1 ELSE 0 END), 0)
         FROM files`).Scan(&stats.Total, &stats.BackedUp, &stats.MissingLocation)
	if err != nil {
		return Stats{}, fmt.Errorf("catalog stats: %w", err)
	}
	return stats, nil
}
