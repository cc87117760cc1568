package staging

import (
	"context"
	"fmt"
	"time"

	"geomigrate/internal/sqlitedb"
)

// EnqueueReupload records local IDs whose assets were classified as having
// location data, so the host upload pipeline can re-process them. Already
// queued IDs are ignored.
func (s *Store) EnqueueReupload(ctx context.Context, localIDs []string) error {
	if len(localIDs) == 0 {
		return nil
	}
	ctx = sqlitedb.EnsureContext(ctx)
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	return sqlitedb.RetryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin reupload tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		stmt, err := tx.PrepareContext(ctx,
			`INSERT OR IGNORE INTO reupload_queue (local_id, marked_at) VALUES (?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare reupload insert: %w", err)
		}
		defer stmt.Close()

		for _, localID := range localIDs {
			if _, err := stmt.ExecContext(ctx, localID, timestamp); err != nil {
				return fmt.Errorf("queue reupload %q: %w", localID, err)
			}
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit reupload: %w", err)
		}
		return nil
	})
}

// PendingReuploads returns all queued re-upload IDs in marking order.
func (s *Store) PendingReuploads(ctx context.Context) ([]string, error) {
	ctx = sqlitedb.EnsureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `SELECT local_id FROM reupload_queue ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query reuploads: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var localID string
		if err := rows.Scan(&localID); err != nil {
			return nil, fmt.Errorf("scan reupload: %w", err)
		}
		ids = append(ids, localID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reuploads: %w", err)
	}
	return ids, nil
}

// CompleteReuploads removes IDs from the re-upload queue once the host has
// re-processed them.
func (s *Store) CompleteReuploads(ctx context.Context, localIDs []string) error {
	if len(localIDs) == 0 {
		return nil
	}
	ctx = sqlitedb.EnsureContext(ctx)
	args := make([]any, len(localIDs))
	for i, id := range localIDs {
		args[i] = id
	}
	query := `DELETE FROM reupload_queue WHERE local_id IN (` + sqlitedb.Placeholders(len(localIDs)) + `)`
	if err := sqlitedb.Exec(ctx, s.db, query, args...); err != nil {
		return fmt.Errorf("complete reuploads: %w", err)
	}
	return nil
}
