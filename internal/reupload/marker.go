package reupload

import (
	"context"
	"log/slog"

	"geomigrate/internal/logging"
	"geomigrate/internal/staging"
)

// Marker receives the local IDs of assets that should be re-uploaded because
// authoritative location data exists for them.
type Marker interface {
	MarkForReUpload(ctx context.Context, localIDs []string) error
}

// QueueMarker persists marked IDs into the staging database's re-upload
// queue for the host upload pipeline to drain.
type QueueMarker struct {
	store  *staging.Store
	logger *slog.Logger
}

// NewQueueMarker constructs a marker backed by the staging store.
func NewQueueMarker(store *staging.Store, logger *slog.Logger) *QueueMarker {
	return &QueueMarker{store: store, logger: logging.WithComponent(logger, "reupload")}
}

func (m *QueueMarker) MarkForReUpload(ctx context.Context, localIDs []string) error {
	if len(localIDs) == 0 {
		return nil
	}
	if err := m.store.EnqueueReupload(ctx, localIDs); err != nil {
		return err
	}
	m.logger.Info("marked assets for re-upload", slog.Int("count", len(localIDs)))
	return nil
}

// NopMarker discards verdicts. Used where no upload pipeline is wired.
type NopMarker struct{}

func (NopMarker) MarkForReUpload(context.Context, []string) error { return nil }
