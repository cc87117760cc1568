package migration

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"geomigrate/internal/location"
	"geomigrate/internal/logging"
	"geomigrate/internal/reupload"
	"geomigrate/internal/services"
	"geomigrate/internal/settings"
)

// defaultPageSize bounds how many staged candidates are classified per batch.
const defaultPageSize = 100

// SettingsStore is the durable checkpoint storage the engine writes.
type SettingsStore interface {
	GetBool(ctx context.Context, key string) (bool, error)
	SetBool(ctx context.Context, key string, value bool) error
}

// StagingStore is the persistent candidate queue the engine owns.
type StagingStore interface {
	BulkInsert(ctx context.Context, localIDs []string) error
	Page(ctx context.Context, limit int) ([]string, error)
	DeleteByIDs(ctx context.Context, localIDs []string) error
}

// CatalogSource exposes the single catalog query the engine needs.
type CatalogSource interface {
	MissingLocationBackedUp(ctx context.Context) ([]string, error)
}

// Engine orchestrates the two-phase location migration.
type Engine struct {
	settings SettingsStore
	staging  StagingStore
	catalog  CatalogSource
	provider location.Provider
	marker   reupload.Marker
	logger   *slog.Logger
	pageSize int

	mu       sync.Mutex
	inflight chan struct{}
}

// Option configures optional Engine behavior.
type Option func(*Engine)

// WithPageSize overrides the classification batch size.
func WithPageSize(size int) Option {
	return func(e *Engine) {
		if size > 0 {
			e.pageSize = size
		}
	}
}

// New constructs a migration engine over the provided collaborators. A nil
// marker discards verdicts and a nil logger discards log output.
func New(settingsStore SettingsStore, stagingStore StagingStore, catalogStore CatalogSource, provider location.Provider, marker reupload.Marker, logger *slog.Logger, opts ...Option) *Engine {
	if marker == nil {
		marker = reupload.NopMarker{}
	}
	engine := &Engine{
		settings: settingsStore,
		staging:  stagingStore,
		catalog:  catalogStore,
		provider: provider,
		marker:   marker,
		logger:   logging.WithComponent(logger, "migration"),
		pageSize: defaultPageSize,
	}
	for _, opt := range opts {
		opt(engine)
	}
	return engine
}

// Run executes the migration. If a run is already in flight the caller waits
// for that run to finish instead of starting another; calls arriving after
// it finishes trigger a fresh run. Failures are logged, never returned: a
// partial run leaves the checkpoints and staging queue consistent, and the
// next Run resumes from them.
func (e *Engine) Run(ctx context.Context) {
	e.mu.Lock()
	if done := e.inflight; done != nil {
		e.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
		}
		return
	}
	done := make(chan struct{})
	e.inflight = done
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.inflight = nil
		e.mu.Unlock()
		close(done)
	}()

	logger := e.logger.With(slog.String(logging.FieldRunID, uuid.NewString()))
	logger.Info("location migration run started")
	if err := e.runOnce(ctx, logger); err != nil {
		logger.Error("location migration run failed", slog.Any("error", err))
	}
}

// IsComplete reports the durable completion checkpoint. An unreadable or
// absent flag reads as not complete.
func (e *Engine) IsComplete(ctx context.Context) bool {
	complete, err := e.settings.GetBool(ctx, settings.KeyLocationMigrationComplete)
	if err != nil {
		e.logger.Warn("read completion flag", slog.Any("error", err))
		return false
	}
	return complete
}

func (e *Engine) runOnce(ctx context.Context, logger *slog.Logger) error {
	start := time.Now()

	if err := e.importCandidates(ctx, logger); err != nil {
		return err
	}
	if err := e.drainStaging(ctx, logger); err != nil {
		return err
	}

	elapsed := time.Since(start)
	if err := e.settings.SetBool(ctx, settings.KeyLocationMigrationComplete, true); err != nil {
		return fmt.Errorf("record completion: %w", err)
	}
	logger.Info("location migration complete", slog.Duration("elapsed", elapsed))
	return nil
}

// importCandidates copies missing-location catalog IDs into the staging
// queue. It runs at most once per installation: the import-done flag is set
// only after the insert succeeds, so a failed import is retried wholesale on
// the next run.
func (e *Engine) importCandidates(ctx context.Context, logger *slog.Logger) error {
	imported, err := e.settings.GetBool(ctx, settings.KeyLocalImportDone)
	if err != nil {
		return fmt.Errorf("read import flag: %w", err)
	}
	if imported {
		return nil
	}

	ids, err := e.catalog.MissingLocationBackedUp(ctx)
	if err != nil {
		return fmt.Errorf("query catalog: %w", err)
	}
	if err := e.staging.BulkInsert(ctx, ids); err != nil {
		return fmt.Errorf("stage candidates: %w", err)
	}
	if err := e.settings.SetBool(ctx, settings.KeyLocalImportDone, true); err != nil {
		return fmt.Errorf("record import: %w", err)
	}

	logger.Info("imported migration candidates",
		slog.String(logging.FieldPhase, "import"),
		slog.Int("count", len(ids)))
	return nil
}

// drainStaging classifies staged candidates page by page until the queue is
// empty. Pages are deleted whole, whether or not every ID in them could be
// classified, which guarantees forward progress.
func (e *Engine) drainStaging(ctx context.Context, logger *slog.Logger) error {
	pageLogger := logger.With(slog.String(logging.FieldPhase, "classify"))
	for {
		ids, err := e.staging.Page(ctx, e.pageSize)
		if err != nil {
			return fmt.Errorf("fetch page: %w", err)
		}
		if len(ids) == 0 {
			return nil
		}

		hasLocation := e.classifyPage(ctx, pageLogger, ids)
		if len(hasLocation) > 0 {
			if err := e.marker.MarkForReUpload(ctx, hasLocation); err != nil {
				return fmt.Errorf("mark for re-upload: %w", err)
			}
		}
		if err := e.staging.DeleteByIDs(ctx, ids); err != nil {
			return fmt.Errorf("delete page: %w", err)
		}

		pageLogger.Debug("classified page",
			slog.Int("page_size", len(ids)),
			slog.Int("with_location", len(hasLocation)))
	}
}

// classifyPage resolves each ID independently. Lookup failures never abort
// the page: assets the provider no longer knows are discarded with the page,
// and transient errors are logged and skipped.
func (e *Engine) classifyPage(ctx context.Context, logger *slog.Logger, ids []string) []string {
	var hasLocation []string
	for _, localID := range ids {
		coords, err := e.provider.Lookup(ctx, localID)
		if err != nil {
			if services.IsNotFound(err) {
				logger.Debug("asset no longer exists, discarding",
					slog.String(logging.FieldLocalID, localID))
			} else {
				logger.Warn("location lookup failed, skipping",
					slog.String(logging.FieldLocalID, localID),
					slog.Any("error", err))
			}
			continue
		}
		if coords.HasLocation() {
			hasLocation = append(hasLocation, localID)
		}
	}
	return hasLocation
}
