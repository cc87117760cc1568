package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"geomigrate/internal/catalog"
	"geomigrate/internal/location"
	"geomigrate/internal/logging"
	"geomigrate/internal/migration"
	"geomigrate/internal/preflight"
	"geomigrate/internal/reupload"
	"geomigrate/internal/settings"
	"geomigrate/internal/staging"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var skipPreflight bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute the location migration",
		Long: "Stages backed-up catalog files lacking location metadata, resolves each " +
			"against the asset location provider, and queues files with real coordinates " +
			"for re-upload. Safe to re-run: completed work is checkpointed.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("build logger: %w", err)
			}

			lock := flock.New(filepath.Join(cfg.Paths.DataDir, "geomigrate.lock"))
			ok, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire run lock: %w", err)
			}
			if !ok {
				return errors.New("another geomigrate run is already in progress")
			}
			defer func() { _ = lock.Unlock() }()

			if !skipPreflight {
				results := preflight.RunAll(cmd.Context(), cfg)
				for _, result := range results {
					if result.Passed {
						logger.Debug("preflight check passed", "check", result.Name, "detail", result.Detail)
						continue
					}
					logger.Error("preflight check failed", "check", result.Name, "detail", result.Detail)
				}
				if !preflight.AllPassed(results) {
					return errors.New("preflight checks failed (use --skip-preflight to override)")
				}
			}

			settingsStore, err := settings.Open(cfg)
			if err != nil {
				return fmt.Errorf("open settings store: %w", err)
			}
			defer settingsStore.Close()

			stagingStore, err := staging.Open(cfg)
			if err != nil {
				return fmt.Errorf("open staging store: %w", err)
			}
			defer stagingStore.Close()

			catalogStore, err := catalog.Open(cfg)
			if err != nil {
				return fmt.Errorf("open catalog store: %w", err)
			}
			defer catalogStore.Close()

			engine := migration.New(
				settingsStore,
				stagingStore,
				catalogStore,
				location.NewFromConfig(cfg),
				reupload.NewQueueMarker(stagingStore, logger),
				logger,
				migration.WithPageSize(cfg.Migration.PageSize),
			)

			out := cmd.OutOrStdout()
			if engine.IsComplete(cmd.Context()) {
				fmt.Fprintln(out, "Location migration already complete.")
				return nil
			}

			engine.Run(cmd.Context())

			if !engine.IsComplete(cmd.Context()) {
				return errors.New("migration did not complete; see logs and re-run to resume")
			}
			fmt.Fprintln(out, "Location migration complete.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipPreflight, "skip-preflight", false, "Skip environment checks before running")
	return cmd
}
