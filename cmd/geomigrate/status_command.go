package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"geomigrate/internal/catalog"
	"geomigrate/internal/settings"
	"geomigrate/internal/staging"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show migration progress and queue depths",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
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

			cmdCtx := cmd.Context()
			importDone, err := settingsStore.GetBool(cmdCtx, settings.KeyLocalImportDone)
			if err != nil {
				return fmt.Errorf("read import flag: %w", err)
			}
			complete, err := settingsStore.GetBool(cmdCtx, settings.KeyLocationMigrationComplete)
			if err != nil {
				return fmt.Errorf("read completion flag: %w", err)
			}
			staged, err := stagingStore.Count(cmdCtx)
			if err != nil {
				return fmt.Errorf("count staged candidates: %w", err)
			}
			pending, err := stagingStore.PendingReuploads(cmdCtx)
			if err != nil {
				return fmt.Errorf("list pending re-uploads: %w", err)
			}
			stats, err := catalogStore.Stats(cmdCtx)
			if err != nil {
				return fmt.Errorf("read catalog stats: %w", err)
			}

			title := cases.Title(language.English)
			rows := [][]string{
				{title.String("phase"), phaseLabel(importDone, complete)},
				{"Import done", strconv.FormatBool(importDone)},
				{"Migration complete", strconv.FormatBool(complete)},
				{"Staged candidates", strconv.FormatInt(staged, 10)},
				{"Pending re-uploads", strconv.Itoa(len(pending))},
				{"Catalog files", strconv.FormatInt(stats.Total, 10)},
				{"Catalog backed up", strconv.FormatInt(stats.BackedUp, 10)},
				{"Catalog missing location", strconv.FormatInt(stats.MissingLocation, 10)},
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Field", "Value"}, rows))
			return nil
		},
	}
}

func phaseLabel(importDone, complete bool) string {
	switch {
	case complete:
		return "complete"
	case importDone:
		return "classifying"
	default:
		return "pending import"
	}
}
