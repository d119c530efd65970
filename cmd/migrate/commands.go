package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	"github.com/spf13/cobra"

	"ledgerd/internal/config"
	"ledgerd/internal/database"
	"ledgerd/internal/logger"
	"ledgerd/internal/services"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "migrate",
		Short: "Schema and data migrations for the ledger database",
		Long: `migrate applies SQL schema migrations and runs the one-off data
migration that embeds normalized entry rows into their transaction groups.

Example:
  migrate up
  migrate down 1
  migrate embed-entries --dry-run`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			return logger.SetLevel(cfg.LogLevel)
		},
	}

	root.AddCommand(newUpCmd(), newDownCmd(), newVersionCmd(), newEmbedEntriesCmd())
	return root
}

func newUpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(func(m *migrate.Migrate) error {
				if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
					return fmt.Errorf("migration up failed: %w", err)
				}
				logger.Get().Info("Migrations applied successfully")
				return nil
			})
		},
	}
}

func newDownCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "down [N]",
		Short: "Roll back N schema migrations (default 1)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			steps := 1
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil || n < 1 {
					return fmt.Errorf("invalid step count %q", args[0])
				}
				steps = n
			}
			return withMigrator(func(m *migrate.Migrate) error {
				if err := m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
					return fmt.Errorf("migration down failed: %w", err)
				}
				logger.Get().Infof("Rolled back %d migration(s)", steps)
				return nil
			})
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(func(m *migrate.Migrate) error {
				version, dirty, err := m.Version()
				if err != nil {
					return fmt.Errorf("failed to get version: %w", err)
				}
				logger.Get().Infof("Version: %d, Dirty: %v", version, dirty)
				return nil
			})
		},
	}
}

func newEmbedEntriesCmd() *cobra.Command {
	var opts services.EmbedOptions

	cmd := &cobra.Command{
		Use:   "embed-entries",
		Short: "Copy normalized entry rows into their transaction groups",
		Long: `embed-entries walks every transaction group still on the normalized
entry layout, validates its entries and writes them into the group row.
Groups that fail validation are reported and left untouched. A persisted
report summarizes the run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Get()
			if !cmd.Flags().Changed("batch-size") {
				opts.BatchSize = cfg.MigrationBatchSize
			}
			if !cmd.Flags().Changed("sample-size") {
				opts.SampleSize = cfg.MigrationSampleSize
			}

			manager, err := database.NewManager(database.NewConfig(cfg), logger.Named("db"))
			if err != nil {
				return err
			}
			defer func() {
				if err := manager.Close(); err != nil {
					logger.Get().Warnf("failed to close database: %v", err)
				}
			}()

			db := manager.DB()
			svc := services.NewMigrationService(db, services.NewFundingService(db, logger.Named("funding")), cfg.BalanceTolerance, logger.Named("migration"))
			report, err := svc.EmbedEntries(cmd.Context(), opts)
			if err != nil {
				return err
			}

			log := logger.Get()
			log.Infow("Entry migration finished",
				"dry_run", report.DryRun,
				"migrated", report.Migrated,
				"failed", report.Failed,
				"skipped", report.Skipped,
				"groups_without_entries", report.GroupsWithoutEntries,
				"orphaned_entries", report.OrphanedEntries,
				"usages_backfilled", report.UsagesBackfilled,
				"sampled", report.Sampled,
				"sample_mismatches", report.SampleMismatches,
			)
			for _, issue := range report.Errors {
				log.Warnw("Group not migrated", "group_id", issue.GroupID, "reason", issue.Reason)
			}
			if report.Failed > 0 || report.SampleMismatches > 0 {
				return fmt.Errorf("%d group(s) failed and %d sample mismatch(es)", report.Failed, report.SampleMismatches)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&opts.BatchSize, "batch-size", 100, "groups loaded per batch")
	cmd.Flags().IntVar(&opts.SampleSize, "sample-size", 20, "migrated groups re-read for verification")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "validate and report without writing entries")
	return cmd
}

// withMigrator opens a golang-migrate instance for the configured database
// and closes it after fn returns. The root command has loaded the config.
func withMigrator(fn func(m *migrate.Migrate) error) error {
	m, err := database.NewMigrator(database.NewConfig(config.Get()))
	if err != nil {
		return err
	}
	defer database.CloseMigrator(m, logger.Get())
	return fn(m)
}
