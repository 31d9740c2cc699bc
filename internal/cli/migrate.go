// Copyright (c) 2026 Tingtong. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/polutek/tingtong/internal/platform/migration"
)

func newMigrateCommand(app *App) *cobra.Command {
	command := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	command.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, err := app.LoadConfig()
				if err != nil {
					return err
				}
				return migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, app.Logger)
			},
		},
		newMigrateDownCommand(app),
		&cobra.Command{
			Use:   "status",
			Short: "Print the applied schema version",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, err := app.LoadConfig()
				if err != nil {
					return err
				}

				status, err := migration.CurrentStatus(cfg.DatabaseURL, cfg.MigrationPath, app.Logger)
				if err != nil {
					return err
				}

				switch {
				case status.Empty:
					fmt.Fprintln(cmd.OutOrStdout(), "no migrations applied")
				case status.Dirty:
					fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: fix manually before migrating)\n", status.Version)
				default:
					fmt.Fprintf(cmd.OutOrStdout(), "version %d\n", status.Version)
				}
				return nil
			},
		},
	)
	return command
}

func newMigrateDownCommand(app *App) *cobra.Command {
	var steps int

	command := &cobra.Command{
		Use:   "down",
		Short: "Roll back applied migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if steps < 1 {
				return fmt.Errorf("--steps must be at least 1, got %d", steps)
			}

			cfg, err := app.LoadConfig()
			if err != nil {
				return err
			}
			return migration.RunDown(cfg.DatabaseURL, cfg.MigrationPath, steps, app.Logger)
		},
	}

	command.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")
	return command
}
