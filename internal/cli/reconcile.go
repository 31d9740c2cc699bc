// Copyright (c) 2026 Tingtong. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/polutek/tingtong/internal/platform/constants"
	"github.com/polutek/tingtong/internal/social/reconcile"
)

func newReconcileCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Recompute reply and vote counters from the source rows",
		Long: `Recompute replies_count, upvotes and downvotes of every comment from
the comment and vote rows, rewriting only the comments that drifted.

The API server runs the same repair on RECONCILE_CRON; this command runs it
once, immediately.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.LoadConfig()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			repairer, release, err := app.OpenRepairer(ctx, cfg, app.Logger)
			if err != nil {
				return fmt.Errorf("connect: %w", err)
			}
			defer release()

			// The schedule is irrelevant for a single run, but NewJob still
			// validates it so a broken RECONCILE_CRON is reported here too.
			job, err := reconcile.NewJob(repairer, cfg.ReconcileCron, nil, app.Logger)
			if err != nil {
				return err
			}

			repaired, err := job.RunOnce(ctx)
			if err != nil {
				return fmt.Errorf("reconcile: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s: repaired %d comments\n", constants.AppName, repaired)
			return nil
		},
	}
}
