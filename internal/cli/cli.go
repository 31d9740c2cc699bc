// Copyright (c) 2026 Tingtong. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package cli implements tingtongctl, the operator command line.

Commands:

  - migrate up|down|status: Manage the social schema.
  - reconcile: Repair denormalized comment counters once, outside the server schedule.
  - token: Mint a signed access token for local development.

Every command reads the same environment as the API server (see [config.Load]).
*/
package cli

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/polutek/tingtong/internal/platform/config"
	"github.com/polutek/tingtong/internal/platform/constants"
	pgstore "github.com/polutek/tingtong/internal/platform/postgres"
	"github.com/polutek/tingtong/internal/social/reconcile"
)

// App holds the dependencies shared by all commands. The zero value is not
// usable; start from [NewApp].
type App struct {
	Out    io.Writer
	Logger *slog.Logger

	// LoadConfig resolves the runtime configuration.
	LoadConfig func() (*config.Config, error)

	// OpenRepairer connects the counter repairer. The returned func releases it.
	OpenRepairer func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (reconcile.Repairer, func(), error)
}

// NewApp returns an [App] wired to the real environment and PostgreSQL.
func NewApp() *App {
	return &App{
		Out:          os.Stdout,
		Logger:       slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})),
		LoadConfig:   config.Load,
		OpenRepairer: openPostgresRepairer,
	}
}

// NewRootCommand builds the command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "tingtongctl",
		Short:         "Operator tooling for the Tingtong comment service",
		Version:       constants.AppVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Disable completion command
	root.CompletionOptions.DisableDefaultCmd = true
	root.SetOut(app.Out)

	root.AddCommand(
		newMigrateCommand(app),
		newReconcileCommand(app),
		newTokenCommand(app),
	)
	return root
}

func openPostgresRepairer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (reconcile.Repairer, func(), error) {
	pool, err := pgstore.NewPool(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return nil, nil, err
	}
	return reconcile.NewPostgresRepairer(pool), pool.Close, nil
}
