// Copyright (c) 2026 Tingtong. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/polutek/tingtong/internal/platform/sec"
	"github.com/polutek/tingtong/pkg/uuid"
)

// tokenOptions are the flags of the token command.
type tokenOptions struct {
	userID   string
	username string
	role     string
	ttl      time.Duration
}

func newTokenCommand(app *App) *cobra.Command {
	options := tokenOptions{}

	command := &cobra.Command{
		Use:   "token",
		Short: "Mint a development access token",
		Long: `Mint an RS256 access token signed with JWT_PRIVATE_KEY_PATH.

The API server only verifies tokens. This command exists so a local stack
can be exercised without the identity service.`,
		Example: `  tingtongctl token --user 0190b5d2-0000-7000-8000-00000000000a --role moderator`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runToken(cmd, app, options)
		},
	}

	command.Flags().StringVar(&options.userID, "user", "", "user id (UUID); random when empty")
	command.Flags().StringVar(&options.username, "username", "dev", "username claim")
	command.Flags().StringVar(&options.role, "role", string(sec.RoleMember), "role claim: member, creator, moderator or admin")
	command.Flags().DurationVar(&options.ttl, "ttl", time.Hour, "token lifetime")
	return command
}

func runToken(cmd *cobra.Command, app *App, options tokenOptions) error {
	switch sec.UserRole(options.role) {
	case sec.RoleMember, sec.RoleCreator, sec.RoleModerator, sec.RoleAdmin:
	default:
		return fmt.Errorf("unknown role %q", options.role)
	}

	if options.ttl <= 0 {
		return fmt.Errorf("--ttl must be positive, got %s", options.ttl)
	}

	userID := options.userID
	if userID == "" {
		userID = uuid.New()
	} else if !uuid.Valid(userID) {
		return fmt.Errorf("--user must be a UUID, got %q", userID)
	}

	cfg, err := app.LoadConfig()
	if err != nil {
		return err
	}
	if cfg.JWTPrivKeyPath == "" {
		return errors.New("JWT_PRIVATE_KEY_PATH is not set")
	}

	tokens, err := sec.NewTokenService(cfg.JWTPrivKeyPath, cfg.JWTPubKeyPath, cfg.JWTIssuer)
	if err != nil {
		return err
	}

	token, err := tokens.GenerateAccessToken(userID, options.username, options.role, options.ttl)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
