package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/chachabrian/zapshift-backend/internal/config"
	"github.com/chachabrian/zapshift-backend/internal/identity"
)

var (
	tokenTTL time.Duration
	tokenUID string
)

// tokenCmd mints bearer tokens for servers running with AUTH_MODE=jwt.
func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token [email]",
		Short: "Sign a development bearer token",
		Long: `Sign an HS256 bearer token with JWT_SECRET.

Only useful when the server runs with AUTH_MODE=jwt.

Examples:
  zapshift token admin@example.com
  zapshift token rider@example.com --ttl 1h`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var cfg config.AuthConfig
			if err := config.LoadSection(&cfg); err != nil {
				return err
			}
			if cfg.JWTSecret == "" {
				return errors.New("JWT_SECRET is not set")
			}

			uid := tokenUID
			if uid == "" {
				uid = uuid.NewString()
			}
			token, err := identity.NewJWTVerifier(cfg.JWTSecret).Sign(identity.Identity{UID: uid, Email: args[0]}, tokenTTL)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")
	cmd.Flags().StringVar(&tokenUID, "uid", "", "subject claim (random when empty)")

	return cmd
}
