package commands

import (
	"fmt"
	"time"

	"github.com/benvon/corsgate/internal/config"
	"github.com/benvon/corsgate/internal/middleware"
	"github.com/spf13/cobra"
)

const maxTokenTTL = 30 * 24 * time.Hour

// NewTokenCmd creates the command that mints admin API bearer tokens.
func NewTokenCmd() *cobra.Command {
	var subject string
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an admin API token",
		Long:  "Issue an HS256 bearer token for the /admin/v1 API, signed with ADMIN_JWT_SECRET.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if subject == "" {
				return fmt.Errorf("--subject is required")
			}
			if ttl <= 0 || ttl > maxTokenTTL {
				return fmt.Errorf("--ttl must be between 1s and %s", maxTokenTTL)
			}
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if !cfg.AdminEnabled() {
				return fmt.Errorf("ADMIN_JWT_SECRET is required")
			}
			token, err := middleware.IssueAdminToken([]byte(cfg.AdminJWTSecret), subject, ttl)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "Who the token is for, recorded in audit events (required)")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "Token lifetime")
	return cmd
}
