package commands

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/benvon/corsgate/internal/cors"
	"github.com/benvon/corsgate/internal/database"
	"github.com/benvon/corsgate/internal/models"
	"github.com/benvon/corsgate/internal/validation"
	"github.com/spf13/cobra"
)

// NewCorsCmd creates the cors configuration command with show and set subcommands.
func NewCorsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cors",
		Short: "Manage the stored CORS policy",
		Long:  "Show or update the CORS policy stored in the database. Gateways read it at startup.",
	}
	cmd.AddCommand(newCorsShowCmd())
	cmd.AddCommand(newCorsSetCmd())
	return cmd
}

func newCorsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the stored CORS policy",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBackends(false)
			if err != nil {
				return err
			}
			defer b.Close()

			ctx := context.Background()
			row, err := database.NewCorsConfigRepository(b.db).Get(ctx)
			if err != nil {
				return err
			}
			origins, err := database.NewOriginRepository(b.db).Origins(ctx)
			if err != nil {
				return err
			}
			printPolicy(cmd.OutOrStdout(), row, origins)
			return nil
		},
	}
}

func printPolicy(w io.Writer, row *models.CorsConfig, origins []string) {
	if row == nil {
		_, _ = fmt.Fprintln(w, "No CORS policy stored. Gateways seed it from POLICY_FILE or CORS_* on first start.")
		return
	}
	resolved := cors.NewPolicyConfig(row.Options(nil))
	_, _ = fmt.Fprintln(w, "CORS policy:")
	_, _ = fmt.Fprintf(w, "  Allowed origins:   %s\n", strings.Join(origins, ", "))
	_, _ = fmt.Fprintf(w, "  Allowed methods:   %s\n", resolved.AllowedMethods)
	_, _ = fmt.Fprintf(w, "  Allowed headers:   %s\n", resolved.AllowedHeaders)
	_, _ = fmt.Fprintf(w, "  Exposed headers:   %s\n", resolved.ExposedHeaders)
	_, _ = fmt.Fprintf(w, "  Allow credentials: %v\n", resolved.AllowCredentials)
	_, _ = fmt.Fprintf(w, "  Max-Age:           %d\n", resolved.MaxAge)
	if !row.UpdatedAt.IsZero() {
		_, _ = fmt.Fprintf(w, "  Updated:           %s\n", row.UpdatedAt.UTC().Format("2006-01-02 15:04:05 MST"))
	}
}

type corsFlags struct {
	methods          string
	headers          string
	exposed          string
	allowCredentials bool
	maxAge           int
}

func newCorsSetCmd() *cobra.Command {
	var f corsFlags
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Update the stored CORS policy",
		Long: "Update the stored CORS policy. Only the flags given are changed; an empty list " +
			"resets it to the default. Origins are managed with the origins command. " +
			"Running gateways apply the change on restart.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().NFlag() == 0 {
				return fmt.Errorf("nothing to change: pass at least one of --methods, --headers, --exposed, --allow-credentials, --max-age")
			}
			b, err := openBackends(false)
			if err != nil {
				return err
			}
			defer b.Close()

			ctx := context.Background()
			repo := database.NewCorsConfigRepository(b.db)
			row, err := repo.Get(ctx)
			if err != nil {
				return err
			}
			if row == nil {
				row = &models.CorsConfig{}
			}
			applyCorsFlags(row, f, cmd.Flags().Changed)

			origins, err := database.NewOriginRepository(b.db).Origins(ctx)
			if err != nil {
				return err
			}
			if err := validateCorsConfig(row, origins); err != nil {
				return err
			}
			if err := repo.Set(ctx, row); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "CORS policy updated. Restart gateways to apply it.")
			return nil
		},
	}
	cmd.Flags().StringVar(&f.methods, "methods", "", "Access-Control-Allow-Methods, comma-separated")
	cmd.Flags().StringVar(&f.headers, "headers", "", "Access-Control-Allow-Headers, comma-separated")
	cmd.Flags().StringVar(&f.exposed, "exposed", "", "Access-Control-Expose-Headers, comma-separated")
	cmd.Flags().BoolVar(&f.allowCredentials, "allow-credentials", false, "Send Access-Control-Allow-Credentials: true")
	cmd.Flags().IntVar(&f.maxAge, "max-age", 0, "Access-Control-Max-Age in seconds (0 for the default)")
	return cmd
}

// applyCorsFlags copies the flags the user actually set onto row.
func applyCorsFlags(row *models.CorsConfig, f corsFlags, changed func(string) bool) {
	if changed("methods") {
		row.AllowedMethods = strings.TrimSpace(f.methods)
	}
	if changed("headers") {
		row.AllowedHeaders = strings.TrimSpace(f.headers)
	}
	if changed("exposed") {
		row.ExposedHeaders = strings.TrimSpace(f.exposed)
	}
	if changed("allow-credentials") {
		row.AllowCredentials = f.allowCredentials
	}
	if changed("max-age") {
		row.MaxAge = f.maxAge
	}
}

func validateCorsConfig(row *models.CorsConfig, origins []string) error {
	if row.MaxAge < 0 {
		return fmt.Errorf("--max-age cannot be negative")
	}
	if err := validation.Struct(row.Options(nil)); err != nil {
		return fmt.Errorf("invalid CORS policy: %w", err)
	}
	if row.AllowCredentials && slices.Contains(origins, cors.Wildcard) {
		return fmt.Errorf("%w: remove origin %q first", cors.ErrCredentialsWithWildcard, cors.Wildcard)
	}
	return nil
}
