package commands

import (
	"context"
	"fmt"

	"github.com/benvon/corsgate/internal/database"
	"github.com/spf13/cobra"
)

// NewOriginsCmd creates the origins command with list, add and remove subcommands.
func NewOriginsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "origins",
		Short: "Manage allowed origins",
		Long: "List, add or remove allowed origins. Changes are stored in the database and " +
			"broadcast to running gateways when REDIS_URL is set.",
	}
	cmd.AddCommand(newOriginsListCmd())
	cmd.AddCommand(newOriginsAddCmd())
	cmd.AddCommand(newOriginsRemoveCmd())
	return cmd
}

func newOriginsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored origins",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBackends(false)
			if err != nil {
				return err
			}
			defer b.Close()

			list, err := database.NewOriginRepository(b.db).List(context.Background())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(list) == 0 {
				_, _ = fmt.Fprintln(out, "No origins stored")
				return nil
			}
			for _, o := range list {
				_, _ = fmt.Fprintf(out, "%s\t(added by %s, %s)\n", o.Origin, o.CreatedBy, o.CreatedAt.UTC().Format("2006-01-02 15:04:05 MST"))
			}
			return nil
		},
	}
}

func newOriginsAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <origin>",
		Short: "Allow an origin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBackends(true)
			if err != nil {
				return err
			}
			defer b.Close()

			if err := b.originService().AddOrigin(context.Background(), args[0], cliActor); err != nil {
				return fmt.Errorf("add origin %q: %w", args[0], err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Origin %s added\n", args[0])
			return nil
		},
	}
}

func newOriginsRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "remove <origin>",
		Aliases: []string{"rm"},
		Short:   "Disallow an origin",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBackends(true)
			if err != nil {
				return err
			}
			defer b.Close()

			if err := b.originService().RemoveOrigin(context.Background(), args[0], cliActor); err != nil {
				return fmt.Errorf("remove origin %q: %w", args[0], err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Origin %s removed\n", args[0])
			return nil
		},
	}
}
