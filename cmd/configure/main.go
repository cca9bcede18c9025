package main

import (
	"fmt"
	"os"

	"github.com/benvon/corsgate/cmd/configure/commands"
	"github.com/spf13/cobra"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:           "corsgate-configure",
		Short:         "Configuration tool for the corsgate CORS gateway",
		Long:          "CLI tool for managing the stored CORS policy, allowed origins and admin tokens",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(commands.NewCorsCmd())
	rootCmd.AddCommand(commands.NewOriginsCmd())
	rootCmd.AddCommand(commands.NewTokenCmd())
	rootCmd.AddCommand(commands.NewEventsCmd())
	rootCmd.AddCommand(commands.NewTestCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
