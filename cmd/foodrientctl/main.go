// Command foodrientctl runs operational tasks against the Foodrient
// database: schema migrations and bootstrapping the first admin account.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "foodrientctl",
		Short:         "Foodrient operations tool",
		SilenceUsage:  true,
		SilenceErrors: true,
		Long: `foodrientctl manages the Foodrient backend outside the API process.

It reads the same environment (or .env file) as the API server, so
DATABASE_URL and MIGRATIONS_PATH must point at the target database.`,
	}
	root.AddCommand(newMigrateCmd(), newCreateAdminCmd())
	return root
}
