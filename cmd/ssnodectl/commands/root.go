// Package commands implements the ssnodectl subcommands.
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// rootCmd is the top-level cobra command for ssnodectl.
var rootCmd = &cobra.Command{
	Use:   "ssnodectl",
	Short: "Offline configuration tool for ssnoded",
	Long:  "ssnodectl generates node identities and validates ssnoded cluster configuration files.",
	// Silence cobra's built-in usage/error printing so we control it.
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(keygenCmd())
	rootCmd.AddCommand(diagnoseCmd())
	rootCmd.AddCommand(migrationIDCmd())
	rootCmd.AddCommand(versionCmd())
}

// Execute runs the root command and exits with code 1 on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// GetRootCmd returns the root command, for tests that drive the CLI
// end-to-end through cobra's own argument parsing.
func GetRootCmd() *cobra.Command {
	return rootCmd
}
