// Package stages provides the CLI commands that run the QC gate stages:
// validate runs a batch through the pipeline and lanes lists the lane rules
// the gates apply.
package stages

import (
	"github.com/spf13/cobra"
)

// Register adds the QC commands to the root command.
// This function is called from the root CLI package during initialization.
func Register(rootCmd *cobra.Command) {
	rootCmd.AddCommand(newValidateCmd())
	rootCmd.AddCommand(newLanesCmd())
}
