// Package config provides CLI commands for configuration and lane config checks.
// Includes: validate-config, config keys, config show
package config

import (
	"github.com/spf13/cobra"
)

// Register adds all configuration commands to the root command.
// This function is called from the root CLI package during initialization.
func Register(rootCmd *cobra.Command) {
	rootCmd.AddCommand(newValidateConfigCmd())
	rootCmd.AddCommand(newConfigCmd())
}
