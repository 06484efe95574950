package config

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dino-ds/laneqc/internal/cli/shared"
	cfgpkg "github.com/dino-ds/laneqc/internal/config"
)

func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:     "config",
		Short:   "Inspect the laneqc configuration",
		GroupID: shared.GroupConfiguration,
	}
	configCmd.AddCommand(&cobra.Command{
		Use:   "keys",
		Short: "List all available configuration keys",
		Long:  `Display all valid configuration keys with their types, defaults and descriptions.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			printKeys(cmd.OutOrStdout())
			return nil
		},
	})
	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Long: `Show the configuration after layering defaults, ~/.laneqc/config.json,
the --config file and LANEQC_* environment variables.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := shared.LoadConfig(cmd)
			if err != nil {
				return err
			}
			printEffective(cmd.OutOrStdout(), cfg)
			return nil
		},
	})
	return configCmd
}

func sortedKeys() []string {
	keys := make([]string, 0, len(cfgpkg.KnownKeys))
	for key := range cfgpkg.KnownKeys {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func printKeys(out io.Writer) {
	fmt.Fprintln(out, "Available configuration keys:")
	fmt.Fprintln(out)

	for _, key := range sortedKeys() {
		schema := cfgpkg.KnownKeys[key]
		typeInfo := schema.Type.String()
		if schema.Type == cfgpkg.TypeEnum {
			typeInfo = fmt.Sprintf("enum (%s)", strings.Join(schema.AllowedValues, ", "))
		}
		fmt.Fprintf(out, "  %-24s %s (default: %v)\n", key, typeInfo, schema.Default)
		fmt.Fprintf(out, "    %s\n", schema.Description)
		fmt.Fprintf(out, "    env: %s%s\n", cfgpkg.EnvPrefix, strings.ToUpper(key))
		fmt.Fprintln(out)
	}
}

func printEffective(out io.Writer, cfg *cfgpkg.Configuration) {
	values := map[string]any{
		"report_dir":          cfg.ReportDir,
		"rule_profile":        cfg.RuleProfile,
		"state_dir":           cfg.StateDir,
		"history_max_entries": cfg.HistoryMaxEntries,
		"master_labels_path":  cfg.MasterLabelsPath,
		"log_level":           cfg.LogLevel,
		"show_progress":       cfg.ShowProgress,
		"no_color":            cfg.NoColor,
	}
	for _, key := range sortedKeys() {
		fmt.Fprintf(out, "%s = %v\n", key, values[key])
	}
}
