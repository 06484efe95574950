package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dino-ds/laneqc/internal/cli/shared"
	cfgpkg "github.com/dino-ds/laneqc/internal/config"
	"github.com/dino-ds/laneqc/internal/dataset"
)

func newValidateConfigCmd() *cobra.Command {
	var lanePath string
	cmd := &cobra.Command{
		Use:   "validate-config",
		Short: "Check a lane config against the lane schema",
		Long: `Check a lane config before running it: YAML syntax (with line and column),
then the structural lane schema. When --config is given the CLI config file is
checked against the known keys too.`,
		Example: `  laneqc validate-config --lane lanes/lane_07_search_triggering.yaml
  laneqc validate-config --lane lane.toml --config laneqc.json`,
		GroupID:      shared.GroupConfiguration,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidateConfig(cmd, lanePath)
		},
	}
	cmd.Flags().StringVar(&lanePath, "lane", "", "Lane config file (.yaml, .yml, .json or .toml)")
	return cmd
}

func runValidateConfig(cmd *cobra.Command, lanePath string) error {
	out := cmd.OutOrStdout()

	if f := cmd.Flag(shared.ConfigFlag); f != nil && f.Value.String() != "" {
		if err := shared.RequireFile("config", f.Value.String()); err != nil {
			return err
		}
		if err := cfgpkg.ValidateConfigFile(f.Value.String()); err != nil {
			return shared.WithExitCode(shared.ExitSchemaFailed, err)
		}
		fmt.Fprintf(out, "%s config OK: %s\n", okMark(), f.Value.String())
	}

	if err := shared.RequireFile("lane config", lanePath); err != nil {
		return err
	}
	violations, err := checkLaneConfig(lanePath)
	if err != nil {
		return shared.WithExitCode(shared.ExitSchemaFailed, err)
	}
	if len(violations) > 0 {
		printViolations(out, lanePath, violations)
		return shared.NewExitError(shared.ExitSchemaFailed)
	}
	fmt.Fprintf(out, "%s lane config OK: %s\n", okMark(), lanePath)
	return nil
}

// checkLaneConfig returns the schema violations of the lane document at path.
// Syntax and decode problems are returned as the error.
func checkLaneConfig(path string) ([]string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".yaml" || ext == ".yml" {
		if err := cfgpkg.ValidateYAMLSyntax(path); err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading lane config %s: %w", path, err)
	}
	doc, err := dataset.DecodeLane(data, ext)
	if err != nil {
		return nil, fmt.Errorf("parsing lane config %s: %w", path, err)
	}
	return cfgpkg.ValidateLaneSchema(doc)
}

func printViolations(w io.Writer, path string, violations []string) {
	red := color.New(color.FgRed).SprintFunc()
	fmt.Fprintf(w, "%s lane config %s failed schema validation:\n", red("FAIL"), path)
	for _, v := range violations {
		fmt.Fprintf(w, "  - %s\n", v)
	}
}

func okMark() string {
	return color.New(color.FgGreen).Sprint("OK")
}
