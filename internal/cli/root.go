// Package cli provides the Cobra-based laneqc command line. It wires the QC
// commands (validate, lanes), the configuration commands (validate-config,
// config) and the utilities (history, version) under one root.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dino-ds/laneqc/internal/cli/config"
	"github.com/dino-ds/laneqc/internal/cli/shared"
	"github.com/dino-ds/laneqc/internal/cli/stages"
	"github.com/dino-ds/laneqc/internal/cli/util"
)

// NewRootCmd builds the laneqc command tree.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "laneqc",
		Short: "QC gates for synthetic dataset lanes",
		Long: `laneqc - QC gates for synthetic dataset lanes

Runs generated training rows through the lane contract, content, duplication
and slice gates, writes one QC report per language, and keeps a ledger of runs.`,
		Example: `  # Validate a batch against its lane
  laneqc validate --lane lanes/lane_07_search_triggering.yaml --rows out/lane07.jsonl

  # Check a lane config before generating
  laneqc validate-config --lane lanes/lane_07_search_triggering.yaml

  # Recent runs of one lane
  laneqc history --lane lane_07_search_triggering -n 10`,
		SilenceErrors: true,
	}

	rootCmd.AddGroup(&cobra.Group{ID: shared.GroupQC, Title: "QC:"})
	rootCmd.AddGroup(&cobra.Group{ID: shared.GroupConfiguration, Title: "Configuration:"})
	rootCmd.SetHelpCommandGroupID(shared.GroupConfiguration)
	rootCmd.SetCompletionCommandGroupID(shared.GroupConfiguration)

	rootCmd.PersistentFlags().StringP(shared.ConfigFlag, "c", "", "Path to a JSON config file (default: ~/.laneqc/config.json)")
	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return shared.WithExitCode(shared.ExitInvalidArguments, err)
	})

	stages.Register(rootCmd)
	config.Register(rootCmd)
	util.Register(rootCmd)
	return rootCmd
}

// Execute runs the root command with args. SIGINT and SIGTERM cancel the
// command's context. Errors that carry their own message are printed to
// stderr; the returned error maps to the exit code through ExitCode.
func Execute(args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := NewRootCmd()
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(ctx)
	if err != nil && !shared.IsReported(err) {
		fmt.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
	}
	return err
}
