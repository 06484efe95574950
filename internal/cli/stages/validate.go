package stages

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dino-ds/laneqc/internal/build"
	"github.com/dino-ds/laneqc/internal/cli/shared"
	"github.com/dino-ds/laneqc/internal/config"
	"github.com/dino-ds/laneqc/internal/contract"
	"github.com/dino-ds/laneqc/internal/dataset"
	"github.com/dino-ds/laneqc/internal/git"
	"github.com/dino-ds/laneqc/internal/history"
	"github.com/dino-ds/laneqc/internal/progress"
	"github.com/dino-ds/laneqc/internal/qc"
)

type validateOptions struct {
	lanePath  string
	rowsPath  string
	laneID    string
	rule      string
	runID     string
	reportDir string
}

func newValidateCmd() *cobra.Command {
	var o validateOptions
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Run the QC gates over a batch of generated rows",
		Long: `Run the QC gates over a batch of generated rows for one lane.

Rows are read from a JSONL file (optionally .gz or .zst compressed). One QC
report is written per language and the run is appended to the history ledger.
The command exits 1 when any fatal issue is found.`,
		Example: `  # Validate with the default strict profile
  laneqc validate --lane lanes/lane_07_search_triggering.yaml --rows out/lane07.jsonl

  # Baseline checks only, explicit run id
  laneqc validate --lane lane.yaml --rows rows.jsonl.gz --rule 01 --run-id run-2024-abc`,
		GroupID:      shared.GroupQC,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, o)
		},
	}

	cmd.Flags().StringVar(&o.lanePath, "lane", "", "Lane config file (.yaml, .yml, .json or .toml)")
	cmd.Flags().StringVar(&o.rowsPath, "rows", "", "Generated rows (JSONL, .jsonl.gz or .jsonl.zst)")
	cmd.Flags().StringVar(&o.laneID, "lane-id", "", "Lane id (default: lane_id from the lane config)")
	cmd.Flags().StringVar(&o.rule, "rule", "", "Rule profile: 01 baseline, 02 standard, 03 strict (default: rule_profile from config)")
	cmd.Flags().StringVar(&o.runID, "run-id", "", "Run id recorded in reports (default: random)")
	cmd.Flags().StringVar(&o.reportDir, "report-dir", "", "Report directory (default: report_dir from config)")
	return cmd
}

func runValidate(cmd *cobra.Command, o validateOptions) error {
	cfg, err := shared.LoadConfig(cmd)
	if err != nil {
		return err
	}

	profile := qc.Profile(cfg.RuleProfile)
	if cmd.Flags().Changed("rule") {
		if profile, err = qc.ParseRuleProfile(o.rule); err != nil {
			return shared.WithExitCode(shared.ExitInvalidArguments, err)
		}
	}

	l, rows, err := loadInputs(o)
	if err != nil {
		return err
	}

	if cfg.MasterLabelsPath != "" {
		contract.SetMasterLabelsPath(cfg.MasterLabelsPath)
	}

	stderr := cmd.ErrOrStderr()
	opts := qc.Options{
		Logger:    shared.NewLogger(stderr, cfg.LogLevel),
		Commit:    generatorCommit(),
		ReportDir: resolveReportDir(o.reportDir, cfg.ReportDir),
		RunID:     qc.ResolveRunID(o.runID),
	}
	if cfg.ShowProgress {
		caps := progress.DetectTerminalCapabilities()
		if cfg.NoColor {
			caps.SupportsColor = false
		}
		opts.Progress = progressObserver{display: progress.NewProgressDisplay(caps, stderr)}
	}

	ledger := history.NewWriter(cfg.StateDir, cfg.HistoryMaxEntries)
	ledger.Warnings = stderr
	entry := history.HistoryEntry{
		Timestamp: time.Now(),
		LaneID:    l.ID.Raw,
		RunID:     opts.RunID,
		Profile:   profile.String(),
		Rows:      len(rows),
	}

	outcome, err := qc.Validate(cmd.Context(), rows, l.ID.Raw, l, profile, opts)
	entry.Duration = time.Since(entry.Timestamp).Round(time.Millisecond).String()
	if err != nil {
		entry.Verdict = history.VerdictCancelled
		ledger.LogEntry(entry)
		return fmt.Errorf("validation interrupted: %w", err)
	}

	entry.Profile = outcome.Profile.String()
	entry.Verdict = history.VerdictFail
	if outcome.OK {
		entry.Verdict = history.VerdictPass
	}
	entry.Fatals = outcome.Fatals
	entry.Warnings = outcome.Warnings
	entry.Reports = outcome.ReportPaths
	for _, s := range outcome.Slices {
		entry.Languages = append(entry.Languages, string(s.Language))
	}
	ledger.LogEntry(entry)

	printSummary(cmd.OutOrStdout(), outcome)
	if !outcome.OK {
		return shared.NewExitError(shared.ExitQCFailed)
	}
	return nil
}

// loadInputs reads the lane config and the rows. YAML lane files get a
// syntax check first so broken files report a line and column.
func loadInputs(o validateOptions) (dataset.Lane, []dataset.Row, error) {
	if err := shared.RequireFile("lane config", o.lanePath); err != nil {
		return dataset.Lane{}, nil, err
	}
	if err := shared.RequireFile("rows file", o.rowsPath); err != nil {
		return dataset.Lane{}, nil, err
	}

	switch strings.ToLower(filepath.Ext(o.lanePath)) {
	case ".yaml", ".yml":
		if err := config.ValidateYAMLSyntax(o.lanePath); err != nil {
			return dataset.Lane{}, nil, shared.WithExitCode(shared.ExitInvalidArguments, err)
		}
	}

	l, err := dataset.LoadLane(o.lanePath, o.laneID)
	if err != nil {
		return dataset.Lane{}, nil, shared.WithExitCode(shared.ExitInvalidArguments, err)
	}
	if strings.TrimSpace(l.ID.Raw) == "" {
		return dataset.Lane{}, nil, shared.WithExitCode(shared.ExitInvalidArguments,
			errors.New("lane id is required: pass --lane-id or set lane_id in the lane config"))
	}

	rows, err := dataset.LoadRows(o.rowsPath)
	if err != nil {
		return dataset.Lane{}, nil, shared.WithExitCode(shared.ExitInvalidArguments, err)
	}
	return l, rows, nil
}

// generatorCommit prefers the commit stamped at build time, then the HEAD of
// the working directory's repository.
func generatorCommit() string {
	if build.HasCommit() {
		return build.Commit
	}
	return git.CommitOr("", "unknown")
}

// resolveReportDir picks the flag value, which is relative to the working
// directory, over the configured one. A relative configured directory is
// placed under the repository root when there is one.
func resolveReportDir(flagDir, configured string) string {
	if strings.TrimSpace(flagDir) != "" {
		return flagDir
	}
	if configured == "" || filepath.IsAbs(configured) {
		return configured
	}
	if root, err := git.GetRepositoryRoot(""); err == nil && root != "" {
		return filepath.Join(root, configured)
	}
	return configured
}

// printSummary writes the summary with its verdict line colored.
func printSummary(w io.Writer, outcome qc.Outcome) {
	head, rest, _ := strings.Cut(outcome.Summary, "\n")
	verdict := color.New(color.FgGreen, color.Bold)
	if !outcome.OK {
		verdict = color.New(color.FgRed, color.Bold)
	}
	verdict.Fprintln(w, head)
	if rest != "" {
		fmt.Fprintln(w, rest)
	}
}
