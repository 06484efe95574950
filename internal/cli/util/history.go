package util

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dino-ds/laneqc/internal/cli/shared"
	"github.com/dino-ds/laneqc/internal/history"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "View the QC run ledger",
		Long: `View the ledger of validate runs, newest first, with lane, run id, profile,
verdict and issue totals.`,
		Example: `  laneqc history
  laneqc history --lane lane_07_search_triggering -n 5
  laneqc history --verdict fail`,
		GroupID:      shared.GroupConfiguration,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := shared.LoadConfig(cmd)
			if err != nil {
				return err
			}
			return runHistoryWithStateDir(cmd, cfg.StateDir)
		},
	}
	cmd.Flags().StringP("lane", "l", "", "Filter by lane id")
	cmd.Flags().IntP("limit", "n", 0, "Limit to last N entries (most recent)")
	cmd.Flags().String("verdict", "", "Filter by verdict (pass, fail, cancelled)")
	cmd.Flags().Bool("clear", false, "Clear all history")
	return cmd
}

// runHistoryWithStateDir runs the history command against stateDir.
func runHistoryWithStateDir(cmd *cobra.Command, stateDir string) error {
	clearFlag, _ := cmd.Flags().GetBool("clear")
	laneFilter, _ := cmd.Flags().GetString("lane")
	verdictFilter, _ := cmd.Flags().GetString("verdict")
	limit, _ := cmd.Flags().GetInt("limit")

	if limit < 0 {
		return shared.WithExitCode(shared.ExitInvalidArguments, fmt.Errorf("limit must be positive, got %d", limit))
	}
	switch verdictFilter {
	case "", history.VerdictPass, history.VerdictFail, history.VerdictCancelled:
	default:
		return shared.WithExitCode(shared.ExitInvalidArguments, fmt.Errorf("unknown verdict %q", verdictFilter))
	}

	if clearFlag {
		if err := history.ClearHistory(stateDir); err != nil {
			return fmt.Errorf("clearing history: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "History cleared.")
		return nil
	}

	histFile, err := history.LoadHistory(stateDir)
	if err != nil {
		return fmt.Errorf("loading history: %w", err)
	}

	entries := filterEntries(histFile, laneFilter, verdictFilter, limit)
	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), buildEmptyMessage(laneFilter, verdictFilter))
		return nil
	}

	displayEntries(cmd, entries)
	return nil
}

// filterEntries returns up to limit matching entries, newest first.
func filterEntries(h *history.HistoryFile, laneFilter, verdictFilter string, limit int) []history.HistoryEntry {
	if verdictFilter == "" {
		return h.Latest(limit, laneFilter)
	}
	var out []history.HistoryEntry
	for _, e := range h.Latest(0, laneFilter) {
		if e.Verdict != verdictFilter {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// buildEmptyMessage creates an appropriate message when no entries match filters.
func buildEmptyMessage(laneFilter, verdictFilter string) string {
	if laneFilter != "" && verdictFilter != "" {
		return fmt.Sprintf("No matching entries for lane '%s' and verdict '%s'.", laneFilter, verdictFilter)
	}
	if laneFilter != "" {
		return fmt.Sprintf("No matching entries for lane '%s'.", laneFilter)
	}
	if verdictFilter != "" {
		return fmt.Sprintf("No matching entries for verdict '%s'.", verdictFilter)
	}
	return "No history available."
}

// displayEntries formats and displays ledger entries.
func displayEntries(cmd *cobra.Command, entries []history.HistoryEntry) {
	out := cmd.OutOrStdout()
	cyan := color.New(color.FgCyan).SprintFunc()

	for _, entry := range entries {
		timestamp := entry.Timestamp.Local().Format("2006-01-02 15:04:05")
		fmt.Fprintf(out, "%s  %-12s  %s  %-30s  rule=%s  rows=%d  fatals=%d  warns=%d  %s\n",
			cyan(timestamp),
			entry.RunID,
			formatVerdict(entry.Verdict),
			entry.LaneID,
			entry.Profile,
			entry.Rows,
			entry.Fatals,
			entry.Warnings,
			entry.Duration,
		)
	}
}

// formatVerdict returns a color-coded, padded verdict.
func formatVerdict(verdict string) string {
	padded := fmt.Sprintf("%-9s", verdict)
	switch verdict {
	case history.VerdictPass:
		return color.New(color.FgGreen).Sprint(padded)
	case history.VerdictFail:
		return color.New(color.FgRed).Sprint(padded)
	case history.VerdictCancelled:
		return color.New(color.FgYellow).Sprint(padded)
	case "":
		return fmt.Sprintf("%-9s", "-")
	}
	return padded
}
