// Package util_test tests the history and version commands.
// Related: internal/cli/util/history.go, internal/cli/util/version.go
// Tags: cli, history, ledger, version, filtering
package util

import (
	"bytes"
	"fmt"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dino-ds/laneqc/internal/build"
	"github.com/dino-ds/laneqc/internal/cli/shared"
	"github.com/dino-ds/laneqc/internal/history"
)

func execute(args ...string) (string, error) {
	root := &cobra.Command{Use: "laneqc", SilenceErrors: true}
	root.AddGroup(&cobra.Group{ID: shared.GroupConfiguration, Title: "Configuration:"})
	root.PersistentFlags().String(shared.ConfigFlag, "", "Path to config file")
	Register(root)

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

// seedLedger isolates config state and writes entries to a fresh ledger.
func seedLedger(t *testing.T, entries ...history.HistoryEntry) string {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	stateDir := t.TempDir()
	t.Setenv("LANEQC_STATE_DIR", stateDir)
	require.NoError(t, history.SaveHistory(stateDir, &history.HistoryFile{Entries: entries}))
	return stateDir
}

func ledgerEntry(runID, laneID, verdict string, minute int) history.HistoryEntry {
	return history.HistoryEntry{
		ID:        "id-" + runID,
		Timestamp: time.Date(2026, 3, 1, 9, minute, 0, 0, time.UTC),
		LaneID:    laneID,
		RunID:     runID,
		Profile:   "03",
		Rows:      40,
		Verdict:   verdict,
		Fatals:    minute,
		Duration:  "1.2s",
	}
}

func TestHistoryCmd(t *testing.T) {
	seedLedger(t,
		ledgerEntry("RUN_aaaa0001", "lane_07_search", history.VerdictPass, 1),
		ledgerEntry("RUN_aaaa0002", "lane_08_cite", history.VerdictFail, 2),
		ledgerEntry("RUN_aaaa0003", "lane_07_search", history.VerdictFail, 3),
		ledgerEntry("RUN_aaaa0004", "lane_07_search", history.VerdictCancelled, 4),
	)

	tests := map[string]struct {
		args    []string
		wantRun []string
		wantMsg string
	}{
		"all newest first": {
			wantRun: []string{"RUN_aaaa0004", "RUN_aaaa0003", "RUN_aaaa0002", "RUN_aaaa0001"},
		},
		"limit": {
			args:    []string{"-n", "2"},
			wantRun: []string{"RUN_aaaa0004", "RUN_aaaa0003"},
		},
		"lane filter": {
			args:    []string{"--lane", "lane_07_search", "--limit", "2"},
			wantRun: []string{"RUN_aaaa0004", "RUN_aaaa0003"},
		},
		"verdict filter": {
			args:    []string{"--verdict", "fail"},
			wantRun: []string{"RUN_aaaa0003", "RUN_aaaa0002"},
		},
		"lane and verdict": {
			args:    []string{"-l", "lane_08_cite", "--verdict", "pass"},
			wantMsg: "No matching entries for lane 'lane_08_cite' and verdict 'pass'.\n",
		},
		"unknown lane": {
			args:    []string{"-l", "lane_99"},
			wantMsg: "No matching entries for lane 'lane_99'.\n",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			out, err := execute(append([]string{"history"}, tt.args...)...)
			require.NoError(t, err)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, out)
				return
			}
			lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
			require.Len(t, lines, len(tt.wantRun))
			for i, run := range tt.wantRun {
				assert.Contains(t, lines[i], run)
			}
		})
	}

	out, err := execute("history", "-n", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "RUN_aaaa0004  cancelled  lane_07_search")
	assert.Contains(t, out, "rule=03  rows=40  fatals=4  warns=0  1.2s")
}

func TestHistoryCmd_InvalidFlags(t *testing.T) {
	seedLedger(t)

	for _, args := range [][]string{{"--limit", "-1"}, {"--verdict", "maybe"}} {
		_, err := execute(append([]string{"history"}, args...)...)
		require.Error(t, err)
		assert.Equal(t, shared.ExitInvalidArguments, shared.ExitCode(err))
	}
}

func TestHistoryCmd_EmptyAndClear(t *testing.T) {
	stateDir := seedLedger(t, ledgerEntry("RUN_aaaa0001", "lane_07_search", history.VerdictPass, 1))

	out, err := execute("history", "--clear")
	require.NoError(t, err)
	assert.Equal(t, "History cleared.\n", out)

	h, err := history.LoadHistory(stateDir)
	require.NoError(t, err)
	assert.Empty(t, h.Entries)

	out, err = execute("history")
	require.NoError(t, err)
	assert.Equal(t, "No history available.\n", out)
}

func TestFormatVerdict(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "-        ", formatVerdict(""))
	assert.Equal(t, "odd      ", formatVerdict("odd"))
}

func TestVersionCmd(t *testing.T) {
	t.Parallel()

	out, err := execute("version", "--plain")
	require.NoError(t, err)
	want := fmt.Sprintf("laneqc %s\ncommit: %s\nbuilt: %s\ngo: %s\nplatform: %s/%s\n",
		build.Version, build.Commit, build.BuildDate, runtime.Version(), runtime.GOOS, runtime.GOARCH)
	assert.Equal(t, want, out)

	out, err = execute("v")
	require.NoError(t, err)
	assert.Contains(t, out, "Version")
	assert.Contains(t, out, runtime.Version())
}

func TestTruncateCommit(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		commit string
		want   string
	}{
		"long hash":  {commit: "0123456789abcdef", want: "01234567"},
		"short hash": {commit: "abc", want: "abc"},
		"unknown":    {commit: "unknown", want: "unknown"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, truncateCommit(tt.commit))
		})
	}
}
