// Package history_test tests ledger appends, id assignment and pruning.
// Related: internal/history/writer.go
// Tags: history, writer, pruning, uuid
package history

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriter_LogEntry(t *testing.T) {
	t.Parallel()

	stateDir := t.TempDir()
	w := NewWriter(stateDir, 500)
	w.LogEntry(HistoryEntry{LaneID: "lane_01_identity", Verdict: VerdictPass})
	w.LogEntry(HistoryEntry{ID: "fixed", LaneID: "lane_01_identity", Verdict: VerdictFail})

	h, err := LoadHistory(stateDir)
	require.NoError(t, err)
	require.Len(t, h.Entries, 2)

	_, err = uuid.Parse(h.Entries[0].ID)
	assert.NoError(t, err)
	assert.Equal(t, "fixed", h.Entries[1].ID)
}

func TestWriter_Pruning(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		existing    int
		maxEntries  int
		wantEntries int
		wantFirst   string
	}{
		"no pruning needed": {
			existing: 5, maxEntries: 10, wantEntries: 6, wantFirst: "e0",
		},
		"prune oldest when max exceeded": {
			existing: 10, maxEntries: 10, wantEntries: 10, wantFirst: "e1",
		},
		"zero keeps everything": {
			existing: 12, maxEntries: 0, wantEntries: 13, wantFirst: "e0",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			stateDir := t.TempDir()
			h := &HistoryFile{}
			for i := range tc.existing {
				h.Entries = append(h.Entries, HistoryEntry{ID: fmt.Sprintf("e%d", i)})
			}
			require.NoError(t, SaveHistory(stateDir, h))

			NewWriter(stateDir, tc.maxEntries).LogEntry(HistoryEntry{ID: "new"})

			got, err := LoadHistory(stateDir)
			require.NoError(t, err)
			require.Len(t, got.Entries, tc.wantEntries)
			assert.Equal(t, tc.wantFirst, got.Entries[0].ID)
			assert.Equal(t, "new", got.Entries[len(got.Entries)-1].ID)
		})
	}
}

func TestWriter_FailureIsWarning(t *testing.T) {
	t.Parallel()

	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	var warn bytes.Buffer
	w := NewWriter(filepath.Join(blocker, "state"), 10)
	w.Warnings = &warn
	w.LogEntry(HistoryEntry{LaneID: "lane_01_identity"})

	assert.True(t, strings.HasPrefix(warn.String(), "Warning: failed to log history: "))
}
