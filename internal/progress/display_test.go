// Package progress_test tests progress display rendering, stage counters, checkmarks, and spinner lifecycle.
// Related: internal/progress/display.go, internal/progress/formatter.go
// Tags: progress, display, rendering, stages, spinner, tty
package progress_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dino-ds/laneqc/internal/progress"
)

var plainCaps = progress.TerminalCapabilities{}

func TestProgressDisplay_StartStage(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		stage   progress.StageInfo
		want    string
		wantErr string
	}{
		"first stage": {
			stage: progress.StageInfo{Name: "row gates", Number: 1, TotalStages: 5},
			want:  "[1/5] Running Row gates stage\n",
		},
		"last stage": {
			stage: progress.StageInfo{Name: "reports", Number: 2, TotalStages: 2},
			want:  "[2/2] Running Reports stage\n",
		},
		"empty name": {
			stage:   progress.StageInfo{Number: 1, TotalStages: 2},
			wantErr: "stage name cannot be empty",
		},
		"number beyond total": {
			stage:   progress.StageInfo{Name: "viability", Number: 6, TotalStages: 5},
			wantErr: "stage number cannot exceed total stages",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			var buf bytes.Buffer
			pd := progress.NewProgressDisplay(plainCaps, &buf)
			err := pd.StartStage(tt.stage)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantErr, err.Error())
				assert.Empty(t, buf.String())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestProgressDisplay_CompleteStage(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		caps  progress.TerminalCapabilities
		stage progress.StageInfo
		want  string
	}{
		"ascii without issues": {
			caps:  plainCaps,
			stage: progress.StageInfo{Name: "duplication", Number: 2, TotalStages: 5},
			want:  "[OK] [2/5] Duplication stage complete\n",
		},
		"unicode with warnings": {
			caps:  progress.TerminalCapabilities{SupportsUnicode: true},
			stage: progress.StageInfo{Name: "slice proportions", Number: 3, TotalStages: 5, Warns: 4},
			want:  "✓ [3/5] Slice proportions stage complete (warns=4)\n",
		},
		"colored checkmark": {
			caps:  progress.TerminalCapabilities{SupportsUnicode: true, SupportsColor: true},
			stage: progress.StageInfo{Name: "reports", Number: 5, TotalStages: 5},
			want:  "\033[32m✓\033[0m [5/5] Reports stage complete\n",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			var buf bytes.Buffer
			pd := progress.NewProgressDisplay(tt.caps, &buf)
			require.NoError(t, pd.CompleteStage(tt.stage))
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestProgressDisplay_FailStage(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	pd := progress.NewProgressDisplay(plainCaps, &buf)
	stage := progress.StageInfo{Name: "row gates", Number: 1, TotalStages: 2, Fatals: 3}
	require.NoError(t, pd.StartStage(stage))
	require.NoError(t, pd.FailStage(stage, errors.New("3 fatal issues")))

	assert.Equal(t, "[1/2] Running Row gates stage\n[FAIL] [1/2] Row gates stage failed: 3 fatal issues\n", buf.String())
}

func TestProgressDisplay_StopSpinnerIdempotent(t *testing.T) {
	t.Parallel()

	pd := progress.NewProgressDisplay(plainCaps, &bytes.Buffer{})
	pd.StopSpinner()
	pd.StopSpinner()
}
