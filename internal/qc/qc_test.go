// Package qc_test tests the gate pipeline, its reports and its summary.
// Related: internal/qc/qc.go, internal/qc/reports.go, internal/qc/summary.go
// Tags: qc, pipeline, profile, duplication, report, summary
package qc

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dino-ds/laneqc/internal/dataset"
	"github.com/dino-ds/laneqc/internal/proportions"
	"github.com/dino-ds/laneqc/internal/report"
	"github.com/dino-ds/laneqc/internal/validation"
)

const testLane = "lane_01_identity"

func qcRow(id, user, asst string) dataset.Row {
	return dataset.Row{
		"sample_id":             id,
		"language":              "en",
		"mode":                  "quick",
		"tone":                  "friendly",
		"adult_gate":            false,
		"profanity_allowed":     false,
		"emote6":                "neutral",
		"representation_choice": "plain_text",
		"continuity_choice":     "suppress_continuity",
		"intent_family":         "qa_general",
		"intent_subtype":        "fact_lookup",
		"flow_state":            "none",
		"safety_tag":            "safe",
		"needs_search":          false,
		"needs_history_search":  false,
		"history_scope":         "thread_only",
		"user_message":          user,
		"assistant_response":    asst,
		"messages": []any{
			map[string]any{"role": "user", "content": user},
			map[string]any{"role": "assistant", "content": asst},
		},
	}
}

func moonRow(id string) dataset.Row {
	return qcRow(id, "How far is the moon?", "About 384,400 km on average.")
}

func ringsRow(id string) dataset.Row {
	return qcRow(id, "Which planet has rings?", "Saturn has the brightest rings.")
}

type stageRecorder struct {
	started  []string
	finished []StageEvent
}

func (s *stageRecorder) StageStarted(ev StageEvent)  { s.started = append(s.started, ev.Name) }
func (s *stageRecorder) StageFinished(ev StageEvent) { s.finished = append(s.finished, ev) }

func testOptions(t *testing.T) Options {
	t.Helper()
	return Options{
		ReportDir: t.TempDir(),
		RunID:     "run-2024-abc",
		Commit:    "abc123",
		Now:       func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) },
	}
}

func TestValidate_Pass(t *testing.T) {
	t.Parallel()

	opts := testOptions(t)
	rec := &stageRecorder{}
	opts.Progress = rec

	out, err := Validate(context.Background(), []dataset.Row{moonRow("a1"), ringsRow("a2")},
		testLane, dataset.NewLane(testLane, nil), ProfileStrict, opts)
	require.NoError(t, err)

	assert.True(t, out.OK)
	assert.Equal(t, ProfileStrict, out.Profile)
	assert.Equal(t, "RUN_2024abc", out.RunID)
	assert.Zero(t, out.Fatals)
	assert.True(t, strings.HasPrefix(out.Summary, "rule_profile=03 PASS: validated_rows=2 (no hard violations detected)"))
	assert.Contains(t, out.Summary, "not_reliable_small_n")

	assert.Equal(t, []string{StageRows, StageDuplication, StageSlices, StageViability, StageReports}, rec.started)
	require.Len(t, rec.finished, 5)
	for i, ev := range rec.finished {
		assert.Equal(t, i+1, ev.Number)
		assert.Equal(t, 5, ev.Total)
	}

	require.Len(t, out.Slices, 1)
	assert.Equal(t, SliceStat{Language: "en", RowsInput: 2, RowsValidated: 2, Warns: out.Warnings}, out.Slices[0])

	require.Len(t, out.ReportPaths, 1)
	assert.Equal(t, opts.ReportDir, filepath.Dir(out.ReportPaths[0]))
	assert.Contains(t, out.Summary, "qc_reports:\n- "+out.ReportPaths[0])
	data, err := os.ReadFile(out.ReportPaths[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "# QC Report - "+testLane+" - en")
}

func TestValidate_Duplication(t *testing.T) {
	t.Parallel()

	rows := []dataset.Row{moonRow("a1"), ringsRow("a2"), moonRow("a3")}
	lane := dataset.NewLane(testLane, nil)

	strict, err := Validate(context.Background(), rows, testLane, lane, ProfileStrict, testOptions(t))
	require.NoError(t, err)
	assert.False(t, strict.OK)
	assert.True(t, strings.HasPrefix(strict.Summary, "rule_profile=03 FAIL: violations="))
	for _, code := range []string{"duplicate_user_message", "duplicate_assistant_response", "near_duplicate_overlap"} {
		assert.Contains(t, strict.Summary, "- "+code+": ")
	}
	assert.Contains(t, strict.Summary, "fatal_gate_breakdown:\n- duplication: ")
	require.Len(t, strict.Slices, 1)
	assert.Equal(t, 1, strict.Slices[0].RowsValidated)

	standard, err := Validate(context.Background(), rows, testLane, lane, ProfileStandard, testOptions(t))
	require.NoError(t, err)
	assert.True(t, standard.OK)
	assert.Equal(t, 3, standard.Slices[0].RowsValidated)
}

func TestValidate_RowGates(t *testing.T) {
	t.Parallel()

	missing := moonRow("b2")
	delete(missing, "assistant_response")
	leaky := qcRow("b3", "Where is Lima?", "I used the web_fetch tool for this.")

	tests := map[string]struct {
		profile Profile
		wantOK  bool
		codes   []string
	}{
		"baseline skips content gates": {
			profile: ProfileBaseline,
			codes:   []string{"row_not_dict", "missing_required_key"},
		},
		"standard runs content gates": {
			profile: ProfileStandard,
			codes:   []string{"row_not_dict", "missing_required_key", "mechanism_leakage"},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			rows := []dataset.Row{nil, missing, leaky}
			out, err := Validate(context.Background(), rows, testLane, dataset.NewLane(testLane, nil), tt.profile, testOptions(t))
			require.NoError(t, err)
			assert.False(t, out.OK)
			assert.Equal(t, len(tt.codes), out.Fatals)
			for _, code := range tt.codes {
				assert.Contains(t, out.Summary, "- "+code)
			}
			if tt.profile == ProfileBaseline {
				assert.NotContains(t, out.Summary, "mechanism_leakage")
			}

			langs := map[string]SliceStat{}
			for _, s := range out.Slices {
				langs[string(s.Language)] = s
			}
			assert.Equal(t, 1, langs[string(proportions.Unknown)].Fatals)
			assert.Equal(t, 2, langs["en"].RowsInput)
			assert.Len(t, out.ReportPaths, 2)
		})
	}
}

func TestValidate_Deterministic(t *testing.T) {
	t.Parallel()

	missing := ringsRow("c4")
	delete(missing, "assistant_response")
	rows := []dataset.Row{
		moonRow("c1"),
		moonRow("c2"),
		qcRow("c3", "Say it twelve times", "go go go go go go go go go go go go"),
		missing,
		qcRow("c5", "List pets", "the cat and the dog and the bird"),
		qcRow("c6", "Where is Lima?", "I used the web_fetch tool for this."),
		nil,
		ringsRow("c7"),
	}
	lane := dataset.NewLane(testLane, nil)
	opts := testOptions(t)

	first, err := Validate(context.Background(), rows, testLane, lane, ProfileStrict, opts)
	require.NoError(t, err)
	firstReport, err := os.ReadFile(first.ReportPaths[0])
	require.NoError(t, err)

	second, err := Validate(context.Background(), rows, testLane, lane, ProfileStrict, opts)
	require.NoError(t, err)
	secondReport, err := os.ReadFile(second.ReportPaths[0])
	require.NoError(t, err)

	assert.False(t, first.OK)
	assert.Positive(t, first.Fatals)
	assert.Positive(t, first.Warnings)
	assert.Equal(t, first, second)
	assert.Equal(t, string(firstReport), string(secondReport))
}

func TestValidate_NoRows(t *testing.T) {
	t.Parallel()

	out, err := Validate(context.Background(), nil, testLane, dataset.NewLane(testLane, nil), ProfileBaseline, testOptions(t))
	require.NoError(t, err)
	assert.True(t, out.OK)
	assert.Equal(t, "rule_profile=01 PASS: validated_rows=0 (no hard violations detected)", out.Summary)
	assert.Empty(t, out.ReportPaths)
}

func TestValidate_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	opts := testOptions(t)

	_, err := Validate(ctx, []dataset.Row{moonRow("a1")}, testLane, dataset.NewLane(testLane, nil), ProfileStrict, opts)
	require.ErrorIs(t, err, context.Canceled)

	entries, err := os.ReadDir(opts.ReportDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestValidate_ReportWriteFailure(t *testing.T) {
	t.Parallel()

	opts := testOptions(t)
	blocker := filepath.Join(opts.ReportDir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))
	opts.ReportDir = filepath.Join(blocker, "reports")

	out, err := Validate(context.Background(), []dataset.Row{moonRow("a1")}, testLane,
		dataset.NewLane(testLane, nil), ProfileBaseline, opts)
	require.NoError(t, err)
	assert.True(t, out.OK)
	assert.Equal(t, 1, out.Warnings)
	assert.Empty(t, out.ReportPaths)
	assert.Contains(t, out.Summary, "- qc_report_write_failed: 1 (gates=invariants:1)")
	assert.Contains(t, out.Summary, "language=en: creating report directory")
}

func TestValidate_ClampsProfile(t *testing.T) {
	t.Parallel()

	out, err := Validate(context.Background(), nil, testLane, dataset.NewLane(testLane, nil), Profile(9), testOptions(t))
	require.NoError(t, err)
	assert.Equal(t, ProfileStrict, out.Profile)
}

func TestGateEntries(t *testing.T) {
	t.Parallel()

	s := newSliceStats()
	s.fatals.add("mechanism_leakage", 2)
	s.gateFatals[validation.GateLeakage].add("mechanism_leakage", 2)
	s.warns.add("trip_token_function_only", 1)
	s.gateWarns[validation.GateRepetition].add("trip_token_function_only", 1)
	s.gateNotes[validation.GateProportions] = []string{"mode_tone_proportion language=en n=42 ok", "b", "c", "d"}

	entries := gateEntries(s, false)
	require.Len(t, entries, len(validation.Gates))
	byGate := map[validation.Gate]report.GateEntry{}
	for i, e := range entries {
		assert.Equal(t, validation.Gates[i], e.Name)
		byGate[e.Name] = e
	}

	assert.Equal(t, report.StatusFail, byGate[validation.GateLeakage].Status)
	assert.Equal(t, map[string]int{"mechanism_leakage": 2}, byGate[validation.GateLeakage].FatalCodes)
	assert.Equal(t, report.StatusWarn, byGate[validation.GateRepetition].Status)
	assert.Equal(t, report.StatusPass, byGate[validation.GateMalformed].Status)
	assert.Nil(t, byGate[validation.GateMalformed].Details)

	props := byGate[validation.GateProportions].Details
	assert.Equal(t, 42, props["n"])
	assert.Equal(t, "mode_tone_proportion language=en n=42 ok | b | c", props["notes"])

	assert.Equal(t, "not_applicable", byGate[validation.GateViability].Details["notes"])
	assert.Equal(t, "evaluated_no_issues", gateEntries(s, true)[6].Details["notes"])

	warnOnly := byGate[validation.GateWarnOnly]
	assert.Equal(t, report.StatusWarn, warnOnly.Status)
	assert.Empty(t, warnOnly.FatalCodes)
	assert.Equal(t, map[string]int{"trip_token_function_only": 1}, warnOnly.WarnCodes)
	assert.Equal(t, "aggregated_non_blocking_warnings", warnOnly.Details["notes"])
}
