// Package report_test tests QC report rendering, file naming and writing.
// Related: internal/report/report.go, internal/report/diagnostics.go
// Tags: report, markdown, diagnostics
package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dino-ds/laneqc/internal/validation"
)

func sampleResult() Result {
	return Result{
		Meta: Meta{
			LaneID:          "lane_04_quick_short",
			Language:        "en",
			RunID:           "RUN_ab12cd34",
			Date:            "2026-03-01",
			RuleProfile:     3,
			SpecVersion:     "spec_v17",
			EquatorVersion:  "equator_v4_1",
			GeneratorCommit: "abc123",
		},
		Counts: Counts{RowsInput: 10, RowsGenerated: 10, RowsValidated: 7, FatalViolations: 3, WarnNonBlocking: 1, UniqueFatalCodes: 2, UniqueWarnCodes: 1},
		Gates: []GateEntry{
			{Name: validation.GateInvariants, Status: StatusFail, FatalCodes: map[string]int{"placeholder_marker": 1}},
			{Name: validation.GateDuplication, Status: StatusFail, FatalCodes: map[string]int{"near_duplicate_overlap": 2}},
			{Name: validation.GateProportions, Status: StatusWarn, WarnCodes: map[string]int{"not_reliable_small_n": 1}, Details: map[string]any{"n": 7}},
			{Name: validation.GateViability, Status: StatusPass, Details: map[string]any{"notes": "not_applicable"}},
		},
		Fatals: map[string]int{"placeholder_marker": 1, "near_duplicate_overlap": 2},
		Warns:  map[string]int{"not_reliable_small_n": 1},
		TopExamples: map[string][]Example{
			"near_duplicate_overlap": {{RowID: "row_2", Message: "o_min=0.9 | j=0.8"}},
			"placeholder_marker":     {{RowID: "", Message: "user_message issue detected (details redacted)"}},
		},
		Thresholds: map[string]any{"dup_contain_threshold": 0.55, "dup_candidate_threshold": 0.3},
	}
}

func TestSanitizeToken(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		raw      string
		fallback string
		want     string
	}{
		"hyphens become underscores": {raw: "zh-hk", fallback: "unknown", want: "zh_hk"},
		"runs collapse":              {raw: " lane 04 / quick ", fallback: "lane", want: "lane_04_quick"},
		"nothing left":               {raw: "--", fallback: "lane", want: "lane"},
		"empty":                      {raw: "", fallback: "RUN_unknown", want: "RUN_unknown"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, SanitizeToken(tt.raw, tt.fallback))
		})
	}
}

func TestFileName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "QC_lane_04_quick_short_en_RUN_ab12cd34_2026-03-01.md", FileName(sampleResult().Meta))
	assert.Equal(t, "QC_lane_unknown_RUN_unknown_1970-01-01.md", FileName(Meta{Date: "March 1"}))
}

func TestRender(t *testing.T) {
	t.Parallel()

	md := Render(sampleResult())

	sections := []string{
		"## Run Metadata", "## Counts", "## Gate Results", "## Fatal Summary",
		"## Warning Summary", "## Failure Diagnostics", "## Top Examples", "## Thresholds Used",
	}
	last := -1
	for _, s := range sections {
		idx := strings.Index(md, s)
		require.GreaterOrEqual(t, idx, 0, "missing %s", s)
		assert.Greater(t, idx, last, "%s out of order", s)
		last = idx
	}

	assert.True(t, strings.HasPrefix(md, "# QC Report - lane_04_quick_short - en\n"))
	assert.Contains(t, md, "- rule_profile: `3`")
	assert.Contains(t, md, "| rows_validated | 7 |")
	assert.Contains(t, md, "| duplication | FAIL | fatals=near_duplicate_overlap:2 |")
	assert.Contains(t, md, "| proportions | WARN | warns=not_reliable_small_n:1 ; n=7 |")
	assert.Contains(t, md, "| viability | PASS | notes=not_applicable |")
	assert.Contains(t, md, "- `near_duplicate_overlap`: 2\n- `placeholder_marker`: 1")

	// Diagnostics are ordered by count, fatals first, with pipes escaped.
	nearIdx := strings.Index(md, "| `near_duplicate_overlap` | FATAL | duplication | 2 | yes | Similarity/duplication overlap; add opening/structure diversity. | o_min=0.9 \\| j=0.8 |")
	placeIdx := strings.Index(md, "| `placeholder_marker` | FATAL | invariants | 1 | yes |")
	warnIdx := strings.Index(md, "| `not_reliable_small_n` | WARN | proportions | 1 | no |")
	require.GreaterOrEqual(t, nearIdx, 0)
	assert.Greater(t, placeIdx, nearIdx)
	assert.Greater(t, warnIdx, placeIdx)

	assert.Contains(t, md, "### `placeholder_marker`\n- `row_unknown`: user_message issue detected (details redacted)")
	assert.Contains(t, md, "- `dup_candidate_threshold`: 0.3\n- `dup_contain_threshold`: 0.55")
}

func TestRender_Empty(t *testing.T) {
	t.Parallel()

	md := Render(Result{Meta: Meta{LaneID: "lane_01_quick", Language: "th"}})
	assert.Contains(t, md, "- run_id: `RUN_unknown`")
	assert.Contains(t, md, "- rule_profile: `unknown`")
	assert.Contains(t, md, "| none | - | - | 0 | - | - | - |")
	assert.Equal(t, 4, strings.Count(md, "- none\n"), "fatals, warnings, examples and thresholds")
}

func TestDiagnosticFocus(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		code  string
		fatal bool
		want  string
	}{
		"fixed value": {
			code: "v17_fixed_value_violation", fatal: true,
			want: "Check lane fixed contract value and row label at the same field path.",
		},
		"extra tool keys beat generic tool": {
			code: "tool_call_extra_keys_forbidden", fatal: true,
			want: "Tool payload has non-schema keys; inspect tool_call.arguments path.",
		},
		"prefix only": {
			code: "missing_required_key:assistant_response", fatal: true,
			want: "Row template is missing required schema labels/keys.",
		},
		"proportion warn": {
			code: "proportion_out_of_tolerance_warn",
			want: "Slice-level distribution target out of tolerance.",
		},
		"unknown warn": {
			code: "something_else",
			want: "Non-blocking signal; review and decide whether to tighten data generation.",
		},
		"unknown fatal": {
			code: "something_else", fatal: true,
			want: "Inspect row examples for this code to locate the blocked contract.",
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, DiagnosticFocus(tt.code, tt.fatal))
		})
	}
}

func TestWriter_Write(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "nested", "reports")
	w := NewWriter(dir)

	path, err := w.Write(sampleResult())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "QC_lane_04_quick_short_en_RUN_ab12cd34_2026-03-01.md"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, Render(sampleResult()), string(data))

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestWriter_WriteFailure(t *testing.T) {
	t.Parallel()

	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	_, err := NewWriter(filepath.Join(blocker, "reports")).Write(sampleResult())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "creating report directory")
}

func TestNewWriter_Default(t *testing.T) {
	t.Parallel()

	assert.Equal(t, DefaultDir, NewWriter("  ").Dir)
}
