// Package qc_test tests issue accumulation and example sanitizing.
// Related: internal/qc/accumulator.go, internal/qc/summary.go
// Tags: qc, accumulator, tally, examples, summary
package qc

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dino-ds/laneqc/internal/gates"
	"github.com/dino-ds/laneqc/internal/proportions"
	"github.com/dino-ds/laneqc/internal/validation"
)

func TestTally_MostCommon(t *testing.T) {
	t.Parallel()

	tl := newTally()
	tl.add("b", 1)
	tl.add("a", 2)
	tl.add("c", 1)
	tl.add("b", 1)

	assert.Equal(t, []string{"b", "a", "c"}, tl.mostCommon())
	assert.Equal(t, 5, tl.total())
	assert.Equal(t, 3, tl.len())
	assert.Equal(t, map[string]int{"a": 2, "b": 2, "c": 1}, tl.plain())
}

func TestSanitizeExample(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("x", 70)

	tests := map[string]struct {
		code   string
		detail string
		want   string
	}{
		"keeps text after row id": {
			code:   "mechanism_leakage",
			detail: "row1:  assistant_response\n ->   'I used it'",
			want:   "assistant_response -> 'I used it'",
		},
		"user only detail redacted": {
			code:   "placeholder_marker",
			detail: "row1: user_message contains template marker",
			want:   redactedNotice,
		},
		"user and assistant detail kept": {
			code:   "overlap",
			detail: "row1: user_message overlaps assistant_response",
			want:   "user_message overlaps assistant_response",
		},
		"long quote replaced": {
			code:   "x",
			detail: "row1: text -> '" + long + "'",
			want:   "text -> '[snippet]'",
		},
		"empty falls back to code": {
			code:   "row_not_dict",
			detail: "  ",
			want:   "row not dict",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, sanitizeExample(tt.code, tt.detail))
		})
	}

	capped := sanitizeExample("x", "row: "+strings.Repeat("ab ", 200))
	assert.Equal(t, maxExampleRunes+2, len([]rune(capped)))
	assert.True(t, strings.HasSuffix(capped, "..."))
}

func TestAccumulator_Record(t *testing.T) {
	t.Parallel()

	a := newAccumulator()
	a.rowLang["r1"] = "th"

	a.finding(gates.Finding{Issue: validation.Issue{Code: "near_duplicate_overlap", Detail: "r1 vs r0", Gate: validation.GateDuplication}, RowID: "r1"})
	a.issue(validation.Issue{Code: "trip_token_function_only", Detail: "the x3", Severity: validation.Warn}, "r2", "en", validation.GateRepetition)
	for i := 0; i < 7; i++ {
		a.hit(entry{code: "row_not_dict", detail: "bad", gate: "bogus", rowID: ""})
	}

	require.Equal(t, []string{"en", "th", "unknown"}, langStrings(a.languages()))

	th := a.slices["th"]
	assert.Equal(t, 1, th.gateFatals[validation.GateDuplication].counts["near_duplicate_overlap"])

	en := a.slices["en"]
	assert.Equal(t, 1, en.gateWarns[validation.GateRepetition].counts["trip_token_function_only"])
	assert.Equal(t, []string{"r2: the x3"}, a.warningDetails["trip_token_function_only"])

	unknown := a.slices[proportions.Unknown]
	assert.Equal(t, 7, unknown.gateFatals[validation.GateInvariants].counts["row_not_dict"])
	require.Len(t, unknown.examples["row_not_dict"], 5)
	assert.Equal(t, "slice", unknown.examples["row_not_dict"][0].RowID)
	assert.Equal(t, []string{"bad"}, a.reasonDetails["row_not_dict"])
}

func TestAccumulator_Stage(t *testing.T) {
	t.Parallel()

	a := newAccumulator()
	a.stage(proportions.StageResult{
		Gate:  validation.GateProportions,
		Check: "mode_tone_proportion",
		Pass:  []proportions.Note{{Language: "en", Text: "mode_tone ok n=40"}},
		Warns: []gates.Finding{{Issue: validation.Issue{Code: "not_reliable_small_n", Detail: "language=th n=3", Severity: validation.Warn, Gate: validation.GateProportions}, Language: "th"}},
	})

	assert.Equal(t, []string{"mode_tone ok n=40"}, a.passChecks)
	assert.Equal(t, []string{"mode_tone ok n=40"}, a.slices["en"].gateNotes[validation.GateProportions])
	assert.Equal(t, 1, a.slices["th"].warns.counts["not_reliable_small_n"])
}

func TestSummary_Fail(t *testing.T) {
	t.Parallel()

	r := &run{profile: ProfileStandard, acc: newAccumulator()}
	r.acc.hit(entry{code: "mechanism_leakage", detail: "r1: leak", lang: "en", gate: validation.GateLeakage, rowID: "r1"})
	r.acc.hit(entry{code: "mechanism_leakage", detail: "r2: leak", lang: "en", gate: validation.GateLeakage, rowID: "r2"})
	r.acc.hit(entry{code: "row_not_dict", detail: "row#3 is not an object", gate: validation.GateInvariants, rowID: "row#3"})
	r.acc.warn(entry{code: "trip_token_function_only", detail: "r1: the", lang: "en", gate: validation.GateRepetition, rowID: "r1"})

	want := strings.Join([]string{
		"rule_profile=02 FAIL: violations=3, unique=2",
		"top_reasons:",
		"- mechanism_leakage: 2 (gates=leakage:2)",
		"- row_not_dict: 1 (gates=invariants:1)",
		"fatal_gate_breakdown:",
		"- invariants: row_not_dict:1",
		"- leakage: mechanism_leakage:2",
		"examples:",
		"- mechanism_leakage: r1: leak",
		"- mechanism_leakage: r2: leak",
		"- row_not_dict: row#3 is not an object",
		"detailed_failures:",
		"- mechanism_leakage: count=2",
		"  - r1: leak",
		"  - r2: leak",
		"- row_not_dict: count=1",
		"  - row#3 is not an object",
		"warn_gate_breakdown:",
		"- repetition: trip_token_function_only:1",
		"warnings_non_blocking:",
		"- trip_token_function_only: 1 (gates=repetition:1)",
		"  - r1: the",
		"warning_examples:",
		"- trip_token_function_only: r1: the",
		"qc_reports:",
		"- /tmp/QC.md",
	}, "\n")
	assert.Equal(t, want, r.summary(3, []string{"/tmp/QC.md"}))
}

func langStrings[T ~string](in []T) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = string(v)
	}
	return out
}
