// Package contract_test tests lane contracts, policies, fixed values and master labels.
// Related: internal/contract/contract.go, internal/contract/registry.go, internal/contract/policy.go
// Tags: contract, policy, enum, fixed-values
package contract

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dino-ds/laneqc/internal/dataset"
	"github.com/dino-ds/laneqc/internal/lane"
)

func TestFor(t *testing.T) {
	t.Parallel()

	c := For(11)
	assert.Equal(t, lane.Number(11), c.Lane)
	assert.True(t, c.RequiresLabel("connector_action"))
	assert.Equal(t, "connector_action", c.Mapping.ActionLabel)
	assert.Equal(t, "mapping", c.Kind())

	d := For(2)
	assert.Equal(t, lane.Number(2), d.Lane)
	assert.False(t, Has(2))
	assert.False(t, d.Mapping.Active())
	assert.Equal(t, "default", d.Kind())

	assert.Equal(t, For(8), ForID("lane_08_search_integration"))
	assert.Equal(t, 0.50, For(22).Overlap.Max)
}

func TestContractsDoNotShareSlices(t *testing.T) {
	t.Parallel()

	a := For(10)
	b := For(37)
	assert.Contains(t, a.RequiredLabelKeys, "connector_needed")
	assert.NotContains(t, b.RequiredLabelKeys, "connector_needed")
	assert.NotContains(t, BaseRequiredLabelKeys, "connector_needed")
}

func TestTurnRules_EffectiveMin(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		rules TurnRules
		want  int
	}{
		"single turn":        {rules: TurnRules{}, want: 2},
		"multiturn required": {rules: TurnRules{RequiresMultiturn: true}, want: 4},
		"turn pairs":         {rules: TurnRules{RequiresMultiturn: true, MinTurnPairs: 3}, want: 6},
		"explicit messages":  {rules: TurnRules{MinMessages: 5, MinTurnPairs: 3}, want: 5},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.rules.EffectiveMin())
		})
	}
	assert.Equal(t, 4, For(20).Turns.EffectiveMin())
}

func TestMerge(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		lane lane.Number
		want Effective
	}{
		"default forbids everything": {lane: 1, want: Effective{}},
		"lane 03 allows tool call":   {lane: 3, want: Effective{AllowToolCall: true}},
		"lane 08 requires both": {lane: 8, want: Effective{
			AllowToolCall: true, RequireToolCall: true, AllowCitations: true, RequireCitations: true,
		}},
		"lane 13 empty output": {lane: 13, want: Effective{
			AllowToolCall: true, RequireToolCall: true, MustBeEmpty: true,
		}},
		"lane 15 code only":               {lane: 15, want: Effective{MustBeCodeOnly: true, CitationsExempt: true}},
		"lane 25 citations from contract": {lane: 25, want: Effective{AllowCitations: true}},
		"lane 11 mapping empty":           {lane: 11, want: Effective{MustBeEmpty: true}},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Merge(For(tt.lane)))
		})
	}
}

func TestResolveEnum(t *testing.T) {
	t.Parallel()

	master := []any{"quick", "think"}
	override := []any{"blitz"}
	assert.Equal(t, EnumOK, ResolveEnum("quick", master, override))
	assert.Equal(t, EnumOverride, ResolveEnum("blitz", master, override))
	assert.Equal(t, EnumRejected, ResolveEnum("slow", master, override))
	assert.Equal(t, "lane_enum_override_used", EnumOverride.Code())
	assert.Equal(t, "enum_value_not_allowed", EnumRejected.Code())
	assert.Empty(t, EnumOK.Code())

	e, ok := For(1).EnumFor("adult_gate")
	require.True(t, ok)
	assert.Equal(t, KindBool, e.Kind())
	assert.False(t, e.TypeMatches("true"))
	assert.True(t, e.TypeMatches(false))
}

func TestEnforceFixedValues(t *testing.T) {
	t.Parallel()

	c := Contract{FixedValues: []FixedValue{
		{Path: "mode", Want: "quick"},
		{Path: "lane.tool_budget.searches", Want: 1},
		{Path: "safety_tag", OneOf: []any{"safe", "leakage_attempt"}},
	}}

	var row dataset.Row
	require.NoError(t, json.Unmarshal([]byte(`{"mode":"think","tool_budget":{"searches":1},"safety_tag":"safe"}`), &row))
	got := EnforceFixedValues(row, "lane_30", c)
	require.Len(t, got, 1)
	assert.Equal(t, "fixed_value_violation:mode", got[0].Code)
	assert.Equal(t, "field 'mode' must equal 'quick'; got 'think' (lane=lane_30)", got[0].Detail)

	got = EnforceFixedValues(dataset.Row{"mode": "quick"}, "lane_30", c)
	require.Len(t, got, 2)
	assert.Equal(t, "fixed_value_violation:tool_budget.searches", got[0].Code)
	assert.Contains(t, got[0].Detail, "is required and must equal 1")
	assert.Equal(t, "field 'safety_tag' is required and must equal ['safe', 'leakage_attempt'] (lane=lane_30)", got[1].Detail)

	assert.Nil(t, EnforceFixedValues(nil, "lane_30", c))
}

func TestAllowLists(t *testing.T) {
	t.Parallel()

	for _, k := range []string{"language", "user_message", "messages", "tool_call", "sample_id", "image_context"} {
		assert.True(t, TopLevelAllowed(k), k)
	}
	for _, k := range []string{"need_search", "needsSearch", "debug"} {
		assert.False(t, TopLevelAllowed(k), k)
	}
	assert.True(t, LaneFieldAllowed("tool_budget"))
	assert.False(t, LaneFieldAllowed("user_message"))
}

const masterDoc = `# Master schema
20. Connector Training spec
gmail_send
calendar_create
not a label
key: value
21. DEEPLINK CAPABILITY OVERVIEW
orphan_label
22. DEEPLINK CAPABILITY TRAINING SPEC
maps_open
==========
END OF MASTER SPEC
after_end
`

func TestMasterLabels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "master.md")
	require.NoError(t, os.WriteFile(path, []byte(masterDoc), 0o644))

	SetMasterLabelsPath(path)
	t.Cleanup(func() { SetMasterLabelsPath("") })

	got := Labels()
	assert.Equal(t, map[string]bool{"gmail_send": true, "calendar_create": true}, got.Connector)
	assert.Equal(t, map[string]bool{"maps_open": true}, got.Deeplink)

	require.NoError(t, os.Remove(path))
	assert.Equal(t, got, Labels(), "document is read once")

	SetMasterLabelsPath(filepath.Join(t.TempDir(), "missing.md"))
	assert.Empty(t, Labels().Connector)
}
