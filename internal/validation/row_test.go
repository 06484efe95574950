// Package validation_test tests row structural validation and cross-field rules.
// Related: internal/validation/row.go, internal/validation/status_event.go, internal/validation/tool_budget.go
// Tags: validation, row, enum, status-event, tool-budget, crossfield
package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dino-ds/laneqc/internal/dataset"
	"github.com/dino-ds/laneqc/internal/script"
)

func baseRow() dataset.Row {
	return dataset.Row{
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
		"user_message":          "What is the boiling point of water at sea level?",
		"assistant_response":    "Water boils at 100 degrees Celsius at sea level.",
		"messages": []any{
			map[string]any{"role": "user", "content": "What is the boiling point of water at sea level?"},
			map[string]any{"role": "assistant", "content": "Water boils at 100 degrees Celsius at sea level."},
		},
	}
}

func withFields(kv map[string]any, drop ...string) dataset.Row {
	r := baseRow()
	for k, v := range kv {
		r[k] = v
	}
	for _, k := range drop {
		delete(r, k)
	}
	return r
}

func TestValidateRow(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		row      dataset.Row
		lane     string
		expected string
		reason   string
	}{
		"valid row": {
			row:  baseRow(),
			lane: "lane_01_identity",
		},
		"missing required key": {
			row:    withFields(nil, "assistant_response"),
			lane:   "lane_01_identity",
			reason: "missing_required_key:assistant_response",
		},
		"blank required label": {
			row:    withFields(map[string]any{"intent_subtype": "  "}),
			lane:   "lane_01_identity",
			reason: "missing_required_label:intent_subtype",
		},
		"language mismatch": {
			row:      baseRow(),
			lane:     "lane_01_identity",
			expected: "th",
			reason:   "language_mismatch_expected:th",
		},
		"mixed case language matches lane": {
			row:      withFields(map[string]any{"language": "pt-BR"}),
			lane:     "lane_01_identity",
			expected: "pt-br",
		},
		"padded language matches lane": {
			row:      withFields(map[string]any{"language": "en "}),
			lane:     "lane_01_identity",
			expected: "en",
		},
		"unknown top-level field": {
			row:    withFields(map[string]any{"zeta": 1, "need_search": true}),
			lane:   "lane_01_identity",
			reason: "unknown_field_forbidden:need_search",
		},
		"unknown lane field": {
			row:    withFields(map[string]any{"lane": map[string]any{"wave": 1, "user_message": "x"}}),
			lane:   "lane_01_identity",
			reason: "unknown_lane_field_forbidden:user_message",
		},
		"status event precedes crossfield": {
			row: withFields(map[string]any{
				"status_event":      "searching",
				"profanity_allowed": true,
			}),
			lane:   "lane_01_identity",
			reason: "status_event_not_object",
		},
		"profanity without adult gate": {
			row:    withFields(map[string]any{"profanity_allowed": true}),
			lane:   "lane_01_identity",
			reason: "profanity_requires_adult_gate_and_best_friend",
		},
		"enum type mismatch": {
			row:    withFields(map[string]any{"needs_search": "false"}),
			lane:   "lane_01_identity",
			reason: "enum_type_mismatch:needs_search",
		},
		"enum value rejected": {
			row:    withFields(map[string]any{"mode": "turbo"}),
			lane:   "lane_01_identity",
			reason: "enum_value_not_allowed:mode",
		},
		"lane scoped field": {
			row:    withFields(map[string]any{"connector_needed": true}),
			lane:   "lane_01_identity",
			reason: "lane_scoped_field:connector_needed",
		},
		"forbidden user substring": {
			row:    withFields(map[string]any{"user_message": "Please USE THIS TOOL now"}),
			lane:   "lane_01_identity",
			reason: "forbidden_user_substring:use this tool",
		},
		"mapping lane needs empty response": {
			row:    withFields(map[string]any{"connector_action": "gmail_send"}),
			lane:   "lane_11_connector_action_mapping",
			reason: "assistant_response_not_empty",
		},
		"mapping lane nested parameters": {
			row: withFields(map[string]any{
				"connector_action":   "gmail_send",
				"assistant_response": "",
				"parameters":         map[string]any{"to": "a@b.c"},
			}),
			lane:   "lane_11_connector_action_mapping",
			reason: "parameters_forbidden",
		},
		"mapping lane missing label": {
			row:    withFields(map[string]any{"deeplink_action": " ", "assistant_response": ""}),
			lane:   "lane_12_deeplink_action_mapping",
			reason: "missing_required_label:deeplink_action",
		},
		"action label outside its lane": {
			row: withFields(map[string]any{
				"deeplink_action":    "maps_open",
				"image_tool_action":  "web_fetch",
				"assistant_response": "",
			}),
			lane:   "lane_12_deeplink_action_mapping",
			reason: "lane_scoped_field:image_tool_action",
		},
		"tool call forbidden by default": {
			row:    withFields(map[string]any{"tool_call": map[string]any{"name": "web_fetch"}}),
			lane:   "lane_01_identity",
			reason: "tool_call_forbidden",
		},
		"tool call required": {
			row:    withFields(map[string]any{"assistant_response": "See [1]."}),
			lane:   "lane_08_search_integration",
			reason: "tool_call_required",
		},
		"citations forbidden": {
			row:    withFields(map[string]any{"assistant_response": "It boils at 100C [2]."}),
			lane:   "lane_01_identity",
			reason: "citations_forbidden",
		},
		"citations required": {
			row:    withFields(map[string]any{"tool_call": map[string]any{"name": "web_fetch"}}),
			lane:   "lane_08_search_integration",
			reason: "citations_required",
		},
		"code only lane exempt from citations": {
			row:  withFields(map[string]any{"assistant_response": "```python\nx[1]\n```"}),
			lane: "lane_15_code_generation",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			got := ValidateRow(tt.row, tt.lane, script.Language(tt.expected))
			if tt.reason == "" {
				assert.True(t, got.OK, "reason=%s detail=%s", got.Reason, got.Detail)
				return
			}
			assert.False(t, got.OK)
			assert.Equal(t, tt.reason, got.Reason)
		})
	}
}

func TestValidateRow_OverrideWarning(t *testing.T) {
	t.Parallel()

	got := ValidateRow(withFields(map[string]any{"tone": "playful"}), "lane_05_emotional_continuity", "en")
	require.True(t, got.OK, got.Detail)
	assert.Equal(t, []string{"lane_enum_override_used:tone"}, got.Warnings)

	got = ValidateRow(withFields(map[string]any{"tone": "playful"}), "lane_01_identity", "en")
	assert.Equal(t, "enum_value_not_allowed:tone", got.Reason)
}

func TestValidateRow_NotObject(t *testing.T) {
	t.Parallel()

	got := ValidateRow(nil, "lane_01_identity", "")
	assert.Equal(t, Result{Reason: "row_not_dict", Detail: "row_not_dict"}, got)
}

func TestCheckStatusEvent(t *testing.T) {
	t.Parallel()

	valid := map[string]any{"phase": "retrieve", "note": "Fetching sources", "route": "cloud", "tokensSoFar": 12}
	tests := map[string]struct {
		event any
		code  string
	}{
		"valid":            {event: valid},
		"unknown key":      {event: merge(valid, map[string]any{"extra": 1, "debug": 2}), code: "status_event_unknown_key"},
		"missing route":    {event: map[string]any{"phase": "plan", "note": "x"}, code: "status_event_missing_required"},
		"bad phase":        {event: merge(valid, map[string]any{"phase": "think"}), code: "status_event_phase_invalid"},
		"bad route":        {event: merge(valid, map[string]any{"route": "edge"}), code: "status_event_route_invalid"},
		"multiline note":   {event: merge(valid, map[string]any{"note": "a\nb"}), code: "status_event_note_invalid"},
		"reasoning note":   {event: merge(valid, map[string]any{"note": "Step 2 of my plan"}), code: "status_event_reasoning_leakage"},
		"negative counter": {event: merge(valid, map[string]any{"sourcesCount": -1}), code: "status_event_counter_invalid"},
		"bool counter":     {event: merge(valid, map[string]any{"sourcesCount": true}), code: "status_event_counter_invalid"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			got := CheckStatusEvent(dataset.Row{"status_event": tt.event})
			if tt.code == "" {
				assert.Empty(t, got)
				return
			}
			require.Len(t, got, 1)
			assert.Equal(t, tt.code, got[0].Code)
		})
	}

	got := CheckStatusEvent(dataset.Row{"status_event": merge(valid, map[string]any{"zz": 1, "aa": 2})})
	assert.Equal(t, "status_event.aa is not allowed", got[0].Detail)
	assert.Empty(t, CheckStatusEvent(dataset.Row{}))
}

func TestCheckMasterCrossfield(t *testing.T) {
	t.Parallel()

	ok := dataset.Row{"profanity_allowed": true, "adult_gate": true, "tone": "Best_Friend"}
	assert.Empty(t, CheckMasterCrossfield(ok))

	laneScoped := dataset.Row{"lane": map[string]any{"profanity_allowed": true, "adult_gate": false}, "tone": "family"}
	got := CheckMasterCrossfield(laneScoped)
	require.Len(t, got, 2)
	assert.Equal(t, "profanity_requires_adult_gate_and_best_friend", got[0].Code)
	assert.Equal(t,
		"profanity_allowed=True (lane.profanity_allowed) requires adult_gate=True and tone='best_friend'; got adult_gate=False (lane.adult_gate), tone='family' (tone)",
		got[0].Detail)
	assert.Equal(t, "adult_gate_profanity_inconsistent", got[1].Code)
}

func TestCheckToolBudget(t *testing.T) {
	t.Parallel()

	fetch := map[string]any{"name": "web_fetch", "arguments": map[string]any{"max_seconds": 20}}
	read := map[string]any{"name": "Web_Read", "arguments": map[string]any{"max_reads": 5}}

	tests := map[string]struct {
		row   dataset.Row
		codes []string
	}{
		"no budget no calls": {row: dataset.Row{}},
		"not object": {
			row:   dataset.Row{"tool_budget": 3},
			codes: []string{"tool_budget_not_object"},
		},
		"out of range values": {
			row:   dataset.Row{"lane": map[string]any{"tool_budget": map[string]any{"searches": 2, "reads": 1.5, "seconds": 31, "cpu": 1}}},
			codes: []string{"tool_budget_unknown_key", "tool_budget_searches_out_of_range", "tool_budget_reads_out_of_range", "tool_budget_seconds_out_of_range"},
		},
		"observed exceeds budget": {
			row: dataset.Row{
				"tool_budget": map[string]any{"searches": 0, "reads": 0, "seconds": 10},
				"tool_calls":  []any{fetch, map[string]any{"name": "web_read"}},
			},
			codes: []string{"tool_budget_searches_exceeded", "tool_budget_reads_exceeded", "tool_budget_seconds_exceeded"},
		},
		"per-turn caps without budget": {
			row: dataset.Row{
				"tool_call":  fetch,
				"tool_calls": []any{fetch, read, read, read, read},
			},
			codes: []string{
				"tool_call_max_reads_out_of_range",
				"tool_policy_searches_exceeded",
				"tool_policy_reads_exceeded",
			},
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			got := Codes(CheckToolBudget(tt.row))
			if len(tt.codes) == 0 {
				assert.Empty(t, got)
				return
			}
			for _, c := range tt.codes {
				assert.Contains(t, got, c)
			}
		})
	}
}

func merge(a, b map[string]any) map[string]any {
	out := map[string]any{}
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}
