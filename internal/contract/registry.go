package contract

import (
	"slices"

	"github.com/dino-ds/laneqc/internal/lane"
)

func strs(v ...string) []any {
	out := make([]any, len(v))
	for i, s := range v {
		out[i] = s
	}
	return out
}

var boolEnum = []any{true, false}

// MasterEnums are the global label value sets, in declaration order.
var MasterEnums = []Enum{
	{Field: "language", Values: strs("en", "zh-hk", "zh-hant", "zh-hans", "pt-br", "fr", "de", "it", "hi", "vi", "ja", "ko", "es", "th")},
	{Field: "mode", Values: strs("quick", "think", "conversation")},
	{Field: "tone", Values: strs("family", "serious", "professional", "friendly", "best_friend")},
	{Field: "emote6", Values: strs("happy", "sad", "angry", "fear", "encourage", "neutral")},
	{Field: "text_affect6", Values: strs("calm", "warm", "energetic", "serious", "playful", "empathetic")},
	{Field: "style6", Values: strs("happy", "sad", "calm", "neutral", "encourage", "urgent")},
	{Field: "intent_family", Values: strs(
		"info_retrieval", "decision_support", "planning", "transactional", "navigation",
		"communication", "content_generation", "tool_invocation", "safety", "history_lookup",
		"productivity", "shopping", "qa_general",
	)},
	{Field: "representation_choice", Values: strs("plain_text", "bullet_list", "comparison_table", "chart_spec", "document_spec", "zip_spec")},
	{Field: "continuity_choice", Values: strs("use_continuity", "suppress_continuity")},
	{Field: "flow_state", Values: strs("none", "awaiting_user_confirmation", "awaiting_user_choice", "awaiting_parameters", "ready_for_action")},
	{Field: "safety_tag", Values: strs(
		"safe", "politics_sensitive", "history_sensitive", "self_harm_sensitive", "violence_sensitive",
		"sexual_content", "minor_related", "location_sensitive", "leakage_attempt",
	)},
	{Field: "history_scope", Values: strs("thread_only", "all_threads")},
	{Field: "image_tool_action", Values: strs("web_fetch", "connector_action")},
	{Field: "adult_gate", Values: boolEnum},
	{Field: "profanity_allowed", Values: boolEnum},
	{Field: "needs_search", Values: boolEnum},
	{Field: "needs_history_search", Values: boolEnum},
	{Field: "connector_needed", Values: boolEnum},
	{Field: "deeplink_needed", Values: boolEnum},
}

// BaseRequiredLabelKeys must be present and non-blank on every row.
var BaseRequiredLabelKeys = []string{
	"language", "mode", "tone", "adult_gate", "profanity_allowed", "emote6",
	"representation_choice", "continuity_choice", "intent_family", "intent_subtype",
	"flow_state", "safety_tag", "needs_search", "needs_history_search", "history_scope",
}

// BaseRequiredKeys must be present on every row.
var BaseRequiredKeys = append(slices.Clone(BaseRequiredLabelKeys), "user_message", "assistant_response")

// BaseForbiddenUserSubstrings may not appear in user_message, case-insensitively.
var BaseForbiddenUserSubstrings = []string{
	"tool_call",
	"use connector",
	"use deep link",
	"use deeplink",
	"use this tool",
}

// AllowedLabelKeys are the label fields a row or its lane object may carry.
var AllowedLabelKeys = func() []string {
	keys := append(slices.Clone(BaseRequiredLabelKeys),
		"text_affect6", "style6", "intent", "mode_label", "tool_budget",
		"connector_needed", "deeplink_needed", "connector_action", "deeplink_action",
		"image_tool_action", "image_context",
	)
	slices.Sort(keys)
	return slices.Compact(keys)
}()

// ActionLabelFields are mutually exclusive on mapping lanes.
var ActionLabelFields = []string{"connector_action", "deeplink_action", "image_tool_action"}

// LaneScopedFields may only appear on rows of the listed lanes.
var LaneScopedFields = []struct {
	Field string
	Lanes []lane.Number
}{
	{Field: "connector_action", Lanes: []lane.Number{11}},
	{Field: "connector_needed", Lanes: []lane.Number{10}},
	{Field: "deeplink_action", Lanes: []lane.Number{12, 37}},
	{Field: "deeplink_needed", Lanes: []lane.Number{12, 37}},
	{Field: "image_tool_action", Lanes: []lane.Number{27}},
	{Field: "image_context", Lanes: []lane.Number{26, 27}},
}

type option func(*Contract)

func withLabels(keys ...string) option {
	return func(c *Contract) {
		c.RequiredLabelKeys = append(c.RequiredLabelKeys, keys...)
	}
}

func withMapping(label string) option {
	return func(c *Contract) {
		c.Mapping = MappingRules{
			AssistantMustBeEmpty: true,
			ForbidToolCall:       true,
			ForbidParameters:     true,
			ActionLabel:          label,
		}
	}
}

func withCitations() option {
	return func(c *Contract) {
		c.Integration = IntegrationRules{AllowCitations: true}
	}
}

func withTurns(t TurnRules) option {
	return func(c *Contract) {
		c.Turns = t
	}
}

func withOverlapMax(limit float64) option {
	return func(c *Contract) {
		c.Overlap = &OverlapRule{Metric: "O_min", Tokenizer: "script_aware_v17", Max: limit}
	}
}

func withFixed(fv ...FixedValue) option {
	return func(c *Contract) {
		c.FixedValues = append(c.FixedValues, fv...)
	}
}

func withOverride(field string, values ...any) option {
	return func(c *Contract) {
		if c.Overrides == nil {
			c.Overrides = map[string][]any{}
		}
		c.Overrides[field] = append(c.Overrides[field], values...)
	}
}

func build(n lane.Number, opts ...option) Contract {
	c := Contract{
		Lane:                    n,
		RequiredKeys:            slices.Clone(BaseRequiredKeys),
		RequiredLabelKeys:       slices.Clone(BaseRequiredLabelKeys),
		Enums:                   slices.Clone(MasterEnums),
		ForbiddenUserSubstrings: slices.Clone(BaseForbiddenUserSubstrings),
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

var defaultContract = build(0)

var multiturnAllowed = withTurns(TurnRules{AllowMultiturn: true})

var registry = map[lane.Number]Contract{
	5:  build(5, multiturnAllowed, withOverride("tone", "playful")),
	8:  build(8, withCitations()),
	10: build(10, withLabels("connector_needed")),
	11: build(11, withLabels("connector_action"), withMapping("connector_action")),
	12: build(12, withLabels("deeplink_action"), withMapping("deeplink_action")),
	19: build(19, multiturnAllowed),
	20: build(20, withTurns(TurnRules{RequiresMultiturn: true, AllowMultiturn: true, MinTurnPairs: 2})),
	21: build(21,
		withOverlapMax(0.70),
		withFixed(FixedValue{Path: "intent_family", Want: "content_generation"}),
	),
	22: build(22,
		withOverlapMax(0.50),
		withFixed(FixedValue{Path: "intent_family", Want: "content_generation"}),
	),
	23: build(23,
		withOverlapMax(0.90),
		withFixed(FixedValue{Path: "intent_family", Want: "content_generation"}),
	),
	24: build(24, multiturnAllowed),
	25: build(25, withCitations(), multiturnAllowed),
	26: build(26, withFixed(FixedValue{Path: "needs_search", Want: false})),
	27: build(27, withLabels("image_tool_action"), withMapping("image_tool_action")),
	29: build(29, multiturnAllowed),
	30: build(30, withFixed(FixedValue{Path: "safety_tag", OneOf: strs("leakage_attempt", "safe")})),
	34: build(34, multiturnAllowed),
	35: build(35, withFixed(FixedValue{Path: "needs_history_search", Want: false})),
	37: build(37, withLabels("deeplink_needed")),
}
