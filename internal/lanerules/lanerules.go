// Package lanerules holds the bespoke per-lane checks layered on top of the lane
// contract: exact mode and representation requirements, output-shape validators,
// grounding checks, export tool-call schemas and mechanism-leakage scans.
//
// Checks are collected, not short-circuited. Every rule registered for a lane
// runs and contributes its issues.
package lanerules

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/dino-ds/laneqc/internal/contract"
	"github.com/dino-ds/laneqc/internal/dataset"
	"github.com/dino-ds/laneqc/internal/gates"
	"github.com/dino-ds/laneqc/internal/lane"
	"github.com/dino-ds/laneqc/internal/script"
	"github.com/dino-ds/laneqc/internal/validation"
)

var (
	citationRE      = regexp.MustCompile(`\[[1-9][0-9]{0,2}\]`)
	hanRE           = regexp.MustCompile(`[\x{4e00}-\x{9fff}]`)
	userMechanismRE = regexp.MustCompile(`(?i)(?:\b(?:use|call|invoke)\s+(?:the\s+)?tool\b)|` +
		`(?:\b(?:open|use)\s+(?:the\s+)?connector\b)|` +
		`(?:\b(?:click|follow)\s+(?:the\s+)?deep[\s-]?link\b)|` +
		`(?:\bsearch\s+in\s+(?:slack|google\s*drive|github)\b)|` +
		`(?:\bi\s+(?:queried|querying|query)\s+the\s+internal\s+(?:database|policy|validator)\b)|` +
		`(?:\brun\s+(?:validate_row|rule_profile)\b)|` +
		`(?:\bi\s+will\s+browse\s+(?:the\s+)?web\s+tool\b)|` +
		`(?:\bweb\.run\b)`)
	assistantInternalRE = regexp.MustCompile(`(?i)\b(tool_call|web_fetch|web_read|connector_action|deeplink_action|routing|schema|internal label)\b`)
	searchLeakRE        = regexp.MustCompile(`(?i)\b(tool_call|web_fetch|search|connector|deeplink|schema|label)\b`)
)

// legacyAliasFields are pre-v17 spellings of routing flags, in report order.
var legacyAliasFields = []string{
	"need_connector",
	"need_deeplink",
	"need_history_search",
	"need_search",
	"needsConnector",
	"needsDeeplink",
	"needsHistorySearch",
	"needsSearch",
}

var (
	toolCallForbiddenLanes = []lane.Number{
		1, 2, 5, 6, 7, 9, 10, 11, 12, 15, 16, 17, 18, 19, 20, 21, 22, 23, 24, 25,
		27, 28, 29, 30, 31, 32, 33, 34, 35, 37,
	}
	toolCallRequiredLanes  = []lane.Number{8, 13, 14}
	assistantLeakageLanes  = []lane.Number{6, 7, 10, 19, 24, 31, 32, 37}
	topicHygieneSubtypes   = []string{"stay_on_topic", "scope_control", "return_to_goal", "gentle_boundary"}
	cantoneseLanguageTags  = []string{"zh-hk", "zh_hk", "zh-hant", "zh_hant"}
	lane27ImageToolActions = []string{"web_fetch", "connector_action"}
)

// Rule is one lane-specific check. It records its findings on the check.
type Rule func(c *rowCheck)

// rowCheck carries a single row through the rules of its lane.
type rowCheck struct {
	row    dataset.Row
	laneID string
	num    lane.Number
	seg    script.Segmenter
	issues []validation.Issue
}

func (c *rowCheck) add(code, detail string) {
	c.issues = append(c.issues, validation.Issue{Code: code, Detail: detail})
}

func (c *rowCheck) addf(code, format string, args ...any) {
	c.add(code, fmt.Sprintf(format, args...))
}

// Validator runs lane-specific rules. Its Segmenter is used by the overlap
// bound on rewrite-style lanes.
type Validator struct {
	seg script.Segmenter
}

// New returns a Validator. A nil seg means script.NoSegmenter.
func New(seg script.Segmenter) *Validator {
	if seg == nil {
		seg = script.NoSegmenter{}
	}
	return &Validator{seg: seg}
}

// Validate runs the lane rules with the default segmenter.
func Validate(row dataset.Row, laneID string) []validation.Issue {
	return New(nil).Validate(row, laneID)
}

// Validate returns every lane-specific issue found on row. Fixed values are
// checked for any lane id; the remaining rules need a lane number.
func (v *Validator) Validate(row dataset.Row, laneID string) []validation.Issue {
	if !row.IsObject() {
		return []validation.Issue{{Code: "row_not_dict", Detail: "row must be an object"}}
	}
	c := &rowCheck{row: row, laneID: laneID, num: lane.Parse(laneID), seg: v.seg}

	for _, fv := range contract.EnforceFixedValues(row, laneID, contract.ForID(laneID)) {
		c.add(fv.Code, fv.Detail)
	}
	if c.num == 0 {
		return c.issues
	}

	legacyAliases(c)
	userMechanism(c)
	toolCallPolicy(c)
	for _, rule := range laneRules[c.num] {
		rule(c)
	}
	if c.num.In(assistantLeakageLanes...) {
		if asst, ok := row.Str("assistant_response"); ok && assistantInternalRE.MatchString(asst) {
			c.add("assistant_leakage", "assistant_response contains internal mechanism words")
		}
	}
	return c.issues
}

func legacyAliases(c *rowCheck) {
	for _, alias := range legacyAliasFields {
		if c.row.Has(alias) {
			c.addf("legacy_alias_field", "legacy alias field present: %s", alias)
		}
	}
}

func userMechanism(c *rowCheck) {
	if user, ok := c.row.Str("user_message"); ok && userMechanismRE.MatchString(user) {
		c.add("user_mechanism_word", "user_message contains internal mechanism leakage phrasing")
		return
	}
	if last := lastUserContent(c.row); last != "" && userMechanismRE.MatchString(last) {
		c.add("user_mechanism_word", "messages last user turn contains internal mechanism leakage phrasing")
	}
}

func lastUserContent(row dataset.Row) string {
	msgs, ok := row.Messages()
	if !ok {
		return ""
	}
	for i := len(msgs) - 1; i >= 0; i-- {
		m := msgs[i]
		if m == nil {
			continue
		}
		role, rok := m["role"].(string)
		content, cok := m["content"].(string)
		if !rok || !cok || strings.ToLower(strings.TrimSpace(role)) != "user" {
			continue
		}
		if text := strings.TrimSpace(content); text != "" {
			return text
		}
	}
	return ""
}

func toolCallPolicy(c *rowCheck) {
	if c.num.In(toolCallForbiddenLanes...) && (c.row.Has("tool_call") || c.row.Has("tool_calls")) {
		c.add("tool_call_forbidden", "tool_call/tool_calls must not appear in this lane")
	}
	if c.num.In(toolCallRequiredLanes...) {
		if _, ok := c.row.Object("tool_call"); !ok {
			c.add("tool_call_required", "tool_call is required in this lane")
		}
	}
}

// hasCitation reports whether text carries a citation marker such as [1] that
// is not glued to a word character on either side.
func hasCitation(text string) bool {
	for _, loc := range citationRE.FindAllStringIndex(text, -1) {
		if loc[0] > 0 && isWordByte(text[loc[0]-1]) {
			continue
		}
		if loc[1] < len(text) && isWordByte(text[loc[1]]) {
			continue
		}
		return true
	}
	return false
}

func isWordByte(b byte) bool {
	return b == '_' || ('0' <= b && b <= '9') || ('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z')
}

func isEmptyOrSingleSpace(v any) bool {
	s, ok := v.(string)
	return ok && (s == "" || s == " ")
}

// boolError checks that field holds a boolean, optionally a specific one.
func boolError(row dataset.Row, field string, want *bool) string {
	v, ok := row[field]
	if !ok {
		return fmt.Sprintf("missing required boolean field '%s'", field)
	}
	b, ok := v.(bool)
	if !ok {
		return fmt.Sprintf("field '%s' must be boolean", field)
	}
	if want != nil && b != *want {
		return fmt.Sprintf("field '%s' must be %t", field, *want)
	}
	return ""
}

// requireBool is a rule demanding a boolean field.
func requireBool(field, code string) Rule {
	return func(c *rowCheck) {
		if err := boolError(c.row, field, nil); err != "" {
			c.add(code, err)
		}
	}
}

// requireBoolIs is a rule demanding a boolean field with the given value.
func requireBoolIs(field, code string, want bool) Rule {
	return func(c *rowCheck) {
		if err := boolError(c.row, field, &want); err != "" {
			c.add(code, err)
		}
	}
}

// requireOneOf is a rule demanding field be exactly one of the listed strings.
func requireOneOf(field, code, detail string, allowed ...string) Rule {
	return func(c *rowCheck) {
		v := c.row[field]
		for _, a := range allowed {
			if v == a {
				return
			}
		}
		c.add(code, detail)
	}
}

// requireText is a rule demanding a non-blank string field.
func requireText(field, code, detail string) Rule {
	return func(c *rowCheck) {
		if dataset.IsBlankText(c.row[field]) {
			c.add(code, detail)
		}
	}
}

// assistantShape runs a shape validator over assistant_response.
func assistantShape(code string, check shapeCheck) Rule {
	return func(c *rowCheck) {
		if err := check(c.row["assistant_response"]); err != "" {
			c.add(code, err)
		}
	}
}

func assistantEmptyOrSpace(c *rowCheck) {
	if !isEmptyOrSingleSpace(c.row["assistant_response"]) {
		c.addf("assistant_must_be_empty", "lane %02d assistant_response must be '' or single space", int(c.num))
	}
}

func assistantExactlyEmpty(c *rowCheck) {
	if c.row["assistant_response"] != "" {
		c.addf("assistant_must_be_empty", "lane %02d assistant_response must be empty string", int(c.num))
	}
}

func noParameters(c *rowCheck) {
	if dataset.ContainsKey(c.row, "parameters") || dataset.ContainsKey(c.row, "slots") {
		c.addf("parameters_forbidden", "lane %02d forbids parameters/slots", int(c.num))
	}
}

// forbidNonBlank is a rule rejecting non-blank values in any of fields.
func forbidNonBlank(code string, fields ...string) Rule {
	return func(c *rowCheck) {
		for _, f := range fields {
			if c.row.Has(f) && !dataset.IsBlankText(c.row[f]) {
				c.addf(code, "lane %02d forbids non-empty %s", int(c.num), f)
			}
		}
	}
}

// canonicalAction is a rule checking an action label against the master
// label set selected by pick. An empty master set disables the check.
func canonicalAction(field string, pick func(contract.MasterLabels) map[string]bool) Rule {
	return func(c *rowCheck) {
		labels := pick(contract.Labels())
		if len(labels) == 0 {
			return
		}
		action, ok := c.row.Str(field)
		if ok && strings.TrimSpace(action) != "" && !labels[action] {
			c.addf(field+"_not_canonical", "lane %02d %s is not canonical: %s", int(c.num), field, action)
		}
	}
}

// exportToolCall is a rule enforcing an exact export tool-call schema.
func exportToolCall(extras func(dataset.Row) []string, schemaErr func(dataset.Row) string) Rule {
	return func(c *rowCheck) {
		n := int(c.num)
		if c.row.Has("tool_calls") {
			c.addf("tool_call_extra_keys_forbidden", "lane %02d forbids tool_calls; output must use only tool_call object", n)
		}
		if keys := extras(c.row); len(keys) > 0 {
			c.addf("tool_call_extra_keys_forbidden", "lane %02d extra keys: %s", n, strings.Join(keys, ", "))
		}
		if err := schemaErr(c.row); err != "" {
			c.add("tool_call_schema", err)
		}
	}
}

func lane06TriggerFields(c *rowCheck) {
	if c.row.Has("connector_needed") || c.row.Has("deeplink_needed") {
		c.add("forbidden_trigger_fields", "lane 06 forbids connector_needed/deeplink_needed")
	}
}

func lane08Integration(c *rowCheck) {
	tc, _ := c.row.Object("tool_call")
	if name := toolCallName(tc); name != "web_fetch" && name != "web_read" {
		c.add("tool_call_name_invalid", "lane 08 tool_call.name must be web_fetch or web_read")
	}
	asst := c.row["assistant_response"]
	if dataset.IsBlankText(asst) {
		c.add("assistant_required", "assistant_response is required")
		return
	}
	text := asst.(string)
	if !hasCitation(text) {
		c.add("citation_required", "lane 08 assistant_response must include citations like [1]")
	}
	if searchLeakRE.MatchString(text) {
		c.add("assistant_leakage", "lane 08 assistant_response contains forbidden internal words")
	}
}

func lane10MappingLabels(c *rowCheck) {
	for _, f := range []string{"connector_action", "deeplink_action", "image_tool_action"} {
		if c.row.Has(f) {
			c.addf("mapping_label_forbidden", "lane 10 forbids %s", f)
		}
	}
}

func lane19Continuity(c *rowCheck) {
	if c.row["continuity_choice"] != "use_continuity" {
		return
	}
	msgs, ok := c.row.Messages()
	if !ok {
		return
	}
	var system string
	for _, m := range msgs {
		if m == nil || m["role"] != "system" {
			continue
		}
		if s, ok := m["content"].(string); ok {
			system = s
			break
		}
	}
	if !strings.Contains(strings.ToUpper(system), "CONTEXT") {
		c.add("continuity_context_missing", "lane 19 use_continuity rows should include prior facts in system CONTEXT")
	}
}

func userAssistantOverlap(c *rowCheck) {
	if issue, ok := gates.CheckUserAssistantOverlap(c.row, c.laneID, c.seg); ok {
		c.add(issue.Code, issue.Detail)
	}
}

func lane25HistoryGrounding(c *rowCheck) {
	if err := historyGroundingError(c.row); err != "" {
		c.add("history_snippet_grounding_missing", err)
	}
}

func lane26ImageGrounding(c *rowCheck) {
	if _, ok := c.row.Object("image_context"); !ok {
		c.add("image_context_required", "lane 26 requires image_context object")
		return
	}
	if err := imageGroundingError(c.row); err != "" {
		c.add("image_context_grounding_violation", err)
	}
}

func lane27ImageContext(c *rowCheck) {
	if _, ok := c.row.Object("image_context"); !ok {
		c.add("image_context_required", "lane 27 requires image_context object")
	}
}

func lane32Representation(c *rowCheck) {
	rep := c.row["representation_choice"]
	if dataset.IsBlankText(rep) {
		c.add("representation_required", "lane 32 requires representation_choice")
		return
	}
	norm := strings.ToLower(strings.TrimSpace(rep.(string)))
	check, ok := representationChecks[norm]
	if !ok {
		return
	}
	if err := check(c.row["assistant_response"]); err != "" {
		c.addf("representation_mismatch", "representation_choice=%s but %s", norm, err)
	}
}

func lane34Han(c *rowCheck) {
	lang, _ := c.row.Str("language")
	asst, ok := c.row.Str("assistant_response")
	if !ok {
		return
	}
	for _, tag := range cantoneseLanguageTags {
		if strings.ToLower(lang) == tag && !hanRE.MatchString(asst) {
			c.add("cjk_missing", "lane 34 zh-hk rows should contain Cantonese/Han characters")
			return
		}
	}
}

func lane37DeeplinkAction(c *rowCheck) {
	if c.row.Has("deeplink_action") && !dataset.IsBlankText(c.row["deeplink_action"]) {
		c.add("deeplink_action_forbidden", "lane 37 is intent detection; deeplink_action belongs to lane 12")
	}
}

func connectorLabels(m contract.MasterLabels) map[string]bool { return m.Connector }
func deeplinkLabels(m contract.MasterLabels) map[string]bool  { return m.Deeplink }

// laneRules maps each lane number to its ordered rule set.
var laneRules = map[lane.Number][]Rule{
	1: {
		requireOneOf("mode", "mode_mismatch", "lane 01 requires mode=quick", "quick"),
		requireOneOf("representation_choice", "representation_mismatch", "lane 01 requires representation_choice=plain_text", "plain_text"),
	},
	2: {
		requireOneOf("mode", "mode_mismatch", "lane 02 mode must be quick or think", "quick", "think"),
		requireOneOf("representation_choice", "representation_mismatch", "lane 02 requires representation_choice=plain_text", "plain_text"),
	},
	3: {
		requireOneOf("mode", "mode_mismatch", "lane 03 requires mode=think", "think"),
		optionalToolCall,
	},
	4: {
		requireOneOf("mode", "mode_mismatch", "lane 04 requires mode=quick", "quick"),
		optionalToolCall,
	},
	5: {
		requireOneOf("mode", "mode_mismatch", "lane 05 requires mode=conversation", "conversation"),
	},
	6: {lane06TriggerFields},
	7: {
		requireBool("needs_search", "needs_search_required"),
		requireBoolIs("needs_history_search", "needs_history_search_false", false),
	},
	8: {
		requireBoolIs("needs_search", "needs_search_true", true),
		requireBoolIs("needs_history_search", "needs_history_search_false", false),
		lane08Integration,
	},
	9: {requireText("flow_state", "flow_state_required", "lane 09 requires flow_state")},
	10: {
		requireBool("connector_needed", "connector_needed_required"),
		lane10MappingLabels,
	},
	11: {
		assistantEmptyOrSpace,
		requireText("connector_action", "connector_action_required", "lane 11 requires connector_action"),
		canonicalAction("connector_action", connectorLabels),
		forbidNonBlank("multiple_action_labels", "deeplink_action", "image_tool_action"),
		noParameters,
	},
	12: {
		assistantEmptyOrSpace,
		requireText("deeplink_action", "deeplink_action_required", "lane 12 requires deeplink_action"),
		canonicalAction("deeplink_action", deeplinkLabels),
		forbidNonBlank("multiple_action_labels", "connector_action", "image_tool_action"),
		noParameters,
	},
	13: {
		requireOneOf("representation_choice", "representation_mismatch", "lane 13 requires representation_choice=document_spec", "document_spec"),
		assistantExactlyEmpty,
		exportToolCall(exportDocumentExtraKeys, exportDocumentSchemaError),
	},
	14: {
		requireOneOf("representation_choice", "representation_mismatch", "lane 14 requires representation_choice=zip_spec", "zip_spec"),
		assistantExactlyEmpty,
		exportToolCall(zipListExtraKeys, zipListSchemaError),
	},
	15: {assistantShape("codeblock_only", codeblockOnly)},
	16: {assistantShape("json_only", jsonCodeSpec)},
	17: {
		requireOneOf("representation_choice", "representation_mismatch", "lane 17 requires representation_choice=comparison_table", "comparison_table"),
		assistantShape("markdown_table_only", markdownTableOnly),
	},
	18: {
		requireOneOf("representation_choice", "representation_mismatch", "lane 18 requires representation_choice=chart_spec", "chart_spec"),
		assistantShape("chart_spec_only", chartSpecOnly),
	},
	19: {lane19Continuity},
	20: {
		requireBoolIs("needs_search", "needs_search_false", false),
		requireBoolIs("needs_history_search", "needs_history_search_false", false),
		requireOneOf("history_scope", "history_scope_mismatch", "lane 20 requires history_scope=thread_only", "thread_only"),
	},
	21: {userAssistantOverlap},
	22: {userAssistantOverlap},
	23: {userAssistantOverlap},
	24: {
		requireBool("needs_history_search", "needs_history_search_required"),
		requireOneOf("history_scope", "history_scope_invalid", "lane 24 history_scope must be thread_only or all_threads", "thread_only", "all_threads"),
	},
	25: {
		requireBoolIs("needs_history_search", "needs_history_search_true", true),
		lane25HistoryGrounding,
	},
	26: {lane26ImageGrounding},
	27: {
		lane27ImageContext,
		assistantEmptyOrSpace,
		requireOneOf("image_tool_action", "image_tool_action_required", "lane 27 image_tool_action must be web_fetch or connector_action", lane27ImageToolActions...),
		noParameters,
	},
	28: {assistantEmptyOrSpace},
	29: {
		requireOneOf("intent_family", "intent_family_mismatch", "lane 29 requires intent_family=safety", "safety"),
		requireBoolIs("needs_search", "needs_search_false", false),
		requireBoolIs("needs_history_search", "needs_history_search_false", false),
		requireOneOf("history_scope", "history_scope_mismatch", "lane 29 requires history_scope=thread_only", "thread_only"),
	},
	30: {
		requireOneOf("intent_family", "intent_family_mismatch", "lane 30 requires intent_family=safety", "safety"),
	},
	31: {
		requireOneOf("mode", "mode_required", "lane 31 requires mode in {quick, think, conversation}", "quick", "think", "conversation"),
	},
	32: {lane32Representation},
	33: {
		requireBoolIs("needs_search", "needs_search_false", false),
		requireBoolIs("needs_history_search", "needs_history_search_false", false),
		requireOneOf("history_scope", "history_scope_mismatch", "lane 33 requires history_scope=thread_only", "thread_only"),
		requireText("assistant_response", "assistant_required", "lane 33 requires a user-facing fallback assistant_response"),
	},
	34: {lane34Han},
	35: {
		requireOneOf("intent_subtype", "intent_subtype_invalid", "lane 35 intent_subtype must be a topic_hygiene subtype", topicHygieneSubtypes...),
	},
	37: {
		requireBool("deeplink_needed", "deeplink_needed_required"),
		lane37DeeplinkAction,
	},
}
