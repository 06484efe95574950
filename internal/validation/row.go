package validation

import (
	"regexp"
	"slices"
	"strings"

	"github.com/dino-ds/laneqc/internal/contract"
	"github.com/dino-ds/laneqc/internal/dataset"
	"github.com/dino-ds/laneqc/internal/script"
)

var citationRE = regexp.MustCompile(`\[[0-9]+\]`)

// Result is the outcome of ValidateRow. Reason is the failure code when OK is
// false; Detail adds context for cross-field failures and otherwise equals
// Reason. Warnings are "code:field" tokens that never block the row.
type Result struct {
	OK       bool
	Reason   string
	Detail   string
	Warnings []string
}

func fail(reason string) Result {
	return Result{Reason: reason, Detail: reason}
}

func failIssue(it Issue) Result {
	return Result{Reason: it.Code, Detail: it.Detail}
}

// ValidateRow runs the structural checks for one row in order and stops at the
// first failure. An empty expectedLanguage skips the language match.
func ValidateRow(row dataset.Row, laneID string, expectedLanguage script.Language) Result {
	if !row.IsObject() {
		return fail("row_not_dict")
	}
	c := contract.ForID(laneID)

	for _, k := range c.RequiredKeys {
		if !row.Has(k) {
			return fail("missing_required_key:" + k)
		}
	}
	for _, k := range c.RequiredLabelKeys {
		if !row.Has(k) || dataset.IsBlank(row[k]) {
			return fail("missing_required_label:" + k)
		}
	}

	if expectedLanguage != "" {
		if script.Normalize(row["language"]) != expectedLanguage {
			return fail("language_mismatch_expected:" + string(expectedLanguage))
		}
	}

	if key := firstKey(row, contract.TopLevelAllowed); key != "" {
		return fail("unknown_field_forbidden:" + key)
	}
	if laneObj, ok := row.Object("lane"); ok {
		if key := firstKey(laneObj, contract.LaneFieldAllowed); key != "" {
			return fail("unknown_lane_field_forbidden:" + key)
		}
	}

	for _, check := range []func(dataset.Row) []Issue{CheckStatusEvent, CheckMasterCrossfield, CheckToolBudget} {
		if issues := check(row); len(issues) > 0 {
			return failIssue(issues[0])
		}
	}

	var warnings []string
	for _, e := range c.Enums {
		v, ok := row[e.Field]
		if !ok || dataset.IsBlank(v) || len(e.Values) == 0 {
			continue
		}
		if !e.TypeMatches(v) {
			return fail("enum_type_mismatch:" + e.Field)
		}
		switch res := contract.ResolveEnum(v, e.Values, c.Overrides[e.Field]); res {
		case contract.EnumRejected:
			return fail(res.Code() + ":" + e.Field)
		case contract.EnumOverride:
			warnings = append(warnings, res.Code()+":"+e.Field)
		}
	}

	for _, scoped := range contract.LaneScopedFields {
		if row.Has(scoped.Field) && !c.Lane.In(scoped.Lanes...) {
			return fail("lane_scoped_field:" + scoped.Field)
		}
	}

	if user, ok := row.Str("user_message"); ok {
		lowered := strings.ToLower(user)
		for _, sub := range c.ForbiddenUserSubstrings {
			if strings.Contains(lowered, strings.ToLower(sub)) {
				return fail("forbidden_user_substring:" + sub)
			}
		}
	}

	if reason := checkMapping(row, c.Mapping); reason != "" {
		return fail(reason)
	}
	if reason := checkIntegration(row, contract.Merge(c)); reason != "" {
		return fail(reason)
	}

	return Result{OK: true, Warnings: warnings}
}

// firstKey returns the alphabetically first key of m that allowed rejects.
func firstKey(m map[string]any, allowed func(string) bool) string {
	var bad []string
	for k := range m {
		if !allowed(k) {
			bad = append(bad, k)
		}
	}
	if len(bad) == 0 {
		return ""
	}
	slices.Sort(bad)
	return bad[0]
}

func checkMapping(row dataset.Row, m contract.MappingRules) string {
	if m.AssistantMustBeEmpty {
		if a, ok := row.Str("assistant_response"); !ok || strings.TrimSpace(a) != "" {
			return "assistant_response_not_empty"
		}
	}
	if m.ForbidToolCall && row.Has("tool_call") {
		return "tool_call_forbidden"
	}
	if m.ForbidParameters && dataset.ContainsKey(map[string]any(row), "parameters") {
		return "parameters_forbidden"
	}
	if m.ActionLabel == "" {
		return ""
	}
	if dataset.IsBlank(row[m.ActionLabel]) {
		return "missing_action_label:" + m.ActionLabel
	}
	for _, field := range contract.ActionLabelFields {
		if field == m.ActionLabel {
			continue
		}
		if v, ok := row[field]; ok && !dataset.IsBlank(v) {
			return "multiple_action_labels:" + m.ActionLabel + "+" + field
		}
	}
	return ""
}

func checkIntegration(row dataset.Row, eff contract.Effective) string {
	hasToolCall := row.Has("tool_call") || row.Has("tool_calls")
	if !eff.AllowToolCall && hasToolCall {
		return "tool_call_forbidden"
	}
	if eff.RequireToolCall {
		if _, ok := row.Object("tool_call"); !ok {
			return "tool_call_required"
		}
	}
	if eff.CitationsExempt {
		return ""
	}
	cited := hasCitations(row["assistant_response"]) || hasCitations(row["user_message"])
	if !eff.AllowCitations && cited {
		return "citations_forbidden"
	}
	if eff.RequireCitations && !hasCitations(row["assistant_response"]) {
		return "citations_required"
	}
	return ""
}

func hasCitations(v any) bool {
	s, ok := v.(string)
	return ok && citationRE.MatchString(s)
}

