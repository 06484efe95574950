package report

import "strings"

// focusRule points operators at where a code usually originates.
type focusRule struct {
	prefixes []string
	contains []string
	focus    string
}

func (r focusRule) matches(code string) bool {
	for _, p := range r.prefixes {
		if strings.HasPrefix(code, p) {
			return true
		}
	}
	for _, s := range r.contains {
		if strings.Contains(code, s) {
			return true
		}
	}
	return false
}

// focusRules are tried in order; the first match wins.
var focusRules = []focusRule{
	{contains: []string{"fixed_value_violation"}, focus: "Check lane fixed contract value and row label at the same field path."},
	{prefixes: []string{"missing_required_key", "missing_required_label"}, focus: "Row template is missing required schema labels/keys."},
	{prefixes: []string{"unknown_field_forbidden", "unknown_lane_field_forbidden"}, focus: "Remove non-schema fields from row payload."},
	{prefixes: []string{"enum_value_not_allowed", "enum_type_mismatch"}, focus: "Enum mismatch vs master set or lane override set."},
	{contains: []string{"tool_call_extra_keys_forbidden"}, focus: "Tool payload has non-schema keys; inspect tool_call.arguments path."},
	{contains: []string{"tool_call"}, focus: "Tool policy/schema mismatch; check lane tool contract."},
	{contains: []string{"citation"}, focus: "Citation policy mismatch for this lane."},
	{contains: []string{"adjacent_dup_token", "trip_token", "trip_bigram"}, focus: "Repetition gate hit; inspect repeated token/bigram in assistant_response."},
	{contains: []string{"near_duplicate_overlap", "dup_candidate_unconfirmed"}, focus: "Similarity/duplication overlap; add opening/structure diversity."},
	{contains: []string{"script_corruption_fatal", "character_fragmentation_fatal"}, focus: "Malformed text/script mismatch; inspect language/script composition."},
	{contains: []string{"representation", "format", "code_only"}, focus: "Output format contract mismatch for this lane."},
	{contains: []string{"messages_alignment", "role_alternation_invalid", "min_turns_not_met"}, focus: "Turn/message structure mismatch; inspect messages[] ordering and counts."},
	{contains: []string{"language_mismatch_expected"}, focus: "Row language label does not match lane language slice."},
	{contains: []string{"placeholder_marker"}, focus: "Template placeholder leaked into output."},
	{contains: []string{"mechanism_leakage", "user_mechanism_word"}, focus: "Internal mechanism wording leaked into user/assistant text."},
	{contains: []string{"proportion", "share_too_low", "out_of_tolerance"}, focus: "Slice-level distribution target out of tolerance."},
	{contains: []string{"underfilled", "attempts_per_row_too_high"}, focus: "Generation viability gate issue (underfill/attempt budget)."},
}

// DiagnosticFocus returns the operator hint for a code.
func DiagnosticFocus(code string, fatal bool) string {
	c := strings.ToLower(code)
	for _, r := range focusRules {
		if r.matches(c) {
			return r.focus
		}
	}
	if !fatal {
		return "Non-blocking signal; review and decide whether to tighten data generation."
	}
	return "Inspect row examples for this code to locate the blocked contract."
}
