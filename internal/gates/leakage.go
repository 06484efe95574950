package gates

import (
	"regexp"
	"strings"

	"github.com/dino-ds/laneqc/internal/dataset"
	"github.com/dino-ds/laneqc/internal/validation"
)

var (
	mechanismLeakRE = regexp.MustCompile(
		`(?i)\b(tool_call|connector_action|deeplink_action|image_tool_action|web_fetch|router|schema|chain[- ]of[- ]thought)\b`)
	placeholderRE = regexp.MustCompile(`(?i)\[[A-Z_]{2,}\]|<<[^>\n]{1,80}>>|\{[A-Za-z_]*(slot|placeholder)[A-Za-z_]*\}`)
	whitespaceRE  = regexp.MustCompile(`\s+`)
)

// Preview collapses whitespace in text and truncates it to a short excerpt for
// issue details.
func Preview(text string) string {
	const maxRunes = 180
	t := whitespaceRE.ReplaceAllString(strings.TrimSpace(text), " ")
	r := []rune(t)
	if len(r) <= maxRunes {
		return t
	}
	return strings.TrimRight(string(r[:maxRunes-1]), " \t\n") + "…"
}

// CheckPlaceholder reports unexpanded template markers such as [SLOT_NAME],
// <<name>> or {user_slot} left in user_message or assistant_response.
func CheckPlaceholder(row dataset.Row) (validation.Issue, bool) {
	if user, ok := row.Str("user_message"); ok && placeholderRE.MatchString(user) {
		return fatal(validation.GateInvariants, "placeholder_marker", "user_message contains template marker"), true
	}
	asst, ok := row.Str("assistant_response")
	if ok && strings.TrimSpace(asst) != "" && placeholderRE.MatchString(asst) {
		return fatal(validation.GateInvariants, "placeholder_marker",
			"assistant_response contains template marker -> '%s'", Preview(asst)), true
	}
	return validation.Issue{}, false
}

// CheckMechanismLeakage reports assistant responses that name internal
// machinery (tool calls, routers, schemas, chain of thought). Code-only lanes
// are exempt because identifiers like these are legitimate code.
func CheckMechanismLeakage(row dataset.Row, laneID string) (validation.Issue, bool) {
	asst, ok := row.Str("assistant_response")
	if !ok || strings.TrimSpace(asst) == "" || policyFor(laneID).AssistantMustBeCodeOnly {
		return validation.Issue{}, false
	}
	if !mechanismLeakRE.MatchString(asst) {
		return validation.Issue{}, false
	}
	return fatal(validation.GateLeakage, "mechanism_leakage", "assistant_response -> '%s'", Preview(asst)), true
}
