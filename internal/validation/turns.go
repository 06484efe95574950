package validation

import (
	"fmt"
	"slices"
	"strings"

	"github.com/dino-ds/laneqc/internal/contract"
	"github.com/dino-ds/laneqc/internal/dataset"
)

// messageForbiddenKeys are row-level labels that must never be copied into a
// message object.
var messageForbiddenKeys = map[string]bool{
	"id": true, "row_id": true, "sample_id": true, "target_base": true, "lane_id": true,
	"language": true, "mode": true, "tone": true, "adult_gate": true, "profanity_allowed": true,
	"emote6": true, "text_affect6": true, "style6": true, "representation_choice": true,
	"continuity_choice": true, "intent_family": true, "intent_subtype": true, "intent": true,
	"mode_label": true, "flow_state": true, "safety_tag": true, "needs_search": true,
	"needs_history_search": true, "history_scope": true, "connector_needed": true,
	"deeplink_needed": true, "connector_action": true, "deeplink_action": true,
	"image_tool_action": true, "callback_type": true, "creative_extraction_attempt": true,
	"attempt_type": true,
}

// CheckTurnStructure validates the role order and turn count of row.messages
// against the lane's turn rules. Each issue code is reported at most once.
func CheckTurnStructure(row dataset.Row, laneID string) []Issue {
	if !row.IsObject() {
		return []Issue{{Code: "missing_messages", Detail: "row must be an object with messages"}}
	}
	msgs, ok := row.Messages()
	if !ok || len(msgs) == 0 {
		return []Issue{{Code: "missing_messages", Detail: "messages must be a non-empty list"}}
	}

	var issues []Issue
	var roles []string
	var systemAt []int
	for i, m := range msgs {
		pos := i + 1
		if m == nil {
			issues = appendOnce(issues, "roles_order_invalid", fmt.Sprintf("messages[%d] must be an object", pos))
			continue
		}
		if bad := forbiddenMessageKey(m); bad != "" {
			issues = appendOnce(issues, "message_label_key_forbidden",
				fmt.Sprintf("messages[%d].%s must not appear inside messages", pos, bad))
		}
		role, ok := m["role"].(string)
		if !ok {
			issues = appendOnce(issues, "roles_order_invalid", fmt.Sprintf("messages[%d].role must be a string", pos))
			continue
		}
		if _, ok := m["content"].(string); !ok {
			issues = appendOnce(issues, "roles_order_invalid", fmt.Sprintf("messages[%d].content must be a string", pos))
			continue
		}
		switch r := strings.ToLower(strings.TrimSpace(role)); r {
		case "system":
			systemAt = append(systemAt, pos)
		case "user", "assistant":
			roles = append(roles, r)
		default:
			issues = appendOnce(issues, "roles_order_invalid",
				fmt.Sprintf("messages[%d].role must be one of {system,user,assistant}", pos))
		}
	}

	if len(roles) == 0 {
		return appendOnce(issues, "missing_messages", "messages must include user/assistant turns")
	}

	if len(systemAt) > 0 && systemAt[0] != 1 {
		issues = appendOnce(issues, "roles_order_invalid", "system message, when present, must be the first message")
	}
	if len(systemAt) > 1 {
		issues = appendOnce(issues, "roles_order_invalid", "messages may contain at most one system message")
	}
	if roles[0] != "user" {
		issues = appendOnce(issues, "roles_order_invalid", "non-system messages must start with user")
	}
	if roles[len(roles)-1] != "assistant" {
		issues = appendOnce(issues, "roles_order_invalid", "non-system messages must end with assistant")
	}
	for i := 1; i < len(roles); i++ {
		if roles[i] == roles[i-1] {
			issues = appendOnce(issues, "role_alternation_invalid",
				fmt.Sprintf("adjacent roles repeat at non_system_index=%d (%s)", i, roles[i]))
			break
		}
	}

	turns := contract.ForID(laneID).Turns
	n := len(roles)
	switch {
	case turns.RequiresMultiturn:
		if want := turns.EffectiveMin(); n < want {
			issues = appendOnce(issues, "min_turns_not_met",
				fmt.Sprintf("requires_multiturn=true and min_messages=%d, got %d", want, n))
		}
	case turns.AllowMultiturn:
		if want := turns.EffectiveMin(); n < want {
			issues = appendOnce(issues, "min_turns_not_met",
				fmt.Sprintf("lane allows multi-turn and requires at least %d non-system messages, got %d", want, n))
		}
	default:
		if n != 2 {
			issues = appendOnce(issues, "min_turns_not_met",
				fmt.Sprintf("single-turn lane requires exactly 2 non-system messages, got %d", n))
		}
	}
	return issues
}

func forbiddenMessageKey(m map[string]any) string {
	var bad []string
	for k := range m {
		if messageForbiddenKeys[k] {
			bad = append(bad, k)
		}
	}
	if len(bad) == 0 {
		return ""
	}
	slices.Sort(bad)
	return bad[0]
}

// NormText collapses whitespace runs to a single space and trims the result.
func NormText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// CheckMessagesAlignment verifies that user_message and assistant_response
// mirror the last user and assistant turns of row.messages. Rows without a
// messages field pass.
func CheckMessagesAlignment(row dataset.Row) (bool, string) {
	raw, present := row["messages"]
	if !present || raw == nil {
		return true, ""
	}
	list, ok := raw.([]any)
	if !ok || len(list) < 2 {
		return false, "messages must be a list with user/assistant entries"
	}

	roles := make([]string, 0, len(list))
	contents := make([]string, 0, len(list))
	for _, item := range list {
		m, ok := dataset.AsObject(item)
		if !ok {
			return false, "messages contains non-object entry"
		}
		role, rok := m["role"].(string)
		content, cok := m["content"].(string)
		if !rok || !cok {
			return false, "messages entries require string role/content"
		}
		roles = append(roles, strings.TrimSpace(role))
		contents = append(contents, content)
	}

	ui := slices.Index(roles, "user")
	ai := slices.Index(roles, "assistant")
	if ui < 0 || ai < 0 {
		return false, "messages missing user/assistant roles"
	}
	if ui > ai {
		return false, "messages role order invalid (user must come before assistant)"
	}
	if si := slices.Index(roles, "system"); si >= 0 && si > ui {
		return false, "messages role order invalid (system must be before user)"
	}

	lastUser := lastIndex(roles, "user")
	if u, ok := row.Str("user_message"); ok && NormText(u) != NormText(contents[lastUser]) {
		return false, "user_message mismatch with messages[user].content"
	}
	lastAssistant := lastIndex(roles, "assistant")
	if a, ok := row.Str("assistant_response"); ok && NormText(a) != NormText(contents[lastAssistant]) {
		return false, "assistant_response mismatch with last messages[assistant].content"
	}
	return true, ""
}

func lastIndex(values []string, want string) int {
	for i := len(values) - 1; i >= 0; i-- {
		if values[i] == want {
			return i
		}
	}
	return -1
}
