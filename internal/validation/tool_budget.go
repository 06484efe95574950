package validation

import (
	"fmt"
	"slices"
	"strings"

	"github.com/dino-ds/laneqc/internal/dataset"
)

var toolBudgetKeys = []string{"searches", "reads", "seconds"}

// Per-turn tool limits. They apply to every row, declared budget or not.
const (
	maxSearchesPerTurn = 1
	maxReadsPerTurn    = 3
	maxSecondsPerTurn  = 30
)

// ToolCall is one tool-call object found on a row, with its location.
type ToolCall struct {
	Path string
	Call map[string]any
}

// Name returns the trimmed, lower-cased call name, or "" when it is not a string.
func (tc ToolCall) Name() string {
	s, _ := tc.Call["name"].(string)
	return strings.ToLower(strings.TrimSpace(s))
}

// ToolCalls returns row.tool_call (when an object) followed by every object in
// row.tool_calls.
func ToolCalls(row dataset.Row) []ToolCall {
	var out []ToolCall
	if tc, ok := row.Object("tool_call"); ok {
		out = append(out, ToolCall{Path: "tool_call", Call: tc})
	}
	if list, ok := row.List("tool_calls"); ok {
		for i, item := range list {
			if obj, ok := dataset.AsObject(item); ok {
				out = append(out, ToolCall{Path: fmt.Sprintf("tool_calls[%d]", i), Call: obj})
			}
		}
	}
	return out
}

func intInRange(v any, lo, hi int64) bool {
	n, ok := dataset.AsInt(v)
	return ok && n >= lo && n <= hi
}

func numberInRange(v any, lo, hi float64) bool {
	n, ok := dataset.AsNumber(v)
	return ok && n >= lo && n <= hi
}

// CheckToolBudget validates the declared tool_budget (root or lane) and the
// observed web_fetch and web_read usage against it and the per-turn caps.
func CheckToolBudget(row dataset.Row) []Issue {
	if !row.IsObject() {
		return nil
	}
	var issues []Issue

	raw, path, declared := row.LookupFirst("tool_budget", "lane.tool_budget")
	budget, budgetOK := dataset.AsObject(raw)
	if declared {
		issues = append(issues, checkBudgetObject(budget, budgetOK, path)...)
	}

	var searches, reads int
	var secondsTotal float64
	for _, tc := range ToolCalls(row) {
		switch tc.Name() {
		case "web_fetch":
			searches++
		case "web_read":
			reads++
		}
		args, ok := dataset.AsObject(tc.Call["arguments"])
		if !ok {
			continue
		}
		if v, ok := args["max_reads"]; ok && !intInRange(v, 0, maxReadsPerTurn) {
			issues = append(issues, NewIssue("tool_call_max_reads_out_of_range",
				"%s.arguments.max_reads must be integer in [0,3]; got %s", tc.Path, dataset.Repr(v)))
		}
		if v, ok := args["max_seconds"]; ok {
			if !numberInRange(v, 0, maxSecondsPerTurn) {
				issues = append(issues, NewIssue("tool_call_max_seconds_out_of_range",
					"%s.arguments.max_seconds must be number in [0,30]; got %s", tc.Path, dataset.Repr(v)))
			} else {
				n, _ := dataset.AsNumber(v)
				secondsTotal += n
			}
		}
	}

	if searches > maxSearchesPerTurn {
		issues = append(issues, NewIssue("tool_policy_searches_exceeded",
			"per-turn search budget is <=1; observed %d web_fetch calls", searches))
	}
	if reads > maxReadsPerTurn {
		issues = append(issues, NewIssue("tool_policy_reads_exceeded",
			"per-turn read budget is <=3; observed %d web_read calls", reads))
	}

	if !budgetOK {
		return issues
	}
	if n, ok := dataset.AsInt(budget["searches"]); ok && int64(searches) > n {
		issues = append(issues, NewIssue("tool_budget_searches_exceeded",
			"observed web_fetch calls=%d exceeds %s.searches=%d", searches, path, n))
	}
	if n, ok := dataset.AsInt(budget["reads"]); ok && int64(reads) > n {
		issues = append(issues, NewIssue("tool_budget_reads_exceeded",
			"observed web_read calls=%d exceeds %s.reads=%d", reads, path, n))
	}
	if n, ok := dataset.AsNumber(budget["seconds"]); ok && secondsTotal > n {
		issues = append(issues, NewIssue("tool_budget_seconds_exceeded",
			"observed max_seconds_total=%.3f exceeds %s.seconds=%.3f", secondsTotal, path, n))
	}
	return issues
}

func checkBudgetObject(budget map[string]any, ok bool, path string) []Issue {
	if !ok {
		return []Issue{NewIssue("tool_budget_not_object", "%s must be an object with keys searches/reads/seconds", path)}
	}
	var issues []Issue
	var unknown []string
	for k := range budget {
		if !slices.Contains(toolBudgetKeys, k) {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		slices.Sort(unknown)
		issues = append(issues, NewIssue("tool_budget_unknown_key", "%s.%s is not allowed", path, unknown[0]))
	}
	if v, ok := budget["searches"]; ok && !intInRange(v, 0, maxSearchesPerTurn) {
		issues = append(issues, NewIssue("tool_budget_searches_out_of_range",
			"%s.searches must be integer in [0,1]; got %s", path, dataset.Repr(v)))
	}
	if v, ok := budget["reads"]; ok && !intInRange(v, 0, maxReadsPerTurn) {
		issues = append(issues, NewIssue("tool_budget_reads_out_of_range",
			"%s.reads must be integer in [0,3]; got %s", path, dataset.Repr(v)))
	}
	if v, ok := budget["seconds"]; ok && !numberInRange(v, 0, maxSecondsPerTurn) {
		issues = append(issues, NewIssue("tool_budget_seconds_out_of_range",
			"%s.seconds must be number in [0,30]; got %s", path, dataset.Repr(v)))
	}
	return issues
}
