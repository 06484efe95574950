package validation

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/dino-ds/laneqc/internal/dataset"
)

var (
	statusEventAllowed  = []string{"phase", "note", "route", "tokensSoFar", "sourcesCount"}
	statusEventRequired = []string{"phase", "note", "route"}
	statusPhases        = []string{"compose", "finalize", "parse", "plan", "retrieve"}
	statusRoutes        = []string{"cloud", "slm"}

	reasoningLeakRE = regexp.MustCompile(`(?i)\b(chain[- ]of[- ]thought|reasoning|step\s*\d+|my thinking|i think step by step)\b`)
)

const maxStatusNoteLen = 200

// CheckStatusEvent validates the optional status_event object. It returns at
// most one issue: the first rule that fails.
func CheckStatusEvent(row dataset.Row) []Issue {
	if !row.IsObject() || !row.Has("status_event") {
		return nil
	}
	se, ok := row.Object("status_event")
	if !ok {
		return []Issue{{Code: "status_event_not_object", Detail: "status_event must be an object"}}
	}

	var unknown []string
	for k := range se {
		if !slices.Contains(statusEventAllowed, k) {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		slices.Sort(unknown)
		return []Issue{NewIssue("status_event_unknown_key", "status_event.%s is not allowed", unknown[0])}
	}

	for _, k := range statusEventRequired {
		if _, ok := se[k]; !ok {
			return []Issue{NewIssue("status_event_missing_required", "status_event.%s is required", k)}
		}
	}

	phase, ok := se["phase"].(string)
	if !ok || !slices.Contains(statusPhases, strings.ToLower(strings.TrimSpace(phase))) {
		return []Issue{NewIssue("status_event_phase_invalid", "status_event.phase must be one of %s", quoteList(statusPhases))}
	}
	route, ok := se["route"].(string)
	if !ok || !slices.Contains(statusRoutes, strings.ToLower(strings.TrimSpace(route))) {
		return []Issue{NewIssue("status_event_route_invalid", "status_event.route must be one of %s", quoteList(statusRoutes))}
	}

	note, ok := se["note"].(string)
	switch {
	case !ok || strings.TrimSpace(note) == "":
		return []Issue{{Code: "status_event_note_invalid", Detail: "status_event.note must be a non-empty string"}}
	case strings.ContainsAny(note, "\r\n"):
		return []Issue{{Code: "status_event_note_invalid", Detail: "status_event.note must be single-line status text"}}
	case utf8.RuneCountInString(strings.TrimSpace(note)) > maxStatusNoteLen:
		return []Issue{{Code: "status_event_note_invalid", Detail: fmt.Sprintf("status_event.note must be <= %d chars", maxStatusNoteLen)}}
	case reasoningLeakRE.MatchString(note):
		return []Issue{{Code: "status_event_reasoning_leakage", Detail: "status_event.note must be status-only (no reasoning text)"}}
	}

	for _, k := range []string{"tokensSoFar", "sourcesCount"} {
		v, ok := se[k]
		if !ok {
			continue
		}
		if n, isNum := dataset.AsNumber(v); !isNum || n < 0 {
			return []Issue{NewIssue("status_event_counter_invalid", "status_event.%s must be non-negative number", k)}
		}
	}
	return nil
}

func quoteList(values []string) string {
	parts := make([]any, len(values))
	for i, v := range values {
		parts[i] = v
	}
	return dataset.Repr(parts)
}
