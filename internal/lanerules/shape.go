package lanerules

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/dino-ds/laneqc/internal/dataset"
)

var (
	codeblockOnlyRE  = regexp.MustCompile("(?s)\\A```[^\\n]*\\n.*\\n```\\s*\\z")
	tableSeparatorRE = regexp.MustCompile(`^\|\s*:?-{3,}[-:|\s]*\|\s*$`)
	bulletLineRE     = regexp.MustCompile(`^\s*[-*•]\s+\S+`)
	jsonLikeRE       = regexp.MustCompile(`(?s)^\s*[\[{].*[\]}]\s*$`)
	docSpecHintRE    = regexp.MustCompile(`(?i)\b(title|sections?|heading|body|style)\b`)
	zipSpecHintRE    = regexp.MustCompile(`(?i)\b(manifest\.md|zip_items|filename|content)\b`)

	chartTypeRE   = regexp.MustCompile(`^\s{2}type:\s+`)
	chartTitleRE  = regexp.MustCompile(`^\s{2}title:\s+`)
	chartGoalRE   = regexp.MustCompile(`^\s{2}goal:\s+`)
	chartXAxisRE  = regexp.MustCompile(`^\s{2}x_axis:\s*$`)
	chartYAxisRE  = regexp.MustCompile(`^\s{2}y_axis:\s*$`)
	chartLegendRE = regexp.MustCompile(`^\s{2}legend:\s*$`)
	chartSeriesRE = regexp.MustCompile(`^\s{2}series:\s*$`)
	chartStyleRE  = regexp.MustCompile(`^\s{2}style:\s*$`)
	chartNotesRE  = regexp.MustCompile(`^\s{2}notes:\s+`)
)

const fence = "```"

var (
	codeSpecKeys = []string{"task_type", "language", "files", "constraints", "tests"}
	codeFileKeys = []string{"name", "purpose", "exports"}
)

// shapeCheck validates an assistant response and returns a failure message, or "".
type shapeCheck func(v any) string

func codeblockOnly(v any) string {
	text, ok := v.(string)
	if !ok {
		return "assistant_response must be a string"
	}
	if strings.Count(text, fence) != 2 {
		return "assistant_response must contain exactly one fenced code block"
	}
	if !codeblockOnlyRE.MatchString(strings.TrimSpace(text)) {
		return "assistant_response must be exactly one fenced code block with no prose"
	}
	return ""
}

func markdownTableOnly(v any) string {
	text, ok := v.(string)
	if !ok {
		return "assistant_response must be a string"
	}
	s := strings.TrimSpace(text)
	if s == "" {
		return "assistant_response must be a markdown table"
	}
	if strings.Contains(s, fence) {
		return "assistant_response must be markdown table only (no code fences)"
	}
	lines := nonEmptyLines(s, strings.TrimRight)
	if len(lines) < 2 {
		return "markdown table must include at least header and separator lines"
	}
	for _, ln := range lines {
		if !strings.HasPrefix(strings.TrimLeft(ln, " \t"), "|") || !strings.HasSuffix(ln, "|") {
			return "all non-empty lines must be table rows (start/end with '|')"
		}
	}
	if !tableSeparatorRE.MatchString(strings.TrimSpace(lines[1])) {
		return "second line must be a markdown table separator row"
	}
	return ""
}

func nonEmptyLines(s string, trim func(string, string) string) []string {
	var out []string
	for _, ln := range strings.Split(s, "\n") {
		if strings.TrimSpace(ln) == "" {
			continue
		}
		out = append(out, trim(ln, " \t\r"))
	}
	return out
}

func chartSpecOnly(v any) string {
	text, ok := v.(string)
	if !ok {
		return "assistant_response must be a string"
	}
	s := strings.TrimSpace(text)
	switch {
	case s == "":
		return "assistant_response must contain chart_spec only"
	case strings.Contains(s, fence):
		return "assistant_response must be chart_spec only (no code fences)"
	case !strings.HasPrefix(s, "chart_spec:"):
		return "chart_spec must start with 'chart_spec:'"
	}

	lines := strings.Split(s, "\n")
	pos := func(re *regexp.Regexp) int {
		for i, ln := range lines {
			if re.MatchString(strings.TrimRight(ln, "\r")) {
				return i
			}
		}
		return -1
	}
	pType, pTitle, pGoal := pos(chartTypeRE), pos(chartTitleRE), pos(chartGoalRE)
	pX, pY, pLegend := pos(chartXAxisRE), pos(chartYAxisRE), pos(chartLegendRE)
	pSeries, pStyle, pNotes := pos(chartSeriesRE), pos(chartStyleRE), pos(chartNotesRE)

	for _, p := range []int{pType, pTitle, pGoal, pSeries, pStyle, pNotes} {
		if p < 0 {
			return "chart_spec missing required keys: type/title/goal/series/style/notes"
		}
	}
	if pX < 0 && pLegend < 0 {
		return "chart_spec must include x_axis/y_axis or legend"
	}
	if pX >= 0 && pY < 0 {
		return "chart_spec with x_axis must also include y_axis"
	}
	pAxis := pLegend
	if pX >= 0 {
		pAxis = pX
	}
	if !(pType < pTitle && pTitle < pGoal && pGoal < pAxis && pAxis < pSeries && pSeries < pStyle && pStyle < pNotes) {
		return "chart_spec keys are not in deterministic order"
	}
	return ""
}

func bulletListOnly(v any) string {
	text, ok := v.(string)
	if !ok {
		return "assistant_response must be a string"
	}
	lines := nonEmptyLines(text, strings.Trim)
	if len(lines) < 2 {
		return "bullet_list requires at least 2 bullet lines"
	}
	for _, ln := range lines {
		if !bulletLineRE.MatchString(ln) {
			return "bullet_list requires every non-empty line to start with '-', '*', or '•'"
		}
	}
	return ""
}

func plainTextOnly(v any) string {
	if dataset.IsBlankText(v) {
		return "assistant_response must be non-empty plain text"
	}
	s := strings.TrimSpace(v.(string))
	switch {
	case strings.Contains(s, fence):
		return "plain_text must not be fenced code"
	case strings.HasPrefix(s, "chart_spec:"):
		return "plain_text must not be chart_spec"
	case tableSeparatorRE.MatchString(s):
		return "plain_text must not be markdown table"
	}
	if jsonLikeRE.MatchString(s) {
		var parsed any
		if json.Unmarshal([]byte(s), &parsed) == nil {
			switch parsed.(type) {
			case map[string]any, []any:
				return "plain_text must not be raw JSON"
			}
		}
	}
	return ""
}

func documentSpecLike(v any) string {
	if dataset.IsBlankText(v) {
		return "document_spec requires non-empty text"
	}
	s := strings.TrimSpace(v.(string))
	if strings.Contains(s, fence) {
		return "document_spec must not be fenced code"
	}
	if len(docSpecHintRE.FindAllString(s, -1)) < 2 {
		return "document_spec should include document-structure hints (title/sections/heading/body/style)"
	}
	return ""
}

func zipSpecLike(v any) string {
	if dataset.IsBlankText(v) {
		return "zip_spec requires non-empty text"
	}
	s := strings.TrimSpace(v.(string))
	if strings.Contains(s, fence) {
		return "zip_spec must not be fenced code"
	}
	if len(zipSpecHintRE.FindAllString(s, -1)) < 2 {
		return "zip_spec should include zip-structure hints (manifest.md/filename/content)"
	}
	return ""
}

// orderedObject is a JSON object decoded with its key order preserved.
type orderedObject struct {
	keys   []string
	values map[string]json.RawMessage
}

func (o orderedObject) str(key string) (string, bool) {
	var s string
	if err := json.Unmarshal(o.values[key], &s); err != nil {
		return "", false
	}
	return s, true
}

func (o orderedObject) list(key string) ([]json.RawMessage, bool) {
	raw, ok := o.values[key]
	if !ok || !isArray(raw) {
		return nil, false
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, false
	}
	return items, true
}

func isArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}

// decodeOrdered decodes a JSON object, keeping its keys in document order. A
// repeated key keeps its first position and its last value.
func decodeOrdered(data []byte) (orderedObject, bool) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil || tok != json.Delim('{') {
		return orderedObject{}, false
	}
	obj := orderedObject{values: map[string]json.RawMessage{}}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return orderedObject{}, false
		}
		key, ok := tok.(string)
		if !ok {
			return orderedObject{}, false
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return orderedObject{}, false
		}
		if _, seen := obj.values[key]; !seen {
			obj.keys = append(obj.keys, key)
		}
		obj.values[key] = raw
	}
	return obj, true
}

func sameKeys(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

// tupleRepr renders keys as a parenthesized, quoted tuple, e.g. ('a', 'b').
func tupleRepr(keys []string) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = "'" + k + "'"
	}
	if len(parts) == 1 {
		return "(" + parts[0] + ",)"
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func jsonCodeSpec(v any) string {
	if dataset.IsBlankText(v) {
		return "assistant_response must be non-empty strict JSON"
	}
	s := strings.TrimSpace(v.(string))
	if strings.Contains(s, fence) {
		return "assistant_response must be JSON only (no code fences)"
	}
	var probe any
	if err := json.Unmarshal([]byte(s), &probe); err != nil {
		return fmt.Sprintf("assistant_response is not valid JSON: %v", err)
	}
	obj, ok := decodeOrdered([]byte(s))
	if !ok {
		return "assistant_response JSON root must be an object"
	}
	if !sameKeys(obj.keys, codeSpecKeys) {
		return fmt.Sprintf("JSON keys/order must be exactly %s, got %s", tupleRepr(codeSpecKeys), tupleRepr(obj.keys))
	}

	files, ok := obj.list("files")
	if !ok || len(files) == 0 {
		return "JSON field 'files' must be a non-empty array"
	}
	for i, raw := range files {
		idx := i + 1
		item, ok := decodeOrdered(raw)
		if !ok {
			return fmt.Sprintf("files[%d] must be an object", idx)
		}
		if !sameKeys(item.keys, codeFileKeys) {
			return fmt.Sprintf("files[%d] keys/order must be exactly %s, got %s", idx, tupleRepr(codeFileKeys), tupleRepr(item.keys))
		}
		name, nok := item.str("name")
		purpose, pok := item.str("purpose")
		if !nok || !pok || strings.TrimSpace(name) == "" || strings.TrimSpace(purpose) == "" {
			return fmt.Sprintf("files[%d] name/purpose must be non-empty strings", idx)
		}
		var exports []any
		if !isArray(item.values["exports"]) || json.Unmarshal(item.values["exports"], &exports) != nil || len(exports) == 0 {
			return fmt.Sprintf("files[%d].exports must be a non-empty string array", idx)
		}
		for _, e := range exports {
			if dataset.IsBlankText(e) {
				return fmt.Sprintf("files[%d].exports must be a non-empty string array", idx)
			}
		}
	}

	if !isArray(obj.values["constraints"]) || !isArray(obj.values["tests"]) {
		return "JSON fields 'constraints' and 'tests' must be arrays"
	}
	return ""
}

// representationChecks maps representation_choice to its shape validator.
var representationChecks = map[string]shapeCheck{
	"comparison_table": markdownTableOnly,
	"chart_spec":       chartSpecOnly,
	"bullet_list":      bulletListOnly,
	"plain_text":       plainTextOnly,
	"document_spec":    documentSpecLike,
	"zip_spec":         zipSpecLike,
}
