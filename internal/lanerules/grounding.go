package lanerules

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/dino-ds/laneqc/internal/dataset"
	"github.com/dino-ds/laneqc/internal/script"
)

var (
	historyClaimRE = regexp.MustCompile(`(?i)\b(earlier|previous|from your (?:earlier|previous) note|you said|you mentioned|from before)\b`)
	historyAckRE   = regexp.MustCompile(`(?i)\b(not in (?:the )?(?:retrieved )?(?:history|snippet|note|context)|` +
		`don'?t have (?:that|it) in (?:the )?(?:retrieved )?(?:history|note|context)|` +
		`insufficient (?:history|context))\b`)
	sensitiveNumRE  = regexp.MustCompile(`\b\d{3,}\b|\b\d{1,2}:\d{2}\b`)
	snippetsBlockRE = regexp.MustCompile(`(?is)RETRIEVED_HISTORY_SNIPPETS:\s*(.+?)(?:\n[A-Z][A-Z_ ]{2,}:|\z)`)
	visualAssertRE  = regexp.MustCompile(`(?i)\b(i\s+see|there\s+(?:is|are)|it\s+has|contains?|looks\s+like)\b`)
	imageObjectRE   = regexp.MustCompile(`(?i)\b(?:a|an|the|this|that|these|those|two|three|four)\s+([a-z][a-z0-9_-]{2,})\b`)
	groundingCJKRE  = regexp.MustCompile(`[\x{3400}-\x{4DBF}\x{4E00}-\x{9FFF}\x{3040}-\x{30FF}\x{31F0}-\x{31FF}\x{AC00}-\x{D7AF}]`)
	groundingThaiRE = regexp.MustCompile(`[\x{0E00}-\x{0E7F}]`)
)

const historyMinOverlap = 0.10

var imageGenericTerms = map[string]bool{
	"image": true, "photo": true, "picture": true, "scene": true,
	"object": true, "objects": true, "item": true, "items": true,
	"thing": true, "things": true, "area": true, "view": true,
}

var imageSynonyms = map[string]string{
	"smartphone": "phone",
	"cellphone":  "phone",
	"mobile":     "phone",
	"kitty":      "cat",
	"kitten":     "cat",
	"puppy":      "dog",
	"pup":        "dog",
	"notebook":   "laptop",
}

// groundingTokens splits text into lower-cased word tokens, falling back to
// single CJK or Thai characters for text without word runs.
func groundingTokens(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if toks := script.WordTokens(text, nil); len(toks) > 0 {
		return toks
	}
	if cjk := groundingCJKRE.FindAllString(text, -1); len(cjk) > 0 {
		return cjk
	}
	return groundingThaiRE.FindAllString(text, -1)
}

// historySnippets collects the "- ..." lines of every RETRIEVED_HISTORY_SNIPPETS
// block found in system messages.
func historySnippets(row dataset.Row) []string {
	msgs, ok := row.Messages()
	if !ok {
		return nil
	}
	var out []string
	for _, m := range msgs {
		if m == nil {
			continue
		}
		role, _ := m["role"].(string)
		content, ok := m["content"].(string)
		if !ok || strings.ToLower(strings.TrimSpace(role)) != "system" {
			continue
		}
		match := snippetsBlockRE.FindStringSubmatch(content)
		if match == nil {
			continue
		}
		for _, ln := range strings.Split(match[1], "\n") {
			raw := strings.TrimSpace(ln)
			if !strings.HasPrefix(raw, "-") {
				continue
			}
			if txt := strings.TrimSpace(raw[1:]); txt != "" {
				out = append(out, txt)
			}
		}
	}
	return out
}

// historyGroundingError reports an assistant response that claims to recall
// earlier conversation without support in the retrieved snippets.
func historyGroundingError(row dataset.Row) string {
	asst, ok := row.Str("assistant_response")
	if !ok || strings.TrimSpace(asst) == "" {
		return ""
	}
	snippets := historySnippets(row)
	if len(snippets) == 0 {
		return ""
	}
	if !historyClaimRE.MatchString(asst) || historyAckRE.MatchString(asst) {
		return ""
	}

	snippetText := strings.Join(snippets, " ")
	overlap := script.OverlapMin(groundingTokens(asst), groundingTokens(snippetText))
	if overlap < historyMinOverlap {
		return fmt.Sprintf("assistant_response appears ungrounded to RETRIEVED_HISTORY_SNIPPETS (overlap=%.3f < 0.10)", overlap)
	}

	known := map[string]bool{}
	for _, n := range sensitiveNumRE.FindAllString(snippetText, -1) {
		known[n] = true
	}
	var missing []string
	for _, n := range sensitiveNumRE.FindAllString(asst, -1) {
		if !known[n] && !slices.Contains(missing, n) {
			missing = append(missing, n)
		}
	}
	if len(missing) == 0 {
		return ""
	}
	slices.Sort(missing)
	return "assistant_response includes numeric memory claims absent from snippets: " + strings.Join(missing, ", ")
}

func imageContextTerms(ctx map[string]any) map[string]bool {
	terms := map[string]bool{}
	add := func(v any) {
		s, ok := v.(string)
		if !ok {
			return
		}
		for _, tok := range script.WordTokens(s, nil) {
			if len([]rune(tok)) >= 2 {
				terms[tok] = true
			}
		}
	}

	add(ctx["summary"])
	if objs, ok := ctx["objects"].([]any); ok {
		for _, item := range objs {
			obj, ok := dataset.AsObject(item)
			if !ok {
				continue
			}
			for _, key := range []string{"label", "location_hint", "brand", "color"} {
				add(obj[key])
			}
		}
	}
	if hints, ok := ctx["text_hints"].([]any); ok {
		for _, item := range hints {
			if obj, ok := dataset.AsObject(item); ok {
				add(obj["text"])
			}
		}
	}
	return terms
}

func imageTermAllowed(term string, allowed map[string]bool) bool {
	if allowed[term] {
		return true
	}
	if alias, ok := imageSynonyms[term]; ok && allowed[alias] {
		return true
	}
	if strings.HasSuffix(term, "s") && allowed[strings.TrimSuffix(term, "s")] {
		return true
	}
	return allowed[term+"s"]
}

// imageGroundingError reports object terms the assistant asserts about an
// image that image_context does not describe. It only applies when the
// response makes a visual assertion.
func imageGroundingError(row dataset.Row) string {
	ctx, ok := row.Object("image_context")
	if !ok {
		return ""
	}
	asst, ok := row.Str("assistant_response")
	if !ok || strings.TrimSpace(asst) == "" || !visualAssertRE.MatchString(asst) {
		return ""
	}
	allowed := imageContextTerms(ctx)
	if len(allowed) == 0 {
		return ""
	}

	var invalid []string
	for _, m := range imageObjectRE.FindAllStringSubmatch(asst, -1) {
		term := strings.ToLower(strings.TrimSpace(m[1]))
		if term == "" || imageGenericTerms[term] || slices.Contains(invalid, term) {
			continue
		}
		if !imageTermAllowed(term, allowed) {
			invalid = append(invalid, term)
		}
	}
	if len(invalid) == 0 {
		return ""
	}
	slices.Sort(invalid)
	return "assistant_response mentions objects not supported by image_context: " + strings.Join(invalid, ", ")
}
