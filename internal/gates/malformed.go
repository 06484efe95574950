package gates

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/dino-ds/laneqc/internal/dataset"
	"github.com/dino-ds/laneqc/internal/lane"
	"github.com/dino-ds/laneqc/internal/script"
	"github.com/dino-ds/laneqc/internal/validation"
)

const (
	fragmentationMinTokens   = 12
	fragmentationSingleShare = 0.55
	corruptionMinLetters     = 40
	corruptionMaxShare       = 0.20
)

var (
	fragmentWordRE     = regexp.MustCompile(`[\p{L}\p{N}_]+`)
	devanagariTokenRE  = regexp.MustCompile(`[\x{0900}-\x{097F}\x{A8E0}-\x{A8FF}]+`)
	structuredLatinRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:https?://|www\.)[^\s"'<>]+|\b(?:[A-Za-z0-9-]+\.)+[A-Za-z]{2,24}(?:/[^\s"'<>]*)?`),
		regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`),
		regexp.MustCompile(`"[A-Za-z_][A-Za-z0-9_]{0,30}"\s*:`),
		regexp.MustCompile(`(?i)\b(?:x|y|label|value)\s*:`),
	}
)

// CheckMalformed flags text that is broken at the character level: words
// shattered into single letters, or prose drifting into a script other than
// the row language's. Lanes whose response must be empty or code only are
// skipped, and lane 22 only checks user_message because its responses target
// a different script.
func CheckMalformed(row dataset.Row, laneID string) []validation.Issue {
	if !row.IsObject() {
		return nil
	}
	p := policyFor(laneID)
	if p.AssistantMustBeEmpty || p.AssistantMustBeCodeOnly {
		return nil
	}
	family := script.ExpectedFamily(row.Language())
	if family == script.FamilyUnknown {
		return nil
	}

	fields := []string{"user_message", "assistant_response"}
	if lane.Parse(laneID) == 22 {
		fields = fields[:1]
	}

	var issues []validation.Issue
	for _, field := range fields {
		text, ok := row.Str(field)
		if !ok || strings.TrimSpace(text) == "" {
			continue
		}
		if is, ok := checkFragmentation(text, family, field); ok {
			issues = append(issues, is)
		}
		if is, ok := checkScriptCorruption(text, family, field); ok {
			issues = append(issues, is)
		}
	}
	return issues
}

func checkFragmentation(text string, family script.Family, field string) (validation.Issue, bool) {
	if family != script.FamilyLatin && family != script.FamilyDevanagari {
		return validation.Issue{}, false
	}
	re := fragmentWordRE
	if family == script.FamilyDevanagari {
		re = devanagariTokenRE
	}

	tokens, single := 0, 0
	for _, tok := range re.FindAllString(text, -1) {
		units := 0
		for _, r := range tok {
			if unicode.IsLetter(r) && script.CharFamily(r) == family {
				units++
			}
		}
		if units == 0 {
			continue
		}
		tokens++
		if units == 1 {
			single++
		}
	}
	if tokens < fragmentationMinTokens {
		return validation.Issue{}, false
	}
	share := float64(single) / float64(tokens)
	if share < fragmentationSingleShare {
		return validation.Issue{}, false
	}
	return fatal(validation.GateMalformed, "character_fragmentation_fatal",
		"%s single_char_ratio=%.3f (single=%d, tokens=%d, min_tokens=%d)",
		field, share, single, tokens, fragmentationMinTokens), true
}

// structuredLatinOffsets marks the byte offsets of Latin letters inside URLs,
// ISO dates, JSON keys and chart keys. CJK and Thai prose legitimately embeds
// these.
func structuredLatinOffsets(text string) map[int]bool {
	out := map[int]bool{}
	for _, re := range structuredLatinRes {
		for _, span := range re.FindAllStringIndex(text, -1) {
			for off, r := range text[span[0]:span[1]] {
				if unicode.IsLetter(r) && script.CharFamily(r) == script.FamilyLatin {
					out[span[0]+off] = true
				}
			}
		}
	}
	return out
}

func checkScriptCorruption(text string, family script.Family, field string) (validation.Issue, bool) {
	var excluded map[int]bool
	if family == script.FamilyCJK || family == script.FamilyThai {
		excluded = structuredLatinOffsets(text)
	}

	letters, unexpected := 0, 0
	for off, r := range text {
		if !unicode.IsLetter(r) {
			continue
		}
		fam := script.CharFamily(r)
		if fam == script.FamilyLatin && excluded[off] {
			continue
		}
		letters++
		if fam != family {
			unexpected++
		}
	}
	if letters < corruptionMinLetters {
		return validation.Issue{}, false
	}
	share := float64(unexpected) / float64(letters)
	if share <= corruptionMaxShare {
		return validation.Issue{}, false
	}
	return fatal(validation.GateMalformed, "script_corruption_fatal",
		"%s unexpected_script_ratio=%.3f (unexpected=%d, letters=%d, expected=%s)",
		field, share, unexpected, letters, family), true
}
