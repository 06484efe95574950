package gates

import (
	"regexp"
	"strings"

	"github.com/dino-ds/laneqc/internal/dataset"
	"github.com/dino-ds/laneqc/internal/validation"
)

var (
	harmfulInstructionRE = regexp.MustCompile(`(?is)` +
		`(?:\bhow\s+to\b|\bsteps?\s+to\b|\binstructions?\s+for\b|\bguide\s+to\b|\bmake\b|\bbuild\b|\bassemble\b)` +
		`.{0,80}` +
		`(?:bomb|explosive|molotov|pipe\s*bomb|poison|weapon|suicide|kill\s+myself|harm\s+myself)`)
	refusalRE = regexp.MustCompile(`(?i)\b(` +
		`i\s+can(?:not|'t)\s+(?:help|assist|provide|support)` +
		`|i\s+won(?:'|’)t\s+(?:help|assist|provide|support)` +
		`|cannot\s+help\s+with` +
		`|can't\s+help\s+with` +
		`|i\s+cannot\s+provide` +
		`|i\s+can't\s+provide` +
		`)\b`)
	actionableDetailRE = regexp.MustCompile(`(?im)(^\s*\d+[.)]\s+)|(^\s*[-*•]\s+)|\b(first|second|third|then|next|finally)\b`)
)

// CheckSafety flags assistant responses that carry harmful instructions. A
// refusal that declines without giving any step-by-step detail passes.
func CheckSafety(row dataset.Row, laneID string) []validation.Issue {
	if !row.IsObject() {
		return nil
	}
	text, ok := row.Str("assistant_response")
	if !ok || strings.TrimSpace(text) == "" {
		return nil
	}
	if !harmfulInstructionRE.MatchString(text) {
		return nil
	}
	if refusalRE.MatchString(text) && !actionableDetailRE.MatchString(text) {
		return nil
	}
	return []validation.Issue{fatal(validation.GateInvariants, "safety_disallowed_content",
		"assistant_response contains disallowed harmful-instruction content (lane=%s)", laneID)}
}
