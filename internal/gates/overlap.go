package gates

import (
	"fmt"
	"strings"

	"github.com/dino-ds/laneqc/internal/contract"
	"github.com/dino-ds/laneqc/internal/dataset"
	"github.com/dino-ds/laneqc/internal/script"
	"github.com/dino-ds/laneqc/internal/validation"
)

const (
	overlapMetric    = "O_min"
	overlapTokenizer = "script_aware_v17"

	// Carve-out languages below this many tokens on either side are not
	// compared; short spans overlap heavily at the character level.
	overlapMinTokens = 3
)

// CheckUserAssistantOverlap bounds how much of user_message the assistant
// response repeats, for lanes whose contract declares an overlap maximum.
func CheckUserAssistantOverlap(row dataset.Row, laneID string, seg script.Segmenter) (validation.Issue, bool) {
	rule := contract.ForID(laneID).Overlap
	if rule == nil || !row.IsObject() {
		return validation.Issue{}, false
	}
	if rule.Metric != overlapMetric || rule.Tokenizer != overlapTokenizer {
		return validation.Issue{}, false
	}
	if rule.Max < 0 || rule.Max > 1 {
		return validation.Issue{}, false
	}

	user, uok := row.Str("user_message")
	asst, aok := row.Str("assistant_response")
	if !uok || !aok || strings.TrimSpace(user) == "" || strings.TrimSpace(asst) == "" {
		return validation.Issue{}, false
	}

	lang := row.Language()
	ut := script.TokenizeForOverlap(user, lang, seg)
	at := script.TokenizeForOverlap(asst, lang, seg)
	if script.IsCarveOut(lang) && min(len(ut), len(at)) < overlapMinTokens {
		return validation.Issue{}, false
	}

	overlap := script.OverlapMin(ut, at)
	if overlap <= rule.Max {
		return validation.Issue{}, false
	}
	return validation.Issue{
		Code: "user_assistant_overlap_too_high",
		Detail: fmt.Sprintf("user_assistant_overlap O_min=%.3f exceeds max=%.3f (lane=%s, tokenizer=%s)",
			overlap, rule.Max, laneID, overlapTokenizer),
	}, true
}
