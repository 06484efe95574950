package validation

import (
	"fmt"
	"strings"

	"github.com/dino-ds/laneqc/internal/dataset"
)

// resolved is a value looked up from the row root or the nested lane object.
type resolved struct {
	value any
	path  string
	found bool
}

func resolve(row dataset.Row, field string) resolved {
	v, path, ok := row.LookupFirst(field, "lane."+field)
	return resolved{value: v, path: path, found: ok}
}

func (r resolved) isTrue() bool {
	b, ok := r.value.(bool)
	return ok && b
}

func (r resolved) isFalse() bool {
	b, ok := r.value.(bool)
	return ok && !b
}

func (r resolved) repr() string {
	if !r.found {
		return "<missing>"
	}
	return dataset.Repr(r.value)
}

// CheckMasterCrossfield enforces the adult_gate, profanity_allowed and tone
// consistency rules. Each field may sit at the row root or inside row.lane.
func CheckMasterCrossfield(row dataset.Row) []Issue {
	if !row.IsObject() {
		return nil
	}
	adult := resolve(row, "adult_gate")
	profanity := resolve(row, "profanity_allowed")
	tone := resolve(row, "tone")

	var issues []Issue
	if profanity.isTrue() {
		t, _ := tone.value.(string)
		bestFriend := strings.ToLower(strings.TrimSpace(t)) == "best_friend"
		if !adult.isTrue() || !bestFriend {
			issues = append(issues, Issue{
				Code: "profanity_requires_adult_gate_and_best_friend",
				Detail: fmt.Sprintf(
					"profanity_allowed=%s (%s) requires adult_gate=True and tone='best_friend'; got adult_gate=%s (%s), tone=%s (%s)",
					profanity.repr(), profanity.path, adult.repr(), adult.path, tone.repr(), tone.path,
				),
			})
		}
	}
	if adult.isFalse() && profanity.isTrue() {
		issues = append(issues, Issue{
			Code: "adult_gate_profanity_inconsistent",
			Detail: fmt.Sprintf("adult_gate=%s (%s), profanity_allowed=%s (%s)",
				adult.repr(), adult.path, profanity.repr(), profanity.path),
		})
	}
	return issues
}
