package qc

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// Profile is the strictness level of a run.
type Profile int

const (
	// ProfileBaseline runs the row validator and turn structure only.
	ProfileBaseline Profile = 1
	// ProfileStandard adds the lane rules, content gates and slice checks.
	ProfileStandard Profile = 2
	// ProfileStrict adds the duplication gate.
	ProfileStrict Profile = 3

	// DefaultProfile applies when no profile is given.
	DefaultProfile = ProfileStrict
)

// String renders the profile the way it appears in summaries ("03").
func (p Profile) String() string {
	return fmt.Sprintf("%02d", int(p))
}

var profileAliases = map[string]Profile{
	"01": ProfileBaseline, "1": ProfileBaseline, "rule01": ProfileBaseline, "rule_01": ProfileBaseline,
	"baseline": ProfileBaseline, "compat": ProfileBaseline,
	"02": ProfileStandard, "2": ProfileStandard, "rule02": ProfileStandard, "rule_02": ProfileStandard,
	"strict": ProfileStandard, "standard": ProfileStandard,
	"03": ProfileStrict, "3": ProfileStrict, "rule03": ProfileStrict, "rule_03": ProfileStrict,
	"strict_plus": ProfileStrict, "strictplus": ProfileStrict, "max": ProfileStrict,
}

// ParseRuleProfile resolves a --rule value. Blank input yields DefaultProfile.
func ParseRuleProfile(raw string) (Profile, error) {
	key := strings.ToLower(strings.TrimSpace(raw))
	if key == "" {
		return DefaultProfile, nil
	}
	p, ok := profileAliases[key]
	if !ok {
		return 0, fmt.Errorf("invalid rule profile %q: use one of 01, 02, 03", raw)
	}
	return p, nil
}

func (p Profile) clamp() Profile {
	return min(max(p, ProfileBaseline), ProfileStrict)
}

var nonAlnumRE = regexp.MustCompile(`[^A-Za-z0-9]+`)

// ResolveRunID normalizes raw into RUN_<up to 8 alphanumerics>. A leading
// "RUN" is not repeated. Blank input gets a random id.
func ResolveRunID(raw string) string {
	cleaned := nonAlnumRE.ReplaceAllString(strings.TrimSpace(raw), "")
	if cleaned == "" {
		cleaned = randomRunTail()
	}
	if strings.HasPrefix(strings.ToUpper(cleaned), "RUN") {
		cleaned = cleaned[3:]
		if cleaned == "" {
			cleaned = randomRunTail()
		}
	}
	return "RUN_" + cleaned[:min(len(cleaned), 8)]
}

func randomRunTail() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
