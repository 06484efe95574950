// Package gates holds the content gates that run after a row passes its
// structural checks: malformed text, repetition, content safety, mechanism
// leakage and user/assistant overlap per row, plus the batch-level
// duplication gate.
//
// Every issue a gate returns carries its severity and the pipeline gate it is
// attributed to, so callers can tally it without further classification.
package gates

import (
	"fmt"

	"github.com/dino-ds/laneqc/internal/contract"
	"github.com/dino-ds/laneqc/internal/lane"
	"github.com/dino-ds/laneqc/internal/validation"
)

func fatal(gate validation.Gate, code, format string, args ...any) validation.Issue {
	return validation.Issue{Code: code, Detail: fmt.Sprintf(format, args...), Severity: validation.Fatal, Gate: gate}
}

func warn(gate validation.Gate, code, format string, args ...any) validation.Issue {
	return validation.Issue{Code: code, Detail: fmt.Sprintf(format, args...), Severity: validation.Warn, Gate: gate}
}

// policyFor returns the lane policy for laneID, or the zero Policy.
func policyFor(laneID string) contract.Policy {
	p, _ := contract.PolicyFor(lane.Parse(laneID))
	return p
}
