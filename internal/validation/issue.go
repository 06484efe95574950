// Package validation checks single rows against their lane contract: required and
// allowed fields, enums, cross-field consistency, tool budgets and the shape of the
// messages list. It also defines the Issue type shared by every QC gate.
package validation

import "fmt"

// Severity is fatal (blocks the batch) or warn (reported only).
type Severity string

const (
	Fatal Severity = "fatal"
	Warn  Severity = "warn"
)

// Gate names the pipeline stage an issue is attributed to.
type Gate string

const (
	GateInvariants  Gate = "invariants"
	GateMalformed   Gate = "malformed"
	GateRepetition  Gate = "repetition"
	GateLeakage     Gate = "leakage"
	GateDuplication Gate = "duplication"
	GateProportions Gate = "proportions"
	GateViability   Gate = "viability"
	GateWarnOnly    Gate = "warn_only"
)

// Gates lists every gate in pipeline order.
var Gates = []Gate{
	GateInvariants,
	GateMalformed,
	GateRepetition,
	GateLeakage,
	GateDuplication,
	GateProportions,
	GateViability,
	GateWarnOnly,
}

// Valid reports whether g is one of the pipeline gates.
func (g Gate) Valid() bool {
	for _, known := range Gates {
		if g == known {
			return true
		}
	}
	return false
}

// Issue is one finding of a check. Checks that have no gate context leave Gate
// and Severity empty; the orchestrator assigns them.
type Issue struct {
	Code     string
	Detail   string
	Severity Severity
	Gate     Gate
}

// String renders the issue as "code: detail".
func (i Issue) String() string {
	if i.Detail == "" {
		return i.Code
	}
	return fmt.Sprintf("%s: %s", i.Code, i.Detail)
}

// NewIssue builds an ungated issue with a formatted detail.
func NewIssue(code, format string, args ...any) Issue {
	return Issue{Code: code, Detail: fmt.Sprintf(format, args...)}
}

// Codes returns the issue codes in order.
func Codes(issues []Issue) []string {
	out := make([]string, len(issues))
	for i, it := range issues {
		out[i] = it.Code
	}
	return out
}

// appendOnce adds an issue unless one with the same code is already present.
func appendOnce(issues []Issue, code, detail string) []Issue {
	for _, it := range issues {
		if it.Code == code {
			return issues
		}
	}
	return append(issues, Issue{Code: code, Detail: detail})
}
