package qc

import (
	"fmt"
	"strings"

	"github.com/dino-ds/laneqc/internal/validation"
)

// summary renders the run summary. A passing run lists its checks and
// warnings; a failing run leads with its fatal reasons.
func (r *run) summary(rowsTotal int, paths []string) string {
	a := r.acc
	var lines []string
	add := func(format string, args ...any) { lines = append(lines, fmt.Sprintf(format, args...)) }

	if a.reasons.total() == 0 {
		add("rule_profile=%s PASS: validated_rows=%d (no hard violations detected)", r.profile, rowsTotal)
		if len(a.passChecks) > 0 {
			add("checks:")
			for _, note := range a.passChecks {
				add("- %s", note)
			}
		}
		if a.warnings.len() > 0 {
			lines = append(lines, r.warningSection("warnings:")...)
		}
		lines = append(lines, reportSection(paths)...)
		return strings.Join(lines, "\n")
	}

	add("rule_profile=%s FAIL: violations=%d, unique=%d", r.profile, a.reasons.total(), a.reasons.len())
	add("top_reasons:")
	for _, code := range a.reasons.mostCommon() {
		add("- %s: %d (gates=%s)", code, a.reasons.counts[code], gateNote(a.reasonGates[code]))
	}
	add("fatal_gate_breakdown:")
	lines = append(lines, gateBreakdown(r.gateTotals(true))...)
	if len(a.examples) > 0 {
		add("examples:")
		lines = append(lines, a.examples...)
	}
	add("detailed_failures:")
	for _, code := range a.reasons.mostCommon() {
		add("- %s: count=%d", code, a.reasons.counts[code])
		for _, d := range a.reasonDetails[code] {
			add("  - %s", d)
		}
	}
	if len(a.passChecks) > 0 {
		add("checks:")
		for _, note := range a.passChecks {
			add("- %s", note)
		}
	}
	if a.warnings.len() > 0 {
		lines = append(lines, r.warningSection("warnings_non_blocking:")...)
	}
	lines = append(lines, reportSection(paths)...)
	return strings.Join(lines, "\n")
}

// warningSection lists warnings per gate, then per code with up to three
// details each, then the first warning examples.
func (r *run) warningSection(heading string) []string {
	a := r.acc
	lines := []string{"warn_gate_breakdown:"}
	lines = append(lines, gateBreakdown(r.gateTotals(false))...)
	lines = append(lines, heading)
	for _, code := range a.warnings.mostCommon() {
		lines = append(lines, fmt.Sprintf("- %s: %d (gates=%s)", code, a.warnings.counts[code], gateNote(a.warningGates[code])))
		details := a.warningDetails[code]
		for _, d := range details[:min(len(details), 3)] {
			lines = append(lines, "  - "+d)
		}
	}
	if len(a.warningExamples) > 0 {
		lines = append(lines, "warning_examples:")
		lines = append(lines, a.warningExamples...)
	}
	return lines
}

// gateTotals sums the per-language gate tallies.
func (r *run) gateTotals(fatal bool) map[validation.Gate]*tally {
	out := map[validation.Gate]*tally{}
	for _, g := range validation.Gates {
		out[g] = newTally()
	}
	for _, lang := range r.acc.languages() {
		s := r.acc.slices[lang]
		src := s.gateWarns
		if fatal {
			src = s.gateFatals
		}
		for _, g := range validation.Gates {
			for _, code := range src[g].order {
				out[g].add(code, src[g].counts[code])
			}
		}
	}
	return out
}

func gateBreakdown(totals map[validation.Gate]*tally) []string {
	var lines []string
	for _, g := range validation.Gates {
		t := totals[g]
		if t.len() == 0 {
			continue
		}
		lines = append(lines, fmt.Sprintf("- %s: %s", g, joinTally(t, ":")))
	}
	return lines
}

func gateNote(t *tally) string {
	if t == nil || t.len() == 0 {
		return "unknown"
	}
	return joinTally(t, ":")
}

func joinTally(t *tally, sep string) string {
	parts := make([]string, 0, t.len())
	for _, k := range t.mostCommon() {
		parts = append(parts, fmt.Sprintf("%s%s%d", k, sep, t.counts[k]))
	}
	return strings.Join(parts, ", ")
}

func reportSection(paths []string) []string {
	if len(paths) == 0 {
		return nil
	}
	lines := []string{"qc_reports:"}
	for _, p := range paths {
		lines = append(lines, "- "+p)
	}
	return lines
}
