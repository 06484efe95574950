package qc

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/dino-ds/laneqc/internal/dataset"
	"github.com/dino-ds/laneqc/internal/proportions"
	"github.com/dino-ds/laneqc/internal/report"
	"github.com/dino-ds/laneqc/internal/script"
	"github.com/dino-ds/laneqc/internal/validation"
)

var sliceSizeRE = regexp.MustCompile(`\bn=(\d+)\b`)

// writeReports writes one report per language. A failed write becomes a
// qc_report_write_failed warning.
func (r *run) writeReports(kept []dataset.Row, viabilityConfigured bool) []string {
	w := report.NewWriter(r.opts.ReportDir)
	date := r.opts.Now().Format("2006-01-02")
	thresholds := proportions.Thresholds(r.laneID, r.lane)
	validated := validatedByLanguage(kept)

	var paths []string
	for _, lang := range r.acc.languages() {
		res := r.reportResult(lang, date, thresholds, validated[lang], viabilityConfigured)
		path, err := w.Write(res)
		if err != nil {
			r.log.Warn("report write failed", "language", lang, "error", err)
			r.acc.warn(entry{
				code:   "qc_report_write_failed",
				detail: fmt.Sprintf("language=%s: %v", lang, err),
				lang:   lang,
				gate:   validation.GateInvariants,
			})
			continue
		}
		paths = append(paths, path)
	}
	return paths
}

func (r *run) reportResult(lang script.Language, date string, thresholds map[string]any, validated int, viabilityConfigured bool) report.Result {
	s := r.acc.slices[lang]
	examples := make(map[string][]report.Example, len(s.examples))
	for code, list := range s.examples {
		examples[code] = append([]report.Example(nil), list...)
	}
	return report.Result{
		Meta: report.Meta{
			LaneID:          r.laneID,
			Language:        string(lang),
			RunID:           r.opts.RunID,
			Date:            date,
			RuleProfile:     int(r.profile),
			SpecVersion:     SpecVersion,
			EquatorVersion:  EquatorVersion,
			GeneratorCommit: r.opts.Commit,
		},
		Counts: report.Counts{
			RowsInput:        s.rowsInput,
			RowsGenerated:    s.rowsInput,
			RowsValidated:    validated,
			FatalViolations:  s.fatals.total(),
			WarnNonBlocking:  s.warns.total(),
			UniqueFatalCodes: s.fatals.len(),
			UniqueWarnCodes:  s.warns.len(),
		},
		Gates:       gateEntries(s, viabilityConfigured),
		Fatals:      s.fatals.plain(),
		Warns:       s.warns.plain(),
		TopExamples: examples,
		Thresholds:  thresholds,
	}
}

// gateEntries builds the gate table of a slice in pipeline order. The
// warn_only row aggregates every warning of the slice.
func gateEntries(s *sliceStats, viabilityConfigured bool) []report.GateEntry {
	out := make([]report.GateEntry, 0, len(validation.Gates))
	for _, g := range validation.Gates {
		fatals, warns := s.gateFatals[g], s.gateWarns[g]
		if g == validation.GateWarnOnly {
			fatals, warns = newTally(), s.warns
		}

		e := report.GateEntry{Name: g, Status: report.StatusPass}
		switch {
		case fatals.len() > 0:
			e.Status = report.StatusFail
			e.FatalCodes = fatals.plain()
		case warns.len() > 0:
			e.Status = report.StatusWarn
		}
		if warns.len() > 0 {
			e.WarnCodes = warns.plain()
		}

		notes := s.gateNotes[g]
		details := map[string]any{}
		switch g {
		case validation.GateProportions:
			for _, note := range notes {
				if m := sliceSizeRE.FindStringSubmatch(note); m != nil {
					n, _ := strconv.Atoi(m[1])
					details["n"] = n
					break
				}
			}
		case validation.GateViability:
			if len(notes) == 0 && fatals.len() == 0 && warns.len() == 0 {
				details["notes"] = "not_applicable"
				if viabilityConfigured {
					details["notes"] = "evaluated_no_issues"
				}
			}
		case validation.GateWarnOnly:
			details["notes"] = "aggregated_non_blocking_warnings"
		}
		if len(notes) > 0 {
			details["notes"] = strings.Join(notes[:min(len(notes), 3)], " | ")
		}
		if len(details) > 0 {
			e.Details = details
		}
		out = append(out, e)
	}
	return out
}
