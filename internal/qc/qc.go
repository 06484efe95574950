// Package qc runs the gate pipeline over one batch of generated rows for a
// lane. Rows pass the structural, lane and content gates one at a time; the
// survivors go through the duplication gate and then the per-language slice
// checks. Every issue is tallied per language, a QC report is written per
// language, and the run ends with a verdict and a text summary.
package qc

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dino-ds/laneqc/internal/dataset"
	"github.com/dino-ds/laneqc/internal/gates"
	"github.com/dino-ds/laneqc/internal/lanerules"
	"github.com/dino-ds/laneqc/internal/proportions"
	"github.com/dino-ds/laneqc/internal/script"
	"github.com/dino-ds/laneqc/internal/validation"
)

// Versions recorded in every report.
const (
	SpecVersion    = "Full_Dataset_Spec_FULL_LATEST_v17"
	EquatorVersion = "DTAD_CTv3_QC_EQUATOR_FEB_18_2026_v4_1"
)

// Stage names reported to a StageObserver, in run order.
const (
	StageRows        = "row gates"
	StageDuplication = "duplication"
	StageSlices      = "slice proportions"
	StageViability   = "viability"
	StageReports     = "reports"
)

// StageEvent describes a pipeline stage. Fatals and Warns are the totals
// raised by the stage and are only set when it finishes.
type StageEvent struct {
	Name   string
	Number int
	Total  int
	Fatals int
	Warns  int
}

// StageObserver is notified as stages start and finish.
type StageObserver interface {
	StageStarted(StageEvent)
	StageFinished(StageEvent)
}

// Options configures a run. Zero values select defaults.
type Options struct {
	// Logger defaults to slog.Default().
	Logger *slog.Logger
	// Commit is the generator commit shown in reports; "unknown" when empty.
	Commit string
	// ReportDir defaults to report.DefaultDir.
	ReportDir string
	// RunID is normalized by ResolveRunID.
	RunID     string
	Segmenter script.Segmenter
	Progress  StageObserver
	// Now defaults to time.Now; it dates the reports.
	Now func() time.Time
}

// SliceStat summarizes one language of a run.
type SliceStat struct {
	Language      script.Language
	RowsInput     int
	RowsValidated int
	Fatals        int
	Warns         int
}

// Outcome is the result of Validate.
type Outcome struct {
	// OK is true when the run raised no fatal issue.
	OK          bool
	Summary     string
	RunID       string
	Profile     Profile
	ReportPaths []string
	Slices      []SliceStat
	Fatals      int
	Warnings    int
}

// run holds the state of one Validate call.
type run struct {
	ctx      context.Context
	laneID   string
	lane     dataset.Lane
	profile  Profile
	opts     Options
	log      *slog.Logger
	acc      *accumulator
	stageNum int
	stages   int
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if strings.TrimSpace(o.Commit) == "" {
		o.Commit = "unknown"
	}
	if o.Segmenter == nil {
		o.Segmenter = script.NoSegmenter{}
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	o.RunID = ResolveRunID(o.RunID)
	return o
}

// Validate runs the gates of profile over rows and writes one report per
// language. Content problems never produce an error: they are issues in the
// outcome. The error is reserved for ctx cancellation, which is checked
// between stages and always before reports are written. Profiles outside
// 1..3 are clamped.
func Validate(ctx context.Context, rows []dataset.Row, laneID string, l dataset.Lane, profile Profile, opts Options) (Outcome, error) {
	r := &run{
		ctx:     ctx,
		laneID:  laneID,
		lane:    l,
		profile: profile.clamp(),
		opts:    opts.withDefaults(),
		acc:     newAccumulator(),
	}
	r.log = r.opts.Logger.With("lane", laneID, "run_id", r.opts.RunID)
	r.stages = 2
	if r.profile >= ProfileStandard {
		r.stages += 2
	}
	if r.profile >= ProfileStrict {
		r.stages++
	}

	r.countInputs(rows)

	var survivors []gates.RowRef
	if err := r.stage(StageRows, func() { survivors = r.rowGates(rows) }); err != nil {
		return Outcome{}, err
	}

	if r.profile >= ProfileStrict && len(survivors) > 0 {
		if err := r.stage(StageDuplication, func() { survivors = r.duplication(survivors) }); err != nil {
			return Outcome{}, err
		}
	} else if r.profile >= ProfileStrict {
		r.skip(StageDuplication)
	}

	kept := make([]dataset.Row, len(survivors))
	for i, ref := range survivors {
		kept[i] = ref.Row
	}

	viabilityConfigured := false
	if r.profile >= ProfileStandard {
		if err := r.stage(StageSlices, func() {
			for _, res := range proportions.Evaluate(kept, laneID, l, r.opts.Segmenter) {
				r.acc.stage(res)
			}
		}); err != nil {
			return Outcome{}, err
		}
		if err := r.stage(StageViability, func() {
			var res proportions.StageResult
			viabilityConfigured, res = proportions.EvaluateViability(kept, l)
			r.acc.stage(res)
		}); err != nil {
			return Outcome{}, err
		}
	}

	var paths []string
	if err := r.stage(StageReports, func() { paths = r.writeReports(kept, viabilityConfigured) }); err != nil {
		return Outcome{}, err
	}

	out := Outcome{
		OK:          r.acc.reasons.total() == 0,
		RunID:       r.opts.RunID,
		Profile:     r.profile,
		ReportPaths: paths,
		Slices:      r.sliceStats(kept),
		Fatals:      r.acc.reasons.total(),
		Warnings:    r.acc.warnings.total(),
	}
	out.Summary = r.summary(len(rows), paths)
	r.log.Info("qc verdict", "ok", out.OK, "profile", r.profile.String(),
		"fatals", out.Fatals, "warnings", out.Warnings, "reports", len(paths))
	return out, nil
}

// stage runs fn as the next numbered stage after checking ctx.
func (r *run) stage(name string, fn func()) error {
	if err := r.ctx.Err(); err != nil {
		return err
	}
	r.stageNum++
	ev := StageEvent{Name: name, Number: r.stageNum, Total: r.stages}
	fatals, warns := r.acc.reasons.total(), r.acc.warnings.total()

	r.log.Debug("stage started", "stage", name)
	if r.opts.Progress != nil {
		r.opts.Progress.StageStarted(ev)
	}
	fn()
	ev.Fatals = r.acc.reasons.total() - fatals
	ev.Warns = r.acc.warnings.total() - warns
	r.log.Debug("stage finished", "stage", name, "fatals", ev.Fatals, "warnings", ev.Warns)
	if r.opts.Progress != nil {
		r.opts.Progress.StageFinished(ev)
	}
	return nil
}

// skip counts a stage that has nothing to do.
func (r *run) skip(name string) {
	r.stageNum++
	r.log.Debug("stage skipped", "stage", name)
}

func (r *run) countInputs(rows []dataset.Row) {
	for i, row := range rows {
		id, lang := r.identify(row, i+1)
		r.acc.rowLang[id] = lang
		r.acc.slice(lang).rowsInput++
	}
}

// identify returns the id and language of the row at 1-based pos.
func (r *run) identify(row dataset.Row, pos int) (string, script.Language) {
	if !row.IsObject() {
		return fmt.Sprintf("row#%d", pos), proportions.Unknown
	}
	return row.ID(pos), row.Language().Or(proportions.Unknown)
}

// rowGates runs the per-row checks in order. A row stops at its first
// failing stage and only rows that pass every stage survive.
func (r *run) rowGates(rows []dataset.Row) []gates.RowRef {
	expected := r.lane.ExpectedLanguage()
	rules := lanerules.New(r.opts.Segmenter)
	var survivors []gates.RowRef

	for i, row := range rows {
		id, lang := r.identify(row, i+1)
		if !row.IsObject() {
			r.acc.hit(entry{code: "row_not_dict", detail: id + " is not an object",
				lang: proportions.Unknown, gate: validation.GateInvariants, rowID: id})
			continue
		}

		res := validation.ValidateRow(row, r.laneID, expected)
		if !res.OK {
			code := strings.TrimSpace(res.Reason)
			if code == "" {
				code = "contract_validation"
			}
			r.acc.hit(entry{code: code, detail: id + ": " + res.Detail, lang: lang, gate: validation.GateInvariants, rowID: id})
			continue
		}
		for _, tok := range res.Warnings {
			code, _, _ := strings.Cut(tok, ":")
			r.acc.warn(entry{code: code, detail: id + ": " + tok, lang: lang, gate: validation.GateInvariants, rowID: id})
		}

		if issues := validation.CheckTurnStructure(row, r.laneID); len(issues) > 0 {
			for _, is := range issues {
				r.acc.issue(is, id, lang, validation.GateInvariants)
			}
			continue
		}

		if r.profile < ProfileStandard {
			survivors = append(survivors, gates.RowRef{ID: id, Row: row})
			continue
		}
		if r.contentGates(rules, row, id, lang) {
			survivors = append(survivors, gates.RowRef{ID: id, Row: row})
		}
	}
	return survivors
}

// contentGates runs the profile 2 row checks and reports whether the row
// survived them.
func (r *run) contentGates(rules *lanerules.Validator, row dataset.Row, id string, lang script.Language) bool {
	if issues := rules.Validate(row, r.laneID); len(issues) > 0 {
		for _, is := range issues {
			is.Code = "v17_" + is.Code
			r.acc.issue(is, id, lang, validation.GateInvariants)
		}
		return false
	}

	if ok, why := validation.CheckMessagesAlignment(row); !ok {
		r.acc.hit(entry{code: "messages_alignment", detail: id + ": " + why, lang: lang, gate: validation.GateInvariants, rowID: id})
		return false
	}

	if is, found := gates.CheckPlaceholder(row); found {
		r.acc.issue(is, id, lang, validation.GateInvariants)
		return false
	}

	if issues := gates.CheckSafety(row, r.laneID); len(issues) > 0 {
		for _, is := range issues {
			r.acc.issue(is, id, lang, validation.GateInvariants)
		}
		return false
	}

	if issues := gates.CheckMalformed(row, r.laneID); len(issues) > 0 {
		for _, is := range issues {
			r.acc.issue(is, id, lang, validation.GateMalformed)
		}
		return false
	}

	fatals, warns := gates.CheckRepetition(row, r.laneID, r.opts.Segmenter)
	for _, is := range fatals {
		r.acc.issue(is, id, lang, validation.GateRepetition)
	}
	for _, is := range warns {
		r.acc.issue(is, id, lang, validation.GateRepetition)
	}
	if len(fatals) > 0 {
		return false
	}

	if is, found := gates.CheckMechanismLeakage(row, r.laneID); found {
		r.acc.issue(is, id, lang, validation.GateLeakage)
		return false
	}
	return true
}

// duplication runs the duplication gate and drops every row it failed.
func (r *run) duplication(rows []gates.RowRef) []gates.RowRef {
	res := gates.CheckDuplication(rows, gates.DuplicationConfigFor(r.lane), r.opts.Segmenter)
	for _, f := range res.Fatals {
		r.acc.finding(f)
	}
	for _, f := range res.Warns {
		r.acc.finding(f)
	}
	if len(res.Failed) == 0 {
		return rows
	}
	kept := rows[:0:0]
	for _, ref := range rows {
		if !res.Failed[ref.ID] {
			kept = append(kept, ref)
		}
	}
	return kept
}

// validatedByLanguage counts the surviving rows of each language.
func validatedByLanguage(kept []dataset.Row) map[script.Language]int {
	out := map[script.Language]int{}
	for _, row := range kept {
		out[row.Language().Or(proportions.Unknown)]++
	}
	return out
}

func (r *run) sliceStats(kept []dataset.Row) []SliceStat {
	validated := validatedByLanguage(kept)
	var out []SliceStat
	for _, lang := range r.acc.languages() {
		s := r.acc.slices[lang]
		out = append(out, SliceStat{
			Language:      lang,
			RowsInput:     s.rowsInput,
			RowsValidated: validated[lang],
			Fatals:        s.fatals.total(),
			Warns:         s.warns.total(),
		})
	}
	return out
}
