package qc

import (
	"regexp"
	"sort"
	"strings"

	"github.com/dino-ds/laneqc/internal/gates"
	"github.com/dino-ds/laneqc/internal/proportions"
	"github.com/dino-ds/laneqc/internal/report"
	"github.com/dino-ds/laneqc/internal/script"
	"github.com/dino-ds/laneqc/internal/validation"
)

const (
	maxListed       = 24
	maxDetails      = 5
	maxGateNotes    = 5
	maxExampleRunes = 240
)

// tally counts keys and remembers the order they were first seen.
type tally struct {
	counts map[string]int
	order  []string
}

func newTally() *tally { return &tally{counts: map[string]int{}} }

func (t *tally) add(key string, n int) {
	if _, ok := t.counts[key]; !ok {
		t.order = append(t.order, key)
	}
	t.counts[key] += n
}

func (t *tally) total() int {
	n := 0
	for _, v := range t.counts {
		n += v
	}
	return n
}

func (t *tally) len() int { return len(t.counts) }

// mostCommon orders keys by count, ties by first appearance.
func (t *tally) mostCommon() []string {
	keys := append([]string(nil), t.order...)
	sort.SliceStable(keys, func(a, b int) bool { return t.counts[keys[a]] > t.counts[keys[b]] })
	return keys
}

func (t *tally) plain() map[string]int {
	out := make(map[string]int, len(t.counts))
	for k, v := range t.counts {
		out[k] = v
	}
	return out
}

// sliceStats is the per-language part of the accumulator.
type sliceStats struct {
	rowsInput  int
	fatals     *tally
	warns      *tally
	gateFatals map[validation.Gate]*tally
	gateWarns  map[validation.Gate]*tally
	gateNotes  map[validation.Gate][]string
	examples   map[string][]report.Example
}

func newSliceStats() *sliceStats {
	s := &sliceStats{
		fatals:     newTally(),
		warns:      newTally(),
		gateFatals: map[validation.Gate]*tally{},
		gateWarns:  map[validation.Gate]*tally{},
		gateNotes:  map[validation.Gate][]string{},
		examples:   map[string][]report.Example{},
	}
	for _, g := range validation.Gates {
		s.gateFatals[g] = newTally()
		s.gateWarns[g] = newTally()
	}
	return s
}

// entry is one issue as raised by a stage.
type entry struct {
	code   string
	detail string
	lang   script.Language
	gate   validation.Gate
	rowID  string
}

// accumulator collects every issue of a run, globally for the summary and
// per language for the reports.
type accumulator struct {
	reasons, warnings             *tally
	examples, warningExamples     []string
	reasonDetails, warningDetails map[string][]string
	reasonGates, warningGates     map[string]*tally
	passChecks                    []string
	slices                        map[script.Language]*sliceStats
	rowLang                       map[string]script.Language
}

func newAccumulator() *accumulator {
	return &accumulator{
		reasons:        newTally(),
		warnings:       newTally(),
		reasonDetails:  map[string][]string{},
		warningDetails: map[string][]string{},
		reasonGates:    map[string]*tally{},
		warningGates:   map[string]*tally{},
		slices:         map[script.Language]*sliceStats{},
		rowLang:        map[string]script.Language{},
	}
}

func (a *accumulator) slice(lang script.Language) *sliceStats {
	lang = lang.Or(proportions.Unknown)
	s, ok := a.slices[lang]
	if !ok {
		s = newSliceStats()
		a.slices[lang] = s
	}
	return s
}

// languages returns every language seen, sorted.
func (a *accumulator) languages() []script.Language {
	out := make([]script.Language, 0, len(a.slices))
	for lang := range a.slices {
		out = append(out, lang)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func appendCapped(list []string, s string, limit int) []string {
	if len(list) >= limit {
		return list
	}
	return append(list, s)
}

func appendDetail(details map[string][]string, code, detail string) {
	bucket := details[code]
	if len(bucket) >= maxDetails {
		return
	}
	for _, d := range bucket {
		if d == detail {
			return
		}
	}
	details[code] = append(bucket, detail)
}

func (a *accumulator) hit(e entry) {
	a.reasons.add(e.code, 1)
	a.examples = appendCapped(a.examples, "- "+e.code+": "+e.detail, maxListed)
	appendDetail(a.reasonDetails, e.code, e.detail)
	gateTally(a.reasonGates, e.code).add(string(e.gate), 1)
	a.record(e, true)
}

func (a *accumulator) warn(e entry) {
	a.warnings.add(e.code, 1)
	a.warningExamples = appendCapped(a.warningExamples, "- "+e.code+": "+e.detail, maxListed)
	appendDetail(a.warningDetails, e.code, e.detail)
	gateTally(a.warningGates, e.code).add(string(e.gate), 1)
	a.record(e, false)
}

func gateTally(m map[string]*tally, code string) *tally {
	t, ok := m[code]
	if !ok {
		t = newTally()
		m[code] = t
	}
	return t
}

// record files the issue under its language slice. Issues without a language
// take the language of their row.
func (a *accumulator) record(e entry, fatal bool) {
	lang := e.lang.Or(proportions.Unknown)
	if lang == proportions.Unknown && e.rowID != "" {
		if rowLang, ok := a.rowLang[e.rowID]; ok {
			lang = rowLang
		}
	}
	gate := e.gate
	if !gate.Valid() {
		gate = validation.GateInvariants
	}
	s := a.slice(lang)
	if fatal {
		s.fatals.add(e.code, 1)
		s.gateFatals[gate].add(e.code, 1)
	} else {
		s.warns.add(e.code, 1)
		s.gateWarns[gate].add(e.code, 1)
	}

	msg := sanitizeExample(e.code, e.detail)
	if len(s.examples[e.code]) >= report.MaxExamplesPerCode {
		return
	}
	rowID := e.rowID
	if rowID == "" {
		rowID = "slice"
	}
	s.examples[e.code] = append(s.examples[e.code], report.Example{RowID: rowID, Message: msg})
}

// issue adds a row-scoped issue, prefixing its detail with the row id.
func (a *accumulator) issue(is validation.Issue, rowID string, lang script.Language, fallback validation.Gate) {
	gate := is.Gate
	if gate == "" {
		gate = fallback
	}
	e := entry{code: is.Code, detail: rowID + ": " + is.Detail, lang: lang, gate: gate, rowID: rowID}
	if is.Severity == validation.Warn {
		a.warn(e)
		return
	}
	a.hit(e)
}

// finding adds a corpus-level issue whose detail already names its rows.
func (a *accumulator) finding(f gates.Finding) {
	lang := f.Language
	if lang == "" && f.RowID != "" {
		lang = a.rowLang[f.RowID]
	}
	e := entry{code: f.Code, detail: f.Detail, lang: lang, gate: f.Gate, rowID: f.RowID}
	if f.Severity == validation.Warn {
		a.warn(e)
		return
	}
	a.hit(e)
}

// stage adds the outcome of a slice check.
func (a *accumulator) stage(res proportions.StageResult) {
	for _, n := range res.Pass {
		a.passChecks = appendCapped(a.passChecks, n.Text, maxListed)
		s := a.slice(n.Language)
		s.gateNotes[res.Gate] = appendCapped(s.gateNotes[res.Gate], n.Text, maxGateNotes)
	}
	for _, f := range res.Fails {
		a.finding(f)
	}
	for _, f := range res.Warns {
		a.finding(f)
	}
}

var (
	whitespaceRE = regexp.MustCompile(`\s+`)
	longQuotedRE = regexp.MustCompile(`'[^'\n]{60,}'|"[^"\n]{60,}"`)
)

const redactedNotice = "user_message issue detected (details redacted)"

// sanitizeExample shortens a detail for the report: it keeps the part after
// the first colon, hides user-only content and long quotes, and caps the
// length.
func sanitizeExample(code, detail string) string {
	s := whitespaceRE.ReplaceAllString(strings.TrimSpace(detail), " ")
	if _, after, ok := strings.Cut(s, ":"); ok {
		s = strings.TrimSpace(after)
	}
	lowered := strings.ToLower(s)
	if strings.Contains(lowered, "user_message") &&
		!strings.Contains(lowered, "assistant_response") &&
		!strings.Contains(lowered, "tool_call") {
		return redactedNotice
	}
	s = longQuotedRE.ReplaceAllString(s, "'[snippet]'")
	if r := []rune(s); len(r) > maxExampleRunes {
		s = strings.TrimRight(string(r[:maxExampleRunes-1]), " \t\n") + "..."
	}
	if s == "" {
		return strings.ReplaceAll(code, "_", " ")
	}
	return s
}
