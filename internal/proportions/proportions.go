// Package proportions runs the per-language distribution checks over the rows
// that survived the per-row and duplication gates. Rows are split into
// language slices; each check judges every slice independently and skips
// slices that are too small to be reliable.
package proportions

import (
	"fmt"
	"math"
	"sort"

	"github.com/dino-ds/laneqc/internal/dataset"
	"github.com/dino-ds/laneqc/internal/gates"
	"github.com/dino-ds/laneqc/internal/lane"
	"github.com/dino-ds/laneqc/internal/script"
	"github.com/dino-ds/laneqc/internal/validation"
)

const (
	// DefaultMinN is the smallest slice a check will judge.
	DefaultMinN = 30

	passMaxDev = 0.15
	failMinDev = 0.21
)

// Unknown labels rows that carry no language.
const Unknown script.Language = "unknown"

// Note is a pass note of one language slice.
type Note struct {
	Language script.Language
	Text     string
}

// StageResult is the outcome of one check across all slices.
type StageResult struct {
	Gate  validation.Gate
	Check string
	Pass  []Note
	Fails []gates.Finding
	Warns []gates.Finding
}

// Slice is the rows of one language.
type Slice struct {
	Language script.Language
	Rows     []dataset.Row
}

// N is the slice size.
func (s Slice) N() int { return len(s.Rows) }

// Split groups rows by language, sorted by language. Rows without a language
// go to fallback, or to Unknown when fallback is empty. Non-object rows are
// dropped.
func Split(rows []dataset.Row, fallback script.Language) []Slice {
	idx := map[script.Language]int{}
	var out []Slice
	for _, row := range rows {
		if !row.IsObject() {
			continue
		}
		lang := row.Language().Or(fallback).Or(Unknown)
		i, ok := idx[lang]
		if !ok {
			i = len(out)
			idx[lang] = i
			out = append(out, Slice{Language: lang})
		}
		out[i].Rows = append(out[i].Rows, row)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Language < out[b].Language })
	return out
}

// env is what a check may read besides the slice itself.
type env struct {
	laneID string
	lane   dataset.Lane
	seg    script.Segmenter
}

// verdict collects a check's findings for one slice.
type verdict struct {
	note  string
	fails []validation.Issue
	warns []validation.Issue
}

func (v *verdict) fail(code, format string, args ...any) {
	v.fails = append(v.fails, validation.Issue{
		Code: code, Detail: fmt.Sprintf(format, args...),
		Severity: validation.Fatal, Gate: validation.GateProportions,
	})
}

func (v *verdict) warn(code, format string, args ...any) {
	v.warns = append(v.warns, validation.Issue{
		Code: code, Detail: fmt.Sprintf(format, args...),
		Severity: validation.Warn, Gate: validation.GateProportions,
	})
}

func (v *verdict) pass(format string, args ...any) {
	v.note = fmt.Sprintf(format, args...)
}

// floor fails the slice when share is below minShare.
func (v *verdict) floor(s Slice, code, metric, hitsLabel string, hits int, minShare float64) (float64, bool) {
	share := ratio(hits, s.N())
	if share < minShare {
		v.fail(code, "language=%s n=%d; %s=%.3f < min=%.3f (%s=%d)",
			s.Language, s.N(), metric, share, minShare, hitsLabel, hits)
		return share, false
	}
	return share, true
}

// check is one per-language distribution rule.
type check struct {
	name string
	minN int
	// smallN is the warning code for slices below minN.
	smallN string
	// subject names the skipped gate in the small-n warning.
	subject string
	// expectedFallback files rows without a language under the lane language.
	expectedFallback bool
	judge            func(e env, s Slice) verdict
}

func (c check) run(e env, rows []dataset.Row) StageResult {
	res := StageResult{Gate: validation.GateProportions, Check: c.name}
	minN := c.minN
	if minN <= 0 {
		minN = DefaultMinN
	}
	var fallback script.Language
	if c.expectedFallback {
		fallback = e.lane.ExpectedLanguage()
	}
	for _, s := range Split(rows, fallback) {
		if s.N() < minN {
			res.Warns = append(res.Warns, finding(s.Language, validation.Issue{
				Code:     c.smallN,
				Detail:   fmt.Sprintf("language=%s n=%d < min_n=%d; skipped %s", s.Language, s.N(), minN, c.subject),
				Severity: validation.Warn,
				Gate:     validation.GateProportions,
			}))
			continue
		}
		v := c.judge(e, s)
		for _, is := range v.fails {
			res.Fails = append(res.Fails, finding(s.Language, is))
		}
		for _, is := range v.warns {
			res.Warns = append(res.Warns, finding(s.Language, is))
		}
		if len(v.fails) == 0 && v.note != "" {
			res.Pass = append(res.Pass, Note{Language: s.Language, Text: v.note})
		}
	}
	return res
}

func finding(lang script.Language, is validation.Issue) gates.Finding {
	return gates.Finding{Issue: is, Language: lang}
}

// Evaluate runs the mode/tone check and every check registered for the lane,
// in a fixed order. Checks that do not apply to the lane produce no result.
func Evaluate(rows []dataset.Row, laneID string, l dataset.Lane, seg script.Segmenter) []StageResult {
	e := env{laneID: laneID, lane: l, seg: seg}
	var out []StageResult
	if c, ok := modeToneCheck(laneID, l); ok {
		out = append(out, c.run(e, rows))
	}
	for _, c := range laneChecks[lane.Parse(laneID)] {
		out = append(out, c.run(e, rows))
	}
	return out
}

// band classifies the deviation of an observed share from its target.
type band int

const (
	bandPass band = iota
	bandWarn
	bandFail
)

func deviation(observed, target float64) (band, float64) {
	dev := math.Abs(observed - target)
	switch {
	case dev >= failMinDev:
		return bandFail, dev
	case dev > passMaxDev:
		return bandWarn, dev
	}
	return bandPass, dev
}

func ratio(hits, n int) float64 {
	if n == 0 {
		return 0
	}
	return float64(hits) / float64(n)
}

func count(s Slice, e env, pred Predicate) int {
	hits := 0
	for _, row := range s.Rows {
		if pred(row, s.Language, e.seg) {
			hits++
		}
	}
	return hits
}

// labelCounts tallies the lower-cased label each row yields, skipping empty ones.
func labelCounts(rows []dataset.Row, label func(dataset.Row) string) map[string]int {
	out := map[string]int{}
	for _, row := range rows {
		if l := label(row); l != "" {
			out[l]++
		}
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
