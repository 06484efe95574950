package gates

import (
	"fmt"
	"strings"

	"github.com/dino-ds/laneqc/internal/dataset"
	"github.com/dino-ds/laneqc/internal/script"
	"github.com/dino-ds/laneqc/internal/validation"
)

// Duplication defaults.
const (
	DefaultCandidateThreshold   = 0.30
	DefaultContainThreshold     = 0.55
	DefaultJaccardThreshold     = 0.38
	DefaultChainThresholdLatin  = 0.26
	DefaultChainThresholdCarve  = 0.30
	DefaultDupWindow            = 180
	DefaultOpeningMaxShare      = 0.08
	largeBatchRows              = 50_000
	largeBatchWindow            = 80
	hindiChainOverride          = 0.20
	openingMinSample            = 100
	openingCJKChars             = 6
	openingWordTokens           = 4
	duplicationCarveOutMinToken = 3
)

// DuplicationConfig holds the thresholds of the duplication gate.
type DuplicationConfig struct {
	CandidateThreshold  float64
	ContainThreshold    float64
	JaccardThreshold    float64
	ChainThresholdLatin float64
	ChainThresholdCarve float64
	Window              int
	// OpeningMaxShare caps the share of the most common response opening.
	// Values outside (0,1) disable the check.
	OpeningMaxShare float64
	// TextField selects the compared text: "assistant", "user", or both
	// messages joined by a newline when empty.
	TextField string
	Ignore    map[string]bool
}

// DuplicationConfigFor reads the thresholds from a lane's validation and
// similarity blocks. Ratios are clamped into [0,1].
func DuplicationConfigFor(l dataset.Lane) DuplicationConfig {
	sim, vcfg := l.Similarity(), l.Validation()

	base := dataset.CfgFloat(sim, "max_token_overlap_ratio", DefaultCandidateThreshold)
	cfg := DuplicationConfig{
		CandidateThreshold: dataset.SafeRatio(dataset.CfgFloat(vcfg, "dup_candidate_threshold", base)),
		ContainThreshold:   dataset.SafeRatio(dataset.CfgFloat(vcfg, "dup_contain_threshold", DefaultContainThreshold)),
		JaccardThreshold:   dataset.SafeRatio(dataset.CfgFloat(vcfg, "dup_jaccard_threshold", DefaultJaccardThreshold)),
		ChainThresholdLatin: dataset.SafeRatio(dataset.CfgFloat(vcfg, "dup_chain_threshold_latin",
			dataset.CfgFloat(vcfg, "dup_chain_threshold", DefaultChainThresholdLatin))),
		ChainThresholdCarve: dataset.SafeRatio(dataset.CfgFloat(vcfg, "dup_chain_threshold_carveout",
			dataset.CfgFloat(vcfg, "dup_chain_threshold_asian", DefaultChainThresholdCarve))),
		Window:          dataset.CfgInt(vcfg, "dup_window", DefaultDupWindow),
		OpeningMaxShare: dataset.CfgFloat(vcfg, "opening_family_max_share", DefaultOpeningMaxShare),
		Ignore:          IgnoreTokens(sim),
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultDupWindow
	}
	if tf, ok := sim["text_field"].(string); ok {
		cfg.TextField = tf
	}
	return cfg
}

// IgnoreTokens reads similarity.ignore_tokens as a lower-cased set.
func IgnoreTokens(sim map[string]any) map[string]bool {
	out := map[string]bool{}
	list, _ := sim["ignore_tokens"].([]any)
	for _, v := range list {
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			out[strings.ToLower(strings.TrimSpace(s))] = true
		}
	}
	return out
}

// RowRef is a row together with its stable identity in the input batch.
type RowRef struct {
	ID  string
	Row dataset.Row
}

// Finding is a gate issue attributed to one row.
type Finding struct {
	validation.Issue
	RowID    string
	Language script.Language
}

// DuplicationResult is the outcome of the duplication gate.
type DuplicationResult struct {
	Fatals []Finding
	Warns  []Finding
	// Failed holds the ids of every row removed by a fatal duplicate.
	Failed map[string]bool
}

func (r *DuplicationResult) fail(ref RowRef, issue validation.Issue, ids ...string) {
	r.Fatals = append(r.Fatals, Finding{Issue: issue, RowID: ref.ID, Language: ref.Row.Language()})
	for _, id := range ids {
		r.Failed[id] = true
	}
}

// CheckDuplication runs the exact, fuzzy and opening-diversity passes over
// rows in order. Exact duplicates are keyed per language, so identical text
// in two languages is not flagged. The fuzzy pass
// compares each row against a bounded window of earlier rows of the same
// language; a confirmed pair removes both rows.
func CheckDuplication(rows []RowRef, cfg DuplicationConfig, seg script.Segmenter) DuplicationResult {
	res := DuplicationResult{Failed: map[string]bool{}}
	if len(rows) == 0 {
		return res
	}
	exactDuplicates(rows, &res)
	nearDuplicates(rows, cfg, seg, &res)
	openingDiversity(rows, cfg, seg, &res)
	return res
}

// normText lower-cases text and collapses whitespace runs.
func normText(v any) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return whitespaceRE.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), " ")
}

func exactDuplicates(rows []RowRef, res *DuplicationResult) {
	type key struct {
		lang script.Language
		text string
	}
	seen := map[string]map[key]string{
		"user_message":       {},
		"assistant_response": {},
	}
	for _, ref := range rows {
		lang := ref.Row.Language()
		for _, field := range []string{"user_message", "assistant_response"} {
			norm := normText(ref.Row[field])
			if norm == "" {
				continue
			}
			k := key{lang, norm}
			if prev, ok := seen[field][k]; ok {
				res.fail(ref, fatal(validation.GateDuplication, "duplicate_"+field, "%s duplicates %s", ref.ID, prev), ref.ID)
				continue
			}
			seen[field][k] = ref.ID
		}
	}
}

// similarityText picks the compared text for a row.
func similarityText(row dataset.Row, scope string) string {
	user, uok := row.Str("user_message")
	asst, aok := row.Str("assistant_response")
	switch strings.ToLower(strings.TrimSpace(scope)) {
	case "assistant", "assistant_response", "assistant-only", "assistant_only":
		return asst
	case "user", "user_message", "user-only", "user_only":
		return user
	}
	if uok && aok {
		return user + "\n" + asst
	}
	return ""
}

// pairDecision is the verdict for one compared pair.
type pairDecision struct {
	candidate bool
	confirmed bool
	rule      string
	oMin      float64
	oJac      float64
	c3        float64
	signals   int
}

func evaluatePair(a, b script.View, lang script.Language, cfg DuplicationConfig) pairDecision {
	if a.Empty() || b.Empty() {
		return pairDecision{rule: "empty"}
	}
	carve := script.IsCarveOut(lang)
	if carve && min(len(a.Tokens), len(b.Tokens)) < duplicationCarveOutMinToken {
		return pairDecision{rule: "carveout_min_tokens"}
	}

	d := pairDecision{oMin: a.OverlapMin(b)}
	if d.oMin <= cfg.CandidateThreshold {
		d.rule = "below_candidate"
		return d
	}
	d.candidate = true
	d.oJac = a.Jaccard(b)
	d.c3 = script.LongestChainRatio(a.Tokens, b.Tokens)

	chain := cfg.ChainThresholdLatin
	if carve {
		chain = cfg.ChainThresholdCarve
	}
	d.signals = 1
	if d.oJac > cfg.JaccardThreshold {
		d.signals++
	}
	if d.c3 > chain {
		d.signals++
	}
	multi := d.signals >= 2

	if script.IsHindi(lang) && d.c3 < hindiChainOverride {
		d.rule = "hindi_override_candidate_only"
		return d
	}

	if carve {
		contain := d.oMin > cfg.ContainThreshold && d.c3 > chain
		d.confirmed = contain || multi
		switch {
		case multi:
			d.rule = "rule2_multisignal"
		case contain:
			d.rule = "rule1_contain_and_chain"
		default:
			d.rule = "candidate_only"
		}
		return d
	}

	contain := d.oMin > cfg.ContainThreshold
	d.confirmed = contain || multi
	switch {
	case contain && multi:
		d.rule = "rule1_or_rule2"
	case contain:
		d.rule = "rule1_containment"
	case multi:
		d.rule = "rule2_multisignal"
	default:
		d.rule = "candidate_only"
	}
	return d
}

type windowEntry struct {
	id   string
	lang script.Language
	view script.View
}

func nearDuplicates(rows []RowRef, cfg DuplicationConfig, seg script.Segmenter, res *DuplicationResult) {
	window := cfg.Window
	if len(rows) >= largeBatchRows && window > largeBatchWindow {
		window = largeBatchWindow
	}

	prev := make([]windowEntry, 0, window)
	for _, ref := range rows {
		text := similarityText(ref.Row, cfg.TextField)
		if text == "" {
			continue
		}
		lang := ref.Row.Language()
		toks, mode := script.TokenizeForDuplication(text, lang, cfg.Ignore, seg)
		view := script.NewView(toks, mode)
		if view.Empty() {
			continue
		}

		var confirmed, candidate *validation.Issue
		var pairID string
		for _, p := range prev {
			if lang != "" && p.lang != "" && lang != p.lang {
				continue
			}
			d := evaluatePair(view, p.view, lang.Or(p.lang), cfg)
			if !d.candidate {
				continue
			}
			detail := fmt.Sprintf("%s vs %s dup_rule=%s Omin=%.3f Ojac=%.3f C3=%.3f signals=%d/3 token_mode=%s (candidate=%.3f)",
				ref.ID, p.id, d.rule, d.oMin, d.oJac, d.c3, d.signals, view.Mode, cfg.CandidateThreshold)
			if d.confirmed {
				is := fatal(validation.GateDuplication, "near_duplicate_overlap", "%s", detail)
				confirmed, pairID = &is, p.id
				break
			}
			if candidate == nil {
				is := warn(validation.GateDuplication, "dup_candidate_unconfirmed", "%s", detail)
				candidate = &is
			}
		}

		switch {
		case confirmed != nil:
			res.fail(ref, *confirmed, ref.ID, pairID)
		case candidate != nil:
			res.Warns = append(res.Warns, Finding{Issue: *candidate, RowID: ref.ID, Language: lang})
		}

		if len(prev) == window {
			prev = prev[1:]
		}
		prev = append(prev, windowEntry{id: ref.ID, lang: lang, view: view})
	}
}

// OpeningKey is the first few CJK or Thai characters of text, else its first
// few tokens.
func OpeningKey(text string, lang script.Language, seg script.Segmenter) string {
	var chars []string
	switch {
	case script.IsCJK(lang):
		chars = script.Chars(text, script.IsCJKRune)
	case script.IsThai(lang):
		chars = script.Chars(text, script.IsThaiRune)
	}
	if len(chars) > 0 {
		return strings.Join(chars[:min(len(chars), openingCJKChars)], "")
	}
	toks := script.Tokenize(text, lang, script.Options{Ngram: 1, Segmenter: seg})
	return strings.Join(toks[:min(len(toks), openingWordTokens)], " ")
}

func openingDiversity(rows []RowRef, cfg DuplicationConfig, seg script.Segmenter, res *DuplicationResult) {
	if cfg.OpeningMaxShare <= 0 || cfg.OpeningMaxShare >= 1 {
		return
	}
	counts := map[string]int{}
	total, top := 0, 0
	for _, ref := range rows {
		asst, ok := ref.Row.Str("assistant_response")
		if !ok || strings.TrimSpace(asst) == "" {
			continue
		}
		key := OpeningKey(asst, ref.Row.Language(), seg)
		if key == "" {
			continue
		}
		counts[key]++
		total++
		top = max(top, counts[key])
	}
	if total < openingMinSample {
		return
	}
	share := float64(top) / float64(total)
	if share <= cfg.OpeningMaxShare {
		return
	}
	res.Fatals = append(res.Fatals, Finding{Issue: fatal(validation.GateDuplication, "opening_diversity",
		"top opening share=%.3f > cap=%.3f (n=%d)", share, cfg.OpeningMaxShare, total)})
}
