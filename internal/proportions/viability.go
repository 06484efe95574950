package proportions

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dino-ds/laneqc/internal/dataset"
	"github.com/dino-ds/laneqc/internal/gates"
	"github.com/dino-ds/laneqc/internal/script"
	"github.com/dino-ds/laneqc/internal/validation"
)

// ViabilityConfig is the validation.viability block of a lane.
type ViabilityConfig struct {
	TargetByLanguage map[script.Language]int
	// Target applies to languages without their own target. Zero means none.
	Target            int
	MinFillRatio      float64
	UnderfilledFatal  bool
	AttemptsPerRow    int
	MaxAttemptsPerRow int
	AttemptsFatal     bool
}

// positiveInt returns the first value that is a positive integer.
func positiveInt(values ...any) int {
	for _, v := range values {
		if n, ok := dataset.AsInt(v); ok && n > 0 {
			return int(n)
		}
	}
	return 0
}

func severityIsFatal(v any, def bool) bool {
	s, _ := v.(string)
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fatal":
		return true
	case "warn":
		return false
	}
	return def
}

// ViabilityConfigFor reads the viability block. It reports false when the
// block is absent or has enabled: false.
func ViabilityConfigFor(l dataset.Lane) (ViabilityConfig, bool) {
	vcfg, ok := dataset.AsObject(l.Validation()["viability"])
	if !ok {
		return ViabilityConfig{}, false
	}
	if enabled, isBool := vcfg["enabled"].(bool); isBool && !enabled {
		return ViabilityConfig{}, false
	}
	te := l.Section("template_expand")

	cfg := ViabilityConfig{
		TargetByLanguage:  map[script.Language]int{},
		Target:            positiveInt(vcfg["target_rows"], l.Doc["count_target"], te["count_target"]),
		MinFillRatio:      1,
		UnderfilledFatal:  severityIsFatal(vcfg["underfilled_severity"], true),
		AttemptsPerRow:    positiveInt(vcfg["attempts_per_row"], te["attempts_per_row"]),
		MaxAttemptsPerRow: positiveInt(vcfg["max_attempts_per_row"]),
		AttemptsFatal:     severityIsFatal(vcfg["attempts_per_row_severity"], false),
	}
	if byLang, ok := dataset.AsObject(vcfg["target_rows_by_language"]); ok {
		for k, v := range byLang {
			if n := positiveInt(v); n > 0 {
				cfg.TargetByLanguage[script.Normalize(k)] = n
			}
		}
	}
	if r, ok := dataset.AsNumber(vcfg["min_fill_ratio"]); ok {
		if r = dataset.SafeRatio(r); r > 0 {
			cfg.MinFillRatio = r
		}
	}
	return cfg, true
}

// MinRequired is the smallest row count that fills target at the configured
// ratio, rounded up.
func (c ViabilityConfig) MinRequired(target int) int {
	return int(float64(target)*c.MinFillRatio + 0.999999)
}

// EvaluateViability checks that every language slice filled its target row
// count and that the generation attempt budget stayed within bounds. The
// first return value reports whether the gate is configured for the lane.
func EvaluateViability(rows []dataset.Row, l dataset.Lane) (bool, StageResult) {
	res := StageResult{Gate: validation.GateViability, Check: "viability"}
	cfg, ok := ViabilityConfigFor(l)
	if !ok {
		return false, res
	}

	sizes := map[script.Language]int{}
	for _, s := range Split(rows, "") {
		sizes[s.Language] = s.N()
	}
	for lang := range cfg.TargetByLanguage {
		if lang != "" {
			if _, seen := sizes[lang]; !seen {
				sizes[lang] = 0
			}
		}
	}
	if len(sizes) == 0 {
		sizes[Unknown] = 0
	}
	langs := make([]script.Language, 0, len(sizes))
	for lang := range sizes {
		langs = append(langs, lang)
	}
	sort.Slice(langs, func(a, b int) bool { return langs[a] < langs[b] })

	add := func(fatal bool, lang script.Language, code, format string, args ...any) {
		is := validation.Issue{Code: code, Detail: fmt.Sprintf(format, args...), Gate: validation.GateViability}
		if fatal {
			is.Severity = validation.Fatal
			res.Fails = append(res.Fails, gates.Finding{Issue: is, Language: lang})
			return
		}
		is.Severity = validation.Warn
		res.Warns = append(res.Warns, gates.Finding{Issue: is, Language: lang})
	}

	for _, lang := range langs {
		n := sizes[lang]
		target, ok := cfg.TargetByLanguage[lang]
		if !ok {
			target = cfg.Target
		}
		if target > 0 {
			if need := cfg.MinRequired(target); n < need {
				add(cfg.UnderfilledFatal, lang, "underfilled",
					"language=%s rows_validated=%d < min_required=%d (target=%d, min_fill_ratio=%.2f)",
					lang, n, need, target, cfg.MinFillRatio)
			} else {
				res.Pass = append(res.Pass, Note{Language: lang, Text: fmt.Sprintf(
					"viability PASS language=%s rows_validated=%d target=%d min_fill_ratio=%.2f",
					lang, n, target, cfg.MinFillRatio)})
			}
		}
		if cfg.AttemptsPerRow > 0 && cfg.MaxAttemptsPerRow > 0 && cfg.AttemptsPerRow > cfg.MaxAttemptsPerRow {
			add(cfg.AttemptsFatal, lang, "attempts_per_row_too_high",
				"language=%s attempts_per_row=%d > max_attempts_per_row=%d",
				lang, cfg.AttemptsPerRow, cfg.MaxAttemptsPerRow)
		}
	}
	return true, res
}
