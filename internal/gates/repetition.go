package gates

import (
	"regexp"
	"strings"

	"github.com/dino-ds/laneqc/internal/dataset"
	"github.com/dino-ds/laneqc/internal/script"
	"github.com/dino-ds/laneqc/internal/validation"
)

const (
	repetitionTokenWindow  = 12
	repetitionBigramWindow = 30
)

var codeTokenRE = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*|\d+`)

func wordSet(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

// functionWords are the per-language closed-class words whose repetition is
// natural and only worth a warning.
var functionWords = map[script.Language]map[string]bool{
	"en": wordSet(
		"a", "an", "the", "and", "or", "but", "if", "then", "than", "to", "of", "for",
		"in", "on", "at", "from", "with", "by", "as", "is", "are", "was", "were", "be",
		"been", "being", "do", "does", "did", "can", "could", "should", "would", "will",
		"may", "might", "must", "not", "no", "yes", "it", "its", "this", "that", "these",
		"those", "i", "you", "we", "they", "he", "she", "me", "my", "mine", "your",
		"yours", "our", "ours", "their", "theirs",
	),
	"de": wordSet("der", "die", "das", "und", "oder", "zu", "von", "mit", "im", "in", "auf", "ist", "sind"),
	"es": wordSet("el", "la", "los", "las", "y", "o", "de", "del", "en", "con", "por", "para", "es", "son"),
	"fr": wordSet("le", "la", "les", "et", "ou", "de", "du", "des", "en", "avec", "pour", "est", "sont"),
	"it": wordSet("il", "lo", "la", "gli", "le", "e", "o", "di", "del", "in", "con", "per", "sono"),
	"pt": wordSet("o", "a", "os", "as", "e", "ou", "de", "do", "da", "em", "com", "para", "sao", "é"),
	"th": wordSet("และ", "ที่", "ใน", "ของ", "เป็น", "ได้", "ให้", "กับ", "ว่า", "ก็"),
	"zh": wordSet("的", "了", "在", "是", "和", "也", "都", "就"),
	"ja": wordSet("は", "が", "を", "に", "で", "と", "も", "の", "へ", "や", "か"),
	"ko": wordSet("은", "는", "이", "가", "을", "를", "에", "의", "도", "와", "과"),
}

// functionWordsFor resolves the function-word set by exact tag, then by the
// base before "-" or "_", then by the zh prefix.
func functionWordsFor(lang script.Language) map[string]bool {
	if fw, ok := functionWords[lang]; ok {
		return fw
	}
	for _, sep := range []string{"-", "_"} {
		if base, _, ok := strings.Cut(string(lang), sep); ok {
			if fw, ok := functionWords[script.Language(base)]; ok {
				return fw
			}
		}
	}
	if strings.HasPrefix(string(lang), "zh") {
		return functionWords["zh"]
	}
	return nil
}

// repetitionTokens tokenizes text for the repetition windows. Thai uses
// segmenter words or Thai character n-grams; CJK uses character n-grams plus
// embedded Latin runs; everything else uses lower-cased word tokens.
func repetitionTokens(text string, lang script.Language, seg script.Segmenter) []string {
	switch {
	case script.IsThai(lang):
		if words := script.ThaiWords(seg, text, nil); len(words) > 0 {
			return words
		}
		return script.BiTriGrams(script.Chars(text, script.IsThaiRune))
	case script.IsCJK(lang):
		grams := script.BiTriGrams(script.Chars(text, script.IsCJKRune))
		return append(grams, script.LatinRuns(text, nil)...)
	}
	return script.WordTokens(text, nil)
}

func codeTokens(text string) []string {
	toks := codeTokenRE.FindAllString(text, -1)
	for i, t := range toks {
		toks[i] = strings.ToLower(t)
	}
	return toks
}

func firstAdjacentDuplicate(tokens []string) (string, bool) {
	for i := 1; i < len(tokens); i++ {
		if tokens[i] != "" && tokens[i] == tokens[i-1] {
			return tokens[i], true
		}
	}
	return "", false
}

// firstTriplicate slides a window of the given size over items and returns
// the first item seen three times inside it. Only the newest item's count can
// cross the limit, so the scan stops on it.
func firstTriplicate[T comparable](items []T, window int) (T, bool) {
	var zero T
	counts := make(map[T]int)
	for i, it := range items {
		counts[it]++
		if i >= window {
			counts[items[i-window]]--
		}
		if i >= 2 && counts[it] >= 3 {
			return it, true
		}
	}
	return zero, false
}

type bigram [2]string

// CheckRepetition reports unnatural token repetition in assistant_response.
// Adjacent duplicates and content repeated three times in a short window are
// fatal; repetition made only of function words is a warning. Code-only lanes
// check adjacent identifier duplicates only, and empty-response lanes are
// skipped.
func CheckRepetition(row dataset.Row, laneID string, seg script.Segmenter) (fatals, warns []validation.Issue) {
	if !row.IsObject() {
		return nil, nil
	}
	p := policyFor(laneID)
	if p.AssistantMustBeEmpty {
		return nil, nil
	}

	const field = "assistant_response"
	text, ok := row.Str(field)
	if !ok || strings.TrimSpace(text) == "" {
		return nil, nil
	}

	if p.AssistantMustBeCodeOnly {
		if dup, ok := firstAdjacentDuplicate(codeTokens(text)); ok {
			fatals = append(fatals, fatal(validation.GateRepetition, "adjacent_dup_token",
				"%s has adjacent duplicate token '%s'", field, dup))
		}
		return fatals, nil
	}

	lang := row.Language()
	tokens := repetitionTokens(text, lang, seg)
	if len(tokens) == 0 {
		return nil, nil
	}
	fw := functionWordsFor(lang)

	if dup, ok := firstAdjacentDuplicate(tokens); ok {
		fatals = append(fatals, fatal(validation.GateRepetition, "adjacent_dup_token",
			"%s has adjacent duplicate token '%s'", field, dup))
	}

	if tok, ok := firstTriplicate(tokens, repetitionTokenWindow); ok {
		if fw[tok] {
			warns = append(warns, warn(validation.GateRepetition, "trip_token_function_only",
				"%s has function token '%s' repeated 3x in %d-token window", field, tok, repetitionTokenWindow))
		} else {
			fatals = append(fatals, fatal(validation.GateRepetition, "trip_token_content",
				"%s has content token '%s' repeated 3x in %d-token window", field, tok, repetitionTokenWindow))
		}
	}

	if len(tokens) >= 4 {
		pairs := make([]bigram, 0, len(tokens)-1)
		for i := 1; i < len(tokens); i++ {
			pairs = append(pairs, bigram{tokens[i-1], tokens[i]})
		}
		if bg, ok := firstTriplicate(pairs, max(3, repetitionBigramWindow-1)); ok {
			text := bg[0] + " " + bg[1]
			if fw[bg[0]] && fw[bg[1]] {
				warns = append(warns, warn(validation.GateRepetition, "trip_bigram_function_only",
					"%s has function bigram '%s' repeated 3x in %d-token window", field, text, repetitionBigramWindow))
			} else {
				fatals = append(fatals, fatal(validation.GateRepetition, "trip_bigram_content",
					"%s has content bigram '%s' repeated 3x in %d-token window", field, text, repetitionBigramWindow))
			}
		}
	}
	return fatals, warns
}
