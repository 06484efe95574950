package script

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	wordRE     = regexp.MustCompile(`[\p{L}\p{N}_]+`)
	latinRunRE = regexp.MustCompile(`[A-Za-z0-9]+(?:['-][A-Za-z0-9]+)*`)
)

// Segmenter splits Thai text into words. Thai has no spaces between words, so
// word-level comparisons need a dictionary segmenter supplied by the caller.
type Segmenter interface {
	Segment(text string) []string
}

// NoSegmenter is the default Segmenter. It never returns words, so Thai text
// falls back to character n-grams.
type NoSegmenter struct{}

// Segment implements Segmenter.
func (NoSegmenter) Segment(string) []string { return nil }

// TokenMode records whether a token view was built from words or character n-grams.
type TokenMode string

const (
	ModeWord     TokenMode = "word"
	ModeCharGram TokenMode = "char_gram"
)

// Options controls Tokenize.
type Options struct {
	// Ngram is the token n-gram size in [1,3]. Out-of-range values mean 1.
	Ngram int
	// Ignore drops matching lower-cased tokens before n-gram joining.
	Ignore map[string]bool
	// Segmenter segments Thai text. Nil means NoSegmenter.
	Segmenter Segmenter
}

// Tokenize returns the ordered token or n-gram sequence for text in language lang.
//
// Latin and unknown languages use lower-cased word tokens joined into n-grams
// with "__". CJK uses character bi-grams (tri-grams when Ngram is 3) over the CJK
// ranges. Thai uses segmenter words when available and Thai character n-grams
// otherwise. Hindi and Vietnamese prefer word tokens and fall back to character
// n-grams only when no words are found. The non-Latin paths append embedded
// Latin and digit runs as separate tokens.
func Tokenize(text string, lang Language, opts Options) []string {
	ngram := opts.Ngram
	if ngram < 1 || ngram > 3 {
		ngram = 1
	}

	if IsCJK(lang) || IsThai(lang) || IsHindiOrVietnamese(lang) {
		nChar := 2
		if ngram > 2 {
			nChar = 3
		}
		var toks []string
		switch {
		case IsThai(lang):
			if words := ThaiWords(opts.Segmenter, text, opts.Ignore); len(words) > 0 {
				toks = tokenNgrams(words, nChar)
			} else {
				toks = charNgrams(filterRunes(text, IsThaiRune), nChar)
			}
		case IsHindiOrVietnamese(lang):
			if words := WordTokens(text, opts.Ignore); len(words) > 0 {
				if ngram <= 1 {
					toks = words
				} else if len(words) >= ngram {
					toks = tokenNgrams(words, ngram)
				}
			} else {
				toks = charNgrams(filterRunes(strings.ToLower(text), IsWordRune), nChar)
			}
		default:
			toks = charNgrams(filterRunes(text, IsCJKRune), nChar)
		}
		return append(toks, LatinRuns(text, opts.Ignore)...)
	}

	toks := WordTokens(text, opts.Ignore)
	if ngram <= 1 {
		return toks
	}
	return tokenNgrams(toks, ngram)
}

// TokenizeForDuplication builds the token sequence used for pairwise
// near-duplicate comparison and reports whether it holds words or character
// n-grams. Single-character containment is never used: when a script has no
// word splits the fallback is character bi-grams plus tri-grams.
func TokenizeForDuplication(text string, lang Language, ignore map[string]bool, seg Segmenter) ([]string, TokenMode) {
	switch {
	case IsThai(lang):
		if words := ThaiWords(seg, text, ignore); len(words) > 0 {
			return words, ModeWord
		}
		toks := BiTriGrams(filterRunes(text, IsThaiRune))
		return append(toks, LatinRuns(text, ignore)...), ModeCharGram

	case IsCJK(lang):
		toks := BiTriGrams(filterRunes(text, IsCJKRune))
		toks = append(toks, LatinRuns(text, ignore)...)
		if len(toks) > 0 {
			return toks, ModeCharGram
		}
		return WordTokens(text, ignore), ModeWord

	case IsHindiOrVietnamese(lang):
		words := WordTokens(text, ignore)
		if len(words) > 0 {
			return words, ModeWord
		}
		toks := BiTriGrams(filterRunes(strings.ToLower(text), IsWordRune))
		toks = append(toks, LatinRuns(text, ignore)...)
		if len(toks) > 0 {
			return toks, ModeCharGram
		}
		return words, ModeWord
	}

	if words := WordTokens(text, ignore); len(words) > 0 {
		return words, ModeWord
	}
	return BiTriGrams(filterRunes(text, func(r rune) bool { return !unicode.IsSpace(r) })), ModeCharGram
}

// TokenizeForOverlap builds the token sequence used to bound how much of the
// user message an assistant response may echo. CJK text that is already
// whitespace-delimited is compared chunk by chunk.
func TokenizeForOverlap(text string, lang Language, seg Segmenter) []string {
	if text == "" {
		return nil
	}
	switch {
	case IsThai(lang):
		if words := ThaiWords(seg, text, nil); len(words) > 0 {
			return append(words, LatinRuns(text, nil)...)
		}
		return append(BiTriGrams(filterRunes(text, IsThaiRune)), LatinRuns(text, nil)...)

	case IsCJK(lang):
		if words := cjkChunks(text); len(words) > 0 {
			return append(words, LatinRuns(text, nil)...)
		}
		return append(BiTriGrams(filterRunes(text, IsCJKRune)), LatinRuns(text, nil)...)

	case IsHindiOrVietnamese(lang):
		if words := WordTokens(text, nil); len(words) > 0 {
			return words
		}
		toks := BiTriGrams(filterRunes(strings.ToLower(text), IsWordRune))
		return append(toks, LatinRuns(text, nil)...)

	case IsLatin(lang):
		return LatinRuns(text, nil)
	}
	return WordTokens(text, nil)
}

// WordTokens returns lower-cased Unicode word tokens, minus ignored ones.
func WordTokens(text string, ignore map[string]bool) []string {
	return filterIgnored(wordRE.FindAllString(strings.ToLower(text), -1), ignore)
}

// LatinRuns returns lower-cased ASCII letter and digit runs. Apostrophes and
// hyphens are allowed inside a run.
func LatinRuns(text string, ignore map[string]bool) []string {
	return filterIgnored(latinRunRE.FindAllString(strings.ToLower(text), -1), ignore)
}

// ThaiWords segments text with seg and keeps lower-cased words that contain at
// least one Thai character.
func ThaiWords(seg Segmenter, text string, ignore map[string]bool) []string {
	if seg == nil {
		return nil
	}
	var out []string
	for _, w := range seg.Segment(text) {
		tok := strings.ToLower(strings.TrimSpace(w))
		if tok == "" || ignore[tok] {
			continue
		}
		if strings.IndexFunc(tok, IsThaiRune) < 0 {
			continue
		}
		out = append(out, tok)
	}
	return out
}

// BiTriGrams returns all character bi-grams followed by all character tri-grams.
func BiTriGrams(chars []string) []string {
	out := charNgrams(chars, 2)
	if len(chars) >= 3 {
		out = append(out, charNgrams(chars, 3)...)
	}
	return out
}

// Chars returns the characters of text accepted by keep, one string per rune.
func Chars(text string, keep func(rune) bool) []string {
	return filterRunes(text, keep)
}

func filterRunes(text string, keep func(rune) bool) []string {
	var out []string
	for _, r := range text {
		if keep(r) {
			out = append(out, string(r))
		}
	}
	return out
}

func filterIgnored(toks []string, ignore map[string]bool) []string {
	if len(ignore) == 0 {
		return toks
	}
	out := toks[:0]
	for _, t := range toks {
		if !ignore[t] {
			out = append(out, t)
		}
	}
	return out
}

func charNgrams(chars []string, n int) []string {
	if n <= 1 || len(chars) < n {
		return nil
	}
	out := make([]string, 0, len(chars)-n+1)
	for i := 0; i+n <= len(chars); i++ {
		out = append(out, strings.Join(chars[i:i+n], ""))
	}
	return out
}

func tokenNgrams(toks []string, n int) []string {
	if n <= 1 {
		return toks
	}
	if len(toks) < n {
		return nil
	}
	out := make([]string, 0, len(toks)-n+1)
	for i := 0; i+n <= len(toks); i++ {
		out = append(out, strings.Join(toks[i:i+n], "__"))
	}
	return out
}

func cjkChunks(text string) []string {
	raw := strings.TrimSpace(text)
	if raw == "" || strings.IndexFunc(raw, unicode.IsSpace) < 0 {
		return nil
	}
	var toks []string
	for _, part := range strings.Fields(raw) {
		if strings.IndexFunc(part, IsCJKRune) >= 0 {
			toks = append(toks, part)
		}
	}
	if len(toks) < 2 {
		return nil
	}
	return toks
}
