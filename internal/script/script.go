// Package script classifies language tags and characters by writing system and
// tokenizes text with script-aware rules for Latin, CJK, Thai and Devanagari.
package script

import (
	"strings"
	"unicode"
)

// Language is a normalized (trimmed, lower-cased) language tag such as "en",
// "zh-hk" or "pt_br". The empty Language means the tag was missing.
type Language string

// Normalize converts a raw row value into a Language. Non-string values yield "".
func Normalize(raw any) Language {
	s, ok := raw.(string)
	if !ok {
		return ""
	}
	return Language(strings.ToLower(strings.TrimSpace(s)))
}

// Or returns l, or fallback when l is empty.
func (l Language) Or(fallback Language) Language {
	if l == "" {
		return fallback
	}
	return l
}

// Family is a writing-system family.
type Family string

const (
	FamilyLatin      Family = "latin"
	FamilyCJK        Family = "cjk"
	FamilyThai       Family = "thai"
	FamilyDevanagari Family = "devanagari"
	FamilyCyrillic   Family = "cyrillic"
	FamilyGreek      Family = "greek"
	FamilyOther      Family = "other"
	FamilyUnknown    Family = ""
)

var (
	latinLangs = map[Language]bool{
		"en": true, "es": true, "fr": true, "de": true, "it": true,
		"pt-br": true, "pt_br": true, "vi": true,
	}
	cjkLangs = map[Language]bool{
		"zh": true, "zh-hk": true, "zh_hk": true, "zh-hans": true, "zh_hans": true,
		"zh-hant": true, "zh_hant": true, "ja": true, "ko": true,
	}
	thaiLangs       = map[Language]bool{"th": true}
	devanagariLangs = map[Language]bool{"hi": true}
)

// IsCJK reports whether the language is Chinese (any zh variant), Japanese or Korean.
func IsCJK(l Language) bool {
	return cjkLangs[l] || strings.HasPrefix(string(l), "zh")
}

// IsThai reports whether the language is Thai.
func IsThai(l Language) bool {
	return thaiLangs[l]
}

// IsLatin reports whether the language is one of the exact Latin-script tags.
func IsLatin(l Language) bool {
	return latinLangs[l]
}

// IsHindi matches "hi" and regional variants like "hi-IN".
func IsHindi(l Language) bool {
	return hasTagBase(l, "hi")
}

// IsVietnamese matches "vi" and regional variants like "vi_VN".
func IsVietnamese(l Language) bool {
	return hasTagBase(l, "vi")
}

// IsHindiOrVietnamese reports whether word tokens should be preferred with a
// character n-gram fallback.
func IsHindiOrVietnamese(l Language) bool {
	return IsHindi(l) || IsVietnamese(l)
}

// IsCarveOut reports whether the language gets the relaxed duplication and
// overlap rules (no confirmation on containment alone, minimum token span).
func IsCarveOut(l Language) bool {
	return cjkLangs[l] || IsThai(l) || IsHindiOrVietnamese(l)
}

func hasTagBase(l Language, base string) bool {
	s := string(l)
	return s == base || strings.HasPrefix(s, base+"-") || strings.HasPrefix(s, base+"_")
}

// BaseTag returns the part of the tag before the first "-" or "_".
func BaseTag(l Language) Language {
	s := string(l)
	if i := strings.IndexAny(s, "-_"); i >= 0 {
		return Language(s[:i])
	}
	return l
}

// ExpectedFamily returns the script family text in language l should be
// written in, or FamilyUnknown when the language is not classified.
func ExpectedFamily(l Language) Family {
	if l == "" {
		return FamilyUnknown
	}
	if fam := familyOf(l); fam != FamilyUnknown {
		return fam
	}
	if IsCJK(l) {
		return FamilyCJK
	}
	for _, sep := range []string{"-", "_"} {
		if base, _, ok := strings.Cut(string(l), sep); ok {
			if fam := familyOf(Language(base)); fam != FamilyUnknown {
				return fam
			}
		}
	}
	return FamilyUnknown
}

func familyOf(l Language) Family {
	switch {
	case latinLangs[l]:
		return FamilyLatin
	case thaiLangs[l]:
		return FamilyThai
	case devanagariLangs[l]:
		return FamilyDevanagari
	case cjkLangs[l]:
		return FamilyCJK
	}
	return FamilyUnknown
}

// IsCJKRune reports whether r falls in the CJK ideograph, kana or Hangul ranges.
func IsCJKRune(r rune) bool {
	return (r >= 0x3400 && r <= 0x4DBF) ||
		(r >= 0x4E00 && r <= 0x9FFF) ||
		(r >= 0x3040 && r <= 0x30FF) ||
		(r >= 0x31F0 && r <= 0x31FF) ||
		(r >= 0xAC00 && r <= 0xD7AF)
}

// IsThaiRune reports whether r is in the Thai block.
func IsThaiRune(r rune) bool {
	return r >= 0x0E00 && r <= 0x0E7F
}

// IsDevanagariRune reports whether r is in the Devanagari or Devanagari Extended blocks.
func IsDevanagariRune(r rune) bool {
	return (r >= 0x0900 && r <= 0x097F) || (r >= 0xA8E0 && r <= 0xA8FF)
}

// CharFamily classifies a single character by script.
func CharFamily(r rune) Family {
	switch {
	case IsDevanagariRune(r):
		return FamilyDevanagari
	case IsThaiRune(r):
		return FamilyThai
	case IsCJKRune(r):
		return FamilyCJK
	case unicode.Is(unicode.Latin, r):
		return FamilyLatin
	case unicode.Is(unicode.Cyrillic, r):
		return FamilyCyrillic
	case unicode.Is(unicode.Greek, r):
		return FamilyGreek
	}
	return FamilyOther
}

// IsWordRune matches the characters of a Unicode word token: letters, numbers
// and underscore.
func IsWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r)
}
