package proportions

import (
	"regexp"
	"strings"

	"github.com/dino-ds/laneqc/internal/dataset"
	"github.com/dino-ds/laneqc/internal/gates"
	"github.com/dino-ds/laneqc/internal/script"
)

// Predicate reports whether a row of a language slice shows a trait.
type Predicate func(row dataset.Row, lang script.Language, seg script.Segmenter) bool

// phrasebook holds one pattern per script family. Languages that are neither
// Thai nor CJK use the Latin entry.
type phrasebook map[script.Family]*regexp.Regexp

func textFamily(lang script.Language) script.Family {
	switch {
	case script.IsThai(lang):
		return script.FamilyThai
	case script.IsCJK(lang):
		return script.FamilyCJK
	}
	return script.FamilyLatin
}

func (p phrasebook) matchString(lang script.Language, text string) bool {
	re := p[textFamily(lang)]
	return re != nil && re.MatchString(text)
}

func (p phrasebook) count(lang script.Language, text string) int {
	re := p[textFamily(lang)]
	if re == nil {
		return 0
	}
	return len(re.FindAllStringIndex(text, -1))
}

var (
	stepConnectors = phrasebook{
		script.FamilyLatin: regexp.MustCompile(`(?i)\b(because|therefore|thus|so that|however|but|if|then|while|although|since|trade-?off|option|compare|consider|plan|next)\b`),
		script.FamilyCJK:   regexp.MustCompile(`因為|所以|因此|但是|但係|不過|如果|然後|先|再|同時|取捨|另一方面|一方面|まず|次に|だから|一方|그러나|따라서|먼저|다음`),
		script.FamilyThai:  regexp.MustCompile(`เพราะ|ดังนั้น|แต่|อย่างไรก็ตาม|ถ้า|แล้ว|ต่อไป|อีกด้าน|ข้อดี|ข้อเสีย`),
	}
	clarifyingAnswers = phrasebook{
		script.FamilyLatin: regexp.MustCompile(`(?i)\b(clarify|could you clarify|can you clarify|do you mean|what exactly|which one|which .* do you mean|can you share more|before i proceed|to proceed.*need|which account|which app|which city|which date)\b`),
		script.FamilyCJK:   regexp.MustCompile(`請問|请问|可以講清楚|可唔可以講清楚|你係指|你是指|哪個|哪个|哪一個|邊個|再確認|再确认|先確認|先确认|補充`),
		script.FamilyThai:  regexp.MustCompile(`ขอรายละเอียด|หมายถึง|ช่วยระบุ|ขอข้อมูลเพิ่ม|อยากยืนยัน|ช่วยบอกให้ชัดเจน|อันไหน`),
	}
	limitationPhrases = phrasebook{
		script.FamilyLatin: regexp.MustCompile(`(?i)\b(can(?:'|’)t|cannot|unable to|not possible|won(?:'|’)t)\b` +
			`|\b(limitations?|caveats?|trade-?offs?)\b` +
			`|\b(depends on|it depends)\b` +
			`|\b(alternatives?|another option|instead)\b` +
			`|\b(i may be wrong|i might be wrong|not certain|uncertain)\b` +
			`|\b(verify|double-check|confirm)\b`),
		script.FamilyCJK:  regexp.MustCompile(`限制|局限|未必|可能|視乎|取決於|建議.*確認|最好.*確認|替代|另一個方法`),
		script.FamilyThai: regexp.MustCompile(`ข้อจำกัด|อาจจะ|ขึ้นอยู่กับ|ทางเลือก|แนะนำให้ตรวจสอบ|ควรตรวจสอบ`),
	}
	priorReferences = phrasebook{
		script.FamilyLatin: regexp.MustCompile(`(?i)\b(earlier|before|previous|last time|as discussed|as we discussed|we discussed|you said|you mentioned|from before|from earlier|following up|based on what you said)\b`),
		script.FamilyCJK:   regexp.MustCompile(`之前|先前|剛才|头先|頭先|上次|你話過|你提過|我哋.*(之前|頭先)|延續|跟進|承接`),
		script.FamilyThai:  regexp.MustCompile(`ก่อนหน้านี้|เมื่อกี้|ที่คุยไว้|ที่บอกไว้|ที่พูดไว้|ต่อจาก`),
	}
	corrections = phrasebook{
		script.FamilyLatin: regexp.MustCompile(`(?i)\b(that'?s false|that is false|that'?s not true|not true|incorrect|inaccurate|not quite|that's wrong|that is wrong|i can(?:'|’)t assume that as a fact|cannot assume that as a fact|denial.*false|is false)\b`),
		script.FamilyCJK:   regexp.MustCompile(`唔係|不正確|不准确|不準確|錯誤|不是事實|不是真的|有誤|未必正確|並不正確|并不正确|並非事實`),
		script.FamilyThai:  regexp.MustCompile(`ไม่จริง|ไม่ถูกต้อง|คลาดเคลื่อน|ไม่ใช่ข้อเท็จจริง|ไม่แม่นยำ`),
	}

	borderlineLabelRE = regexp.MustCompile(`(?i)(borderline|ambig|clarif|disambigu|uncertain|underspec|needs_more_info)`)
	choiceHintRE      = regexp.MustCompile(`(?i)\b(or|which|what should|better|best|vs|versus|should i|not sure|unsure|depends)\b`)
	explicitStepRE    = regexp.MustCompile(`(?im)\b(first|second|third|step\s*[1-9])\b|^\s*\d+[.)]\s+|^\s*-\s+(first|second|third)\b`)
	sentenceSplitRE   = regexp.MustCompile(`[.!?。！？\n]+`)
	listLineRE        = regexp.MustCompile(`(?m)^\s*(?:[-*•]|\d+[.)])\s+`)
	thaiRunRE         = regexp.MustCompile(`[\x{0E00}-\x{0E7F}]+`)
	colloquialRE      = regexp.MustCompile(`我哋|你哋|佢哋|而家|頭先|咁樣|點算|搞掂|唔使|唔該|返工|收工|睇下|試下|幫手|有冇|可唔可以|唔好|唔會|唔係|冇|咗|喺|啲|啦|呀|囉|喎`)
	latinWordRE       = regexp.MustCompile(`[A-Za-z][A-Za-z0-9_+-]{1,}`)

	strongColloquial = map[string]bool{"有冇": true, "可唔可以": true, "點算": true, "搞掂": true, "返工": true, "收工": true}
)

const (
	clarifyingMaxTokens    = 42
	priorOverlapMin        = 0.12
	priorOverlapContinuity = 0.08
)

func assistantText(row dataset.Row) string {
	return strings.TrimSpace(row.Text("assistant_response"))
}

func words(text string, lang script.Language, seg script.Segmenter) []string {
	return script.Tokenize(text, lang, script.Options{Ngram: 1, Segmenter: seg})
}

func sentenceCount(text string) int {
	n := 0
	for _, part := range sentenceSplitRE.Split(text, -1) {
		if strings.TrimSpace(part) != "" {
			n++
		}
	}
	return n
}

// laneLabel returns the value of key at the row root, then under lane, then
// under _lane, as accepted by ok.
func laneLabel[T any](row dataset.Row, key string, ok func(any) (T, bool)) (T, bool) {
	for _, scope := range []map[string]any{row, objectAt(row, "lane"), objectAt(row, "_lane")} {
		if v, found := ok(scope[key]); found {
			return v, true
		}
	}
	var zero T
	return zero, false
}

func objectAt(row dataset.Row, key string) map[string]any {
	m, _ := row.Object(key)
	return m
}

func asBool(v any) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}

// asLabel returns a non-blank string value lower-cased and trimmed.
func asLabel(v any) (string, bool) {
	s, ok := v.(string)
	s = strings.ToLower(strings.TrimSpace(s))
	return s, ok && s != ""
}

func labelIs(row dataset.Row, key, want string) bool {
	s, _ := asLabel(row[key])
	return s == want
}

// IsBorderline reports ambiguous requests: an explicit borderline flag or
// label, a clarifying answer, a short answer that asks a question, or a user
// message that weighs options.
var IsBorderline Predicate = func(row dataset.Row, lang script.Language, seg script.Segmenter) bool {
	for _, key := range []string{"borderline", "is_borderline", "ambiguous_case"} {
		if v, ok := laneLabel(row, key, asBool); ok {
			return v
		}
	}
	for _, scope := range []map[string]any{row, objectAt(row, "lane"), objectAt(row, "_lane")} {
		if s, ok := scope["borderline_type"].(string); ok && borderlineLabelRE.MatchString(s) {
			return true
		}
	}
	if s, ok := row.Str("intent_subtype"); ok && borderlineLabelRE.MatchString(s) {
		return true
	}
	if text := assistantText(row); text != "" {
		if clarifyingAnswers.matchString(lang, text) {
			return true
		}
		if strings.Contains(text, "?") && len(words(text, lang, seg)) <= clarifyingMaxTokens {
			return true
		}
	}
	user, ok := row.Str("user_message")
	return ok && choiceHintRE.MatchString(user)
}

// HasImplicitMultistep reports reasoning laid out over several steps, either
// as list lines or as connected sentences.
var HasImplicitMultistep Predicate = func(row dataset.Row, lang script.Language, seg script.Segmenter) bool {
	text := assistantText(row)
	if text == "" {
		return false
	}
	if len(listLineRE.FindAllStringIndex(text, -1)) >= 2 {
		return true
	}
	hits := stepConnectors.count(lang, text)
	tokens := len(words(text, lang, seg))
	if hits >= 2 && tokens >= 18 {
		return true
	}
	return hits >= 1 && sentenceCount(text) >= 3 && tokens >= 22
}

// HasToolCall reports a tool_call object or a tool_call/tool_calls list
// holding at least one object.
var HasToolCall Predicate = func(row dataset.Row, _ script.Language, _ script.Segmenter) bool {
	if _, ok := row.Object("tool_call"); ok {
		return true
	}
	for _, key := range []string{"tool_call", "tool_calls"} {
		list, _ := row.List(key)
		for _, item := range list {
			if _, ok := dataset.AsObject(item); ok {
				return true
			}
		}
	}
	return false
}

// HasImageContext reports an image_context object.
var HasImageContext Predicate = func(row dataset.Row, _ script.Language, _ script.Segmenter) bool {
	_, ok := row.Object("image_context")
	return ok
}

// IsMultiturn reports at least two user/assistant exchanges in messages.
var IsMultiturn Predicate = func(row dataset.Row, _ script.Language, _ script.Segmenter) bool {
	msgs, _ := row.Messages()
	n := 0
	for _, m := range msgs {
		if role, ok := asLabel(m["role"]); ok && (role == "user" || role == "assistant") {
			n++
		}
	}
	return n >= 4
}

// HasEmotionalCallback reports callback_type "emotional", falling back to a
// use_continuity choice.
var HasEmotionalCallback Predicate = func(row dataset.Row, _ script.Language, _ script.Segmenter) bool {
	for _, scope := range []map[string]any{row, objectAt(row, "lane"), objectAt(row, "_lane")} {
		if s, _ := asLabel(scope["callback_type"]); s == "emotional" {
			return true
		}
	}
	return labelIs(row, "continuity_choice", "use_continuity")
}

// IsCreativeExtraction reports attempts to extract protected content through
// a creative framing.
var IsCreativeExtraction Predicate = func(row dataset.Row, _ script.Language, _ script.Segmenter) bool {
	for _, scope := range []map[string]any{objectAt(row, "lane"), row} {
		if v, ok := scope["creative_extraction_attempt"].(bool); ok {
			return v
		}
		if s, _ := asLabel(scope["attempt_type"]); s == "creative_extraction" {
			return true
		}
	}
	return labelIs(row, "intent_family", "creative_extraction") || labelIs(row, "safety_tag", "leakage_attempt")
}

// HasFallbackLimitation reports answers that state a limitation, caveat or
// alternative.
var HasFallbackLimitation Predicate = func(row dataset.Row, lang script.Language, _ script.Segmenter) bool {
	text := assistantText(row)
	return text != "" && limitationPhrases.matchString(lang, text)
}

// priorUserTurns returns every non-blank user turn except the last one.
func priorUserTurns(row dataset.Row) []string {
	msgs, _ := row.Messages()
	var users []string
	for _, m := range msgs {
		role, _ := asLabel(m["role"])
		content, ok := m["content"].(string)
		if role == "user" && ok && strings.TrimSpace(content) != "" {
			users = append(users, strings.TrimSpace(content))
		}
	}
	if len(users) <= 1 {
		return nil
	}
	return users[:len(users)-1]
}

// HasPriorReference reports answers that refer back to earlier turns, either
// by phrase or by reusing their content.
var HasPriorReference Predicate = func(row dataset.Row, lang script.Language, seg script.Segmenter) bool {
	text := assistantText(row)
	if text == "" {
		return false
	}
	if priorReferences.matchString(lang, text) {
		return true
	}
	priors := priorUserTurns(row)
	if len(priors) == 0 {
		return false
	}
	asst := words(text, lang, seg)
	if len(asst) == 0 {
		return false
	}
	best := 0.0
	for _, prev := range priors {
		if toks := words(prev, lang, seg); len(toks) > 0 {
			best = max(best, script.OverlapMin(asst, toks))
		}
	}
	if best >= priorOverlapMin {
		return true
	}
	return labelIs(row, "continuity_choice", "use_continuity") && best >= priorOverlapContinuity
}

// IsMisinfoCorrection reports rows labeled as misinformation corrections or
// answers that correct a false claim.
var IsMisinfoCorrection Predicate = func(row dataset.Row, lang script.Language, _ script.Segmenter) bool {
	if sub, ok := row.Str("intent_subtype"); ok {
		s := strings.ToLower(strings.TrimSpace(sub))
		if strings.Contains(s, "misinfo") || strings.Contains(s, "correction") {
			return true
		}
	}
	text := assistantText(row)
	if text == "" {
		return false
	}
	if corrections.matchString(lang, text) {
		return true
	}
	if textFamily(lang) != script.FamilyLatin {
		return false
	}
	lower := strings.ToLower(text)
	return strings.HasPrefix(lower, "no,") || strings.HasPrefix(lower, "no.") || strings.HasPrefix(lower, "not quite")
}

// IsColloquial reports Cantonese colloquial phrasing: one strong marker or
// at least two markers.
var IsColloquial Predicate = func(row dataset.Row, _ script.Language, _ script.Segmenter) bool {
	text := row.Text("assistant_response")
	hits := colloquialRE.FindAllString(text, -1)
	for _, h := range hits {
		if strongColloquial[h] {
			return true
		}
	}
	return len(hits) >= 2
}

// IsCodeSwitched reports CJK answers that mix in a Latin word.
var IsCodeSwitched Predicate = func(row dataset.Row, _ script.Language, _ script.Segmenter) bool {
	text := row.Text("assistant_response")
	return strings.IndexFunc(text, script.IsCJKRune) >= 0 && latinWordRE.MatchString(text)
}

// AnswerTokens counts answer length units: Thai words (or Thai runs plus
// Latin runs), CJK characters plus Latin runs, else word tokens.
func AnswerTokens(text string, lang script.Language, seg script.Segmenter) int {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0
	}
	switch {
	case script.IsThai(lang):
		if w := script.ThaiWords(seg, text, nil); len(w) > 0 {
			return len(w)
		}
		return len(thaiRunRE.FindAllStringIndex(text, -1)) + len(script.LatinRuns(text, nil))
	case script.IsCJK(lang):
		return len(script.Chars(text, script.IsCJKRune)) + len(script.LatinRuns(text, nil))
	}
	return len(script.WordTokens(text, nil))
}

// StructureSignature buckets an answer by opening, length, sentence count,
// list usage, explicit step markers and headings. A slice dominated by one
// signature is templated.
func StructureSignature(text string, lang script.Language, seg script.Segmenter) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return "empty"
	}
	opening := gates.OpeningKey(text, lang, seg)
	if opening == "" {
		opening = "<none>"
	}
	bucket := func(n, small, medium int) string {
		switch {
		case n <= small:
			return "s"
		case n <= medium:
			return "m"
		}
		return "l"
	}
	list := "none"
	switch n := len(listLineRE.FindAllStringIndex(text, -1)); {
	case n > 3:
		list = "many"
	case n > 0:
		list = "few"
	}
	explicit := "imp"
	if explicitStepRE.MatchString(text) {
		explicit = "exp"
	}
	heading := "plain"
	if strings.Contains(text, ":") {
		heading = "head"
	}
	return "open=" + opening +
		"|len=" + bucket(len(words(text, lang, seg)), 25, 80) +
		"|sent=" + bucket(sentenceCount(text), 2, 5) +
		"|list=" + list + "|" + explicit + "|" + heading
}
