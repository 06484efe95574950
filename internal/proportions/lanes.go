package proportions

import (
	"fmt"
	"strings"

	"github.com/dino-ds/laneqc/internal/dataset"
	"github.com/dino-ds/laneqc/internal/lane"
)

// Lane-specific shares.
const (
	Lane03ToolCallMaxShare       = 0.10
	Lane03ImageContextMaxShare   = 0.05
	Lane03ImplicitMultistepMin   = 0.60
	Lane03StructureMaxShare      = 0.05
	Lane04ToolCallMaxShare       = 0.05
	Lane04ImageContextMaxShare   = 0.03
	Lane04AnswerLenLE120MinShare = 0.70
	Lane04AnswerLenLE60MinShare  = 0.30
	Lane05ImageContextMaxShare   = 0.02
	Lane05MultiturnMinShare      = 0.60
	Lane05EmotionalCallbackMin   = 0.40
	Lane07BorderlineMinShare     = 0.40
	Lane07NeedsSearchTarget      = 0.50
	Lane10BorderlineMinShare     = 0.40
	Lane20PriorReferenceMinShare = 0.60
	Lane28Emote6MinShare         = 0.10
	Lane29MisinfoCorrectionMin   = 0.40
	Lane30CreativeExtractionMin  = 0.40
	Lane33FallbackLimitationMin  = 0.40
	Lane33MinN                   = 30
	Lane34ColloquialMinShare     = 0.40
	Lane34CodeswitchMinShare     = 0.20
	noCap                        = -1.0
	lane04LongAnswerTokens       = 120
	lane04ShortAnswerTokens      = 60
)

// Lane09FlowStateTargets is the expected flow_state mix of lane 09.
var Lane09FlowStateTargets = Targets{
	"none":                       0.30,
	"awaiting_user_confirmation": 0.20,
	"awaiting_user_choice":       0.20,
	"awaiting_parameters":        0.15,
	"ready_for_action":           0.15,
}

// Lane28Emote6Buckets are the emote6 labels each lane 28 slice must cover.
var Lane28Emote6Buckets = []string{"happy", "sad", "angry", "fear", "encourage", "neutral"}

// laneChecks lists the checks of each lane in evaluation order.
var laneChecks = map[lane.Number][]check{
	3:  {optionalShares(3, Lane03ToolCallMaxShare, Lane03ImageContextMaxShare), lane03Structure},
	4:  {optionalShares(4, Lane04ToolCallMaxShare, Lane04ImageContextMaxShare), lane04AnswerLength},
	5:  {optionalShares(5, noCap, Lane05ImageContextMaxShare), lane05Slices},
	7:  {lane07BorderlineSplit},
	9:  {lane09FlowState},
	10: {simpleFloor(10, "borderline_share", "lane10_borderline_share_too_low", "matching_rows", "borderline share gate", Lane10BorderlineMinShare, IsBorderline)},
	20: {simpleFloor(20, "prior_content_reference_share", "lane20_prior_content_reference_share_too_low", "matching_rows", "prior-reference share gate", Lane20PriorReferenceMinShare, HasPriorReference)},
	28: {lane28Emote6},
	29: {simpleFloor(29, "misinfo_correction_share", "lane29_misinfo_correction_share_too_low", "matching_rows", "misinfo-correction share gate", Lane29MisinfoCorrectionMin, IsMisinfoCorrection)},
	30: {simpleFloor(30, "creative_extraction_share", "lane30_creative_extraction_share_too_low", "attempt_rows", "creative extraction share gate", Lane30CreativeExtractionMin, IsCreativeExtraction)},
	33: {lane33Fallback},
	34: {lane34ColloquialCodeswitch},
}

func smallN(n lane.Number) string {
	return fmt.Sprintf("%s_not_reliable_small_n", n)
}

// simpleFloor builds a check with a single share floor.
func simpleFloor(n lane.Number, metric, code, hitsLabel, subject string, minShare float64, pred Predicate) check {
	name := fmt.Sprintf("%s_%s", n, metric)
	return check{
		name:    name,
		smallN:  smallN(n),
		subject: fmt.Sprintf("lane %02d %s", int(n), subject),
		judge: func(e env, s Slice) verdict {
			var v verdict
			if share, ok := v.floor(s, code, metric, hitsLabel, count(s, e, pred), minShare); ok {
				v.pass("%s PASS language=%s n=%d share=%.3f", name, s.Language, s.N(), share)
			}
			return v
		},
	}
}

func optionalShares(n lane.Number, toolCap, imageCap float64) check {
	type capped struct {
		metric, rowsLabel string
		cap               float64
		pred              Predicate
	}
	var caps []capped
	if toolCap != noCap {
		caps = append(caps, capped{"tool_call", "tool_rows", toolCap, HasToolCall})
	}
	if imageCap != noCap {
		caps = append(caps, capped{"image_context", "image_rows", imageCap, HasImageContext})
	}
	return check{
		name:    fmt.Sprintf("%s_optional_shares", n),
		smallN:  fmt.Sprintf("%s_optional_share_not_reliable_small_n", n),
		subject: fmt.Sprintf("lane %02d optional share gate", int(n)),
		judge: func(e env, s Slice) verdict {
			var v verdict
			fragments := make([]string, 0, len(caps))
			for _, c := range caps {
				hits := count(s, e, c.pred)
				share := ratio(hits, s.N())
				if share > c.cap {
					v.fail(fmt.Sprintf("%s_%s_share_too_high", n, c.metric),
						"language=%s n=%d; %s_share=%.3f > max=%.3f (%s=%d)",
						s.Language, s.N(), c.metric, share, c.cap, c.rowsLabel, hits)
				}
				fragments = append(fragments, fmt.Sprintf("%s_share=%.3f/%.3f", c.metric, share, c.cap))
			}
			if len(v.fails) == 0 {
				v.pass("%s_optional_shares PASS language=%s n=%d %s", n, s.Language, s.N(), strings.Join(fragments, " "))
			}
			return v
		},
	}
}

var lane03Structure = check{
	name:    "lane03_reasoning_structure_distribution",
	smallN:  smallN(3),
	subject: "lane 03 reasoning/structure distribution gate",
	judge: func(e env, s Slice) verdict {
		var v verdict
		implicit := count(s, e, HasImplicitMultistep)

		sigs := map[string]int{}
		var order []string
		for _, row := range s.Rows {
			sig := StructureSignature(row.Text("assistant_response"), s.Language, e.seg)
			if sigs[sig] == 0 {
				order = append(order, sig)
			}
			sigs[sig]++
		}
		// First seen wins ties.
		topSig, topCount := "", 0
		for _, sig := range order {
			if sigs[sig] > topCount {
				topSig, topCount = sig, sigs[sig]
			}
		}

		implicitShare, implicitOK := v.floor(s, "lane03_implicit_multistep_share_too_low",
			"implicit_multistep_share", "matching_rows", implicit, Lane03ImplicitMultistepMin)
		topShare := ratio(topCount, s.N())
		if topShare > Lane03StructureMaxShare {
			v.fail("lane03_structure_share_too_high",
				"language=%s n=%d; top_structure_share=%.3f > max=%.3f (top_count=%d, signature=%s)",
				s.Language, s.N(), topShare, Lane03StructureMaxShare, topCount, topSig)
		} else if implicitOK {
			v.pass("lane03_reasoning_structure_distribution PASS language=%s n=%d implicit_multistep_share=%.3f top_structure_share=%.3f",
				s.Language, s.N(), implicitShare, topShare)
		}
		return v
	},
}

var lane04AnswerLength = check{
	name:    "lane04_answer_length_distribution",
	smallN:  smallN(4),
	subject: "lane 04 answer-length distribution gate",
	judge: func(e env, s Slice) verdict {
		var v verdict
		le120, le60 := 0, 0
		for _, row := range s.Rows {
			n := AnswerTokens(row.Text("assistant_response"), s.Language, e.seg)
			if n <= lane04LongAnswerTokens {
				le120++
			}
			if n <= lane04ShortAnswerTokens {
				le60++
			}
		}
		share120, ok120 := v.floor(s, "lane04_answer_len_le120_share_too_low", "le120_share", "matching_rows", le120, Lane04AnswerLenLE120MinShare)
		share60, ok60 := v.floor(s, "lane04_answer_len_le60_share_too_low", "le60_share", "matching_rows", le60, Lane04AnswerLenLE60MinShare)
		if ok120 && ok60 {
			v.pass("lane04_answer_length_distribution PASS language=%s n=%d le120_share=%.3f le60_share=%.3f",
				s.Language, s.N(), share120, share60)
		}
		return v
	},
}

var lane05Slices = check{
	name:    "lane05_slice_distribution",
	smallN:  smallN(5),
	subject: "lane 05 slice distribution gate",
	judge: func(e env, s Slice) verdict {
		var v verdict
		multi, okMulti := v.floor(s, "lane05_multiturn_share_too_low", "multiturn_share", "multiturn_rows",
			count(s, e, IsMultiturn), Lane05MultiturnMinShare)
		emo, okEmo := v.floor(s, "lane05_emotional_callback_share_too_low", "emotional_callback_share", "emotional_rows",
			count(s, e, HasEmotionalCallback), Lane05EmotionalCallbackMin)
		if okMulti && okEmo {
			v.pass("lane05_slice_distribution PASS language=%s n=%d multiturn_share=%.3f emotional_callback_share=%.3f",
				s.Language, s.N(), multi, emo)
		}
		return v
	},
}

var lane07BorderlineSplit = check{
	name:    "lane07_borderline_split",
	smallN:  smallN(7),
	subject: "lane 07 borderline/split gate",
	judge: func(e env, s Slice) verdict {
		var v verdict
		borderline, ok := v.floor(s, "lane07_borderline_share_too_low", "borderline_share", "matching_rows",
			count(s, e, IsBorderline), Lane07BorderlineMinShare)

		needs := 0
		for _, row := range s.Rows {
			if b, isBool := row.Bool("needs_search"); isBool && b {
				needs++
			}
		}
		trueShare := ratio(needs, s.N())
		b, dev := deviation(trueShare, Lane07NeedsSearchTarget)
		detail := "language=%s n=%d; needs_search_true_share=%.3f target=%.3f dev=%.3f"
		switch b {
		case bandFail:
			v.fail("lane07_needs_search_split_out_of_tolerance", detail, s.Language, s.N(), trueShare, Lane07NeedsSearchTarget, dev)
		case bandWarn:
			v.warn("lane07_needs_search_split_warn", detail, s.Language, s.N(), trueShare, Lane07NeedsSearchTarget, dev)
		default:
			if ok {
				v.pass("lane07_borderline_split PASS language=%s n=%d borderline_share=%.3f needs_search_true_share=%.3f",
					s.Language, s.N(), borderline, trueShare)
			}
		}
		return v
	},
}

// labelAt reads a lower-cased label from the row root, else from lane.
func labelAt(key string) func(dataset.Row) string {
	return func(row dataset.Row) string {
		if s, ok := asLabel(row[key]); ok {
			return s
		}
		s, _ := asLabel(objectAt(row, "lane")[key])
		return s
	}
}

var lane09FlowState = check{
	name:    "lane09_flow_state_distribution",
	smallN:  smallN(9),
	subject: "lane 09 flow_state distribution gate",
	judge: func(_ env, s Slice) verdict {
		var v verdict
		counts := labelCounts(s.Rows, labelAt("flow_state"))
		var failures []string
		for _, state := range sortedKeys(Lane09FlowStateTargets) {
			target := Lane09FlowStateTargets[state]
			observed := ratio(counts[state], s.N())
			if b, dev := deviation(observed, target); b == bandFail {
				failures = append(failures, fmt.Sprintf("flow_state.%s observed=%.3f target=%.3f dev=%.3f", state, observed, target, dev))
			}
		}
		if len(failures) > 0 {
			v.fail("lane09_flow_state_out_of_tolerance", "language=%s n=%d; %s", s.Language, s.N(), strings.Join(failures, "; "))
		} else {
			v.pass("lane09_flow_state_distribution PASS language=%s n=%d", s.Language, s.N())
		}
		return v
	},
}

var lane28Emote6 = check{
	name:    "lane28_emote6_distribution",
	smallN:  smallN(28),
	subject: "lane 28 emote6 distribution gate",
	judge: func(_ env, s Slice) verdict {
		var v verdict
		counts := labelCounts(s.Rows, labelAt("emote6"))
		var low []string
		for _, bucket := range Lane28Emote6Buckets {
			if share := ratio(counts[bucket], s.N()); share < Lane28Emote6MinShare {
				low = append(low, fmt.Sprintf("%s=%.3f", bucket, share))
			}
		}
		if len(low) > 0 {
			v.fail("lane28_emote6_out_of_tolerance", "language=%s n=%d; buckets_below_min_share(%.2f)=%s",
				s.Language, s.N(), Lane28Emote6MinShare, strings.Join(low, ", "))
		} else {
			v.pass("lane28_emote6_distribution PASS language=%s n=%d", s.Language, s.N())
		}
		return v
	},
}

// lane33Fallback files rows without a language under the lane language.
var lane33Fallback = func() check {
	c := simpleFloor(33, "fallback_limitation_share", "lane33_fallback_limitation_share_too_low", "matching_rows",
		"fallback limitation share gate", Lane33FallbackLimitationMin, HasFallbackLimitation)
	c.minN = Lane33MinN
	c.expectedFallback = true
	return c
}()

var lane34ColloquialCodeswitch = check{
	name:    "lane34_colloquial_codeswitch_share",
	smallN:  smallN(34),
	subject: "lane 34 colloquial/code-switch share gate",
	judge: func(e env, s Slice) verdict {
		var v verdict
		colloquial, okC := v.floor(s, "lane34_colloquial_share_too_low", "colloquial_share", "matching_rows",
			count(s, e, IsColloquial), Lane34ColloquialMinShare)
		codeswitch, okS := v.floor(s, "lane34_codeswitch_share_too_low", "codeswitch_share", "matching_rows",
			count(s, e, IsCodeSwitched), Lane34CodeswitchMinShare)
		if okC && okS {
			v.pass("lane34_colloquial_codeswitch_share PASS language=%s n=%d colloquial_share=%.3f codeswitch_share=%.3f",
				s.Language, s.N(), colloquial, codeswitch)
		}
		return v
	},
}
