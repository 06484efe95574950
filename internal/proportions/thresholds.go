package proportions

import (
	"github.com/dino-ds/laneqc/internal/contract"
	"github.com/dino-ds/laneqc/internal/dataset"
	"github.com/dino-ds/laneqc/internal/gates"
	"github.com/dino-ds/laneqc/internal/lane"
)

// Thresholds lists the thresholds in force for a lane, keyed by name, for the
// "Thresholds Used" report section.
func Thresholds(laneID string, l dataset.Lane) map[string]any {
	dup := gates.DuplicationConfigFor(l)
	out := map[string]any{
		"dup_candidate_threshold": dup.CandidateThreshold,
		"dup_contain_threshold":   dup.ContainThreshold,
		"proportion_min_n":        MinN(l),
	}

	switch lane.Parse(laneID) {
	case 3:
		out["lane03_tool_call_max_share"] = Lane03ToolCallMaxShare
		out["lane03_image_context_max_share"] = Lane03ImageContextMaxShare
		out["lane03_implicit_multistep_min_share"] = Lane03ImplicitMultistepMin
		out["lane03_structure_max_share"] = Lane03StructureMaxShare
	case 4:
		out["lane04_tool_call_max_share"] = Lane04ToolCallMaxShare
		out["lane04_image_context_max_share"] = Lane04ImageContextMaxShare
		out["lane04_answer_len_le120_min_share"] = Lane04AnswerLenLE120MinShare
		out["lane04_answer_len_le60_min_share"] = Lane04AnswerLenLE60MinShare
	case 5:
		out["lane05_image_context_max_share"] = Lane05ImageContextMaxShare
		out["lane05_multiturn_min_share"] = Lane05MultiturnMinShare
		out["lane05_emotional_callback_min_share"] = Lane05EmotionalCallbackMin
	case 7:
		out["lane07_borderline_min_share"] = Lane07BorderlineMinShare
		out["lane07_needs_search_target"] = Lane07NeedsSearchTarget
	case 9:
		out["lane09_flow_state_targets"] = map[string]float64(Lane09FlowStateTargets)
	case 10:
		out["lane10_borderline_min_share"] = Lane10BorderlineMinShare
	case 20:
		out["lane20_prior_content_reference_min_share"] = Lane20PriorReferenceMinShare
	case 28:
		out["lane28_emote6_min_share"] = Lane28Emote6MinShare
		out["lane28_emote6_buckets"] = Lane28Emote6Buckets
	case 29:
		out["lane29_misinfo_correction_min_share"] = Lane29MisinfoCorrectionMin
	case 30:
		out["lane30_creative_extraction_min_share"] = Lane30CreativeExtractionMin
	case 33:
		out["lane33_min_share"] = Lane33FallbackLimitationMin
		out["lane33_min_n"] = Lane33MinN
	case 34:
		out["lane34_colloquial_min_share"] = Lane34ColloquialMinShare
		out["lane34_codeswitch_min_share"] = Lane34CodeswitchMinShare
	}

	if vcfg, ok := dataset.AsObject(l.Validation()["viability"]); ok && len(vcfg) > 0 {
		if r, ok := dataset.AsNumber(vcfg["min_fill_ratio"]); ok {
			out["viability_min_fill_ratio"] = dataset.SafeRatio(r)
		}
		if n := positiveInt(vcfg["max_attempts_per_row"]); n > 0 {
			out["viability_max_attempts_per_row"] = n
		}
	}

	if o := contract.ForID(laneID).Overlap; o != nil {
		out["user_assistant_overlap_max"] = o.Max
	}
	return out
}
