package contract

// rowMetaKeys are non-label top-level fields a row may carry.
var rowMetaKeys = []string{
	"messages", "tool_call", "tool_calls", "status_event",
	"sample_id", "id", "row_id", "lane", "_lane", "lane_id",
	"target_base", "wave", "source_type", "generation_mode",
	"callback_type", "creative_extraction_attempt", "attempt_type",
	"borderline", "borderline_type", "ambiguous_case", "is_borderline",
	"parameters", "citations",
}

// laneMetaKeys are non-label fields the nested lane object may carry.
var laneMetaKeys = []string{
	"lane_id", "id", "wave", "target_base", "source_type", "generation_mode",
	"tool_budget", "borderline", "borderline_type", "ambiguous_case", "is_borderline",
	"callback_type", "creative_extraction_attempt", "attempt_type",
}

var (
	topLevelAllowed = keySet(BaseRequiredKeys, AllowedLabelKeys, rowMetaKeys)
	laneAllowed     = keySet(AllowedLabelKeys, laneMetaKeys)
)

func keySet(groups ...[]string) map[string]bool {
	out := map[string]bool{}
	for _, g := range groups {
		for _, k := range g {
			out[k] = true
		}
	}
	return out
}

// TopLevelAllowed reports whether key may appear at the top level of a row.
func TopLevelAllowed(key string) bool {
	return topLevelAllowed[key]
}

// LaneFieldAllowed reports whether key may appear inside row.lane.
func LaneFieldAllowed(key string) bool {
	return laneAllowed[key]
}
