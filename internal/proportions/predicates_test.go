// Package proportions_test tests the row predicates behind the lane share checks.
// Related: internal/proportions/predicates.go
// Tags: proportions, predicates, structure
package proportions

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dino-ds/laneqc/internal/dataset"
	"github.com/dino-ds/laneqc/internal/script"
)

func TestPredicates(t *testing.T) {
	t.Parallel()

	msgs := func(turns ...string) []any {
		out := make([]any, 0, len(turns))
		for i, c := range turns {
			role := "user"
			if i%2 == 1 {
				role = "assistant"
			}
			out = append(out, map[string]any{"role": role, "content": c})
		}
		return out
	}

	tests := map[string]struct {
		pred Predicate
		row  dataset.Row
		lang script.Language
		want bool
	}{
		"borderline flag under lane": {
			pred: IsBorderline,
			row:  dataset.Row{"lane": map[string]any{"borderline": true}},
			want: true,
		},
		"borderline flag false wins over hints": {
			pred: IsBorderline,
			row:  dataset.Row{"borderline": false, "user_message": "Which is better, tea or coffee?"},
			want: false,
		},
		"borderline by clarifying answer": {
			pred: IsBorderline,
			row:  dataset.Row{"assistant_response": "Do you mean the app or the website?"},
			want: true,
		},
		"borderline by choice in user message": {
			pred: IsBorderline,
			row:  dataset.Row{"user_message": "Should I take the bus or the train?", "assistant_response": "The train is faster."},
			want: true,
		},
		"plain request is not borderline": {
			pred: IsBorderline,
			row:  dataset.Row{"user_message": "Tell me about cats.", "assistant_response": "Cats purr."},
		},
		"list lines are multistep": {
			pred: HasImplicitMultistep,
			row:  dataset.Row{"assistant_response": "- pack\n- leave"},
			want: true,
		},
		"tool call list": {
			pred: HasToolCall,
			row:  dataset.Row{"tool_calls": []any{map[string]any{"name": "x"}}},
			want: true,
		},
		"empty tool call list": {
			pred: HasToolCall,
			row:  dataset.Row{"tool_calls": []any{}},
		},
		"image context object": {
			pred: HasImageContext,
			row:  dataset.Row{"image_context": map[string]any{"caption": "cat"}},
			want: true,
		},
		"two exchanges are multiturn": {
			pred: IsMultiturn,
			row:  dataset.Row{"messages": msgs("a", "b", "c", "d")},
			want: true,
		},
		"one exchange is not multiturn": {
			pred: IsMultiturn,
			row:  dataset.Row{"messages": msgs("a", "b")},
		},
		"emotional callback label": {
			pred: HasEmotionalCallback,
			row:  dataset.Row{"_lane": map[string]any{"callback_type": "Emotional"}},
			want: true,
		},
		"creative extraction attempt flag": {
			pred: IsCreativeExtraction,
			row:  dataset.Row{"lane": map[string]any{"creative_extraction_attempt": true}},
			want: true,
		},
		"limitation phrase": {
			pred: HasFallbackLimitation,
			row:  dataset.Row{"assistant_response": "I can't book it, but here is an alternative."},
			want: true,
		},
		"thai limitation phrase": {
			pred: HasFallbackLimitation,
			row:  dataset.Row{"assistant_response": "ขึ้นอยู่กับงบประมาณ"},
			lang: "th",
			want: true,
		},
		"prior reference phrase": {
			pred: HasPriorReference,
			row:  dataset.Row{"assistant_response": "As you mentioned, the trip is in May."},
			want: true,
		},
		"prior reference by reused content": {
			pred: HasPriorReference,
			row: dataset.Row{
				"messages":           msgs("I am planning a beach trip to Phuket", "Nice.", "What should I pack?"),
				"assistant_response": "For Phuket beach days pack sunscreen.",
			},
			want: true,
		},
		"misinformation subtype": {
			pred: IsMisinfoCorrection,
			row:  dataset.Row{"intent_subtype": "Misinfo_Correction"},
			want: true,
		},
		"misinformation leading no": {
			pred: IsMisinfoCorrection,
			row:  dataset.Row{"assistant_response": "No, the moon landing happened."},
			want: true,
		},
		"cantonese strong marker": {
			pred: IsColloquial,
			row:  dataset.Row{"assistant_response": "你有冇時間？"},
			want: true,
		},
		"single weak marker": {
			pred: IsColloquial,
			row:  dataset.Row{"assistant_response": "好啦"},
		},
		"code switch": {
			pred: IsCodeSwitched,
			row:  dataset.Row{"assistant_response": "我今日要開meeting"},
			want: true,
		},
		"latin only is not code switch": {
			pred: IsCodeSwitched,
			row:  dataset.Row{"assistant_response": "meeting today"},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			lang := tt.lang
			if lang == "" {
				lang = "en"
			}
			assert.Equal(t, tt.want, tt.pred(tt.row, lang, script.NoSegmenter{}))
		})
	}
}

func TestAnswerTokens(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, AnswerTokens("   ", "en", nil))
	assert.Equal(t, 4, AnswerTokens("Cats purr very loudly.", "en", nil))
	assert.Equal(t, 5, AnswerTokens("我想去 Tokyo 玩", "zh-hk", nil))
}

func TestStructureSignature(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		text string
		want string
	}{
		"empty": {
			text: "  ",
			want: "empty",
		},
		"short plain": {
			text: "Sure. Go now.",
			want: "open=sure go now|len=s|sent=s|list=none|imp|plain",
		},
		"numbered steps with heading": {
			text: "Plan:\n1. Pack\n2. Leave",
			want: "open=plan 1 pack 2|len=s|sent=m|list=few|exp|head",
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, StructureSignature(tt.text, "en", nil))
		})
	}
}
