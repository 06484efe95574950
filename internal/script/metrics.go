package script

// View is a token sequence with its multiset counts precomputed, so it can be
// compared against many other views cheaply.
type View struct {
	Tokens []string
	Counts map[string]int
	Mode   TokenMode
}

// NewView builds a View over tokens.
func NewView(tokens []string, mode TokenMode) View {
	counts := make(map[string]int, len(tokens))
	for _, t := range tokens {
		counts[t]++
	}
	return View{Tokens: tokens, Counts: counts, Mode: mode}
}

// Empty reports whether the view has no tokens.
func (v View) Empty() bool {
	return len(v.Tokens) == 0
}

// OverlapMin is the multiset intersection size divided by the shorter sequence length.
func (v View) OverlapMin(o View) float64 {
	minLen := min(len(v.Tokens), len(o.Tokens))
	if minLen == 0 {
		return 0
	}
	inter := 0
	for tok, n := range v.Counts {
		if m, ok := o.Counts[tok]; ok {
			inter += min(n, m)
		}
	}
	return float64(inter) / float64(minLen)
}

// Jaccard is the distinct-token intersection over union.
func (v View) Jaccard(o View) float64 {
	if len(v.Counts) == 0 || len(o.Counts) == 0 {
		return 0
	}
	inter := 0
	for tok := range v.Counts {
		if _, ok := o.Counts[tok]; ok {
			inter++
		}
	}
	union := len(v.Counts) + len(o.Counts) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// OverlapMin computes View.OverlapMin over two raw token slices.
func OverlapMin(a, b []string) float64 {
	return NewView(a, "").OverlapMin(NewView(b, ""))
}

// Jaccard computes View.Jaccard over two raw token slices.
func Jaccard(a, b []string) float64 {
	return NewView(a, "").Jaccard(NewView(b, ""))
}

// LongestChainRatio is the length of the longest common contiguous token run
// divided by the shorter sequence length.
func LongestChainRatio(a, b []string) float64 {
	minLen := min(len(a), len(b))
	if minLen == 0 {
		return 0
	}
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	best := 0
	for i := 1; i <= len(a); i++ {
		for j := range cur {
			cur[j] = 0
		}
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				cur[j] = prev[j-1] + 1
				if cur[j] > best {
					best = cur[j]
				}
			}
		}
		prev, cur = cur, prev
	}
	return float64(best) / float64(minLen)
}
