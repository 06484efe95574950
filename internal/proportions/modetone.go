package proportions

import (
	"fmt"
	"strings"

	"github.com/dino-ds/laneqc/internal/dataset"
	"github.com/dino-ds/laneqc/internal/lane"
)

// Targets maps a lower-cased label to its expected share of a slice.
type Targets map[string]float64

var toneBalanced = Targets{
	"family":       0.20,
	"serious":      0.20,
	"professional": 0.20,
	"friendly":     0.20,
	"best_friend":  0.20,
}

// builtinModeTone holds the exact mode and tone shares a lane is generated
// with. Lanes without exact percentages are not listed.
var builtinModeTone = map[lane.Number]struct{ mode, tone Targets }{
	1:  {mode: Targets{"quick": 1, "think": 0, "conversation": 0}, tone: toneBalanced},
	2:  {mode: Targets{"quick": 0.5, "think": 0.5, "conversation": 0}, tone: toneBalanced},
	3:  {mode: Targets{"quick": 0, "think": 1, "conversation": 0}},
	4:  {mode: Targets{"quick": 1, "think": 0, "conversation": 0}},
	5:  {mode: Targets{"quick": 0, "think": 0, "conversation": 1}},
	34: {mode: Targets{"quick": 0.3, "think": 0, "conversation": 0.7}},
}

// normTargets keeps string keys with numeric values in [0,1].
func normTargets(raw any) Targets {
	m, ok := dataset.AsObject(raw)
	if !ok {
		return nil
	}
	out := Targets{}
	for k, v := range m {
		key := strings.ToLower(strings.TrimSpace(k))
		f, ok := dataset.AsNumber(v)
		if key == "" || !ok || f < 0 || f > 1 {
			continue
		}
		out[key] = f
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// metricTargets reads the configured targets of metric ("mode" or "tone").
// The mode_tone_proportion block wins over keys at the validation level.
func metricTargets(vcfg, mtCfg map[string]any, metric string) Targets {
	suffixed := []string{metric + "_targets", metric + "_proportions", metric + "_distribution"}
	if mtCfg != nil {
		if block, ok := dataset.AsObject(mtCfg[metric]); ok {
			raw := any(block)
			if t, ok := dataset.AsObject(block["targets"]); ok {
				raw = t
			} else if d, ok := dataset.AsObject(block["distribution"]); ok {
				raw = d
			}
			if t := normTargets(raw); t != nil {
				return t
			}
		}
		for _, key := range suffixed {
			if t := normTargets(mtCfg[key]); t != nil {
				return t
			}
		}
	}
	for _, key := range suffixed {
		if t := normTargets(vcfg[key]); t != nil {
			return t
		}
	}
	return nil
}

// ModeToneTargets resolves the mode and tone targets of a lane: configured
// targets first, else the built-in lane targets.
func ModeToneTargets(laneID string, l dataset.Lane) (mode, tone Targets) {
	vcfg := l.Validation()
	mtCfg, _ := dataset.AsObject(vcfg["mode_tone_proportion"])
	mode = metricTargets(vcfg, mtCfg, "mode")
	tone = metricTargets(vcfg, mtCfg, "tone")
	if mode == nil && tone == nil {
		b := builtinModeTone[lane.Parse(laneID)]
		mode, tone = b.mode, b.tone
	}
	return mode, tone
}

// MinN reads mode_tone_proportion.min_n_per_language, then min_n.
func MinN(l dataset.Lane) int {
	mtCfg := l.Section("validation", "mode_tone_proportion")
	for _, key := range []string{"min_n_per_language", "min_n"} {
		if n, ok := dataset.AsInt(mtCfg[key]); ok && n > 0 {
			return int(n)
		}
	}
	return DefaultMinN
}

func modeToneCheck(laneID string, l dataset.Lane) (check, bool) {
	mode, tone := ModeToneTargets(laneID, l)
	if mode == nil && tone == nil {
		return check{}, false
	}
	return check{
		name:    "mode_tone_proportion",
		minN:    MinN(l),
		smallN:  "not_reliable_small_n",
		subject: "mode/tone proportion gate",
		judge: func(_ env, s Slice) verdict {
			var fails, warns []string
			for _, m := range []struct {
				field   string
				targets Targets
			}{{"mode", mode}, {"tone", tone}} {
				if m.targets == nil {
					continue
				}
				counts := labelCounts(s.Rows, func(row dataset.Row) string {
					return strings.ToLower(strings.TrimSpace(row.Text(m.field)))
				})
				for _, label := range sortedKeys(m.targets) {
					target := m.targets[label]
					observed := ratio(counts[label], s.N())
					b, dev := deviation(observed, target)
					msg := fmt.Sprintf("%s.%s observed=%.3f target=%.3f dev=%.3f", m.field, label, observed, target, dev)
					switch b {
					case bandFail:
						fails = append(fails, msg)
					case bandWarn:
						warns = append(warns, msg)
					}
				}
			}

			var v verdict
			prefix := fmt.Sprintf("language=%s n=%d; ", s.Language, s.N())
			switch {
			case len(fails) > 0:
				v.fail("proportion_out_of_tolerance", "%s%s", prefix, strings.Join(fails, "; "))
			case len(warns) > 0:
				v.warn("proportion_out_of_tolerance_warn", "%s%s", prefix, strings.Join(warns, "; "))
			default:
				v.pass("mode_tone_proportion PASS language=%s n=%d", s.Language, s.N())
			}
			return v
		},
	}, true
}
