package contract

import "github.com/dino-ds/laneqc/internal/lane"

// Policy is the lane-number keyed tool-call, citation and output-shape table.
// Where it disagrees with a Contract, the Policy wins.
type Policy struct {
	RequiresToolCall bool
	AllowsToolCall   bool

	RequiresCitations bool
	ForbidsCitations  bool

	AssistantMustBeEmpty    bool
	AssistantMustBeCodeOnly bool
}

var policies = map[lane.Number]Policy{
	3:  {AllowsToolCall: true},
	4:  {AllowsToolCall: true},
	8:  {RequiresToolCall: true, AllowsToolCall: true, RequiresCitations: true},
	13: {RequiresToolCall: true, AllowsToolCall: true, AssistantMustBeEmpty: true},
	14: {RequiresToolCall: true, AllowsToolCall: true, AssistantMustBeEmpty: true},
	15: {AssistantMustBeCodeOnly: true},
}

// PolicyFor returns the lane policy and whether one is registered.
func PolicyFor(n lane.Number) (Policy, bool) {
	p, ok := policies[n]
	return p, ok
}

// Effective merges a contract's integration rules with the lane policy.
type Effective struct {
	AllowToolCall    bool
	RequireToolCall  bool
	AllowCitations   bool
	RequireCitations bool
	CitationsExempt  bool
	MustBeEmpty      bool
	MustBeCodeOnly   bool
}

// Merge resolves the tool-call and citation rules for c under its lane policy.
func Merge(c Contract) Effective {
	eff := Effective{
		AllowToolCall:  c.Integration.AllowToolCall,
		AllowCitations: c.Integration.AllowCitations,
		MustBeEmpty:    c.Mapping.AssistantMustBeEmpty,
	}
	p, ok := PolicyFor(c.Lane)
	if !ok {
		return eff
	}
	eff.AllowToolCall = p.AllowsToolCall || p.RequiresToolCall
	eff.RequireToolCall = p.RequiresToolCall
	if p.RequiresCitations {
		eff.AllowCitations = true
		eff.RequireCitations = true
	}
	if p.ForbidsCitations {
		eff.AllowCitations = false
		eff.RequireCitations = false
	}
	eff.MustBeEmpty = eff.MustBeEmpty || p.AssistantMustBeEmpty
	eff.MustBeCodeOnly = p.AssistantMustBeCodeOnly
	eff.CitationsExempt = p.AssistantMustBeCodeOnly
	return eff
}
