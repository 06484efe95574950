// Package contract holds the per-lane rule sets rows are validated against:
// required keys, enum sets, fixed values, mapping and integration rules, turn
// requirements and the user/assistant overlap bound.
package contract

import (
	"slices"

	"github.com/dino-ds/laneqc/internal/lane"
)

// Enum is an allowed value set for one row field.
type Enum struct {
	Field  string
	Values []any
}

// Kind reports whether the allowed values are all booleans, all strings, or mixed.
func (e Enum) Kind() ValueKind {
	if len(e.Values) == 0 {
		return KindMixed
	}
	allBool, allStr := true, true
	for _, v := range e.Values {
		if _, ok := v.(bool); !ok {
			allBool = false
		}
		if _, ok := v.(string); !ok {
			allStr = false
		}
	}
	switch {
	case allBool:
		return KindBool
	case allStr:
		return KindString
	}
	return KindMixed
}

// ValueKind is the declared type of an enum.
type ValueKind int

const (
	KindMixed ValueKind = iota
	KindBool
	KindString
)

// FixedValue pins a dotted row path to a scalar or, when OneOf is set, to one
// of several values.
type FixedValue struct {
	Path  string
	Want  any
	OneOf []any
}

// MappingRules apply to lanes whose output is a single action label.
type MappingRules struct {
	AssistantMustBeEmpty bool
	ForbidToolCall       bool
	ForbidParameters     bool
	ActionLabel          string
}

// Active reports whether any mapping rule is set.
func (m MappingRules) Active() bool {
	return m.AssistantMustBeEmpty || m.ForbidToolCall || m.ForbidParameters || m.ActionLabel != ""
}

// IntegrationRules control citation and tool-call allowance.
type IntegrationRules struct {
	AllowCitations bool
	AllowToolCall  bool
}

// TurnRules describe the required conversation shape.
type TurnRules struct {
	RequiresMultiturn bool
	AllowMultiturn    bool
	MinMessages       int
	MinTurnPairs      int
}

// EffectiveMin is the number of non-system messages a row must carry.
func (t TurnRules) EffectiveMin() int {
	switch {
	case t.MinMessages > 0:
		return t.MinMessages
	case t.MinTurnPairs > 0:
		return t.MinTurnPairs * 2
	case t.RequiresMultiturn:
		return 4
	}
	return 2
}

// OverlapRule bounds user/assistant token overlap for rewrite-style lanes.
type OverlapRule struct {
	Metric    string
	Tokenizer string
	Max       float64
}

// Contract is the immutable rule set of one lane.
type Contract struct {
	Lane                    lane.Number
	RequiredKeys            []string
	RequiredLabelKeys       []string
	Enums                   []Enum
	Overrides               map[string][]any
	FixedValues             []FixedValue
	ForbiddenUserSubstrings []string
	Mapping                 MappingRules
	Integration             IntegrationRules
	Turns                   TurnRules
	Overlap                 *OverlapRule
}

// Kind names the contract family, for listings.
func (c Contract) Kind() string {
	switch {
	case c.Mapping.Active():
		return "mapping"
	case c.Integration.AllowCitations:
		return "integration"
	case c.Overlap != nil:
		return "overlap"
	case c.Turns.RequiresMultiturn:
		return "multiturn"
	}
	return "default"
}

// EnumFor returns the enum declared for field.
func (c Contract) EnumFor(field string) (Enum, bool) {
	for _, e := range c.Enums {
		if e.Field == field {
			return e, true
		}
	}
	return Enum{}, false
}

// RequiresLabel reports whether key is a required label for this lane.
func (c Contract) RequiresLabel(key string) bool {
	return slices.Contains(c.RequiredLabelKeys, key)
}

// For returns the contract registered for n, or the default contract tagged
// with n.
func For(n lane.Number) Contract {
	if c, ok := registry[n]; ok {
		return c
	}
	c := defaultContract
	c.Lane = n
	return c
}

// ForID returns the contract for a raw lane id.
func ForID(laneID string) Contract {
	return For(lane.Parse(laneID))
}

// Has reports whether n has a lane-specific contract.
func Has(n lane.Number) bool {
	_, ok := registry[n]
	return ok
}
