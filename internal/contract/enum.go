package contract

import "github.com/dino-ds/laneqc/internal/dataset"

// Resolution is the outcome of an enum lookup.
type Resolution int

const (
	// EnumOK means the value is in the master set.
	EnumOK Resolution = iota
	// EnumOverride means the value is only allowed by the lane override set.
	EnumOverride
	// EnumRejected means the value is in neither set.
	EnumRejected
)

// Code returns the issue code for non-OK resolutions.
func (r Resolution) Code() string {
	switch r {
	case EnumOverride:
		return "lane_enum_override_used"
	case EnumRejected:
		return "enum_value_not_allowed"
	}
	return ""
}

// ResolveEnum looks value up in the master set, then in the lane override set.
func ResolveEnum(value any, master, override []any) Resolution {
	if contains(master, value) {
		return EnumOK
	}
	if contains(override, value) {
		return EnumOverride
	}
	return EnumRejected
}

func contains(set []any, value any) bool {
	for _, v := range set {
		if dataset.Equal(v, value) {
			return true
		}
	}
	return false
}

// TypeMatches reports whether value has the enum's declared type. Mixed enums
// accept any type.
func (e Enum) TypeMatches(value any) bool {
	switch e.Kind() {
	case KindBool:
		_, ok := value.(bool)
		return ok
	case KindString:
		_, ok := value.(string)
		return ok
	}
	return true
}
