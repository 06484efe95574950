package contract

import (
	"fmt"
	"strings"

	"github.com/dino-ds/laneqc/internal/dataset"
)

// Violation is a (code, detail) pair produced by contract checks.
type Violation struct {
	Code   string
	Detail string
}

func expectedRepr(fv FixedValue) string {
	if fv.OneOf != nil {
		return dataset.Repr(fv.OneOf)
	}
	return dataset.Repr(fv.Want)
}

func (fv FixedValue) accepts(actual any) bool {
	if fv.OneOf != nil {
		for _, want := range fv.OneOf {
			if dataset.Equal(actual, want) {
				return true
			}
		}
		return false
	}
	return dataset.Equal(actual, fv.Want)
}

// EnforceFixedValues checks every fixed-value constraint of c against row and
// returns one violation per failed path. A leading "lane." on a path is ignored.
func EnforceFixedValues(row dataset.Row, laneID string, c Contract) []Violation {
	if !row.IsObject() {
		return nil
	}
	var out []Violation
	for _, fv := range c.FixedValues {
		path := strings.TrimPrefix(strings.TrimSpace(fv.Path), "lane.")
		if path == "" {
			continue
		}
		code := "fixed_value_violation:" + path
		actual, ok := row.Lookup(path)
		if !ok {
			out = append(out, Violation{
				Code:   code,
				Detail: fmt.Sprintf("field '%s' is required and must equal %s (lane=%s)", path, expectedRepr(fv), laneID),
			})
			continue
		}
		if !fv.accepts(actual) {
			out = append(out, Violation{
				Code:   code,
				Detail: fmt.Sprintf("field '%s' must equal %s; got %s (lane=%s)", path, expectedRepr(fv), dataset.Repr(actual), laneID),
			})
		}
	}
	return out
}
