// Package lane identifies dataset lanes. A lane id such as "lane_07_search_triggering"
// carries a numeric tag that selects the lane's contract, policy and rule set.
package lane

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

var idRE = regexp.MustCompile(`^lane_(\d+)`)

// Number is the numeric tag of a lane id. Zero means the id carries no tag.
type Number int

// Known lists every lane number the engine has rules for.
var Known = func() map[Number]bool {
	m := make(map[Number]bool, 37)
	for n := Number(1); n <= 37; n++ {
		m[n] = true
	}
	return m
}()

// Parse extracts the lane number from a lane id. Ids that do not start with
// "lane_<digits>" yield 0.
func Parse(id string) Number {
	m := idRE.FindStringSubmatch(strings.ToLower(strings.TrimSpace(id)))
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return Number(n)
}

// Valid reports whether n is a known lane.
func (n Number) Valid() bool {
	return Known[n]
}

// String renders the number as a two-digit lane label, e.g. "lane03".
func (n Number) String() string {
	return fmt.Sprintf("lane%02d", int(n))
}

// In reports whether n is one of the listed numbers.
func (n Number) In(set ...Number) bool {
	return slices.Contains(set, n)
}

// ID is a lane id together with its parsed number.
type ID struct {
	Raw    string
	Number Number
}

// NewID parses raw into an ID.
func NewID(raw string) ID {
	return ID{Raw: strings.TrimSpace(raw), Number: Parse(raw)}
}

// String returns the raw lane id.
func (id ID) String() string {
	return id.Raw
}

// Sorted returns the known lane numbers in ascending order.
func Sorted() []Number {
	out := make([]Number, 0, len(Known))
	for n := range Known {
		out = append(out, n)
	}
	slices.Sort(out)
	return out
}
