// Package lane_test tests lane id parsing and the known lane set.
// Related: internal/lane/lane.go
// Tags: lane, parsing, enum
package lane

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		id   string
		want Number
	}{
		"plain":           {id: "lane_03", want: 3},
		"with suffix":     {id: "lane_07_search_triggering", want: 7},
		"upper and space": {id: "  LANE_15_code ", want: 15},
		"no number":       {id: "lane_x", want: 0},
		"wrong prefix":    {id: "my_lane_03", want: 0},
		"empty":           {id: "", want: 0},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Parse(tt.id))
		})
	}
}

func TestNumber(t *testing.T) {
	t.Parallel()

	assert.True(t, Number(1).Valid())
	assert.True(t, Number(37).Valid())
	assert.False(t, Number(0).Valid())
	assert.False(t, Number(38).Valid())
	assert.Equal(t, "lane09", Number(9).String())
	assert.True(t, Number(22).In(21, 22, 23))
	assert.False(t, Number(24).In(21, 22, 23))

	sorted := Sorted()
	assert.Len(t, sorted, 37)
	assert.Equal(t, Number(1), sorted[0])
	assert.Equal(t, Number(37), sorted[36])
}

func TestNewID(t *testing.T) {
	t.Parallel()

	id := NewID(" lane_11_connector_mapping ")
	assert.Equal(t, "lane_11_connector_mapping", id.String())
	assert.Equal(t, Number(11), id.Number)
}
